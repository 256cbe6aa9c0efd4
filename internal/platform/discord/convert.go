package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

func fromUser(u *discordgo.User) platform.Member {
	if u == nil {
		return platform.Member{}
	}
	return platform.Member{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.GlobalName,
		AvatarURL:   u.AvatarURL(avatarSize),
		Bot:         u.Bot,
	}
}

func fromMember(m *discordgo.Member) platform.Member {
	out := fromUser(m.User)
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	out.Roles = append([]string(nil), m.Roles...)
	return out
}

func fromChannel(c *discordgo.Channel) platform.Channel {
	out := platform.Channel{ID: c.ID, GuildID: c.GuildID, ParentID: c.ParentID, Name: c.Name}
	for _, o := range c.PermissionOverwrites {
		out.Overwrites = append(out.Overwrites, fromOverwrite(o))
	}
	return out
}

func fromMessage(m *discordgo.Message) platform.Message {
	out := platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    fromUser(m.Author),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Member != nil {
		if m.Member.Nick != "" {
			out.Author.DisplayName = m.Member.Nick
		}
		out.Author.Roles = append([]string(nil), m.Member.Roles...)
	}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, fromEmbed(e))
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, platform.Attachment{Filename: a.Filename, URL: a.URL, Size: a.Size})
	}
	out.Components = fromComponents(m.Components)
	return out
}

func fromEmbed(e *discordgo.MessageEmbed) platform.Embed {
	out := platform.Embed{Title: e.Title, Description: e.Description, Color: e.Color}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	if e.Author != nil {
		out.AuthorName = e.Author.Name
		out.AuthorIconURL = e.Author.IconURL
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		out.Timestamp = ts
	}
	return out
}

func toEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if e.AuthorName != "" {
			embed.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName, IconURL: e.AuthorIconURL}
		}
		if e.ThumbnailURL != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if !e.Timestamp.IsZero() {
			embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, embed)
	}
	return out
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonSuccess:   discordgo.SuccessButton,
	platform.ButtonDanger:    discordgo.DangerButton,
}

func toComponents(rows []platform.ActionRow) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var components []discordgo.MessageComponent
		if row.Select != nil {
			menu := discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    row.Select.CustomID,
				Placeholder: row.Select.Placeholder,
			}
			for _, o := range row.Select.Options {
				option := discordgo.SelectMenuOption{
					Label:       o.Label,
					Value:       o.Value,
					Description: o.Description,
				}
				if o.Emoji != "" {
					option.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
				}
				menu.Options = append(menu.Options, option)
			}
			components = append(components, menu)
		}
		for _, b := range row.Buttons {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.PrimaryButton
			}
			button := discordgo.Button{CustomID: b.CustomID, Label: b.Label, Style: style}
			if b.Emoji != "" {
				button.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			components = append(components, button)
		}
		if len(components) > 0 {
			out = append(out, discordgo.ActionsRow{Components: components})
		}
	}
	return out
}

func fromComponents(components []discordgo.MessageComponent) []platform.ActionRow {
	var out []platform.ActionRow
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		var converted platform.ActionRow
		for _, inner := range row.Components {
			switch v := inner.(type) {
			case *discordgo.Button:
				converted.Buttons = append(converted.Buttons, platform.Button{CustomID: v.CustomID, Label: v.Label})
			case *discordgo.SelectMenu:
				menu := &platform.Select{CustomID: v.CustomID, Placeholder: v.Placeholder}
				for _, o := range v.Options {
					menu.Options = append(menu.Options, platform.SelectOption{Label: o.Label, Value: o.Value, Description: o.Description})
				}
				converted.Select = menu
			}
		}
		out = append(out, converted)
	}
	return out
}
