package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// InteractionHandler receives every converted interaction.
type InteractionHandler func(ctx context.Context, in *platform.Interaction, r platform.Responder)

// ConvertInteraction maps a gateway interaction. ok is false for kinds the
// engine does not handle.
func ConvertInteraction(i *discordgo.InteractionCreate) (*platform.Interaction, bool) {
	out := &platform.Interaction{ID: i.ID, GuildID: i.GuildID, ChannelID: i.ChannelID}
	switch {
	case i.Member != nil:
		out.User = fromMember(i.Member)
		out.CanManageServer = canManageServer(i.Member.Permissions)
	case i.User != nil:
		out.User = fromUser(i.User)
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		out.Kind = platform.InteractionCommand
		out.Command = data.Name
		out.Options = map[string]string{}
		options := data.Options
		if len(options) == 1 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			out.Subcommand = options[0].Name
			options = options[0].Options
		}
		for _, o := range options {
			out.Options[o.Name] = fmt.Sprint(o.Value)
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		out.Kind = platform.InteractionComponent
		out.CustomID = data.CustomID
		out.Values = append([]string(nil), data.Values...)
	default:
		return nil, false
	}
	return out, true
}

// Responder answers one interaction through the session.
type Responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu       sync.Mutex
	deferred bool
}

// NewResponder binds a responder to an interaction.
func NewResponder(session *discordgo.Session, interaction *discordgo.Interaction) *Responder {
	return &Responder{session: session, interaction: interaction}
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred {
		return nil
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	r.deferred = true
	return nil
}

// Reply sends the initial response, or a follow-up once deferred.
func (r *Responder) Reply(ctx context.Context, content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred {
		_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   flags(ephemeral),
		}, discordgo.WithContext(ctx))
		return mapError(err)
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags(ephemeral)},
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.deferred = true
	}
	return mapError(err)
}

var optionTypes = map[platform.OptionKind]discordgo.ApplicationCommandOptionType{
	platform.OptionString:  discordgo.ApplicationCommandOptionString,
	platform.OptionChannel: discordgo.ApplicationCommandOptionChannel,
	platform.OptionRole:    discordgo.ApplicationCommandOptionRole,
	platform.OptionBool:    discordgo.ApplicationCommandOptionBoolean,
}

// ToApplicationCommands converts command descriptions for registration.
func ToApplicationCommands(commands []platform.Command) []*discordgo.ApplicationCommand {
	manageGuild := permManageGuild
	out := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, c := range commands {
		cmd := &discordgo.ApplicationCommand{Name: c.Name, Description: c.Description}
		if c.ManageOnly {
			cmd.DefaultMemberPermissions = &manageGuild
		}
		for _, sub := range c.Subcommands {
			option := &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        sub.Name,
				Description: sub.Description,
			}
			for _, o := range sub.Options {
				converted := &discordgo.ApplicationCommandOption{
					Type:        optionTypes[o.Kind],
					Name:        o.Name,
					Description: o.Description,
					Required:    o.Required,
				}
				for _, choice := range o.Choices {
					converted.Choices = append(converted.Choices, &discordgo.ApplicationCommandOptionChoice{Name: choice, Value: choice})
				}
				option.Options = append(option.Options, converted)
			}
			cmd.Options = append(cmd.Options, option)
		}
		out = append(out, cmd)
	}
	return out
}
