// Package discord adapts a discordgo session to the platform interface.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

const (
	membersPageSize = 1000
	historyPageSize = 100
	avatarSize      = "128"
	maxHistoryPages = 500
)

// Platform implements platform.Platform on top of a discordgo session.
type Platform struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// New wraps session.
func New(session *discordgo.Session, logger *zap.Logger) *Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Platform{session: session, logger: logger}
}

// mapError turns 404 responses into platform.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
	}
	return err
}

func opts(ctx context.Context, reason string) []discordgo.RequestOption {
	out := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		out = append(out, discordgo.WithAuditLogReason(reason))
	}
	return out
}

func (p *Platform) Guild(ctx context.Context, guildID string) (*platform.Guild, error) {
	g, err := p.session.Guild(guildID, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	return &platform.Guild{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID, IconURL: g.IconURL(avatarSize)}, nil
}

func (p *Platform) Role(ctx context.Context, guildID, roleID string) (*platform.Role, error) {
	roles, err := p.Roles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			out := r
			return &out, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (p *Platform) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	roles, err := p.session.GuildRoles(guildID, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, platform.Role{
			ID:            r.ID,
			Name:          r.Name,
			Position:      r.Position,
			Administrator: r.Permissions&permAdministrator != 0,
		})
	}
	return out, nil
}

func (p *Platform) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := p.session.GuildMember(guildID, userID, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	out := fromMember(m)
	return &out, nil
}

// Members pages through the full member list.
func (p *Platform) Members(ctx context.Context, guildID string) ([]platform.Member, error) {
	var out []platform.Member
	after := ""
	for {
		page, err := p.session.GuildMembers(guildID, after, membersPageSize, opts(ctx, "")...)
		if err != nil {
			return nil, mapError(err)
		}
		for _, m := range page {
			out = append(out, fromMember(m))
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (p *Platform) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	c, err := p.session.Channel(channelID, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	out := fromChannel(c)
	return &out, nil
}

func (p *Platform) Message(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	m, err := p.session.ChannelMessage(channelID, messageID, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	out := fromMessage(m)
	return &out, nil
}

func (p *Platform) CreateTextChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(spec.Overlays))
	for _, o := range spec.Overlays {
		overwrites = append(overwrites, toOverwrite(o))
	}
	c, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, opts(ctx, spec.Reason)...)
	if err != nil {
		return nil, mapError(err)
	}
	out := fromChannel(c)
	return &out, nil
}

func (p *Platform) RenameChannel(ctx context.Context, channelID, name, reason string) error {
	_, err := p.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, opts(ctx, reason)...)
	return mapError(err)
}

func (p *Platform) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := p.session.ChannelDelete(channelID, opts(ctx, reason)...)
	return mapError(err)
}

// SetOverwrite replaces the principal's overwrite. Rights the engine does not
// model are carried over from the current overwrite.
func (p *Platform) SetOverwrite(ctx context.Context, channelID string, overwrite domain.Overlay, reason string) error {
	c, err := p.session.Channel(channelID, opts(ctx, "")...)
	if err != nil {
		return mapError(err)
	}
	kind := overwriteType(overwrite.Type)
	var existing *discordgo.PermissionOverwrite
	for _, o := range c.PermissionOverwrites {
		if o.ID == overwrite.ID && o.Type == kind {
			existing = o
			break
		}
	}
	allow, deny := fullOverwrite(overwrite, existing)
	return mapError(p.session.ChannelPermissionSet(channelID, overwrite.ID, kind, allow, deny, opts(ctx, reason)...))
}

func (p *Platform) SendMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (*platform.Message, error) {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
	}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	m, err := p.session.ChannelMessageSendComplex(channelID, send, opts(ctx, "")...)
	if err != nil {
		return nil, mapError(err)
	}
	out := fromMessage(m)
	return &out, nil
}

func (p *Platform) EditMessage(ctx context.Context, channelID, messageID string, msg platform.OutgoingMessage) error {
	embeds := toEmbeds(msg.Embeds)
	components := toComponents(msg.Components)
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Content = &msg.Content
	edit.Embeds = &embeds
	edit.Components = &components
	_, err := p.session.ChannelMessageEditComplex(edit, opts(ctx, "")...)
	return mapError(err)
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(p.session.ChannelMessageDelete(channelID, messageID, opts(ctx, "")...))
}

func (p *Platform) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return mapError(p.session.MessageReactionAdd(channelID, messageID, emoji, opts(ctx, "")...))
}

// History pages backwards from the newest message, then returns the result
// oldest first.
func (p *Platform) History(ctx context.Context, channelID string) ([]platform.Message, error) {
	var out []platform.Message
	before := ""
	for page := 0; page < maxHistoryPages; page++ {
		batch, err := p.session.ChannelMessages(channelID, historyPageSize, before, "", "", opts(ctx, "")...)
		if err != nil {
			return nil, mapError(err)
		}
		for _, m := range batch {
			out = append(out, fromMessage(m))
		}
		if len(batch) < historyPageSize {
			break
		}
		before = batch[len(batch)-1].ID
	}
	if len(out) == historyPageSize*maxHistoryPages {
		p.logger.Warn("channel history truncated", zap.String("channel_id", channelID), zap.Int("messages", len(out)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

var _ platform.Platform = (*Platform)(nil)
