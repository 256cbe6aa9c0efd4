// Package platform describes the chat-platform operations the ticket engine
// depends on. Adapters live in sub-packages.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrNotFound is returned when the requested server object does not exist.
var ErrNotFound = errors.New("platform: not found")

type Guild struct {
	ID      string
	Name    string
	OwnerID string
	IconURL string
}

type Role struct {
	ID            string
	Name          string
	Position      int
	Administrator bool
}

type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Bot         bool
	Roles       []string
}

// Name is the display name, falling back to the username.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

type Channel struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Overwrites []domain.Overlay
}

// Overwrite returns the channel's overwrite for a principal.
func (c *Channel) Overwrite(kind domain.OverlayType, id string) (domain.Overlay, bool) {
	for _, o := range c.Overwrites {
		if o.Type == kind && o.ID == id {
			return o, true
		}
	}
	return domain.Overlay{}, false
}

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	Name     string
	ParentID string
	Topic    string
	Overlays []domain.Overlay
	Reason   string
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title         string
	Description   string
	Footer        string
	Color         int
	AuthorName    string
	AuthorIconURL string
	ThumbnailURL  string
	Fields        []EmbedField
	Timestamp     time.Time
}

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Emoji    string
}

type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// ActionRow holds either buttons or a single select menu.
type ActionRow struct {
	Buttons []Button
	Select  *Select
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OutgoingMessage is the content of a message to send or edit.
type OutgoingMessage struct {
	Content    string
	Embeds     []Embed
	Components []ActionRow
	Files      []File
}

type Attachment struct {
	Filename string
	URL      string
	Size     int
}

// Message is a message as read back from a channel.
type Message struct {
	ID          string
	ChannelID   string
	Author      Member
	Content     string
	Timestamp   time.Time
	Embeds      []Embed
	Attachments []Attachment
	Components  []ActionRow
}

// Platform is the set of chat-platform calls the engine makes. Every call may
// block on the network.
type Platform interface {
	Guild(ctx context.Context, guildID string) (*Guild, error)
	Role(ctx context.Context, guildID, roleID string) (*Role, error)
	Roles(ctx context.Context, guildID string) ([]Role, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	Members(ctx context.Context, guildID string) ([]Member, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
	Message(ctx context.Context, channelID, messageID string) (*Message, error)

	CreateTextChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name, reason string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SetOverwrite(ctx context.Context, channelID string, overwrite domain.Overlay, reason string) error

	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg OutgoingMessage) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	// History returns the channel's messages from oldest to newest.
	History(ctx context.Context, channelID string) ([]Message, error)
}
