package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType = domain.EventKind

const (
	EventTicketOpened    = domain.EventOpened
	EventTicketClaimed   = domain.EventClaimed
	EventTicketClosed    = domain.EventClosed
	EventTicketDeleted   = domain.EventDeleted
	EventTicketReopened  = domain.EventReopened
	EventTranscriptSaved = domain.EventTranscriptSaved
)

// Actor identifies the member who triggered a transition.
type Actor struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPayload accompanies every ticket lifecycle event.
type TicketPayload struct {
	ChannelName string `json:"channel_name"`
	Category    string `json:"category"`
	PanelTitle  string `json:"panel_title"`
}

// TranscriptSavedPayload carries the rendered transcript for the audit log.
type TranscriptSavedPayload struct {
	TicketPayload
	TranscriptID string `json:"transcript_id"`
	MessageCount int    `json:"message_count"`
	// TextPath is the human-readable file; the consumer removes it after use.
	TextPath string `json:"text_path"`
}
