package domain

import "time"

// TicketStatus enumerates lifecycle states for ticket channels.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// TicketRecord is the per-channel status entry.
type TicketRecord struct {
	OriginalName    string       `json:"original_name"`
	Status          TicketStatus `json:"status"`
	CreatedBy       string       `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	TicketType      string       `json:"ticket_type"`
	TranscriptSaved bool         `json:"transcript_saved"`
	PanelID         string       `json:"panel_id,omitempty"`
	SubPanelID      string       `json:"sub_panel_id,omitempty"`
}

// MemberPermissions is the part of a member overwrite restored on reopen.
type MemberPermissions struct {
	ViewChannel        Tristate `json:"view_channel"`
	SendMessages       Tristate `json:"send_messages"`
	ReadMessageHistory Tristate `json:"read_message_history"`
}

// ClosedSnapshot records a channel's member overwrites at closure.
type ClosedSnapshot struct {
	ChannelID    string                       `json:"channel_id"`
	OriginalName string                       `json:"original_name"`
	ClosedBy     string                       `json:"closed_by"`
	ClosedAt     time.Time                    `json:"closed_at"`
	Permissions  map[string]MemberPermissions `json:"permissions"`
}
