package dto

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ChannelID       string              `json:"channel_id"`
	Name            string              `json:"name"`
	Status          domain.TicketStatus `json:"status"`
	Category        string              `json:"category"`
	CreatedBy       string              `json:"created_by"`
	CreatedAt       time.Time           `json:"created_at"`
	TranscriptSaved bool                `json:"transcript_saved"`
	PanelID         string              `json:"panel_id,omitempty"`
	SubPanelID      string              `json:"sub_panel_id,omitempty"`
}

// TicketListQuery captures query filters for the ticket listing.
type TicketListQuery struct {
	Status   domain.TicketStatus
	Category string
	Page     int
	PageSize int
}

// TranscriptSummary response.
type TranscriptSummary struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ChannelName  string    `json:"channel_name"`
	OwnerID      string    `json:"owner_id"`
	OwnerName    string    `json:"owner_name"`
	SavedBy      string    `json:"saved_by"`
	SavedAt      time.Time `json:"saved_at"`
	MessageCount int       `json:"message_count"`
}
