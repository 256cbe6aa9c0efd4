package domain

import "time"

// TranscriptUser identifies a message author or ticket participant.
type TranscriptUser struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
	ID     string `json:"id"`
	Bot    bool   `json:"bot,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type TranscriptServer struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
}

type TranscriptTicket struct {
	Owner      TranscriptUser `json:"owner"`
	TicketName string         `json:"ticket_name"`
	PanelName  string         `json:"panel_name"`
	SavedBy    TranscriptUser `json:"saved_by"`
	Timestamp  time.Time      `json:"timestamp"`
}

type TranscriptStatistics struct {
	TotalMessages     int            `json:"total_messages"`
	Attachments       int            `json:"attachments"`
	UserMessageCounts map[string]int `json:"user_message_counts"`
}

type TranscriptEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

type TranscriptAttachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int    `json:"size"`
}

type TranscriptMessage struct {
	ID          string                 `json:"id"`
	Author      TranscriptUser         `json:"author"`
	Content     string                 `json:"content"`
	Timestamp   time.Time              `json:"timestamp"`
	Embeds      []TranscriptEmbed      `json:"embeds"`
	Attachments []TranscriptAttachment `json:"attachments"`
}

// TranscriptRecord is the structured snapshot of a ticket channel's history.
type TranscriptRecord struct {
	Server     TranscriptServer     `json:"server"`
	Ticket     TranscriptTicket     `json:"ticket"`
	Statistics TranscriptStatistics `json:"statistics"`
	Messages   []TranscriptMessage  `json:"messages"`
}

// TranscriptIndexEntry points at a saved transcript.
type TranscriptIndexEntry struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ChannelName  string    `json:"channel_name"`
	OwnerID      string    `json:"owner_id"`
	OwnerName    string    `json:"owner_name"`
	SavedBy      string    `json:"saved_by"`
	SavedAt      time.Time `json:"saved_at"`
	MessageCount int       `json:"message_count"`
	File         string    `json:"file"`
}
