package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/store"
)

var auditStyles = map[domain.EventKind]struct {
	title  string
	action string
	color  int
}{
	domain.EventOpened:          {"Ticket Opened", "Opened", 0x57F287},
	domain.EventClaimed:         {"Ticket Claimed", "Claimed", 0x5865F2},
	domain.EventClosed:          {"Ticket Closed", "Closed", 0xFEE75C},
	domain.EventDeleted:         {"Ticket Deleted", "Deleted", 0xED4245},
	domain.EventReopened:        {"Ticket Reopened", "Reopened", 0x3BA55C},
	domain.EventTranscriptSaved: {"Transcript Saved", "Transcript Saved", 0x99AAB5},
}

// AuditService forwards lifecycle events to the configured audit channel.
type AuditService struct {
	dispatcher events.Dispatcher
	store      *store.Store
	platform   platform.Platform
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, st *store.Store, p platform.Platform, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		store:      st,
		platform:   p,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every lifecycle event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, kind := range domain.EventKinds {
		a.dispatcher.Subscribe(kind, a.handle)
	}
}

// handle posts one audit entry. Delivery problems are logged, never returned.
func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	cfg := a.store.Snapshot().Audit
	if !cfg.Enabled(event.Type) {
		return nil
	}
	msg, err := auditMessage(event)
	if err != nil {
		a.logger.Warn("build audit entry failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return nil
	}
	if _, err := a.platform.SendMessage(ctx, cfg.ChannelID, msg); err != nil {
		a.logger.Warn("deliver audit entry failed",
			zap.String("event_type", string(event.Type)),
			zap.String("channel_id", event.ChannelID),
			zap.Error(err))
	}
	return nil
}

func auditMessage(event events.Event) (platform.OutgoingMessage, error) {
	style, ok := auditStyles[event.Type]
	if !ok {
		return platform.OutgoingMessage{}, fmt.Errorf("unknown event type %q", event.Type)
	}

	var ticket events.TicketPayload
	var transcript *events.TranscriptSavedPayload
	switch p := event.Payload.(type) {
	case events.TicketPayload:
		ticket = p
	case events.TranscriptSavedPayload:
		ticket = p.TicketPayload
		transcript = &p
	}

	embed := platform.Embed{
		Title:         style.title,
		Color:         style.color,
		AuthorName:    event.Actor.Name,
		AuthorIconURL: event.Actor.AvatarURL,
		Timestamp:     event.Timestamp,
		Fields: []platform.EmbedField{
			{Name: "Logged Info", Value: fmt.Sprintf("**Ticket:** %s\n**Action:** %s", ticket.ChannelName, style.action), Inline: true},
			{Name: "Panel", Value: orDash(ticket.PanelTitle), Inline: true},
		},
	}
	msg := platform.OutgoingMessage{}

	if transcript != nil {
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "Messages",
			Value: fmt.Sprintf("%d messages saved", transcript.MessageCount),
		})
		if transcript.TextPath != "" {
			data, err := os.ReadFile(transcript.TextPath)
			if err != nil {
				return platform.OutgoingMessage{}, fmt.Errorf("read transcript file: %w", err)
			}
			msg.Files = []platform.File{{
				Name:        filepath.Base(transcript.TextPath),
				ContentType: "text/plain; charset=utf-8",
				Data:        data,
			}}
		}
	}
	msg.Embeds = []platform.Embed{embed}
	return msg, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
