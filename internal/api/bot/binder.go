package bot

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Binder attaches handlers to the stable control ids carried by ticket and
// panel messages. Handlers derive everything from the interaction and the
// store, so binding after a restart needs no per-channel work.
type Binder struct {
	router      *Router
	panels      *service.PanelService
	tickets     *service.TicketService
	transcripts *service.TranscriptService
	platform    platform.Platform
	logger      *zap.Logger

	mu    sync.RWMutex
	bound map[string]bool
}

// BinderDependencies bundles collaborators for the binder.
type BinderDependencies struct {
	Router      *Router
	Panels      *service.PanelService
	Tickets     *service.TicketService
	Transcripts *service.TranscriptService
	Platform    platform.Platform
	Logger      *zap.Logger
}

// NewBinder constructs the binder. Nothing is registered until Bind.
func NewBinder(deps BinderDependencies) *Binder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{
		router:      deps.Router,
		panels:      deps.Panels,
		tickets:     deps.Tickets,
		transcripts: deps.Transcripts,
		platform:    deps.Platform,
		logger:      logger,
		bound:       make(map[string]bool),
	}
}

// Bind registers the ticket controls and a dispatch view for every panel.
func (b *Binder) Bind() {
	b.router.Control(service.CloseTicketControl, b.lifecycle("✅ Ticket closed.", b.tickets.Close))
	b.router.Control(service.ReopenTicketControl, b.lifecycle("✅ Ticket reopened.", b.tickets.Reopen))
	b.router.Control(service.DeleteTicketControl, b.lifecycle("✅ Ticket deleted.", b.tickets.Delete))
	b.router.Control(service.TranscriptControl, b.saveTranscript)
	b.router.Match(b.matchPanel)

	panels := b.panels.Panels()
	for _, panel := range panels {
		b.BindPanel(panel)
	}
	b.logger.Info("persistent controls bound", zap.Int("panels", len(panels)))
}

// BindPanel enables the dispatch view of a panel.
func (b *Binder) BindPanel(panel *domain.Panel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound[panel.ID] = true
}

// UnbindPanel disables a panel's dispatch view. Its published controls then
// answer with a recoverable error.
func (b *Binder) UnbindPanel(panelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bound, panelID)
}

// Bound reports whether a panel has a dispatch view.
func (b *Binder) Bound(panelID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bound[panelID]
}

func (b *Binder) matchPanel(customID string) (HandlerFunc, bool) {
	if panelID, subID, ok := service.ParsePanelButtonID(customID); ok {
		return b.openFromPanel(panelID, func(*platform.Interaction) string { return subID }), true
	}
	if panelID, ok := service.ParsePanelSelectID(customID); ok {
		return b.openFromPanel(panelID, func(in *platform.Interaction) string {
			if len(in.Values) == 0 {
				return ""
			}
			return in.Values[0]
		}), true
	}
	return nil, false
}

func (b *Binder) openFromPanel(panelID string, subID func(*platform.Interaction) string) HandlerFunc {
	return func(ctx context.Context, in *platform.Interaction, r platform.Responder) error {
		if !b.Bound(panelID) {
			return apperrors.NewNotFound("ticket panel", map[string]any{"panel_id": panelID})
		}
		sub := subID(in)
		if sub == "" {
			return apperrors.NewValidationError("no ticket category was selected", nil)
		}
		if err := r.Defer(ctx, true); err != nil {
			return apperrors.NewPlatformError("acknowledge interaction", err)
		}
		parentID := ""
		if origin, err := b.platform.Channel(ctx, in.ChannelID); err == nil {
			parentID = origin.ParentID
		}
		channel, err := b.tickets.Open(ctx, service.OpenRequest{
			GuildID:    in.GuildID,
			PanelID:    panelID,
			SubPanelID: sub,
			ParentID:   parentID,
			User:       in.User,
		})
		if channel == nil {
			return err
		}
		if replyErr := r.Reply(ctx, fmt.Sprintf("🎫 Your ticket has been created: <#%s>", channel.ID), true); replyErr != nil {
			b.logger.Warn("reply to interaction failed", zap.Error(replyErr))
		}
		return err
	}
}

// lifecycle runs one ticket transition. The service rejects channels that
// are not tickets.
func (b *Binder) lifecycle(done string, run func(context.Context, service.TicketAction) error) HandlerFunc {
	return func(ctx context.Context, in *platform.Interaction, r platform.Responder) error {
		if err := r.Defer(ctx, true); err != nil {
			return apperrors.NewPlatformError("acknowledge interaction", err)
		}
		if err := run(ctx, actionOf(in)); err != nil {
			return err
		}
		return r.Reply(ctx, done, true)
	}
}

func (b *Binder) saveTranscript(ctx context.Context, in *platform.Interaction, r platform.Responder) error {
	if err := r.Defer(ctx, true); err != nil {
		return apperrors.NewPlatformError("acknowledge interaction", err)
	}
	entry, err := b.transcripts.Save(ctx, actionOf(in))
	if entry == nil {
		return err
	}
	if replyErr := r.Reply(ctx, fmt.Sprintf("📄 Transcript saved (%d messages).", entry.MessageCount), true); replyErr != nil {
		b.logger.Warn("reply to interaction failed", zap.Error(replyErr))
	}
	return err
}

func actionOf(in *platform.Interaction) service.TicketAction {
	return service.TicketAction{GuildID: in.GuildID, ChannelID: in.ChannelID, Actor: in.User}
}
