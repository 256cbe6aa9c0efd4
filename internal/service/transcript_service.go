package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/clock"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/internal/transcript"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// TranscriptService snapshots ticket history into a structured record and a
// text file.
type TranscriptService struct {
	tickets    *TicketService
	store      *store.Store
	platform   platform.Platform
	dispatcher events.Dispatcher
	archive    repository.TranscriptRepository
	files      *store.FileBackend
	dir        string
	clock      clock.Clock
	logger     *zap.Logger
}

// TranscriptDependencies bundles collaborators for the transcript service.
// Archive is optional.
type TranscriptDependencies struct {
	Tickets    *TicketService
	Store      *store.Store
	Platform   platform.Platform
	Dispatcher events.Dispatcher
	Archive    repository.TranscriptRepository
	Dir        string
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewTranscriptService constructs the service.
func NewTranscriptService(deps TranscriptDependencies) *TranscriptService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &TranscriptService{
		tickets:    deps.Tickets,
		store:      deps.Store,
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		archive:    deps.Archive,
		files:      store.NewFileBackend(deps.Dir),
		dir:        deps.Dir,
		clock:      clk,
		logger:     logger,
	}
}

// Save writes the transcript of a ticket channel, indexes it and announces
// it. The text file only lives until the announcement has been published.
func (s *TranscriptService) Save(ctx context.Context, action TicketAction) (*domain.TranscriptIndexEntry, error) {
	unlock := s.tickets.locks.Lock(action.ChannelID)
	defer unlock()

	channel, err := s.tickets.ticketChannel(ctx, action.ChannelID)
	if err != nil {
		return nil, err
	}
	history, err := s.platform.History(ctx, channel.ID)
	if err != nil {
		return nil, errorutil.NewPlatformError("fetch channel history", err)
	}
	state := s.store.Snapshot()
	view, err := loadServerView(ctx, s.platform, action.GuildID, state.StaffRoles, true)
	if err != nil {
		return nil, err
	}

	owner, _ := transcript.DiscoverOwner(transcript.OwnerClues{
		Snapshot:   state.ClosedTickets[channel.ID],
		Channel:    channel,
		Members:    view.memberMap(),
		StaffRoles: state.StaffRoles,
		History:    history,
		Privileged: view.isAdmin,
	})
	payload := ticketPayload(state, channel.ID, channel.Name)
	savedAt := s.clock.Now()
	record := transcript.Build(transcript.Source{
		Guild:     *view.guild,
		Channel:   *channel,
		Owner:     owner,
		PanelName: payload.PanelTitle,
		SavedBy:   action.Actor,
		SavedAt:   savedAt,
		History:   history,
	})

	id := uuid.NewString()
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, errorutil.NewInternalError(fmt.Errorf("encode transcript: %w", err))
	}
	if err := s.files.Write(ctx, id, data); err != nil {
		return nil, errorutil.NewPersistenceError(err)
	}

	textPath := filepath.Join(s.dir, fmt.Sprintf("transcript-%s-%s.txt", channel.Name, id[:8]))
	if err := os.WriteFile(textPath, []byte(transcript.RenderText(record)), 0o600); err != nil {
		return nil, errorutil.NewPersistenceError(fmt.Errorf("write text transcript: %w", err))
	}
	defer func() {
		if err := os.Remove(textPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove text transcript failed", zap.String("path", textPath), zap.Error(err))
		}
	}()

	entry := domain.TranscriptIndexEntry{
		ID:           id,
		ChannelID:    channel.ID,
		ChannelName:  channel.Name,
		OwnerID:      record.Ticket.Owner.ID,
		OwnerName:    record.Ticket.Owner.Name,
		SavedBy:      action.Actor.ID,
		SavedAt:      savedAt,
		MessageCount: record.Statistics.TotalMessages,
		File:         id + ".json",
	}
	var pending error
	if err := s.store.AppendTranscript(ctx, entry); err != nil {
		pending = err
	}
	if err := s.tickets.update(ctx, &pending, func(st *store.State) error {
		if r := st.TicketStatus[channel.ID]; r != nil {
			r.TranscriptSaved = true
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if s.archive != nil {
		if err := s.archive.Create(ctx, id, &record); err != nil {
			s.logger.Warn("archive transcript failed", zap.String("transcript_id", id), zap.Error(err))
		}
	}

	s.tickets.notice(ctx, channel.ID, fmt.Sprintf("📄 Transcript saved by <@%s> (%d messages).", action.Actor.ID, entry.MessageCount))
	s.logger.Info("transcript saved",
		zap.String("channel_id", channel.ID),
		zap.String("ticket", channel.Name),
		zap.String("actor", action.Actor.ID),
		zap.Int("messages", entry.MessageCount))

	s.tickets.metrics.RecordTransition(string(domain.EventTranscriptSaved))
	publishEvent(ctx, s.dispatcher, s.clock, s.logger, events.Event{
		Type:      domain.EventTranscriptSaved,
		GuildID:   action.GuildID,
		ChannelID: channel.ID,
		Actor:     actorOf(action.Actor),
		Payload: events.TranscriptSavedPayload{
			TicketPayload: payload,
			TranscriptID:  id,
			MessageCount:  entry.MessageCount,
			TextPath:      textPath,
		},
	})
	return &entry, pending
}

// Record loads a saved structured transcript by id.
func (s *TranscriptService) Record(ctx context.Context, id string) (*domain.TranscriptRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewValidationError("invalid transcript id", map[string]any{"id": id})
	}
	data, err := s.files.Read(ctx, id)
	if errors.Is(err, store.ErrDocumentNotFound) && s.archive != nil {
		archived, archiveErr := s.archive.GetByID(ctx, id)
		if archiveErr == nil {
			return &archived.Record, nil
		}
		if !errors.Is(archiveErr, repository.ErrNotFound) {
			return nil, errorutil.NewPersistenceError(archiveErr)
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, errorutil.NewNotFound("transcript", map[string]any{"id": id})
		}
		return nil, errorutil.NewInternalError(err)
	}
	var record domain.TranscriptRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errorutil.NewInternalError(fmt.Errorf("decode transcript %s: %w", id, err))
	}
	return &record, nil
}

// Index lists saved transcripts, oldest first.
func (s *TranscriptService) Index() []domain.TranscriptIndexEntry {
	return s.store.Transcripts()
}

// Archived lists archived transcripts of a channel, newest first. It fails
// when no archive is configured.
func (s *TranscriptService) Archived(ctx context.Context, channelID string, limit, offset int) ([]repository.ArchivedTranscript, error) {
	if s.archive == nil {
		return nil, errorutil.NewValidationError("transcript archive is not configured", nil)
	}
	if channelID == "" {
		return nil, errorutil.NewValidationError("channel_id is required", nil)
	}
	rows, err := s.archive.ListByChannel(ctx, channelID, limit, offset)
	if err != nil {
		return nil, errorutil.NewPersistenceError(err)
	}
	return rows, nil
}
