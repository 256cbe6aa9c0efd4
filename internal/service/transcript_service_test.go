package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

type memoryArchive struct {
	mu      sync.Mutex
	rows    map[string]repository.ArchivedTranscript
	failGet error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{rows: map[string]repository.ArchivedTranscript{}}
}

func (a *memoryArchive) Create(_ context.Context, id string, record *domain.TranscriptRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows[id] = repository.ArchivedTranscript{
		ID:           id,
		GuildID:      record.Server.ID,
		ChannelID:    record.Server.ChannelID,
		ChannelName:  record.Server.ChannelName,
		OwnerID:      record.Ticket.Owner.ID,
		SavedBy:      record.Ticket.SavedBy.ID,
		MessageCount: record.Statistics.TotalMessages,
		SavedAt:      record.Ticket.Timestamp,
		Record:       *record,
	}
	return nil
}

func (a *memoryArchive) GetByID(_ context.Context, id string) (*repository.ArchivedTranscript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failGet != nil {
		return nil, a.failGet
	}
	row, ok := a.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (a *memoryArchive) ListByChannel(_ context.Context, channelID string, limit, offset int) ([]repository.ArchivedTranscript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var rows []repository.ArchivedTranscript
	for _, row := range a.rows {
		if row.ChannelID == channelID {
			rows = append(rows, row)
		}
	}
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func TestTranscriptArchive(t *testing.T) {
	h := newHarness(t)
	archive := newMemoryArchive()
	h.transcripts.archive = archive

	channel := h.open(customer1)
	h.platform.Post(channel.ID, customer1, "hello")
	entry, err := h.transcripts.Save(h.ctx, h.action(channel.ID, staff1))
	h.must(err)

	rows, err := h.transcripts.Archived(h.ctx, channel.ID, 10, 0)
	h.must(err)
	if len(rows) != 1 || rows[0].ID != entry.ID || rows[0].OwnerID != "u1" {
		t.Fatalf("unexpected archive rows %+v", rows)
	}

	if err := os.Remove(filepath.Join(h.transcripts.dir, entry.File)); err != nil {
		t.Fatalf("remove transcript file: %v", err)
	}
	record, err := h.transcripts.Record(h.ctx, entry.ID)
	h.must(err)
	if record.Server.ChannelID != channel.ID {
		t.Errorf("archived record should describe %s, got %s", channel.ID, record.Server.ChannelID)
	}

	archive.failGet = errors.New("connection reset")
	if _, err := h.transcripts.Record(h.ctx, entry.ID); errorCode(err) != errorutil.CodePersistence {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestTranscriptArchiveNotConfigured(t *testing.T) {
	h := newHarness(t)
	if _, err := h.transcripts.Archived(h.ctx, "c1", 10, 0); errorCode(err) != errorutil.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := h.transcripts.Record(h.ctx, "not-a-uuid"); errorCode(err) != errorutil.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := h.transcripts.Record(h.ctx, "6f1c1c1e-3d8a-4c55-9a53-9f6c7d5e2a10"); errorCode(err) != errorutil.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
