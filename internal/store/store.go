package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Store serialises every read and write of the engine state behind one mutex.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger

	state       *State
	transcripts []domain.TranscriptIndexEntry
	lastWritten map[string][]byte
}

// Open loads the state from backend, migrating legacy panels. Missing or
// corrupt documents yield defaults; Open never fails on content.
func Open(ctx context.Context, backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend:     backend,
		logger:      logger,
		lastWritten: make(map[string][]byte),
	}
	s.state = s.Load(ctx)
	s.transcripts = s.loadTranscripts(ctx)
	return s
}

// Load reads both state documents from the backend.
func (s *Store) Load(ctx context.Context) *State {
	state := &State{}

	if data, ok := s.readDocument(ctx, ConfigDocument); ok {
		if err := state.decodeConfig(data); err != nil {
			s.logger.Warn("config document is corrupt, starting from defaults", zap.Error(err))
			state.Panels, state.StaffRoles, state.Counters = nil, nil, nil
			state.Audit = domain.AuditConfig{}
		}
	}
	if data, ok := s.readDocument(ctx, StateDocument); ok {
		if err := state.decodeRuntime(data); err != nil {
			s.logger.Warn("state document is corrupt, starting from defaults", zap.Error(err))
			state.ClosedTickets, state.TicketStatus = nil, nil
		}
	}
	state.applyDefaults()

	if Migrate(state) {
		s.logger.Info("migrated legacy panels", zap.Int("panels", len(state.Panels)))
	}
	return state
}

func (s *Store) readDocument(ctx context.Context, name string) ([]byte, bool) {
	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("read document failed, using defaults", zap.String("document", name), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (s *Store) loadTranscripts(ctx context.Context) []domain.TranscriptIndexEntry {
	data, ok := s.readDocument(ctx, TranscriptDocument)
	if !ok {
		return nil
	}
	var doc transcriptDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("transcript index is corrupt, starting empty", zap.Error(err))
		return nil
	}
	return doc.Transcripts
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state and persists the result. If fn
// fails nothing changes. If persisting fails the mutation is kept in memory
// and a persistence error is returned; the next successful write flushes it.
func (s *Store) Update(ctx context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.applyDefaults()
	// fn may have kept pointers into next; the store holds its own copy.
	s.state = next.Clone()
	return s.saveLocked(ctx, s.state)
}

// Save replaces the whole state and writes it.
func (s *Store) Save(ctx context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state.Clone()
	return s.saveLocked(ctx, s.state)
}

func (s *Store) saveLocked(ctx context.Context, state *State) error {
	configData, err := state.encodeConfig()
	if err != nil {
		return errorutil.NewPersistenceError(fmt.Errorf("encode config document: %w", err))
	}
	runtimeData, err := state.encodeRuntime()
	if err != nil {
		return errorutil.NewPersistenceError(fmt.Errorf("encode state document: %w", err))
	}
	if err := s.writeDocument(ctx, ConfigDocument, configData); err != nil {
		return err
	}
	return s.writeDocument(ctx, StateDocument, runtimeData)
}

func (s *Store) writeDocument(ctx context.Context, name string, data []byte) error {
	if previous, ok := s.lastWritten[name]; ok && bytes.Equal(previous, data) {
		return nil
	}
	if err := s.backend.Write(ctx, name, data); err != nil {
		s.logger.Error("persist document failed", zap.String("document", name), zap.Error(err))
		return errorutil.NewPersistenceError(err)
	}
	s.lastWritten[name] = data
	return nil
}

// AppendTranscript adds an entry to the transcript index and persists it.
func (s *Store) AppendTranscript(ctx context.Context, entry domain.TranscriptIndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcripts = append(s.transcripts, entry)
	data, err := json.MarshalIndent(transcriptDoc{Transcripts: s.transcripts}, "", "  ")
	if err != nil {
		return errorutil.NewPersistenceError(fmt.Errorf("encode transcript index: %w", err))
	}
	return s.writeDocument(ctx, TranscriptDocument, data)
}

// Transcripts returns the transcript index, oldest first.
func (s *Store) Transcripts() []domain.TranscriptIndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TranscriptIndexEntry, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}
