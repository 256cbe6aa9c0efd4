package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrNotFound is returned when no archived transcript has the requested id.
var ErrNotFound = errors.New("repository: not found")

// ArchivedTranscript is one row of the transcript archive.
type ArchivedTranscript struct {
	ID           string
	GuildID      string
	ChannelID    string
	ChannelName  string
	OwnerID      string
	SavedBy      string
	MessageCount int
	SavedAt      time.Time
	Record       domain.TranscriptRecord
}

// TranscriptRepository archives structured transcripts in Postgres.
type TranscriptRepository interface {
	Create(ctx context.Context, id string, record *domain.TranscriptRecord) error
	GetByID(ctx context.Context, id string) (*ArchivedTranscript, error)
	ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]ArchivedTranscript, error)
}

type transcriptRepository struct {
	pool *pgxpool.Pool
}

// NewTranscriptRepository instantiates repository.
func NewTranscriptRepository(pool *pgxpool.Pool) TranscriptRepository {
	return &transcriptRepository{pool: pool}
}

func (r *transcriptRepository) Create(ctx context.Context, id string, record *domain.TranscriptRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	const query = `
        INSERT INTO ticket_transcripts (id, guild_id, channel_id, channel_name, owner_id, saved_by, message_count, record, saved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.pool.Exec(ctx, query,
		id,
		record.Server.ID,
		record.Server.ChannelID,
		record.Server.ChannelName,
		record.Ticket.Owner.ID,
		record.Ticket.SavedBy.ID,
		record.Statistics.TotalMessages,
		payload,
		record.Ticket.Timestamp,
	)
	return err
}

func (r *transcriptRepository) GetByID(ctx context.Context, id string) (*ArchivedTranscript, error) {
	const query = `
        SELECT id, guild_id, channel_id, channel_name, owner_id, saved_by, message_count, saved_at, record
        FROM ticket_transcripts WHERE id=$1`
	var (
		archived ArchivedTranscript
		payload  []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&archived.ID,
		&archived.GuildID,
		&archived.ChannelID,
		&archived.ChannelName,
		&archived.OwnerID,
		&archived.SavedBy,
		&archived.MessageCount,
		&archived.SavedAt,
		&payload,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &archived.Record); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return &archived, nil
}

// ListByChannel returns summaries without the record body, newest first.
func (r *transcriptRepository) ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]ArchivedTranscript, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, guild_id, channel_id, channel_name, owner_id, saved_by, message_count, saved_at
        FROM ticket_transcripts WHERE channel_id=$1
        ORDER BY saved_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedTranscript
	for rows.Next() {
		var archived ArchivedTranscript
		if err := rows.Scan(
			&archived.ID,
			&archived.GuildID,
			&archived.ChannelID,
			&archived.ChannelName,
			&archived.OwnerID,
			&archived.SavedBy,
			&archived.MessageCount,
			&archived.SavedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, archived)
	}
	return out, rows.Err()
}
