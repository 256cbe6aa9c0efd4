package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-bot/internal/persistence"
)

// RedisBackend keeps each document as a string value under the connection's
// key prefix.
type RedisBackend struct {
	conn *persistence.Redis
}

// NewRedisBackend builds a backend over an existing connection.
func NewRedisBackend(conn *persistence.Redis) *RedisBackend {
	return &RedisBackend{conn: conn}
}

func (b *RedisBackend) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := b.conn.Client.Get(ctx, b.conn.Key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the document with a single SET, which Redis applies atomically.
func (b *RedisBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := b.conn.Client.Set(ctx, b.conn.Key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
