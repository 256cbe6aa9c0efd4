package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
)

const redisDialCheckTimeout = 3 * time.Second

// Redis is the client for the shared document store. Every key the bot
// writes lives under Prefix so several bots can share one database.
type Redis struct {
	Client *redis.Client
	Prefix string
}

// NewRedis builds the client. An unreachable server is logged, not fatal;
// documents are read again on the next store access.
func NewRedis(cfg config.RedisConfig, prefix string, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	r := &Redis{Client: client, Prefix: prefix}

	ctx, cancel := context.WithTimeout(context.Background(), redisDialCheckTimeout)
	defer cancel()
	fields := []zap.Field{zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.String("prefix", prefix)}
	if err := r.Ping(ctx); err != nil {
		logger.Warn("unable to reach redis", append(fields, zap.Error(err))...)
	} else {
		logger.Info("connected to redis", fields...)
	}
	return r
}

// Key namespaces name under the configured prefix.
func (r *Redis) Key(name string) string {
	return r.Prefix + name
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity for the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
