package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
)

func TestRedisKeysAndPing(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: mr.Addr()}, "ticketbot:", zap.NewNop())
	defer r.Close()

	if got := r.Key("ticket_config"); got != "ticketbot:ticket_config" {
		t.Errorf("Key = %q", got)
	}
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mr.Close()
	if err := r.Ping(context.Background()); err == nil {
		t.Errorf("ping should fail once the server is gone")
	}

	var missing *Redis
	if err := missing.Ping(context.Background()); err == nil {
		t.Errorf("nil client should not be ready")
	}
}
