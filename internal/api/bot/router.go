// Package bot routes chat interactions to the ticket services.
package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// HandlerFunc serves one interaction. A returned error is shown to the
// invoking user as an ephemeral message.
type HandlerFunc func(ctx context.Context, in *platform.Interaction, r platform.Responder) error

// Matcher resolves control ids that are not registered exactly.
type Matcher func(customID string) (HandlerFunc, bool)

// Router dispatches commands by name and controls by stable id.
type Router struct {
	mu       sync.RWMutex
	commands map[string]HandlerFunc
	controls map[string]HandlerFunc
	matchers []Matcher
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger, metrics *observability.Metrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		commands: make(map[string]HandlerFunc),
		controls: make(map[string]HandlerFunc),
		logger:   logger,
		metrics:  metrics,
	}
}

// Command registers a slash command handler.
func (r *Router) Command(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// Control registers a handler for one stable control id.
func (r *Router) Control(customID string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls[customID] = h
}

// Match registers a resolver consulted when no exact control id matches.
func (r *Router) Match(m Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers = append(r.matchers, m)
}

// Handle serves an interaction. It never panics and never returns an error;
// failures become ephemeral replies.
func (r *Router) Handle(ctx context.Context, in *platform.Interaction, resp platform.Responder) {
	route, h := r.resolve(in)
	recoverInteraction(r.logger, r.metrics, route, h)(ctx, in, resp)
}

func (r *Router) resolve(in *platform.Interaction) (string, HandlerFunc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch in.Kind {
	case platform.InteractionCommand:
		route := "/" + in.Command
		if in.Subcommand != "" {
			route += " " + in.Subcommand
		}
		if h, ok := r.commands[in.Command]; ok {
			return route, h
		}
		return route, unknown(apperrors.NewNotFound("command", map[string]any{"command": in.Command}))
	case platform.InteractionComponent:
		if h, ok := r.controls[in.CustomID]; ok {
			return in.CustomID, h
		}
		for _, m := range r.matchers {
			if h, ok := m(in.CustomID); ok {
				return in.CustomID, h
			}
		}
		return in.CustomID, unknown(apperrors.NewNotFound("control", map[string]any{"custom_id": in.CustomID}))
	}
	return "unknown", unknown(apperrors.NewValidationError("unsupported interaction", nil))
}

func unknown(err error) HandlerFunc {
	return func(context.Context, *platform.Interaction, platform.Responder) error {
		return err
	}
}
