package fake

import (
	"context"
	"sync"
)

// Reply is one answer sent through a Responder.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Responder records interaction responses.
type Responder struct {
	mu       sync.Mutex
	deferred bool
	replies  []Reply
}

func (r *Responder) Defer(_ context.Context, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = true
	return nil
}

func (r *Responder) Reply(_ context.Context, content string, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, Reply{Content: content, Ephemeral: ephemeral})
	return nil
}

// Deferred reports whether Defer was called.
func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

// Replies returns the recorded replies.
func (r *Responder) Replies() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}
