package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketOpened, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketOpened, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "closed")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketOpened})
	if err == nil {
		t.Fatalf("expected handler error to be reported")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("unexpected handler calls %v", calls)
	}
}
