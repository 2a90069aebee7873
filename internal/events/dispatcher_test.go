package events

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	var received []Event
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	event := Event{
		Type:     EventTicketCreated,
		TicketID: "t001",
		Actor:    Actor{ID: "u1", Role: domain.RoleCustomer},
	}
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(received) != 1 || received[0].TicketID != "t001" {
		t.Fatalf("handler not invoked: %+v", received)
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	called := false
	dispatcher.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		called = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketUpdated}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called {
		t.Fatalf("handler invoked for unrelated event type")
	}
}

func TestDispatcherFailingHandlerDoesNotBlockOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	secondCalled := false
	dispatcher.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		return errors.New("handler failure")
	})
	dispatcher.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		secondCalled = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketStatusChanged}); err != nil {
		t.Fatalf("publish reported handler error: %v", err)
	}
	if !secondCalled {
		t.Fatalf("second handler skipped after first failed")
	}
}
