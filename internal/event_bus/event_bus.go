package event_bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType identifies a kind of domain notification.
type EventType string

// Event is the envelope published on the bus. Data stays untyped so
// different payloads can share one bus.
type Event struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      any
}

// NewEvent creates an Event carrying the request context of the operation
// that triggered it, so subscribers can read the current user, deadlines, etc.
func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return Event{
		ctx:       ctx,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context returns the context the event was published under.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

type handler func(Event) error

// EventBus is a concurrency-safe synchronous dispatcher: Publish runs every
// subscriber for the event type in registration order before returning.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]handler
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]handler),
	}
}

// Subscribe registers a handler for the given event type.
func (eb *EventBus) Subscribe(eventType EventType, h func(Event) error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], h)
}

// Publish delivers the event to all handlers registered for its type. Handler
// errors do not stop delivery to the remaining handlers; they are collected
// into the returned error.
func (eb *EventBus) Publish(e Event) error {
	eb.mu.RLock()
	handlers := append([]handler(nil), eb.subscribers[e.Type]...)
	eb.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(e); err != nil {
			log.Errorf("event bus: handler error for event %s: %v", e.Type, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler error for event %s: %w", e.Type, err)
			}
		}
	}
	return firstErr
}
