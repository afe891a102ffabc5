package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	t.Run("delivers to subscribers in registration order", func(t *testing.T) {
		bus := NewEventBus()
		var seen []string
		bus.Subscribe("test.event", func(e Event) error {
			seen = append(seen, "first")
			return nil
		})
		bus.Subscribe("test.event", func(e Event) error {
			seen = append(seen, "second")
			return nil
		})

		err := bus.Publish(NewEvent(context.Background(), "test.event", "payload"))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, seen)
	})

	t.Run("only matching type is delivered", func(t *testing.T) {
		bus := NewEventBus()
		delivered := 0
		bus.Subscribe("test.one", func(e Event) error {
			delivered++
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), "test.other", nil)))
		assert.Equal(t, 0, delivered)
	})

	t.Run("handler error does not stop delivery", func(t *testing.T) {
		bus := NewEventBus()
		handlerErr := errors.New("boom")
		delivered := false
		bus.Subscribe("test.event", func(e Event) error {
			return handlerErr
		})
		bus.Subscribe("test.event", func(e Event) error {
			delivered = true
			return nil
		})

		err := bus.Publish(NewEvent(context.Background(), "test.event", nil))
		assert.ErrorIs(t, err, handlerErr)
		assert.True(t, delivered)
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		bus := NewEventBus()
		assert.NoError(t, bus.Publish(NewEvent(context.Background(), "test.event", nil)))
	})

	t.Run("event carries its context", func(t *testing.T) {
		type ctxKey struct{}
		ctx := context.WithValue(context.Background(), ctxKey{}, "value")

		bus := NewEventBus()
		var got any
		bus.Subscribe("test.event", func(e Event) error {
			got = e.Context().Value(ctxKey{})
			return nil
		})
		require.NoError(t, bus.Publish(NewEvent(ctx, "test.event", nil)))
		assert.Equal(t, "value", got)
	})
}
