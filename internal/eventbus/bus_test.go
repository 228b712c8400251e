package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ tag string }

func (e testEvent) Tag() string { return e.tag }

func TestPublishRunsListenersInRegistrationOrder(t *testing.T) {
	bus := New(zerolog.Nop())
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe("thing.changed", func(ctx context.Context, e Event) error {
			order = append(order, name)
			return nil
		})
	}

	err := bus.Publish(context.Background(), testEvent{tag: "thing.changed"})
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPublishOnlyReachesMatchingTag(t *testing.T) {
	bus := New(zerolog.Nop())
	var hits int
	bus.Subscribe("a", func(ctx context.Context, e Event) error { hits++; return nil })
	bus.Subscribe("b", func(ctx context.Context, e Event) error { t.Fatal("wrong tag delivered"); return nil })

	require.NoError(t, bus.Publish(context.Background(), testEvent{tag: "a"}))
	require.Equal(t, 1, hits)
}

func TestPublishContinuesPastFailingListener(t *testing.T) {
	bus := New(zerolog.Nop())
	boom := errors.New("boom")
	var secondRan bool

	bus.Subscribe("a", func(ctx context.Context, e Event) error { return boom })
	bus.Subscribe("a", func(ctx context.Context, e Event) error { secondRan = true; return nil })

	err := bus.Publish(context.Background(), testEvent{tag: "a"})
	require.ErrorIs(t, err, boom)
	require.True(t, secondRan)
}

func TestPublishJoinsAllErrors(t *testing.T) {
	bus := New(zerolog.Nop())
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	bus.Subscribe("a", func(ctx context.Context, e Event) error { return errA })
	bus.Subscribe("a", func(ctx context.Context, e Event) error { return errB })

	err := bus.Publish(context.Background(), testEvent{tag: "a"})
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestPublishWithNoListeners(t *testing.T) {
	bus := New(zerolog.Nop())
	require.NoError(t, bus.Publish(context.Background(), testEvent{tag: "unheard"}))
	require.NoError(t, bus.Publish(context.Background(), nil))
}
