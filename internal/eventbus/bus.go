package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/metrics"
)

// ErrDegraded wraps an event publish failure that happened after the
// triggering mutation committed. Callers surface it as a warning on an
// otherwise successful response instead of failing the request.
var ErrDegraded = errors.New("event delivery degraded")

// Event is a completed domain state change carrying full context, so a
// listener never needs a follow-up read.
type Event interface {
	Tag() string
}

// Listener handles one published event. Listeners run synchronously inside
// the publishing request's unit of work; anything needing durability must
// hand off to the job dispatcher instead of doing I/O inline.
type Listener func(ctx context.Context, event Event) error

// Bus is a typed in-process registry mapping event tags to ordered listener
// lists. Publish invokes listeners in registration order before returning.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    zerolog.Logger
}

func New(logger zerolog.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger.With().Str("component", "eventbus").Logger(),
	}
}

// Subscribe appends a listener for the given tag. Listeners are invoked in
// the order they were registered.
func (b *Bus) Subscribe(tag string, fn Listener) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[tag] = append(b.listeners[tag], fn)
}

// Publish delivers the event to every listener registered for its tag, in
// order. All listeners run even if an earlier one fails; their errors are
// joined and returned so the caller can observe them. A listener failure
// never rolls back the mutation that produced the event.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return nil
	}

	b.mu.RLock()
	listeners := b.listeners[event.Tag()]
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(event.Tag()).Inc()

	var errs []error
	for _, fn := range listeners {
		if err := fn(ctx, event); err != nil {
			b.logger.Warn().
				Err(err).
				Str("tag", event.Tag()).
				Msg("event listener failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
