package events

import (
	"context"
	"log/slog"
	"time"
)

// HandlerFunc processes one change event. Handlers never report errors to the
// dispatcher: every failure path inside a handler is expected to be caught,
// logged and resolved fail-safe (typically by deleting the derived record).
type HandlerFunc func(ctx context.Context, ev Event)

// Dispatcher fans change events out to the handlers registered for each
// collection. Handlers for one event run independently; a panic in one handler
// is recovered and does not stop the others.
type Dispatcher struct {
	handlers map[string][]HandlerFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]HandlerFunc)}
}

// On registers a handler for events on the given collection.
func (d *Dispatcher) On(collection string, h HandlerFunc) {
	d.handlers[collection] = append(d.handlers[collection], h)
}

// Dispatch delivers the event to every handler registered for its collection.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	start := time.Now()
	for _, h := range d.handlers[ev.Collection] {
		d.invoke(ctx, ev, h)
	}
	eventsHandled.WithLabelValues(ev.Collection).Inc()

	slog.Debug("event dispatched",
		"collection", ev.Collection,
		"id", ev.ID,
		"handlers", len(d.handlers[ev.Collection]),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (d *Dispatcher) invoke(ctx context.Context, ev Event, h HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanics.WithLabelValues(ev.Collection).Inc()
			slog.Error("event handler panicked",
				"collection", ev.Collection,
				"id", ev.ID,
				"panic", r,
			)
		}
	}()
	h(ctx, ev)
}
