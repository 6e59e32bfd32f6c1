package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/queue"
)

const DefaultDispatchInterval = 50 * time.Millisecond

// EventHandler receives one event drained from the event queue.
type EventHandler func(ctx context.Context, event interface{})

type EventDispatchWorker struct {
	eventQueue queue.Queue
	handler    EventHandler
	interval   time.Duration
}

type NewEventDispatchWorkerOptions struct {
	EventQueue queue.Queue
	Handler    EventHandler
	Interval   time.Duration
}

// NewEventDispatchWorker creates a new EventDispatchWorker.
// The worker drains the event queue on every tick and hands the events to
// the handler in the order they were published.
func NewEventDispatchWorker(opts NewEventDispatchWorkerOptions) *EventDispatchWorker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultDispatchInterval
	}
	return &EventDispatchWorker{
		eventQueue: opts.EventQueue,
		handler:    opts.Handler,
		interval:   opts.Interval,
	}
}

// Start dispatches until ctx ends, then flushes whatever is still queued.
func (w *EventDispatchWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.dispatch(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			w.dispatch(ctx)
		}
	}
}

func (w *EventDispatchWorker) dispatch(ctx context.Context) {
	events, err := w.eventQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read events: %v", err)
		return
	}
	for _, event := range events {
		w.handler(ctx, event)
	}
}
