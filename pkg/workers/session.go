package workers

import (
	"context"

	"github.com/cbodonnell/apclient/pkg/log"
)

type SessionEventType int

const (
	SessionEventTypeMessage SessionEventType = iota
	SessionEventTypeClosed
)

type SessionEvent struct {
	Type SessionEventType
	// Text is the chat message or the close reason.
	Text string
}

type SessionEventWorker struct {
	sessionEventChan <-chan SessionEvent
	itemsChan        <-chan struct{}
	onItemsReceived  func(ctx context.Context)
	onMessage        func(ctx context.Context, text string)
	onClosed         func(reason string)
}

type NewSessionEventWorkerOptions struct {
	SessionEventChan <-chan SessionEvent
	// ItemsChan signals that received items changed. Senders should use a
	// buffer of one and never block, so signals coalesce instead of queueing
	// behind messages.
	ItemsChan        <-chan struct{}
	OnItemsReceived  func(ctx context.Context)
	OnMessage        func(ctx context.Context, text string)
	// OnClosed runs without the worker context since it usually tears the
	// session, and with it the worker, down.
	OnClosed func(reason string)
}

// NewSessionEventWorker creates a new SessionEventWorker.
// The worker processes events raised by the remote session off the
// session's own goroutine, one at a time. Messages keep their arrival order.
func NewSessionEventWorker(opts NewSessionEventWorkerOptions) *SessionEventWorker {
	return &SessionEventWorker{
		sessionEventChan: opts.SessionEventChan,
		itemsChan:        opts.ItemsChan,
		onItemsReceived:  opts.OnItemsReceived,
		onMessage:        opts.OnMessage,
		onClosed:         opts.OnClosed,
	}
}

func (w *SessionEventWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.itemsChan:
			if w.onItemsReceived != nil {
				w.onItemsReceived(ctx)
			}
		case event := <-w.sessionEventChan:
			switch event.Type {
			case SessionEventTypeMessage:
				if w.onMessage != nil {
					w.onMessage(ctx, event.Text)
				}
			case SessionEventTypeClosed:
				if w.onClosed != nil {
					w.onClosed(event.Text)
				}
				return
			default:
				log.Error("Unknown session event type: %v", event.Type)
			}
		}
	}
}
