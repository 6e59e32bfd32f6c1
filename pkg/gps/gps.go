// Package gps tracks the player's position in the game world.
package gps

import (
	"context"
	"sync"
	"time"

	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/cbodonnell/apclient/pkg/types"
)

const DefaultInterval = time.Second

// PositionFunc reads the current position. It returns false when the
// position is not available, for example during a loading screen.
type PositionFunc func(ctx context.Context) (types.Position, bool)

type Tracker struct {
	lock     sync.RWMutex
	position types.Position

	source     PositionFunc
	interval   time.Duration
	eventQueue queue.Queue
	onChange   func(ctx context.Context, position types.Position)
}

type NewTrackerOptions struct {
	Source   PositionFunc
	Interval time.Duration
	// EventQueue receives PositionChangedEvent and MapChangedEvent values.
	EventQueue queue.Queue
	// OnChange runs after any change, typically to persist the position.
	OnChange func(ctx context.Context, position types.Position)
}

func NewTracker(opts NewTrackerOptions) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Tracker{
		source:     opts.Source,
		interval:   opts.Interval,
		eventQueue: opts.EventQueue,
		onChange:   opts.OnChange,
	}
}

// Start polls the source immediately and then once per interval until ctx
// ends.
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		t.Update(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Update reads the source once and publishes what changed.
func (t *Tracker) Update(ctx context.Context) {
	next, ok := t.source(ctx)
	if !ok {
		return
	}

	t.lock.Lock()
	old := t.position
	t.position = next
	t.lock.Unlock()

	var events []interface{}
	if old.MapID != next.MapID || old.MapName != next.MapName {
		events = append(events, types.MapChangedEvent{
			OldMapID:   old.MapID,
			OldMapName: old.MapName,
			NewMapID:   next.MapID,
			NewMapName: next.MapName,
		})
	}
	if old.X != next.X || old.Y != next.Y || old.Z != next.Z {
		events = append(events, types.PositionChangedEvent{Old: old, New: next})
	}
	if len(events) == 0 {
		return
	}

	if t.eventQueue != nil {
		for _, event := range events {
			if err := t.eventQueue.Enqueue(event); err != nil {
				log.Warn("Failed to enqueue position event: %v", err)
			}
		}
	}
	if t.onChange != nil {
		t.onChange(ctx, next)
	}
}

// Current returns the last known position.
func (t *Tracker) Current() types.Position {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.position
}
