// Package reconcile merges the service's cumulative view of received items
// into the local game state.
//
// The merge takes, per item id, the larger of the local quantity and the
// number of copies in the view. Applying the same view twice is a no-op, so a
// full resend after a reconnect neither duplicates nor loses grants.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/metrics"
	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/cbodonnell/apclient/pkg/session"
	"github.com/cbodonnell/apclient/pkg/state"
	"github.com/cbodonnell/apclient/pkg/types"
	"golang.org/x/sync/semaphore"
)

// Result lists the increments applied by one pass, ordered by item id.
type Result struct {
	Changes []types.ItemReceivedEvent
}

func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

type Engine struct {
	lock         *semaphore.Weighted
	stateManager state.StateManager
	eventQueue   queue.Queue
	category     func(itemID int64) string
	logger       *log.Logger
	metrics      *metrics.Metrics
}

type NewEngineOptions struct {
	StateManager state.StateManager
	// EventQueue receives one types.ItemReceivedEvent per increment.
	EventQueue queue.Queue
	// Category optionally names the category of an item id.
	Category func(itemID int64) string
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

func NewEngine(opts NewEngineOptions) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		lock:         semaphore.NewWeighted(1),
		stateManager: opts.StateManager,
		eventQueue:   opts.EventQueue,
		category:     opts.Category,
		logger:       opts.Logger.Named("reconcile"),
		metrics:      opts.Metrics,
	}
}

type tally struct {
	item  session.NetworkItem
	count int
}

func countItems(view []session.NetworkItem) ([]int64, map[int64]*tally) {
	counts := make(map[int64]*tally)
	for _, item := range view {
		t, ok := counts[item.ItemID]
		if !ok {
			t = &tally{item: item}
			counts[item.ItemID] = t
		}
		t.count++
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, counts
}

// Reconcile applies view to the game state. Passes never overlap: a caller
// waits for the pass in flight, or until ctx ends. When anything changed the
// state is saved before the lock is released, then events are published.
func (e *Engine) Reconcile(ctx context.Context, view []session.NetworkItem) (Result, error) {
	if err := e.lock.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("failed to acquire reconciliation lock: %v", err)
	}
	defer e.lock.Release(1)

	ids, counts := countItems(view)

	var result Result
	err := e.stateManager.Commit(ctx, func(gameState *types.GameState) (bool, error) {
		for _, id := range ids {
			t := counts[id]
			local, ok := gameState.ReceivedItems[id]
			if ok && local.Quantity >= t.count {
				continue
			}
			if !ok {
				local = &types.Item{
					ID:            id,
					Name:          t.item.ItemName,
					IsProgression: t.item.IsProgression(),
				}
				if e.category != nil {
					local.Category = e.category(id)
				}
				gameState.ReceivedItems[id] = local
			}
			if local.Name == "" {
				local.Name = t.item.ItemName
			}
			previous := local.Quantity
			local.Quantity = t.count
			result.Changes = append(result.Changes, types.ItemReceivedEvent{
				Item:     *local,
				Previous: previous,
			})
		}
		return result.Changed(), nil
	})
	if err != nil {
		return Result{}, err
	}
	e.metrics.ObserveReconcile(len(result.Changes))

	for _, change := range result.Changes {
		e.logger.Info("Received %s (%d -> %d)", change.Item.Name, change.Previous, change.Item.Quantity)
		if e.eventQueue == nil {
			continue
		}
		if err := e.eventQueue.Enqueue(change); err != nil {
			e.logger.Error("Failed to enqueue item received event for %d: %v", change.Item.ID, err)
		}
	}
	return result, nil
}
