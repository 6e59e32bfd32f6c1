package reconcile

import (
	"bytes"
	"context"
	"sync"
	"testing"

	queuemocks "github.com/cbodonnell/apclient/mocks/github.com/cbodonnell/apclient/pkg/queue"
	storemocks "github.com/cbodonnell/apclient/mocks/github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/queue"
	"github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/session"
	"github.com/cbodonnell/apclient/pkg/state"
	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testKey = types.SessionKey{Game: "GameX", Slot: 1, Seed: "42"}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0, log.LogLevelError)
}

func items(pairs ...interface{}) []session.NetworkItem {
	var view []session.NetworkItem
	for i := 0; i < len(pairs); i += 2 {
		id := int64(pairs[i].(int))
		for n := 0; n < pairs[i+1].(int); n++ {
			view = append(view, session.NetworkItem{ItemID: id, ItemName: "item"})
		}
	}
	return view
}

func newManager(stores ...repositories.Store) *state.Manager {
	return state.NewManager(state.NewManagerOptions{Key: testKey, Stores: stores, Logger: quietLogger()})
}

func drain(t *testing.T, q queue.Queue) []types.ItemReceivedEvent {
	all, err := q.ReadAllMessages()
	require.NoError(t, err)
	events := make([]types.ItemReceivedEvent, 0, len(all))
	for _, e := range all {
		events = append(events, e.(types.ItemReceivedEvent))
	}
	return events
}

func TestEngine_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		local      map[int64]int
		view       []session.NetworkItem
		want       map[int64]int
		wantEvents int
	}{
		{
			name:       "new items notify once per id",
			view:       items(1, 3, 2, 1),
			want:       map[int64]int{1: 3, 2: 1},
			wantEvents: 2,
		},
		{
			name:       "server ahead",
			local:      map[int64]int{5: 2},
			view:       items(5, 3),
			want:       map[int64]int{5: 3},
			wantEvents: 1,
		},
		{
			name:       "local ahead never decreases",
			local:      map[int64]int{5: 4},
			view:       items(5, 1),
			want:       map[int64]int{5: 4},
			wantEvents: 0,
		},
		{
			name:       "empty view",
			local:      map[int64]int{7: 1},
			view:       nil,
			want:       map[int64]int{7: 1},
			wantEvents: 0,
		},
		{
			name:       "order does not matter",
			view:       []session.NetworkItem{{ItemID: 2}, {ItemID: 1}, {ItemID: 2}},
			want:       map[int64]int{1: 1, 2: 2},
			wantEvents: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := newManager()
			require.NoError(t, m.Mutate(ctx, func(gameState *types.GameState) error {
				for id, qty := range tt.local {
					gameState.ReceivedItems[id] = &types.Item{ID: id, Quantity: qty}
				}
				return nil
			}))
			q := queue.NewInMemoryQueue(16)
			e := NewEngine(NewEngineOptions{StateManager: m, EventQueue: q, Logger: quietLogger()})

			result, err := e.Reconcile(ctx, tt.view)
			require.NoError(t, err)
			assert.Len(t, result.Changes, tt.wantEvents)
			assert.Len(t, drain(t, q), tt.wantEvents)

			gameState, err := m.Get(ctx)
			require.NoError(t, err)
			got := map[int64]int{}
			for id, item := range gameState.ReceivedItems {
				got[id] = item.Quantity
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_idempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	q := queue.NewInMemoryQueue(16)
	e := NewEngine(NewEngineOptions{StateManager: m, EventQueue: q, Logger: quietLogger()})
	view := items(1, 2, 3, 1, 9, 4)

	_, err := e.Reconcile(ctx, view)
	require.NoError(t, err)
	first, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, drain(t, q), 3)

	result, err := e.Reconcile(ctx, view)
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Empty(t, drain(t, q))

	second, err := m.Get(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestEngine_replaySafe(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	e := NewEngine(NewEngineOptions{StateManager: m, Logger: quietLogger()})

	passes := [][]session.NetworkItem{
		items(1, 1),
		items(1, 2),
		items(1, 2),
		items(1, 1), // partial resend after reconnect
		items(1, 3),
	}
	highest := 0
	for _, view := range passes {
		_, err := e.Reconcile(ctx, view)
		require.NoError(t, err)
		if len(view) > highest {
			highest = len(view)
		}
		gameState, err := m.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, highest, gameState.Quantity(1))
	}
}

func TestEngine_serverAheadScenario(t *testing.T) {
	ctx := context.Background()

	store := storemocks.NewStore(t)
	store.EXPECT().Name().Return("mock").Maybe()
	store.EXPECT().SaveGameState(mock.Anything, testKey, mock.MatchedBy(func(gameState *types.GameState) bool {
		return gameState.Quantity(5) == 3
	})).Return(nil).Once()

	q := queuemocks.NewQueue(t)
	q.EXPECT().Enqueue(mock.MatchedBy(func(event interface{}) bool {
		e, ok := event.(types.ItemReceivedEvent)
		return ok && e.Item.ID == 5 && e.Previous == 2 && e.Item.Quantity == 3
	})).Return(nil).Once()

	m := newManager(store)
	require.NoError(t, m.Mutate(ctx, func(gameState *types.GameState) error {
		gameState.ReceivedItems[5] = &types.Item{ID: 5, Name: "Potion", Quantity: 2}
		return nil
	}))

	e := NewEngine(NewEngineOptions{StateManager: m, EventQueue: q, Logger: quietLogger()})
	result, err := e.Reconcile(ctx, []session.NetworkItem{
		{ItemID: 5, ItemName: "Potion"},
		{ItemID: 5, ItemName: "Potion"},
		{ItemID: 5, ItemName: "Potion"},
	})
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "Potion", result.Changes[0].Item.Name)
}

func TestEngine_newItemFields(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	e := NewEngine(NewEngineOptions{
		StateManager: m,
		Category:     func(itemID int64) string { return "weapons" },
		Logger:       quietLogger(),
	})

	_, err := e.Reconcile(ctx, []session.NetworkItem{{ItemID: 3, ItemName: "Sword", Flags: session.ItemFlagProgression}})
	require.NoError(t, err)

	gameState, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Item{ID: 3, Name: "Sword", Quantity: 1, Category: "weapons", IsProgression: true}, *gameState.ReceivedItems[3])
}

func TestEngine_concurrentPassesSerialize(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	q := queue.NewInMemoryQueue(64)
	e := NewEngine(NewEngineOptions{StateManager: m, EventQueue: q, Logger: quietLogger()})
	view := items(1, 2, 2, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Reconcile(ctx, view)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, drain(t, q), 2)
	gameState, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, gameState.Quantity(1))
	assert.Equal(t, 5, gameState.Quantity(2))
}

func TestEngine_cancelled(t *testing.T) {
	m := newManager()
	e := NewEngine(NewEngineOptions{StateManager: m, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Reconcile(ctx, items(1, 1))
	assert.Error(t, err)
}
