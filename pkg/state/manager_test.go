package state

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mocks "github.com/cbodonnell/apclient/mocks/github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testKey = types.SessionKey{Game: "Test Game", Slot: 1, Seed: "777"}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0, log.LogLevelError)
}

// countingStore records the highest number of concurrent operations.
type countingStore struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	saves    atomic.Int32
	delay    time.Duration
}

func (s *countingStore) Name() string { return "counting" }

func (s *countingStore) enter() func() {
	n := s.inFlight.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { s.inFlight.Add(-1) }
}

func (s *countingStore) LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
	defer s.enter()()
	time.Sleep(s.delay)
	return nil, &repositories.ErrNotFound{}
}

func (s *countingStore) SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error {
	defer s.enter()()
	s.saves.Add(1)
	time.Sleep(s.delay)
	return nil
}

func (s *countingStore) Close(ctx context.Context) error { return nil }

func TestManager_roundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := repositories.NewFileStore(t.TempDir())
	require.NoError(t, err)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	gameState, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, gameState.ReceivedItems)

	err = m.Mutate(ctx, func(gameState *types.GameState) error {
		gameState.ReceivedItems[5] = &types.Item{ID: 5, Name: "Key", Quantity: 2}
		gameState.CompleteLocation(9)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx))

	reloaded := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	gameState, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, gameState.Quantity(5))
	assert.True(t, gameState.IsLocationCompleted(9))
}

func TestManager_saveMutualExclusion(t *testing.T) {
	store := &countingStore{delay: 5 * time.Millisecond}
	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Save(context.Background()))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.peak.Load())
	assert.Equal(t, int32(20), store.saves.Load())
}

func TestManager_loadFallsBackOnTimeout(t *testing.T) {
	slow := mocks.NewStore(t)
	slow.EXPECT().Name().Return("slow").Maybe()
	slow.EXPECT().LoadGameState(mock.Anything, testKey).RunAndReturn(func(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	m := NewManager(NewManagerOptions{
		Key:          testKey,
		Stores:       []repositories.Store{slow},
		StoreTimeout: 20 * time.Millisecond,
		Logger:       quietLogger(),
	})

	start := time.Now()
	gameState, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, types.NewGameState().Equal(gameState))
}

func TestManager_loadOrder(t *testing.T) {
	saved := types.NewGameState()
	saved.ReceivedItems[1] = &types.Item{ID: 1, Name: "Bomb", Quantity: 4}

	first := mocks.NewStore(t)
	first.EXPECT().Name().Return("first").Maybe()
	first.EXPECT().LoadGameState(mock.Anything, testKey).Return(nil, &repositories.ErrNotFound{})
	first.EXPECT().SaveGameState(mock.Anything, testKey, mock.MatchedBy(func(gameState *types.GameState) bool {
		return gameState.Quantity(1) == 4
	})).Return(nil).Once()

	second := mocks.NewStore(t)
	second.EXPECT().Name().Return("second").Maybe()
	second.EXPECT().LoadGameState(mock.Anything, testKey).Return(saved, nil)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{first, second}, Logger: quietLogger()})
	gameState, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, gameState.Quantity(1))
}

func TestManager_saveFailureIsSwallowed(t *testing.T) {
	broken := mocks.NewStore(t)
	broken.EXPECT().Name().Return("broken").Maybe()
	broken.EXPECT().SaveGameState(mock.Anything, testKey, mock.Anything).Return(assert.AnError)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{broken}, Logger: quietLogger()})
	assert.NoError(t, m.Save(context.Background()))
}

func TestManager_refreshKeepsStateWhenReloadFails(t *testing.T) {
	store := mocks.NewStore(t)
	store.EXPECT().Name().Return("flaky").Maybe()
	store.EXPECT().SaveGameState(mock.Anything, testKey, mock.Anything).Return(nil)
	store.EXPECT().LoadGameState(mock.Anything, testKey).Return(nil, assert.AnError)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	require.NoError(t, m.Mutate(context.Background(), func(gameState *types.GameState) error {
		gameState.CompleteLocation(3)
		return nil
	}))

	require.NoError(t, m.Refresh(context.Background()))
	gameState, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, gameState.IsLocationCompleted(3))
}

func staleState() *types.GameState {
	stale := types.NewGameState()
	stale.ReceivedItems[5] = &types.Item{ID: 5, Name: "Potion", Quantity: 2}
	return stale
}

func advance(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.Mutate(context.Background(), func(gameState *types.GameState) error {
		gameState.ReceivedItems[5].Quantity = 3
		gameState.CompleteLocation(9)
		return nil
	}))
}

func TestManager_refreshSkipsReloadWhenSaveFails(t *testing.T) {
	store := mocks.NewStore(t)
	store.EXPECT().Name().Return("remote").Maybe()
	store.EXPECT().LoadGameState(mock.Anything, testKey).RunAndReturn(func(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
		return staleState(), nil
	}).Once()
	store.EXPECT().SaveGameState(mock.Anything, testKey, mock.Anything).Return(context.DeadlineExceeded)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	_, err := m.Load(context.Background())
	require.NoError(t, err)
	advance(t, m)

	require.NoError(t, m.Refresh(context.Background()))
	gameState, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, gameState.Quantity(5))
	assert.True(t, gameState.IsLocationCompleted(9))
}

func TestManager_refreshMergesStaleReload(t *testing.T) {
	fromOtherClient := staleState()
	fromOtherClient.CompleteLocation(11)

	store := mocks.NewStore(t)
	store.EXPECT().Name().Return("remote").Maybe()
	store.EXPECT().LoadGameState(mock.Anything, testKey).RunAndReturn(func(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
		return staleState(), nil
	}).Once()
	store.EXPECT().LoadGameState(mock.Anything, testKey).RunAndReturn(func(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
		return fromOtherClient.Copy(), nil
	}).Once()
	store.EXPECT().SaveGameState(mock.Anything, testKey, mock.Anything).Return(nil)

	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	_, err := m.Load(context.Background())
	require.NoError(t, err)
	advance(t, m)

	require.NoError(t, m.Refresh(context.Background()))
	gameState, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, gameState.Quantity(5))
	assert.True(t, gameState.IsLocationCompleted(9))
	assert.True(t, gameState.IsLocationCompleted(11))
}

func TestManager_SaveIfDue(t *testing.T) {
	now := time.Unix(1000, 0)
	store := &countingStore{}
	m := NewManager(NewManagerOptions{
		Key:             testKey,
		Stores:          []repositories.Store{store},
		MinSaveInterval: 10 * time.Second,
		Logger:          quietLogger(),
		Now:             func() time.Time { return now },
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		advance time.Duration
		want    bool
	}{
		{name: "first save", advance: 0, want: true},
		{name: "within window", advance: 3 * time.Second, want: false},
		{name: "still within window", advance: 6 * time.Second, want: false},
		{name: "window elapsed", advance: 2 * time.Second, want: true},
		{name: "right after", advance: time.Second, want: false},
	}
	for _, tt := range tests {
		now = now.Add(tt.advance)
		saved, err := m.SaveIfDue(ctx)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, saved, tt.name)
	}
	assert.Equal(t, int32(2), store.saves.Load())
}

func TestManager_Commit(t *testing.T) {
	store := &countingStore{}
	m := NewManager(NewManagerOptions{Key: testKey, Stores: []repositories.Store{store}, Logger: quietLogger()})
	ctx := context.Background()

	require.NoError(t, m.Commit(ctx, func(gameState *types.GameState) (bool, error) {
		return false, nil
	}))
	assert.Equal(t, int32(0), store.saves.Load())

	require.NoError(t, m.Commit(ctx, func(gameState *types.GameState) (bool, error) {
		gameState.CompleteLocation(1)
		return true, nil
	}))
	assert.Equal(t, int32(1), store.saves.Load())

	err := m.Commit(ctx, func(gameState *types.GameState) (bool, error) {
		return true, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int32(1), store.saves.Load())
}

func TestManager_cancelledWhileWaitingForLock(t *testing.T) {
	m := NewManager(NewManagerOptions{Key: testKey, Logger: quietLogger()})
	release := make(chan struct{})
	held := make(chan struct{})
	go m.Mutate(context.Background(), func(gameState *types.GameState) error {
		close(held)
		<-release
		return nil
	})
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Get(ctx)
	assert.Error(t, err)
}
