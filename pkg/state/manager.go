package state

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/metrics"
	"github.com/cbodonnell/apclient/pkg/repositories"
	"github.com/cbodonnell/apclient/pkg/types"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultStoreTimeout    = 5 * time.Second
	DefaultMinSaveInterval = 10 * time.Second
)

// Manager owns the game state of one session and coordinates its persistence.
// Every operation, including reads, holds the same lock, so at most one load
// or save is in flight at a time and no reader observes a half-applied
// mutation.
type Manager struct {
	lock            *semaphore.Weighted
	key             types.SessionKey
	stores          []repositories.Store
	timeout         time.Duration
	minSaveInterval time.Duration
	now             func() time.Time
	logger          *log.Logger
	metrics         *metrics.Metrics

	gameState *types.GameState
	lastSave  time.Time
}

type NewManagerOptions struct {
	Key types.SessionKey
	// Stores are tried in order on load and all written on save.
	Stores []repositories.Store
	// StoreTimeout bounds every single store operation.
	StoreTimeout time.Duration
	// MinSaveInterval is the debounce window of SaveIfDue.
	MinSaveInterval time.Duration
	Logger          *log.Logger
	// Now is used for debouncing; defaults to time.Now.
	Now func() time.Time
	// Metrics is optional.
	Metrics *metrics.Metrics
}

func NewManager(opts NewManagerOptions) *Manager {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.MinSaveInterval <= 0 {
		opts.MinSaveInterval = DefaultMinSaveInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		lock:            semaphore.NewWeighted(1),
		key:             opts.Key,
		stores:          opts.Stores,
		timeout:         opts.StoreTimeout,
		minSaveInterval: opts.MinSaveInterval,
		now:             opts.Now,
		logger:          opts.Logger.Named("state"),
		metrics:         opts.Metrics,
		gameState:       types.NewGameState(),
	}
}

func (m *Manager) Key() types.SessionKey {
	return m.key
}

func (m *Manager) acquire(ctx context.Context) error {
	if err := m.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire game state lock: %v", err)
	}
	return nil
}

func (m *Manager) Get(ctx context.Context) (*types.GameState, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.lock.Release(1)
	return m.gameState.Copy(), nil
}

func (m *Manager) Set(ctx context.Context, gameState *types.GameState) error {
	if gameState == nil {
		return fmt.Errorf("game state is nil")
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)
	m.gameState = gameState.Copy()
	return nil
}

func (m *Manager) Mutate(ctx context.Context, fn func(gameState *types.GameState) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)
	return fn(m.gameState)
}

func (m *Manager) Commit(ctx context.Context, fn func(gameState *types.GameState) (bool, error)) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)

	changed, err := fn(m.gameState)
	if err != nil {
		return err
	}
	if changed {
		m.saveLocked(ctx)
	}
	return nil
}

// Load reads the game state from the first store that has one. When no store
// can produce it, the manager starts from a fresh game state and writes it to
// the stores that reported nothing saved. Load only fails when ctx ends before
// the lock is acquired.
func (m *Manager) Load(ctx context.Context) (*types.GameState, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.lock.Release(1)

	gameState, source, missing := m.loadLocked(ctx)
	if gameState == nil {
		m.logger.Info("No saved game state for %s, starting fresh", m.key)
		m.gameState = types.NewGameState()
	} else {
		m.logger.Info("Loaded game state for %s from %s", m.key, source)
		m.gameState = gameState
	}
	for _, store := range missing {
		m.saveStore(ctx, store)
	}
	return m.gameState.Copy(), nil
}

// Save writes the game state to every store. Store failures are logged and
// do not fail the call.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)
	m.saveLocked(ctx)
	return nil
}

// SaveIfDue saves unless the previous save happened less than the minimum
// save interval ago. It reports whether a save was performed.
func (m *Manager) SaveIfDue(ctx context.Context) (bool, error) {
	if err := m.acquire(ctx); err != nil {
		return false, err
	}
	defer m.lock.Release(1)

	if !m.lastSave.IsZero() && m.now().Sub(m.lastSave) < m.minSaveInterval {
		return false, nil
	}
	m.saveLocked(ctx)
	return true, nil
}

// Refresh saves the game state and reloads it, picking up changes written by
// other clients of the same slot. The reload is skipped unless every store
// accepted the save, and it never drops local progress: completed locations
// and item quantities are merged into the reloaded state.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)

	if !m.saveLocked(ctx) {
		m.logger.Warn("Skipping reload of game state for %s until a save succeeds", m.key)
		return nil
	}
	gameState, source, _ := m.loadLocked(ctx)
	if gameState == nil {
		m.logger.Warn("Failed to reload game state for %s, keeping current state", m.key)
		return nil
	}
	m.logger.Debug("Reloaded game state for %s from %s", m.key, source)
	gameState.MergeProgress(m.gameState)
	m.gameState = gameState
	return nil
}

func (m *Manager) loadLocked(ctx context.Context) (*types.GameState, string, []repositories.Store) {
	var missing []repositories.Store
	for _, store := range m.stores {
		gameState, err := m.loadStore(ctx, store)
		if err == nil {
			return gameState, store.Name(), missing
		}
		if repositories.IsNotFound(err) {
			missing = append(missing, store)
			continue
		}
		m.logger.Error("Failed to load game state from %s: %v", store.Name(), err)
	}
	return nil, "", missing
}

func (m *Manager) loadStore(ctx context.Context, store repositories.Store) (*types.GameState, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		gameState *types.GameState
		err       error
	}
	start := time.Now()
	done := make(chan result, 1)
	go func() {
		gameState, err := store.LoadGameState(ctx, m.key)
		done <- result{gameState, err}
	}()

	select {
	case <-ctx.Done():
		m.metrics.ObserveStoreOperation(store.Name(), "load", time.Since(start), ctx.Err())
		return nil, fmt.Errorf("failed to load game state: %v", ctx.Err())
	case r := <-done:
		if r.err == nil && r.gameState == nil {
			r.err = &repositories.ErrNotFound{}
		}
		failed := r.err
		if repositories.IsNotFound(failed) {
			failed = nil
		}
		m.metrics.ObserveStoreOperation(store.Name(), "load", time.Since(start), failed)
		return r.gameState, r.err
	}
}

// saveLocked writes to every store and reports whether all of them succeeded.
func (m *Manager) saveLocked(ctx context.Context) bool {
	ok := true
	for _, store := range m.stores {
		if !m.saveStore(ctx, store) {
			ok = false
		}
	}
	m.lastSave = m.now()
	return ok
}

func (m *Manager) saveStore(ctx context.Context, store repositories.Store) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snapshot := m.gameState.Copy()
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- store.SaveGameState(ctx, m.key, snapshot)
	}()

	select {
	case <-ctx.Done():
		m.metrics.ObserveStoreOperation(store.Name(), "save", time.Since(start), ctx.Err())
		m.logger.Error("Failed to save game state to %s: %v", store.Name(), ctx.Err())
		return false
	case err := <-done:
		m.metrics.ObserveStoreOperation(store.Name(), "save", time.Since(start), err)
		if err != nil {
			m.logger.Error("Failed to save game state to %s: %v", store.Name(), err)
			return false
		}
		return true
	}
}
