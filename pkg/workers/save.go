package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/apclient/pkg/log"
)

const DefaultSaveInterval = 60 * time.Second

// Refresher saves the game state and reloads it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type SaveGameStateWorker struct {
	stateManager Refresher
	interval     time.Duration
}

type NewSaveGameStateWorkerOptions struct {
	StateManager Refresher
	Interval     time.Duration
}

// NewSaveGameStateWorker creates a new SaveGameStateWorker.
// The worker periodically saves the game state to every store and reloads
// it so changes made by other clients of the same slot are picked up.
func NewSaveGameStateWorker(opts NewSaveGameStateWorkerOptions) *SaveGameStateWorker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSaveInterval
	}
	return &SaveGameStateWorker{
		stateManager: opts.StateManager,
		interval:     opts.Interval,
	}
}

func (w *SaveGameStateWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.stateManager.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("Failed to refresh game state: %v", err)
			}
		}
	}
}
