package repositories

import (
	"context"

	"github.com/cbodonnell/apclient/pkg/types"
)

// Store is one backing store for the synchronized game state.
// Implementations must be safe for concurrent use.
type Store interface {
	// Name identifies the store in logs.
	Name() string
	// LoadGameState returns ErrNotFound when nothing was saved for key.
	LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error)
	SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error
	Close(ctx context.Context) error
}
