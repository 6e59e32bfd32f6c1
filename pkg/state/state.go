package state

import (
	"context"

	"github.com/cbodonnell/apclient/pkg/types"
)

// StateManager provides shared access to the game state.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns a copy of the current game state.
	Get(ctx context.Context) (*types.GameState, error)
	// Set replaces the current game state.
	Set(ctx context.Context, gameState *types.GameState) error
	// Mutate runs fn against the live game state inside the critical section.
	Mutate(ctx context.Context, fn func(gameState *types.GameState) error) error
	// Commit is Mutate followed by a save when fn reports a change.
	Commit(ctx context.Context, fn func(gameState *types.GameState) (bool, error)) error
}
