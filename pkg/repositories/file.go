package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cbodonnell/apclient/pkg/types"
)

// FileStore keeps one JSON document per session in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory %s: %v", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string {
	return "file"
}

// Path returns the document path for key.
func (s *FileStore) Path(key types.SessionKey) string {
	return filepath.Join(s.dir, key.String()+".json")
}

func (s *FileStore) LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to read %s: %v", s.Path(key), err)
	}
	gameState := &types.GameState{}
	if err := json.Unmarshal(b, gameState); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %v", s.Path(key), err)
	}
	return gameState, nil
}

// SaveGameState writes to a temporary file and renames it over the document,
// so readers never observe a partial write.
func (s *FileStore) SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error {
	b, err := json.Marshal(gameState)
	if err != nil {
		return fmt.Errorf("failed to serialize game state: %v", err)
	}

	tmp, err := os.CreateTemp(s.dir, key.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write game state: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync game state: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %v", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %v", s.Path(key), err)
	}
	return nil
}

func (s *FileStore) Close(ctx context.Context) error {
	return nil
}
