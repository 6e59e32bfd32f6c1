package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cbodonnell/apclient/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and applies the schema.
// The caller is responsible for calling Close() on the store.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	schema, err := migration("sqlite.sql")
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute migration: %v", err)
	}

	return &SQLiteStore{
		db: db,
	}, nil
}

func (s *SQLiteStore) Name() string {
	return "sqlite"
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error {
	document, err := encodeDocument(gameState)
	if err != nil {
		return err
	}

	q := `
	INSERT OR REPLACE INTO game_states (session_key, document, updated_at)
	VALUES (?, ?, ?);
	`
	if _, err := s.db.ExecContext(ctx, q, key.String(), document, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save game state: %v", err)
	}
	return nil
}

func (s *SQLiteStore) LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
	q := `
	SELECT document FROM game_states WHERE session_key = ?;
	`
	var document []byte
	if err := s.db.QueryRowContext(ctx, q, key.String()).Scan(&document); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game state: %v", err)
	}
	return decodeDocument(document)
}
