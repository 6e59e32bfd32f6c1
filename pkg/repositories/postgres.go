package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/types"
	"github.com/jackc/pgx/v5"
)

// PostgresStore guards its connection with a mutex since a pgx.Conn is not
// safe for concurrent use.
type PostgresStore struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// NewPostgresStore connects to the database and applies the schema.
// The caller is responsible for calling Close() on the store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to query database: %v", err)
	}
	log.Debug("Connected to %s as %s", database, username)

	schema, err := migration("postgres.sql")
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	if _, err := conn.Exec(ctx, schema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to execute migration: %v", err)
	}

	return &PostgresStore{
		conn: conn,
	}, nil
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close(ctx)
}

func (s *PostgresStore) SaveGameState(ctx context.Context, key types.SessionKey, gameState *types.GameState) error {
	document, err := encodeDocument(gameState)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := `
	INSERT INTO game_states (session_key, document, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (session_key) DO UPDATE SET document = $2, updated_at = $3;
	`
	if _, err := s.conn.Exec(ctx, q, key.String(), document, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save game state: %v", err)
	}
	return nil
}

func (s *PostgresStore) LoadGameState(ctx context.Context, key types.SessionKey) (*types.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var document []byte
	err := s.conn.QueryRow(ctx, "SELECT document FROM game_states WHERE session_key = $1", key.String()).Scan(&document)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game state: %v", err)
	}
	return decodeDocument(document)
}
