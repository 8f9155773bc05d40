package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chat-games-bot/internal/pkg/db"
)

// PostgresStore keeps the snapshot as a single JSON document row.
// The whole ledger is small, so a document beats a relational schema:
// the snapshot format stays the file backend's format and upgrades
// never need a migration beyond this one table.
type PostgresStore struct {
	pool *db.Pool
}

const snapshotKey = "ledger"

// NewPostgresStore creates the snapshot table if it does not exist.
func NewPostgresStore(ctx context.Context, pool *db.Pool) (*PostgresStore, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS game_snapshots (
			key        TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	const query = `SELECT document FROM game_snapshots WHERE key = $1`

	var data []byte
	err := s.pool.QueryRow(ctx, query, snapshotKey).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO game_snapshots (key, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET document = $2, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, snapshotKey, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
