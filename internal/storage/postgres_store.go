package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const snapshotRowID = 1

// PostgresStore keeps the snapshot in a single row, overwritten by an upsert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS event_snapshots (
			id       SMALLINT PRIMARY KEY CHECK (id = 1),
			state    JSONB NOT NULL,
			next_id  INTEGER NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create event_snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT state
		FROM event_snapshots
		WHERE id = $1
	`

	var state []byte
	err := s.pool.QueryRow(ctx, query, snapshotRowID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EmptySnapshot(), nil
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return decodeSnapshot(state)
}

func (s *PostgresStore) Save(ctx context.Context, snapshot *Snapshot) error {
	state, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	query := `
		INSERT INTO event_snapshots (id, state, next_id, saved_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, next_id = EXCLUDED.next_id, saved_at = EXCLUDED.saved_at
	`
	if _, err := s.pool.Exec(ctx, query, snapshotRowID, state, snapshot.NextID); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
