package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/benjaminjonard/sagittarius/internal/classify"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_name TEXT PRIMARY KEY,
		event_type TEXT NOT NULL CHECK (event_type IN ('KEY', 'CLICK', 'WHEEL', 'OTHER')),
		count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_count ON events(count DESC)`,
}

// PostgresStore implements Store on PostgreSQL, for deployments where the
// API shares a database server with other services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects using the given DSN and verifies the connection
// before returning.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to reach database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
		}
	}

	return &PostgresStore{db: db}, nil
}

// MergeSnapshot applies the snapshot's deltas in one transaction.
func (s *PostgresStore) MergeSnapshot(ctx context.Context, snap stats.Snapshot) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for name, count := range snap.Events {
		eventType := string(classify.Classify(name))
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (event_name, event_type, count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (event_name) DO UPDATE SET
				count = events.count + EXCLUDED.count,
				updated_at = EXCLUDED.updated_at`,
			name, eventType, int64(count), now,
		)
		if err != nil {
			return 0, fmt.Errorf("store: failed to upsert event %s: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		MetaLastSync, now,
	); err != nil {
		return 0, fmt.Errorf("store: failed to update last_sync: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (key) DO NOTHING`,
		MetaFirstSync, now,
	); err != nil {
		return 0, fmt.Errorf("store: failed to initialize first_sync: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: failed to commit merge: %w", err)
	}

	return len(snap.Events), nil
}

// Totals reads all rows ordered by count descending and recomputes the
// category totals.
func (s *PostgresStore) Totals(ctx context.Context) (*Totals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_name, event_type, count
		FROM events
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to read events: %w", err)
	}
	defer rows.Close()

	totals := &Totals{Events: []EventRow{}}
	for rows.Next() {
		var name, eventType string
		var count int64
		if err := rows.Scan(&name, &eventType, &count); err != nil {
			return nil, fmt.Errorf("store: failed to scan event row: %w", err)
		}

		row := EventRow{Name: name, Type: classify.Category(eventType), Count: uint64(count)}
		switch row.Type {
		case classify.CategoryKey:
			totals.TotalKeys += row.Count
		case classify.CategoryClick:
			totals.TotalClicks += row.Count
		case classify.CategoryWheel:
			totals.TotalWheels += row.Count
		}
		totals.Events = append(totals.Events, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to iterate event rows: %w", err)
	}

	totals.FirstSync, err = s.metadataValue(ctx, MetaFirstSync)
	if err != nil {
		return nil, err
	}
	totals.LastSync, err = s.metadataValue(ctx, MetaLastSync)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

func (s *PostgresStore) metadataValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// Close closes the database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
