package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/benjaminjonard/sagittarius/internal/classify"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

// sqliteSchema creates the counter and metadata tables.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_name TEXT PRIMARY KEY,
		event_type TEXT NOT NULL CHECK (event_type IN ('KEY', 'CLICK', 'WHEEL', 'OTHER')),
		count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_count ON events(count DESC)`,
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. The
// connection is verified before returning so an unreachable store fails at
// startup rather than on the first request.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// Single writer: SQLite serializes writes anyway, and one connection
	// avoids SQLITE_BUSY churn between concurrent merge transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to reach database: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// MergeSnapshot applies the snapshot's deltas in one transaction.
func (s *SQLiteStore) MergeSnapshot(ctx context.Context, snap stats.Snapshot) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for name, count := range snap.Events {
		// The category always comes from the identifier, never the wire.
		eventType := string(classify.Classify(name))
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (event_name, event_type, count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(event_name) DO UPDATE SET
				count = count + excluded.count,
				updated_at = excluded.updated_at`,
			name, eventType, int64(count), now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("store: failed to upsert event %s: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		MetaLastSync, now, now,
	); err != nil {
		return 0, fmt.Errorf("store: failed to update last_sync: %w", err)
	}

	// first_sync is set once and never overwritten.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		MetaFirstSync, now, now,
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
func (s *SQLiteStore) Totals(ctx context.Context) (*Totals, error) {
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

// metadataValue returns the value for key, or "" when the key is absent.
func (s *SQLiteStore) metadataValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
