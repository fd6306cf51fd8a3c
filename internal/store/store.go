// Package store persists the running per-identifier totals and the sync
// metadata. The merge transaction is the server's unit of atomicity: a
// snapshot is applied completely or not at all.
package store

import (
	"context"

	"github.com/benjaminjonard/sagittarius/internal/classify"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

// Metadata keys for the two sync timestamps.
const (
	MetaFirstSync = "first_sync"
	MetaLastSync  = "last_sync"
)

// EventRow is one persisted counter keyed by identifier. Count only grows.
type EventRow struct {
	Name  string            `json:"name"`
	Type  classify.Category `json:"type"`
	Count uint64            `json:"count"`
}

// Totals is the full aggregate returned to readers: rows sorted by count
// descending, category totals recomputed from the rows, and the two sync
// timestamps (empty string when never synced).
type Totals struct {
	TotalKeys   uint64
	TotalClicks uint64
	TotalWheels uint64
	FirstSync   string
	LastSync    string
	Events      []EventRow
}

// Store is the aggregation store. Implementations must provide atomic
// insert-or-add upserts under MergeSnapshot so concurrent merges never lose
// an increment.
type Store interface {
	// MergeSnapshot adds every identifier delta into the counter rows
	// inside one transaction, re-deriving each row's category from the
	// identifier, and updates last_sync (always) and first_sync (only if
	// absent). Returns the number of identifiers merged. On error nothing
	// is written.
	MergeSnapshot(ctx context.Context, snap stats.Snapshot) (int, error)

	// Totals reads all counter rows ordered by count descending and
	// recomputes the category totals. The read need not be transactionally
	// consistent with concurrent merges.
	Totals(ctx context.Context) (*Totals, error)

	// Close releases the underlying database resources.
	Close() error
}
