// Package stats holds the agent's accumulated counters: the snapshot model
// shared with the wire format and the mutex-guarded aggregator that the
// capture and flush paths mutate.
package stats

import (
	"sync"

	"github.com/benjaminjonard/sagittarius/internal/classify"
)

// Snapshot is the accumulated-but-unsent counter state for one delivery
// window. Its JSON encoding is both the wire body and the spool file format.
type Snapshot struct {
	TotalKeys   uint64            `json:"total_keys"`
	TotalClicks uint64            `json:"total_clicks"`
	TotalWheels uint64            `json:"total_wheels"`
	Events      map[string]uint64 `json:"events"`
}

// IsZero reports whether the snapshot carries no counts at all.
func (s Snapshot) IsZero() bool {
	return s.TotalKeys == 0 && s.TotalClicks == 0 && s.TotalWheels == 0 && len(s.Events) == 0
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	events := make(map[string]uint64, len(s.Events))
	for name, count := range s.Events {
		events[name] = count
	}
	return Snapshot{
		TotalKeys:   s.TotalKeys,
		TotalClicks: s.TotalClicks,
		TotalWheels: s.TotalWheels,
		Events:      events,
	}
}

// Aggregator accumulates event counts between deliveries. All access goes
// through one mutex so capture and flush may run from separate goroutines.
type Aggregator struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		snap: Snapshot{Events: make(map[string]uint64)},
	}
}

// Record adds delta to the identifier's count and to the category total
// derived from the identifier. Delta is 1 for discrete events and the notch
// count for scroll events; a zero delta is a no-op.
func (a *Aggregator) Record(name string, delta uint64) {
	if delta == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap.Events[name] += delta
	switch classify.Classify(name) {
	case classify.CategoryKey:
		a.snap.TotalKeys += delta
	case classify.CategoryClick:
		a.snap.TotalClicks += delta
	case classify.CategoryWheel:
		a.snap.TotalWheels += delta
	}
}

// Snapshot returns an immutable copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Clone()
}

// Reset zeroes all state. Called only after a confirmed successful delivery.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap = Snapshot{Events: make(map[string]uint64)}
}

// Restore adds a previously spooled snapshot into the current state. Used
// once at startup so a crash mid-window does not lose counts.
func (a *Aggregator) Restore(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap.TotalKeys += s.TotalKeys
	a.snap.TotalClicks += s.TotalClicks
	a.snap.TotalWheels += s.TotalWheels
	for name, count := range s.Events {
		a.snap.Events[name] += count
	}
}
