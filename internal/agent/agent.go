// Package agent wires capture, aggregation, spooling and delivery into the
// agent process lifecycle.
package agent

import (
	"context"
	"log"
	"time"

	"github.com/benjaminjonard/sagittarius/internal/capture"
	"github.com/benjaminjonard/sagittarius/internal/delivery"
	"github.com/benjaminjonard/sagittarius/internal/spool"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

// Agent runs the capture loop and the periodic flush as one cooperative
// loop: events and flush ticks are handled strictly in turn, so a snapshot
// and the reset that follows a successful delivery can never interleave
// with a capture write. A blocking delivery briefly stalls capture; the
// source channel buffers events meanwhile.
type Agent struct {
	source   capture.Source
	agg      *stats.Aggregator
	spool    *spool.Spool
	client   *delivery.Client
	interval time.Duration
}

// New assembles an agent from its parts.
func New(source capture.Source, agg *stats.Aggregator, sp *spool.Spool, client *delivery.Client, interval time.Duration) *Agent {
	return &Agent{
		source:   source,
		agg:      agg,
		spool:    sp,
		client:   client,
		interval: interval,
	}
}

// Run restores any spooled snapshot, then captures and flushes until ctx is
// done or the event source ends. Spool restore happens before the first
// captured event so a crash mid-window loses at most the events that never
// reached the spool's last write.
func (a *Agent) Run(ctx context.Context) error {
	if restored, err := a.spool.Load(); err == nil && restored != nil {
		a.agg.Restore(*restored)
		log.Printf("Spool restored: %d keys, %d clicks, %d wheels",
			restored.TotalKeys, restored.TotalClicks, restored.TotalWheels)
	}

	events := a.source.Events()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				// Source ended (only finite sources do). Attempt a final
				// flush so nothing sits unspooled in memory.
				if err := a.client.Flush(ctx); err != nil {
					log.Printf("Final delivery failed, snapshot spooled: %v", err)
				}
				return nil
			}
			a.agg.Record(ev.Name, ev.Count)

		case <-ticker.C:
			if err := a.client.Flush(ctx); err != nil {
				log.Printf("Delivery failed, snapshot spooled for retry: %v", err)
			}
		}
	}
}
