// Package delivery pushes batched snapshots to the API on a fixed interval.
// Delivery is at-least-once: a failed attempt spools the snapshot locally
// and the counters keep accumulating, so the next attempt carries the unsent
// deltas plus whatever arrived meanwhile.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/benjaminjonard/sagittarius/internal/spool"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

// SecretHeader carries the shared secret on every delivery.
const SecretHeader = "X-API-Secret"

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Client delivers aggregator snapshots to the configured endpoint.
type Client struct {
	url    string
	secret string
	http   *http.Client
	agg    *stats.Aggregator
	spool  *spool.Spool
}

// New creates a delivery client. A zero timeout uses DefaultTimeout.
func New(url, secret string, timeout time.Duration, agg *stats.Aggregator, sp *spool.Spool) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: timeout},
		agg:    agg,
		spool:  sp,
	}
}

// Flush takes a snapshot of the aggregator and attempts one delivery.
// On success the aggregator is reset and the spool cleared. On any failure
// the snapshot is spooled and the aggregator left intact; the error is
// returned for logging only and the next attempt happens on the next tick.
// An all-zero snapshot skips the network round trip entirely.
func (c *Client) Flush(ctx context.Context) error {
	snap := c.agg.Snapshot()
	if snap.IsZero() {
		return nil
	}

	if err := c.post(ctx, snap); err != nil {
		if saveErr := c.spool.Save(snap); saveErr != nil {
			log.Printf("Failed to spool undelivered snapshot: %v", saveErr)
		}
		return err
	}

	c.agg.Reset()
	if err := c.spool.Clear(); err != nil {
		log.Printf("Failed to clear spool after delivery: %v", err)
	}

	log.Printf("Stats delivered: %d keys, %d clicks, %d wheels (%d identifiers)",
		snap.TotalKeys, snap.TotalClicks, snap.TotalWheels, len(snap.Events))
	return nil
}

// post sends one snapshot. Any non-2xx status counts as failure.
func (c *Client) post(ctx context.Context, snap stats.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("delivery: failed to encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delivery: server returned status %d", resp.StatusCode)
	}

	return nil
}
