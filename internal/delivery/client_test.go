package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminjonard/sagittarius/internal/spool"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

func newTestClient(t *testing.T, url string) (*Client, *stats.Aggregator, *spool.Spool) {
	t.Helper()
	agg := stats.NewAggregator()
	sp := spool.New(filepath.Join(t.TempDir(), "stats_backup.json"))
	return New(url, "test-secret", 0, agg, sp), agg, sp
}

func TestClient_FlushSuccess(t *testing.T) {
	var received stats.Snapshot
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(SecretHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client, agg, sp := newTestClient(t, srv.URL)
	agg.Record("KEY_A", 3)
	agg.Record("CLICK_LEFT", 2)

	require.NoError(t, client.Flush(context.Background()))

	assert.Equal(t, "test-secret", gotSecret)
	assert.Equal(t, uint64(3), received.TotalKeys)
	assert.Equal(t, uint64(2), received.TotalClicks)
	assert.Equal(t, uint64(3), received.Events["KEY_A"])

	// Success clears the aggregator and leaves no spool file.
	assert.True(t, agg.Snapshot().IsZero())
	loaded, err := sp.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestClient_FlushSkipsEmptySnapshot(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client, _, _ := newTestClient(t, srv.URL)
	require.NoError(t, client.Flush(context.Background()))
	assert.Zero(t, calls)
}

func TestClient_FlushServerErrorSpools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, agg, sp := newTestClient(t, srv.URL)
	agg.Record("KEY_A", 3)

	err := client.Flush(context.Background())
	require.Error(t, err)

	// Counters preserved, spool holds the unsent snapshot.
	assert.Equal(t, uint64(3), agg.Snapshot().TotalKeys)
	loaded, loadErr := sp.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(3), loaded.Events["KEY_A"])
}

func TestClient_FlushTransportErrorSpools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	client, agg, sp := newTestClient(t, srv.URL)
	agg.Record("WHEEL_VERTICAL", 4)

	err := client.Flush(context.Background())
	require.Error(t, err)

	assert.Equal(t, uint64(4), agg.Snapshot().TotalWheels)
	loaded, loadErr := sp.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(4), loaded.Events["WHEEL_VERTICAL"])

	_, statErr := os.Stat(sp.Path())
	assert.NoError(t, statErr)
}

func TestClient_FailuresComposeAdditively(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, agg, sp := newTestClient(t, srv.URL)

	agg.Record("KEY_A", 1)
	require.Error(t, client.Flush(context.Background()))

	// New events arrive before the next attempt.
	agg.Record("KEY_A", 2)
	require.Error(t, client.Flush(context.Background()))

	// The spool holds the superset, not just the first window.
	loaded, err := sp.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(3), loaded.Events["KEY_A"])
	assert.Equal(t, uint64(3), loaded.TotalKeys)
}
