package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminjonard/sagittarius/internal/stats"
	"github.com/benjaminjonard/sagittarius/internal/store"
)

const testSecret = "test-secret"

// newTestAPI builds the real handler stack over a temp SQLite store.
func newTestAPI(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sagittarius.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mux := http.NewServeMux()
	authed := ChainMiddleware(RecoveryMiddleware, RequestIDMiddleware, AuthMiddleware(testSecret))
	mux.Handle("/api/stats", authed(NewStatsHandler(s)))
	mux.Handle("/health", ChainMiddleware(RecoveryMiddleware, RequestIDMiddleware)(HealthHandler{}))
	return mux, s
}

func postStats(t *testing.T, h http.Handler, secret string, snap stats.Snapshot) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(snap)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/stats", bytes.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getStats(t *testing.T, h http.Handler, secret string) (*httptest.ResponseRecorder, TotalsResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp TotalsResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestStats_IngestThenQuery(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := postStats(t, h, testSecret, stats.Snapshot{
		TotalKeys:   3,
		TotalClicks: 2,
		Events:      map[string]uint64{"KEY_A": 3, "CLICK_LEFT": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var ingest IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingest))
	assert.True(t, ingest.Success)
	assert.Equal(t, "Stats updated successfully", ingest.Message)
	assert.Equal(t, 2, ingest.EventsProcessed)

	getRec, resp := getStats(t, h, testSecret)
	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, uint64(3), resp.TotalKeys)
	assert.Equal(t, uint64(2), resp.TotalClicks)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "KEY_A", resp.Events[0].Name)
	assert.Equal(t, "KEY", string(resp.Events[0].Type))
	assert.Equal(t, uint64(3), resp.Events[0].Count)
	assert.Equal(t, "CLICK_LEFT", resp.Events[1].Name)
	assert.Equal(t, "CLICK", string(resp.Events[1].Type))
	assert.Equal(t, uint64(2), resp.Events[1].Count)
	require.NotNil(t, resp.FirstSync)
	require.NotNil(t, resp.LastSync)
}

func TestStats_BadSecretMutatesNothing(t *testing.T) {
	h, s := newTestAPI(t)

	for _, secret := range []string{"", "wrong-secret"} {
		rec := postStats(t, h, secret, stats.Snapshot{
			TotalKeys: 5,
			Events:    map[string]uint64{"KEY_A": 5},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "Unauthorized - Invalid or missing API secret", errResp.Error)
	}

	// Rows and metadata are untouched.
	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, totals.Events)
	assert.Empty(t, totals.FirstSync)
	assert.Empty(t, totals.LastSync)

	rec, _ := getStats(t, h, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStats_MalformedBodyRejectedBeforeMutation(t *testing.T) {
	h, s := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stats", bytes.NewReader([]byte(`{"events": "nope"`)))
	req.Header.Set(SecretHeader, testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, totals.Events)
	assert.Empty(t, totals.LastSync)
}

func TestStats_NullSyncTimestampsBeforeFirstIngest(t *testing.T) {
	h, _ := newTestAPI(t)

	rec, _ := getStats(t, h, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "null", string(raw["first_sync"]))
	assert.Equal(t, "null", string(raw["last_sync"]))
}

func TestStats_RepeatedDeliveriesSum(t *testing.T) {
	h, _ := newTestAPI(t)

	for i := 0; i < 2; i++ {
		rec := postStats(t, h, testSecret, stats.Snapshot{
			Events: map[string]uint64{"KEY_A": 1},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	_, resp := getStats(t, h, testSecret)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, uint64(2), resp.Events[0].Count)
}

func TestStats_MethodNotAllowed(t *testing.T) {
	h, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/stats", nil)
	req.Header.Set(SecretHeader, testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStats_StorageFailureReturns500(t *testing.T) {
	mux := http.NewServeMux()
	authed := ChainMiddleware(RecoveryMiddleware, RequestIDMiddleware, AuthMiddleware(testSecret))
	mux.Handle("/api/stats", authed(NewStatsHandler(failingStore{})))

	rec := postStats(t, mux, testSecret, stats.Snapshot{
		Events: map[string]uint64{"KEY_A": 1},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sagittarius-server", resp.Service)
}

// failingStore simulates a storage outage.
type failingStore struct{}

func (failingStore) MergeSnapshot(context.Context, stats.Snapshot) (int, error) {
	return 0, errors.New("store: database is gone")
}

func (failingStore) Totals(context.Context) (*store.Totals, error) {
	return nil, errors.New("store: database is gone")
}

func (failingStore) Close() error { return nil }
