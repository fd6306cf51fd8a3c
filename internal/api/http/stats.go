package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/benjaminjonard/sagittarius/internal/stats"
	"github.com/benjaminjonard/sagittarius/internal/store"
)

// IngestResponse is the success body for POST /api/stats.
type IngestResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	EventsProcessed int    `json:"events_processed"`
}

// TotalsResponse is the body for GET /api/stats. Sync timestamps are null
// until the first successful ingest.
type TotalsResponse struct {
	TotalKeys   uint64           `json:"total_keys"`
	TotalClicks uint64           `json:"total_clicks"`
	TotalWheels uint64           `json:"total_wheels"`
	LastSync    *string          `json:"last_sync"`
	FirstSync   *string          `json:"first_sync"`
	Events      []store.EventRow `json:"events"`
}

// StatsHandler serves the /api/stats route pair: POST merges a snapshot,
// GET returns the running aggregate.
type StatsHandler struct {
	store store.Store
}

// NewStatsHandler creates a stats handler backed by the given store.
func NewStatsHandler(s store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

// ServeHTTP dispatches on method.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.receive(w, r)
	case http.MethodGet:
		h.totals(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// receive merges one delivered snapshot into the store.
func (h *StatsHandler) receive(w http.ResponseWriter, r *http.Request) {
	var snap stats.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	processed, err := h.store.MergeSnapshot(r.Context(), snap)
	if err != nil {
		log.Printf("Merge failed (request %s): %v", GetRequestID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "failed to store stats")
		return
	}

	// The client totals are informational only; they are logged here and
	// never written to storage.
	log.Printf("Stats updated: %d keys, %d clicks, %d wheels (%d events)",
		snap.TotalKeys, snap.TotalClicks, snap.TotalWheels, processed)

	writeJSON(w, http.StatusOK, IngestResponse{
		Success:         true,
		Message:         "Stats updated successfully",
		EventsProcessed: processed,
	})
}

// totals returns the full aggregate with recomputed category totals.
func (h *StatsHandler) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.store.Totals(r.Context())
	if err != nil {
		log.Printf("Totals read failed (request %s): %v", GetRequestID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	writeJSON(w, http.StatusOK, TotalsResponse{
		TotalKeys:   totals.TotalKeys,
		TotalClicks: totals.TotalClicks,
		TotalWheels: totals.TotalWheels,
		LastSync:    nullable(totals.LastSync),
		FirstSync:   nullable(totals.FirstSync),
		Events:      totals.Events,
	})
}

// nullable maps an absent metadata value to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
