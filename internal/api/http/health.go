package http

import "net/http"

// ServiceName identifies this service in the health response.
const ServiceName = "sagittarius-server"

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler serves the unauthenticated liveness check.
type HealthHandler struct{}

// ServeHTTP reports the service as up.
func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: ServiceName})
}
