// Package http provides the HTTP API for the Sagittarius server: the stats
// ingest/query endpoints, the health check, and the middleware chain.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// SecretHeader carries the shared secret on authenticated routes.
const SecretHeader = "X-API-Secret"

type contextKey string

const requestIDKey contextKey = "request_id"

// ErrorResponse is the JSON body for error statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequestIDMiddleware assigns each request a unique ID, echoed in the
// X-Request-ID response header and attached to the context for log lines.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware turns handler panics into 500 responses.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic in handler for %s %s (request %s): %v",
					r.Method, r.URL.Path, GetRequestID(r.Context()), err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware rejects requests whose X-API-Secret header does not exactly
// equal the configured secret. The check runs before any body parsing or
// storage access, so a rejected request mutates nothing.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(SecretHeader) != secret {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid or missing API secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ChainMiddleware composes middleware, outermost first.
func ChainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
