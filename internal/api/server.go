// Package api provides the HTTP service: decision endpoints backed by
// the loaded policy, session lifecycle, and scenario presets. GET
// endpoints are public; mutating scenario endpoints require a bearer
// token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/talgya/crisis-sim/internal/compare"
	"github.com/talgya/crisis-sim/internal/policy"
	"github.com/talgya/crisis-sim/internal/session"
	"github.com/talgya/crisis-sim/internal/sim"
	"github.com/talgya/crisis-sim/internal/store"
)

// Server serves decisions and sessions over HTTP. Policy and registry
// are injected at construction; there is no process-global model or
// session map.
type Server struct {
	Policy   policy.Policy
	Sessions *session.Registry
	Store    *store.Store // nil disables traces and stored scenarios
	Cfg      sim.Config   // world shape the served policy was trained for
	Port     int
	AdminKey string // Bearer token for scenario creation. Empty = disabled.
}

// Handler builds the route table. Split out from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Decision endpoints.
	mux.HandleFunc("GET /api/v1/model/status", s.handleModelStatus)
	mux.HandleFunc("POST /api/v1/predict", s.handlePredict)
	mux.HandleFunc("POST /api/v1/explain", s.handleExplain)
	mux.HandleFunc("POST /api/v1/evaluate", s.handleEvaluate)

	// Session lifecycle.
	mux.HandleFunc("POST /api/v1/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("POST /api/v1/sessions/{id}/step", s.handleSessionStep)
	mux.HandleFunc("GET /api/v1/sessions/{id}/trace", s.handleSessionTrace)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleSessionDelete)

	// Scenario presets.
	mux.HandleFunc("GET /api/v1/scenarios", s.handleScenarioList)
	mux.HandleFunc("GET /api/v1/scenarios/{id}", s.handleScenarioGet)
	mux.HandleFunc("POST /api/v1/scenarios", s.adminOnly(s.handleScenarioCreate))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "store", s.Store != nil)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"message":      "Crisis Response Decision Engine",
		"status":       "running",
		"model_loaded": s.Policy.Status().ModelLoaded,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":       "healthy",
		"model_loaded": s.Policy.Status().ModelLoaded,
		"sessions":     s.Sessions.Len(),
	})
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no CRISISD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrBadConfig),
		errors.Is(err, sim.ErrBadAction),
		errors.Is(err, sim.ErrDimension),
		errors.Is(err, compare.ErrLengthMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, compare.ErrNoModel):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
