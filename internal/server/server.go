// Package server exposes the live measurement feed and the recorded
// sessions over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/drishti/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store *store.Store
	Feed  *Feed
}

// Server represents the HTTP side of the measurement pipeline: a health
// endpoint, the session log, and the WebSocket distance feed.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/sessions", s.handleSessions)
		s.mux.HandleFunc("/api/sessions/", s.handleSessionReadings)
	}

	if s.config.Feed != nil {
		s.mux.Handle("/api/feed", s.config.Feed)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleSessions handles GET requests to /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.config.Store.Sessions().List()
	if err != nil {
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, map[string]interface{}{
			"id":          sess.ID,
			"source":      sess.Source,
			"marker_size": sess.MarkerSize,
			"started_at":  sess.StartedAt,
		})
	}
	writeJSON(w, out)
}

// handleSessionReadings handles GET /api/sessions/{id}/readings.
func (s *Server) handleSessionReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, rest, found := strings.Cut(path, "/")
	if !found || rest != "readings" || id == "" {
		http.NotFound(w, r)
		return
	}

	if _, err := s.config.Store.Sessions().GetByID(id); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	readings, err := s.config.Store.Readings().ListBySession(id)
	if err != nil {
		http.Error(w, "Failed to list readings", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(readings))
	for _, reading := range readings {
		out = append(out, map[string]interface{}{
			"frame":       reading.Frame,
			"marker_id":   reading.MarkerID,
			"distance":    reading.Distance,
			"confidence":  reading.Confidence,
			"recorded_at": reading.RecordedAt,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
