// Package api provides the HTTP server for the cognitive scheduler.
// It exposes the scheduling engine, TLX feedback, config, profile, and
// calendar export over JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appengine "github.com/cogsched/cogsched/internal/app/engine"
	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
)

// defaultUserID identifies requests that carry no X-User-ID header. OAuth
// lives in an external collaborator; the engine only needs a stable key.
const defaultUserID = "default"

// Server is the cognitive scheduler HTTP API server.
type Server struct {
	engine         *appengine.Engine
	cfg            *config.Manager
	store          domain.Store
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(engine *appengine.Engine, cfg *config.Manager, store domain.Store) *Server {
	return &Server{engine: engine, cfg: cfg, store: store}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "cognitive-scheduler",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/schedule", s.handleSchedule)
		r.Post("/chat", s.handleChat)
		r.Post("/converse", s.handleChat)
		r.Post("/tlx-feedback", s.handleTLXFeedback)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)
		r.Get("/calendar/export", s.handleCalendarExport)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// userID resolves the requesting user.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return defaultUserID
}

// ensureUser guarantees the user row exists before dependent writes.
func (s *Server) ensureUser(id string) error {
	if _, err := s.store.GetUser(id); err == nil {
		return nil
	}
	return s.store.UpsertUser(domain.User{ID: id, Name: id})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrMalformedTask),
		errors.Is(err, domain.ErrUnknownConfigKey),
		errors.Is(err, domain.ErrParseFailed),
		errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoFreeTime):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
