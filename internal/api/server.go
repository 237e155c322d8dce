// Package api exposes the HTTP interface for the ingestion service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/metrics"
	"github.com/statstream/papercrawler/internal/runner"
)

// RunTrigger starts one ingestion run over the given sources.
type RunTrigger interface {
	Run(ctx context.Context, sources []ingest.SourceDescriptor) runner.Summary
}

// StatsProvider reports stored paper counts and per-source run state.
type StatsProvider interface {
	SourceCounts(ctx context.Context) (map[string]int, error)
	SyncState(ctx context.Context, source string) (ingest.SyncState, error)
}

// Server wires HTTP handlers to the runner and store.
type Server struct {
	router  chi.Router
	trigger RunTrigger
	stats   StatsProvider
	sources []ingest.SourceDescriptor
	log     *zap.Logger

	// runMu serializes ingestion runs; a second trigger while one is in
	// flight gets 409 instead of queueing.
	runMu sync.Mutex
}

// NewServer constructs a Server with middleware and routes.
func NewServer(trigger RunTrigger, stats StatsProvider, sources []ingest.SourceDescriptor, log *zap.Logger) *Server {
	s := &Server{
		trigger: trigger,
		stats:   stats,
		sources: sources,
		log:     log,
	}

	metrics.Init()
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", s.triggerIngest)
		r.Get("/stats", s.getStats)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.stats.SourceCounts(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// triggerIngest runs one full ingestion synchronously and returns its
// summary. Only one run may be in flight at a time.
func (s *Server) triggerIngest(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		writeError(w, http.StatusConflict, "an ingestion run is already in progress")
		return
	}
	defer s.runMu.Unlock()

	summary := s.trigger.Run(r.Context(), s.sources)

	status := http.StatusOK
	if summary.Outcome == runner.OutcomeFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, summary)
}

// sourceStats is one source's entry in the stats response. The run fields
// are omitted for a source that has never completed a run; stale data from
// an old run stays attributable through last_run_at.
type sourceStats struct {
	Papers      int    `json:"papers"`
	LastRunAt   string `json:"last_run_at,omitempty"`
	LastMethod  string `json:"last_method,omitempty"`
	LastOrdinal *int   `json:"last_ordinal,omitempty"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.SourceCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load source counts")
		return
	}

	names := make(map[string]struct{}, len(counts)+len(s.sources))
	for name := range counts {
		names[name] = struct{}{}
	}
	for _, desc := range s.sources {
		names[desc.Name] = struct{}{}
	}

	total := 0
	sources := make(map[string]sourceStats, len(names))
	for name := range names {
		entry := sourceStats{Papers: counts[name]}
		total += entry.Papers

		state, err := s.stats.SyncState(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load sync state")
			return
		}
		if !state.LastRunAt.IsZero() {
			entry.LastRunAt = state.LastRunAt.UTC().Format(time.RFC3339)
			entry.LastMethod = string(state.LastMethod)
			ordinal := state.LastOrdinal
			entry.LastOrdinal = &ordinal
		}
		sources[name] = entry
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":   total,
		"sources": sources,
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.log.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
