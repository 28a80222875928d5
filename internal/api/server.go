package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nearnio/internal/config"
	"nearnio/internal/service"

	"github.com/rs/zerolog"
)

// Server exposes the externally triggered cron endpoints plus health probes.
// Each trigger runs synchronously: the caller's scheduler gets the outcome
// in the response and owns retry policy.
type Server struct {
	cfg          config.APIConfig
	orchestrator *service.Orchestrator
	server       *http.Server
	auth         *BearerAuth
	logger       *zerolog.Logger
}

func NewServer(cfg config.APIConfig, orchestrator *service.Orchestrator, logger *zerolog.Logger) *Server {
	mux := http.NewServeMux()
	srv := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		auth:         NewBearerAuth(cfg),
		logger:       logger,
	}

	mux.HandleFunc("/api/v1/cron/sync", srv.handleSync)
	mux.HandleFunc("/api/v1/cron/notify", srv.handleNotify)
	mux.HandleFunc("/api/v1/cron/remind", srv.handleRemind)

	protected := srv.auth.Wrap(mux)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", srv.handleHealthz)
	root.Handle("/api/v1/cron/", protected)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.loggingMiddleware(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	return srv
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Trigger API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// triggerResponse is the envelope every cron endpoint returns.
type triggerResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Count     int    `json:"count"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.handleTrigger(w, r, s.orchestrator.RunSync, "catalog sync complete")
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	s.handleTrigger(w, r, s.orchestrator.RunNotify, "notification run complete")
}

func (s *Server) handleRemind(w http.ResponseWriter, r *http.Request) {
	s.handleTrigger(w, r, s.orchestrator.RunRemind, "reminder run complete")
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request, run func(context.Context) service.Result, message string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := run(r.Context())
	now := time.Now().UTC().Format(time.RFC3339)

	if res.Err != nil {
		writeJSON(w, http.StatusInternalServerError, triggerResponse{
			Success:   false,
			Count:     res.Count,
			Error:     res.Err.Error(),
			Timestamp: now,
		})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:   true,
		Message:   message,
		Count:     res.Count,
		Timestamp: now,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, triggerResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
