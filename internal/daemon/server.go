// Package daemon exposes the activity catalog, sessions, and progress
// over a local HTTP API. A tablet app or classroom dashboard is the
// expected client.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/config"
	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine"
	"github.com/aulaplay/aula/internal/gate"
	"github.com/aulaplay/aula/internal/progress"
	"github.com/aulaplay/aula/internal/session"
)

// Version reported by the status endpoint.
const Version = "0.1.0"

// Server is the aula daemon HTTP server.
type Server struct {
	cfg      *config.Config
	server   *http.Server
	router   *http.ServeMux
	registry *activity.Registry
	progress *progress.Service
	gate     gate.Gate

	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Controller
}

// NewServer wires the catalog, progress service, and solution gate into
// an HTTP server ready to Start.
func NewServer(cfg *config.Config, registry *activity.Registry, svc *progress.Service) *Server {
	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		registry: registry,
		progress: svc,
		sessions: make(map[uuid.UUID]*session.Controller),
	}

	if cfg.ParentPIN != "" {
		s.gate = gate.NewPINGate(cfg.ParentPIN)
	} else {
		s.gate = gate.Open{}
	}

	s.setupRoutes()

	handler := recoveryMiddleware(loggingMiddleware(correlationIDMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	s.router.HandleFunc("GET /v1/activities", s.handleListActivities)
	s.router.HandleFunc("GET /v1/activities/{id}", s.handleGetActivity)

	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.router.HandleFunc("POST /v1/sessions/{id}/input", s.handleInput)
	s.router.HandleFunc("POST /v1/sessions/{id}/hint", s.handleHint)
	s.router.HandleFunc("POST /v1/sessions/{id}/solution", s.handleSolution)
	s.router.HandleFunc("POST /v1/sessions/{id}/restart", s.handleRestart)

	s.router.HandleFunc("GET /v1/progress", s.handleListProgress)
	s.router.HandleFunc("GET /v1/progress/summary", s.handleProgressSummary)
	s.router.HandleFunc("GET /v1/progress/{id}", s.handleGetProgress)
}

// Start begins serving. Blocks until the listener fails or Shutdown.
func (s *Server) Start() error {
	slog.Info("daemon listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every live session and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, ctrl := range s.sessions {
		ctrl.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

// Handler returns the middleware-wrapped handler; tests drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	live := len(s.sessions)
	s.mu.Unlock()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":     "running",
		"version":    Version,
		"activities": s.registry.Count(),
		"sessions":   live,
		"storage":    s.cfg.StorageBackend,
	})
}

type activitySummary struct {
	ID           string   `json:"id"`
	Template     string   `json:"template"`
	Title        string   `json:"title"`
	Instructions string   `json:"instructions,omitempty"`
	Hints        []string `json:"hints,omitempty"`
}

func summarize(act domain.Activity) activitySummary {
	meta := act.Meta()
	return activitySummary{
		ID:           meta.ID,
		Template:     string(act.Template()),
		Title:        meta.Title,
		Instructions: meta.Instructions,
		Hints:        meta.Hints,
	}
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	acts := s.registry.List()
	if t := r.URL.Query().Get("template"); t != "" {
		acts = s.registry.ListByTemplate(domain.Template(t))
	}
	out := make([]activitySummary, 0, len(acts))
	for _, act := range acts {
		out = append(out, summarize(act))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"activities": out})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	act, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "activity not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summarize(act))
}

type createSessionRequest struct {
	ActivityID string `json:"activity_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ActivityID == "" {
		s.jsonError(w, http.StatusBadRequest, "activity_id is required", nil)
		return
	}

	source := activity.NewRegistrySource(s.registry, req.ActivityID)
	ctrl := session.New(source, s.gate, s.progress, engine.Options{}, slog.Default())
	if err := ctrl.LoadActivity(r.Context()); err != nil {
		var schemaErr *activity.SchemaError
		if errors.As(err, &schemaErr) {
			s.jsonError(w, http.StatusUnprocessableEntity, "invalid activity document", err)
			return
		}
		if errors.Is(err, domain.ErrActivityNotFound) {
			s.jsonError(w, http.StatusNotFound, "activity not found", err)
			return
		}
		s.jsonError(w, http.StatusBadGateway, "activity load failed", err)
		return
	}

	s.mu.Lock()
	s.sessions[ctrl.ID] = ctrl
	s.mu.Unlock()

	s.jsonResponse(w, http.StatusCreated, s.sessionView(ctrl))
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) *session.Controller {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid session id", err)
		return nil
	}
	s.mu.Lock()
	ctrl, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", domain.ErrSessionNotFound)
		return nil
	}
	return ctrl
}

func (s *Server) sessionView(ctrl *session.Controller) map[string]any {
	view := map[string]any{
		"session_id": ctrl.ID,
		"state":      ctrl.State(),
		"attempts":   ctrl.Attempts(),
		"hints_used": ctrl.HintsUsed(),
	}
	if act := ctrl.Activity(); act != nil {
		view["activity"] = summarize(act)
	}
	if err := ctrl.Err(); err != nil {
		view["error"] = err.Error()
	}
	return view
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sessionView(ctrl))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, ctrl.ID)
	s.mu.Unlock()
	ctrl.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}
	hint, ok := ctrl.RequestHint()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"hint":       hint,
		"granted":    ok,
		"hints_used": ctrl.HintsUsed(),
	})
}

type solutionRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}
	var req solutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := ctrl.RequestSolution(req.PIN); err != nil {
		var authErr *gate.AuthorizationError
		if errors.As(err, &authErr) {
			s.jsonError(w, http.StatusForbidden, "solution reveal not authorized", err)
			return
		}
		s.jsonError(w, http.StatusConflict, "solution reveal unavailable", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"solution_shown": true})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}
	if err := ctrl.Restart(r.Context()); err != nil {
		s.jsonError(w, http.StatusBadGateway, "restart failed", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.sessionView(ctrl))
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		s.jsonError(w, http.StatusNotImplemented, "progress store disabled", nil)
		return
	}
	recs, err := s.progress.All(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "list progress failed", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleProgressSummary(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		s.jsonError(w, http.StatusNotImplemented, "progress store disabled", nil)
		return
	}
	sum, err := s.progress.Summarize(r.Context())
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "summarize progress failed", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sum)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		s.jsonError(w, http.StatusNotImplemented, "progress store disabled", nil)
		return
	}
	rec, err := s.progress.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			s.jsonError(w, http.StatusNotFound, "no progress for activity", err)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "get progress failed", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
