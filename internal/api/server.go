package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ajitpratap0/graphschema/internal/enforcer"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/reconcile"
	"github.com/ajitpratap0/graphschema/internal/scanner"
	"github.com/ajitpratap0/graphschema/internal/store"
)

// Server is an HTTP admin server that exposes schema enforcement.
type Server struct {
	enforcer  *enforcer.Enforcer
	provider  store.Provider
	namespace string
	units     []migration.Migration
	logger    *slog.Logger
	authToken string // empty = no auth required

	// runMu allows one enforcement or index run at a time.
	runMu sync.Mutex
}

// NewServer creates a new Server with the given dependencies.
func NewServer(e *enforcer.Enforcer, provider store.Provider, namespace string, units []migration.Migration,
	logger *slog.Logger, authToken string) *Server {
	return &Server{
		enforcer:  e,
		provider:  provider,
		namespace: namespace,
		units:     units,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check: no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /v1/model", s.auth(s.handleModel))
	mux.HandleFunc("POST /v1/enforce", s.auth(s.handleEnforce))
	mux.HandleFunc("POST /v1/indexes", s.auth(s.handleIndexes))
	mux.Handle("GET /debug/vars", s.auth(expvar.Handler().ServeHTTP))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.provider.Ping(r.Context()); err != nil {
		s.logger.Warn("store ping failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	if !s.runMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a run is in progress")
		return
	}
	defer s.runMu.Unlock()

	entities, err := s.enforcer.ScanSchema(enforcer.NewRunContext(s.namespace, false))
	if err != nil {
		s.failRun(w, "scan", err)
		return
	}
	s.writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleEnforce(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a run is in progress")
		return
	}
	defer s.runMu.Unlock()

	report, err := s.enforcer.Run(r.Context(), enforcer.NewRunContext(s.namespace, false), s.units)
	if err != nil {
		s.failRun(w, "enforce", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// indexesResponse is returned by POST /v1/indexes.
type indexesResponse struct {
	RunID   string `json:"run_id"`
	Rebuilt bool   `json:"rebuilt"`
	*reconcile.IndexReport
}

func (s *Server) handleIndexes(w http.ResponseWriter, r *http.Request) {
	rebuild, _ := strconv.ParseBool(r.URL.Query().Get("rebuild"))

	if !s.runMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a run is in progress")
		return
	}
	defer s.runMu.Unlock()

	rc := enforcer.NewRunContext(s.namespace, false)
	if _, err := s.enforcer.ScanSchema(rc); err != nil {
		s.failRun(w, "scan", err)
		return
	}
	report, err := s.enforcer.ValidateIndexes(r.Context(), rc)
	if err != nil {
		s.failRun(w, "indexes", err)
		return
	}
	resp := indexesResponse{RunID: rc.ID.String(), IndexReport: report}
	if rebuild {
		if err := s.enforcer.RebuildIndexes(r.Context(), rc); err != nil {
			s.failRun(w, "rebuild", err)
			return
		}
		resp.Rebuilt = true
	}

	status := http.StatusOK
	if !report.OK {
		status = http.StatusMultiStatus
	}
	s.writeJSON(w, status, resp)
}

// failRun maps run errors to status codes.
func (s *Server) failRun(w http.ResponseWriter, op string, err error) {
	s.logger.Error("run failed", "op", op, "error", err)
	switch {
	case errors.Is(err, scanner.ErrNoNamespace):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, enforcer.ErrSessionsForbidden):
		s.writeError(w, http.StatusForbidden, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, op+" failed: "+err.Error())
	}
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
