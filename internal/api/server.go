// Package api provides the HTTP JSON surface of the savings engine.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/rosca/internal/auth"
	"github.com/mmynk/rosca/internal/middleware"
	"github.com/mmynk/rosca/internal/service"
	"github.com/mmynk/rosca/internal/storage"
)

// Server routes HTTP requests to the service layer.
type Server struct {
	groups        *service.GroupService
	contributions *service.ContributionService
	scores        *service.ScoreService
	store         storage.Store
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	adminToken    string
	mux           *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(
	groups *service.GroupService,
	contributions *service.ContributionService,
	scores *service.ScoreService,
	store storage.Store,
	authenticator auth.Authenticator,
	jwt *auth.JWTManager,
	adminToken string,
) *Server {
	s := &Server{
		groups:        groups,
		contributions: contributions,
		scores:        scores,
		store:         store,
		authenticator: authenticator,
		jwt:           jwt,
		adminToken:    adminToken,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler with logging applied.
func (s *Server) Handler() http.Handler {
	return middleware.Logging(s.mux)
}

func (s *Server) routes() {
	authed := middleware.RequireAuth(s.jwt)
	verified := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireVerified(s.store)(h))
	}
	loggedIn := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	// Accounts & sessions
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.Handle("GET /api/auth/me", loggedIn(s.handleCurrentUser))

	// Groups
	s.mux.Handle("POST /api/groups", verified(s.handleCreateGroup))
	s.mux.Handle("GET /api/groups", loggedIn(s.handleListGroups))
	s.mux.Handle("GET /api/groups/{id}", loggedIn(s.handleGetGroup))
	s.mux.Handle("PUT /api/groups/{id}", verified(s.handleUpdateGroup))
	s.mux.Handle("POST /api/groups/{id}/join", verified(s.handleJoinGroup))
	s.mux.Handle("POST /api/groups/{id}/start", verified(s.handleStartGroup))
	s.mux.Handle("POST /api/groups/{id}/cancel", verified(s.handleCancelGroup))
	s.mux.Handle("GET /api/groups/{id}/contributions", loggedIn(s.handleGroupContributions))
	s.mux.Handle("PUT /api/groups/{id}/contributions/{userID}/due", verified(s.handleRescheduleDueDate))
	s.mux.Handle("GET /api/groups/{id}/payouts", loggedIn(s.handleGroupPayouts))

	// Contributions & scores
	s.mux.Handle("POST /api/contributions", verified(s.handleRecordPayment))
	s.mux.Handle("GET /api/contributions", loggedIn(s.handleMyContributions))
	s.mux.Handle("GET /api/scores/me", loggedIn(s.handleMyScore))

	// Operational endpoints for the external scheduler / back office
	s.mux.HandleFunc("POST /api/admin/sweep", s.admin(s.handleSweep))
	s.mux.HandleFunc("POST /api/admin/users/{id}/verify", s.admin(s.handleVerifyUser))
	s.mux.HandleFunc("POST /api/admin/scores/{id}/recompute", s.admin(s.handleRecomputeScore))

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// admin guards operational endpoints with the static admin token.
func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			s.respondError(w, http.StatusForbidden, "admin token required")
			return
		}
		h(w, r)
	}
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst. The caller should return
// immediately when ok == false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		s.respondError(w, http.StatusBadRequest, "request body is empty")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

// respondServiceError translates the service error taxonomy into HTTP
// status codes. Errors surface verbatim; nothing is retried here.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrAmountMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrPolicyViolation):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrDuplicateRound):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		s.respondError(w, status, "internal error")
		return
	}
	s.respondError(w, status, err.Error())
}
