package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/rosca/internal/auth"
	"github.com/mmynk/rosca/internal/middleware"
	"github.com/mmynk/rosca/internal/storage"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			s.respondError(w, http.StatusConflict, "email is already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("Registration failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("Failed to issue token", "user_id", user.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		slog.Error("Login failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("Failed to issue token", "user_id", user.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("Failed to load user", "user_id", userID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := s.store.SetUserVerified(r.Context(), userID, true); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("Failed to verify user", "user_id", userID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("User identity verified", "user_id", userID)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
