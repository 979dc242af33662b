package api

import (
	"net/http"

	"github.com/mmynk/rosca/internal/middleware"
	"github.com/mmynk/rosca/internal/service"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var params service.GroupParams
	if !s.decodeJSON(w, r, &params) {
		return
	}

	group, err := s.groups.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.ListUserGroups(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var params service.GroupParams
	if !s.decodeJSON(w, r, &params) {
		return
	}

	group, err := s.groups.UpdateGroup(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), params)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.JoinGroup(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleStartGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.StartGroup(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleCancelGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.CancelGroup(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleGroupContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.contributions.ListGroupContributions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"contributions": contributions})
}

func (s *Server) handleGroupPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.groups.ListGroupPayouts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"payouts": payouts})
}
