package api

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/rosca/internal/middleware"
)

type recordPaymentRequest struct {
	GroupID      string  `json:"group_id"`
	Amount       float64 `json:"amount"`
	PaymentProof string  `json:"payment_proof"`
	Notes        string  `json:"notes"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.GroupID == "" {
		s.respondError(w, http.StatusBadRequest, "group_id is required")
		return
	}

	contribution, err := s.contributions.RecordPayment(
		r.Context(), req.GroupID, middleware.GetUserID(r.Context()),
		req.Amount, req.PaymentProof, req.Notes,
	)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contribution)
}

type rescheduleRequest struct {
	DueDate int64 `json:"due_date"`
}

func (s *Server) handleRescheduleDueDate(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	contribution, err := s.contributions.RescheduleDueDate(
		r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()),
		r.PathValue("userID"), req.DueDate,
	)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contribution)
}

func (s *Server) handleMyContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.contributions.ListUserContributions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"contributions": contributions})
}

func (s *Server) handleMyScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.scores.GetOrCreate(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, score)
}

func (s *Server) handleRecomputeScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.scores.Recompute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, score)
}

// handleSweep runs the overdue pass on demand. The deployment's scheduler
// hits this endpoint once a day.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	late, missed, err := s.contributions.MarkOverdue(r.Context())
	if err != nil {
		slog.Error("Overdue sweep failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"marked_late":   late,
		"marked_missed": missed,
	})
}
