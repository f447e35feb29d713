package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/ledger"
)

type claimRequest struct {
	UserID    int64   `json:"user_id" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required"`
	AmountETB float64 `json:"amount,omitempty" validate:"gte=0"`
	Reference string  `json:"reference" validate:"required"`
}

type claimResponse struct {
	Approved    bool   `json:"approved"`
	Message     string `json:"message"`
	DepositID   int64  `json:"deposit_id,omitempty"`
	CreditedETB string `json:"credited_etb,omitempty"`
}

// handleLeaderboard serves the current standings. Always fresh: scores move
// with every game, so intermediaries must not cache it.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.maxEntries
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > s.maxEntries {
				parsed = s.maxEntries
			}
			limit = parsed
		}
	}

	entries, err := s.boards.Top(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, entries)
}

// handleClaim runs reconciliation for a claim submitted through the web app.
// Same engine, same rate limit as the bot flow.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	if s.gate != nil && !s.gate.AllowClaim(r.Context(), req.UserID) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many claim attempts, try again later"})
		return
	}

	amountCents := int64(req.AmountETB*100 + 0.5)

	outcome, err := s.engine.Reconcile(r.Context(), req.UserID, req.Method, amountCents, req.Reference)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := claimResponse{
		Approved: outcome.Approved,
		Message:  outcome.Message,
	}
	if outcome.Deposit != nil {
		resp.DepositID = outcome.Deposit.ID
	}
	if outcome.Approved {
		resp.CreditedETB = domain.FormatETB(outcome.Credited)
	}

	if !outcome.Approved {
		s.notifySupport(r, outcome)
	}

	writeJSON(w, http.StatusOK, resp)
}

// notifySupport alerts the support channel about a queued claim. Best
// effort: the claim is already stored.
func (s *Server) notifySupport(r *http.Request, outcome *ledger.Outcome) {
	if s.queue == nil || outcome == nil || outcome.Deposit == nil {
		return
	}

	dep := outcome.Deposit
	text := fmt.Sprintf(
		"⏳ Deposit #%d needs review\nUser: %d\nMethod: %s\nAmount: %s ETB\nReference: %s",
		dep.ID, dep.UserID, dep.Method, domain.FormatETB(dep.Amount), dep.Reference,
	)

	task, err := jobs.NewNotifySupportTask(text)
	if err == nil {
		_, err = s.queue.Enqueue(r.Context(), task)
	}
	if err != nil {
		s.log.Error("failed to enqueue support notification", slog.Int64("deposit_id", dep.ID), slog.Any("error", err))
	}
}

type uploadReceiptRequest struct {
	UserID      int64   `json:"user_id" validate:"required,gt=0"`
	Username    string  `json:"username,omitempty"`
	Method      string  `json:"method,omitempty"`
	AmountETB   float64 `json:"amount,omitempty" validate:"gte=0"`
	Phone       string  `json:"phone,omitempty"`
	Destination string  `json:"destination,omitempty"`
	PhotoFileID string  `json:"photo_file_id" validate:"required"`
}

// handleUploadReceipt accepts a receipt reference and queues the forward to
// the support channel. Responds 202: delivery happens asynchronously.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	var req uploadReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	task, err := jobs.NewReceiptForwardTask(jobs.ReceiptForwardPayload{
		UserID:      req.UserID,
		Username:    req.Username,
		Method:      req.Method,
		Amount:      int64(req.AmountETB*100 + 0.5),
		Phone:       req.Phone,
		Destination: req.Destination,
		PhotoFileID: req.PhotoFileID,
	})
	if err == nil && s.queue != nil {
		_, err = s.queue.Enqueue(r.Context(), task)
	}
	if err != nil {
		s.log.Error("failed to enqueue receipt forward", slog.Int64("user_id", req.UserID), slog.Any("error", err))
		writeError(w, apperrors.NewDeliveryError("job queue", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
