package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/registry"
)

// adminAuth guards the operator endpoints with a shared token passed either
// as the X-Admin-Token header or a token query parameter.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if s.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, apperrors.NewUnauthorizedError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

type depositView struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	AmountETB  string     `json:"amount_etb"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func toDepositView(d domain.Deposit) depositView {
	return depositView{
		ID:         d.ID,
		UserID:     d.UserID,
		AmountETB:  domain.FormatETB(d.Amount),
		Method:     d.Method,
		Reference:  d.Reference,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
		ApprovedAt: d.ApprovedAt,
	}
}

// handleListPending returns the moderation queue, oldest claims first.
func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	deposits, err := s.engine.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]depositView, 0, len(deposits))
	for _, d := range deposits {
		views = append(views, toDepositView(d))
	}

	writeJSON(w, http.StatusOK, views)
}

// handleApprove credits a pending deposit. Repeating the call returns 409,
// never a second credit.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperrors.NewValidationError("deposit id must be a positive integer"))
		return
	}

	approved, err := s.engine.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDepositView(*approved))
}

type adminTxnView struct {
	ID         int64      `json:"id"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	AmountETB  string     `json:"amount_etb,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ConsumedBy int64      `json:"consumed_by,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// handleListTxns lists registry records, unconsumed first.
func (s *Server) handleListTxns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := registry.Filter{
		OnlyUnconsumed: q.Get("unused") == "true",
		Method:         q.Get("method"),
	}
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}

	txns, err := s.txns.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]adminTxnView, 0, len(txns))
	for _, t := range txns {
		view := adminTxnView{
			ID:         t.ID,
			Method:     t.Method,
			Reference:  t.Reference,
			Notes:      t.Notes,
			ConsumedBy: t.ConsumedBy,
			ConsumedAt: t.ConsumedAt,
			CreatedAt:  t.CreatedAt,
		}
		if t.Amount > 0 {
			view.AmountETB = domain.FormatETB(t.Amount)
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

type addTxnRequest struct {
	Method    string  `json:"method" validate:"required"`
	Reference string  `json:"reference" validate:"required"`
	AmountETB float64 `json:"amount,omitempty" validate:"gte=0"`
	Notes     string  `json:"notes,omitempty"`
}

// handleAddTxn registers one ground-truth record.
func (s *Server) handleAddTxn(w http.ResponseWriter, r *http.Request) {
	var req addTxnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	amountCents := int64(req.AmountETB*100 + 0.5)
	if err := s.txns.Insert(r.Context(), req.Method, req.Reference, amountCents, req.Notes); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// handleBulkTxns imports many records at once. JSON bodies carry an array of
// records; anything else is treated as delimited text, one record per line.
func (s *Server) handleBulkTxns(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, apperrors.NewValidationError("unreadable request body"))
		return
	}

	var records []registry.Record
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, &records); err != nil {
			writeError(w, apperrors.NewValidationError("invalid JSON body"))
			return
		}
	} else {
		records = registry.ParseDelimited(string(body))
	}

	if len(records) == 0 {
		writeError(w, apperrors.NewValidationError("no records in request"))
		return
	}

	result, err := s.txns.BulkInsert(r.Context(), records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
