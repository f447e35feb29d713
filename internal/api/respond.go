package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the application error taxonomy onto HTTP statuses. Unknown
// errors surface as a plain 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case "E100":
		status = http.StatusBadRequest
	case "E110":
		status = http.StatusNotFound
	case "E120":
		status = http.StatusConflict
	case "E130":
		status = http.StatusUnauthorized
	case "E300":
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: appErr.UserMessage, Code: appErr.Code})
}
