package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/luckybingo/bingo-bot/internal/jobs"
)

// ReceiptForwardHandler relays uploaded receipts to the support chat.
type ReceiptForwardHandler struct {
	notifier Notifier
	log      *slog.Logger
}

func NewReceiptForwardHandler(notifier Notifier, log *slog.Logger) *ReceiptForwardHandler {
	return &ReceiptForwardHandler{notifier: notifier, log: log}
}

func (h *ReceiptForwardHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ReceiptForwardPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "receipt forward: failed to decode payload",
				slog.String("task_type", t.Type()), slog.Any("error", err))
		}
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "forwarding receipt",
			slog.Int64("user_id", payload.UserID),
			slog.String("method", payload.Method),
		)
	}

	return h.notifier.Receipt(ctx, payload)
}
