// Package handlers contains the asynq task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/luckybingo/bingo-bot/internal/jobs"
)

// Notifier is the delivery surface the task handlers need.
type Notifier interface {
	Text(ctx context.Context, text string) error
	Receipt(ctx context.Context, p jobs.ReceiptForwardPayload) error
}

// NotifySupportHandler delivers queued text notifications to the support chat.
type NotifySupportHandler struct {
	notifier Notifier
	log      *slog.Logger
}

func NewNotifySupportHandler(notifier Notifier, log *slog.Logger) *NotifySupportHandler {
	return &NotifySupportHandler{notifier: notifier, log: log}
}

func (h *NotifySupportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.NotifySupportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "notify support: failed to decode payload",
				slog.String("task_type", t.Type()), slog.Any("error", err))
		}
		return err
	}

	if payload.Text == "" {
		return nil
	}

	return h.notifier.Text(ctx, payload.Text)
}
