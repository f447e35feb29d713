package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/state"
)

// NewReceiptPromptHandler acknowledges the receipt button and asks for the
// photo. The session is already in the upload flow at this point.
func NewReceiptPromptHandler(log *slog.Logger) CallbackHandler {
	return func(c telebot.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		return c.Send("📷 Send the photo of your receipt now.")
	}
}

// NewReceiptPhotoHandler forwards an uploaded receipt photo to the support
// channel via the job queue and ends the flow.
func NewReceiptPhotoHandler(fsm state.Machine, queue jobs.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		msg := c.Message()
		if sender == nil || msg == nil || msg.Photo == nil {
			return nil
		}

		ctx := context.Background()

		session, err := fsm.GetSession(ctx, sender.ID)
		if err != nil || session == nil || session.Flow != state.FlowReceiptUpload {
			// Unsolicited photo outside the flow; nothing to do with it.
			return nil
		}

		payload := jobs.ReceiptForwardPayload{
			UserID:      sender.ID,
			Username:    sender.Username,
			PhotoFileID: msg.Photo.FileID,
		}
		if session.Receipt != nil {
			payload.Method = session.Receipt.Method
			payload.Amount = session.Receipt.Amount
			payload.Phone = session.Receipt.Phone
			payload.Destination = session.Receipt.Destination
		}

		task, err := jobs.NewReceiptForwardTask(payload)
		if err == nil && queue != nil {
			_, err = queue.Enqueue(ctx, task)
		}
		if err != nil {
			log.Error("failed to enqueue receipt forward", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send("Could not accept the receipt right now, please try again later.")
		}

		if err := fsm.ClearSession(ctx, sender.ID); err != nil {
			log.Warn("failed to clear session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		return c.Send("🧾 Receipt received, thank you! An operator will review your deposit shortly.")
	}
}
