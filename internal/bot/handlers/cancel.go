package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/state"
	"github.com/luckybingo/bingo-bot/internal/user"
)

// NewCancelHandler abandons the active flow and returns to the main menu.
// Wired to both the /cancel command and the inline cancel button.
func NewCancelHandler(users *user.Service, fsm state.Machine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("cancel handler invoked without sender")
			return nil
		}

		ctx := context.Background()

		if fsm != nil {
			if err := fsm.ClearSession(ctx, sender.ID); err != nil {
				log.Error("failed to clear session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
				return err
			}
		}

		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{Text: "Cancelled"})
		}

		registered := true
		if u, err := users.Get(ctx, sender.ID); err == nil {
			registered = u.Registered()
		}

		return c.Send("Operation cancelled.", kb.MainMenu(registered))
	}
}
