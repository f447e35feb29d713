package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/state"
	"github.com/luckybingo/bingo-bot/internal/user"
	"github.com/luckybingo/bingo-bot/internal/usercache"
)

// NewUsernameStartHandler opens the display-name change flow.
func NewUsernameStartHandler(fsm state.Machine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		session := &state.Session{Flow: state.FlowUsernameChange}
		if err := fsm.SetSession(context.Background(), sender.ID, session); err != nil {
			return err
		}

		return c.Send("✏️ Send the name you want on the leaderboard (up to 32 characters).", kb.CancelButton())
	}
}

// NewUsernameInputHandler stores the new display name.
func NewUsernameInputHandler(users *user.Service, cache *usercache.Cache, fsm state.Machine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		ctx := context.Background()

		if err := users.SetUsername(ctx, sender.ID, c.Text()); err != nil {
			return err
		}

		if err := cache.Invalidate(ctx, sender.ID); err != nil {
			log.Warn("failed to invalidate user cache", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		if err := fsm.ClearSession(ctx, sender.ID); err != nil {
			log.Warn("failed to clear session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		return c.Send("✅ Name updated.")
	}
}
