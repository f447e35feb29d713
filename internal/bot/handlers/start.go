package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/state"
	"github.com/luckybingo/bingo-bot/internal/user"
)

// NewStartHandler greets the user and shows the main menu. A numeric deep
// link payload ("t.me/<bot>?start=<id>") names the inviter; it only matters
// on first contact, GetOrCreate ignores it afterwards.
func NewStartHandler(users *user.Service, fsm state.Machine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		ctx := context.Background()

		u, err := users.GetOrCreate(ctx, sender, StartReferrer(c))
		if err != nil {
			return err
		}

		// A fresh /start abandons whatever flow was in progress.
		if fsm != nil {
			if err := fsm.ClearSession(ctx, sender.ID); err != nil {
				log.Warn("failed to reset session on start", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			}
		}

		greeting := fmt.Sprintf("🎱 Welcome, %s!\n\nDeposit, pick a stake, and play bingo for real ETB prizes.", u.DisplayName())
		if !u.Registered() {
			greeting += "\n\nShare your phone number to unlock deposits and games."
		}

		return c.Send(greeting, kb.MainMenu(u.Registered()))
	}
}

// StartReferrer extracts the inviter id from a /start deep link payload.
// Returns zero for missing or non-numeric payloads.
func StartReferrer(c telebot.Context) int64 {
	msg := c.Message()
	if msg == nil {
		return 0
	}

	payload := strings.TrimSpace(msg.Payload)
	if payload == "" {
		return 0
	}

	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}

	return id
}
