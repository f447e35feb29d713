package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/user"
	"github.com/luckybingo/bingo-bot/internal/usercache"
)

// NewRegisterHandler asks the user to share their phone number.
func NewRegisterHandler(log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		return c.Send(
			"📱 Tap the button below to share your phone number and complete registration.",
			keyboard.ContactRequest(),
		)
	}
}

// NewContactHandler completes registration from a shared contact. Forwarded
// contacts belonging to someone else are ignored; only the sender's own
// number counts.
func NewContactHandler(users *user.Service, cache *usercache.Cache, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		msg := c.Message()
		if sender == nil || msg == nil || msg.Contact == nil {
			return nil
		}

		contact := msg.Contact
		if contact.UserID != 0 && contact.UserID != sender.ID {
			return c.Send("Please share your own contact, not someone else's.", keyboard.ContactRequest())
		}

		ctx := context.Background()

		u, err := users.CompleteRegistration(ctx, sender.ID, contact.PhoneNumber)
		if err != nil {
			return err
		}

		if err := cache.Invalidate(ctx, sender.ID); err != nil {
			log.Warn("failed to invalidate user cache", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		if err := c.Send("✅ Registration complete!", keyboard.RemoveReply()); err != nil {
			return err
		}

		return c.Send("You're all set. What's next?", kb.MainMenu(u.Registered()))
	}
}
