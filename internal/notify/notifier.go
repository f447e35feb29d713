// Package notify delivers operational messages to the support channel
// through the bot, with retry and a circuit breaker around the Telegram API.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/jobs"
)

// Sender is the telebot surface the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// SupportNotifier posts to the configured support chat.
type SupportNotifier struct {
	sender  Sender
	chatID  int64
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

func NewSupportNotifier(sender Sender, chatID int64, log *slog.Logger) *SupportNotifier {
	if log == nil {
		log = slog.Default()
	}

	return &SupportNotifier{
		sender:  sender,
		chatID:  chatID,
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

// Text sends a plain message to the support chat.
func (n *SupportNotifier) Text(ctx context.Context, text string) error {
	return n.deliver(ctx, text, nil)
}

// Receipt sends the uploaded receipt photo with its claim details.
func (n *SupportNotifier) Receipt(ctx context.Context, p jobs.ReceiptForwardPayload) error {
	caption := receiptCaption(p)

	if p.PhotoFileID == "" {
		return n.deliver(ctx, caption, nil)
	}

	photo := &telebot.Photo{
		File:    telebot.File{FileID: p.PhotoFileID},
		Caption: caption,
	}
	return n.deliver(ctx, "", photo)
}

func (n *SupportNotifier) deliver(ctx context.Context, text string, photo *telebot.Photo) error {
	if n.sender == nil || n.chatID == 0 {
		n.log.Warn("support chat not configured, dropping notification")
		return nil
	}

	err := apperrors.WithRetry(ctx, func() error {
		return n.breaker.Call(func() error {
			var what interface{} = text
			if photo != nil {
				what = photo
			}

			if _, err := n.sender.Send(telebot.ChatID(n.chatID), what); err != nil {
				return apperrors.NewDeliveryError("support chat", err)
			}
			return nil
		})
	})
	if err != nil {
		n.log.Error("support notification failed", slog.Any("error", err))
		return err
	}

	return nil
}

func receiptCaption(p jobs.ReceiptForwardPayload) string {
	name := p.Username
	if name == "" {
		name = fmt.Sprintf("id %d", p.UserID)
	}

	caption := fmt.Sprintf("🧾 Receipt from %s", name)
	if p.Method != "" {
		caption += fmt.Sprintf("\nMethod: %s", p.Method)
	}
	if p.Amount > 0 {
		caption += fmt.Sprintf("\nAmount: %s ETB", domain.FormatETB(p.Amount))
	}
	if p.Phone != "" {
		caption += fmt.Sprintf("\nPhone: %s", p.Phone)
	}
	if p.Destination != "" {
		caption += fmt.Sprintf("\nPaid to: %s", p.Destination)
	}

	return caption
}
