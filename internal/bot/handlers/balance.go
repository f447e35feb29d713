package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/user"
)

// NewBalanceHandler shows the wallet balance and coin score.
func NewBalanceHandler(users *user.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("balance handler invoked without sender")
			return nil
		}

		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		u, err := users.Get(context.Background(), sender.ID)
		if err != nil {
			return err
		}

		text := fmt.Sprintf(
			"<pre>Player:  %s\nBalance: %s ETB\nCoins:   %.2f</pre>",
			u.DisplayName(),
			domain.FormatETB(u.Balance),
			u.Coin,
		)

		return c.Send(text, telebot.ModeHTML)
	}
}
