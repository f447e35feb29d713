package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/domain"
)

// Builder creates the inline keyboards shown at each step of the
// conversation flows.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// MainMenu builds the idle menu. Unregistered users get a registration
// button first; the rest of the menu is the same for everyone.
func (b *Builder) MainMenu(registered bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()

	if !registered {
		kb.AddRow(InlineButton{Text: "📱 Register", Data: "menu_register"})
	}

	kb.AddRow(
		InlineButton{Text: "🎮 Play", Data: "menu_play"},
		InlineButton{Text: "💰 Deposit", Data: "menu_deposit"},
	)
	kb.AddRow(
		InlineButton{Text: "💳 Balance", Data: "menu_balance"},
		InlineButton{Text: "🏆 Leaderboard", Data: "menu_leaderboard"},
	)
	kb.AddRow(
		InlineButton{Text: "🎁 Invite", Data: "menu_invite"},
		InlineButton{Text: "📖 Instructions", Data: "menu_instructions"},
	)
	kb.AddRow(
		InlineButton{Text: "🎯 Win Patterns", Data: "menu_patterns"},
		InlineButton{Text: "🛟 Support", Data: "menu_support"},
	)

	return b.render(kb)
}

// MethodButtons lists the supported payment methods, one per row, with a
// cancel button at the bottom.
func (b *Builder) MethodButtons() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()

	for _, method := range domain.SupportedMethods() {
		kb.AddRow(InlineButton{
			Text:   methodLabel(method),
			Unique: "method",
			Data:   method,
		})
	}
	kb.AddRow(InlineButton{Text: "Cancel ❌", Data: "cancel"})

	return b.render(kb)
}

// StakeButtons offers the game rooms as web-app links grouped by stake.
func (b *Builder) StakeButtons(playURL string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	stakes := []string{"10", "20", "50"}

	row := make([]telebot.InlineButton, 0, len(stakes))
	for _, stake := range stakes {
		row = append(row, telebot.InlineButton{
			Text: stake + " ETB",
			URL:  playURL + "?stake=" + stake,
		})
	}

	markup.InlineKeyboard = [][]telebot.InlineButton{row}
	return markup
}

// ReceiptOffer is shown after a claim lands in the moderation queue.
func (b *Builder) ReceiptOffer() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	kb.AddRow(InlineButton{Text: "🧾 Send receipt", Data: "receipt_upload"})
	kb.AddRow(InlineButton{Text: "Skip", Data: "cancel"})

	return b.render(kb)
}

// Leaderboard wraps pagination controls for the standings list.
func (b *Builder) Leaderboard(page, totalPages int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	kb.AddRow(PaginationButtons("lb_page", page, totalPages)...)

	return b.render(kb)
}

// CancelButton builds a single cancel button.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	kb.AddRow(InlineButton{Text: "Cancel ❌", Data: "cancel"})

	return b.render(kb)
}

// render finalizes the markup. Encoding only fails on oversized callback
// data, which is a programming error; log it and return an empty markup so
// the message still goes out.
func (b *Builder) render(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		if b.log != nil {
			b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		}
		return &telebot.ReplyMarkup{}
	}

	return markup
}

func methodLabel(method string) string {
	switch method {
	case "telebirr":
		return "📲 Telebirr"
	case "cbe":
		return "🏦 CBE"
	case "boa":
		return "🏦 Bank of Abyssinia"
	case "cbe-birr":
		return "📲 CBE Birr"
	default:
		return method
	}
}
