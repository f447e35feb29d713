package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
)

const leaderboardPageSize = 10

// NewPlayHandler offers the game rooms grouped by stake.
func NewPlayHandler(kb *keyboard.Builder, playURL string, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		return c.Send("🎮 Pick a stake to join a room:", kb.StakeButtons(playURL))
	}
}

// NewLeaderboardHandler renders a page of the monthly standings. Serves both
// the menu entry (page 1) and the pagination callbacks.
func NewLeaderboardHandler(boards *leaderboard.Service, kb *keyboard.Builder, limit int, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		page := 1
		isPageFlip := false

		if cb := c.Callback(); cb != nil {
			_, data, err := keyboard.DecodeCallback(strings.TrimPrefix(cb.Data, "\f"))
			if err == nil && data != "" {
				if p, perr := strconv.Atoi(data); perr == nil && p > 0 {
					page = p
					isPageFlip = true
				}
			}
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		entries, err := boards.Top(context.Background(), limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			return c.Send("🏆 The leaderboard is empty this month. Be the first!")
		}

		totalPages := (len(entries) + leaderboardPageSize - 1) / leaderboardPageSize
		if page > totalPages {
			page = totalPages
		}

		start := (page - 1) * leaderboardPageSize
		end := start + leaderboardPageSize
		if end > len(entries) {
			end = len(entries)
		}

		text := formatLeaderboard(entries[start:end])
		markup := kb.Leaderboard(page, totalPages)

		// Flipping pages edits the existing message instead of stacking new ones.
		if isPageFlip {
			return c.Edit(text, markup, telebot.ModeHTML)
		}

		return c.Send(text, markup, telebot.ModeHTML)
	}
}

func formatLeaderboard(entries []leaderboard.Entry) string {
	var sb strings.Builder
	sb.WriteString("🏆 <b>Monthly leaderboard</b>\n\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s <b>%s</b> — %.2f coins", rankBadge(e.Rank), e.Username, e.Coin))
		if e.Prize != "—" {
			sb.WriteString(fmt.Sprintf(" (%s)", e.Prize))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func rankBadge(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// NewInviteHandler hands out the personal referral deep link.
func NewInviteHandler(log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		botUsername := ""
		if b := c.Bot(); b != nil && b.Me != nil {
			botUsername = b.Me.Username
		}

		link := fmt.Sprintf("https://t.me/%s?start=%d", botUsername, sender.ID)

		return c.Send(fmt.Sprintf(
			"🎁 Invite friends and earn!\n\nYou get 10 coins for every friend who registers through your link:\n\n%s",
			link,
		))
	}
}

// NewInstructionsHandler sends the how-to-play and how-to-deposit guide.
func NewInstructionsHandler(minDeposit string) Handler {
	text := fmt.Sprintf(`📖 <b>How it works</b>

<b>1. Register</b> — share your phone number once.

<b>2. Deposit</b> — send at least %s ETB with Telebirr, CBE, BOA, or CBE Birr, then submit the transaction reference here. Matched payments are credited instantly; the rest are reviewed by an operator.

<b>3. Play</b> — pick a stake room and mark your card as numbers are called.

<b>4. Win</b> — prizes are paid to your wallet. Top coin earners win monthly ETB prizes.`, minDeposit)

	return func(c telebot.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		return c.Send(text, telebot.ModeHTML)
	}
}

// NewPatternsHandler lists the card layouts that win a round.
func NewPatternsHandler() Handler {
	const text = `🎯 <b>Winning patterns</b>

• <b>Any line</b> — five in a row, column, or diagonal
• <b>Four corners</b> — all four corner numbers
• <b>Full house</b> — every number on the card (jackpot rooms)

The pattern in play is shown at the top of the room before the first ball is called.`

	return func(c telebot.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		return c.Send(text, telebot.ModeHTML)
	}
}

// NewSupportHandler sends the support contact card.
func NewSupportHandler(handle, phone string) Handler {
	return func(c telebot.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		var sb strings.Builder
		sb.WriteString("🛟 Need help? Reach us at:\n")
		if handle != "" {
			sb.WriteString(fmt.Sprintf("\n• Telegram: %s", handle))
		}
		if phone != "" {
			sb.WriteString(fmt.Sprintf("\n• Phone: %s", phone))
		}

		return c.Send(sb.String())
	}
}
