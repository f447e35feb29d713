package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
)

// BioSetter updates the bot's public short description.
type BioSetter interface {
	SetShortDescription(ctx context.Context, text string) error
}

// UserCounter reports distinct active users for the current month.
type UserCounter interface {
	MonthlyCount(ctx context.Context) (int, error)
}

// BioUpdateHandler refreshes the bot bio with the monthly player count.
type BioUpdateHandler struct {
	bio     BioSetter
	counter UserCounter
	log     *slog.Logger
}

func NewBioUpdateHandler(bio BioSetter, counter UserCounter, log *slog.Logger) *BioUpdateHandler {
	return &BioUpdateHandler{bio: bio, counter: counter, log: log}
}

func (h *BioUpdateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	count, err := h.counter.MonthlyCount(ctx)
	if err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "bio update: failed to count users", slog.Any("error", err))
		}
		return err
	}

	text := fmt.Sprintf("🎱 %s players this month. Play bingo, win ETB!", groupDigits(count))
	if err := h.bio.SetShortDescription(ctx, text); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "bio update: failed to set description", slog.Any("error", err))
		}
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "bot bio refreshed", slog.Int("monthly_users", count))
	}

	return nil
}

// groupDigits renders 1234567 as "1,234,567".
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return s
	}

	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	return string(out)
}
