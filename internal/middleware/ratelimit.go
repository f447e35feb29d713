package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram
// updates, with a separate tighter rule for deposit claim submissions.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces the per-user limit.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if !m.active() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		result, err := m.limiter.Check(context.Background(), fmt.Sprintf("user:%d", userID), limit, window)
		if err != nil && result == nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
			return c.Send("⏳ Too many requests. Please slow down and try again in a minute.")
		}

		return next(c)
	}
}

// AllowClaim applies the claim-specific limit for userID. Each claim probes
// the transaction registry, so this is the control that bounds reference
// guessing. Returns true when the submission may proceed.
func (m *RateLimitMiddleware) AllowClaim(ctx context.Context, userID int64) bool {
	if !m.active() || m.rules.IsWhitelisted(userID) {
		return true
	}

	limit, window, err := m.rules.GetClaimLimit()
	if err != nil {
		m.log.Error("failed to load claim rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	}

	result, err := m.limiter.Check(ctx, fmt.Sprintf("claim:%d", userID), limit, window)
	if err != nil && result == nil {
		m.log.Warn("claim rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	}

	if !result.Allowed {
		m.log.Warn("claim rate limit exceeded", slog.Int64("user_id", userID))
		return false
	}

	return true
}

func (m *RateLimitMiddleware) active() bool {
	return m != nil && m.limiter != nil && m.rules != nil && m.rules.Enabled()
}
