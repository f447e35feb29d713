// Package usage tracks monthly active users. Every bot interaction upserts a
// (user, month) row; the count feeds the bot bio refresh job.
package usage

import (
	"context"
	"log/slog"
	"time"
)

// Store is the persistence contract for the usage log.
type Store interface {
	// Record upserts one (user, month) activity row. Duplicate months are
	// silently ignored at the storage layer.
	Record(ctx context.Context, userID int64, username, month string) error
	CountMonth(ctx context.Context, month string) (int, error)
}

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{store: store, log: log}
}

// CurrentMonth is the log key for now, e.g. "2025-09".
func CurrentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// Touch records activity for the current month. Failures are logged and
// swallowed: usage tracking must never break an interaction.
func (s *Service) Touch(ctx context.Context, userID int64, username string) {
	if err := s.store.Record(ctx, userID, username, CurrentMonth()); err != nil {
		s.log.Warn("usage log write failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// MonthlyCount reports distinct active users for the current month.
func (s *Service) MonthlyCount(ctx context.Context) (int, error) {
	return s.store.CountMonth(ctx, CurrentMonth())
}
