// Package leaderboard ranks players by coin score for the public API.
package leaderboard

import (
	"context"
	"log/slog"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Store is the persistence contract for rankings.
type Store interface {
	// TopByCoin returns up to limit users ordered by coin desc, then
	// telegram_id asc for a stable order between equal scores.
	TopByCoin(ctx context.Context, limit int) ([]domain.User, error)
}

// Entry is one leaderboard row as served to clients.
type Entry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Coin     float64 `json:"coin"`
	Prize    string  `json:"prize"`
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

// Top returns the ranked leaderboard. The limit is clamped to [1, 200] and
// defaults to 50 when unset.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	users, err := s.store.TopByCoin(ctx, limit)
	if err != nil {
		s.log.Error("leaderboard query failed", slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	entries := make([]Entry, 0, len(users))
	for i, u := range users {
		rank := i + 1
		entries = append(entries, Entry{
			Rank:     rank,
			Username: u.DisplayName(),
			Coin:     u.Coin,
			Prize:    PrizeForRank(rank),
		})
	}

	return entries, nil
}

// PrizeForRank maps a rank to its monthly prize label.
func PrizeForRank(rank int) string {
	switch {
	case rank == 1:
		return "500 ETB"
	case rank == 2:
		return "300 ETB"
	case rank == 3:
		return "150 ETB"
	case rank <= 10:
		return "50 ETB"
	default:
		return "—"
	}
}
