package leaderboard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
)

type fakeBoardStore struct {
	users     []domain.User
	lastLimit int
}

func (s *fakeBoardStore) TopByCoin(ctx context.Context, limit int) ([]domain.User, error) {
	s.lastLimit = limit
	if limit > len(s.users) {
		limit = len(s.users)
	}
	return s.users[:limit], nil
}

func TestTop(t *testing.T) {
	store := &fakeBoardStore{users: []domain.User{
		{TelegramID: 1, Username: "first", Coin: 120},
		{TelegramID: 2, Coin: 80},
		{TelegramID: 3, Username: "third", Coin: 15.5},
	}}

	svc := leaderboard.NewService(store, nil)

	entries, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, leaderboard.Entry{Rank: 1, Username: "first", Coin: 120, Prize: "500 ETB"}, entries[0])
	// Accounts without a chosen name fall back to the numeric id.
	assert.Equal(t, "2", entries[1].Username)
	assert.Equal(t, "300 ETB", entries[1].Prize)
	assert.Equal(t, "150 ETB", entries[2].Prize)
}

func TestTop_LimitClamping(t *testing.T) {
	testCases := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero defaults", limit: 0, want: 50},
		{name: "negative defaults", limit: -3, want: 50},
		{name: "capped at max", limit: 1000, want: 200},
		{name: "in range passes through", limit: 25, want: 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeBoardStore{}
			svc := leaderboard.NewService(store, nil)

			_, err := svc.Top(context.Background(), tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, store.lastLimit)
		})
	}
}

func TestPrizeForRank(t *testing.T) {
	assert.Equal(t, "500 ETB", leaderboard.PrizeForRank(1))
	assert.Equal(t, "300 ETB", leaderboard.PrizeForRank(2))
	assert.Equal(t, "150 ETB", leaderboard.PrizeForRank(3))
	assert.Equal(t, "50 ETB", leaderboard.PrizeForRank(4))
	assert.Equal(t, "50 ETB", leaderboard.PrizeForRank(10))
	assert.Equal(t, "—", leaderboard.PrizeForRank(11))
}
