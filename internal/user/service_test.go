package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/user"
)

// fakeUserStore backs the service with a map and doubles as its own StoreTx.
type fakeUserStore struct {
	users map[int64]*domain.User
	coins map[int64]float64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[int64]*domain.User),
		coins: make(map[int64]float64),
	}
}

func (s *fakeUserStore) ExecuteTx(ctx context.Context, fn func(user.StoreTx) error) error {
	return fn(s)
}

func (s *fakeUserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *fakeUserStore) Create(ctx context.Context, u *domain.User) error {
	s.users[u.TelegramID] = u
	return nil
}

func (s *fakeUserStore) SetUsername(ctx context.Context, id int64, username string) error {
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Username = username
	return nil
}

func (s *fakeUserStore) CountUsers(ctx context.Context) (int, error) {
	return len(s.users), nil
}

func (s *fakeUserStore) SetPhone(ctx context.Context, id int64, phone string) (bool, error) {
	u, ok := s.users[id]
	if !ok {
		return false, user.ErrNotFound
	}

	firstTime := u.Phone == ""
	u.Phone = phone
	return firstTime, nil
}

func (s *fakeUserStore) AddCoin(ctx context.Context, id int64, amount float64) error {
	s.coins[id] += amount
	return nil
}

func TestGetOrCreate(t *testing.T) {
	t.Run("creates with coin seed and referrer", func(t *testing.T) {
		store := newFakeUserStore()
		store.users[100] = &domain.User{TelegramID: 100}

		svc := user.NewService(store, nil)

		u, err := svc.GetOrCreate(context.Background(), &telebot.User{ID: 5, Username: "alice"}, 100)
		require.NoError(t, err)

		assert.Equal(t, domain.CoinSeed, u.Coin)
		assert.Equal(t, int64(100), u.ReferrerID)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("self referral dropped", func(t *testing.T) {
		store := newFakeUserStore()
		svc := user.NewService(store, nil)

		u, err := svc.GetOrCreate(context.Background(), &telebot.User{ID: 5}, 5)
		require.NoError(t, err)
		assert.Zero(t, u.ReferrerID)
	})

	t.Run("unknown inviter dropped", func(t *testing.T) {
		store := newFakeUserStore()
		svc := user.NewService(store, nil)

		u, err := svc.GetOrCreate(context.Background(), &telebot.User{ID: 5}, 999)
		require.NoError(t, err)
		assert.Zero(t, u.ReferrerID)
	})

	t.Run("existing account untouched", func(t *testing.T) {
		store := newFakeUserStore()
		store.users[5] = &domain.User{TelegramID: 5, Username: "old", Coin: 42}

		svc := user.NewService(store, nil)

		u, err := svc.GetOrCreate(context.Background(), &telebot.User{ID: 5, Username: "new"}, 100)
		require.NoError(t, err)
		assert.Equal(t, "old", u.Username)
		assert.Equal(t, 42.0, u.Coin)
	})
}

func TestCompleteRegistration(t *testing.T) {
	t.Run("first registration pays referral bonus", func(t *testing.T) {
		store := newFakeUserStore()
		store.users[100] = &domain.User{TelegramID: 100}
		store.users[5] = &domain.User{TelegramID: 5, ReferrerID: 100}

		svc := user.NewService(store, nil)

		u, err := svc.CompleteRegistration(context.Background(), 5, "+251911111111")
		require.NoError(t, err)

		assert.Equal(t, "+251911111111", u.Phone)
		assert.Equal(t, domain.ReferralBonus, store.coins[100])
	})

	t.Run("re-sharing updates phone but never re-pays", func(t *testing.T) {
		store := newFakeUserStore()
		store.users[100] = &domain.User{TelegramID: 100}
		store.users[5] = &domain.User{TelegramID: 5, ReferrerID: 100, Phone: "+251911111111"}

		svc := user.NewService(store, nil)

		u, err := svc.CompleteRegistration(context.Background(), 5, "+251922222222")
		require.NoError(t, err)

		assert.Equal(t, "+251922222222", u.Phone)
		assert.Zero(t, store.coins[100])
	})

	t.Run("no bonus without referrer", func(t *testing.T) {
		store := newFakeUserStore()
		store.users[5] = &domain.User{TelegramID: 5}

		svc := user.NewService(store, nil)

		_, err := svc.CompleteRegistration(context.Background(), 5, "+251911111111")
		require.NoError(t, err)
		assert.Empty(t, store.coins)
	})

	t.Run("blank phone rejected", func(t *testing.T) {
		svc := user.NewService(newFakeUserStore(), nil)

		_, err := svc.CompleteRegistration(context.Background(), 5, "   ")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "E100", appErr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := user.NewService(newFakeUserStore(), nil)

		_, err := svc.CompleteRegistration(context.Background(), 5, "+251911111111")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "E110", appErr.Code)
	})
}

func TestSetUsername(t *testing.T) {
	store := newFakeUserStore()
	store.users[5] = &domain.User{TelegramID: 5}

	svc := user.NewService(store, nil)

	require.NoError(t, svc.SetUsername(context.Background(), 5, "  lucky_player "))
	assert.Equal(t, "lucky_player", store.users[5].Username)

	testCases := []struct {
		name     string
		id       int64
		username string
		wantCode string
	}{
		{name: "empty", id: 5, username: "  ", wantCode: "E100"},
		{name: "too long", id: 5, username: "abcdefghijklmnopqrstuvwxyz0123456789", wantCode: "E100"},
		{name: "unknown user", id: 404, username: "ok", wantCode: "E110"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SetUsername(context.Background(), tc.id, tc.username)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}
