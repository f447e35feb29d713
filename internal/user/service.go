// Package user manages player accounts: profile creation, the phone-number
// registration gate, and the one-time referral bonus paid to inviters.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/pkg/metrics"
)

// ErrNotFound is returned by Store lookups when no account exists for the id.
var ErrNotFound = errors.New("user not found")

const maxUsernameLen = 32

// Store is the persistence contract for accounts. ExecuteTx runs fn
// atomically so that setting the phone and paying the referral bonus commit
// together or not at all.
type Store interface {
	ExecuteTx(ctx context.Context, fn func(StoreTx) error) error
	FindByID(ctx context.Context, telegramID int64) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SetUsername(ctx context.Context, telegramID int64, username string) error
	CountUsers(ctx context.Context) (int, error)
}

// StoreTx exposes the mutations available inside one account transaction.
type StoreTx interface {
	FindByID(ctx context.Context, telegramID int64) (*domain.User, error)
	// SetPhone records the phone and reports whether the account was
	// previously unregistered (no phone on file). The flag gates the one-time
	// referral bonus.
	SetPhone(ctx context.Context, telegramID int64, phone string) (bool, error)
	AddCoin(ctx context.Context, telegramID int64, amount float64) error
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

// GetOrCreate fetches the account for a Telegram user, creating it on first
// contact. referrerID is the inviter from a /start deep link; self-referrals
// and unknown inviters are silently dropped.
func (s *Service) GetOrCreate(ctx context.Context, tgUser *telebot.User, referrerID int64) (*domain.User, error) {
	if tgUser == nil {
		return nil, errors.New("telegram user is nil")
	}

	u, err := s.store.FindByID(ctx, tgUser.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.log.Error("find user failed", slog.Int64("telegram_id", tgUser.ID), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	if referrerID == tgUser.ID {
		referrerID = 0
	}
	if referrerID != 0 {
		if _, err := s.store.FindByID(ctx, referrerID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, apperrors.NewDatabaseError(err)
			}
			referrerID = 0
		}
	}

	newUser := &domain.User{
		TelegramID: tgUser.ID,
		Username:   tgUser.Username,
		Coin:       domain.CoinSeed,
		ReferrerID: referrerID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, newUser); err != nil {
		s.log.Error("create user failed", slog.Int64("telegram_id", tgUser.ID), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.RecordUserCreated()
	s.log.Info("user created",
		slog.Int64("telegram_id", tgUser.ID),
		slog.Int64("referrer_id", referrerID),
	)

	return newUser, nil
}

// Get returns the account or a NotFound error.
func (s *Service) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	u, err := s.store.FindByID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %d does not exist", telegramID))
		}
		return nil, apperrors.NewDatabaseError(err)
	}

	return u, nil
}

// CompleteRegistration records the shared phone number and, on the first
// completion only, pays the inviter's referral bonus. Re-sharing a contact
// updates the phone but never pays a second bonus: registration is
// one-directional.
func (s *Service) CompleteRegistration(ctx context.Context, telegramID int64, phone string) (*domain.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("phone number is required")
	}

	var (
		registered *domain.User
		bonusPaid  bool
	)

	err := s.store.ExecuteTx(ctx, func(tx StoreTx) error {
		u, err := tx.FindByID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperrors.NewNotFoundError(fmt.Sprintf("user %d does not exist", telegramID))
			}
			return err
		}

		firstTime, err := tx.SetPhone(ctx, telegramID, phone)
		if err != nil {
			return err
		}

		u.Phone = phone
		registered = u

		if firstTime && u.ReferrerID != 0 {
			if err := tx.AddCoin(ctx, u.ReferrerID, domain.ReferralBonus); err != nil {
				return err
			}
			bonusPaid = true
		}

		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}

		s.log.Error("complete registration failed", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	if bonusPaid {
		metrics.RecordReferralBonus()
		s.log.Info("referral bonus paid",
			slog.Int64("invitee_id", telegramID),
			slog.Int64("referrer_id", registered.ReferrerID),
		)
	}

	return registered, nil
}

// SetUsername updates the leaderboard display name.
func (s *Service) SetUsername(ctx context.Context, telegramID int64, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperrors.NewValidationError("username must not be empty")
	}
	if len(username) > maxUsernameLen {
		return apperrors.NewValidationError(fmt.Sprintf("username must be at most %d characters", maxUsernameLen))
	}

	if err := s.store.SetUsername(ctx, telegramID, username); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("user %d does not exist", telegramID))
		}
		s.log.Error("set username failed", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return apperrors.NewDatabaseError(err)
	}

	return nil
}

// Count reports the total number of accounts. Used by the bio refresh job.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountUsers(ctx)
}
