package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/pkg/metrics"
)

// ListPending returns deposits waiting for manual review, oldest first, so
// the earliest claims are looked at first.
func (s *Service) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	deposits, err := s.store.ListPending(ctx)
	if err != nil {
		s.log.Error("list pending deposits failed", slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	return deposits, nil
}

// Approve credits the owning user's balance for a pending deposit and marks
// it approved. A deposit can only ever be approved once: the status check is
// part of the same UPDATE that flips it, so a repeated call surfaces
// InvalidState instead of double-crediting.
func (s *Service) Approve(ctx context.Context, depositID int64) (*domain.Deposit, error) {
	now := time.Now().UTC()

	var approved *domain.Deposit
	err := s.store.ExecuteTx(ctx, func(tx StoreTx) error {
		dep, err := tx.ApprovePendingDeposit(ctx, depositID, now)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				existing, getErr := tx.DepositByID(ctx, depositID)
				if getErr != nil {
					if errors.Is(getErr, ErrNoMatch) {
						return apperrors.NewNotFoundError(fmt.Sprintf("deposit %d does not exist", depositID))
					}
					return getErr
				}
				return apperrors.NewInvalidStateError(
					fmt.Sprintf("deposit %d is %s, not pending", depositID, existing.Status))
			}
			return err
		}

		if err := tx.CreditBalance(ctx, dep.UserID, dep.Amount); err != nil {
			return err
		}

		approved = dep
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}

		s.log.Error("approve deposit failed", slog.Int64("deposit_id", depositID), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.RecordModerationApproval()
	s.log.Info("pending deposit approved",
		slog.Int64("deposit_id", depositID),
		slog.Int64("user_id", approved.UserID),
		slog.Int64("amount", approved.Amount),
	)

	return approved, nil
}

// PendingCount reports the moderation queue depth for metrics.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.store.CountPending(ctx)
}
