// Package ledger implements deposit reconciliation against operator-entered
// transaction records and the manual moderation queue for unmatched claims.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/pkg/metrics"
)

// ErrNoMatch is returned by StoreTx.ConsumeAdminTxn when no unconsumed record
// exists for the (reference, method) pair. Absent and already-consumed records
// are deliberately indistinguishable: both fall back to manual review.
var ErrNoMatch = errors.New("no unconsumed admin transaction matches")

// Store is the transactional persistence boundary of the engine. ExecuteTx
// runs fn atomically: either every mutation issued through the StoreTx is
// committed or none is.
type Store interface {
	ExecuteTx(ctx context.Context, fn func(StoreTx) error) error
	ListPending(ctx context.Context) ([]domain.Deposit, error)
	CountPending(ctx context.Context) (int, error)
}

// StoreTx exposes the mutations available inside one ledger transaction.
type StoreTx interface {
	// ConsumeAdminTxn atomically marks the matching unconsumed record as used
	// by userID. Returns ErrNoMatch when nothing was consumed; the underlying
	// compare-and-set (WHERE consumed_by IS NULL) is the concurrency backstop.
	ConsumeAdminTxn(ctx context.Context, method, reference string, userID int64, at time.Time) (*domain.AdminTxn, error)
	CreateDeposit(ctx context.Context, dep *domain.Deposit) error
	DepositByID(ctx context.Context, id int64) (*domain.Deposit, error)
	// ApprovePendingDeposit flips status pending->approved and returns the
	// updated row, or ErrNoMatch when the deposit is not currently pending.
	ApprovePendingDeposit(ctx context.Context, id int64, at time.Time) (*domain.Deposit, error)
	CreditBalance(ctx context.Context, userID, amount int64) error
}

// Outcome describes the result of one reconciliation attempt.
type Outcome struct {
	Approved bool
	Deposit  *domain.Deposit
	Credited int64
	Message  string
}

const (
	msgApproved  = "✅ Deposit confirmed! Your balance has been credited."
	msgSubmitted = "🕒 Your deposit was submitted for review. You will be credited once an operator confirms it."
)

// Service is the reconciliation engine and moderation queue.
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

// Reconcile matches a user claim against the admin transaction registry.
//
// On a match with an unconsumed record it creates an approved deposit,
// credits the balance, and marks the record consumed, all in one transaction.
// On no match (or an already consumed record) it creates a pending deposit
// for manual review and touches nothing else.
func (s *Service) Reconcile(ctx context.Context, userID int64, method string, amount int64, reference string) (*Outcome, error) {
	method = domain.NormalizeMethod(method)
	if !domain.IsSupportedMethod(method) {
		metrics.RecordReconcile("rejected")
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported payment method %q", method))
	}

	reference = strings.TrimSpace(reference)
	if len(reference) < domain.MinReferenceLen {
		metrics.RecordReconcile("rejected")
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("reference must be at least %d characters", domain.MinReferenceLen))
	}

	now := time.Now().UTC()
	var outcome Outcome

	err := s.store.ExecuteTx(ctx, func(tx StoreTx) error {
		txn, err := tx.ConsumeAdminTxn(ctx, method, reference, userID, now)
		if err != nil && !errors.Is(err, ErrNoMatch) {
			return err
		}

		if errors.Is(err, ErrNoMatch) {
			dep := &domain.Deposit{
				UserID:    userID,
				Amount:    maxInt64(amount, 0),
				Method:    method,
				Reference: reference,
				Status:    domain.DepositPending,
				CreatedAt: now,
			}
			if err := tx.CreateDeposit(ctx, dep); err != nil {
				return err
			}

			outcome = Outcome{Approved: false, Deposit: dep, Message: msgSubmitted}
			return nil
		}

		credit := creditAmount(amount, txn)

		approvedAt := now
		dep := &domain.Deposit{
			UserID:     userID,
			Amount:     credit,
			Method:     method,
			Reference:  reference,
			Status:     domain.DepositApproved,
			CreatedAt:  now,
			ApprovedAt: &approvedAt,
		}
		if err := tx.CreateDeposit(ctx, dep); err != nil {
			return err
		}

		if err := tx.CreditBalance(ctx, userID, credit); err != nil {
			return err
		}

		outcome = Outcome{Approved: true, Deposit: dep, Credited: credit, Message: msgApproved}
		return nil
	})
	if err != nil {
		s.log.Error("reconcile failed",
			slog.Int64("user_id", userID),
			slog.String("method", method),
			slog.Any("error", err),
		)
		return nil, apperrors.NewDatabaseError(err)
	}

	if outcome.Approved {
		metrics.RecordReconcile("approved")
		s.log.Info("deposit auto-approved",
			slog.Int64("user_id", userID),
			slog.String("method", method),
			slog.Int64("credited", outcome.Credited),
		)
	} else {
		metrics.RecordReconcile("pending")
		s.log.Info("deposit queued for review",
			slog.Int64("user_id", userID),
			slog.String("method", method),
		)
	}

	return &outcome, nil
}

// creditAmount picks the user-claimed amount when present and positive, else
// the admin record's expected amount, else zero.
func creditAmount(claimed int64, txn *domain.AdminTxn) int64 {
	if claimed > 0 {
		return claimed
	}
	if txn != nil && txn.Amount > 0 {
		return txn.Amount
	}
	return 0
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
