// Package registry manages operator-entered ground-truth payment records.
// Records are single-use tokens consumed by the reconciliation engine; this
// package itself never touches balances.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
)

// ErrDuplicateReference is returned by Store.Insert when the reference is
// already registered. Re-imports are expected; duplicates are not errors.
var ErrDuplicateReference = errors.New("reference already registered")

// Filter narrows Query results.
type Filter struct {
	OnlyUnconsumed bool
	Method         string
	Limit          int
}

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// Store is the persistence contract for admin transaction records.
type Store interface {
	Insert(ctx context.Context, txn *domain.AdminTxn) error
	Query(ctx context.Context, f Filter) ([]domain.AdminTxn, error)
}

// Record is one bulk-import entry before validation.
type Record struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
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

// Insert registers a single ground-truth record. Inserting an existing
// reference is a silent no-op so that re-running an import is safe.
func (s *Service) Insert(ctx context.Context, method, reference string, amount int64, notes string) error {
	_, err := s.insertOnce(ctx, method, reference, amount, notes)
	return err
}

func (s *Service) insertOnce(ctx context.Context, method, reference string, amount int64, notes string) (bool, error) {
	method = domain.NormalizeMethod(method)
	reference = strings.TrimSpace(reference)

	if method == "" || reference == "" {
		return false, apperrors.NewValidationError("method and reference are required")
	}

	err := s.store.Insert(ctx, &domain.AdminTxn{
		Method:    method,
		Reference: reference,
		Amount:    amount,
		Notes:     strings.TrimSpace(notes),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			s.log.Debug("duplicate admin txn ignored", slog.String("reference", reference))
			return false, nil
		}
		s.log.Error("insert admin txn failed", slog.String("reference", reference), slog.Any("error", err))
		return false, apperrors.NewDatabaseError(err)
	}

	return true, nil
}

// BulkInsert applies Insert per record. Records missing method or reference
// count as skipped and are never partially stored; duplicates also count as
// skipped because nothing new was added.
func (s *Service) BulkInsert(ctx context.Context, records []Record) (*ImportResult, error) {
	result := &ImportResult{}

	for _, rec := range records {
		added, err := s.insertOnce(ctx, rec.Method, rec.Reference, rec.Amount, rec.Notes)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == "E100" {
				result.Skipped++
				continue
			}
			return nil, err
		}

		if added {
			result.Added++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// Query lists records, unconsumed first, then newest first.
func (s *Service) Query(ctx context.Context, f Filter) ([]domain.AdminTxn, error) {
	f.Method = domain.NormalizeMethod(f.Method)
	if f.Limit <= 0 {
		f.Limit = defaultQueryLimit
	}
	if f.Limit > maxQueryLimit {
		f.Limit = maxQueryLimit
	}

	txns, err := s.store.Query(ctx, f)
	if err != nil {
		s.log.Error("query admin txns failed", slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(err)
	}

	return txns, nil
}
