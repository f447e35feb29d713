package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/registry"
)

// pqUniqueViolation is the Postgres error code for a unique constraint hit.
const pqUniqueViolation = "23505"

// AdminTxnStore is the SQL-backed implementation of registry.Store.
type AdminTxnStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewAdminTxnStore(db *sql.DB, log *slog.Logger) *AdminTxnStore {
	if log == nil {
		log = slog.Default()
	}

	return &AdminTxnStore{db: db, log: log}
}

// Insert stores one ground-truth record. A duplicate reference surfaces as
// registry.ErrDuplicateReference for the service to swallow.
func (s *AdminTxnStore) Insert(ctx context.Context, txn *domain.AdminTxn) error {
	const query = `
		INSERT INTO admin_txns (method, reference, amount, notes)
		VALUES ($1, $2, NULLIF($3, 0), $4)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		txn.Method, txn.Reference, txn.Amount, txn.Notes,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return registry.ErrDuplicateReference
		}
		return fmt.Errorf("insert admin txn: %w", err)
	}

	return nil
}

// Query lists records, unconsumed first, then newest first.
func (s *AdminTxnStore) Query(ctx context.Context, f registry.Filter) ([]domain.AdminTxn, error) {
	var (
		conds []string
		args  []any
	)

	if f.OnlyUnconsumed {
		conds = append(conds, "consumed_by IS NULL")
	}
	if f.Method != "" {
		args = append(args, f.Method)
		conds = append(conds, fmt.Sprintf("method = $%d", len(args)))
	}

	query := `
		SELECT id, method, reference, COALESCE(amount, 0), notes,
		       COALESCE(consumed_by, 0), consumed_at, created_at
		FROM admin_txns
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY (consumed_by IS NULL) DESC, created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select admin txns: %w", err)
	}
	defer rows.Close()

	var txns []domain.AdminTxn
	for rows.Next() {
		var txn domain.AdminTxn
		if err := rows.Scan(
			&txn.ID,
			&txn.Method,
			&txn.Reference,
			&txn.Amount,
			&txn.Notes,
			&txn.ConsumedBy,
			&txn.ConsumedAt,
			&txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan admin txn: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin txns: %w", err)
	}

	return txns, nil
}
