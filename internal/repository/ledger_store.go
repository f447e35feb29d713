package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luckybingo/bingo-bot/internal/database"
	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/ledger"
)

const selectDepositColumns = `
	SELECT id, user_id, amount, method, reference, status, created_at, approved_at
	FROM deposits
`

// LedgerStore is the SQL-backed implementation of ledger.Store. Every
// reconciliation runs inside one transaction so the consumption marker, the
// deposit row, and the balance credit commit together.
type LedgerStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewLedgerStore(db *sql.DB, log *slog.Logger) *LedgerStore {
	if log == nil {
		log = slog.Default()
	}

	return &LedgerStore{db: db, log: log}
}

func (s *LedgerStore) ExecuteTx(ctx context.Context, fn func(ledger.StoreTx) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&ledgerTx{q: tx})
	})
}

func (s *LedgerStore) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	query := selectDepositColumns + `
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select pending deposits: %w", err)
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		dep, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, *dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending deposits: %w", err)
	}

	return deposits, nil
}

func (s *LedgerStore) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM deposits WHERE status = 'pending'`

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending deposits: %w", err)
	}

	return count, nil
}

// ledgerTx adapts one *sql.Tx to the ledger.StoreTx contract.
type ledgerTx struct {
	q querier
}

// ConsumeAdminTxn is the compare-and-set at the heart of reconciliation: the
// WHERE consumed_by IS NULL guard guarantees a record matches at most one
// claim even under concurrent submissions of the same reference.
func (t *ledgerTx) ConsumeAdminTxn(ctx context.Context, method, reference string, userID int64, at time.Time) (*domain.AdminTxn, error) {
	const query = `
		UPDATE admin_txns
		SET consumed_by = $3, consumed_at = $4
		WHERE reference = $1 AND method = $2 AND consumed_by IS NULL
		RETURNING id, method, reference, COALESCE(amount, 0), notes, consumed_by, consumed_at, created_at
	`

	var txn domain.AdminTxn
	err := t.q.QueryRowContext(ctx, query, reference, method, userID, at).Scan(
		&txn.ID,
		&txn.Method,
		&txn.Reference,
		&txn.Amount,
		&txn.Notes,
		&txn.ConsumedBy,
		&txn.ConsumedAt,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNoMatch
		}
		return nil, fmt.Errorf("consume admin txn: %w", err)
	}

	return &txn, nil
}

func (t *ledgerTx) CreateDeposit(ctx context.Context, dep *domain.Deposit) error {
	const query = `
		INSERT INTO deposits (user_id, amount, method, reference, status, created_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := t.q.QueryRowContext(ctx, query,
		dep.UserID, dep.Amount, dep.Method, dep.Reference, dep.Status, dep.CreatedAt, dep.ApprovedAt,
	).Scan(&dep.ID)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}

	return nil
}

func (t *ledgerTx) DepositByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	query := selectDepositColumns + ` WHERE id = $1`

	dep, err := scanDeposit(t.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNoMatch
		}
		return nil, fmt.Errorf("select deposit: %w", err)
	}

	return dep, nil
}

// ApprovePendingDeposit flips pending -> approved. The status guard in the
// WHERE clause makes repeated approvals surface as ErrNoMatch instead of a
// second credit.
func (t *ledgerTx) ApprovePendingDeposit(ctx context.Context, id int64, at time.Time) (*domain.Deposit, error) {
	const query = `
		UPDATE deposits
		SET status = 'approved', approved_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, amount, method, reference, status, created_at, approved_at
	`

	dep, err := scanDeposit(t.q.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNoMatch
		}
		return nil, fmt.Errorf("approve deposit: %w", err)
	}

	return dep, nil
}

func (t *ledgerTx) CreditBalance(ctx context.Context, userID, amount int64) error {
	const query = `UPDATE users SET balance = balance + $2 WHERE telegram_id = $1`

	res, err := t.q.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("credit balance: user %d not found", userID)
	}

	return nil
}

func scanDeposit(row rowScanner) (*domain.Deposit, error) {
	var dep domain.Deposit
	if err := row.Scan(
		&dep.ID,
		&dep.UserID,
		&dep.Amount,
		&dep.Method,
		&dep.Reference,
		&dep.Status,
		&dep.CreatedAt,
		&dep.ApprovedAt,
	); err != nil {
		return nil, err
	}

	return &dep, nil
}
