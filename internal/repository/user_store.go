// Package repository implements the services' persistence contracts over
// Postgres (database/sql + lib/pq).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luckybingo/bingo-bot/internal/database"
	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/user"
)

// querier is the subset of *sql.DB and *sql.Tx the scan helpers need.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectUserColumns = `
	SELECT telegram_id, username, phone, balance, coin, COALESCE(referrer_id, 0), created_at
	FROM users
`

// UserStore is the SQL-backed implementation of user.Store and the
// leaderboard ranking query.
type UserStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewUserStore(db *sql.DB, log *slog.Logger) *UserStore {
	if log == nil {
		log = slog.Default()
	}

	return &UserStore{db: db, log: log}
}

// ExecuteTx runs fn inside one transaction over the users table.
func (s *UserStore) ExecuteTx(ctx context.Context, fn func(user.StoreTx) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&userTx{q: tx})
	})
}

func (s *UserStore) FindByID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return findUserByID(ctx, s.db, telegramID)
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	const query = `
		INSERT INTO users (telegram_id, username, phone, balance, coin, referrer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7)
	`

	if _, err := s.db.ExecContext(ctx, query,
		u.TelegramID, u.Username, u.Phone, u.Balance, u.Coin, u.ReferrerID, u.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (s *UserStore) SetUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `UPDATE users SET username = $2 WHERE telegram_id = $1`

	res, err := s.db.ExecContext(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update username rows: %w", err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users`

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// TopByCoin returns the leaderboard ordering: coin desc, telegram_id asc.
func (s *UserStore) TopByCoin(ctx context.Context, limit int) ([]domain.User, error) {
	query := selectUserColumns + `
		ORDER BY coin DESC, telegram_id ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}

	return users, nil
}

// userTx adapts one *sql.Tx to the user.StoreTx contract.
type userTx struct {
	q querier
}

func (t *userTx) FindByID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return findUserByID(ctx, t.q, telegramID)
}

// SetPhone records the phone and reports whether the account was previously
// unregistered. The previous value is read in the same UPDATE via a
// self-join so the check and the write cannot race.
func (t *userTx) SetPhone(ctx context.Context, telegramID int64, phone string) (bool, error) {
	const query = `
		UPDATE users u
		SET phone = $2
		FROM (SELECT telegram_id, phone AS old_phone FROM users WHERE telegram_id = $1 FOR UPDATE) prev
		WHERE u.telegram_id = prev.telegram_id
		RETURNING prev.old_phone
	`

	var oldPhone string
	if err := t.q.QueryRowContext(ctx, query, telegramID, phone).Scan(&oldPhone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, user.ErrNotFound
		}
		return false, fmt.Errorf("set phone: %w", err)
	}

	return oldPhone == "", nil
}

func (t *userTx) AddCoin(ctx context.Context, telegramID int64, amount float64) error {
	const query = `UPDATE users SET coin = coin + $2 WHERE telegram_id = $1`

	if _, err := t.q.ExecContext(ctx, query, telegramID, amount); err != nil {
		return fmt.Errorf("add coin: %w", err)
	}

	return nil
}

func findUserByID(ctx context.Context, q querier, telegramID int64) (*domain.User, error) {
	query := selectUserColumns + ` WHERE telegram_id = $1`

	u, err := scanUser(q.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.TelegramID,
		&u.Username,
		&u.Phone,
		&u.Balance,
		&u.Coin,
		&u.ReferrerID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &u, nil
}
