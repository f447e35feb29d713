package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// UsageStore is the SQL-backed implementation of usage.Store.
type UsageStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewUsageStore(db *sql.DB, log *slog.Logger) *UsageStore {
	if log == nil {
		log = slog.Default()
	}

	return &UsageStore{db: db, log: log}
}

// Record upserts one (user, month) activity row, refreshing the username so
// the log carries the latest display name.
func (s *UsageStore) Record(ctx context.Context, userID int64, username, month string) error {
	const query = `
		INSERT INTO usage_log (user_id, username, month)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, month) DO UPDATE SET username = EXCLUDED.username
	`

	if _, err := s.db.ExecContext(ctx, query, userID, username, month); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	return nil
}

func (s *UsageStore) CountMonth(ctx context.Context, month string) (int, error) {
	const query = `SELECT COUNT(*) FROM usage_log WHERE month = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, month).Scan(&count); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}

	return count, nil
}
