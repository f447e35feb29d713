// Package state manages per-user conversation sessions for the bot.
package state

import "context"

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// GetSession returns the session for the user or ErrSessionNotFound.
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession saves the session for the user.
	SetSession(ctx context.Context, userID int64, session *Session) error
	// ClearSession removes the session for the user.
	ClearSession(ctx context.Context, userID int64) error
	// AllSessions returns every stored session.
	AllSessions(ctx context.Context) ([]*Session, error)
}
