package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested flow change is not allowed.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrSessionNotFound indicates that no session record exists for the user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLocked indicates that a concurrent update already holds the lock.
	ErrSessionLocked = errors.New("session is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe flow transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Machine describes the operations supported by the conversation controller.
type Machine interface {
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession validates the transition from the current flow and saves the
	// new session under a per-user lock.
	SetSession(ctx context.Context, userID int64, session *Session) error
	ClearSession(ctx context.Context, userID int64) error
	AllSessions(ctx context.Context) ([]*Session, error)
}

// machine is a concrete Machine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewMachine creates the conversation controller using the provided storage
// backend and redis client for locking.
func NewMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) Machine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

func (m *machine) GetSession(ctx context.Context, userID int64) (*Session, error) {
	return m.storage.GetSession(ctx, userID)
}

func (m *machine) AllSessions(ctx context.Context) ([]*Session, error) {
	return m.storage.AllSessions(ctx)
}

// SetSession checks the transition from the stored flow to session.Flow and
// persists the session while holding the per-user lock, so two concurrent
// updates can never interleave their read-check-write sequences.
func (m *machine) SetSession(ctx context.Context, userID int64, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	current := FlowIdle
	stored, err := m.storage.GetSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	} else if stored != nil && stored.Flow != "" {
		current = stored.Flow
	}

	if !IsTransitionAllowed(current, session.Flow) {
		m.log.Warn("invalid flow transition",
			slog.Int64("user_id", userID),
			slog.String("from", string(current)),
			slog.String("to", string(session.Flow)),
		)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(session.Flow))

	session.UserID = userID
	return m.storage.SetSession(ctx, userID, session)
}

func (m *machine) ClearSession(ctx context.Context, userID int64) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.storage.ClearSession(ctx, userID)
}

func (m *machine) lock(ctx context.Context, userID int64) error {
	if m.redisClient == nil {
		m.log.Warn("redis client not configured for session locks; skipping", slog.Int64("user_id", userID))
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	if !acquired {
		m.log.Warn("session lock already held", slog.Int64("user_id", userID))
		return ErrSessionLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, userID int64) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release session lock", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
