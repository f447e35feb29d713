package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPattern  = "user:session:%d"
	sessionScanPattern = "user:session:*"

	// DefaultSessionTTL bounds how long an abandoned conversation survives.
	// The TTL refreshes on every step, so only genuinely stalled flows expire.
	DefaultSessionTTL = time.Hour
)

// RedisStorage persists conversation sessions in Redis.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation. A zero
// ttl falls back to DefaultSessionTTL.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetSession returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	key := sessionKey(userID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get session from redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		s.log.Error("failed to decode session", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return &session, nil
}

// SetSession saves the session, refreshing its TTL.
func (s *RedisStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		s.log.Error("failed to encode session", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	if err := s.client.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

// ClearSession removes the stored session for the given user.
func (s *RedisStorage) ClearSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear session", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	return nil
}

// AllSessions retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) AllSessions(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", slog.Any("error", err))
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch session", slog.String("key", key), slog.Any("error", err))
				return nil, err
			}

			var session Session
			if err := json.Unmarshal([]byte(data), &session); err != nil {
				s.log.Error("failed to decode session", slog.String("key", key), slog.Any("error", err))
				continue
			}

			copied := session
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func sessionKey(userID int64) string {
	return fmt.Sprintf(sessionKeyPattern, userID)
}
