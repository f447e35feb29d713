package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cleanerScanBatchCount = 100

// Cleaner sweeps stalled conversation sessions on a schedule. Redis key TTLs
// already expire most of them; the sweep catches sessions restored without a
// TTL (RDB loads) and keeps a stalled-flow log trail.
type Cleaner struct {
	redisClient *redis.Client
	storage     Storage
	log         *slog.Logger
	ttl         time.Duration
	interval    time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(redisClient *redis.Client, storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: redisClient,
		storage:     storage,
		log:         log,
		ttl:         ttl,
		interval:    interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.redisClient == nil || c.storage == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if reason := ctx.Err(); reason != nil {
				c.log.Info("session cleaner stopped", slog.String("reason", reason.Error()))
			} else {
				c.log.Info("session cleaner stopped")
			}
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, sessionScanPattern, cleanerScanBatchCount).Result()
		if err != nil {
			c.log.Error("session cleaner scan failed", slog.Any("error", err))
			return
		}

		for _, key := range keys {
			userID, err := extractUserID(key)
			if err != nil {
				c.log.Warn("session cleaner unable to parse user id", slog.String("key", key), slog.Any("error", err))
				continue
			}

			session, err := c.storage.GetSession(ctx, userID)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					c.log.Error("session cleaner failed to load session", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				continue
			}

			if session == nil || session.Idle() {
				continue
			}

			if time.Since(session.UpdatedAt) > c.ttl {
				if err := c.storage.ClearSession(ctx, userID); err != nil {
					c.log.Error("session cleaner failed to clear session", slog.Int64("user_id", userID), slog.Any("error", err))
					continue
				}
				c.log.Info("stalled conversation cleared",
					slog.Int64("user_id", userID),
					slog.String("flow", string(session.Flow)),
				)
			}
		}

		if ctx.Err() != nil || nextCursor == 0 {
			return
		}
		cursor = nextCursor
	}
}

func extractUserID(key string) (int64, error) {
	segments := strings.Split(key, ":")
	if len(segments) == 0 {
		return 0, fmt.Errorf("invalid key format: %s", key)
	}

	return strconv.ParseInt(segments[len(segments)-1], 10, 64)
}
