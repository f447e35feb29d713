package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	ctx := context.Background()
	session := &Session{
		UserID: 123,
		Flow:   FlowDepositReference,
		Deposit: &DepositContext{
			Amount: 5000,
			Method: "telebirr",
		},
	}

	err := storage.SetSession(ctx, session.UserID, session)
	assert.NoError(t, err)

	result, err := storage.GetSession(ctx, session.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, session.UserID, result.UserID)
		assert.Equal(t, session.Flow, result.Flow)
		assert.Equal(t, session.Deposit, result.Deposit)
		assert.Nil(t, result.Receipt)
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	session, err := storage.GetSession(context.Background(), 999)
	assert.Nil(t, session)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_ClearSession(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	ctx := context.Background()
	session := &Session{
		UserID: 456,
		Flow:   FlowUsernameChange,
	}

	err := storage.SetSession(ctx, session.UserID, session)
	assert.NoError(t, err)

	err = storage.ClearSession(ctx, session.UserID)
	assert.NoError(t, err)

	result, err := storage.GetSession(ctx, session.UserID)
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_TTLRefreshedOnWrite(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 30*time.Second)

	ctx := context.Background()
	err := storage.SetSession(ctx, 7, &Session{UserID: 7, Flow: FlowDepositAmount})
	assert.NoError(t, err)

	ttl := client.TTL(ctx, "user:session:7").Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Second)
}

func TestRedisStorage_AllSessions(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	ctx := context.Background()
	assert.NoError(t, storage.SetSession(ctx, 1, &Session{UserID: 1, Flow: FlowDepositAmount}))
	assert.NoError(t, storage.SetSession(ctx, 2, &Session{UserID: 2, Flow: FlowReceiptUpload}))

	sessions, err := storage.AllSessions(ctx)
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
}
