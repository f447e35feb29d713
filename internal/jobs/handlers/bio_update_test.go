package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBioSetter struct {
	text string
	err  error
}

func (s *stubBioSetter) SetShortDescription(ctx context.Context, text string) error {
	s.text = text
	return s.err
}

type stubCounter struct {
	count int
	err   error
}

func (s *stubCounter) MonthlyCount(ctx context.Context) (int, error) {
	return s.count, s.err
}

func TestBioUpdateHandler(t *testing.T) {
	bio := &stubBioSetter{}
	h := NewBioUpdateHandler(bio, &stubCounter{count: 1234}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask("bio:update", nil))
	require.NoError(t, err)
	assert.Equal(t, "🎱 1,234 players this month. Play bingo, win ETB!", bio.text)
}

func TestBioUpdateHandler_CountError(t *testing.T) {
	bio := &stubBioSetter{}
	h := NewBioUpdateHandler(bio, &stubCounter{err: errors.New("db down")}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask("bio:update", nil))
	require.Error(t, err)
	assert.Empty(t, bio.text, "bio must not change when the count fails")
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", groupDigits(0))
	assert.Equal(t, "999", groupDigits(999))
	assert.Equal(t, "1,000", groupDigits(1000))
	assert.Equal(t, "1,234,567", groupDigits(1234567))
}
