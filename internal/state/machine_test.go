package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	args := m.Called(ctx, userID)
	session, _ := args.Get(0).(*Session)
	return session, args.Error(1)
}

func (m *mockStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	args := m.Called(ctx, userID, session)
	return args.Error(0)
}

func (m *mockStorage) ClearSession(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) AllSessions(ctx context.Context) ([]*Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*Session)
	return sessions, args.Error(1)
}

func TestMachine_SetSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		session     *Session
		expectedErr error
	}{
		{
			name: "start deposit flow from idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), ErrSessionNotFound).Once()
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(s *Session) bool {
					return s.Flow == FlowDepositAmount && s.UserID == userID
				})).Return(nil).Once()
			},
			session:     &Session{Flow: FlowDepositAmount},
			expectedErr: nil,
		},
		{
			name: "advance deposit flow with context",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, Flow: FlowDepositAmount}, nil).Once()
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(s *Session) bool {
					return s.Flow == FlowDepositMethod && s.Deposit != nil && s.Deposit.Amount == 5000
				})).Return(nil).Once()
			},
			session:     &Session{Flow: FlowDepositMethod, Deposit: &DepositContext{Amount: 5000}},
			expectedErr: nil,
		},
		{
			name: "mid-flow entry rejected",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, Flow: FlowIdle}, nil).Once()
			},
			session:     &Session{Flow: FlowDepositReference},
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new flow replaces previous one",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, Flow: FlowDepositReference}, nil).Once()
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(s *Session) bool {
					return s.Flow == FlowUsernameChange
				})).Return(nil).Once()
			},
			session:     &Session{Flow: FlowUsernameChange},
			expectedErr: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.SetSession(ctx, userID, tc.session)

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected error %v, got %v", tc.expectedErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_GetSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(7)
	log := testLogger()

	testCases := []struct {
		name          string
		setupMocks    func(ms *mockStorage)
		expectSession *Session
		expectErr     error
	}{
		{
			name: "session found",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, Flow: FlowDepositMethod}, nil).Once()
			},
			expectSession: &Session{UserID: userID, Flow: FlowDepositMethod},
			expectErr:     nil,
		},
		{
			name: "session not found",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), ErrSessionNotFound).Once()
			},
			expectSession: nil,
			expectErr:     ErrSessionNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)
			fsm := NewMachine(ms, log, nil)

			session, err := fsm.GetSession(ctx, userID)

			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("expected error %v, got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}

			if tc.expectSession != nil && session != nil {
				if tc.expectSession.UserID != session.UserID || tc.expectSession.Flow != session.Flow {
					t.Fatalf("unexpected session: %+v", session)
				}
			} else if tc.expectSession != session {
				t.Fatalf("expected session %+v, got %+v", tc.expectSession, session)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_ClearSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(13)
	log := testLogger()

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		expectErr  error
	}{
		{
			name: "clear session success",
			setupMocks: func(ms *mockStorage) {
				ms.On("ClearSession", mock.Anything, userID).
					Return(nil).Once()
			},
			expectErr: nil,
		},
		{
			name: "clear session error",
			setupMocks: func(ms *mockStorage) {
				ms.On("ClearSession", mock.Anything, userID).
					Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.ClearSession(ctx, userID)

			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("expected error %v, got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_Lock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(100 * time.Millisecond)
	fsm := NewMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := int64(77)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.SetSession(ctx, userID, &Session{Flow: FlowDepositAmount})
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, ErrSessionLocked) {
			locked++
			continue
		}

		t.Fatalf("unexpected error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected 1 successful update, got %d", success)
	}
	if locked != 1 {
		t.Fatalf("expected 1 locked update, got %d", locked)
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type inMemoryStorage struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	delay    time.Duration
}

func newInMemoryStorage(delay time.Duration) *inMemoryStorage {
	return &inMemoryStorage{
		sessions: make(map[int64]*Session),
		delay:    delay,
	}
}

func (s *inMemoryStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (s *inMemoryStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = cloneSession(session)
	return nil
}

func (s *inMemoryStorage) ClearSession(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *inMemoryStorage) AllSessions(ctx context.Context) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, cloneSession(session))
	}

	return result, nil
}

func cloneSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	copied := *session
	if session.Deposit != nil {
		dep := *session.Deposit
		copied.Deposit = &dep
	}
	if session.Receipt != nil {
		rec := *session.Receipt
		copied.Receipt = &rec
	}
	return &copied
}
