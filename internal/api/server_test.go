package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckybingo/bingo-bot/internal/api"
	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
	"github.com/luckybingo/bingo-bot/internal/ledger"
	"github.com/luckybingo/bingo-bot/internal/registry"
)

// fakeLedgerStore is an in-memory ledger.Store that doubles as its own
// transaction handle.
type fakeLedgerStore struct {
	txn      *domain.AdminTxn
	deposits []*domain.Deposit
	credits  map[int64]int64
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{credits: make(map[int64]int64)}
}

func (s *fakeLedgerStore) ExecuteTx(ctx context.Context, fn func(ledger.StoreTx) error) error {
	return fn(s)
}

func (s *fakeLedgerStore) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	var pending []domain.Deposit
	for _, d := range s.deposits {
		if d.Status == domain.DepositPending {
			pending = append(pending, *d)
		}
	}
	return pending, nil
}

func (s *fakeLedgerStore) CountPending(ctx context.Context) (int, error) {
	pending, _ := s.ListPending(ctx)
	return len(pending), nil
}

func (s *fakeLedgerStore) ConsumeAdminTxn(ctx context.Context, method, reference string, userID int64, at time.Time) (*domain.AdminTxn, error) {
	if s.txn == nil || s.txn.Consumed() || s.txn.Method != method || s.txn.Reference != reference {
		return nil, ledger.ErrNoMatch
	}

	s.txn.ConsumedBy = userID
	s.txn.ConsumedAt = &at
	return s.txn, nil
}

func (s *fakeLedgerStore) CreateDeposit(ctx context.Context, dep *domain.Deposit) error {
	dep.ID = int64(len(s.deposits) + 1)
	s.deposits = append(s.deposits, dep)
	return nil
}

func (s *fakeLedgerStore) DepositByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	for _, d := range s.deposits {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ledger.ErrNoMatch
}

func (s *fakeLedgerStore) ApprovePendingDeposit(ctx context.Context, id int64, at time.Time) (*domain.Deposit, error) {
	for _, d := range s.deposits {
		if d.ID == id && d.Status == domain.DepositPending {
			d.Status = domain.DepositApproved
			d.ApprovedAt = &at
			return d, nil
		}
	}
	return nil, ledger.ErrNoMatch
}

func (s *fakeLedgerStore) CreditBalance(ctx context.Context, userID, amount int64) error {
	s.credits[userID] += amount
	return nil
}

type fakeBoardStore struct {
	users     []domain.User
	lastLimit int
}

func (s *fakeBoardStore) TopByCoin(ctx context.Context, limit int) ([]domain.User, error) {
	s.lastLimit = limit
	if limit > len(s.users) {
		limit = len(s.users)
	}
	return s.users[:limit], nil
}

type fakeTxnStore struct{ refs map[string]bool }

func (s *fakeTxnStore) Insert(ctx context.Context, txn *domain.AdminTxn) error {
	if s.refs[txn.Reference] {
		return registry.ErrDuplicateReference
	}
	s.refs[txn.Reference] = true
	return nil
}

func (s *fakeTxnStore) Query(ctx context.Context, f registry.Filter) ([]domain.AdminTxn, error) {
	return nil, nil
}

type fakeQueue struct{ tasks []*asynq.Task }

func (q *fakeQueue) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (q *fakeQueue) Close() error { return nil }

type fixedGate struct{ allow bool }

func (g fixedGate) AllowClaim(ctx context.Context, userID int64) bool { return g.allow }

type serverFixture struct {
	store  *fakeLedgerStore
	boards *fakeBoardStore
	queue  *fakeQueue
	http   http.Handler
}

func newFixture(t *testing.T, gate fixedGate) *serverFixture {
	t.Helper()

	store := newFakeLedgerStore()
	boards := &fakeBoardStore{users: []domain.User{
		{TelegramID: 1, Username: "champ", Coin: 99},
	}}
	queue := &fakeQueue{}
	srv := api.NewServer(
		leaderboard.NewService(boards, nil),
		ledger.NewService(store, nil),
		registry.NewService(&fakeTxnStore{refs: map[string]bool{}}, nil),
		queue,
		gate,
		nil,
		"secret-token",
		100,
		nil,
	)

	return &serverFixture{store: store, boards: boards, queue: queue, http: srv.Handler()}
}

func (f *serverFixture) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.http.ServeHTTP(rec, req)
	return rec
}

func TestLeaderboardEndpoint(t *testing.T) {
	f := newFixture(t, fixedGate{allow: true})

	rec := f.do(http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var entries []leaderboard.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "champ", entries[0].Username)
	assert.Equal(t, "500 ETB", entries[0].Prize)
}

func TestLeaderboardLimitClamping(t *testing.T) {
	f := newFixture(t, fixedGate{allow: true})

	rec := f.do(http.MethodGet, "/api/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.boards.lastLimit)

	// Oversized limits clamp to the configured maximum instead of being ignored.
	rec = f.do(http.MethodGet, "/api/leaderboard?limit=99999", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, f.boards.lastLimit)
}

func TestClaimEndpoint(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		f := newFixture(t, fixedGate{allow: true})

		rec := f.do(http.MethodPost, "/api/deposit/claim", "{not json", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, fixedGate{allow: true})

		rec := f.do(http.MethodPost, "/api/deposit/claim", `{"user_id":7}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newFixture(t, fixedGate{allow: false})

		body := `{"user_id":7,"method":"telebirr","amount":50,"reference":"FT12345678"}`
		rec := f.do(http.MethodPost, "/api/deposit/claim", body, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Empty(t, f.store.deposits, "denied claims must not reach the engine")
	})

	t.Run("matched claim credits", func(t *testing.T) {
		f := newFixture(t, fixedGate{allow: true})
		f.store.txn = &domain.AdminTxn{ID: 1, Method: "telebirr", Reference: "FT12345678", Amount: 5000}

		body := `{"user_id":7,"method":"telebirr","amount":50,"reference":"FT12345678"}`
		rec := f.do(http.MethodPost, "/api/deposit/claim", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Approved    bool   `json:"approved"`
			CreditedETB string `json:"credited_etb"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Approved)
		assert.Equal(t, "50.00", resp.CreditedETB)
		assert.Equal(t, int64(5000), f.store.credits[7])
		assert.Empty(t, f.queue.tasks)
	})

	t.Run("unmatched claim queues for review", func(t *testing.T) {
		f := newFixture(t, fixedGate{allow: true})

		body := `{"user_id":7,"method":"cbe","amount":50,"reference":"UNKNOWN999"}`
		rec := f.do(http.MethodPost, "/api/deposit/claim", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Approved  bool  `json:"approved"`
			DepositID int64 `json:"deposit_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Approved)
		assert.NotZero(t, resp.DepositID)
		assert.Empty(t, f.store.credits)

		require.Len(t, f.queue.tasks, 1)
		assert.Equal(t, jobs.TaskTypeNotifySupport, f.queue.tasks[0].Type())
	})
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, fixedGate{allow: true})

	t.Run("no token", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/admin/deposits", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/admin/deposits", "", map[string]string{"X-Admin-Token": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("header token", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/admin/deposits", "", map[string]string{"X-Admin-Token": "secret-token"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("query token", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/admin/deposits?token=secret-token", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdminApprove(t *testing.T) {
	f := newFixture(t, fixedGate{allow: true})
	f.store.deposits = []*domain.Deposit{
		{ID: 1, UserID: 9, Amount: 3000, Status: domain.DepositPending},
	}
	auth := map[string]string{"X-Admin-Token": "secret-token"}

	rec := f.do(http.MethodPost, "/api/admin/deposits/1/approve", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3000), f.store.credits[9])

	// Second approval conflicts instead of double-crediting.
	rec = f.do(http.MethodPost, "/api/admin/deposits/1/approve", "", auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(3000), f.store.credits[9])

	rec = f.do(http.MethodPost, "/api/admin/deposits/404/approve", "", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/admin/deposits/abc/approve", "", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminBulkTxns(t *testing.T) {
	f := newFixture(t, fixedGate{allow: true})
	auth := map[string]string{"X-Admin-Token": "secret-token"}

	body := "telebirr,FT11111111,150.50\ncbe|FT22222222|200\n"
	rec := f.do(http.MethodPost, "/api/admin/txns/bulk", body, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	var result registry.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Added)
	assert.Zero(t, result.Skipped)

	rec = f.do(http.MethodPost, "/api/admin/txns/bulk", "", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
