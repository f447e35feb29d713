package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckybingo/bingo-bot/internal/domain"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/ledger"
)

// fakeStore implements ledger.Store and ledger.StoreTx in memory so the
// engine's decision logic can be exercised without a database.
type fakeStore struct {
	txn        *domain.AdminTxn // matched by ConsumeAdminTxn when set and unconsumed
	deposits   []*domain.Deposit
	credits    map[int64]int64
	txCalls    int
	approveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{credits: make(map[int64]int64)}
}

func (s *fakeStore) ExecuteTx(ctx context.Context, fn func(ledger.StoreTx) error) error {
	s.txCalls++
	return fn(s)
}

func (s *fakeStore) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	var pending []domain.Deposit
	for _, d := range s.deposits {
		if d.Status == domain.DepositPending {
			pending = append(pending, *d)
		}
	}
	return pending, nil
}

func (s *fakeStore) CountPending(ctx context.Context) (int, error) {
	pending, _ := s.ListPending(ctx)
	return len(pending), nil
}

func (s *fakeStore) ConsumeAdminTxn(ctx context.Context, method, reference string, userID int64, at time.Time) (*domain.AdminTxn, error) {
	if s.txn == nil || s.txn.Consumed() || s.txn.Method != method || s.txn.Reference != reference {
		return nil, ledger.ErrNoMatch
	}

	s.txn.ConsumedBy = userID
	s.txn.ConsumedAt = &at
	return s.txn, nil
}

func (s *fakeStore) CreateDeposit(ctx context.Context, dep *domain.Deposit) error {
	dep.ID = int64(len(s.deposits) + 1)
	s.deposits = append(s.deposits, dep)
	return nil
}

func (s *fakeStore) DepositByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	for _, d := range s.deposits {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ledger.ErrNoMatch
}

func (s *fakeStore) ApprovePendingDeposit(ctx context.Context, id int64, at time.Time) (*domain.Deposit, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}

	for _, d := range s.deposits {
		if d.ID == id && d.Status == domain.DepositPending {
			d.Status = domain.DepositApproved
			d.ApprovedAt = &at
			return d, nil
		}
	}
	return nil, ledger.ErrNoMatch
}

func (s *fakeStore) CreditBalance(ctx context.Context, userID, amount int64) error {
	s.credits[userID] += amount
	return nil
}

func TestReconcile_MatchCreditsImmediately(t *testing.T) {
	store := newFakeStore()
	store.txn = &domain.AdminTxn{ID: 1, Method: "telebirr", Reference: "FT12345678", Amount: 5000}

	svc := ledger.NewService(store, nil)

	outcome, err := svc.Reconcile(context.Background(), 7, "Telebirr", 10000, " FT12345678 ")
	require.NoError(t, err)

	assert.True(t, outcome.Approved)
	assert.Equal(t, int64(10000), outcome.Credited)
	assert.Equal(t, int64(10000), store.credits[7])
	assert.Equal(t, int64(7), store.txn.ConsumedBy)

	require.Len(t, store.deposits, 1)
	assert.Equal(t, domain.DepositApproved, store.deposits[0].Status)
	assert.NotNil(t, store.deposits[0].ApprovedAt)
}

func TestReconcile_RegistryAmountUsedWhenClaimOmitsIt(t *testing.T) {
	store := newFakeStore()
	store.txn = &domain.AdminTxn{ID: 1, Method: "cbe", Reference: "REF999888", Amount: 7500}

	svc := ledger.NewService(store, nil)

	outcome, err := svc.Reconcile(context.Background(), 3, "cbe", 0, "REF999888")
	require.NoError(t, err)

	assert.True(t, outcome.Approved)
	assert.Equal(t, int64(7500), outcome.Credited)
	assert.Equal(t, int64(7500), store.credits[3])
}

func TestReconcile_NoMatchFallsBackToPending(t *testing.T) {
	store := newFakeStore()

	svc := ledger.NewService(store, nil)

	outcome, err := svc.Reconcile(context.Background(), 7, "boa", 10000, "UNKNOWN123")
	require.NoError(t, err)

	assert.False(t, outcome.Approved)
	assert.Empty(t, store.credits)

	require.Len(t, store.deposits, 1)
	assert.Equal(t, domain.DepositPending, store.deposits[0].Status)
	assert.Equal(t, int64(10000), store.deposits[0].Amount)
}

func TestReconcile_ConsumedRecordFallsBackToPending(t *testing.T) {
	store := newFakeStore()
	store.txn = &domain.AdminTxn{ID: 1, Method: "cbe", Reference: "REF999888", ConsumedBy: 42}

	svc := ledger.NewService(store, nil)

	outcome, err := svc.Reconcile(context.Background(), 7, "cbe", 10000, "REF999888")
	require.NoError(t, err)

	assert.False(t, outcome.Approved)
	assert.Empty(t, store.credits)
}

func TestReconcile_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		method    string
		reference string
	}{
		{name: "unsupported method", method: "paypal", reference: "FT12345678"},
		{name: "short reference", method: "telebirr", reference: "FT1"},
		{name: "blank reference", method: "telebirr", reference: "   "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := ledger.NewService(store, nil)

			_, err := svc.Reconcile(context.Background(), 7, tc.method, 1000, tc.reference)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "E100", appErr.Code)
			assert.Zero(t, store.txCalls, "validation failures must not open a transaction")
		})
	}
}

func TestApprove_CreditsOnce(t *testing.T) {
	store := newFakeStore()
	store.deposits = []*domain.Deposit{
		{ID: 1, UserID: 9, Amount: 3000, Status: domain.DepositPending},
	}

	svc := ledger.NewService(store, nil)

	approved, err := svc.Approve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositApproved, approved.Status)
	assert.Equal(t, int64(3000), store.credits[9])

	// A second approval must fail instead of double-crediting.
	_, err = svc.Approve(context.Background(), 1)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "E120", appErr.Code)
	assert.Equal(t, int64(3000), store.credits[9])
}

func TestApprove_UnknownDeposit(t *testing.T) {
	store := newFakeStore()
	svc := ledger.NewService(store, nil)

	_, err := svc.Approve(context.Background(), 404)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "E110", appErr.Code)
}

func TestListPending_OnlyPending(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.deposits = []*domain.Deposit{
		{ID: 1, Status: domain.DepositPending, CreatedAt: now},
		{ID: 2, Status: domain.DepositApproved, CreatedAt: now},
		{ID: 3, Status: domain.DepositPending, CreatedAt: now},
	}

	svc := ledger.NewService(store, nil)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)
	assert.Equal(t, int64(3), pending[1].ID)
}
