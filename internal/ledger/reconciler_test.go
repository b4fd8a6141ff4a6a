package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moneta/internal/events"
	"moneta/internal/models"
)

type MockBalanceStore struct {
	mock.Mock
}

func (m *MockBalanceStore) CategoryType(ctx context.Context, categoryID string) (models.CategoryType, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(models.CategoryType), args.Error(1)
}

func (m *MockBalanceStore) IncrementWalletBalance(ctx context.Context, walletID string, delta decimal.Decimal) error {
	args := m.Called(ctx, walletID, delta)
	return args.Error(0)
}

type recordingReporter struct {
	events []events.IntegrityEvent
}

func (r *recordingReporter) Report(_ context.Context, e events.IntegrityEvent) {
	r.events = append(r.events, e)
}

func newTestReconciler() (*reconciler, *recordingReporter) {
	rep := &recordingReporter{}
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &reconciler{reporter: rep, now: func() time.Time { return fixed }}, rep
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value rather than by representation.
func decEq(s string) interface{} {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func snap(txID, walletID string, ct models.CategoryType, amount string) *Snapshot {
	return &Snapshot{TransactionID: txID, WalletID: walletID, CategoryID: "cat-" + string(ct), CategoryType: ct, Amount: dec(amount)}
}

func TestSignedAmount(t *testing.T) {
	got, err := SignedAmount(models.CategoryTypeIncome, dec("500.00"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("500")))

	got, err = SignedAmount(models.CategoryTypeExpense, dec("200.00"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("-200")))

	_, err = SignedAmount("TRANSFER", dec("1"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSnapshotOf(t *testing.T) {
	assert.Nil(t, SnapshotOf(nil))
	assert.Nil(t, SnapshotOf(&models.Transaction{WalletID: "w"}), "category not loaded")

	tx := &models.Transaction{
		Base:       models.Base{ID: "tx-1"},
		WalletID:   "w-1",
		CategoryID: "c-1",
		Amount:     dec("42.50"),
		Category:   &models.Category{Type: models.CategoryTypeExpense},
	}
	s := SnapshotOf(tx)
	require.NotNil(t, s)
	assert.Equal(t, "tx-1", s.TransactionID)
	assert.Equal(t, "w-1", s.WalletID)
	assert.Equal(t, models.CategoryTypeExpense, s.CategoryType)

	// Mutating the transaction after capture leaves the snapshot untouched.
	tx.WalletID = "w-2"
	tx.Category.Type = models.CategoryTypeIncome
	assert.Equal(t, "w-1", s.WalletID)
	assert.Equal(t, models.CategoryTypeExpense, s.CategoryType)
}

func TestOnCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("expense decrements wallet", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("CategoryType", ctx, "c-1").Return(models.CategoryTypeExpense, nil)
		store.On("IncrementWalletBalance", ctx, "w-1", decEq("-200")).Return(nil)

		err := r.OnCreate(ctx, store, &models.Transaction{Base: models.Base{ID: "tx-1"}, WalletID: "w-1", CategoryID: "c-1", Amount: dec("200.00")})

		require.NoError(t, err)
		store.AssertExpectations(t)
		assert.Empty(t, rep.events)
	})

	t.Run("income increments wallet", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("CategoryType", ctx, "c-2").Return(models.CategoryTypeIncome, nil)
		store.On("IncrementWalletBalance", ctx, "w-1", decEq("500")).Return(nil)

		err := r.OnCreate(ctx, store, &models.Transaction{WalletID: "w-1", CategoryID: "c-2", Amount: dec("500.00")})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("category lookup failure applies nothing", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("CategoryType", ctx, "missing").Return(models.CategoryType(""), ErrCategoryNotFound)

		err := r.OnCreate(ctx, store, &models.Transaction{Base: models.Base{ID: "tx-9"}, WalletID: "w-1", CategoryID: "missing", Amount: dec("10")})

		require.Error(t, err)
		assert.True(t, IsKind(err, LookupFailure))
		assert.ErrorIs(t, err, ErrCategoryNotFound)
		store.AssertNotCalled(t, "IncrementWalletBalance", mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, rep.events, 1)
		assert.Equal(t, "lookup_failure", rep.events[0].Kind)
		assert.Equal(t, "tx-9", rep.events[0].TransactionID)
		assert.Equal(t, OpCreate, rep.events[0].Operation)
	})

	t.Run("unknown category type applies nothing", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("CategoryType", ctx, "c-3").Return(models.CategoryType("TRANSFER"), nil)

		err := r.OnCreate(ctx, store, &models.Transaction{WalletID: "w-1", CategoryID: "c-3", Amount: dec("10")})

		assert.True(t, IsKind(err, LookupFailure))
		store.AssertNotCalled(t, "IncrementWalletBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("increment failure is surfaced", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("CategoryType", ctx, "c-1").Return(models.CategoryTypeExpense, nil)
		store.On("IncrementWalletBalance", ctx, "gone", mock.Anything).Return(ErrWalletNotFound)

		err := r.OnCreate(ctx, store, &models.Transaction{Base: models.Base{ID: "tx-2"}, WalletID: "gone", CategoryID: "c-1", Amount: dec("1")})

		assert.True(t, IsKind(err, IncrementFailure))
		require.Len(t, rep.events, 1)
		assert.Equal(t, []string{"gone"}, rep.events[0].WalletIDs)
	})
}

func TestOnUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("wallet reassignment undoes and applies", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", decEq("100")).Return(nil).Once()
		store.On("IncrementWalletBalance", ctx, "B", decEq("-100")).Return(nil).Once()

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeExpense, "100.00"),
			snap("tx-1", "B", models.CategoryTypeExpense, "100.00"))

		require.NoError(t, err)
		store.AssertExpectations(t)
		assert.Empty(t, rep.events)
	})

	t.Run("category flip on same wallet is one net write", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", decEq("200")).Return(nil).Once()

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeExpense, "100"),
			snap("tx-1", "A", models.CategoryTypeIncome, "100"))

		require.NoError(t, err)
		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "IncrementWalletBalance", 1)
	})

	t.Run("amount change on same wallet applies difference", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", decEq("-30")).Return(nil).Once()

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeExpense, "70"),
			snap("tx-1", "A", models.CategoryTypeExpense, "100"))

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("zero net delta skips the write", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeIncome, "100.0"),
			snap("tx-1", "A", models.CategoryTypeIncome, "100.00"))

		require.NoError(t, err)
		store.AssertNotCalled(t, "IncrementWalletBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing original applies nothing", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)

		err := r.OnUpdate(ctx, store, nil, snap("tx-7", "A", models.CategoryTypeIncome, "1"))

		assert.True(t, IsKind(err, LookupFailure))
		assert.ErrorIs(t, err, ErrStateLost)
		store.AssertNotCalled(t, "IncrementWalletBalance", mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, rep.events, 1)
		assert.Equal(t, "tx-7", rep.events[0].TransactionID)
		assert.Equal(t, OpUpdate, rep.events[0].Operation)
	})

	t.Run("second wallet failure is a partial failure", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", decEq("100")).Return(nil).Once()
		store.On("IncrementWalletBalance", ctx, "B", decEq("-100")).Return(errors.New("connection reset")).Once()

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeExpense, "100"),
			snap("tx-1", "B", models.CategoryTypeExpense, "100"))

		require.Error(t, err)
		var re *ReconcileError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, PartialMultiWalletFailure, re.Kind)
		assert.Equal(t, "tx-1", re.TransactionID)
		assert.Equal(t, []string{"A", "B"}, re.WalletIDs)

		require.Len(t, rep.events, 1)
		assert.Equal(t, "partial_multi_wallet_failure", rep.events[0].Kind)
		assert.Equal(t, []string{"A", "B"}, rep.events[0].WalletIDs)
		assert.Equal(t, "connection reset", rep.events[0].Message)
	})

	t.Run("first wallet failure stops before the second", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", mock.Anything).Return(ErrWalletNotFound).Once()

		err := r.OnUpdate(ctx, store,
			snap("tx-1", "A", models.CategoryTypeExpense, "100"),
			snap("tx-1", "B", models.CategoryTypeExpense, "100"))

		assert.True(t, IsKind(err, IncrementFailure))
		store.AssertNotCalled(t, "IncrementWalletBalance", ctx, "B", mock.Anything)
	})
}

func TestOnDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("income delete decrements wallet", func(t *testing.T) {
		r, _ := newTestReconciler()
		store := new(MockBalanceStore)
		store.On("IncrementWalletBalance", ctx, "A", decEq("-300")).Return(nil).Once()

		err := r.OnDelete(ctx, store, snap("tx-1", "A", models.CategoryTypeIncome, "300.00"))

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("missing original applies nothing", func(t *testing.T) {
		r, rep := newTestReconciler()
		store := new(MockBalanceStore)

		err := r.OnDelete(ctx, store, nil)

		assert.True(t, IsKind(err, LookupFailure))
		store.AssertNotCalled(t, "IncrementWalletBalance", mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, rep.events, 1)
		assert.Equal(t, OpDelete, rep.events[0].Operation)
	})
}

func TestNewReconcilerNilReporter(t *testing.T) {
	r := NewReconciler(nil)
	err := r.OnDelete(context.Background(), new(MockBalanceStore), nil)
	assert.True(t, IsKind(err, LookupFailure))
}

func TestReconcileErrorMessage(t *testing.T) {
	err := &ReconcileError{
		Kind:          PartialMultiWalletFailure,
		Operation:     OpUpdate,
		TransactionID: "tx-1",
		WalletIDs:     []string{"A", "B"},
		Err:           errors.New("boom"),
	}
	assert.Equal(t, "ledger update: partial_multi_wallet_failure transaction=tx-1 wallets=A,B: boom", err.Error())
}
