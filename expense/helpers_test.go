package expense_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var errDiskFull = errors.New("disk full")

func dec(s string) decimal.Decimal { return expense.MustParseDecimal(s) }

// fixture is a store pre-loaded with one category and one owner.
type fixture struct {
	store    expense.Store
	engine   *expense.Engine
	methods  *expense.Methods
	dir      *expense.Directory
	food     expense.Category
	travel   expense.Category
	alice    expense.Owner
	recorder *countingRecorder
}

func newFixture(t *testing.T, store expense.Store) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:    store,
		engine:   expense.NewEngine(store),
		methods:  expense.NewMethods(store),
		dir:      expense.NewDirectory(store),
		recorder: &countingRecorder{},
	}
	f.engine.Recorder = f.recorder

	var err error
	f.food, err = f.dir.CreateCategory(ctx, "Food")
	require.NoError(t, err)
	f.travel, err = f.dir.CreateCategory(ctx, "Transport")
	require.NoError(t, err)
	f.alice, err = f.dir.CreateOwner(ctx, "Alice")
	require.NoError(t, err)
	return f
}

func (f *fixture) savings(t *testing.T, name string, tx expense.TransactionType, balance string) expense.PaymentMethod {
	t.Helper()
	pm, err := f.methods.CreateSavings(context.Background(), expense.SavingsInput{
		Name:            name,
		TransactionType: tx,
		Balance:         dec(balance),
	})
	require.NoError(t, err)
	return pm
}

func (f *fixture) credit(t *testing.T, name string, tx expense.TransactionType, limit, outstanding string) expense.PaymentMethod {
	t.Helper()
	pm, err := f.methods.CreateCredit(context.Background(), expense.CreditInput{
		Name:            name,
		TransactionType: tx,
		Limit:           dec(limit),
		Outstanding:     dec(outstanding),
		BillingDay:      15,
	})
	require.NoError(t, err)
	return pm
}

func (f *fixture) bill(pm expense.PaymentMethod, amount string, cats ...expense.CategoryID) expense.NewBill {
	if len(cats) == 0 {
		cats = []expense.CategoryID{f.food.ID}
	}
	return expense.NewBill{
		Amount:          dec(amount),
		PaymentMethodID: pm.ID,
		CategoryIDs:     cats,
		OwnerID:         f.alice.ID,
	}
}

func (f *fixture) reload(t *testing.T, id expense.PaymentMethodID) expense.PaymentMethod {
	t.Helper()
	pm, ok, err := f.store.GetPaymentMethod(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok, "payment method %s should exist", id)
	return pm
}

func (f *fixture) billCount(t *testing.T) int {
	t.Helper()
	bills, err := f.store.ListBills(context.Background())
	require.NoError(t, err)
	return len(bills)
}

// countingRecorder tallies Recorder calls.
type countingRecorder struct {
	created, deleted, rejected int
	compensatedOK, failed      int
}

func (r *countingRecorder) BillCreated(expense.PaymentMethod, decimal.Decimal) { r.created++ }
func (r *countingRecorder) BillDeleted(expense.PaymentMethod, decimal.Decimal) { r.deleted++ }
func (r *countingRecorder) Rejected(string, error)                             { r.rejected++ }
func (r *countingRecorder) Compensated(_ string, ok bool) {
	if ok {
		r.compensatedOK++
	} else {
		r.failed++
	}
}

// =============================================================================
// FAULT-INJECTING STORE
// =============================================================================

// faultyStore wraps the memory store and fails selected writes.
type faultyStore struct {
	*memory.Memory

	failSaveBill   bool
	failDeleteBill bool
	failListBills  bool

	// updatesAllowed is the number of UpdatePaymentMethod calls that succeed
	// before every later one fails. Negative means never fail.
	updatesAllowed int
	updates        int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: memory.NewMemory(), updatesAllowed: -1}
}

func (s *faultyStore) SaveBill(ctx context.Context, b expense.Bill) error {
	if s.failSaveBill {
		return errDiskFull
	}
	return s.Memory.SaveBill(ctx, b)
}

func (s *faultyStore) DeleteBill(ctx context.Context, id expense.BillID) error {
	if s.failDeleteBill {
		return errDiskFull
	}
	return s.Memory.DeleteBill(ctx, id)
}

func (s *faultyStore) ListBills(ctx context.Context) ([]expense.Bill, error) {
	if s.failListBills {
		return nil, errDiskFull
	}
	return s.Memory.ListBills(ctx)
}

func (s *faultyStore) UpdatePaymentMethod(ctx context.Context, pm expense.PaymentMethod) error {
	s.updates++
	if s.updatesAllowed >= 0 && s.updates > s.updatesAllowed {
		return errDiskFull
	}
	return s.Memory.UpdatePaymentMethod(ctx, pm)
}
