package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/store/memory"
)

// =============================================================================
// CREATE / DELETE ROUND TRIP
// =============================================================================

func TestEngine_SavingsExpense_CreateThenDelete_RestoresBalance(t *testing.T) {
	// GIVEN: Savings method with balance 1000, transaction type expense
	// WHEN: A 300 bill is created and then deleted
	// THEN: Balance goes 1000 -> 700 -> 1000 and the bill comes and goes

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	receipt, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))
	require.NoError(t, err)
	assert.True(t, dec("700").Equal(receipt.PaymentMethod.Savings.Balance))
	assert.True(t, dec("700").Equal(f.reload(t, pm.ID).Savings.Balance))
	assert.Equal(t, 1, f.billCount(t))

	receipt, err = f.engine.DeleteBill(ctx, receipt.Bill)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(receipt.PaymentMethod.Savings.Balance))
	assert.True(t, dec("1000").Equal(f.reload(t, pm.ID).Savings.Balance))
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 1, f.recorder.created)
	assert.Equal(t, 1, f.recorder.deleted)
}

func TestEngine_CreditExpense_RoundTrip_IsExact(t *testing.T) {
	// GIVEN: Credit method with fractional outstanding balance
	// WHEN: Ten 0.10 bills are created and then all deleted
	// THEN: Outstanding returns to exactly the starting value

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Visa", expense.TxExpense, "5000", "12.34")

	var bills []expense.Bill
	for i := 0; i < 10; i++ {
		r, err := f.engine.CreateBill(ctx, f.bill(pm, "0.10"))
		require.NoError(t, err)
		bills = append(bills, r.Bill)
	}
	assert.Equal(t, "13.34", f.reload(t, pm.ID).Credit.Outstanding.StringFixed(2))

	for _, b := range bills {
		_, err := f.engine.DeleteBill(ctx, b)
		require.NoError(t, err)
	}
	assert.True(t, dec("12.34").Equal(f.reload(t, pm.ID).Credit.Outstanding))
}

func TestEngine_SavingsIncome_AddsToBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Salary", expense.TxIncome, "0")

	r, err := f.engine.CreateBill(ctx, f.bill(pm, "2500.50"))
	require.NoError(t, err)
	assert.True(t, dec("2500.50").Equal(r.PaymentMethod.Savings.Balance))
}

func TestEngine_SavingsExpense_MayGoNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Wallet", expense.TxExpense, "10")

	r, err := f.engine.CreateBill(ctx, f.bill(pm, "25"))
	require.NoError(t, err)
	assert.True(t, dec("-15").Equal(r.PaymentMethod.Savings.Balance))
}

func TestEngine_ExcludedMethod_RecordsBillWithoutMovingBalance(t *testing.T) {
	// GIVEN: Excluded savings and credit methods
	// WHEN: Bills are created and deleted
	// THEN: Bills are recorded, balances never move

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	sav := f.savings(t, "Gift card", expense.TxExcluded, "50")
	cc := f.credit(t, "Store card", expense.TxExcluded, "100", "100")

	r1, err := f.engine.CreateBill(ctx, f.bill(sav, "500"))
	require.NoError(t, err)
	r2, err := f.engine.CreateBill(ctx, f.bill(cc, "500"))
	require.NoError(t, err, "excluded credit methods skip the limit check")
	assert.Equal(t, 2, f.billCount(t))
	assert.True(t, dec("50").Equal(f.reload(t, sav.ID).Savings.Balance))
	assert.True(t, dec("100").Equal(f.reload(t, cc.ID).Credit.Outstanding))

	_, err = f.engine.DeleteBill(ctx, r1.Bill)
	require.NoError(t, err)
	_, err = f.engine.DeleteBill(ctx, r2.Bill)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(f.reload(t, sav.ID).Savings.Balance))
}

// =============================================================================
// CREDIT LIMIT
// =============================================================================

func TestEngine_CreditLimitExceeded_NothingWritten(t *testing.T) {
	// GIVEN: Credit method limit 5000, outstanding 4800, expense
	// WHEN: A 300 bill is created
	// THEN: CreditLimitExceeded; outstanding stays 4800; no bill

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Visa", expense.TxExpense, "5000", "4800")

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	require.ErrorIs(t, err, expense.ErrCreditLimitExceeded)
	var limitErr *expense.CreditLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, pm.ID, limitErr.MethodID)
	assert.True(t, dec("300").Equal(limitErr.Requested))
	assert.True(t, dec("4800").Equal(f.reload(t, pm.ID).Credit.Outstanding))
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 1, f.recorder.rejected)
}

func TestEngine_CreditExpense_ExactlyAtLimit_Allowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Visa", expense.TxExpense, "5000", "4800")

	r, err := f.engine.CreateBill(ctx, f.bill(pm, "200"))
	require.NoError(t, err)
	assert.True(t, dec("0").Equal(expense.AvailableCredit(r.PaymentMethod)))
}

func TestEngine_CreditIncome_ClampsAtZero(t *testing.T) {
	// GIVEN: Credit method used for repayments (income), outstanding 100
	// WHEN: A 250 repayment bill is created
	// THEN: Outstanding is clamped to 0, never negative

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Card repayment", expense.TxIncome, "1000", "100")

	r, err := f.engine.CreateBill(ctx, f.bill(pm, "250"))
	require.NoError(t, err)
	assert.True(t, r.PaymentMethod.Credit.Outstanding.IsZero())
}

func TestEngine_CreditIncome_ClampedBillCanBeDeleted(t *testing.T) {
	// GIVEN: A repayment larger than the outstanding balance, clamped to 0
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Card repayment", expense.TxIncome, "200", "0")
	r, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))
	require.NoError(t, err)
	require.True(t, r.PaymentMethod.Credit.Outstanding.IsZero())

	// WHEN: The bill is deleted
	rc, err := f.engine.DeleteBill(ctx, r.Bill)

	// THEN: The delete succeeds and the outstanding balance stops at the limit
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(rc.PaymentMethod.Credit.Outstanding))
	assert.True(t, dec("200").Equal(f.reload(t, pm.ID).Credit.Outstanding))
	assert.Equal(t, 0, f.billCount(t))
}

func TestEngine_CreditInvariant_HoldsAcrossSequence(t *testing.T) {
	// GIVEN: Credit method limit 1000
	// WHEN: A mix of creates (some rejected) and deletes runs
	// THEN: 0 <= outstanding <= limit after every call

	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.credit(t, "Visa", expense.TxExpense, "1000", "0")

	var live []expense.Bill
	for _, amount := range []string{"400", "400", "400", "150", "0.01", "199.99", "1"} {
		r, err := f.engine.CreateBill(ctx, f.bill(pm, amount))
		if err == nil {
			live = append(live, r.Bill)
		} else {
			require.ErrorIs(t, err, expense.ErrCreditLimitExceeded)
		}
		out := f.reload(t, pm.ID).Credit.Outstanding
		assert.False(t, out.IsNegative())
		assert.True(t, out.LessThanOrEqual(dec("1000")), "outstanding %s over limit", out)

		if len(live) > 2 {
			_, err := f.engine.DeleteBill(ctx, live[0])
			require.NoError(t, err)
			live = live[1:]
		}
	}
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestEngine_NonPositiveAmount_NeverMutates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	for _, amount := range []string{"0", "-5", "-0.01"} {
		_, err := f.engine.CreateBill(ctx, f.bill(pm, amount))
		assert.ErrorIs(t, err, expense.ErrInvalidAmount, "amount %s", amount)
	}
	assert.Equal(t, 0, f.billCount(t))
	assert.True(t, dec("1000").Equal(f.reload(t, pm.ID).Savings.Balance))
}

func TestEngine_Preconditions_CheckedInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	tests := []struct {
		name    string
		in      expense.NewBill
		wantErr error
	}{
		{
			name:    "invalid amount wins over everything",
			in:      expense.NewBill{Amount: dec("0"), PaymentMethodID: "nope", OwnerID: "nope"},
			wantErr: expense.ErrInvalidAmount,
		},
		{
			name:    "missing payment method before categories",
			in:      expense.NewBill{Amount: dec("1"), PaymentMethodID: "nope", OwnerID: "nope"},
			wantErr: expense.ErrMissingPaymentMethod,
		},
		{
			name:    "missing category before owner",
			in:      expense.NewBill{Amount: dec("1"), PaymentMethodID: pm.ID, OwnerID: "nope"},
			wantErr: expense.ErrMissingCategory,
		},
		{
			name: "missing owner",
			in: expense.NewBill{Amount: dec("1"), PaymentMethodID: pm.ID,
				CategoryIDs: []expense.CategoryID{f.food.ID}, OwnerID: "nope"},
			wantErr: expense.ErrMissingOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateBill(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, expense.IsClientError(err))
		})
	}
	assert.Equal(t, 0, f.billCount(t))
}

func TestEngine_CategoryIDsAreNotResolved(t *testing.T) {
	// Category existence is not checked; only non-emptiness is.
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "1", "deleted-category"))
	assert.NoError(t, err)
}

func TestEngine_CreateBill_StampsTimesAndCopiesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")
	fixed := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	f.engine.Now = func() time.Time { return fixed }

	in := f.bill(pm, "5", f.food.ID, f.travel.ID)
	in.Note = "lunch"
	r, err := f.engine.CreateBill(ctx, in)
	require.NoError(t, err)

	in.CategoryIDs[0] = "mutated"
	assert.Equal(t, fixed, r.Bill.CreatedAt)
	assert.Equal(t, r.Bill.CreatedAt, r.Bill.UpdatedAt)
	assert.Equal(t, []expense.CategoryID{f.food.ID, f.travel.ID}, r.Bill.CategoryIDs)
	assert.Equal(t, "lunch", r.Bill.Note)
	assert.NotEmpty(t, r.Bill.ID)
}

func TestEngine_DeleteBill_MissingPaymentMethod_KeepsBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")
	r, err := f.engine.CreateBill(ctx, f.bill(pm, "10"))
	require.NoError(t, err)

	// Remove the method behind the guard's back.
	require.NoError(t, f.store.DeletePaymentMethod(ctx, pm.ID))

	_, err = f.engine.DeleteBill(ctx, r.Bill)
	assert.ErrorIs(t, err, expense.ErrMissingPaymentMethod)
	assert.Equal(t, 1, f.billCount(t))
}

func TestEngine_DeleteBillByID_NotFound(t *testing.T) {
	f := newFixture(t, memory.NewMemory())

	_, err := f.engine.DeleteBillByID(context.Background(), "missing")
	assert.ErrorIs(t, err, expense.ErrDataNotFound)
	assert.True(t, expense.IsNotFound(err))
}

// =============================================================================
// COMPENSATION (non-transactional store)
// =============================================================================

func TestEngine_CreateBill_SaveFails_BalanceCompensated(t *testing.T) {
	// GIVEN: A store whose bill write fails
	// WHEN: A bill is created
	// THEN: PersistenceError wrapping the cause; balance restored; no bill

	ctx := context.Background()
	store := newFaultyStore()
	f := newFixture(t, store)
	pm := f.credit(t, "Visa", expense.TxExpense, "5000", "100")
	store.failSaveBill = true

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	require.ErrorIs(t, err, expense.ErrPersistence)
	require.ErrorIs(t, err, errDiskFull)
	var perr *expense.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save bill", perr.Op)
	assert.Equal(t, "persistence_error", expense.Code(err))

	assert.True(t, dec("100").Equal(f.reload(t, pm.ID).Credit.Outstanding))
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 1, f.recorder.compensatedOK)
	assert.Equal(t, 0, f.recorder.created)
}

func TestEngine_CreateBill_SaveFails_ClampedIncomeRestored(t *testing.T) {
	// GIVEN: A credit repayment method whose mutation clamps at zero
	// WHEN: The bill write fails
	// THEN: The outstanding balance is back to its value before the call

	ctx := context.Background()
	store := newFaultyStore()
	f := newFixture(t, store)
	pm := f.credit(t, "Card repayment", expense.TxIncome, "1000", "100")
	store.failSaveBill = true

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	require.ErrorIs(t, err, expense.ErrPersistence)
	got := f.reload(t, pm.ID).Credit.Outstanding
	assert.True(t, dec("100").Equal(got), "outstanding %s", got)
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 1, f.recorder.compensatedOK)
	assert.Equal(t, 0, f.recorder.failed)
}

func TestEngine_DeleteBill_DeleteFails_BalanceCompensated(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	f := newFixture(t, store)
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")
	r, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))
	require.NoError(t, err)
	store.failDeleteBill = true

	_, err = f.engine.DeleteBill(ctx, r.Bill)

	require.ErrorIs(t, err, expense.ErrPersistence)
	assert.True(t, dec("700").Equal(f.reload(t, pm.ID).Savings.Balance))
	assert.Equal(t, 1, f.billCount(t))
	assert.Equal(t, 1, f.recorder.compensatedOK)
}

func TestEngine_CompensationFailure_IsSwallowed(t *testing.T) {
	// GIVEN: Bill write fails AND the compensating update fails
	// WHEN: A bill is created
	// THEN: Caller sees the original bill-write error; the gap is counted

	ctx := context.Background()
	store := newFaultyStore()
	f := newFixture(t, store)
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")
	store.failSaveBill = true
	store.updatesAllowed = 1

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	var perr *expense.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save bill", perr.Op)
	assert.Equal(t, 1, f.recorder.failed)
	assert.Equal(t, 0, f.recorder.compensatedOK)
	// The first write landed and could not be undone.
	assert.True(t, dec("700").Equal(f.reload(t, pm.ID).Savings.Balance))
}

func TestEngine_UpdatePaymentMethodFails_NothingToCompensate(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	f := newFixture(t, store)
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")
	store.updatesAllowed = 0

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	require.ErrorIs(t, err, expense.ErrPersistence)
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 0, f.recorder.compensatedOK+f.recorder.failed)
}

// =============================================================================
// ATOMIC PATH (TxStore)
// =============================================================================

// failingSaveTx runs the real transaction but fails SaveBill inside it.
type failingSaveTx struct {
	*memory.TxMemory
}

type failSaveView struct {
	expense.Store
}

func (failSaveView) SaveBill(context.Context, expense.Bill) error { return errDiskFull }

func (s failingSaveTx) WithTx(ctx context.Context, fn func(expense.Store) error) error {
	return s.TxMemory.WithTx(ctx, func(view expense.Store) error {
		return fn(failSaveView{Store: view})
	})
}

func TestEngine_TxStore_CommitsBothWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.NewTxMemory())
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	r, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))
	require.NoError(t, err)
	assert.True(t, dec("700").Equal(f.reload(t, pm.ID).Savings.Balance))
	assert.Equal(t, 1, f.billCount(t))

	_, err = f.engine.DeleteBill(ctx, r.Bill)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(f.reload(t, pm.ID).Savings.Balance))
}

func TestEngine_TxStore_RollsBackWithoutCompensation(t *testing.T) {
	// GIVEN: A transactional store whose bill write fails inside the tx
	// WHEN: A bill is created
	// THEN: The payment method update is rolled back; no compensation runs

	ctx := context.Background()
	store := failingSaveTx{TxMemory: memory.NewTxMemory()}
	f := newFixture(t, store)
	pm := f.savings(t, "Checking", expense.TxExpense, "1000")

	_, err := f.engine.CreateBill(ctx, f.bill(pm, "300"))

	require.ErrorIs(t, err, expense.ErrPersistence)
	require.ErrorIs(t, err, errDiskFull)
	assert.True(t, dec("1000").Equal(f.reload(t, pm.ID).Savings.Balance))
	assert.Equal(t, 0, f.billCount(t))
	assert.Equal(t, 0, f.recorder.compensatedOK+f.recorder.failed)
}
