// Package storetest holds the behaviour every expense.Store must share.
// Store implementations call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-ledger/expense"
)

// Run exercises the store contract against fresh stores from newStore.
func Run(t *testing.T, newStore func(t *testing.T) expense.Store) {
	t.Run("bills", func(t *testing.T) { testBills(t, newStore(t)) })
	t.Run("payment methods", func(t *testing.T) { testPaymentMethods(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("owners", func(t *testing.T) { testOwners(t, newStore(t)) })
	t.Run("list empty", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("bill insertion order", func(t *testing.T) { testBillOrder(t, newStore(t)) })
}

// RunTx exercises commit and rollback of a TxStore.
func RunTx(t *testing.T, newStore func(t *testing.T) expense.TxStore) {
	t.Run("commit", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		pm := expense.NewSavingsMethod("Checking", expense.TxExpense, expense.SavingsTerms{Balance: expense.MustParseDecimal("100")})
		require.NoError(t, s.SavePaymentMethod(ctx, pm))

		err := s.WithTx(ctx, func(tx expense.Store) error {
			pm.Savings.Balance = expense.MustParseDecimal("60")
			if err := tx.UpdatePaymentMethod(ctx, pm); err != nil {
				return err
			}
			return tx.SaveBill(ctx, sampleBill("b1", pm.ID))
		})
		require.NoError(t, err)

		got, ok, err := s.GetPaymentMethod(ctx, pm.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "60", got.Savings.Balance.String())
		_, ok, err = s.GetBill(ctx, "b1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rollback", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		pm := expense.NewSavingsMethod("Checking", expense.TxExpense, expense.SavingsTerms{Balance: expense.MustParseDecimal("100")})
		require.NoError(t, s.SavePaymentMethod(ctx, pm))

		err := s.WithTx(ctx, func(tx expense.Store) error {
			changed := pm.Clone()
			changed.Savings.Balance = expense.MustParseDecimal("60")
			if err := tx.UpdatePaymentMethod(ctx, changed); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			inTx, ok, err := tx.GetPaymentMethod(ctx, pm.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "60", inTx.Savings.Balance.String())

			return tx.DeleteBill(ctx, "missing")
		})
		require.ErrorIs(t, err, expense.ErrNotFound)

		got, _, err := s.GetPaymentMethod(ctx, pm.ID)
		require.NoError(t, err)
		assert.Equal(t, "100", got.Savings.Balance.String())
	})
}

func sampleBill(id string, pm expense.PaymentMethodID) expense.Bill {
	at := time.Date(2025, time.March, 10, 8, 30, 0, 123000000, time.UTC)
	return expense.Bill{
		ID:              expense.BillID(id),
		Amount:          expense.MustParseDecimal("12.345"),
		PaymentMethodID: pm,
		CategoryIDs:     []expense.CategoryID{"c1", "c2"},
		OwnerID:         "o1",
		Note:            "groceries",
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

func testBills(t *testing.T, s expense.Store) {
	ctx := context.Background()

	b1 := sampleBill("b1", "pm1")
	b2 := sampleBill("b2", "pm1")
	b2.Note = ""
	b2.CreatedAt = b2.CreatedAt.Add(time.Hour)
	b2.UpdatedAt = b2.CreatedAt
	require.NoError(t, s.SaveBill(ctx, b1))
	require.NoError(t, s.SaveBill(ctx, b2))

	got, ok, err := s.GetBill(ctx, "b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b1.ID, got.ID)
	assert.True(t, b1.Amount.Equal(got.Amount), "amount must round-trip exactly")
	assert.Equal(t, b1.CategoryIDs, got.CategoryIDs)
	assert.Equal(t, b1.OwnerID, got.OwnerID)
	assert.Equal(t, "groceries", got.Note)
	assert.True(t, b1.CreatedAt.Equal(got.CreatedAt))

	all, err := s.ListBills(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, expense.BillID("b1"), all[0].ID)
	assert.Equal(t, expense.BillID("b2"), all[1].ID)
	assert.Empty(t, all[1].Note)

	// Returned values are copies.
	got.CategoryIDs[0] = "mutated"
	again, _, err := s.GetBill(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, expense.CategoryID("c1"), again.CategoryIDs[0])

	b1.Note = "edited"
	require.NoError(t, s.UpdateBill(ctx, b1))
	got, _, err = s.GetBill(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Note)

	require.NoError(t, s.DeleteBill(ctx, "b1"))
	_, ok, err = s.GetBill(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteBill(ctx, "b1"), expense.ErrNotFound)
	assert.ErrorIs(t, s.UpdateBill(ctx, sampleBill("nope", "pm1")), expense.ErrNotFound)
}

// testBillOrder saves bills whose timestamps run backwards, including a
// whole second after a fractional one, and expects them listed as saved.
func testBillOrder(t *testing.T, s expense.Store) {
	ctx := context.Background()

	base := time.Date(2025, time.March, 10, 8, 30, 5, 0, time.UTC)
	stamps := []time.Time{
		base.Add(500 * time.Millisecond),
		base,
		base.Add(-time.Second),
	}
	for i, at := range stamps {
		b := sampleBill(fmt.Sprintf("b%d", i+1), "pm1")
		b.CreatedAt, b.UpdatedAt = at, at
		require.NoError(t, s.SaveBill(ctx, b))
	}

	all, err := s.ListBills(ctx)
	require.NoError(t, err)
	ids := make([]expense.BillID, 0, len(all))
	for _, b := range all {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []expense.BillID{"b1", "b2", "b3"}, ids)
}

func testPaymentMethods(t *testing.T, s expense.Store) {
	ctx := context.Background()

	credit := expense.NewCreditMethod("Visa", expense.TxExpense, expense.CreditTerms{
		Limit:       expense.MustParseDecimal("5000.00"),
		Outstanding: expense.MustParseDecimal("4800.10"),
		BillingDay:  27,
	})
	savings := expense.NewSavingsMethod("Checking", expense.TxIncome, expense.SavingsTerms{
		Balance: expense.MustParseDecimal("-12.5"),
	})
	require.NoError(t, s.SavePaymentMethod(ctx, credit))
	require.NoError(t, s.SavePaymentMethod(ctx, savings))

	got, ok, err := s.GetPaymentMethod(ctx, credit.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, got.Validate())
	assert.Equal(t, expense.AccountCredit, got.Account)
	assert.Nil(t, got.Savings)
	assert.True(t, credit.Credit.Limit.Equal(got.Credit.Limit))
	assert.True(t, credit.Credit.Outstanding.Equal(got.Credit.Outstanding))
	assert.Equal(t, 27, got.Credit.BillingDay)

	got, ok, err = s.GetPaymentMethod(ctx, savings.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, expense.AccountSavings, got.Account)
	assert.Equal(t, expense.TxIncome, got.TransactionType)
	assert.Nil(t, got.Credit)
	assert.Equal(t, "-12.5", got.Savings.Balance.String())

	// Mutating a returned value must not reach the store.
	got.Savings.Balance = expense.MustParseDecimal("999")
	again, _, err := s.GetPaymentMethod(ctx, savings.ID)
	require.NoError(t, err)
	assert.Equal(t, "-12.5", again.Savings.Balance.String())

	credit.Credit.Outstanding = expense.MustParseDecimal("0")
	credit.Name = "Visa Gold"
	require.NoError(t, s.UpdatePaymentMethod(ctx, credit))
	got, _, err = s.GetPaymentMethod(ctx, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Visa Gold", got.Name)
	assert.True(t, got.Credit.Outstanding.IsZero())

	all, err := s.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, credit.ID, all[0].ID)

	missing := expense.NewSavingsMethod("Ghost", expense.TxExpense, expense.SavingsTerms{})
	assert.ErrorIs(t, s.UpdatePaymentMethod(ctx, missing), expense.ErrNotFound)
	require.NoError(t, s.DeletePaymentMethod(ctx, savings.ID))
	assert.ErrorIs(t, s.DeletePaymentMethod(ctx, savings.ID), expense.ErrNotFound)
}

func testCategories(t *testing.T, s expense.Store) {
	ctx := context.Background()

	require.NoError(t, s.SaveCategory(ctx, expense.Category{ID: "c1", Name: "Food"}))
	require.NoError(t, s.SaveCategory(ctx, expense.Category{ID: "c2", Name: "Rent"}))

	got, ok, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Food", got.Name)

	require.NoError(t, s.UpdateCategory(ctx, expense.Category{ID: "c1", Name: "Groceries"}))
	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []expense.Category{{ID: "c1", Name: "Groceries"}, {ID: "c2", Name: "Rent"}}, all)

	require.NoError(t, s.DeleteCategory(ctx, "c1"))
	_, ok, err = s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "c1"), expense.ErrNotFound)
	assert.ErrorIs(t, s.UpdateCategory(ctx, expense.Category{ID: "c9", Name: "x"}), expense.ErrNotFound)
}

func testOwners(t *testing.T, s expense.Store) {
	ctx := context.Background()

	require.NoError(t, s.SaveOwner(ctx, expense.Owner{ID: "o1", Name: "Alice"}))

	got, ok, err := s.GetOwner(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)

	require.NoError(t, s.UpdateOwner(ctx, expense.Owner{ID: "o1", Name: "Alicia"}))
	all, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []expense.Owner{{ID: "o1", Name: "Alicia"}}, all)

	require.NoError(t, s.DeleteOwner(ctx, "o1"))
	assert.ErrorIs(t, s.DeleteOwner(ctx, "o1"), expense.ErrNotFound)
	assert.ErrorIs(t, s.UpdateOwner(ctx, expense.Owner{ID: "o1", Name: "x"}), expense.ErrNotFound)
}

func testEmpty(t *testing.T, s expense.Store) {
	ctx := context.Background()

	bills, err := s.ListBills(ctx)
	require.NoError(t, err)
	assert.Empty(t, bills)

	_, ok, err := s.GetPaymentMethod(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetOwner(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	if r, isResetter := s.(expense.Resetter); isResetter {
		require.NoError(t, s.SaveOwner(ctx, expense.Owner{ID: "o1", Name: "Alice"}))
		require.NoError(t, r.Reset(ctx))
		owners, err := s.ListOwners(ctx)
		require.NoError(t, err)
		assert.Empty(t, owners)
	}
}
