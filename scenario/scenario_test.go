package scenario_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/scenario"
	"github.com/warp/household-ledger/store/memory"
)

func methodByName(t *testing.T, pms []expense.PaymentMethod, name string) expense.PaymentMethod {
	t.Helper()
	for _, pm := range pms {
		if pm.Name == name {
			return pm
		}
	}
	t.Fatalf("payment method %q not found", name)
	return expense.PaymentMethod{}
}

func TestList_BuiltinsParseAndSort(t *testing.T) {
	// WHEN: Listing the embedded scenarios
	all, err := scenario.List()

	// THEN: Every file decodes and the order is by id
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, sc := range all {
		ids[i] = sc.ID
	}
	assert.Equal(t, []string{"credit-near-limit", "excluded-transfers", "household"}, ids)
}

func TestFind_Unknown(t *testing.T) {
	_, err := scenario.Find("nope")
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := scenario.Parse([]byte("id: x\nbogus: 1\n"))
	assert.Error(t, err)

	_, err = scenario.Parse([]byte("name: no id\n"))
	assert.Error(t, err)
}

func TestLoad_Household(t *testing.T) {
	// GIVEN: An empty store
	ctx := context.Background()
	store := memory.NewMemory()
	engine := expense.NewEngine(store)

	// WHEN: Loading the household scenario
	sum, err := scenario.Load(ctx, engine, "household")

	// THEN: All entities exist and balances reflect the bills
	require.NoError(t, err)
	assert.Equal(t, scenario.Summary{Scenario: "household", Categories: 4, Owners: 2, PaymentMethods: 3, Bills: 4}, sum)

	pms, err := store.ListPaymentMethods(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("700").Equal(methodByName(t, pms, "Checking").Savings.Balance))
	assert.True(t, decimal.RequireFromString("2500").Equal(methodByName(t, pms, "Payroll").Savings.Balance))
	assert.True(t, decimal.RequireFromString("60.95").Equal(methodByName(t, pms, "Visa").Credit.Outstanding))
}

func TestLoad_ResetsBeforeApplying(t *testing.T) {
	// GIVEN: A store that already holds a scenario
	ctx := context.Background()
	store := memory.NewMemory()
	engine := expense.NewEngine(store)
	_, err := scenario.Load(ctx, engine, "household")
	require.NoError(t, err)

	// WHEN: Loading another scenario on top
	_, err = scenario.Load(ctx, engine, "credit-near-limit")
	require.NoError(t, err)

	// THEN: Only the second scenario's data remains
	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Shopping", cats[0].Name)

	bills, err := store.ListBills(ctx)
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func TestLoad_CreditNearLimitRejectsLargeExpense(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemory()
	engine := expense.NewEngine(store)
	_, err := scenario.Load(ctx, engine, "credit-near-limit")
	require.NoError(t, err)

	pms, err := store.ListPaymentMethods(ctx)
	require.NoError(t, err)
	card := methodByName(t, pms, "Store Card")
	owners, err := store.ListOwners(ctx)
	require.NoError(t, err)
	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)

	_, err = engine.CreateBill(ctx, expense.NewBill{
		Amount:          decimal.RequireFromString("100"),
		PaymentMethodID: card.ID,
		CategoryIDs:     []expense.CategoryID{cats[0].ID},
		OwnerID:         owners[0].ID,
	})
	assert.ErrorIs(t, err, expense.ErrCreditLimitExceeded)
}

func TestLoad_ExcludedTransfersLeaveStatisticsAlone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemory()
	engine := expense.NewEngine(store)
	_, err := scenario.Load(ctx, engine, "excluded-transfers")
	require.NoError(t, err)

	stats, err := expense.NewStatisticsService(store).Calculate(ctx, nil, nil)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12").Equal(stats.TotalExpense))
	assert.True(t, stats.TotalIncome.IsZero())
	_, hasTransfer := stats.ByCategory["Transfer"]
	assert.False(t, hasTransfer)
}

func TestApply_UnknownReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "unknown method",
			doc: `id: bad
categories: [Food]
owners: [Alex]
bills:
  - {amount: "1", method: Ghost, categories: [Food], owner: Alex}
`,
			want: expense.ErrMissingPaymentMethod,
		},
		{
			name: "unknown owner",
			doc: `id: bad
categories: [Food]
payment_methods:
  - {name: Cash, account: savings, transaction_type: expense, balance: "10"}
bills:
  - {amount: "1", method: Cash, categories: [Food], owner: Ghost}
`,
			want: expense.ErrMissingOwner,
		},
		{
			name: "invalid credit terms",
			doc: `id: bad
payment_methods:
  - {name: Card, account: credit, transaction_type: expense, credit_limit: "10", outstanding_balance: "20"}
`,
			want: expense.ErrInvalidCreditLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := scenario.Parse([]byte(tt.doc))
			require.NoError(t, err)

			_, err = scenario.Apply(context.Background(), expense.NewEngine(memory.NewMemory()), sc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApply_UnknownAccount(t *testing.T) {
	sc, err := scenario.Parse([]byte(`id: bad
payment_methods:
  - {name: Gold, account: brokerage, transaction_type: expense}
`))
	require.NoError(t, err)

	_, err = scenario.Apply(context.Background(), expense.NewEngine(memory.NewMemory()), sc)
	assert.ErrorContains(t, err, "unknown account")
}
