package expense_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-ledger/expense"
)

func TestApplyBill_Table(t *testing.T) {
	credit := func(tx expense.TransactionType, limit, out string) expense.PaymentMethod {
		return expense.NewCreditMethod("c", tx, expense.CreditTerms{Limit: dec(limit), Outstanding: dec(out)})
	}
	savings := func(tx expense.TransactionType, bal string) expense.PaymentMethod {
		return expense.NewSavingsMethod("s", tx, expense.SavingsTerms{Balance: dec(bal)})
	}

	tests := []struct {
		name   string
		pm     expense.PaymentMethod
		amount string
		want   string
	}{
		{"credit expense adds", credit(expense.TxExpense, "100", "10"), "5", "15"},
		{"credit expense reversal", credit(expense.TxExpense, "100", "10"), "-5", "5"},
		{"credit expense reversal clamps", credit(expense.TxExpense, "100", "10"), "-50", "0"},
		{"credit income pays down", credit(expense.TxIncome, "100", "10"), "4", "6"},
		{"credit income clamps", credit(expense.TxIncome, "100", "10"), "40", "0"},
		{"credit income reversal", credit(expense.TxIncome, "100", "10"), "-30", "40"},
		{"credit income reversal caps at limit", credit(expense.TxIncome, "100", "10"), "-300", "100"},
		{"credit excluded", credit(expense.TxExcluded, "100", "10"), "40", "10"},
		{"savings expense", savings(expense.TxExpense, "100"), "30", "70"},
		{"savings income", savings(expense.TxIncome, "100"), "30", "130"},
		{"savings excluded", savings(expense.TxExcluded, "100"), "30", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expense.ApplyBill(tt.pm, dec(tt.amount))
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got.Position()), "got %s", got.Position())
		})
	}
}

func TestApplyBill_DoesNotMutateInput(t *testing.T) {
	pm := expense.NewSavingsMethod("s", expense.TxExpense, expense.SavingsTerms{Balance: dec("100")})

	_, err := expense.ApplyBill(pm, dec("30"))
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(pm.Savings.Balance))
}

func TestApplyBill_OverLimit(t *testing.T) {
	pm := expense.NewCreditMethod("c", expense.TxExpense, expense.CreditTerms{Limit: dec("100"), Outstanding: dec("90")})

	got, err := expense.ApplyBill(pm, dec("10.01"))

	var limitErr *expense.CreditLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.True(t, dec("90").Equal(limitErr.Outstanding))
	assert.True(t, dec("90").Equal(got.Credit.Outstanding))
}

func TestApplyBill_MalformedVariant(t *testing.T) {
	bad := expense.PaymentMethod{ID: "x", Account: expense.AccountCredit, TransactionType: expense.TxExpense}

	_, err := expense.ApplyBill(bad, dec("1"))
	assert.Error(t, err)
}
