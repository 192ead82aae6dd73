package expense

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE MUTATION RULE
// =============================================================================

// ApplyBill returns a copy of pm with a signed bill amount applied. A
// positive amount records a bill, a negative amount reverses one.
//
//	Credit  + expense:  outstanding += amount (clamped at 0 from below)
//	Credit  + income:   outstanding = max(0, outstanding - amount), capped at the limit
//	Savings + expense:  balance -= amount
//	Savings + income:   balance += amount
//	any     + excluded: unchanged
//
// Only a credit expense can fail: a result above the limit returns
// *CreditLimitError and pm is not modified. This is the only function that
// changes a balance.
func ApplyBill(pm PaymentMethod, amount decimal.Decimal) (PaymentMethod, error) {
	if err := pm.Validate(); err != nil {
		return pm, err
	}
	out := pm.Clone()
	if pm.TransactionType == TxExcluded {
		return out, nil
	}

	switch pm.Account {
	case AccountCredit:
		c := out.Credit
		switch pm.TransactionType {
		case TxExpense:
			next := decimal.Max(c.Outstanding.Add(amount), decimal.Zero)
			if next.GreaterThan(c.Limit) {
				return pm, &CreditLimitError{
					MethodID:    pm.ID,
					Limit:       c.Limit,
					Outstanding: c.Outstanding,
					Requested:   amount,
				}
			}
			c.Outstanding = next
		case TxIncome:
			// Reversing a clamped repayment never fails; it stops at the limit.
			c.Outstanding = decimal.Min(decimal.Max(c.Outstanding.Sub(amount), decimal.Zero), c.Limit)
		default:
			return pm, fmt.Errorf("payment method %s: unknown transaction type %q", pm.ID, pm.TransactionType)
		}

	case AccountSavings:
		s := out.Savings
		switch pm.TransactionType {
		case TxExpense:
			s.Balance = s.Balance.Sub(amount)
		case TxIncome:
			s.Balance = s.Balance.Add(amount)
		default:
			return pm, fmt.Errorf("payment method %s: unknown transaction type %q", pm.ID, pm.TransactionType)
		}

	default:
		return pm, fmt.Errorf("payment method %s: unknown account type %q", pm.ID, pm.Account)
	}

	return out, nil
}
