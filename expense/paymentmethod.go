package expense

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT METHOD - Tagged variant over credit and savings accounts
// =============================================================================

// AccountType is the tag of the PaymentMethod variant.
type AccountType string

const (
	AccountCredit  AccountType = "credit"
	AccountSavings AccountType = "savings"
)

// CreditTerms is the payload of a credit payment method.
//
// INVARIANT: 0 <= Outstanding <= Limit after every mutation.
type CreditTerms struct {
	Limit       decimal.Decimal `json:"credit_limit"`
	Outstanding decimal.Decimal `json:"outstanding_balance"`
	BillingDay  int             `json:"billing_day"` // 1-31, informational only
}

// SavingsTerms is the payload of a savings payment method.
type SavingsTerms struct {
	Balance decimal.Decimal `json:"balance"`
}

// PaymentMethod is either a credit or a savings account. Exactly one of
// Credit and Savings is set, selected by Account. Code that depends on the
// variant switches on Account; there is no shared behavioural interface.
type PaymentMethod struct {
	ID              PaymentMethodID
	Name            string
	TransactionType TransactionType
	Account         AccountType
	Credit          *CreditTerms
	Savings         *SavingsTerms
}

// NewCreditMethod builds a credit variant with a fresh id.
func NewCreditMethod(name string, txType TransactionType, terms CreditTerms) PaymentMethod {
	return PaymentMethod{
		ID:              NewPaymentMethodID(),
		Name:            name,
		TransactionType: txType,
		Account:         AccountCredit,
		Credit:          &terms,
	}
}

// NewSavingsMethod builds a savings variant with a fresh id.
func NewSavingsMethod(name string, txType TransactionType, terms SavingsTerms) PaymentMethod {
	return PaymentMethod{
		ID:              NewPaymentMethodID(),
		Name:            name,
		TransactionType: txType,
		Account:         AccountSavings,
		Savings:         &terms,
	}
}

func (pm PaymentMethod) EntityID() string   { return string(pm.ID) }
func (pm PaymentMethod) EntityName() string { return pm.Name }

// Clone returns a deep copy; mutations on the copy never reach pm.
func (pm PaymentMethod) Clone() PaymentMethod {
	out := pm
	if pm.Credit != nil {
		c := *pm.Credit
		out.Credit = &c
	}
	if pm.Savings != nil {
		s := *pm.Savings
		out.Savings = &s
	}
	return out
}

// Validate checks that the tag and payload agree.
func (pm PaymentMethod) Validate() error {
	switch pm.Account {
	case AccountCredit:
		if pm.Credit == nil || pm.Savings != nil {
			return fmt.Errorf("payment method %s: credit account requires credit terms only", pm.ID)
		}
	case AccountSavings:
		if pm.Savings == nil || pm.Credit != nil {
			return fmt.Errorf("payment method %s: savings account requires savings terms only", pm.ID)
		}
	default:
		return fmt.Errorf("payment method %s: unknown account type %q", pm.ID, pm.Account)
	}
	if !pm.TransactionType.Valid() {
		return fmt.Errorf("payment method %s: unknown transaction type %q", pm.ID, pm.TransactionType)
	}
	return nil
}

// Position returns the figure bills move: outstanding debt for credit,
// cash balance for savings.
func (pm PaymentMethod) Position() decimal.Decimal {
	switch pm.Account {
	case AccountCredit:
		return pm.Credit.Outstanding
	case AccountSavings:
		return pm.Savings.Balance
	}
	return decimal.Zero
}

// AvailableCredit is limit minus outstanding for credit methods, zero otherwise.
func AvailableCredit(pm PaymentMethod) decimal.Decimal {
	if pm.Account != AccountCredit || pm.Credit == nil {
		return decimal.Zero
	}
	return pm.Credit.Limit.Sub(pm.Credit.Outstanding)
}

// =============================================================================
// JSON - Tagged wire form
// =============================================================================

type paymentMethodJSON struct {
	ID              PaymentMethodID `json:"id"`
	Name            string          `json:"name"`
	TransactionType TransactionType `json:"transaction_type"`
	AccountType     AccountType     `json:"account_type"`
	Credit          *CreditTerms    `json:"credit,omitempty"`
	Savings         *SavingsTerms   `json:"savings,omitempty"`
}

func (pm PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(paymentMethodJSON{
		ID:              pm.ID,
		Name:            pm.Name,
		TransactionType: pm.TransactionType,
		AccountType:     pm.Account,
		Credit:          pm.Credit,
		Savings:         pm.Savings,
	})
}

func (pm *PaymentMethod) UnmarshalJSON(data []byte) error {
	var raw paymentMethodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := PaymentMethod{
		ID:              raw.ID,
		Name:            raw.Name,
		TransactionType: raw.TransactionType,
		Account:         raw.AccountType,
		Credit:          raw.Credit,
		Savings:         raw.Savings,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*pm = decoded
	return nil
}
