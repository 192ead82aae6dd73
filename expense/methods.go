/*
methods.go - Payment method creation, update and deletion

PURPOSE:
  Guards the opening state of payment methods and the edits users make to
  them afterwards. Balance movement caused by bills is NOT done here (see
  ledger.go); these operations only touch the name, the transaction type,
  the credit limit and the billing day.

RULES:
  Create credit:   limit >= outstanding >= 0          else ErrInvalidCreditLimit
  Create savings:  balance >= 0                       else ErrInsufficientBalance
  Any name:        trimmed, non-empty, unique among payment methods
  Update credit:   new limit >= current outstanding   else ErrInvalidCreditLimit
  Delete:          no bill may reference the method   else ErrEntityInUse

  Updates are all-or-nothing: every requested field is validated before the
  working copy is touched.

SEE ALSO:
  - paymentmethod.go: The Credit/Savings variant
  - directory.go: Same name rules for categories and owners
*/
package expense

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type CreditInput struct {
	Name            string
	TransactionType TransactionType
	Limit           decimal.Decimal
	Outstanding     decimal.Decimal
	BillingDay      int
}

type SavingsInput struct {
	Name            string
	TransactionType TransactionType
	Balance         decimal.Decimal
}

// CreditPatch lists the fields to change; nil means unchanged.
type CreditPatch struct {
	Name            *string
	TransactionType *TransactionType
	Limit           *decimal.Decimal
	BillingDay      *int
}

// SavingsPatch lists the fields to change; nil means unchanged.
type SavingsPatch struct {
	Name            *string
	TransactionType *TransactionType
}

type Methods struct {
	Store Store
}

func NewMethods(store Store) *Methods {
	return &Methods{Store: store}
}

// =============================================================================
// QUERIES
// =============================================================================

func (m *Methods) List(ctx context.Context) ([]PaymentMethod, error) {
	pms, err := m.Store.ListPaymentMethods(ctx)
	if err != nil {
		return nil, persistenceErr("list payment methods", err)
	}
	return pms, nil
}

func (m *Methods) Get(ctx context.Context, id PaymentMethodID) (PaymentMethod, error) {
	pm, ok, err := m.Store.GetPaymentMethod(ctx, id)
	if err != nil {
		return PaymentMethod{}, persistenceErr("load payment method", err)
	}
	if !ok {
		return PaymentMethod{}, fmt.Errorf("%w: payment method %q", ErrDataNotFound, id)
	}
	return pm, nil
}

// =============================================================================
// CREATE
// =============================================================================

func (m *Methods) CreateCredit(ctx context.Context, in CreditInput) (PaymentMethod, error) {
	existing, err := m.List(ctx)
	if err != nil {
		return PaymentMethod{}, err
	}
	if err := checkName(existing, in.Name, ""); err != nil {
		return PaymentMethod{}, fmt.Errorf("payment method %q: %w", in.Name, err)
	}
	if !in.TransactionType.Valid() {
		return PaymentMethod{}, fmt.Errorf("%w: %q", ErrInvalidTransactionType, in.TransactionType)
	}
	if in.Outstanding.IsNegative() || in.Limit.LessThan(in.Outstanding) {
		return PaymentMethod{}, fmt.Errorf("%w: limit %s, outstanding %s", ErrInvalidCreditLimit, in.Limit, in.Outstanding)
	}

	pm := NewCreditMethod(NormalizeName(in.Name), in.TransactionType, CreditTerms{
		Limit:       in.Limit,
		Outstanding: in.Outstanding,
		BillingDay:  in.BillingDay,
	})
	if err := m.Store.SavePaymentMethod(ctx, pm); err != nil {
		return PaymentMethod{}, persistenceErr("save payment method", err)
	}
	return pm, nil
}

func (m *Methods) CreateSavings(ctx context.Context, in SavingsInput) (PaymentMethod, error) {
	existing, err := m.List(ctx)
	if err != nil {
		return PaymentMethod{}, err
	}
	if err := checkName(existing, in.Name, ""); err != nil {
		return PaymentMethod{}, fmt.Errorf("payment method %q: %w", in.Name, err)
	}
	if !in.TransactionType.Valid() {
		return PaymentMethod{}, fmt.Errorf("%w: %q", ErrInvalidTransactionType, in.TransactionType)
	}
	if in.Balance.IsNegative() {
		return PaymentMethod{}, fmt.Errorf("%w: opening balance %s", ErrInsufficientBalance, in.Balance)
	}

	pm := NewSavingsMethod(NormalizeName(in.Name), in.TransactionType, SavingsTerms{Balance: in.Balance})
	if err := m.Store.SavePaymentMethod(ctx, pm); err != nil {
		return PaymentMethod{}, persistenceErr("save payment method", err)
	}
	return pm, nil
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *Methods) UpdateCredit(ctx context.Context, id PaymentMethodID, p CreditPatch) (PaymentMethod, error) {
	existing, err := m.List(ctx)
	if err != nil {
		return PaymentMethod{}, err
	}
	current, ok := findByID(existing, string(id))
	if !ok || current.Account != AccountCredit {
		return PaymentMethod{}, fmt.Errorf("%w: credit method %q", ErrDataNotFound, id)
	}

	// Validate everything first.
	if p.Name != nil {
		if err := checkName(existing, *p.Name, string(id)); err != nil {
			return PaymentMethod{}, fmt.Errorf("payment method %q: %w", *p.Name, err)
		}
	}
	if p.TransactionType != nil && !p.TransactionType.Valid() {
		return PaymentMethod{}, fmt.Errorf("%w: %q", ErrInvalidTransactionType, *p.TransactionType)
	}
	if p.Limit != nil && p.Limit.LessThan(current.Credit.Outstanding) {
		return PaymentMethod{}, fmt.Errorf("%w: limit %s, outstanding %s", ErrInvalidCreditLimit, *p.Limit, current.Credit.Outstanding)
	}

	next := current.Clone()
	if p.Name != nil {
		next.Name = NormalizeName(*p.Name)
	}
	if p.TransactionType != nil {
		next.TransactionType = *p.TransactionType
	}
	if p.Limit != nil {
		next.Credit.Limit = *p.Limit
	}
	if p.BillingDay != nil {
		next.Credit.BillingDay = *p.BillingDay
	}
	return next, m.update(ctx, next)
}

func (m *Methods) UpdateSavings(ctx context.Context, id PaymentMethodID, p SavingsPatch) (PaymentMethod, error) {
	existing, err := m.List(ctx)
	if err != nil {
		return PaymentMethod{}, err
	}
	current, ok := findByID(existing, string(id))
	if !ok || current.Account != AccountSavings {
		return PaymentMethod{}, fmt.Errorf("%w: savings method %q", ErrDataNotFound, id)
	}

	if p.Name != nil {
		if err := checkName(existing, *p.Name, string(id)); err != nil {
			return PaymentMethod{}, fmt.Errorf("payment method %q: %w", *p.Name, err)
		}
	}
	if p.TransactionType != nil && !p.TransactionType.Valid() {
		return PaymentMethod{}, fmt.Errorf("%w: %q", ErrInvalidTransactionType, *p.TransactionType)
	}

	next := current.Clone()
	if p.Name != nil {
		next.Name = NormalizeName(*p.Name)
	}
	if p.TransactionType != nil {
		next.TransactionType = *p.TransactionType
	}
	return next, m.update(ctx, next)
}

func (m *Methods) update(ctx context.Context, pm PaymentMethod) error {
	if err := m.Store.UpdatePaymentMethod(ctx, pm); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: payment method %q", ErrDataNotFound, pm.ID)
		}
		return persistenceErr("update payment method", err)
	}
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a payment method that no bill references.
func (m *Methods) Delete(ctx context.Context, id PaymentMethodID) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}

	bills, err := m.Store.ListBills(ctx)
	if err != nil {
		return persistenceErr("list bills", err)
	}
	for _, b := range bills {
		if b.PaymentMethodID == id {
			return fmt.Errorf("payment method %q: %w", id, ErrEntityInUse)
		}
	}

	if err := m.Store.DeletePaymentMethod(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: payment method %q", ErrDataNotFound, id)
		}
		return persistenceErr("delete payment method", err)
	}
	return nil
}
