/*
Package expense provides the household ledger consistency engine.

PURPOSE:
  Bills draw against payment methods. Every bill that is created or deleted
  moves the balance of the payment method it references, and this package is
  the only place where that movement happens. Everything else (HTTP, CLI,
  storage backends) is glue around it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Bill: a recorded transaction (amount, categories, owner, payment method)
  - Category / Owner: named tags attached to bills
  - TransactionType: how a payment method's bills move its balance
  - Identifiers: type-safe string ids

The PaymentMethod variant lives in paymentmethod.go.

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Type Safety: distinct id types so a CategoryID cannot be passed as an OwnerID
  3. Snapshots: components fetch what they need per operation; nothing is cached

SEE ALSO:
  - paymentmethod.go: Credit/Savings tagged variant
  - balance.go: Balance mutation rule
  - ledger.go: Bill create/delete with compensation
  - store.go: Persistence contract
*/
package expense

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BillID string
type PaymentMethodID string
type CategoryID string
type OwnerID string

func NewBillID() BillID                   { return BillID(uuid.NewString()) }
func NewPaymentMethodID() PaymentMethodID { return PaymentMethodID(uuid.NewString()) }
func NewCategoryID() CategoryID           { return CategoryID(uuid.NewString()) }
func NewOwnerID() OwnerID                 { return OwnerID(uuid.NewString()) }

// =============================================================================
// TRANSACTION TYPE - Effect of a payment method's bills on its balance
// =============================================================================

type TransactionType string

const (
	TxIncome   TransactionType = "income"   // Bills add to savings / pay down credit
	TxExpense  TransactionType = "expense"  // Bills draw savings / grow credit debt
	TxExcluded TransactionType = "excluded" // Bills are recorded but never move the balance
)

// Valid reports whether t is one of the three known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxIncome, TxExpense, TxExcluded:
		return true
	}
	return false
}

// =============================================================================
// BILL
// =============================================================================

// Bill is a single recorded transaction. The amount is always positive; the
// sign of its effect comes from the payment method's TransactionType.
type Bill struct {
	ID              BillID          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID PaymentMethodID `json:"payment_method_id"`
	CategoryIDs     []CategoryID    `json:"category_ids"`
	OwnerID         OwnerID         `json:"owner_id"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasCategory reports whether the bill is tagged with id.
func (b Bill) HasCategory(id CategoryID) bool {
	for _, c := range b.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with b.
func (b Bill) Clone() Bill {
	out := b
	out.CategoryIDs = append([]CategoryID(nil), b.CategoryIDs...)
	return out
}

// NewBill is the input to Engine.CreateBill.
type NewBill struct {
	Amount          decimal.Decimal
	PaymentMethodID PaymentMethodID
	CategoryIDs     []CategoryID
	OwnerID         OwnerID
	Note            string
}

// =============================================================================
// CATEGORY / OWNER
// =============================================================================

type Category struct {
	ID   CategoryID `json:"id"`
	Name string     `json:"name"`
}

func (c Category) EntityID() string { return string(c.ID) }
func (c Category) EntityName() string { return c.Name }

type Owner struct {
	ID   OwnerID `json:"id"`
	Name string  `json:"name"`
}

func (o Owner) EntityID() string { return string(o.ID) }
func (o Owner) EntityName() string { return o.Name }

// =============================================================================
// HELPERS
// =============================================================================

// MustParseDecimal parses s and panics on malformed input. Intended for
// literals in tests and built-in seed data.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("expense: bad decimal literal %q: %v", s, err))
	}
	return d
}
