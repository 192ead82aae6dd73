/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error kinds in one place. Callers match with errors.Is / errors.As;
  the HTTP layer maps them to status codes via Code().

ERROR CATEGORIES:
  1. Validation errors - raised before any mutation, state untouched
  2. Reference errors - a referenced entity is absent (or still in use)
  3. Persistence errors - a store call failed; wraps the cause

OVERLOADED KINDS:
  An empty name is reported as ErrEmptyName and a delete blocked by existing
  bills as ErrEntityInUse. Both still satisfy errors.Is against the older
  kinds (ErrDuplicateName, ErrDataNotFound) so callers written against
  either vocabulary keep working.

SEE ALSO:
  - ledger.go: Raises PersistenceError and CreditLimitError
  - store.go: ErrNotFound from store implementations
*/
package expense

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a bill amount is not strictly positive.
	ErrInvalidAmount = errors.New("bill amount must be greater than zero")

	// ErrMissingPaymentMethod is returned when the referenced payment method does not exist.
	ErrMissingPaymentMethod = errors.New("payment method is required")

	// ErrMissingCategory is returned when a bill names no category.
	ErrMissingCategory = errors.New("at least one category is required")

	// ErrMissingOwner is returned when the referenced owner does not exist.
	ErrMissingOwner = errors.New("owner is required")

	// ErrDuplicateName is returned when a name is already taken.
	ErrDuplicateName = errors.New("name already exists")

	// ErrCreditLimitExceeded is returned when an expense would push a credit
	// account past its limit.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")

	// ErrInsufficientBalance is returned for a negative opening savings balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidCreditLimit is returned when a credit limit is below the outstanding balance.
	ErrInvalidCreditLimit = errors.New("credit limit must be at least the outstanding balance")

	// ErrDataNotFound is returned when the entity to update or delete does not exist.
	ErrDataNotFound = errors.New("data not found")

	// ErrPersistence marks any failure coming from the store.
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidTransactionType is returned for a transaction type outside income/expense/excluded.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrNotFound is the store-level signal for update/delete of a missing id.
	ErrNotFound = errors.New("record not found")
)

var (
	// ErrEmptyName is returned when a name is empty after trimming.
	ErrEmptyName = fmt.Errorf("empty name: %w", ErrDuplicateName)

	// ErrEntityInUse is returned when deleting an entity that bills still reference.
	ErrEntityInUse = fmt.Errorf("entity in use: %w", ErrDataNotFound)
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CreditLimitError details a rejected expense on a credit account.
type CreditLimitError struct {
	MethodID    PaymentMethodID
	Limit       decimal.Decimal
	Outstanding decimal.Decimal
	Requested   decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("credit limit exceeded: limit %s, outstanding %s, requested %s",
		e.Limit, e.Outstanding, e.Requested)
}

func (e *CreditLimitError) Unwrap() error {
	return ErrCreditLimitExceeded
}

// PersistenceError wraps a store failure. It matches both ErrPersistence and
// the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingPaymentMethod) ||
		errors.Is(err, ErrMissingCategory) ||
		errors.Is(err, ErrMissingOwner) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidCreditLimit) ||
		errors.Is(err, ErrInvalidTransactionType)
}

// IsConflict returns true if the request was valid but clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEntityInUse) ||
		errors.Is(err, ErrCreditLimitExceeded) ||
		(errors.Is(err, ErrDuplicateName) && !errors.Is(err, ErrEmptyName))
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return (errors.Is(err, ErrDataNotFound) && !errors.Is(err, ErrEntityInUse)) ||
		(errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPersistence))
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrMissingPaymentMethod):
		return "missing_payment_method"
	case errors.Is(err, ErrMissingCategory):
		return "missing_category"
	case errors.Is(err, ErrMissingOwner):
		return "missing_owner"
	case errors.Is(err, ErrEmptyName):
		return "empty_name"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, ErrCreditLimitExceeded):
		return "credit_limit_exceeded"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidCreditLimit):
		return "invalid_credit_limit"
	case errors.Is(err, ErrInvalidTransactionType):
		return "invalid_transaction_type"
	case errors.Is(err, ErrEntityInUse):
		return "entity_in_use"
	case errors.Is(err, ErrDataNotFound), errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "internal_error"
}
