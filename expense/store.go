/*
store.go - Persistence contract consumed by the ledger

PURPOSE:
  Defines the interface between the ledger and the durable store. The store
  owns the four collections (bills, payment methods, categories, owners);
  the ledger only ever works on snapshots it fetched for the current call.

CONTRACT:
  - List*:   whole collection, in insertion order
  - Get*:    (entity, found, error); a missing id is found=false, not an error
  - Save*:   insert a new entity
  - Update*: whole-entity replace; ErrNotFound if the id is absent
  - Delete*: remove; ErrNotFound if the id is absent

  Any error other than ErrNotFound is an I/O, encoding or decoding failure
  and is surfaced by the ledger as a PersistenceError.

ATOMIC WRITES:
  A store that can group writes implements TxStore. The ledger then runs
  the payment-method update and the bill write inside one WithTx call and
  skips compensation entirely.

IMPLEMENTATIONS:
  - store/memory/memory.go:  In-memory, for tests and dev (TxMemory is a TxStore)
  - store/sqlite/sqlite.go:  SQLite (implements TxStore)
  - store/bolt/bolt.go:      bbolt key/value file (implements TxStore)

SEE ALSO:
  - ledger.go: The only writer of bills and balances
*/
package expense

import "context"

// =============================================================================
// STORE - Per-entity persistence
// =============================================================================

type BillStore interface {
	ListBills(ctx context.Context) ([]Bill, error)
	GetBill(ctx context.Context, id BillID) (Bill, bool, error)
	SaveBill(ctx context.Context, b Bill) error
	UpdateBill(ctx context.Context, b Bill) error
	DeleteBill(ctx context.Context, id BillID) error
}

type PaymentMethodStore interface {
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id PaymentMethodID) (PaymentMethod, bool, error)
	SavePaymentMethod(ctx context.Context, pm PaymentMethod) error
	UpdatePaymentMethod(ctx context.Context, pm PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id PaymentMethodID) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id CategoryID) (Category, bool, error)
	SaveCategory(ctx context.Context, c Category) error
	UpdateCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id CategoryID) error
}

type OwnerStore interface {
	ListOwners(ctx context.Context) ([]Owner, error)
	GetOwner(ctx context.Context, id OwnerID) (Owner, bool, error)
	SaveOwner(ctx context.Context, o Owner) error
	UpdateOwner(ctx context.Context, o Owner) error
	DeleteOwner(ctx context.Context, id OwnerID) error
}

// Store is the full durable store.
type Store interface {
	BillStore
	PaymentMethodStore
	CategoryStore
	OwnerStore
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic multi-entity writes
// =============================================================================

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back, otherwise committed.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Resetter is implemented by stores that can drop all data (demo/dev use).
type Resetter interface {
	Reset(ctx context.Context) error
}
