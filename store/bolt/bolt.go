/*
Package bolt provides a bbolt-backed implementation of expense.Store.

PURPOSE:
  Single-file embedded storage with no cgo. Every entity is stored as JSON.
  bbolt transactions are real, so the store is an expense.TxStore too.

LAYOUT:
  <kind>      sequence key (big-endian uint64) -> JSON value
  <kind>.ids  entity id                        -> sequence key

  Keying rows by sequence keeps List in insertion order; the .ids bucket
  resolves an entity id to its row.

SEE ALSO:
  - expense/store.go: Interface definitions
  - store/sqlite: SQL implementation
*/
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/warp/household-ledger/expense"
	bbolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	BucketBills          = "bills"
	BucketPaymentMethods = "payment_methods"
	BucketCategories     = "categories"
	BucketOwners         = "owners"
)

var allBuckets = []string{BucketBills, BucketPaymentMethods, BucketCategories, BucketOwners}

func indexBucket(kind string) string { return kind + ".ids" }

// Store is the bbolt database wrapper.
type Store struct {
	db *bbolt.DB
}

// New opens (creating if needed) the database file and initializes buckets.
func New(dbPath string) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return createBuckets(tx)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createBuckets(tx *bbolt.Tx) error {
	for _, kind := range allBuckets {
		for _, name := range []string{kind, indexBucket(kind)} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one read-write bbolt transaction.
func (s *Store) WithTx(_ context.Context, fn func(expense.Store) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(txView{tx: tx})
	})
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range allBuckets {
			for _, name := range []string{kind, indexBucket(kind)} {
				if err := tx.DeleteBucket([]byte(name)); err != nil {
					return fmt.Errorf("failed to drop bucket %s: %w", name, err)
				}
			}
		}
		return createBuckets(tx)
	})
}

// =============================================================================
// STORE - each call is its own bbolt transaction
// =============================================================================

func read[T any](s *Store, fn func(v txView) (T, error)) (T, error) {
	var out T
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = fn(txView{tx: tx})
		return err
	})
	return out, err
}

func lookup[T any](s *Store, fn func(v txView) (T, bool, error)) (T, bool, error) {
	var (
		out   T
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, found, err = fn(txView{tx: tx})
		return err
	})
	return out, found, err
}

func (s *Store) write(fn func(v txView) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(txView{tx: tx})
	})
}

func (s *Store) ListBills(ctx context.Context) ([]expense.Bill, error) {
	return read(s, func(v txView) ([]expense.Bill, error) { return v.ListBills(ctx) })
}

func (s *Store) GetBill(ctx context.Context, id expense.BillID) (expense.Bill, bool, error) {
	return lookup(s, func(v txView) (expense.Bill, bool, error) { return v.GetBill(ctx, id) })
}

func (s *Store) SaveBill(ctx context.Context, b expense.Bill) error {
	return s.write(func(v txView) error { return v.SaveBill(ctx, b) })
}

func (s *Store) UpdateBill(ctx context.Context, b expense.Bill) error {
	return s.write(func(v txView) error { return v.UpdateBill(ctx, b) })
}

func (s *Store) DeleteBill(ctx context.Context, id expense.BillID) error {
	return s.write(func(v txView) error { return v.DeleteBill(ctx, id) })
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]expense.PaymentMethod, error) {
	return read(s, func(v txView) ([]expense.PaymentMethod, error) { return v.ListPaymentMethods(ctx) })
}

func (s *Store) GetPaymentMethod(ctx context.Context, id expense.PaymentMethodID) (expense.PaymentMethod, bool, error) {
	return lookup(s, func(v txView) (expense.PaymentMethod, bool, error) { return v.GetPaymentMethod(ctx, id) })
}

func (s *Store) SavePaymentMethod(ctx context.Context, pm expense.PaymentMethod) error {
	return s.write(func(v txView) error { return v.SavePaymentMethod(ctx, pm) })
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, pm expense.PaymentMethod) error {
	return s.write(func(v txView) error { return v.UpdatePaymentMethod(ctx, pm) })
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id expense.PaymentMethodID) error {
	return s.write(func(v txView) error { return v.DeletePaymentMethod(ctx, id) })
}

func (s *Store) ListCategories(ctx context.Context) ([]expense.Category, error) {
	return read(s, func(v txView) ([]expense.Category, error) { return v.ListCategories(ctx) })
}

func (s *Store) GetCategory(ctx context.Context, id expense.CategoryID) (expense.Category, bool, error) {
	return lookup(s, func(v txView) (expense.Category, bool, error) { return v.GetCategory(ctx, id) })
}

func (s *Store) SaveCategory(ctx context.Context, c expense.Category) error {
	return s.write(func(v txView) error { return v.SaveCategory(ctx, c) })
}

func (s *Store) UpdateCategory(ctx context.Context, c expense.Category) error {
	return s.write(func(v txView) error { return v.UpdateCategory(ctx, c) })
}

func (s *Store) DeleteCategory(ctx context.Context, id expense.CategoryID) error {
	return s.write(func(v txView) error { return v.DeleteCategory(ctx, id) })
}

func (s *Store) ListOwners(ctx context.Context) ([]expense.Owner, error) {
	return read(s, func(v txView) ([]expense.Owner, error) { return v.ListOwners(ctx) })
}

func (s *Store) GetOwner(ctx context.Context, id expense.OwnerID) (expense.Owner, bool, error) {
	return lookup(s, func(v txView) (expense.Owner, bool, error) { return v.GetOwner(ctx, id) })
}

func (s *Store) SaveOwner(ctx context.Context, o expense.Owner) error {
	return s.write(func(v txView) error { return v.SaveOwner(ctx, o) })
}

func (s *Store) UpdateOwner(ctx context.Context, o expense.Owner) error {
	return s.write(func(v txView) error { return v.UpdateOwner(ctx, o) })
}

func (s *Store) DeleteOwner(ctx context.Context, id expense.OwnerID) error {
	return s.write(func(v txView) error { return v.DeleteOwner(ctx, id) })
}

// =============================================================================
// TX VIEW - expense.Store over an open bbolt transaction
// =============================================================================

type txView struct {
	tx *bbolt.Tx
}

func (v txView) ListBills(context.Context) ([]expense.Bill, error) {
	return list[expense.Bill](v.tx, BucketBills)
}

func (v txView) GetBill(_ context.Context, id expense.BillID) (expense.Bill, bool, error) {
	return get[expense.Bill](v.tx, BucketBills, string(id))
}

func (v txView) SaveBill(_ context.Context, b expense.Bill) error {
	return put(v.tx, BucketBills, string(b.ID), b, false)
}

func (v txView) UpdateBill(_ context.Context, b expense.Bill) error {
	return put(v.tx, BucketBills, string(b.ID), b, true)
}

func (v txView) DeleteBill(_ context.Context, id expense.BillID) error {
	return remove(v.tx, BucketBills, string(id))
}

func (v txView) ListPaymentMethods(context.Context) ([]expense.PaymentMethod, error) {
	return list[expense.PaymentMethod](v.tx, BucketPaymentMethods)
}

func (v txView) GetPaymentMethod(_ context.Context, id expense.PaymentMethodID) (expense.PaymentMethod, bool, error) {
	return get[expense.PaymentMethod](v.tx, BucketPaymentMethods, string(id))
}

func (v txView) SavePaymentMethod(_ context.Context, pm expense.PaymentMethod) error {
	return put(v.tx, BucketPaymentMethods, string(pm.ID), pm, false)
}

func (v txView) UpdatePaymentMethod(_ context.Context, pm expense.PaymentMethod) error {
	return put(v.tx, BucketPaymentMethods, string(pm.ID), pm, true)
}

func (v txView) DeletePaymentMethod(_ context.Context, id expense.PaymentMethodID) error {
	return remove(v.tx, BucketPaymentMethods, string(id))
}

func (v txView) ListCategories(context.Context) ([]expense.Category, error) {
	return list[expense.Category](v.tx, BucketCategories)
}

func (v txView) GetCategory(_ context.Context, id expense.CategoryID) (expense.Category, bool, error) {
	return get[expense.Category](v.tx, BucketCategories, string(id))
}

func (v txView) SaveCategory(_ context.Context, c expense.Category) error {
	return put(v.tx, BucketCategories, string(c.ID), c, false)
}

func (v txView) UpdateCategory(_ context.Context, c expense.Category) error {
	return put(v.tx, BucketCategories, string(c.ID), c, true)
}

func (v txView) DeleteCategory(_ context.Context, id expense.CategoryID) error {
	return remove(v.tx, BucketCategories, string(id))
}

func (v txView) ListOwners(context.Context) ([]expense.Owner, error) {
	return list[expense.Owner](v.tx, BucketOwners)
}

func (v txView) GetOwner(_ context.Context, id expense.OwnerID) (expense.Owner, bool, error) {
	return get[expense.Owner](v.tx, BucketOwners, string(id))
}

func (v txView) SaveOwner(_ context.Context, o expense.Owner) error {
	return put(v.tx, BucketOwners, string(o.ID), o, false)
}

func (v txView) UpdateOwner(_ context.Context, o expense.Owner) error {
	return put(v.tx, BucketOwners, string(o.ID), o, true)
}

func (v txView) DeleteOwner(_ context.Context, id expense.OwnerID) error {
	return remove(v.tx, BucketOwners, string(id))
}

// =============================================================================
// JSON ROWS
// =============================================================================

func buckets(tx *bbolt.Tx, kind string) (rows, ids *bbolt.Bucket, err error) {
	rows = tx.Bucket([]byte(kind))
	ids = tx.Bucket([]byte(indexBucket(kind)))
	if rows == nil || ids == nil {
		return nil, nil, fmt.Errorf("bucket %s not found", kind)
	}
	return rows, ids, nil
}

func list[T any](tx *bbolt.Tx, kind string) ([]T, error) {
	rows, _, err := buckets(tx, kind)
	if err != nil {
		return nil, err
	}
	out := []T{}
	err = rows.ForEach(func(_, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to decode %s: %w", kind, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func get[T any](tx *bbolt.Tx, kind, id string) (T, bool, error) {
	var v T
	rows, ids, err := buckets(tx, kind)
	if err != nil {
		return v, false, err
	}
	key := ids.Get([]byte(id))
	if key == nil {
		return v, false, nil
	}
	data := rows.Get(key)
	if data == nil {
		return v, false, fmt.Errorf("%s %s: index points at missing row", kind, id)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode %s %s: %w", kind, id, err)
	}
	return v, true, nil
}

// put inserts or replaces the row for id. With mustExist it refuses to
// insert and returns expense.ErrNotFound instead.
func put(tx *bbolt.Tx, kind, id string, value any, mustExist bool) error {
	rows, ids, err := buckets(tx, kind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	key := ids.Get([]byte(id))
	if key == nil {
		if mustExist {
			return fmt.Errorf("%w: %s %s", expense.ErrNotFound, kind, id)
		}
		seq, err := rows.NextSequence()
		if err != nil {
			return err
		}
		key = itob(seq)
		if err := ids.Put([]byte(id), key); err != nil {
			return err
		}
	} else {
		// Values returned by Get are only valid for the life of the tx.
		key = append([]byte(nil), key...)
	}
	return rows.Put(key, data)
}

func remove(tx *bbolt.Tx, kind, id string) error {
	rows, ids, err := buckets(tx, kind)
	if err != nil {
		return err
	}
	key := ids.Get([]byte(id))
	if key == nil {
		return fmt.Errorf("%w: %s %s", expense.ErrNotFound, kind, id)
	}
	key = append([]byte(nil), key...)
	if err := rows.Delete(key); err != nil {
		return err
	}
	return ids.Delete([]byte(id))
}

// itob converts a sequence to a big-endian key so ForEach walks in order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

var (
	_ expense.TxStore  = (*Store)(nil)
	_ expense.Resetter = (*Store)(nil)
	_ expense.Store    = txView{}
)
