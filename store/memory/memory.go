// Package memory provides an in-memory expense.Store (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/household-ledger/expense"
)

// =============================================================================
// TABLE - Insertion-ordered map with copy-on-read
// =============================================================================

type table[K comparable, V any] struct {
	rows  map[K]V
	order []K
	clone func(V) V
}

func newTable[K comparable, V any](clone func(V) V) *table[K, V] {
	return &table[K, V]{rows: make(map[K]V), clone: clone}
}

func (t *table[K, V]) list() []V {
	out := make([]V, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.clone(t.rows[k]))
	}
	return out
}

func (t *table[K, V]) get(k K) (V, bool) {
	v, ok := t.rows[k]
	if !ok {
		var zero V
		return zero, false
	}
	return t.clone(v), true
}

// save inserts or replaces.
func (t *table[K, V]) save(k K, v V) {
	if _, ok := t.rows[k]; !ok {
		t.order = append(t.order, k)
	}
	t.rows[k] = t.clone(v)
}

func (t *table[K, V]) update(k K, v V) error {
	if _, ok := t.rows[k]; !ok {
		return fmt.Errorf("%w: %v", expense.ErrNotFound, k)
	}
	t.rows[k] = t.clone(v)
	return nil
}

func (t *table[K, V]) delete(k K) error {
	if _, ok := t.rows[k]; !ok {
		return fmt.Errorf("%w: %v", expense.ErrNotFound, k)
	}
	delete(t.rows, k)
	for i, o := range t.order {
		if o == k {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *table[K, V]) copy() *table[K, V] {
	c := newTable[K, V](t.clone)
	for _, k := range t.order {
		c.save(k, t.rows[k])
	}
	return c
}

func identity[V any](v V) V { return v }

// =============================================================================
// MEMORY STORE
// =============================================================================

type tables struct {
	bills      *table[expense.BillID, expense.Bill]
	methods    *table[expense.PaymentMethodID, expense.PaymentMethod]
	categories *table[expense.CategoryID, expense.Category]
	owners     *table[expense.OwnerID, expense.Owner]
}

func newTables() tables {
	return tables{
		bills:      newTable[expense.BillID](expense.Bill.Clone),
		methods:    newTable[expense.PaymentMethodID](expense.PaymentMethod.Clone),
		categories: newTable[expense.CategoryID](identity[expense.Category]),
		owners:     newTable[expense.OwnerID](identity[expense.Owner]),
	}
}

func (t tables) copy() tables {
	return tables{
		bills:      t.bills.copy(),
		methods:    t.methods.copy(),
		categories: t.categories.copy(),
		owners:     t.owners.copy(),
	}
}

// Memory stores every entity in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type Memory struct {
	mu sync.RWMutex
	t  tables
}

func NewMemory() *Memory {
	return &Memory{t: newTables()}
}

func (m *Memory) ListBills(_ context.Context) ([]expense.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.bills.list(), nil
}

func (m *Memory) GetBill(_ context.Context, id expense.BillID) (expense.Bill, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.t.bills.get(id)
	return b, ok, nil
}

func (m *Memory) SaveBill(_ context.Context, b expense.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.bills.save(b.ID, b)
	return nil
}

func (m *Memory) UpdateBill(_ context.Context, b expense.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.bills.update(b.ID, b)
}

func (m *Memory) DeleteBill(_ context.Context, id expense.BillID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.bills.delete(id)
}

func (m *Memory) ListPaymentMethods(_ context.Context) ([]expense.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.methods.list(), nil
}

func (m *Memory) GetPaymentMethod(_ context.Context, id expense.PaymentMethodID) (expense.PaymentMethod, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.t.methods.get(id)
	return pm, ok, nil
}

func (m *Memory) SavePaymentMethod(_ context.Context, pm expense.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.methods.save(pm.ID, pm)
	return nil
}

func (m *Memory) UpdatePaymentMethod(_ context.Context, pm expense.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.methods.update(pm.ID, pm)
}

func (m *Memory) DeletePaymentMethod(_ context.Context, id expense.PaymentMethodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.methods.delete(id)
}

func (m *Memory) ListCategories(_ context.Context) ([]expense.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.categories.list(), nil
}

func (m *Memory) GetCategory(_ context.Context, id expense.CategoryID) (expense.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.t.categories.get(id)
	return c, ok, nil
}

func (m *Memory) SaveCategory(_ context.Context, c expense.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.categories.save(c.ID, c)
	return nil
}

func (m *Memory) UpdateCategory(_ context.Context, c expense.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.categories.update(c.ID, c)
}

func (m *Memory) DeleteCategory(_ context.Context, id expense.CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.categories.delete(id)
}

func (m *Memory) ListOwners(_ context.Context) ([]expense.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.owners.list(), nil
}

func (m *Memory) GetOwner(_ context.Context, id expense.OwnerID) (expense.Owner, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.t.owners.get(id)
	return o, ok, nil
}

func (m *Memory) SaveOwner(_ context.Context, o expense.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.owners.save(o.ID, o)
	return nil
}

func (m *Memory) UpdateOwner(_ context.Context, o expense.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.owners.update(o.ID, o)
}

func (m *Memory) DeleteOwner(_ context.Context, id expense.OwnerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.owners.delete(id)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx runs fn against a working copy of every table and swaps it in only
// if fn succeeds. The write lock is held for the whole call.
func (tm *TxMemory) WithTx(_ context.Context, fn func(expense.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	view := &Memory{t: tm.t.copy()}
	if err := fn(view); err != nil {
		return err
	}
	tm.t = view.t
	return nil
}

var (
	_ expense.Store    = (*Memory)(nil)
	_ expense.TxStore  = (*TxMemory)(nil)
	_ expense.Resetter = (*Memory)(nil)
)

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = newTables()
	return nil
}
