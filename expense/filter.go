package expense

import (
	"context"
	"time"
)

// BillFilter narrows a bill list. Every field is optional: a nil or empty
// field matches all bills. Set fields are combined with AND.
type BillFilter struct {
	CategoryIDs      []CategoryID
	OwnerIDs         []OwnerID
	PaymentMethodIDs []PaymentMethodID
	From             *time.Time
	To               *time.Time
}

// IsZero reports whether the filter has no predicate set.
func (f BillFilter) IsZero() bool {
	return len(f.CategoryIDs) == 0 && len(f.OwnerIDs) == 0 &&
		len(f.PaymentMethodIDs) == 0 && f.From == nil && f.To == nil
}

// FilterBills returns the bills matching f, in input order. A bill matches
// the category predicate if it shares at least one id with f.CategoryIDs.
// Date bounds are inclusive and compared against CreatedAt.
func FilterBills(bills []Bill, f BillFilter) []Bill {
	cats := toSet(f.CategoryIDs)
	owners := toSet(f.OwnerIDs)
	methods := toSet(f.PaymentMethodIDs)

	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if len(cats) > 0 && !anyIn(b.CategoryIDs, cats) {
			continue
		}
		if len(owners) > 0 {
			if _, ok := owners[b.OwnerID]; !ok {
				continue
			}
		}
		if len(methods) > 0 {
			if _, ok := methods[b.PaymentMethodID]; !ok {
				continue
			}
		}
		if f.From != nil && b.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && b.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func toSet[K comparable](ids []K) map[K]struct{} {
	set := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func anyIn[K comparable](ids []K, set map[K]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// QueryBills loads every bill from store and applies f.
func QueryBills(ctx context.Context, store Store, f BillFilter) ([]Bill, error) {
	bills, err := store.ListBills(ctx)
	if err != nil {
		return nil, persistenceErr("list bills", err)
	}
	return FilterBills(bills, f), nil
}
