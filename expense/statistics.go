/*
statistics.go - Income/expense totals and grouped sums

PURPOSE:
  Summarises a set of bills for display. Pure over its inputs; the service
  wrapper only loads the snapshot.

RULES:
  - A bill counts only if its payment method still exists and is not
    excluded. The method's transaction type decides income vs expense.
  - A bill with several categories adds its full amount to each of them,
    so category sums can exceed the total.
  - Groups are keyed by the entity's current name. A category or owner that
    no longer exists has no name and gets no bucket, but the bill still
    counts toward the totals.

SEE ALSO:
  - filter.go: Date-range narrowing used by StatisticsService
*/
package expense

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Statistics struct {
	TotalIncome     decimal.Decimal            `json:"total_income"`
	TotalExpense    decimal.Decimal            `json:"total_expense"`
	ByCategory      map[string]decimal.Decimal `json:"by_category"`
	ByOwner         map[string]decimal.Decimal `json:"by_owner"`
	ByPaymentMethod map[string]decimal.Decimal `json:"by_payment_method"`
}

// Net is income minus expense.
func (s Statistics) Net() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpense)
}

func CalculateStatistics(bills []Bill, categories []Category, owners []Owner, methods []PaymentMethod) Statistics {
	stats := Statistics{
		TotalIncome:     decimal.Zero,
		TotalExpense:    decimal.Zero,
		ByCategory:      make(map[string]decimal.Decimal),
		ByOwner:         make(map[string]decimal.Decimal),
		ByPaymentMethod: make(map[string]decimal.Decimal),
	}

	catNames := make(map[CategoryID]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}
	ownerNames := make(map[OwnerID]string, len(owners))
	for _, o := range owners {
		ownerNames[o.ID] = o.Name
	}
	byMethod := make(map[PaymentMethodID]PaymentMethod, len(methods))
	for _, pm := range methods {
		byMethod[pm.ID] = pm
	}

	for _, b := range bills {
		pm, ok := byMethod[b.PaymentMethodID]
		if !ok {
			continue
		}
		switch pm.TransactionType {
		case TxIncome:
			stats.TotalIncome = stats.TotalIncome.Add(b.Amount)
		case TxExpense:
			stats.TotalExpense = stats.TotalExpense.Add(b.Amount)
		default:
			continue
		}

		for _, id := range b.CategoryIDs {
			if name, ok := catNames[id]; ok {
				stats.ByCategory[name] = stats.ByCategory[name].Add(b.Amount)
			}
		}
		if name, ok := ownerNames[b.OwnerID]; ok {
			stats.ByOwner[name] = stats.ByOwner[name].Add(b.Amount)
		}
		stats.ByPaymentMethod[pm.Name] = stats.ByPaymentMethod[pm.Name].Add(b.Amount)
	}
	return stats
}

// =============================================================================
// SERVICE
// =============================================================================

// StatisticsService computes Statistics from the current store contents.
type StatisticsService struct {
	Store Store
}

func NewStatisticsService(store Store) *StatisticsService {
	return &StatisticsService{Store: store}
}

// Calculate loads all four collections concurrently, keeps the bills created
// within [from, to] (either bound may be nil) and aggregates them.
func (s *StatisticsService) Calculate(ctx context.Context, from, to *time.Time) (Statistics, error) {
	var (
		bills   []Bill
		cats    []Category
		owners  []Owner
		methods []PaymentMethod
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if bills, err = s.Store.ListBills(gctx); err != nil {
			return persistenceErr("list bills", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if cats, err = s.Store.ListCategories(gctx); err != nil {
			return persistenceErr("list categories", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if owners, err = s.Store.ListOwners(gctx); err != nil {
			return persistenceErr("list owners", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if methods, err = s.Store.ListPaymentMethods(gctx); err != nil {
			return persistenceErr("list payment methods", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}

	bills = FilterBills(bills, BillFilter{From: from, To: to})
	return CalculateStatistics(bills, cats, owners, methods), nil
}
