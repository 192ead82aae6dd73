package cmd

import (
	"context"
	"fmt"

	"github.com/warp/household-ledger/expense"
)

// lookup finds an entity whose id or name equals ref. Ids win over names.
func lookup[T expense.Named](items []T, kind, ref string) (T, error) {
	for _, it := range items {
		if it.EntityID() == ref {
			return it, nil
		}
	}
	for _, it := range items {
		if it.EntityName() == expense.NormalizeName(ref) {
			return it, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", expense.ErrDataNotFound, kind, ref)
}

func (a *app) resolveMethod(ctx context.Context, ref string) (expense.PaymentMethod, error) {
	pms, err := a.methods.List(ctx)
	if err != nil {
		return expense.PaymentMethod{}, err
	}
	return lookup(pms, "payment method", ref)
}

func (a *app) resolveCategories(ctx context.Context, refs []string) ([]expense.CategoryID, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	cats, err := a.directory.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]expense.CategoryID, 0, len(refs))
	for _, ref := range refs {
		c, err := lookup(cats, "category", ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (a *app) resolveOwner(ctx context.Context, ref string) (expense.Owner, error) {
	owners, err := a.directory.ListOwners(ctx)
	if err != nil {
		return expense.Owner{}, err
	}
	return lookup(owners, "owner", ref)
}
