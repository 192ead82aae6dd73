/*
directory.go - Category and owner management

PURPOSE:
  Categories and owners are plain named tags. The only rules are:
  - names are trimmed and must be unique (case-sensitive) within their kind
  - an owner that bills still reference cannot be deleted

  Category deletion is deliberately unguarded. Bills keep dangling category
  ids after their category is deleted: FilterBills still matches on the id
  and CalculateStatistics simply has no name to report it under.

SEE ALSO:
  - names.go: IsNameUnique, the rule used inline here
  - methods.go: Same pattern for payment methods
*/
package expense

import (
	"context"
	"errors"
	"fmt"
)

type Directory struct {
	Store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{Store: store}
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (d *Directory) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := d.Store.ListCategories(ctx)
	if err != nil {
		return nil, persistenceErr("list categories", err)
	}
	return cats, nil
}

// IsCategoryNameUnique checks name against the stored categories, ignoring
// excluding (pass "" to check against all).
func (d *Directory) IsCategoryNameUnique(ctx context.Context, name string, excluding CategoryID) (bool, error) {
	cats, err := d.ListCategories(ctx)
	if err != nil {
		return false, err
	}
	return IsNameUnique(cats, name, string(excluding)), nil
}

func (d *Directory) CreateCategory(ctx context.Context, name string) (Category, error) {
	cats, err := d.ListCategories(ctx)
	if err != nil {
		return Category{}, err
	}
	if err := checkName(cats, name, ""); err != nil {
		return Category{}, fmt.Errorf("category %q: %w", name, err)
	}

	c := Category{ID: NewCategoryID(), Name: NormalizeName(name)}
	if err := d.Store.SaveCategory(ctx, c); err != nil {
		return Category{}, persistenceErr("save category", err)
	}
	return c, nil
}

func (d *Directory) RenameCategory(ctx context.Context, id CategoryID, name string) (Category, error) {
	cats, err := d.ListCategories(ctx)
	if err != nil {
		return Category{}, err
	}
	current, ok := findByID(cats, string(id))
	if !ok {
		return Category{}, fmt.Errorf("%w: category %q", ErrDataNotFound, id)
	}
	if err := checkName(cats, name, string(id)); err != nil {
		return Category{}, fmt.Errorf("category %q: %w", name, err)
	}

	current.Name = NormalizeName(name)
	if err := d.Store.UpdateCategory(ctx, current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Category{}, fmt.Errorf("%w: category %q", ErrDataNotFound, id)
		}
		return Category{}, persistenceErr("update category", err)
	}
	return current, nil
}

// DeleteCategory removes a category without checking bills that use it.
func (d *Directory) DeleteCategory(ctx context.Context, id CategoryID) error {
	if err := d.Store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: category %q", ErrDataNotFound, id)
		}
		return persistenceErr("delete category", err)
	}
	return nil
}

// =============================================================================
// OWNERS
// =============================================================================

func (d *Directory) ListOwners(ctx context.Context) ([]Owner, error) {
	owners, err := d.Store.ListOwners(ctx)
	if err != nil {
		return nil, persistenceErr("list owners", err)
	}
	return owners, nil
}

func (d *Directory) IsOwnerNameUnique(ctx context.Context, name string, excluding OwnerID) (bool, error) {
	owners, err := d.ListOwners(ctx)
	if err != nil {
		return false, err
	}
	return IsNameUnique(owners, name, string(excluding)), nil
}

func (d *Directory) CreateOwner(ctx context.Context, name string) (Owner, error) {
	owners, err := d.ListOwners(ctx)
	if err != nil {
		return Owner{}, err
	}
	if err := checkName(owners, name, ""); err != nil {
		return Owner{}, fmt.Errorf("owner %q: %w", name, err)
	}

	o := Owner{ID: NewOwnerID(), Name: NormalizeName(name)}
	if err := d.Store.SaveOwner(ctx, o); err != nil {
		return Owner{}, persistenceErr("save owner", err)
	}
	return o, nil
}

func (d *Directory) RenameOwner(ctx context.Context, id OwnerID, name string) (Owner, error) {
	owners, err := d.ListOwners(ctx)
	if err != nil {
		return Owner{}, err
	}
	current, ok := findByID(owners, string(id))
	if !ok {
		return Owner{}, fmt.Errorf("%w: owner %q", ErrDataNotFound, id)
	}
	if err := checkName(owners, name, string(id)); err != nil {
		return Owner{}, fmt.Errorf("owner %q: %w", name, err)
	}

	current.Name = NormalizeName(name)
	if err := d.Store.UpdateOwner(ctx, current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Owner{}, fmt.Errorf("%w: owner %q", ErrDataNotFound, id)
		}
		return Owner{}, persistenceErr("update owner", err)
	}
	return current, nil
}

// DeleteOwner removes an owner. Returns ErrEntityInUse while any bill still
// references it.
func (d *Directory) DeleteOwner(ctx context.Context, id OwnerID) error {
	bills, err := d.Store.ListBills(ctx)
	if err != nil {
		return persistenceErr("list bills", err)
	}
	for _, b := range bills {
		if b.OwnerID == id {
			return fmt.Errorf("owner %q: %w", id, ErrEntityInUse)
		}
	}

	if err := d.Store.DeleteOwner(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: owner %q", ErrDataNotFound, id)
		}
		return persistenceErr("delete owner", err)
	}
	return nil
}

func findByID[T Named](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}
