package expense

import "strings"

// =============================================================================
// NAME UNIQUENESS
// =============================================================================

// Named is any entity with an id and a display name.
type Named interface {
	EntityID() string
	EntityName() string
}

// NormalizeName trims surrounding whitespace. Comparison after normalizing is
// exact and case-sensitive.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// IsNameUnique reports whether name (after trimming) is free in existing.
// An entity whose id equals excludingID is ignored, so renaming an entity to
// its own name is allowed. Empty names are never unique.
func IsNameUnique[T Named](existing []T, name, excludingID string) bool {
	return checkName(existing, name, excludingID) == nil
}

// checkName is the embedded form of IsNameUnique used by create/rename. It
// returns ErrEmptyName or ErrDuplicateName; IsNameUnique is true exactly when
// this returns nil.
func checkName[T Named](existing []T, name, excludingID string) error {
	trimmed := NormalizeName(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	for _, e := range existing {
		if excludingID != "" && e.EntityID() == excludingID {
			continue
		}
		if e.EntityName() == trimmed {
			return ErrDuplicateName
		}
	}
	return nil
}
