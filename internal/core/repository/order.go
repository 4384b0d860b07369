package repository

import (
	"cmp"
	"time"

	"fshfinder/internal/core/feature"
	perr "fshfinder/internal/platform/errors"
)

// Comparator orders repositories for the report, negative when a sorts first
// Comparators read memoized state only and never reach the forge
type Comparator func(a, b *Repository) int

const (
	OrderRecency  = "recency"
	OrderFeatures = "features"
)

// ComparatorFor resolves an order name
func ComparatorFor(order string) (Comparator, error) {
	switch order {
	case "", OrderRecency:
		return ByRecency, nil
	case OrderFeatures:
		return ByFeaturesThenRecency, nil
	}
	return nil, perr.InvalidArgf("unknown order %q", order)
}

// ByRecency sorts most recently updated first, identity breaks ties
func ByRecency(a, b *Repository) int {
	if c := b.updatedAt().Compare(a.updatedAt()); c != 0 {
		return c
	}
	return cmp.Compare(a.id.String(), b.id.String())
}

// ByFeaturesThenRecency puts FSH users first, then new lineage users, then recency
func ByFeaturesThenRecency(a, b *Repository) int {
	if c := boolDesc(a.heldAny(feature.UsesOldLineage, feature.UsesNewLineage),
		b.heldAny(feature.UsesOldLineage, feature.UsesNewLineage)); c != 0 {
		return c
	}
	if c := boolDesc(a.heldAny(feature.UsesNewLineage, feature.HasSushiConfig),
		b.heldAny(feature.UsesNewLineage, feature.HasSushiConfig)); c != 0 {
		return c
	}
	return ByRecency(a, b)
}

func boolDesc(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	}
	return 1
}

func (r *Repository) updatedAt() time.Time {
	m, _ := r.meta.peek()
	return m.UpdatedAt
}

func (r *Repository) heldAny(fs ...feature.Feature) bool {
	for _, f := range fs {
		if a, ok := r.Assessed(f.Name()); ok && a.AnyBranch {
			return true
		}
	}
	return false
}
