package repository

import (
	"context"
	"slices"

	"fshfinder/internal/core/feature"
	perr "fshfinder/internal/platform/errors"
)

// AssessFeature evaluates f, trusting only fresh positive cache entries
func (r *Repository) AssessFeature(ctx context.Context, f feature.Feature) (Assessment, error) {
	if rec, ok := r.cached(ctx, f); ok {
		return r.record(f.Name(), rec), nil
	}

	rec, err := r.compute(ctx, f)
	if err != nil {
		return Assessment{}, perr.WithOp(err, "assess "+f.Name())
	}
	rec = r.record(f.Name(), rec)
	if err := r.env.store().Save(ctx, r.id, f.Name(), rec); err != nil {
		return rec, perr.WithOp(err, "persist "+f.Name())
	}
	return rec, nil
}

// EnsureAssessed returns the in memory assessment or computes it once
// Concurrent callers for the same feature share one computation
func (r *Repository) EnsureAssessed(ctx context.Context, f feature.Feature) (Assessment, error) {
	if a, ok := r.Assessed(f.Name()); ok {
		return a, nil
	}
	v, err, _ := r.inflight.Do(f.Name(), func() (any, error) {
		if a, ok := r.Assessed(f.Name()); ok {
			return a, nil
		}
		return r.AssessFeature(ctx, f)
	})
	if err != nil {
		return Assessment{}, err
	}
	return v.(Assessment).clone(), nil
}

func (r *Repository) cached(ctx context.Context, f feature.Feature) (Assessment, bool) {
	policy := f.CachePolicy()
	if !policy.Cacheable() {
		return Assessment{}, false
	}
	rec, ok, err := r.env.store().Load(ctx, r.id, f.Name())
	switch {
	case err != nil:
		r.log(ctx).Warn().Err(err).Str("feature", f.Name()).Msg("cache read failed, recomputing")
		return Assessment{}, false
	case !ok:
		return Assessment{}, false
	case !rec.AnyBranch:
		return Assessment{}, false
	case !policy.Fresh(rec.LastUpdated, r.env.Clock()):
		return Assessment{}, false
	}
	r.log(ctx).Debug().Str("feature", f.Name()).Time("last_updated", rec.LastUpdated).Msg("cache hit")
	return rec.clone(), true
}

func (r *Repository) compute(ctx context.Context, f feature.Feature) (Assessment, error) {
	def, err := r.DefaultBranch(ctx)
	if err != nil {
		return Assessment{}, err
	}

	hits := []string{}
	switch f.Scope() {
	case feature.AllBranches:
		branches, err := r.Branches(ctx)
		if err != nil {
			return Assessment{}, err
		}
		for _, b := range branches {
			ok, err := f.Assess(ctx, r.env.Forge, r, b)
			if err != nil {
				return Assessment{}, perr.WithField(err, b)
			}
			if ok {
				hits = append(hits, b)
			}
		}
	default:
		ok, err := f.Assess(ctx, r.env.Forge, r, def)
		if err != nil {
			return Assessment{}, err
		}
		if ok {
			hits = append(hits, def)
		}
	}

	r.log(ctx).Debug().Str("feature", f.Name()).Strs("branches", hits).Msg("assessed")
	return Assessment{
		AnyBranch:           len(hits) > 0,
		BranchesWithFeature: hits,
		DefaultBranch:       def,
		IsOnDefaultBranch:   def != "" && slices.Contains(hits, def),
		Title:               f.Title(),
		LastUpdated:         r.env.Clock(),
	}, nil
}

func (r *Repository) holds(ctx context.Context, f feature.Feature) (bool, error) {
	a, err := r.EnsureAssessed(ctx, f)
	return a.AnyBranch, err
}

// UsesOldLineage reports FSH under /fsh on any branch
func (r *Repository) UsesOldLineage(ctx context.Context) (bool, error) {
	return r.holds(ctx, feature.UsesOldLineage)
}

// UsesNewLineage reports FSH under /input/fsh on any branch or a sushi-config.yaml
func (r *Repository) UsesNewLineage(ctx context.Context) (bool, error) {
	ok, err := r.holds(ctx, feature.UsesNewLineage)
	if err != nil || ok {
		return ok, err
	}
	return r.holds(ctx, feature.HasSushiConfig)
}

// AnyFsh reports either lineage
func (r *Repository) AnyFsh(ctx context.Context) (bool, error) {
	ok, err := r.UsesNewLineage(ctx)
	if err != nil || ok {
		return ok, err
	}
	return r.UsesOldLineage(ctx)
}

// EnsureBaseline assesses every baseline feature
func (r *Repository) EnsureBaseline(ctx context.Context) error {
	for _, f := range feature.Baseline() {
		if _, err := r.EnsureAssessed(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
