package service

import (
	"context"
	"slices"

	"fshfinder/internal/core/feature"
	"fshfinder/internal/core/repository"
	"fshfinder/internal/platform/logger"
	"fshfinder/internal/services/census/domain"
)

// Collection is the deduplicated, FSH only, sorted set of repositories of a run
type Collection struct {
	env      *repository.Env
	cfg      Config
	log      logger.Logger
	repos    []*repository.Repository
	failures []domain.Failure
}

// Build ingests candidate batches and runs the baseline and title phases
//
//  1. flatten and drop empty candidates
//  2. dedupe by normalized identity, first occurrence wins
//  3. assess baseline features on the pool
//  4. dedupe again by canonical forge identity (renames)
//  5. keep repos using FSH at all
//  6. derive titles on the pool
//
// The sorted view is computed once every phase is done
func Build(ctx context.Context, env *repository.Env, cfg Config, batches ...[]domain.Candidate) (*Collection, error) {
	cfg = cfg.withDefaults()
	c := &Collection{env: env, cfg: cfg, log: *logger.From(ctx, env.Log)}

	repos := c.dedupe(batches)
	c.log.Info().Int("candidates", len(repos)).Msg("candidates deduplicated")

	repos, err := c.runPhase(ctx, "baseline", repos, func(ctx context.Context, r *repository.Repository) error {
		if err := r.EnsureBaseline(ctx); err != nil {
			return err
		}
		_, err := r.Metadata(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	repos = c.dedupeCanonical(ctx, repos)
	repos = slices.DeleteFunc(repos, func(r *repository.Repository) bool {
		ok, err := r.AnyFsh(ctx)
		return err != nil || !ok
	})
	c.log.Info().Int("fshy", len(repos)).Msg("baseline assessed")

	repos, err = c.runPhase(ctx, "titles", repos, func(ctx context.Context, r *repository.Repository) error {
		_, err := r.IGTitle(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(repos, cfg.Order)
	c.repos = repos
	return c, nil
}

// dedupe keeps the first candidate per identity; a later duplicate only
// contributes a ci build url the kept one lacks
func (c *Collection) dedupe(batches [][]domain.Candidate) []*repository.Repository {
	index := map[repository.Identity]int{}
	var kept []domain.Candidate
	for _, batch := range batches {
		for _, cand := range batch {
			if cand.Empty() {
				continue
			}
			if cand.Host == "" {
				cand.Host = c.cfg.Host
			}
			id := cand.Identity()
			if i, ok := index[id]; ok {
				if kept[i].CIBuildURL == "" {
					kept[i].CIBuildURL = cand.CIBuildURL
				}
				continue
			}
			index[id] = len(kept)
			kept = append(kept, cand)
		}
	}

	out := make([]*repository.Repository, len(kept))
	for i, cand := range kept {
		out[i] = repository.New(c.env, cand.Owner, cand.Name,
			repository.WithHost(cand.Host), repository.WithCIBuildURL(cand.CIBuildURL))
	}
	return out
}

// dedupeCanonical drops repos that resolve to an already kept forge identity
// Metadata is memoized by the baseline phase, so this makes no remote calls
func (c *Collection) dedupeCanonical(ctx context.Context, repos []*repository.Repository) []*repository.Repository {
	seen := map[repository.Identity]bool{}
	out := repos[:0]
	for _, r := range repos {
		id, err := r.CanonicalIdentity(ctx)
		if err != nil {
			id = r.Identity()
		}
		if seen[id] {
			c.log.Debug().Str("repo", r.Identity().String()).Str("canonical", id.String()).Msg("renamed duplicate dropped")
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}

// AssessRepos ensures every feature is assessed for every repo
// Already assessed features are served from memory
func (c *Collection) AssessRepos(ctx context.Context, features ...feature.Feature) error {
	repos, err := c.runPhase(ctx, "features", c.repos, func(ctx context.Context, r *repository.Repository) error {
		for _, f := range features {
			if _, err := r.EnsureAssessed(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.repos = repos
	return nil
}

// Repos returns the sorted snapshot
func (c *Collection) Repos() []*repository.Repository { return slices.Clone(c.repos) }

// Identities lists the identity of every retained repo in sorted order
func (c *Collection) Identities() []string {
	out := make([]string, len(c.repos))
	for i, r := range c.repos {
		out[i] = r.Identity().String()
	}
	return out
}

// Failures lists repos dropped in skip mode
func (c *Collection) Failures() []domain.Failure { return slices.Clone(c.failures) }

// Report projects the collection
func (c *Collection) Report(ctx context.Context) (domain.Report, error) {
	rep := domain.Report{
		Repos:     make([]repository.Document, 0, len(c.repos)),
		Updated:   c.env.Clock().Format(repository.UpdatedAtLayout),
		FshyRepos: c.Identities(),
	}
	for _, r := range c.repos {
		doc, err := r.Document(ctx)
		if err != nil {
			return domain.Report{}, err
		}
		rep.Repos = append(rep.Repos, doc)
	}
	return rep, nil
}
