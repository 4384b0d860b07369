package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fshfinder/internal/core/repository"
	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
	"fshfinder/internal/services/census/domain"
)

// runPhase applies fn to every repo on a pool of at most limit workers
// The pool is drained before returning, so phases never overlap
// In skip mode failing repos are dropped and reported; fatal errors always abort
// A cancelled ctx aborts the phase, never a silently emptied one
func (c *Collection) runPhase(
	ctx context.Context,
	phase string,
	repos []*repository.Repository,
	fn func(context.Context, *repository.Repository) error,
) ([]*repository.Repository, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	errs := make([]error, len(repos))
	for i, r := range repos {
		g.Go(func() error {
			err := fn(logger.WithRepo(gctx, r.Identity().String()), r)
			if err == nil {
				return nil
			}
			if c.cfg.FailFast || perr.IsFatal(err) {
				return perr.WithField(err, r.Identity().String())
			}
			errs[i] = err
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		c.log.Error().Err(err).Str("phase", phase).Msg("phase aborted")
		return nil, err
	}

	kept := make([]*repository.Repository, 0, len(repos))
	for i, r := range repos {
		if errs[i] == nil {
			kept = append(kept, r)
			continue
		}
		c.log.Warn().Err(errs[i]).Str("phase", phase).Str("repo", r.Identity().String()).Msg("repo skipped")
		c.failures = append(c.failures, domain.Failure{Identity: r.Identity().String(), Err: errs[i]})
	}
	return kept, nil
}
