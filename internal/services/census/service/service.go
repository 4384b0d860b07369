// Package service contains the census workflows
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fshfinder/internal/core/feature"
	"fshfinder/internal/core/repository"
	"fshfinder/internal/modkit"
	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
	"fshfinder/internal/services/census/domain"
)

const defaultConcurrency = 100

// Config carries runtime knobs for a census run
type Config struct {
	Concurrency int
	FailFast    bool
	Host        string
	Features    []feature.Feature
	Order       repository.Comparator
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Host == "" {
		c.Host = repository.DefaultHost
	}
	if c.Order == nil {
		c.Order = repository.ByRecency
	}
	return c
}

// Svc implements the census ports
type Svc struct {
	deps    modkit.Deps
	cfg     Config
	env     *repository.Env
	auth    domain.AuthPort
	sources []domain.Source

	last *Collection
}

var _ domain.CensusPort = (*Svc)(nil)

// New constructs a census service; auth may be nil
func New(deps modkit.Deps, env *repository.Env, auth domain.AuthPort, sources []domain.Source, cfg Config) *Svc {
	if env == nil || env.Forge == nil {
		panic("census.Service requires a forge")
	}
	return &Svc{deps: deps, cfg: cfg.withDefaults(), env: env, auth: auth, sources: sources}
}

// Run checks credentials, gathers candidates, builds the collection,
// assesses the configured features and returns the report
func (s *Svc) Run(ctx context.Context) (domain.Report, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRun(ctx, runID)
	}
	log := *logger.From(ctx, s.deps.Log)
	start := time.Now()

	if s.auth != nil {
		if err := s.auth.CheckAuth(ctx); err != nil {
			log.Error().Err(err).Msg("forge credential check failed")
			return domain.Report{}, err
		}
	}

	batches, err := s.collect(ctx, log)
	if err != nil {
		return domain.Report{}, err
	}

	col, err := Build(ctx, s.env, s.cfg, batches...)
	if err != nil {
		return domain.Report{}, err
	}
	if err := col.AssessRepos(ctx, s.cfg.Features...); err != nil {
		return domain.Report{}, err
	}
	s.last = col

	rep, err := col.Report(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	log.Info().
		Int("repos", len(rep.Repos)).
		Int("failures", len(col.Failures())).
		Int("features", len(s.cfg.Features)).
		Dur("took", time.Since(start)).
		Msg("census complete")
	return rep, nil
}

// Failures lists repos skipped by the last run
func (s *Svc) Failures() []domain.Failure {
	if s.last == nil {
		return nil
	}
	return s.last.Failures()
}

// collect asks every source for candidates
// A failing source aborts in fail fast mode or on bad credentials, otherwise it is skipped
func (s *Svc) collect(ctx context.Context, log logger.Logger) ([][]domain.Candidate, error) {
	batches := make([][]domain.Candidate, 0, len(s.sources))
	for _, src := range s.sources {
		cands, err := src.Candidates(ctx)
		if err != nil {
			if s.cfg.FailFast || perr.IsFatal(err) || ctx.Err() != nil {
				return nil, perr.WithOp(err, "source "+src.Name())
			}
			log.Warn().Err(err).Str("source", src.Name()).Msg("source failed, skipping")
			continue
		}
		log.Info().Str("source", src.Name()).Int("candidates", len(cands)).Msg("source listed")
		batches = append(batches, cands)
	}
	return batches, nil
}
