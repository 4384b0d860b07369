package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
	"fshfinder/internal/services/census/domain"
)

// Prober checks that a repository is public on the forge
type Prober interface {
	RepoExists(ctx context.Context, owner, name string) (bool, error)
}

// Lister lists the repository names of an organisation
type Lister interface {
	ReposForUser(ctx context.Context, user string) ([]string, error)
}

// Fetcher reads a feed body
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const defaultProbeLimit = 8

// Static lists a fixed set of owner/name references that exist on the forge
type Static struct {
	Repos []string
	Probe Prober
	Limit int
	Log   logger.Logger
}

func (s Static) Name() string { return "static" }

func (s Static) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	cands := make([]domain.Candidate, 0, len(s.Repos))
	for _, r := range s.Repos {
		owner, name, ok := splitFullName(r)
		if !ok {
			logger.From(ctx, s.Log).Warn().Str("entry", r).Msg("static entry ignored")
			continue
		}
		cands = append(cands, domain.Candidate{Owner: owner, Name: name})
	}
	return existing(ctx, s.Probe, s.Limit, cands)
}

// CIBuild lists every repository published by the FHIR CI build
type CIBuild struct {
	URL   string
	Feed  Fetcher
	Probe Prober
	Limit int
	Log   logger.Logger
}

type qaEntry struct {
	Repo string `json:"repo"`
}

func (s CIBuild) Name() string { return "ci_build" }

func (s CIBuild) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	url := s.URL
	if url == "" {
		url = DefaultCIBuildFeed
	}
	body, err := s.Feed.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	var entries []qaEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "decode ci build feed %s", url)
	}

	// one entry per built branch, keep the first per ci build url
	seen := map[string]bool{}
	var cands []domain.Candidate
	for _, e := range entries {
		owner, name, ok := splitFullName(e.Repo)
		if !ok {
			continue
		}
		ci := CIBuildURL(owner, name)
		if seen[ci] {
			continue
		}
		seen[ci] = true
		cands = append(cands, domain.Candidate{Owner: owner, Name: name, CIBuildURL: ci})
	}
	logger.From(ctx, s.Log).Debug().Int("entries", len(entries)).Int("repos", len(cands)).Msg("ci build feed read")
	return existing(ctx, s.Probe, s.Limit, cands)
}

// CIBuildURL is where the CI build publishes owner/name
func CIBuildURL(owner, name string) string {
	return fmt.Sprintf("https://build.fhir.org/ig/%s/%s", owner, name)
}

// Orgs crawls every repository of each organisation
type Orgs struct {
	Orgs []string
	List Lister
	Log  logger.Logger
}

func (s Orgs) Name() string { return "orgs" }

func (s Orgs) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	var cands []domain.Candidate
	for _, org := range s.Orgs {
		names, err := s.List.ReposForUser(ctx, org)
		if err != nil {
			return nil, perr.WithField(err, org)
		}
		for _, n := range names {
			cands = append(cands, domain.Candidate{Owner: org, Name: n})
		}
		logger.From(ctx, s.Log).Debug().Str("org", org).Int("repos", len(names)).Msg("org crawled")
	}
	return cands, nil
}

// existing keeps candidates the forge reports as existing, preserving order
func existing(ctx context.Context, p Prober, limit int, cands []domain.Candidate) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = defaultProbeLimit
	}
	keep := make([]bool, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range cands {
		g.Go(func() error {
			ok, err := p.RepoExists(gctx, c.Owner, c.Name)
			if err != nil {
				return perr.WithField(err, c.Owner+"/"+c.Name)
			}
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(cands))
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

// FromConfig builds the sources a config enables
func FromConfig(c Config, probe Prober, list Lister, feed Fetcher, limit int, log logger.Logger) []domain.Source {
	var out []domain.Source
	if len(c.Static) > 0 {
		out = append(out, Static{Repos: c.Static, Probe: probe, Limit: limit, Log: log})
	}
	if !c.CIBuild.Disabled {
		out = append(out, CIBuild{URL: c.CIBuild.URL, Feed: feed, Probe: probe, Limit: limit, Log: log})
	}
	if len(c.Orgs) > 0 {
		out = append(out, Orgs{Orgs: c.Orgs, List: list, Log: log})
	}
	return out
}
