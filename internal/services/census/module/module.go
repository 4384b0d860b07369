// Package module wires the census service and exposes its ports
package module

import (
	"time"

	"fshfinder/internal/adapters/forge/github"
	"fshfinder/internal/adapters/sources"
	"fshfinder/internal/core/feature"
	"fshfinder/internal/core/repository"
	"fshfinder/internal/core/version"
	"fshfinder/internal/modkit"
	pstrings "fshfinder/internal/platform/strings"
	"fshfinder/internal/services/census/repo"
	"fshfinder/internal/services/census/service"
)

// Module defines the census module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Svc
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the census module from env options merged with overrides
func New(deps modkit.Deps, overrides Options) (*Module, error) {
	opts := merge(FromConfig(deps.Cfg), overrides)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	features, _ := feature.ByNames(opts.Features)
	if opts.SearchScope == "lineage" {
		for i, f := range features {
			features[i] = feature.LineageScoped(f)
		}
	}
	order, err := repository.ComparatorFor(opts.Order)
	if err != nil {
		return nil, err
	}
	srcCfg, err := sources.LoadConfig(opts.SourcesFile)
	if err != nil {
		return nil, err
	}
	if opts.CIBuildURL != "" {
		srcCfg.CIBuild.URL = opts.CIBuildURL
	}

	client := github.NewClient(github.Options{
		APIURL:     opts.APIURL,
		WebURL:     opts.WebURL,
		RawURL:     opts.RawURL,
		UserAgent:  version.UserAgent(),
		Timeout:    opts.HTTPTimeout,
		Username:   opts.Username,
		Token:      opts.Token,
		RetryDelay: opts.RetryDelay,
		RatePerSec: opts.RPS,
		Burst:      opts.Burst,
		MemoSize:   opts.HeadMemoSize,
		MemoTTL:    opts.HeadMemoTTL,
	}).WithLogger(deps.Log.With().Str("component", "github").Logger())

	var store repository.Store = repository.NopStore{}
	if !opts.CacheDisabled {
		store = repo.NewFileStore(opts.Root, opts.CacheDir, deps.Log)
	}
	env := &repository.Env{
		Forge:    github.NewForge(client),
		Store:    store,
		Log:      deps.Log,
		Branches: repository.BranchPolicy(opts.Branches),
		Now:      time.Now,
	}
	srcs := sources.FromConfig(srcCfg, client, client, client, opts.Concurrency, deps.Log)

	svc := service.New(deps, env, client, srcs, service.Config{
		Concurrency: opts.Concurrency,
		FailFast:    opts.FailFast,
		Host:        opts.Host,
		Features:    features,
		Order:       order,
	})

	m := &Module{deps: deps, opts: opts, svc: svc}
	m.ports = Ports{Census: svc, Auth: client}
	return m, nil
}

// merge applies non zero overrides, typically from CLI flags
func merge(opts, o Options) Options {
	if o.Concurrency != 0 {
		opts.Concurrency = o.Concurrency
	}
	if o.Token != "" {
		opts.Token = o.Token
	}
	if o.Username != "" {
		opts.Username = o.Username
	}
	if o.Root != "" {
		opts.Root = o.Root
	}
	if o.CacheDir != "" {
		opts.CacheDir = o.CacheDir
	}
	if o.CacheDisabled {
		opts.CacheDisabled = true
	}
	if o.Branches != "" {
		opts.Branches = o.Branches
	}
	if o.FailFast {
		opts.FailFast = true
	}
	if o.Order != "" {
		opts.Order = o.Order
	}
	if o.SearchScope != "" {
		opts.SearchScope = o.SearchScope
	}
	if o.SourcesFile != "" {
		opts.SourcesFile = o.SourcesFile
	}
	if o.ReportPath != "" {
		opts.ReportPath = o.ReportPath
	}
	opts.Features = pstrings.IfEmpty(o.Features, opts.Features)
	return opts
}

// Name returns the module name
func (m *Module) Name() string { return "census" }

// Ports returns the module ports (Census, Auth)
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix
func (m *Module) Prefix() string { return "CENSUS_" }

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// Service exposes the census service, for failure reporting after a run
func (m *Module) Service() *service.Svc { return m.svc }
