// Package repository holds the Repository entity: identity, lazily fetched forge
// metadata, per feature assessments and the derived implementation guide title
package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fshfinder/internal/core/feature"
	"fshfinder/internal/platform/logger"
)

// Metadata is what the forge reports about a repository
// Owner and Name are the canonical values after renames
type Metadata struct {
	Owner         string
	Name          string
	DefaultBranch string
	UpdatedAt     time.Time
}

// Forge is the remote surface a Repository reads from
type Forge interface {
	feature.Forge
	Metadata(ctx context.Context, owner, name string) (Metadata, error)
	Branches(ctx context.Context, owner, name string) ([]string, error)
	// RawContent returns ok=false when the file does not exist at ref
	RawContent(ctx context.Context, owner, name, ref, path string) (body string, ok bool, err error)
}

// BranchPolicy limits which branches AllBranches features walk
type BranchPolicy string

const (
	BranchesAll         BranchPolicy = "all"
	BranchesDefaultOnly BranchPolicy = "default"
)

// Env is shared by every Repository of a run
type Env struct {
	Forge    Forge
	Store    Store
	Log      logger.Logger
	Branches BranchPolicy
	Now      func() time.Time
}

// Clock is the current time in UTC, overridable for tests
func (e *Env) Clock() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Env) store() Store {
	if e.Store == nil {
		return NopStore{}
	}
	return e.Store
}

// Repository is one candidate under census
// Identity never changes after New; every other field is filled lazily
type Repository struct {
	env        *Env
	id         Identity
	owner      string
	name       string
	ciBuildURL string

	meta     lazy[Metadata]
	branches lazy[[]string]
	title    lazy[string]

	mu          sync.RWMutex
	assessments map[string]Assessment

	inflight singleflight.Group
}

// Option tweaks a Repository at construction
type Option func(*Repository)

// WithHost overrides the forge host in the identity
func WithHost(host string) Option {
	return func(r *Repository) { r.id = NewIdentity(host, r.owner, r.name) }
}

// WithCIBuildURL attaches the continuous build location
func WithCIBuildURL(u string) Option {
	return func(r *Repository) { r.ciBuildURL = u }
}

// New returns a repository bound to env; owner and name keep their display casing
func New(env *Env, owner, name string, opts ...Option) *Repository {
	r := &Repository{
		env:         env,
		owner:       owner,
		name:        name,
		id:          NewIdentity(DefaultHost, owner, name),
		assessments: map[string]Assessment{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Repository) Identity() Identity { return r.id }
func (r *Repository) Owner() string      { return r.owner }
func (r *Repository) Name() string       { return r.name }
func (r *Repository) CIBuildURL() string { return r.ciBuildURL }

func (r *Repository) log(ctx context.Context) *logger.Logger {
	return logger.From(logger.WithRepo(ctx, r.id.String()), r.env.Log)
}

// Metadata fetches forge metadata once
func (r *Repository) Metadata(ctx context.Context) (Metadata, error) {
	return r.meta.get(func() (Metadata, error) {
		return r.env.Forge.Metadata(ctx, r.owner, r.name)
	})
}

// DefaultBranch is the forge reported default branch
func (r *Repository) DefaultBranch(ctx context.Context) (string, error) {
	m, err := r.Metadata(ctx)
	return m.DefaultBranch, err
}

// UpdatedAt is the forge reported last update time
func (r *Repository) UpdatedAt(ctx context.Context) (time.Time, error) {
	m, err := r.Metadata(ctx)
	return m.UpdatedAt, err
}

// CanonicalIdentity is the identity under the forge's current owner/name
// Renamed repositories resolve to the same canonical identity
func (r *Repository) CanonicalIdentity(ctx context.Context) (Identity, error) {
	m, err := r.Metadata(ctx)
	if err != nil {
		return Identity{}, err
	}
	if m.Owner == "" || m.Name == "" {
		return r.id, nil
	}
	return NewIdentity(r.id.Host(), m.Owner, m.Name), nil
}

// Branches lists the branches AllBranches features walk
func (r *Repository) Branches(ctx context.Context) ([]string, error) {
	return r.branches.get(func() ([]string, error) {
		if r.env.Branches == BranchesDefaultOnly {
			def, err := r.DefaultBranch(ctx)
			if err != nil {
				return nil, err
			}
			return []string{def}, nil
		}
		return r.env.Forge.Branches(ctx, r.owner, r.name)
	})
}

// Assessments returns a copy of the in memory assessments
func (r *Repository) Assessments() map[string]Assessment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Assessment, len(r.assessments))
	for k, v := range r.assessments {
		out[k] = v.clone()
	}
	return out
}

// Assessed returns the in memory assessment of a feature, if any
func (r *Repository) Assessed(name string) (Assessment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessments[name]
	if !ok {
		return Assessment{}, false
	}
	return a.clone(), true
}

// record stores a unless a strictly newer assessment is already held
func (r *Repository) record(name string, a Assessment) Assessment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.assessments[name]; ok && !a.Newer(cur) {
		return cur.clone()
	}
	r.assessments[name] = a.clone()
	return a
}
