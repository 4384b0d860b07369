// Package feature defines the FSH feature detectors assessed against repositories
//
// A feature is a stateless predicate with a stable name. Branch scoped features
// are evaluated once per branch, the rest only against the default branch.
// Detectors are enumerated in a static registry, see registry.go
package feature

import (
	"context"
	"time"
)

// Scope says which branches a feature is evaluated against
type Scope int

const (
	// AllBranches evaluates the feature on every listed branch
	AllBranches Scope = iota
	// DefaultBranchOnly evaluates the feature once on the default branch
	DefaultBranchOnly
)

// String returns the scope label used in logs
func (s Scope) String() string {
	if s == AllBranches {
		return "all_branches"
	}
	return "default_branch"
}

// CachePolicy is either NotCacheable or a positive time to live
type CachePolicy struct{ ttl time.Duration }

// NotCacheable features are always recomputed
var NotCacheable = CachePolicy{}

// TTL returns a policy trusting positive cached results younger than d
// Non positive durations collapse to NotCacheable
func TTL(d time.Duration) CachePolicy {
	if d <= 0 {
		return NotCacheable
	}
	return CachePolicy{ttl: d}
}

// Cacheable reports whether the durable cache may be consulted
func (p CachePolicy) Cacheable() bool { return p.ttl > 0 }

// TTL returns the time to live, zero when not cacheable
func (p CachePolicy) TTL() time.Duration { return p.ttl }

// Fresh reports whether a record stamped at last is still within the ttl at now
func (p CachePolicy) Fresh(last, now time.Time) bool {
	if !p.Cacheable() || last.IsZero() {
		return false
	}
	age := now.Sub(last)
	return age >= 0 && age <= p.ttl
}

// Forge is the remote surface detectors read from
type Forge interface {
	PathExists(ctx context.Context, owner, name, ref, path string) (bool, error)
	SearchCode(ctx context.Context, query string) (total int, accessible bool, err error)
}

// Subject is the repository under assessment
type Subject interface {
	Owner() string
	Name() string
	UsesNewLineage(ctx context.Context) (bool, error)
}

// Feature is a named pure predicate over a repository
// branch is empty for DefaultBranchOnly features only when the caller has no
// default branch to offer; implementations must not default to false on remote errors
type Feature interface {
	Name() string
	Title() string
	Scope() Scope
	CachePolicy() CachePolicy
	Assess(ctx context.Context, f Forge, s Subject, branch string) (bool, error)
}
