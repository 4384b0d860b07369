package repository

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Assessment is the outcome of evaluating one feature against one repository
type Assessment struct {
	AnyBranch           bool      `json:"anyBranch"`
	BranchesWithFeature []string  `json:"branchesWithFeature"`
	DefaultBranch       string    `json:"defaultBranch,omitempty"`
	IsOnDefaultBranch   bool      `json:"isOnDefaultBranch"`
	Title               string    `json:"title"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// Newer reports whether a was assessed strictly after b
func (a Assessment) Newer(b Assessment) bool { return a.LastUpdated.After(b.LastUpdated) }

func (a Assessment) clone() Assessment {
	a.BranchesWithFeature = slices.Clone(a.BranchesWithFeature)
	if a.BranchesWithFeature == nil {
		a.BranchesWithFeature = []string{}
	}
	return a
}

// Store is the durable assessment cache
// Load returns ok=false when nothing is cached for the pair
// Save merges the record with whatever else is persisted for the identity
type Store interface {
	Load(ctx context.Context, id Identity, feature string) (Assessment, bool, error)
	Save(ctx context.Context, id Identity, feature string, a Assessment) error
}

// MemoryStore is a process local Store
type MemoryStore struct {
	mu   sync.Mutex
	recs map[Identity]map[string]Assessment
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[Identity]map[string]Assessment{}}
}

func (m *MemoryStore) Load(_ context.Context, id Identity, feature string) (Assessment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.recs[id][feature]
	if !ok {
		return Assessment{}, false, nil
	}
	return a.clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, id Identity, feature string, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs[id] == nil {
		m.recs[id] = map[string]Assessment{}
	}
	m.recs[id][feature] = a.clone()
	return nil
}

// NopStore never caches
type NopStore struct{}

func (NopStore) Load(context.Context, Identity, string) (Assessment, bool, error) {
	return Assessment{}, false, nil
}
func (NopStore) Save(context.Context, Identity, string, Assessment) error { return nil }
