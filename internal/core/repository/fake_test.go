package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
)

// fakeForge serves canned answers and counts calls
type fakeForge struct {
	mu sync.Mutex

	meta     Metadata
	metaErr  error
	branches []string
	// paths[branch] lists existing paths on that branch
	paths map[string][]string
	// files[path] is raw content on the default branch
	files map[string]string
	// searches counts hits per marker substring
	searches map[string]int

	calls map[string]int
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		meta:     Metadata{Owner: "HL7", Name: "fhir-us-core", DefaultBranch: "main", UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		branches: []string{"main"},
		paths:    map[string][]string{},
		files:    map[string]string{},
		searches: map[string]int{},
		calls:    map[string]int{},
	}
}

func (f *fakeForge) hit(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeForge) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeForge) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeForge) PathExists(_ context.Context, _, _, ref, path string) (bool, error) {
	f.hit("path")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.paths[ref] {
		if p == path {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeForge) SearchCode(_ context.Context, query string) (int, bool, error) {
	f.hit("search")
	f.mu.Lock()
	defer f.mu.Unlock()
	for marker, n := range f.searches {
		if strings.Contains(query, marker) {
			return n, true, nil
		}
	}
	return 0, true, nil
}

func (f *fakeForge) Metadata(context.Context, string, string) (Metadata, error) {
	f.hit("metadata")
	return f.meta, f.metaErr
}

func (f *fakeForge) Branches(context.Context, string, string) ([]string, error) {
	f.hit("branches")
	return f.branches, nil
}

func (f *fakeForge) RawContent(_ context.Context, _, _, _, path string) (string, bool, error) {
	f.hit("raw")
	body, ok := f.files[path]
	return body, ok, nil
}

var errBoom = perr.Unavailablef("boom")

func testEnv(f Forge, s Store, now time.Time) *Env {
	return &Env{
		Forge:    f,
		Store:    s,
		Log:      logger.Nop(),
		Branches: BranchesAll,
		Now:      func() time.Time { return now },
	}
}
