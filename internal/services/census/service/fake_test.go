package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"fshfinder/internal/core/repository"
	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
)

type fakeRepo struct {
	meta     repository.Metadata
	metaErr  error
	branches []string
	paths    map[string]bool // "<branch>:<path>"
	files    map[string]string
	hits     map[string]int // marker -> total
}

// fakeForge serves several repos keyed by lower case owner/name
type fakeForge struct {
	mu    sync.Mutex
	repos map[string]*fakeRepo
	calls map[string]int

	onCall func() // runs before every lookup
}

func newFakeForge() *fakeForge {
	return &fakeForge{repos: map[string]*fakeRepo{}, calls: map[string]int{}}
}

func (f *fakeForge) add(owner, name string, updated time.Time, paths ...string) *fakeRepo {
	r := &fakeRepo{
		meta:     repository.Metadata{Owner: owner, Name: name, DefaultBranch: "main", UpdatedAt: updated},
		branches: []string{"main"},
		paths:    map[string]bool{},
		files:    map[string]string{},
		hits:     map[string]int{},
	}
	for _, p := range paths {
		r.paths["main:"+p] = true
	}
	f.repos[strings.ToLower(owner+"/"+name)] = r
	return r
}

func (f *fakeForge) get(ctx context.Context, op, owner, name string) (*fakeRepo, error) {
	if f.onCall != nil {
		f.onCall()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	r, ok := f.repos[strings.ToLower(owner+"/"+name)]
	if !ok {
		return nil, perr.NotFoundf("no repo %s/%s", owner, name)
	}
	return r, nil
}

func (f *fakeForge) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeForge) Metadata(ctx context.Context, owner, name string) (repository.Metadata, error) {
	r, err := f.get(ctx, "metadata", owner, name)
	if err != nil {
		return repository.Metadata{}, err
	}
	return r.meta, r.metaErr
}

func (f *fakeForge) Branches(ctx context.Context, owner, name string) ([]string, error) {
	r, err := f.get(ctx, "branches", owner, name)
	if err != nil {
		return nil, err
	}
	return r.branches, nil
}

func (f *fakeForge) PathExists(ctx context.Context, owner, name, ref, path string) (bool, error) {
	r, err := f.get(ctx, "path", owner, name)
	if err != nil {
		return false, err
	}
	return r.paths[ref+":"+path], nil
}

func (f *fakeForge) RawContent(ctx context.Context, owner, name, _, path string) (string, bool, error) {
	r, err := f.get(ctx, "raw", owner, name)
	if err != nil {
		return "", false, err
	}
	body, ok := r.files[path]
	return body, ok, nil
}

func (f *fakeForge) SearchCode(ctx context.Context, query string) (int, bool, error) {
	// repo:<owner>/<name> ...
	full := strings.TrimPrefix(strings.Fields(query)[0], "repo:")
	owner, name, _ := strings.Cut(full, "/")
	r, err := f.get(ctx, "search", owner, name)
	if err != nil {
		return 0, false, err
	}
	for marker, n := range r.hits {
		if strings.Contains(query, marker) {
			return n, true, nil
		}
	}
	return 0, true, nil
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testEnv(f repository.Forge, s repository.Store) *repository.Env {
	return &repository.Env{
		Forge:    f,
		Store:    s,
		Log:      logger.Nop(),
		Branches: repository.BranchesAll,
		Now:      func() time.Time { return now },
	}
}
