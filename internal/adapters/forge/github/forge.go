package github

import (
	"context"
	"strings"

	"fshfinder/internal/core/repository"
)

// Forge implements the repository and feature forge ports against GitHub
type Forge struct{ c *Client }

var _ repository.Forge = (*Forge)(nil)

// NewForge wraps a Client
func NewForge(c *Client) *Forge { return &Forge{c: c} }

// Metadata performs GET /repos/{owner}/{repo}
// Owner and Name come from full_name so renamed repos report their current location
func (f *Forge) Metadata(ctx context.Context, owner, name string) (repository.Metadata, error) {
	r, err := f.c.RepoByFullName(ctx, owner, name)
	if err != nil {
		return repository.Metadata{}, err
	}
	m := repository.Metadata{
		Owner:         r.Owner.Login,
		Name:          r.Name,
		DefaultBranch: r.DefaultBranch,
		UpdatedAt:     r.UpdatedAt,
	}
	if o, n, ok := strings.Cut(r.FullName, "/"); ok && o != "" && n != "" {
		m.Owner, m.Name = o, n
	}
	return m, nil
}

// Branches lists every branch name
func (f *Forge) Branches(ctx context.Context, owner, name string) ([]string, error) {
	return f.c.Branches(ctx, owner, name)
}

// RawContent fetches a file at ref, ok=false when absent
func (f *Forge) RawContent(ctx context.Context, owner, name, ref, path string) (string, bool, error) {
	return f.c.RawContent(ctx, owner, name, ref, path)
}

// PathExists checks the tree view of path at ref
func (f *Forge) PathExists(ctx context.Context, owner, name, ref, path string) (bool, error) {
	return f.c.PathExists(ctx, owner, name, ref, path)
}

// SearchCode runs a code search, accessible=false on 422
func (f *Forge) SearchCode(ctx context.Context, query string) (int, bool, error) {
	return f.c.SearchCode(ctx, query)
}
