// Package domain defines the census types and public ports
package domain

import (
	"encoding/json"
	"io"
	"strings"

	"fshfinder/internal/core/repository"
)

// Candidate is a repository reference emitted by a source
// Sources do not dedupe; the collection does
type Candidate struct {
	Host       string
	Owner      string
	Name       string
	CIBuildURL string
}

// Empty reports a candidate missing owner or name
func (c Candidate) Empty() bool {
	return strings.TrimSpace(c.Owner) == "" || strings.TrimSpace(c.Name) == ""
}

// Identity is the normalized identity of the candidate
func (c Candidate) Identity() repository.Identity {
	return repository.NewIdentity(c.Host, c.Owner, c.Name)
}

// Report is the aggregate census document
type Report struct {
	Repos     []repository.Document `json:"repos"`
	Updated   string                `json:"updated"`
	FshyRepos []string              `json:"fshyRepos"`
}

// WriteJSON pretty prints the report with two space indentation
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Failure is a repository dropped in skip mode
type Failure struct {
	Identity string
	Err      error
}
