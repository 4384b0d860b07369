package feature

import (
	"context"
	"fmt"
	"strings"
)

const (
	// FileExtension is the extension of FSH sources
	FileExtension = "fsh"

	// OldLineagePath is where pre 1.0 SUSHI projects keep FSH
	OldLineagePath = "fsh"
	// NewLineagePath is where SUSHI 1.0+ projects keep FSH
	NewLineagePath = "input/fsh"

	// OldLineageConfig is the IG config of pre 1.0 SUSHI projects
	OldLineageConfig = "fsh/config.yaml"
	// NewLineageConfig is the IG config of SUSHI 1.0+ projects
	NewLineageConfig = "sushi-config.yaml"
)

// pathFeature holds when a path exists at the evaluated ref
type pathFeature struct {
	name  string
	title string
	scope Scope
	cache CachePolicy
	path  string
}

func (p pathFeature) Name() string             { return p.name }
func (p pathFeature) Title() string            { return p.title }
func (p pathFeature) Scope() Scope             { return p.scope }
func (p pathFeature) CachePolicy() CachePolicy { return p.cache }

func (p pathFeature) Assess(ctx context.Context, f Forge, s Subject, branch string) (bool, error) {
	if branch == "" {
		return false, nil
	}
	return f.PathExists(ctx, s.Owner(), s.Name(), branch, p.path)
}

// searchFeature holds when a code search for marker in .fsh files finds anything
// The whole repo is searched unless lineage restricts it to the FSH folder
// of the lineage the repo uses
type searchFeature struct {
	name    string
	title   string
	cache   CachePolicy
	marker  string
	lineage bool
}

func (sf searchFeature) Name() string             { return sf.name }
func (sf searchFeature) Title() string            { return sf.title }
func (sf searchFeature) Scope() Scope             { return DefaultBranchOnly }
func (sf searchFeature) CachePolicy() CachePolicy { return sf.cache }

func (sf searchFeature) Assess(ctx context.Context, f Forge, s Subject, _ string) (bool, error) {
	path := ""
	if sf.lineage {
		current, err := s.UsesNewLineage(ctx)
		if err != nil {
			return false, err
		}
		path = OldLineagePath
		if current {
			path = NewLineagePath
		}
	}
	total, accessible, err := f.SearchCode(ctx, SearchQuery(s.Owner(), s.Name(), path, FileExtension, sf.marker))
	if err != nil {
		return false, err
	}
	return accessible && total > 0, nil
}

// LineageScoped restricts a construct search to the lineage FSH folder
// Features other than construct searches are returned unchanged
func LineageScoped(f Feature) Feature {
	if sf, ok := f.(searchFeature); ok {
		sf.lineage = true
		return sf
	}
	return f
}

// SearchQuery builds repo:<owner>/<name> [path:<p>] extension:<ext> "<marker>"
func SearchQuery(owner, name, path, ext, marker string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "repo:%s/%s", owner, name)
	if path != "" {
		fmt.Fprintf(&b, " path:%s", path)
	}
	fmt.Fprintf(&b, " extension:%s %q", ext, marker)
	return b.String()
}
