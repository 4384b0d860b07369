package repository

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"fshfinder/internal/core/feature"
	perr "fshfinder/internal/platform/errors"
	pstrings "fshfinder/internal/platform/strings"
)

// IGTitle derives the implementation guide title once per process
// Repositories without FSH, or without a readable config, fall back to their name
func (r *Repository) IGTitle(ctx context.Context) (string, error) {
	return r.title.get(func() (string, error) {
		anyFsh, err := r.AnyFsh(ctx)
		if err != nil {
			return "", err
		}
		if !anyFsh {
			return r.name, nil
		}

		path := feature.OldLineageConfig
		current, err := r.UsesNewLineage(ctx)
		if err != nil {
			return "", err
		}
		if current {
			path = feature.NewLineageConfig
		}
		def, err := r.DefaultBranch(ctx)
		if err != nil {
			return "", err
		}
		body, ok, err := r.env.Forge.RawContent(ctx, r.owner, r.name, def, path)
		if err != nil {
			return "", err
		}
		if !ok {
			return r.name, nil
		}

		title, err := ParseIGTitle(body)
		if err != nil {
			r.log(ctx).Warn().Err(err).Str("path", path).Msg("ig config unparsable, using repo name")
			return r.name, nil
		}
		if title == "" {
			return r.name, nil
		}
		return title, nil
	})
}

// ParseIGTitle reads title, else name, from an IG config document
// Scalars other than strings are rendered as text; false, null and
// collections count as absent. An empty result means neither key is usable
func ParseIGTitle(body string) (string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(body)), &doc); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeConfigParse, "parse ig config")
	}
	return strings.TrimSpace(pstrings.FirstNonEmpty(scalar(doc["title"]), scalar(doc["name"]))), nil
}

func scalar(v any) string {
	switch v := v.(type) {
	case nil, map[string]any, []any:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
	}
	return fmt.Sprint(v)
}
