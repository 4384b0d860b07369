package feature

import (
	"time"

	perr "fshfinder/internal/platform/errors"
)

const (
	lineageTTL   = 7 * 24 * time.Hour
	constructTTL = 3 * 24 * time.Hour
)

// Lineage detectors
var (
	// UsesOldLineage looks for /fsh on every branch
	UsesOldLineage Feature = pathFeature{
		name: "uses_fsh_old", title: "Uses SUSHI < 1.0",
		scope: AllBranches, cache: TTL(lineageTTL), path: OldLineagePath,
	}
	// UsesNewLineage looks for /input/fsh on every branch
	UsesNewLineage Feature = pathFeature{
		name: "uses_fsh_current", title: "Uses SUSHI >= 1.0",
		scope: AllBranches, cache: TTL(lineageTTL), path: NewLineagePath,
	}
	// HasSushiConfig looks for sushi-config.yaml at the default branch root
	HasSushiConfig Feature = pathFeature{
		name: "has_sushi_config", title: "Has sushi-config.yaml",
		scope: DefaultBranchOnly, cache: TTL(lineageTTL), path: NewLineageConfig,
	}
)

// Construct detectors
var (
	Profile    = construct("fsh_profile", "Profile defined in FSH", "Profile: ")
	Instance   = construct("fsh_instance", "Instances defined in FSH", "Instance: ")
	Extension  = construct("fsh_extension", "Extension defined in FSH", "Extension: ")
	ValueSet   = construct("fsh_value_set", "ValueSet defined in FSH", "ValueSet: ")
	CodeSystem = construct("fsh_code_system", "CodeSystem defined in FSH", "CodeSystem: ")

	OperationDefinition = construct("fsh_operation_definition",
		"OperationDefinition instance defined in FSH", "InstanceOf: OperationDefinition")
	SearchParameter = construct("fsh_search_parameter",
		"SearchParameter instance defined in FSH", "InstanceOf: SearchParameter")
)

func construct(name, title, marker string) Feature {
	return searchFeature{name: name, title: title, cache: TTL(constructTTL), marker: marker}
}

var (
	baseline   = []Feature{UsesOldLineage, UsesNewLineage, HasSushiConfig}
	constructs = []Feature{Profile, Instance, OperationDefinition, SearchParameter, Extension, ValueSet, CodeSystem}
	registry   = append(append([]Feature{}, baseline...), constructs...)
)

// Baseline returns the lineage features assessed for every candidate
func Baseline() []Feature { return append([]Feature(nil), baseline...) }

// Constructs returns the FSH construct features reported per repository
func Constructs() []Feature { return append([]Feature(nil), constructs...) }

// ByName resolves a registered feature
func ByName(name string) (Feature, bool) {
	for _, f := range registry {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// ByNames resolves a list of names, keeping order and dropping repeats
func ByNames(names []string) ([]Feature, error) {
	out := make([]Feature, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		f, ok := ByName(n)
		if !ok {
			return nil, perr.InvalidArgf("unknown feature %q", n)
		}
		seen[n] = true
		out = append(out, f)
	}
	return out, nil
}
