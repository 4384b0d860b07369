// Package sources discovers candidate repositories for the census
//
// Three mechanisms are supported: a static list, the FHIR continuous build
// feed and a crawl of whole organisations. Sources never dedupe across each
// other; the collection does
package sources

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	perr "fshfinder/internal/platform/errors"
)

// DefaultCIBuildFeed lists every IG built by the FHIR CI build
const DefaultCIBuildFeed = "https://build.fhir.org/ig/qas.json"

// Config is the sources file
//
//	static: [SaraAlert/saraalert-fhir-ig]
//	orgs: [HL7, hl7dk]
//	ciBuild:
//	  url: https://build.fhir.org/ig/qas.json
type Config struct {
	Static  []string      `yaml:"static"`
	Orgs    []string      `yaml:"orgs"`
	CIBuild CIBuildConfig `yaml:"ciBuild"`
}

// CIBuildConfig locates the build feed; Disabled skips it
type CIBuildConfig struct {
	URL      string `yaml:"url"`
	Disabled bool   `yaml:"disabled"`
}

// DefaultConfig is used when no sources file is configured
func DefaultConfig() Config {
	return Config{
		Static:  []string{"SaraAlert/saraalert-fhir-ig"},
		Orgs:    []string{"HL7", "hl7dk", "HL7NZ", "hl7-eu", "who-int"},
		CIBuild: CIBuildConfig{URL: DefaultCIBuildFeed},
	}
}

// LoadConfig reads a YAML sources file; an empty path yields DefaultConfig
func LoadConfig(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, perr.Wrapf(err, perr.ErrorCodeConfigParse, "read sources file %s", path)
	}
	return ParseConfig(b)
}

// ParseConfig decodes a sources document
func ParseConfig(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, perr.Wrap(err, perr.ErrorCodeConfigParse, "parse sources file")
	}
	for _, s := range c.Static {
		if _, _, ok := splitFullName(s); !ok {
			return Config{}, perr.Newf(perr.ErrorCodeConfigParse, "static entry %q is not owner/name", s)
		}
	}
	return c, nil
}

// splitFullName takes the first two segments of owner/name[/...]
func splitFullName(s string) (owner, name string, ok bool) {
	parts := strings.SplitN(strings.Trim(strings.TrimSpace(s), "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
