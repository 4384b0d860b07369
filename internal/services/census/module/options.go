package module

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fshfinder/internal/core/feature"
	"fshfinder/internal/platform/config"
	perr "fshfinder/internal/platform/errors"
)

// Options controls the census. Values may also be read from env
type Options struct {
	Concurrency int           `validate:"min=1,max=1000"`
	RetryDelay  time.Duration `validate:"min=0"`
	HTTPTimeout time.Duration `validate:"min=0"`

	// Forge access
	Username string
	Token    string
	RPS      float64 `validate:"min=0"`
	Burst    int     `validate:"min=0"`
	APIURL   string  `validate:"omitempty,url"`
	WebURL   string  `validate:"omitempty,url"`
	RawURL   string  `validate:"omitempty,url"`
	Host     string  `validate:"required,hostname"`

	// HEAD memo
	HeadMemoSize int           `validate:"min=0"`
	HeadMemoTTL  time.Duration `validate:"min=0"`

	// Durable cache
	Root          string `validate:"required"`
	CacheDir      string `validate:"required"`
	CacheDisabled bool

	Branches string `validate:"oneof=all default"`
	FailFast bool
	Order    string `validate:"oneof=recency features"`

	// SearchScope "repo" searches constructs anywhere, "lineage" only in the FSH folder
	SearchScope string `validate:"oneof=repo lineage"`

	SourcesFile string
	CIBuildURL  string `validate:"omitempty,url"`
	ReportPath  string
	Features    []string `validate:"dive,required"`
}

// FromConfig reads options using the CENSUS_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CENSUS_")
	return Options{
		Concurrency:   c.MayInt("CONCURRENCY", 100),
		RetryDelay:    c.MayDuration("RETRY_DELAY", 30*time.Second),
		HTTPTimeout:   c.MayDuration("HTTP_TIMEOUT", 30*time.Second),
		Username:      c.MayString("GH_USERNAME", ""),
		Token:         c.MayString("GH_TOKEN", ""),
		RPS:           c.MayFloat64("GH_RPS", 0),
		Burst:         c.MayInt("GH_BURST", 1),
		APIURL:        c.MayURL("GH_API_URL", ""),
		WebURL:        c.MayURL("GH_WEB_URL", ""),
		RawURL:        c.MayURL("GH_RAW_URL", ""),
		Host:          c.MayString("HOST", "github.com"),
		HeadMemoSize:  c.MayInt("HEAD_MEMO_SIZE", 4096),
		HeadMemoTTL:   c.MayDuration("HEAD_MEMO_TTL", time.Hour),
		Root:          c.MayString("ROOT", "."),
		CacheDir:      c.MayString("CACHE_DIR", "cache"),
		CacheDisabled: c.MayBool("CACHE_DISABLED", false),
		Branches:      strings.ToLower(c.MayEnum("BRANCHES", "all", "all", "default")),
		FailFast:      c.MayBool("FAIL_FAST", false),
		Order:         strings.ToLower(c.MayEnum("ORDER", "recency", "recency", "features")),
		SearchScope:   strings.ToLower(c.MayEnum("SEARCH_SCOPE", "repo", "repo", "lineage")),
		SourcesFile:   c.MayString("SOURCES_FILE", ""),
		CIBuildURL:    c.MayURL("CI_BUILD_URL", ""),
		ReportPath:    c.MayString("REPORT_PATH", "fshfinder.json"),
		Features:      c.MayCSV("FEATURES", featureNames(feature.Constructs())),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks option ranges and feature names
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "invalid census options")
	}
	if _, err := feature.ByNames(o.Features); err != nil {
		return err
	}
	return nil
}

func featureNames(fs []feature.Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name()
	}
	return out
}
