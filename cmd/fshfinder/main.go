package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"fshfinder/internal/core/version"
	"fshfinder/internal/modkit"
	"fshfinder/internal/modkit/module"
	"fshfinder/internal/platform/config"
	"fshfinder/internal/platform/logger"
	pstrings "fshfinder/internal/platform/strings"

	censusmod "fshfinder/internal/services/census/module"
)

func main() {
	var (
		fEnv      = flag.String("env", ".env", "comma-separated dotenv files to load (missing files are skipped)")
		fConc     = flag.Int("concurrency", 0, "parallel repositories per phase (0 = CENSUS_CONCURRENCY or 100)")
		fSources  = flag.String("sources", "", "YAML sources file (static, orgs, ciBuild)")
		fOut      = flag.String("out", "", "report path (default CENSUS_REPORT_PATH)")
		fRoot     = flag.String("root", "", "root directory holding the cache dir")
		fFeatures = flag.String("features", "", "comma-separated feature names to report (default all constructs)")
		fOrder    = flag.String("order", "", "report order: recency | features")
		fBranches = flag.String("branches", "", "branches walked by lineage checks: all | default")
		fScope    = flag.String("search-scope", "", "construct search scope: repo | lineage")
		fFailFast = flag.Bool("fail-fast", false, "abort on the first repository failure instead of skipping it")
		fNoCache  = flag.Bool("no-cache", false, "do not read or write the assessment cache")
		fVersion  = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()

	if *fVersion {
		bi := version.Info()
		fmt.Printf("%s %s (%s, %s)\n", bi.Service, bi.Version, bi.Commit, bi.Date)
		return
	}

	loaded, err := config.LoadDotenv(pstrings.SplitCSV(*fEnv)...)
	logger.Init(logger.FromEnv())
	l := logger.Get()
	if err != nil {
		l.Fatal().Err(err).Msg("dotenv load failed")
	}
	if len(loaded) > 0 {
		l.Debug().Strs("files", loaded).Msg("dotenv loaded")
	}

	deps := modkit.Deps{Cfg: config.New(), Log: *l}

	census, err := censusmod.New(deps, censusmod.Options{
		Concurrency:   *fConc,
		SourcesFile:   *fSources,
		ReportPath:    *fOut,
		Root:          *fRoot,
		Features:      pstrings.SplitCSV(*fFeatures),
		Order:         *fOrder,
		Branches:      *fBranches,
		SearchScope:   *fScope,
		FailFast:      *fFailFast,
		CacheDisabled: *fNoCache,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("census module init failed")
	}
	module.Register(census.Name(), census.Ports())
	ports := module.MustPortsOf[censusmod.Ports](census)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := ports.Census.Run(ctx)
	if err != nil {
		l.Fatal().Err(err).Msg("census failed")
	}
	for _, f := range census.Service().Failures() {
		l.Warn().Err(f.Err).Str("repo", f.Identity).Msg("repository skipped")
	}

	path := census.Options().ReportPath
	if err := writeReport(path, rep.WriteJSON); err != nil {
		l.Fatal().Err(err).Str("path", path).Msg("report write failed")
	}
	l.Info().Str("path", path).Int("repos", len(rep.Repos)).Str("version", version.Info().Version).Msg("report written")
}

// writeReport writes through a temp file so readers never see a partial report
func writeReport(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
