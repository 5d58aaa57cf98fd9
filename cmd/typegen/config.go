package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/compiler/fetch"
	"github.com/syssam/typegen/compiler/gen"
	"github.com/syssam/typegen/typesystem"
)

// FileConfig is the on-disk configuration of a generation run. JSON files
// are accepted as well since JSON is a subset of YAML.
type FileConfig struct {
	OutputFolder      string                             `yaml:"outputFolder"`
	Language          string                             `yaml:"language"`
	Package           string                             `yaml:"package"`
	Targets           map[string][]gen.Target            `yaml:"targets"`
	TypeNameOverrides map[typesystem.VersionedURL]string `yaml:"typeNameOverrides"`
	TypeIDAliases     *gen.TypeIDAliases                 `yaml:"typeIdAliases"`
	Temporal          bool                               `yaml:"temporal"`
	Features          []string                           `yaml:"features"`
	DisableFeatures   []string                           `yaml:"disableFeatures"`
	Workers           int                                `yaml:"workers"`
	Fetch             FetchConfig                        `yaml:"fetch"`
	Cache             CacheConfig                        `yaml:"cache"`
}

// FetchConfig tunes the HTTP fetcher.
type FetchConfig struct {
	MaxAttempts int            `yaml:"maxAttempts"`
	BaseDelay   time.Duration  `yaml:"baseDelay"`
	Timeout     time.Duration  `yaml:"timeout"`
	Policy      string         `yaml:"policy"`
	Rewrite     *RewriteConfig `yaml:"rewrite"`
	CacheTTL    time.Duration  `yaml:"cacheTTL"`
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// RewriteConfig redirects type URLs starting with From to To, typically to
// point a public ontology at a local mirror.
type RewriteConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// CacheConfig selects where fetched type documents are kept.
type CacheConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	// SlowQuery is the duration above which a cache statement is logged.
	// It is reread on every run of a watch session.
	SlowQuery time.Duration `yaml:"slowQuery"`
}

func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(fc.Targets) == 0 {
		return nil, fmt.Errorf("config %s: no targets", path)
	}
	// Relative output folders resolve against the config file.
	if fc.OutputFolder != "" && !filepath.IsAbs(fc.OutputFolder) {
		fc.OutputFolder = filepath.Join(filepath.Dir(path), fc.OutputFolder)
	}
	return &fc, nil
}

// apply overrides file values with the ones given on the command line.
func (fc *FileConfig) apply(cli *CLIConfig) {
	if cli.OutputDir != "" {
		fc.OutputFolder = cli.OutputDir
	}
	if cli.CacheDriver != "" {
		fc.Cache.Driver = cli.CacheDriver
	}
	if cli.CacheDSN != "" {
		fc.Cache.DSN = cli.CacheDSN
	}
}

// fetchOptions translates the fetch section into fetcher options.
func (fc *FileConfig) fetchOptions(cache typegen.Cache, logger *slog.Logger) ([]fetch.Option, error) {
	opts := []fetch.Option{fetch.WithLogger(logger)}
	f := fc.Fetch
	if f.MaxAttempts > 0 {
		opts = append(opts, fetch.WithMaxAttempts(f.MaxAttempts))
	}
	if f.BaseDelay > 0 {
		opts = append(opts, fetch.WithBaseDelay(f.BaseDelay))
	}
	if f.Timeout > 0 {
		opts = append(opts, fetch.WithRequestTimeout(f.Timeout))
	}
	if f.Policy != "" {
		p, err := fetch.ParsePolicy(f.Policy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fetch.WithPolicy(p))
	}
	if r := f.Rewrite; r != nil && r.From != "" {
		from, to := r.From, r.To
		opts = append(opts, fetch.WithURLRewrite(func(u string) string {
			if rest, ok := strings.CutPrefix(u, from); ok {
				return to + rest
			}
			return u
		}))
	}
	if f.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(f.RateLimit, f.Burst))
	}
	if cache != nil {
		opts = append(opts, fetch.WithCache(cache, f.CacheTTL))
	}
	return opts, nil
}

// options translates the file into generator options. Targets are added in
// file name order so the resulting configuration does not depend on map
// iteration.
func (fc *FileConfig) options(fetcher *fetch.Fetcher, logger *slog.Logger) []gen.Option {
	opts := []gen.Option{
		gen.WithLogger(logger),
		gen.WithFetcher(fetcher),
		gen.WithTemporal(fc.Temporal),
	}
	if fc.OutputFolder != "" {
		opts = append(opts, gen.WithOutputFolder(fc.OutputFolder))
	}
	if fc.Language != "" {
		opts = append(opts, gen.WithLanguage(fc.Language))
	}
	if fc.Package != "" {
		opts = append(opts, gen.WithPackage(fc.Package))
	}
	for _, file := range sortedKeys(fc.Targets) {
		opts = append(opts, gen.WithTarget(file, fc.Targets[file]...))
	}
	if len(fc.TypeNameOverrides) > 0 {
		opts = append(opts, gen.WithTypeNameOverrides(fc.TypeNameOverrides))
	}
	if a := fc.TypeIDAliases; a != nil {
		opts = append(opts, gen.WithTypeIDAliases(a.Enabled, a.Overrides))
	}
	if len(fc.Features) > 0 {
		opts = append(opts, gen.WithFeatureNames(fc.Features...))
	}
	if len(fc.DisableFeatures) > 0 {
		opts = append(opts, gen.WithoutFeatures(fc.DisableFeatures...))
	}
	if fc.Workers > 0 {
		opts = append(opts, gen.WithWorkers(fc.Workers))
	}
	return opts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
