// Command typegen generates TypeScript, Go or GraphQL source files from the
// versioned types of an ontology.
//
// Usage:
//
//	typegen -config typegen.yaml
//
// A minimal configuration:
//
//	outputFolder: ./src/types
//	language: typescript
//	targets:
//	  person.ts:
//	    - sourceTypeId: https://example.com/@acme/types/entity-type/person/v/1
//	cache:
//	  driver: sqlite
//	  dsn: file:.typegen-cache.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/syssam/typegen/compiler/fetch"
	"github.com/syssam/typegen/compiler/gen"
)

const appName = "typegen"

// Version is set at build time.
var Version = "dev"

func main() {
	// A .env next to the config is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns its exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return 0
	}
	if err := validateFlags(cli); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := setupLogger(stderr, cli.LogLevel, cli.LogFormat)

	// The cache outlives the runs of a watch session, so it is taken from
	// the configuration found at startup.
	fc, err := loadFileConfig(cli.ConfigPath)
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}
	fc.apply(cli)
	cache, err := openCache(ctx, fc.Cache, logger)
	if err != nil {
		logger.Error("open cache", "error", err)
		return 1
	}
	defer cache.Close()

	r := &runner{cli: cli, logger: logger, cache: cache, metrics: newRunMetrics()}
	if cli.Watch {
		err = watch(ctx, cli.ConfigPath, cli.Debounce, logger, r.generate)
	} else {
		err = r.generate(ctx)
	}
	if err != nil {
		logger.Error("generation failed", "error", err)
		return 1
	}
	return 0
}

// runner performs one generation run per call, reloading the configuration
// file each time.
type runner struct {
	cli     *CLIConfig
	logger  *slog.Logger
	cache   *schemaCache
	metrics *runMetrics
}

func (r *runner) generate(ctx context.Context) error {
	start := time.Now()
	res, err := r.once(ctx)

	var files, skipped int
	var bytes int64
	if res != nil {
		skipped = len(res.Skipped)
		if res.Metrics != nil {
			files, bytes = res.Metrics.FilesGenerated, res.Metrics.TotalBytes
		}
	}
	r.cache.report()
	r.metrics.observe(start, files, bytes, skipped, err)
	if path := r.cli.MetricsFile; path != "" {
		if werr := r.metrics.write(path); werr != nil {
			r.logger.Warn("write metrics", "path", path, "error", werr)
		}
	}
	if err != nil {
		return err
	}
	r.logger.Info("generation complete",
		"files", files,
		"bytes", bytes,
		"skipped", skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// once runs the pipeline with the current configuration file.
func (r *runner) once(ctx context.Context) (*gen.Result, error) {
	fc, err := loadFileConfig(r.cli.ConfigPath)
	if err != nil {
		return nil, err
	}
	fc.apply(r.cli)
	r.cache.tune(fc.Cache)

	fopts, err := fc.fetchOptions(r.cache.cache, r.logger)
	if err != nil {
		return nil, err
	}
	cfg, err := gen.NewConfig(fc.options(fetch.New(fopts...), r.logger)...)
	if err != nil {
		return nil, err
	}
	res, err := gen.Generate(ctx, cfg)
	if res != nil {
		for _, w := range res.Written {
			if w.Err != nil {
				r.logger.Error("write file", "file", w.File, "error", w.Err)
				continue
			}
			r.logger.Debug("wrote file", "file", w.File, "path", w.Path, "bytes", w.Bytes)
		}
		for _, u := range res.Skipped {
			r.logger.Warn("skipped type", "url", u)
		}
	}
	return res, err
}
