package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	OutputDir   string
	LogLevel    string
	LogFormat   string
	Watch       bool
	Debounce    time.Duration
	CacheDriver string
	CacheDSN    string
	MetricsFile string
	ShowVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("TYPEGEN_CONFIG", "typegen.yaml"),
		"Path to configuration file, YAML or JSON (env: TYPEGEN_CONFIG)")

	fs.StringVar(&cfg.OutputDir, "output",
		getEnv("TYPEGEN_OUTPUT", ""),
		"Output folder, overrides outputFolder of the config file (env: TYPEGEN_OUTPUT)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("TYPEGEN_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: TYPEGEN_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("TYPEGEN_LOG_FORMAT", "text"),
		"Log format: json, text (env: TYPEGEN_LOG_FORMAT)")

	fs.BoolVar(&cfg.Watch, "watch",
		getEnvBool("TYPEGEN_WATCH", false),
		"Regenerate whenever the config file changes (env: TYPEGEN_WATCH)")

	fs.DurationVar(&cfg.Debounce, "debounce",
		getEnvDuration("TYPEGEN_DEBOUNCE", 200*time.Millisecond),
		"Quiet period before a watched change triggers a run (env: TYPEGEN_DEBOUNCE)")

	fs.StringVar(&cfg.CacheDriver, "cache-driver",
		getEnv("TYPEGEN_CACHE_DRIVER", ""),
		"Schema cache: memory, sqlite, postgres, mysql; overrides the config file (env: TYPEGEN_CACHE_DRIVER)")

	fs.StringVar(&cfg.CacheDSN, "cache-dsn",
		getEnv("TYPEGEN_CACHE_DSN", ""),
		"Data source name of a SQL schema cache (env: TYPEGEN_CACHE_DSN)")

	fs.StringVar(&cfg.MetricsFile, "metrics-file",
		getEnv("TYPEGEN_METRICS_FILE", ""),
		"Write Prometheus run metrics to this textfile after every run (env: TYPEGEN_METRICS_FILE)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	fs.Usage = func() {
		printDetailedHelp(stderr, fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.CacheDriver != "" && !slices.Contains(cacheDrivers, cfg.CacheDriver) {
		return fmt.Errorf("invalid cache driver: %s", cfg.CacheDriver)
	}

	if cfg.Debounce < 0 {
		return fmt.Errorf("invalid debounce: %s", cfg.Debounce)
	}

	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - generate source files from versioned ontology types

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Generate from typegen.yaml in the working directory
  %s

  # Generate into another folder with debug logging
  %s -output ./src/types -log-level debug

  # Keep fetched types in a local SQLite cache and regenerate on change
  %s -cache-driver sqlite -cache-dsn file:typegen.db -watch

Version: %s
`, appName, appName, appName, Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
