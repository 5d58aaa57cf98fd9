package gen

import (
	"errors"
	"log/slog"
	"maps"

	"github.com/syssam/typegen/compiler/load"
	"github.com/syssam/typegen/typesystem"
)

// Option configures code generation.
type Option func(*Config) error

// WithOutputFolder sets the output directory.
func WithOutputFolder(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("OutputFolder", nil, "output folder cannot be empty")
		}
		c.OutputFolder = dir
		return nil
	}
}

// WithLanguage sets the output language.
// Supported languages: "typescript", "go", "graphql".
func WithLanguage(lang string) Option {
	return func(c *Config) error {
		switch l := Language(lang); l {
		case TypeScript, Go, GraphQL:
			c.Language = l
			return nil
		case "ts":
			c.Language = TypeScript
			return nil
		default:
			return NewConfigError("Language", lang, "unsupported language; use typescript, go, or graphql")
		}
	}
}

// WithPackage sets the package clause of generated Go files.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget adds source types to generate into file.
func WithTarget(file string, targets ...Target) Option {
	return func(c *Config) error {
		if file == "" {
			return NewConfigError("Targets", nil, "file name cannot be empty")
		}
		for _, t := range targets {
			if _, err := typesystem.ParseVersionedURL(string(t.SourceTypeID)); err != nil {
				return NewConfigError("Targets", t.SourceTypeID, err.Error())
			}
		}
		if c.Targets == nil {
			c.Targets = make(map[string][]Target)
		}
		c.Targets[file] = append(c.Targets[file], targets...)
		return nil
	}
}

// WithTypeNameOverrides replaces the generated name of specific types.
func WithTypeNameOverrides(overrides map[typesystem.VersionedURL]string) Option {
	return func(c *Config) error {
		if c.TypeNameOverrides == nil {
			c.TypeNameOverrides = make(map[typesystem.VersionedURL]string)
		}
		maps.Copy(c.TypeNameOverrides, overrides)
		return nil
	}
}

// WithTypeIDAliases enables or disables type ID constants, with optional
// name overrides.
func WithTypeIDAliases(enabled bool, overrides map[typesystem.VersionedURL]string) Option {
	return func(c *Config) error {
		c.TypeIDAliases.Enabled = enabled
		if len(overrides) > 0 {
			if c.TypeIDAliases.Overrides == nil {
				c.TypeIDAliases.Overrides = make(map[typesystem.VersionedURL]string)
			}
			maps.Copy(c.TypeIDAliases.Overrides, overrides)
		}
		return nil
	}
}

// WithTemporal switches TypeScript output to the temporal graph module.
func WithTemporal(temporal bool) Option {
	return func(c *Config) error {
		c.Temporal = temporal
		return nil
	}
}

// WithFeatures enables specific features.
// Features control optional code generation capabilities.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		for _, f := range features {
			if !c.HasFeature(f.Name) {
				c.Features = append(c.Features, f)
			}
		}
		return nil
	}
}

// WithFeatureNames enables features by name.
func WithFeatureNames(names ...string) Option {
	return func(c *Config) error {
		for _, name := range names {
			f, ok := FeatureByName(name)
			if !ok {
				return NewConfigError("Features", name, "unknown feature")
			}
			if !c.HasFeature(name) {
				c.Features = append(c.Features, f)
			}
		}
		return nil
	}
}

// WithoutFeatures disables features by name.
func WithoutFeatures(names ...string) Option {
	return func(c *Config) error {
		kept := c.Features[:0]
		for _, f := range c.Features {
			drop := false
			for _, name := range names {
				if f.Name == name {
					drop = true
				}
			}
			if !drop {
				kept = append(kept, f)
			}
		}
		c.Features = kept
		return nil
	}
}

// WithWorkers bounds the number of concurrent file writes.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithFetcher sets the fetcher used to resolve types.
func WithFetcher(f load.Fetcher) Option {
	return func(c *Config) error {
		if f == nil {
			return NewConfigError("Fetcher", nil, "fetcher cannot be nil")
		}
		c.Fetcher = f
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config from DefaultConfig and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := DefaultConfig()
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
