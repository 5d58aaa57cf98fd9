package gen

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/syssam/typegen/compiler/load"
	"github.com/syssam/typegen/typesystem"
)

// Language selects the backend that renders declarations.
type Language string

// Supported output languages.
const (
	TypeScript Language = "typescript"
	Go         Language = "go"
	GraphQL    Language = "graphql"
)

// Target is one root type to generate into a file.
type Target struct {
	SourceTypeID typesystem.VersionedURL `json:"sourceTypeId" yaml:"sourceTypeId"`
	// BlockEntity generates helper aliases marking this entity type as the
	// entity a block is rendered for. At most one per file.
	BlockEntity bool `json:"blockEntity,omitempty" yaml:"blockEntity,omitempty"`
}

// TypeIDAliases controls generation of constants holding each type's URL.
type TypeIDAliases struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Overrides replaces the generated alias name for specific types.
	Overrides map[typesystem.VersionedURL]string `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Config holds the parameters of a generation run.
type Config struct {
	// OutputFolder is the directory generated files are written to.
	OutputFolder string

	// Language of the generated files.
	Language Language

	// Package is the package clause of generated Go files.
	Package string

	// Targets maps an output file name to the root types generated into it.
	Targets map[string][]Target

	// TypeNameOverrides replaces the title-derived name of specific types.
	TypeNameOverrides map[typesystem.VersionedURL]string

	TypeIDAliases TypeIDAliases

	// Temporal switches TypeScript imports to the temporal graph module.
	Temporal bool

	// Features enabled for this run.
	Features []Feature

	// Workers bounds the number of concurrent file writes.
	Workers int

	// Fetcher retrieves type documents during the initialize stage.
	Fetcher load.Fetcher

	Logger *slog.Logger
}

// DefaultConfig returns a TypeScript configuration with type ID aliases and
// every default feature enabled.
func DefaultConfig() *Config {
	c := &Config{
		Language:      TypeScript,
		Package:       "types",
		TypeIDAliases: TypeIDAliases{Enabled: true},
		Workers:       runtime.GOMAXPROCS(0),
		Logger:        slog.Default(),
	}
	for _, f := range AllFeatures {
		if f.Default {
			c.Features = append(c.Features, f)
		}
	}
	return c
}

// FeatureEnabled reports if the given feature name is enabled.
// It's exported to be used by the template engine as follows:
//
//	{{ with $.FeatureEnabled "linktargets" }}
//		...
//	{{ end }}
func (c Config) FeatureEnabled(name string) (bool, error) {
	for _, f := range AllFeatures {
		if name == f.Name {
			return c.HasFeature(name), nil
		}
	}
	return false, NewConfigError("Features", name, "unknown feature")
}

// HasFeature reports if the feature name exists in the list of enabled features.
func (c Config) HasFeature(name string) bool {
	for _, f := range c.Features {
		if name == f.Name {
			return true
		}
	}
	return false
}

// Roots returns the distinct target types, ordered by file name and then by
// position within the file.
func (c Config) Roots() []typesystem.VersionedURL {
	var (
		roots []typesystem.VersionedURL
		seen  = make(map[typesystem.VersionedURL]struct{})
	)
	for _, file := range c.Files() {
		for _, t := range c.Targets[file] {
			if _, ok := seen[t.SourceTypeID]; ok {
				continue
			}
			seen[t.SourceTypeID] = struct{}{}
			roots = append(roots, t.SourceTypeID)
		}
	}
	return roots
}

// Files returns the target file names in sorted order.
func (c Config) Files() []string {
	files := make([]string, 0, len(c.Targets))
	for f := range c.Targets {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.OutputFolder == "" {
		errs = append(errs, NewConfigError("OutputFolder", nil, "output folder cannot be empty"))
	}
	switch c.Language {
	case TypeScript, Go, GraphQL:
	default:
		errs = append(errs, NewConfigError("Language", c.Language, "unsupported language; use typescript, go, or graphql"))
	}
	if c.Language == Go && c.Package == "" {
		errs = append(errs, NewConfigError("Package", nil, "go output requires a package name"))
	}
	if len(c.Targets) == 0 {
		errs = append(errs, NewValidationError("targets", nil, "at least one target file is required"))
	}
	for _, file := range c.Files() {
		targets := c.Targets[file]
		if len(targets) == 0 {
			errs = append(errs, NewValidationError("targets", file, "file has no source types"))
		}
		blocks := 0
		for _, t := range targets {
			if !t.SourceTypeID.Valid() {
				errs = append(errs, NewValidationError("targets", t.SourceTypeID, fmt.Sprintf("invalid versioned url in file %q", file)))
			}
			if t.BlockEntity {
				blocks++
			}
		}
		if blocks > 1 {
			errs = append(errs, NewValidationError("targets", file, "only one block entity is allowed per file"))
		}
	}
	if c.Language == Go && c.blockEntities() > 1 {
		errs = append(errs, NewValidationError("targets", nil, "go output shares one package, only one block entity is allowed across all files"))
	}
	for id, name := range c.TypeNameOverrides {
		if !id.Valid() {
			errs = append(errs, NewValidationError("typeNameOverrides", id, "invalid versioned url"))
		}
		if name == "" {
			errs = append(errs, NewValidationError("typeNameOverrides", id, "override cannot be empty"))
		}
	}
	for id := range c.TypeIDAliases.Overrides {
		if !id.Valid() {
			errs = append(errs, NewValidationError("typeIdAliases.overrides", id, "invalid versioned url"))
		}
	}
	return errors.Join(errs...)
}

func (c Config) blockEntities() int {
	n := 0
	for _, targets := range c.Targets {
		for _, t := range targets {
			if t.BlockEntity {
				n++
			}
		}
	}
	return n
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
