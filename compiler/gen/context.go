package gen

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/syssam/typegen/compiler/load"
	"github.com/syssam/typegen/typesystem"
)

// Stage identifies the last pipeline stage that completed on a Context.
type Stage int

// Pipeline stages, in execution order.
const (
	StageNone Stage = iota
	StageInitialized
	StagePreprocessed
	StageCompiled
	StagePostprocessed
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageInitialized:
		return "initialize"
	case StagePreprocessed:
		return "preprocess"
	case StageCompiled:
		return "compile"
	case StagePostprocessed:
		return "postprocess"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// SourceKind tells whether an identifier is generated or imported.
type SourceKind int

const (
	// SourceLocal identifiers are declared in a generated file.
	SourceLocal SourceKind = iota
	// SourceExternal identifiers are imported from a library.
	SourceExternal
)

// IdentifierSource is one place an identifier is defined.
type IdentifierSource struct {
	Kind         SourceKind
	DefiningPath string // File name for local sources, import path for external ones.
	Contents     string
	DependsOn    []string
	Value        bool
}

// IdentifierSources holds the definitions of an identifier. A locally
// importable identifier has exactly one source that other files import from.
// Identifiers that are not locally importable may be defined by many files.
type IdentifierSources struct {
	LocallyImportable bool
	Sources           []IdentifierSource
}

// Context is the state threaded through the pipeline stages. Each stage
// fills its own fields and records its completion with the stage marker.
type Context struct {
	Config  *Config
	Backend Backend
	Logger  *slog.Logger

	stage Stage

	// Filled by Initialize.
	AllTypes          map[typesystem.VersionedURL]*typesystem.Type
	Order             []typesystem.VersionedURL
	TypeDependencyMap map[typesystem.VersionedURL][]typesystem.VersionedURL

	// Filled by Preprocess.
	LinkTypeMap map[typesystem.VersionedURL]bool

	// Filled by Compile.
	TypeIDsToCompiledTypes map[typesystem.VersionedURL]*CompiledType

	// Filled by Postprocess.
	TypeFiles                   map[typesystem.VersionedURL]string
	IdentifiersToSources        map[string]*IdentifierSources
	FilesToDependentIdentifiers map[string]*IdentifierSet
	FilesToDefinedIdentifiers   map[string]*IdentifierSet
	FilesToContents             map[string]string

	typeIdentifiers map[typesystem.VersionedURL]*IdentifierSet
}

// NewContext returns an empty context for c using backend b.
func NewContext(c *Config, b Backend) *Context {
	return &Context{
		Config:                      c,
		Backend:                     b,
		Logger:                      c.logger(),
		AllTypes:                    make(map[typesystem.VersionedURL]*typesystem.Type),
		TypeDependencyMap:           make(map[typesystem.VersionedURL][]typesystem.VersionedURL),
		LinkTypeMap:                 make(map[typesystem.VersionedURL]bool),
		TypeIDsToCompiledTypes:      make(map[typesystem.VersionedURL]*CompiledType),
		TypeFiles:                   make(map[typesystem.VersionedURL]string),
		IdentifiersToSources:        make(map[string]*IdentifierSources),
		FilesToDependentIdentifiers: make(map[string]*IdentifierSet),
		FilesToDefinedIdentifiers:   make(map[string]*IdentifierSet),
		FilesToContents:             make(map[string]string),
	}
}

// Stage returns the last completed stage.
func (ctx *Context) Stage() Stage { return ctx.stage }

// expect fails unless the previous stage is the last one that completed.
func (ctx *Context) expect(prev Stage, running string) error {
	if ctx.stage != prev {
		return NewGenerationError(running, "", fmt.Sprintf("expected stage %s to have completed, got %s", prev, ctx.stage), ErrStageOrder)
	}
	return nil
}

func (ctx *Context) complete(s Stage) { ctx.stage = s }

// SetCollation loads the result of collation into the context and marks the
// initialize stage complete.
func (ctx *Context) SetCollation(c *load.Collation) error {
	if err := ctx.expect(StageNone, "initialize"); err != nil {
		return err
	}
	ctx.AllTypes = c.AllTypes
	ctx.Order = slices.Clone(c.Order)
	ctx.TypeDependencyMap = c.Dependencies
	ctx.complete(StageInitialized)
	return nil
}

// TypesOfKind returns the IDs of the collated types of kind k in collation order.
func (ctx *Context) TypesOfKind(k typesystem.Kind) []typesystem.VersionedURL {
	var out []typesystem.VersionedURL
	for _, id := range ctx.Order {
		if ctx.AllTypes[id].Kind == k {
			out = append(out, id)
		}
	}
	return out
}

// IdentifierFor returns the generated identifier of a collated type.
func (ctx *Context) IdentifierFor(id typesystem.VersionedURL) (string, bool) {
	t, ok := ctx.AllTypes[id]
	if !ok {
		return "", false
	}
	return t.Title(), true
}

// PropertiesIdentifier returns the identifier of an entity type's properties object.
func PropertiesIdentifier(entity string) string { return entity + "Properties" }

// Closure returns the IDs reachable from roots, roots included, in collation order.
func (ctx *Context) Closure(roots []typesystem.VersionedURL) []typesystem.VersionedURL {
	seen := make(map[typesystem.VersionedURL]struct{})
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := ctx.AllTypes[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		stack = append(stack, ctx.TypeDependencyMap[id]...)
	}
	var out []typesystem.VersionedURL
	for _, id := range ctx.Order {
		if _, ok := seen[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// AddDependentIdentifierInFile records that file uses identifier.
func (ctx *Context) AddDependentIdentifierInFile(identifier, file string) {
	set(ctx.FilesToDependentIdentifiers, file).Add(identifier)
}

// DefineIdentifierInFile records that file declares identifier with the given contents.
func (ctx *Context) DefineIdentifierInFile(identifier string, src IdentifierSource, locallyImportable bool) error {
	src.Kind = SourceLocal
	set(ctx.FilesToDefinedIdentifiers, src.DefiningPath).Add(identifier)
	deps := set(ctx.FilesToDependentIdentifiers, src.DefiningPath)
	deps.Add(identifier)
	for _, d := range src.DependsOn {
		deps.Add(d)
	}

	existing, ok := ctx.IdentifiersToSources[identifier]
	if !ok {
		ctx.IdentifiersToSources[identifier] = &IdentifierSources{
			LocallyImportable: locallyImportable,
			Sources:           []IdentifierSource{src},
		}
		return nil
	}
	switch {
	case locallyImportable && !existing.LocallyImportable:
		return NewGenerationError("postprocess", src.DefiningPath,
			fmt.Sprintf("ambiguous source definitions for identifier %q, locally defined but also exported from %s", identifier, definingPaths(existing)), nil)
	case locallyImportable && existing.Sources[0].DefiningPath != src.DefiningPath:
		return NewGenerationError("postprocess", src.DefiningPath,
			fmt.Sprintf("identifier %q defined in multiple files: %q and %q", identifier, src.DefiningPath, existing.Sources[0].DefiningPath), nil)
	case locallyImportable && existing.Sources[0].Contents != src.Contents:
		return NewGenerationError("postprocess", src.DefiningPath,
			fmt.Sprintf("identifier %q defined twice in %q with different contents", identifier, src.DefiningPath), nil)
	case locallyImportable:
		return nil
	case existing.LocallyImportable:
		return NewGenerationError("postprocess", src.DefiningPath,
			fmt.Sprintf("ambiguous source definitions for identifier %q, exported from %s but also locally defined in %s", identifier, src.DefiningPath, existing.Sources[0].DefiningPath), nil)
	}
	existing.Sources = append(existing.Sources, src)
	return nil
}

// DefineExternalIdentifier records an identifier provided by a library.
func (ctx *Context) DefineExternalIdentifier(identifier, importPath string) {
	ctx.IdentifiersToSources[identifier] = &IdentifierSources{
		LocallyImportable: true,
		Sources:           []IdentifierSource{{Kind: SourceExternal, DefiningPath: importPath}},
	}
}

func definingPaths(s *IdentifierSources) []string {
	out := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		out = append(out, src.DefiningPath)
	}
	return out
}

// Files returns every file known to the postprocess maps, sorted.
func (ctx *Context) Files() []string {
	seen := make(map[string]struct{})
	for f := range ctx.FilesToContents {
		seen[f] = struct{}{}
	}
	for f := range ctx.FilesToDependentIdentifiers {
		seen[f] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func set(m map[string]*IdentifierSet, file string) *IdentifierSet {
	s, ok := m[file]
	if !ok {
		s = NewIdentifierSet()
		m[file] = s
	}
	return s
}

// IdentifierSet is an insertion ordered set of identifiers.
type IdentifierSet struct {
	order []string
	has   map[string]struct{}
}

// NewIdentifierSet returns a set holding ids.
func NewIdentifierSet(ids ...string) *IdentifierSet {
	s := &IdentifierSet{has: make(map[string]struct{})}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id if it is not present.
func (s *IdentifierSet) Add(id string) {
	if _, ok := s.has[id]; ok {
		return
	}
	s.has[id] = struct{}{}
	s.order = append(s.order, id)
}

// Has reports whether id is present.
func (s *IdentifierSet) Has(id string) bool {
	_, ok := s.has[id]
	return ok
}

// Len returns the number of identifiers.
func (s *IdentifierSet) Len() int { return len(s.order) }

// Slice returns the identifiers in insertion order.
func (s *IdentifierSet) Slice() []string { return slices.Clone(s.order) }
