package gen

import (
	"context"
	"regexp"
	"strings"

	"github.com/syssam/typegen/typesystem"
)

// Declaration is one named top-level declaration produced for a type.
type Declaration struct {
	Identifier string
	Contents   string
	// DependsOn lists identifiers Contents refers to.
	DependsOn []string
	// Value marks declarations that exist at runtime, such as constants.
	Value bool
}

// Import is an identifier a file uses but does not define.
type Import struct {
	Identifier string
	// From is an import path for external identifiers and a sibling file
	// name otherwise.
	From     string
	External bool
	Value    bool
}

// CompiledType holds the declarations generated for one type. The first
// declaration is the type itself; the rest are helpers such as an entity's
// properties object.
type CompiledType struct {
	TypeID       typesystem.VersionedURL
	Declarations []Declaration
}

// Identifiers returns the declared identifiers in order.
func (c *CompiledType) Identifiers() []string {
	out := make([]string, 0, len(c.Declarations))
	for _, d := range c.Declarations {
		out = append(out, d.Identifier)
	}
	return out
}

// LinkTargets describes one outgoing link of an entity type.
type LinkTargets struct {
	LinkTypeID typesystem.VersionedURL
	// Link is the identifier of the link entity type.
	Link string
	// Destinations are the identifiers of the allowed right entities.
	// Empty means any entity.
	Destinations []string
}

// Backend renders declarations in one output language.
type Backend interface {
	// Language returns the language rendered by the backend.
	Language() Language
	// PreservesReferences reports whether Compile refers to other types by
	// identifier directly. Backends that do not are compiled against
	// placeholder declarations that Compile removes afterwards.
	PreservesReferences() bool
	// IsReserved reports whether name cannot be used as a type identifier.
	IsReserved(name string) bool
	// Externals maps identifiers provided by a runtime library to their import path.
	Externals(c *Config) map[string]string
	// Prelude returns declarations every generated schema needs once. They are
	// defined in the first output file.
	Prelude() []Declaration
	// Compile renders the declarations of t.
	Compile(ctx *Context, t *typesystem.Type) ([]Declaration, error)
	// LinkAndTargets renders the outgoing link helpers of an entity type.
	LinkAndTargets(entity string, links []LinkTargets) []Declaration
	// TypeIDAlias renders a constant holding the URL of a type. It reports
	// false when the language has no constants.
	TypeIDAlias(alias string, id typesystem.VersionedURL) (Declaration, bool)
	// TypeIDAliasName returns the default alias name for a type identifier.
	TypeIDAliasName(identifier string) string
	// BlockEntity renders the helpers marking entity as a file's block entity.
	BlockEntity(entity string, linkTargets bool) []Declaration
	// Header renders the import section of file. Identifiers imported from
	// sibling files are re-exported where the language allows it.
	Header(file string, imports []Import) string
	// Banner returns the comment placed at the top of every file.
	Banner() string
	// Format validates and formats a completed file.
	Format(path string, src []byte) ([]byte, error)
}

// NewBackend returns the backend for c.Language.
func NewBackend(c *Config) (Backend, error) {
	switch c.Language {
	case TypeScript:
		return &typeScriptBackend{}, nil
	case Go:
		return &goBackend{pkg: c.Package}, nil
	case GraphQL:
		return &graphQLBackend{}, nil
	default:
		return nil, NewConfigError("Language", c.Language, "unsupported language")
	}
}

// Compile renders every collated type into declarations, in collation order.
func Compile(gctx context.Context, ctx *Context) error {
	if err := ctx.expect(StagePreprocessed, "compile"); err != nil {
		return err
	}
	for _, id := range ctx.Order {
		if err := gctx.Err(); err != nil {
			return err
		}
		t := ctx.AllTypes[id]
		decls, err := ctx.Backend.Compile(ctx, t)
		if err != nil {
			return NewGenerationError("compile", "", "compile "+string(id), err)
		}
		if !ctx.Backend.PreservesReferences() {
			for i := range decls {
				decls[i].Contents = ReplaceInterfaceWithType(RemovePlaceholderTypes(decls[i].Contents))
			}
		}
		ctx.TypeIDsToCompiledTypes[id] = &CompiledType{TypeID: id, Declarations: decls}
	}
	ctx.Logger.Debug("compiled types", "types", len(ctx.TypeIDsToCompiledTypes))
	ctx.complete(StageCompiled)
	return nil
}

// placeholderToken marks a stand-in declaration for a type defined elsewhere.
const placeholderToken = "__typegen_placeholder__"

var (
	placeholderDecl = regexp.MustCompile(`(?m)^export type \w+ = "` + placeholderToken + `";?\n*`)
	interfaceDecl   = regexp.MustCompile(`(?m)^export interface (\w+) \{`)
)

// RemovePlaceholderTypes drops the stand-in declarations emitted for
// referenced types.
func RemovePlaceholderTypes(src string) string {
	return strings.TrimRight(placeholderDecl.ReplaceAllString(src, ""), "\n")
}

// ReplaceInterfaceWithType rewrites interface declarations into type aliases.
func ReplaceInterfaceWithType(src string) string {
	return interfaceDecl.ReplaceAllString(src, "export type $1 = {")
}

// SubstitutePlaceholders returns a deep copy of schema in which every "$ref"
// to a collated type is replaced by a titled placeholder. A compiler that
// hoists titled subschemas then refers to the referenced type by name.
// References to types that were not collated become unconstrained.
func SubstitutePlaceholders(ctx *Context, schema map[string]any) map[string]any {
	var cp func(v any) any
	cp = func(v any) any {
		switch v := v.(type) {
		case map[string]any:
			if ref, ok := v["$ref"].(string); ok {
				if ident, ok := ctx.IdentifierFor(typesystem.VersionedURL(ref)); ok {
					return map[string]any{"title": ident, "const": placeholderToken}
				}
				return map[string]any{}
			}
			m := make(map[string]any, len(v))
			for k, c := range v {
				m[k] = cp(c)
			}
			return m
		case []any:
			s := make([]any, len(v))
			for i, c := range v {
				s[i] = cp(c)
			}
			return s
		default:
			return v
		}
	}
	return cp(schema).(map[string]any)
}

// entityParents returns the identifiers of the collated parents of t.
func entityParents(ctx *Context, t *typesystem.Type) []string {
	var out []string
	for _, ref := range typesystem.References(t) {
		if ref.Kind != typesystem.InheritsFrom {
			continue
		}
		if ident, ok := ctx.IdentifierFor(ref.URL); ok {
			out = append(out, ident)
		}
	}
	return out
}

// valueDependencies returns the identifiers of the collated types t refers to
// by value, excluding link and destination references.
func valueDependencies(ctx *Context, t *typesystem.Type) []string {
	var out []string
	for _, ref := range typesystem.References(t) {
		switch ref.Kind {
		case typesystem.ConstrainsValuesOn, typesystem.ConstrainsPropertiesOn:
			if ident, ok := ctx.IdentifierFor(ref.URL); ok {
				out = append(out, ident)
			}
		}
	}
	return out
}
