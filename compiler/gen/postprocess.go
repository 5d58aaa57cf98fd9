package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syssam/typegen/typesystem"
)

// bannerText opens every generated file, wrapped in the language's comment syntax.
const bannerText = "This file was automatically generated – do not edit it."

// File is a generated output file.
type File struct {
	// Name is the target file name relative to the output folder.
	Name string
	// Path is Name resolved against the output folder.
	Path                 string
	DependentIdentifiers []string
	Contents             string
}

// Postprocess assigns declarations to target files and assembles their
// contents, imports and banners.
func Postprocess(ctx *Context) error {
	if err := ctx.expect(StageCompiled, "postprocess"); err != nil {
		return err
	}
	files := ctx.Config.Files()
	PrepareFileContents(ctx, files)
	for ident, path := range ctx.Backend.Externals(ctx.Config) {
		ctx.DefineExternalIdentifier(ident, path)
	}

	steps := []func(*Context) error{
		DefinePrelude,
		DefineTypeIdentifiers,
	}
	if ctx.Config.HasFeature(FeatureLinkTargets.Name) {
		steps = append(steps, GenerateLinkAndTargetDefinitions)
	}
	if ctx.Config.TypeIDAliases.Enabled {
		steps = append(steps, AppendTypeIDAliases)
	}
	steps = append(steps,
		DefineBlockEntities,
		AddClosureDependencies,
		AppendIdentifierDefinitions,
		PrependImportsAndExports,
		PrependBannerComments,
	)
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	ctx.Logger.Debug("postprocessed files", "files", len(files))
	ctx.complete(StagePostprocessed)
	return nil
}

// PrepareFileContents starts every target file with empty contents.
func PrepareFileContents(ctx *Context, files []string) {
	for _, f := range files {
		ctx.FilesToContents[f] = ""
		set(ctx.FilesToDependentIdentifiers, f)
		set(ctx.FilesToDefinedIdentifiers, f)
	}
}

// DefinePrelude defines the backend's shared declarations in the first file.
func DefinePrelude(ctx *Context) error {
	files := ctx.Config.Files()
	if len(files) == 0 {
		return nil
	}
	for _, d := range ctx.Backend.Prelude() {
		if err := ctx.DefineIdentifierInFile(d.Identifier, declarationSource(files[0], d), true); err != nil {
			return err
		}
	}
	return nil
}

// DefineTypeIdentifiers assigns every collated type to one file and defines
// its declarations there. A target type is defined in the first file that
// targets it; any other type in the first file whose closure reaches it.
func DefineTypeIdentifiers(ctx *Context) error {
	files := ctx.Config.Files()
	for _, file := range files {
		for _, t := range ctx.Config.Targets[file] {
			if _, ok := ctx.AllTypes[t.SourceTypeID]; !ok {
				ctx.Logger.Warn("target type was not collated", "type", t.SourceTypeID, "file", file)
				continue
			}
			if _, ok := ctx.TypeFiles[t.SourceTypeID]; !ok {
				ctx.TypeFiles[t.SourceTypeID] = file
			}
		}
	}
	for _, file := range files {
		for _, id := range ctx.Closure(fileRoots(ctx, file)) {
			if _, ok := ctx.TypeFiles[id]; !ok {
				ctx.TypeFiles[id] = file
			}
		}
	}
	for _, id := range ctx.Order {
		file, ok := ctx.TypeFiles[id]
		if !ok {
			continue
		}
		compiled, ok := ctx.TypeIDsToCompiledTypes[id]
		if !ok {
			return NewGenerationError("postprocess", file, fmt.Sprintf("type %s was not compiled", id), nil)
		}
		for _, d := range compiled.Declarations {
			if err := defineTypeDeclaration(ctx, id, file, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// GenerateLinkAndTargetDefinitions defines, for every entity type, the
// helpers describing its outgoing links and their right entities.
func GenerateLinkAndTargetDefinitions(ctx *Context) error {
	for _, id := range ctx.TypesOfKind(typesystem.KindEntityType) {
		file, ok := ctx.TypeFiles[id]
		if !ok {
			continue
		}
		t := ctx.AllTypes[id]
		links, _ := t.Schema["links"].(map[string]any)
		var targets []LinkTargets
		for _, ref := range typesystem.References(t) {
			if ref.Kind != typesystem.ConstrainsLinksOn {
				continue
			}
			link, ok := ctx.IdentifierFor(ref.URL)
			if !ok {
				ctx.Logger.Warn("link entity type was not collated", "type", id, "link", ref.URL)
				continue
			}
			lt := LinkTargets{LinkTypeID: ref.URL, Link: link}
			dests := typesystem.LinkDestinations(links[string(ref.URL)])
			for _, d := range dests {
				if ident, ok := ctx.IdentifierFor(d); ok {
					lt.Destinations = appendUnique(lt.Destinations, ident)
				}
			}
			if len(dests) > 0 && len(lt.Destinations) == 0 {
				if ctx.Config.HasFeature(FeatureStrict.Name) {
					return NewLinkError(t.Title(), link, string(dests[0]), "no destination was collated")
				}
				ctx.Logger.Warn("no link destination was collated, any entity is allowed",
					"type", id, "link", link, "destination", dests[0])
			}
			targets = append(targets, lt)
		}
		for _, d := range ctx.Backend.LinkAndTargets(t.Title(), targets) {
			if err := defineTypeDeclaration(ctx, id, file, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// AppendTypeIDAliases defines a constant holding the URL of every type.
func AppendTypeIDAliases(ctx *Context) error {
	for _, id := range ctx.Order {
		file, ok := ctx.TypeFiles[id]
		if !ok {
			continue
		}
		alias, ok := ctx.Config.TypeIDAliases.Overrides[id]
		if !ok {
			alias = ctx.Backend.TypeIDAliasName(ctx.AllTypes[id].Title())
		}
		d, ok := ctx.Backend.TypeIDAlias(alias, id)
		if !ok {
			return nil
		}
		if err := defineTypeDeclaration(ctx, id, file, d); err != nil {
			return err
		}
	}
	return nil
}

// DefineBlockEntities defines the block entity helpers of every file that
// marks a target as its block entity. Each file gets its own definitions.
func DefineBlockEntities(ctx *Context) error {
	linkTargets := ctx.Config.HasFeature(FeatureLinkTargets.Name)
	for _, file := range ctx.Config.Files() {
		for _, t := range ctx.Config.Targets[file] {
			if !t.BlockEntity {
				continue
			}
			typ, ok := ctx.AllTypes[t.SourceTypeID]
			if !ok {
				continue
			}
			if typ.Kind != typesystem.KindEntityType {
				return NewValidationError("targets", t.SourceTypeID, fmt.Sprintf("block entity in %q is a %s, not an entity type", file, typ.Kind))
			}
			for _, d := range ctx.Backend.BlockEntity(typ.Title(), linkTargets) {
				if err := ctx.DefineIdentifierInFile(d.Identifier, declarationSource(file, d), false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddClosureDependencies makes every identifier of every type reachable from
// a file's targets available from that file.
func AddClosureDependencies(ctx *Context) error {
	for _, file := range ctx.Config.Files() {
		for _, id := range ctx.Closure(fileRoots(ctx, file)) {
			idents, ok := ctx.typeIdentifiers[id]
			if !ok {
				continue
			}
			for _, ident := range idents.Slice() {
				ctx.AddDependentIdentifierInFile(ident, file)
			}
		}
	}
	return nil
}

// AppendIdentifierDefinitions appends the declarations each file defines, in
// definition order.
func AppendIdentifierDefinitions(ctx *Context) error {
	for _, file := range ctx.Config.Files() {
		var decls []string
		for _, ident := range set(ctx.FilesToDefinedIdentifiers, file).Slice() {
			for _, src := range ctx.IdentifiersToSources[ident].Sources {
				if src.Kind == SourceLocal && src.DefiningPath == file {
					decls = append(decls, src.Contents)
					break
				}
			}
		}
		if len(decls) > 0 {
			ctx.FilesToContents[file] += strings.Join(decls, "\n\n") + "\n"
		}
	}
	return nil
}

// PrependImportsAndExports resolves every identifier a file uses but does not
// define, and prepends the backend's import and re-export section.
func PrependImportsAndExports(ctx *Context) error {
	for _, file := range ctx.Config.Files() {
		var (
			defined = set(ctx.FilesToDefinedIdentifiers, file)
			imports []Import
		)
		for _, ident := range set(ctx.FilesToDependentIdentifiers, file).Slice() {
			if defined.Has(ident) {
				continue
			}
			sources, ok := ctx.IdentifiersToSources[ident]
			if !ok {
				return NewGenerationError("postprocess", file, fmt.Sprintf("could not find source for identifier %q", ident), nil)
			}
			if !sources.LocallyImportable {
				return NewGenerationError("postprocess", file, fmt.Sprintf("identifier %q is used but is not defined in the file and cannot be imported", ident), nil)
			}
			src := sources.Sources[0]
			imports = append(imports, Import{
				Identifier: ident,
				From:       src.DefiningPath,
				External:   src.Kind == SourceExternal,
				Value:      src.Value,
			})
		}
		ctx.FilesToContents[file] = ctx.Backend.Header(file, imports) + ctx.FilesToContents[file]
	}
	return nil
}

// PrependBannerComments prefixes every file with the generated-code banner.
func PrependBannerComments(ctx *Context) error {
	banner := ctx.Backend.Banner()
	for _, file := range ctx.Config.Files() {
		ctx.FilesToContents[file] = banner + "\n\n" + ctx.FilesToContents[file]
	}
	return nil
}

// GeneratedFiles returns the assembled files, sorted by name.
func (ctx *Context) GeneratedFiles() []File {
	files := ctx.Config.Files()
	out := make([]File, 0, len(files))
	for _, name := range files {
		out = append(out, File{
			Name:                 name,
			Path:                 filepath.Join(ctx.Config.OutputFolder, name),
			DependentIdentifiers: set(ctx.FilesToDependentIdentifiers, name).Slice(),
			Contents:             ctx.FilesToContents[name],
		})
	}
	return out
}

func fileRoots(ctx *Context, file string) []typesystem.VersionedURL {
	targets := ctx.Config.Targets[file]
	roots := make([]typesystem.VersionedURL, 0, len(targets))
	for _, t := range targets {
		roots = append(roots, t.SourceTypeID)
	}
	return roots
}

func defineTypeDeclaration(ctx *Context, id typesystem.VersionedURL, file string, d Declaration) error {
	if ctx.typeIdentifiers == nil {
		ctx.typeIdentifiers = make(map[typesystem.VersionedURL]*IdentifierSet)
	}
	if _, ok := ctx.typeIdentifiers[id]; !ok {
		ctx.typeIdentifiers[id] = NewIdentifierSet()
	}
	ctx.typeIdentifiers[id].Add(d.Identifier)
	return ctx.DefineIdentifierInFile(d.Identifier, declarationSource(file, d), true)
}

func declarationSource(file string, d Declaration) IdentifierSource {
	return IdentifierSource{DefiningPath: file, Contents: d.Contents, DependsOn: d.DependsOn, Value: d.Value}
}
