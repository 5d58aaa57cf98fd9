package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/syssam/typegen/typesystem"
)

// graphPkg is the runtime package generated Go entity types build on.
const graphPkg = "github.com/syssam/typegen/graph"

type goBackend struct {
	pkg string
}

func (*goBackend) Language() Language { return Go }

// PreservesReferences is true: jennifer statements refer to other types by
// identifier directly.
func (*goBackend) PreservesReferences() bool { return true }

func (*goBackend) IsReserved(name string) bool      { return isReservedGo(name) }
func (*goBackend) Prelude() []Declaration           { return nil }
func (*goBackend) TypeIDAliasName(id string) string { return id + "TypeID" }

func (*goBackend) Externals(*Config) map[string]string {
	return map[string]string{"graph.TypedEntity": graphPkg}
}

func (*goBackend) Compile(ctx *Context, t *typesystem.Type) ([]Declaration, error) {
	name := t.Title()
	switch t.Kind {
	case typesystem.KindDataType:
		stmt := goDoc(name, t.Description()).Type().Id(name).Add(goPrimitive(t.Schema))
		return []Declaration{{Identifier: name, Contents: render(stmt)}}, nil
	case typesystem.KindPropertyType:
		return []Declaration{compileGoProperty(ctx, t)}, nil
	case typesystem.KindEntityType:
		props := PropertiesIdentifier(name)
		entity := goDoc(name, t.Description()).
			Type().Id(name).Op("=").Qual(graphPkg, "TypedEntity").Types(jen.Id(props))

		var fields []jen.Code
		deps := valueDependencies(ctx, t)
		for _, p := range entityParents(ctx, t) {
			fields = append(fields, jen.Id(PropertiesIdentifier(p)))
			deps = append(deps, PropertiesIdentifier(p))
		}
		fields = append(fields, goFields(ctx, t.Schema)...)
		properties := jen.Commentf("%s holds the properties of a %s entity.", props, name).Line().
			Type().Id(props).Struct(fields...)
		return []Declaration{
			{Identifier: name, Contents: render(entity), DependsOn: []string{"graph.TypedEntity", props}},
			{Identifier: props, Contents: render(properties), DependsOn: deps},
		}, nil
	default:
		return nil, NewTypeError(string(t.ID), fmt.Sprintf("unknown kind %q", t.Kind), nil)
	}
}

func compileGoProperty(ctx *Context, t *typesystem.Type) Declaration {
	name := t.Title()
	decl := Declaration{Identifier: name, DependsOn: valueDependencies(ctx, t)}
	values, _ := t.Schema["oneOf"].([]any)
	doc := goDoc(name, t.Description())
	if len(values) != 1 {
		decl.Contents = render(doc.Type().Id(name).Op("=").Any())
		return decl
	}
	value, _ := values[0].(map[string]any)
	code, ref := goValue(ctx, value)
	if ref {
		decl.Contents = render(doc.Type().Id(name).Op("=").Add(code))
	} else {
		decl.Contents = render(doc.Type().Id(name).Add(code))
	}
	return decl
}

// goValue returns the Go type of a property value and whether it is a plain
// reference to another type.
func goValue(ctx *Context, v map[string]any) (jen.Code, bool) {
	if ref, ok := v["$ref"].(string); ok {
		if ident, ok := ctx.IdentifierFor(typesystem.VersionedURL(ref)); ok {
			return jen.Id(ident), true
		}
		return jen.Any(), true
	}
	switch v["type"] {
	case "object":
		return jen.Struct(goFields(ctx, v)...), false
	case "array":
		items, _ := v["items"].(map[string]any)
		alts, _ := items["oneOf"].([]any)
		if len(alts) != 1 {
			return jen.Index().Any(), false
		}
		item, _ := alts[0].(map[string]any)
		code, _ := goValue(ctx, item)
		return jen.Index().Add(code), false
	default:
		return goPrimitive(v), false
	}
}

// goFields renders the "properties" map of an object schema as struct fields
// tagged with their base URL.
func goFields(ctx *Context, schema map[string]any) []jen.Code {
	props, _ := schema["properties"].(map[string]any)
	required := make(map[string]bool)
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		fields []jen.Code
		used   = make(map[string]int)
	)
	for _, key := range keys {
		name := fieldName(key)
		if n := used[name]; n > 0 {
			used[name]++
			name = fmt.Sprintf("%s%d", name, n+1)
		} else {
			used[name] = 1
		}
		var typ jen.Code = jen.Any()
		if ref, ok := typesystem.PropertyRef(props[key]); ok {
			if ident, ok := ctx.IdentifierFor(ref); ok {
				typ = jen.Id(ident)
			}
		}
		prop, _ := props[key].(map[string]any)
		_, isArray := prop["items"]
		tag := key
		switch {
		case isArray:
			typ = jen.Index().Add(typ)
			if !required[key] {
				tag += ",omitempty"
			}
		case !required[key]:
			typ = jen.Op("*").Add(typ)
			tag += ",omitempty"
		}
		fields = append(fields, jen.Id(name).Add(typ).Tag(map[string]string{"json": tag}))
	}
	return fields
}

func goPrimitive(s map[string]any) jen.Code {
	switch s["type"] {
	case "string":
		return jen.String()
	case "number":
		return jen.Float64()
	case "integer":
		return jen.Int64()
	case "boolean":
		return jen.Bool()
	case "null":
		return jen.Struct()
	case "object":
		return jen.Map(jen.String()).Any()
	case "array":
		return jen.Index().Any()
	default:
		return jen.Any()
	}
}

func (*goBackend) LinkAndTargets(string, []LinkTargets) []Declaration { return nil }

func (*goBackend) TypeIDAlias(alias string, id typesystem.VersionedURL) (Declaration, bool) {
	stmt := jen.Commentf("%s is the versioned URL of the type.", alias).Line().
		Const().Id(alias).Op("=").Lit(string(id))
	return Declaration{Identifier: alias, Contents: render(stmt), Value: true}, true
}

func (*goBackend) BlockEntity(entity string, _ bool) []Declaration {
	stmt := jen.Comment("BlockEntity is the entity type the block is rendered for.").Line().
		Type().Id("BlockEntity").Op("=").Id(entity)
	return []Declaration{{Identifier: "BlockEntity", Contents: render(stmt), DependsOn: []string{entity}}}
}

// Header declares the package and imports external packages. Files of one
// package share their identifiers without imports.
func (b *goBackend) Header(_ string, imports []Import) string {
	var paths []string
	for _, imp := range imports {
		if imp.External {
			paths = appendUnique(paths, imp.From)
		}
	}
	var h strings.Builder
	fmt.Fprintf(&h, "package %s\n\n", b.pkg)
	if len(paths) > 0 {
		h.WriteString("import (\n")
		for _, p := range sortedCopy(paths) {
			fmt.Fprintf(&h, "\t%q\n", p)
		}
		h.WriteString(")\n\n")
	}
	return h.String()
}

func (*goBackend) Banner() string {
	return "/** " + bannerText + " */\n\n// Code generated by typegen. DO NOT EDIT."
}

func (*goBackend) Format(path string, src []byte) ([]byte, error) {
	return imports.Process(path, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

// goDoc starts a statement with a doc comment for name.
func goDoc(name, desc string) *jen.Statement {
	if desc == "" {
		return jen.Commentf("%s was generated from an ontology type.", name).Line()
	}
	return jen.Commentf("%s %s", name, strings.Join(strings.Fields(desc), " ")).Line()
}

func render(s *jen.Statement) string {
	return fmt.Sprintf("%#v", s)
}
