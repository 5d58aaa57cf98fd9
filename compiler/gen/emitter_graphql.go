package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/typegen/typesystem"
)

// jsonScalar stands in for values the schema cannot describe precisely.
const jsonScalar = "JSON"

type graphQLBackend struct{}

func (*graphQLBackend) Language() Language                  { return GraphQL }
func (*graphQLBackend) PreservesReferences() bool           { return true }
func (*graphQLBackend) IsReserved(name string) bool         { return isReservedGraphQL(name) }
func (*graphQLBackend) Externals(*Config) map[string]string { return nil }
func (*graphQLBackend) TypeIDAliasName(id string) string    { return id + "TypeId" }

func (*graphQLBackend) Prelude() []Declaration {
	id := ast.NonNullNamedType("ID", nil)
	return []Declaration{
		{
			Identifier: jsonScalar,
			Contents:   formatDefinitions(&ast.Definition{Kind: ast.Scalar, Name: jsonScalar, Description: "Arbitrary JSON value."}),
		},
		{
			Identifier: "EntityRecordId",
			Contents: formatDefinitions(&ast.Definition{Kind: ast.Object, Name: "EntityRecordId", Fields: ast.FieldList{
				{Name: "entityId", Type: id},
				{Name: "editionId", Type: id},
			}}),
		},
		{
			Identifier: "EntityMetadata",
			Contents: formatDefinitions(&ast.Definition{Kind: ast.Object, Name: "EntityMetadata", Fields: ast.FieldList{
				{Name: "recordId", Type: ast.NonNullNamedType("EntityRecordId", nil)},
				{Name: "entityTypeId", Type: ast.NonNullNamedType("String", nil)},
			}}),
			DependsOn: []string{"EntityRecordId"},
		},
		{
			Identifier: "LinkData",
			Contents: formatDefinitions(&ast.Definition{Kind: ast.Object, Name: "LinkData", Fields: ast.FieldList{
				{Name: "leftEntityId", Type: id},
				{Name: "rightEntityId", Type: id},
				{Name: "leftToRightOrder", Type: ast.NamedType("Int", nil)},
				{Name: "rightToLeftOrder", Type: ast.NamedType("Int", nil)},
			}}),
		},
	}
}

func (*graphQLBackend) Compile(ctx *Context, t *typesystem.Type) ([]Declaration, error) {
	name := t.Title()
	switch t.Kind {
	case typesystem.KindDataType:
		def := &ast.Definition{Kind: ast.Scalar, Name: name, Description: t.Description()}
		return []Declaration{{Identifier: name, Contents: formatDefinitions(def)}}, nil
	case typesystem.KindPropertyType:
		def, deps := graphQLProperty(ctx, t)
		return []Declaration{{Identifier: name, Contents: formatDefinitions(def), DependsOn: deps}}, nil
	case typesystem.KindEntityType:
		return compileGraphQLEntity(ctx, t), nil
	default:
		return nil, NewTypeError(string(t.ID), fmt.Sprintf("unknown kind %q", t.Kind), nil)
	}
}

// graphQLProperty renders a property type whose single value is an object
// as an object type, and every other property type as a scalar.
func graphQLProperty(ctx *Context, t *typesystem.Type) (*ast.Definition, []string) {
	def := &ast.Definition{Kind: ast.Scalar, Name: t.Title(), Description: t.Description()}
	values, _ := t.Schema["oneOf"].([]any)
	if len(values) != 1 {
		return def, nil
	}
	value, _ := values[0].(map[string]any)
	if value["type"] != "object" {
		return def, nil
	}
	fields, deps := graphQLFields(ctx, value)
	if len(fields) == 0 {
		return def, nil
	}
	def.Kind = ast.Object
	def.Fields = fields
	return def, deps
}

func compileGraphQLEntity(ctx *Context, t *typesystem.Type) []Declaration {
	name := t.Title()
	props := PropertiesIdentifier(name)

	// Object types cannot extend each other, so inherited properties are
	// flattened into the properties object.
	merged := map[string]any{"properties": inheritedProperties(ctx, t), "required": t.Schema["required"]}
	fields, deps := graphQLFields(ctx, merged)
	propsDef := &ast.Definition{Kind: ast.Object, Name: props, Fields: fields}
	if len(fields) == 0 {
		propsDef = &ast.Definition{Kind: ast.Scalar, Name: props}
	}

	entity := &ast.Definition{
		Kind:        ast.Object,
		Name:        name,
		Description: t.Description(),
		Fields: ast.FieldList{
			{Name: "metadata", Type: ast.NonNullNamedType("EntityMetadata", nil)},
			{Name: "properties", Type: ast.NonNullNamedType(props, nil)},
		},
	}
	entityDeps := []string{"EntityMetadata", props}
	if ctx.LinkTypeMap[t.ID] {
		entity.Fields = append(entity.Fields, &ast.FieldDefinition{Name: "linkData", Type: ast.NonNullNamedType("LinkData", nil)})
		entityDeps = append(entityDeps, "LinkData")
	}
	return []Declaration{
		{Identifier: name, Contents: formatDefinitions(entity), DependsOn: entityDeps},
		{Identifier: props, Contents: formatDefinitions(propsDef), DependsOn: deps},
	}
}

// inheritedProperties merges the properties of t and its collated ancestors.
// Properties declared closer to t win.
func inheritedProperties(ctx *Context, t *typesystem.Type) map[string]any {
	out := make(map[string]any)
	seen := make(map[typesystem.VersionedURL]bool)
	var walk func(t *typesystem.Type)
	walk = func(t *typesystem.Type) {
		if seen[t.ID] {
			return
		}
		seen[t.ID] = true
		for _, ref := range typesystem.References(t) {
			if ref.Kind == typesystem.InheritsFrom {
				if parent, ok := ctx.AllTypes[ref.URL]; ok {
					walk(parent)
				}
			}
		}
		props, _ := t.Schema["properties"].(map[string]any)
		for k, v := range props {
			out[k] = v
		}
	}
	walk(t)
	return out
}

func graphQLFields(ctx *Context, schema map[string]any) (ast.FieldList, []string) {
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
		fields ast.FieldList
		deps   []string
		used   = make(map[string]int)
	)
	for _, key := range keys {
		name := graphQLFieldName(key)
		if n := used[name]; n > 0 {
			used[name]++
			name = fmt.Sprintf("%s%d", name, n+1)
		} else {
			used[name] = 1
		}
		typeName := jsonScalar
		if ref, ok := typesystem.PropertyRef(props[key]); ok {
			if ident, ok := ctx.IdentifierFor(ref); ok {
				typeName = ident
			}
		}
		deps = appendUnique(deps, typeName)

		prop, _ := props[key].(map[string]any)
		var typ *ast.Type
		if _, isArray := prop["items"]; isArray {
			typ = ast.ListType(ast.NonNullNamedType(typeName, nil), nil)
		} else {
			typ = ast.NamedType(typeName, nil)
		}
		typ.NonNull = required[key]
		fields = append(fields, &ast.FieldDefinition{Name: name, Description: key, Type: typ})
	}
	return fields, deps
}

func (*graphQLBackend) LinkAndTargets(string, []LinkTargets) []Declaration { return nil }

func (*graphQLBackend) TypeIDAlias(string, typesystem.VersionedURL) (Declaration, bool) {
	return Declaration{}, false
}

func (*graphQLBackend) BlockEntity(string, bool) []Declaration { return nil }

// Header is empty: a GraphQL schema shares a single namespace across files.
func (*graphQLBackend) Header(string, []Import) string {
	return ""
}

func (*graphQLBackend) Banner() string { return "# " + bannerText }

func (*graphQLBackend) Format(path string, src []byte) ([]byte, error) {
	if _, err := parser.ParseSchema(&ast.Source{Name: path, Input: string(src)}); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(src), "\n") + "\n"), nil
}

func formatDefinitions(defs ...*ast.Definition) string {
	var b strings.Builder
	formatter.NewFormatter(&b).FormatSchemaDocument(&ast.SchemaDocument{Definitions: defs})
	return strings.TrimSpace(b.String())
}
