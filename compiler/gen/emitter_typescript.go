package gen

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/syssam/typegen/typesystem"
)

const (
	graphModule         = "@blockprotocol/graph"
	temporalGraphModule = "@blockprotocol/graph/temporal"
)

type typeScriptBackend struct{}

func (*typeScriptBackend) Language() Language               { return TypeScript }
func (*typeScriptBackend) PreservesReferences() bool        { return false }
func (*typeScriptBackend) IsReserved(name string) bool      { return isReservedTypeScript(name) }
func (*typeScriptBackend) Prelude() []Declaration           { return nil }
func (*typeScriptBackend) TypeIDAliasName(id string) string { return id + "TypeId" }

func (*typeScriptBackend) Externals(c *Config) map[string]string {
	module := graphModule
	if c.Temporal {
		module = temporalGraphModule
	}
	return map[string]string{
		"Entity":             module,
		"LinkData":           module,
		"JsonObject":         module,
		"LinkAndRightEntity": module,
	}
}

func (*typeScriptBackend) Compile(ctx *Context, t *typesystem.Type) ([]Declaration, error) {
	name := t.Title()
	switch t.Kind {
	case typesystem.KindDataType, typesystem.KindPropertyType:
		schema := SubstitutePlaceholders(ctx, t.Schema)
		return []Declaration{{
			Identifier: name,
			Contents:   renderTypeScript(name, schema),
			DependsOn:  valueDependencies(ctx, t),
		}}, nil
	case typesystem.KindEntityType:
		return compileTypeScriptEntity(ctx, t), nil
	default:
		return nil, NewTypeError(string(t.ID), fmt.Sprintf("unknown kind %q", t.Kind), nil)
	}
}

func compileTypeScriptEntity(ctx *Context, t *typesystem.Type) []Declaration {
	name := t.Title()
	props := PropertiesIdentifier(name)

	properties, ok := t.Schema["properties"].(map[string]any)
	if !ok {
		properties = map[string]any{}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if req, ok := t.Schema["required"]; ok {
		schema["required"] = req
	}
	schema = SubstitutePlaceholders(ctx, schema)

	deps := valueDependencies(ctx, t)
	parents := entityParents(ctx, t)
	if len(parents) > 0 {
		all := make([]any, 0, len(parents))
		for _, p := range parents {
			all = append(all, map[string]any{"title": PropertiesIdentifier(p), "const": placeholderToken})
			deps = append(deps, PropertiesIdentifier(p))
		}
		schema["allOf"] = all
	}

	var b strings.Builder
	writeTypeScriptDoc(&b, t.Description())
	fmt.Fprintf(&b, "export type %s = Entity<%s>", name, props)
	entityDeps := []string{"Entity", props}
	if ctx.LinkTypeMap[t.ID] {
		b.WriteString(" & { linkData: LinkData }")
		entityDeps = append(entityDeps, "LinkData")
	}
	return []Declaration{
		{Identifier: name, Contents: b.String(), DependsOn: entityDeps},
		{Identifier: props, Contents: renderTypeScript(props, schema), DependsOn: deps},
	}
}

func (*typeScriptBackend) LinkAndTargets(entity string, links []LinkTargets) []Declaration {
	var (
		decls  []Declaration
		idents []string
		byType strings.Builder
	)
	byTypeDeps := make([]string, 0, len(links))
	for _, l := range links {
		ident := entity + l.Link + "Links"
		right := "Entity"
		deps := []string{l.Link}
		if len(l.Destinations) > 0 {
			right = strings.Join(l.Destinations, " | ")
			deps = append(deps, l.Destinations...)
		} else {
			deps = append(deps, "Entity")
		}
		decls = append(decls, Declaration{
			Identifier: ident,
			Contents:   fmt.Sprintf("export type %s = { linkEntity: %s; rightEntity: %s }", ident, l.Link, right),
			DependsOn:  deps,
		})
		fmt.Fprintf(&byType, "  %s: %s\n", quoteKey(string(l.LinkTypeID)), ident)
		idents = append(idents, ident)
		byTypeDeps = append(byTypeDeps, ident)
	}

	byTypeName := entity + "OutgoingLinksByLinkEntityTypeId"
	body := "{}"
	if byType.Len() > 0 {
		body = "{\n" + byType.String() + "}"
	}
	decls = append(decls, Declaration{
		Identifier: byTypeName,
		Contents:   fmt.Sprintf("export type %s = %s", byTypeName, body),
		DependsOn:  byTypeDeps,
	})

	unionName := entity + "OutgoingLinkAndTarget"
	union := "never"
	if len(idents) > 0 {
		union = strings.Join(idents, " | ")
	}
	decls = append(decls, Declaration{
		Identifier: unionName,
		Contents:   fmt.Sprintf("export type %s = %s", unionName, union),
		DependsOn:  idents,
	})
	return decls
}

func (*typeScriptBackend) TypeIDAlias(alias string, id typesystem.VersionedURL) (Declaration, bool) {
	return Declaration{
		Identifier: alias,
		Contents:   fmt.Sprintf("export const %s = %s as const", alias, literal(string(id))),
		Value:      true,
	}, true
}

func (*typeScriptBackend) BlockEntity(entity string, linkTargets bool) []Declaration {
	decls := []Declaration{{
		Identifier: "BlockEntity",
		Contents:   "export type BlockEntity = " + entity,
		DependsOn:  []string{entity},
	}}
	if linkTargets {
		target := entity + "OutgoingLinkAndTarget"
		decls = append(decls, Declaration{
			Identifier: "BlockEntityOutgoingLinkAndTarget",
			Contents:   "export type BlockEntityOutgoingLinkAndTarget = " + target,
			DependsOn:  []string{target},
		})
	}
	return decls
}

// Header imports types with "import type" and constants with a plain import.
// Identifiers from sibling files are re-exported the same way.
func (*typeScriptBackend) Header(_ string, imports []Import) string {
	var (
		b                       strings.Builder
		external, local         = make(map[string][]Import), make(map[string][]Import)
		exportTypes, exportVals []string
	)
	for _, imp := range imports {
		if imp.External {
			external[imp.From] = append(external[imp.From], imp)
			continue
		}
		from := "./" + strings.TrimSuffix(imp.From, path.Ext(imp.From))
		local[from] = append(local[from], imp)
		if imp.Value {
			exportVals = append(exportVals, imp.Identifier)
		} else {
			exportTypes = append(exportTypes, imp.Identifier)
		}
	}
	for _, group := range []map[string][]Import{external, local} {
		for _, from := range sortedKeysOf(group) {
			var types, vals []string
			for _, imp := range group[from] {
				if imp.Value {
					vals = append(vals, imp.Identifier)
				} else {
					types = append(types, imp.Identifier)
				}
			}
			if len(types) > 0 {
				fmt.Fprintf(&b, "import type { %s } from %q;\n", strings.Join(sortedCopy(types), ", "), from)
			}
			if len(vals) > 0 {
				fmt.Fprintf(&b, "import { %s } from %q;\n", strings.Join(sortedCopy(vals), ", "), from)
			}
		}
		if len(group) > 0 {
			b.WriteString("\n")
		}
	}
	if len(exportTypes) > 0 {
		fmt.Fprintf(&b, "export type { %s };\n", strings.Join(sortedCopy(exportTypes), ", "))
	}
	if len(exportVals) > 0 {
		fmt.Fprintf(&b, "export { %s };\n", strings.Join(sortedCopy(exportVals), ", "))
	}
	if len(exportTypes)+len(exportVals) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func (*typeScriptBackend) Banner() string { return "/** " + bannerText + " */" }

func (*typeScriptBackend) Format(_ string, src []byte) ([]byte, error) {
	s := strings.TrimRight(string(src), "\n") + "\n"
	return []byte(s), nil
}

// renderTypeScript renders a JSON schema as a TypeScript declaration named
// name. Titled subschemas are hoisted into declarations of their own.
func renderTypeScript(name string, schema map[string]any) string {
	r := &tsRenderer{hoisted: map[string]bool{name: true}}
	decls := []string{r.declare(name, schema)}
	return strings.Join(append(decls, r.decls...), "\n\n")
}

type tsRenderer struct {
	decls   []string
	hoisted map[string]bool
}

func (r *tsRenderer) declare(name string, s map[string]any) string {
	var b strings.Builder
	desc, _ := s["description"].(string)
	writeTypeScriptDoc(&b, desc)
	if isPlainObject(s) {
		fmt.Fprintf(&b, "export interface %s %s", name, r.object(s, 0))
	} else {
		fmt.Fprintf(&b, "export type %s = %s", name, r.inline(s, 0))
	}
	return b.String()
}

func (r *tsRenderer) render(v any, indent int) string {
	s, ok := v.(map[string]any)
	if !ok {
		return "unknown"
	}
	if title, ok := s["title"].(string); ok && title != "" {
		if !r.hoisted[title] {
			r.hoisted[title] = true
			rest := make(map[string]any, len(s))
			for k, v := range s {
				if k != "title" {
					rest[k] = v
				}
			}
			r.decls = append(r.decls, r.declare(title, rest))
		}
		return title
	}
	return r.inline(s, indent)
}

func (r *tsRenderer) inline(s map[string]any, indent int) string {
	if c, ok := s["const"]; ok {
		return literal(c)
	}
	if enum, ok := s["enum"].([]any); ok && len(enum) > 0 {
		parts := make([]string, 0, len(enum))
		for _, e := range enum {
			parts = append(parts, literal(e))
		}
		return strings.Join(parts, " | ")
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		if alts, ok := s[key].([]any); ok && len(alts) > 0 {
			parts := make([]string, 0, len(alts))
			for _, a := range alts {
				parts = appendUnique(parts, r.render(a, indent))
			}
			return strings.Join(parts, " | ")
		}
	}
	if all, ok := s["allOf"].([]any); ok {
		parts := make([]string, 0, len(all)+1)
		for _, a := range all {
			parts = append(parts, parenthesize(r.render(a, indent)))
		}
		if _, ok := s["properties"]; ok {
			parts = append(parts, r.object(s, indent))
		}
		if len(parts) == 0 {
			return "unknown"
		}
		return strings.Join(parts, " & ")
	}
	switch typ := s["type"].(type) {
	case string:
		return r.primitive(typ, s, indent)
	case []any:
		parts := make([]string, 0, len(typ))
		for _, t := range typ {
			if ts, ok := t.(string); ok {
				parts = appendUnique(parts, r.primitive(ts, s, indent))
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " | ")
		}
	}
	if _, ok := s["properties"]; ok {
		return r.object(s, indent)
	}
	return "unknown"
}

func (r *tsRenderer) primitive(typ string, s map[string]any, indent int) string {
	switch typ {
	case "string":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "array":
		items, ok := s["items"]
		if !ok {
			return "unknown[]"
		}
		return parenthesize(r.render(items, indent)) + "[]"
	case "object":
		return r.object(s, indent)
	default:
		return "unknown"
	}
}

func (r *tsRenderer) object(s map[string]any, indent int) string {
	props, ok := s["properties"].(map[string]any)
	if !ok {
		value := "unknown"
		if ap, ok := s["additionalProperties"].(map[string]any); ok {
			value = r.render(ap, indent+1)
		}
		return fmt.Sprintf("{\n%s[k: string]: %s\n%s}", pad(indent+1), value, pad(indent))
	}
	if len(props) == 0 {
		return "{}"
	}
	required := make(map[string]bool)
	if req, ok := s["required"].([]any); ok {
		for _, k := range req {
			if ks, ok := k.(string); ok {
				required[ks] = true
			}
		}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		opt := "?"
		if required[k] {
			opt = ""
		}
		fmt.Fprintf(&b, "%s%s%s: %s\n", pad(indent+1), quoteKey(k), opt, r.render(props[k], indent+1))
	}
	b.WriteString(pad(indent) + "}")
	return b.String()
}

func isPlainObject(s map[string]any) bool {
	if s["type"] != "object" {
		return false
	}
	for _, k := range []string{"allOf", "oneOf", "anyOf", "const", "enum"} {
		if _, ok := s[k]; ok {
			return false
		}
	}
	return true
}

var tsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func quoteKey(k string) string {
	if tsIdentifier.MatchString(k) {
		return k
	}
	return literal(k)
}

func literal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "unknown"
	}
	return string(b)
}

func parenthesize(s string) string {
	if strings.Contains(s, " | ") || strings.Contains(s, " & ") {
		return "(" + s + ")"
	}
	return s
}

func pad(n int) string { return strings.Repeat("  ", n) }

func writeTypeScriptDoc(b *strings.Builder, desc string) {
	if desc == "" {
		return
	}
	b.WriteString("/**\n")
	for _, line := range strings.Split(desc, "\n") {
		b.WriteString(strings.TrimRight(" * "+line, " ") + "\n")
	}
	b.WriteString(" */\n")
}

func appendUnique(s []string, v string) []string {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func sortedKeysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
