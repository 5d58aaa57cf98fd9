package gen

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/syssam/typegen/typesystem"
)

// kindSuffix is appended to every generated type name of a kind.
var kindSuffix = map[typesystem.Kind]string{
	typesystem.KindDataType:     "DataType",
	typesystem.KindPropertyType: "PropertyValue",
	typesystem.KindEntityType:   "",
}

// Preprocess normalizes the collated documents before compilation. It
// rewrites titles into unique identifiers, drops empty allOf compositions and
// marks link entity types.
func Preprocess(ctx *Context) error {
	if err := ctx.expect(StageInitialized, "preprocess"); err != nil {
		return err
	}
	RewriteTypeTitles(ctx)
	RemoveEmptyAllOfs(ctx)
	IdentifyLinkEntityTypes(ctx)
	ctx.complete(StagePreprocessed)
	return nil
}

// RewriteTypeTitles replaces each type's title with the identifier it is
// generated under. Titles are converted to PascalCase. Types of the same kind
// that end up with the same name are disambiguated by base URL and version,
// then the kind suffix is appended. A name still taken by another type gets
// a counter until it is unique.
func RewriteTypeTitles(ctx *Context) {
	ids := make([]typesystem.VersionedURL, 0, len(ctx.AllTypes))
	for id := range ctx.AllTypes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	byKind := make(map[typesystem.Kind]map[string][]typesystem.VersionedURL)
	for _, id := range ids {
		t := ctx.AllTypes[id]
		src := t.Title()
		override, ok := ctx.Config.TypeNameOverrides[id]
		if ok {
			src = override
		}
		name := identifierFromTitle(src)
		if ok && (name != override || !isPascalCase(override)) {
			ctx.Logger.Warn("type name override is not PascalCase, generated name differs",
				"type", id, "override", override, "name", name)
		}
		if byKind[t.Kind] == nil {
			byKind[t.Kind] = make(map[string][]typesystem.VersionedURL)
		}
		byKind[t.Kind][name] = append(byKind[t.Kind][name], id)
	}

	final := make(map[string]typesystem.VersionedURL, len(ids))
	for _, kind := range typesystem.Kinds {
		names := make([]string, 0, len(byKind[kind]))
		for name := range byKind[kind] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			assigned := disambiguate(name, byKind[kind][name])
			for _, id := range byKind[kind][name] {
				title := generatedName(ctx.Backend, assigned[id], kind)
				for n := 2; final[title] != ""; n++ {
					ctx.Logger.Debug("generated name is taken", "type", id, "name", title, "by", final[title])
					title = generatedName(ctx.Backend, fmt.Sprintf("%s%d", assigned[id], n), kind)
				}
				final[title] = id
				ctx.AllTypes[id].SetTitle(title)
			}
		}
	}
	ctx.Logger.Debug("rewrote type titles", "types", len(final))
}

func generatedName(b Backend, name string, kind typesystem.Kind) string {
	name += kindSuffix[kind]
	if b.IsReserved(name) {
		name += "Type"
	}
	return name
}

// disambiguate assigns a distinct name to every type sharing name. With a
// single base URL the version is appended; with several, the index of the
// base URL is appended, followed by the version when that base URL has more
// than one revision.
func disambiguate(name string, ids []typesystem.VersionedURL) map[typesystem.VersionedURL]string {
	out := make(map[typesystem.VersionedURL]string, len(ids))
	if len(ids) == 1 {
		out[ids[0]] = name
		return out
	}
	byBase := make(map[typesystem.BaseURL][]typesystem.VersionedURL)
	for _, id := range ids {
		byBase[id.BaseURL()] = append(byBase[id.BaseURL()], id)
	}
	bases := make([]typesystem.BaseURL, 0, len(byBase))
	for b := range byBase {
		bases = append(bases, b)
	}
	slices.Sort(bases)

	if len(bases) == 1 {
		for _, id := range ids {
			out[id] = fmt.Sprintf("%sV%d", name, id.Version())
		}
		return out
	}
	for i, base := range bases {
		revisions := byBase[base]
		for _, id := range revisions {
			n := fmt.Sprintf("%s%d", name, i)
			if len(revisions) > 1 {
				n += fmt.Sprintf("V%d", id.Version())
			}
			out[id] = n
		}
	}
	return out
}

// RemoveEmptyAllOfs deletes every "allOf" key whose value is an empty list,
// at any depth of every document. Running it twice changes nothing.
func RemoveEmptyAllOfs(ctx *Context) {
	for _, id := range ctx.Order {
		removeEmptyAllOfs(ctx.AllTypes[id].Schema)
	}
}

func removeEmptyAllOfs(schema map[string]any) {
	stack := []any{schema}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch v := v.(type) {
		case map[string]any:
			if all, ok := v["allOf"].([]any); ok && len(all) == 0 {
				delete(v, "allOf")
			}
			for _, child := range v {
				stack = append(stack, child)
			}
		case []any:
			stack = append(stack, v...)
		}
	}
}

// IdentifyLinkEntityTypes marks every entity type that is the link entity
// type, inherits from it at any depth, or is used as a link by another
// entity type.
func IdentifyLinkEntityTypes(ctx *Context) {
	memo := make(map[typesystem.VersionedURL]bool)
	visiting := make(map[typesystem.VersionedURL]bool)
	var isLink func(id typesystem.VersionedURL) bool
	isLink = func(id typesystem.VersionedURL) bool {
		if id == typesystem.LinkEntityTypeURL {
			return true
		}
		if v, ok := memo[id]; ok {
			return v
		}
		t, ok := ctx.AllTypes[id]
		if !ok || visiting[id] {
			return false
		}
		visiting[id] = true
		defer delete(visiting, id)
		link := false
		for _, ref := range typesystem.References(t) {
			if ref.Kind == typesystem.InheritsFrom && isLink(ref.URL) {
				link = true
				break
			}
		}
		memo[id] = link
		return link
	}

	for _, id := range ctx.TypesOfKind(typesystem.KindEntityType) {
		if isLink(id) {
			ctx.LinkTypeMap[id] = true
		}
		for _, ref := range typesystem.References(ctx.AllTypes[id]) {
			if ref.Kind != typesystem.ConstrainsLinksOn {
				continue
			}
			if t, ok := ctx.AllTypes[ref.URL]; ok && t.Kind == typesystem.KindEntityType {
				ctx.LinkTypeMap[ref.URL] = true
			}
		}
	}
	var links []string
	for id := range ctx.LinkTypeMap {
		links = append(links, string(id))
	}
	sort.Strings(links)
	ctx.Logger.Debug("identified link entity types", "links", strings.Join(links, ","))
}
