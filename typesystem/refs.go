package typesystem

import (
	"slices"
	"sort"
)

// RefKind names the relation a reference expresses between two types.
type RefKind string

// Reference kinds. They mirror the ontology edge kinds of a subgraph.
const (
	ConstrainsValuesOn           RefKind = "CONSTRAINS_VALUES_ON"
	ConstrainsPropertiesOn       RefKind = "CONSTRAINS_PROPERTIES_ON"
	ConstrainsLinksOn            RefKind = "CONSTRAINS_LINKS_ON"
	ConstrainsLinkDestinationsOn RefKind = "CONSTRAINS_LINK_DESTINATIONS_ON"
	InheritsFrom                 RefKind = "INHERITS_FROM"
)

// Reference is an outgoing reference from one type to another.
type Reference struct {
	Kind RefKind
	URL  VersionedURL
}

// TargetKind returns the kind of type a reference of kind k points at.
func (k RefKind) TargetKind() Kind {
	switch k {
	case ConstrainsValuesOn:
		return KindDataType
	case ConstrainsPropertiesOn:
		return KindPropertyType
	default:
		return KindEntityType
	}
}

// References returns the outgoing references of t in a stable order.
// Duplicates are removed.
func References(t *Type) []Reference {
	var refs []Reference
	switch t.Kind {
	case KindPropertyType:
		for _, v := range slice(t.Schema["oneOf"]) {
			refs = propertyValueRefs(refs, object(v))
		}
	case KindEntityType:
		refs = propertiesRefs(refs, object(t.Schema["properties"]))
		links := object(t.Schema["links"])
		for _, link := range sortedKeys(links) {
			refs = append(refs, Reference{Kind: ConstrainsLinksOn, URL: VersionedURL(link)})
			for _, dest := range LinkDestinations(links[link]) {
				refs = append(refs, Reference{Kind: ConstrainsLinkDestinationsOn, URL: dest})
			}
		}
		for _, parent := range slice(t.Schema["allOf"]) {
			if ref, ok := object(parent)["$ref"].(string); ok {
				refs = append(refs, Reference{Kind: InheritsFrom, URL: VersionedURL(ref)})
			}
		}
	}
	return dedupe(refs)
}

// LinkDestinations returns the constrained destinations of a link entry of an
// entity type's "links" map. An empty result means any entity is allowed.
func LinkDestinations(link any) []VersionedURL {
	var out []VersionedURL
	for _, d := range slice(object(object(link)["items"])["oneOf"]) {
		if ref, ok := object(d)["$ref"].(string); ok {
			out = append(out, VersionedURL(ref))
		}
	}
	return out
}

// PropertyRef returns the property type referenced by a value of a
// "properties" map, which is either {"$ref"} or an array of {"$ref"}.
func PropertyRef(v any) (VersionedURL, bool) {
	m := object(v)
	if ref, ok := m["$ref"].(string); ok {
		return VersionedURL(ref), true
	}
	if ref, ok := object(m["items"])["$ref"].(string); ok {
		return VersionedURL(ref), true
	}
	return "", false
}

// propertyValueRefs collects references from one entry of a property type's
// oneOf: a data type reference, a property object, or an array of values.
func propertyValueRefs(refs []Reference, v map[string]any) []Reference {
	if ref, ok := v["$ref"].(string); ok {
		return append(refs, Reference{Kind: ConstrainsValuesOn, URL: VersionedURL(ref)})
	}
	switch v["type"] {
	case "object":
		refs = propertiesRefs(refs, object(v["properties"]))
	case "array":
		for _, item := range slice(object(v["items"])["oneOf"]) {
			refs = propertyValueRefs(refs, object(item))
		}
	}
	return refs
}

func propertiesRefs(refs []Reference, props map[string]any) []Reference {
	for _, k := range sortedKeys(props) {
		if ref, ok := PropertyRef(props[k]); ok {
			refs = append(refs, Reference{Kind: ConstrainsPropertiesOn, URL: ref})
		}
	}
	return refs
}

func dedupe(refs []Reference) []Reference {
	seen := make(map[Reference]struct{}, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return slices.Clip(out)
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func slice(v any) []any {
	s, _ := v.([]any)
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
