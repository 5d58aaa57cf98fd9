// Package typesystem models the versioned ontology types consumed by the code
// generator: data types, property types and entity types.
//
// Types are kept as their raw JSON documents. The generator mutates documents
// in place (titles, empty compositions), so the package offers accessors over
// the document rather than a fully typed mirror of it.
package typesystem

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/syssam/typegen"
)

// Kind discriminates the three ontology type kinds.
type Kind string

// Ontology type kinds, as found in a document's "kind" field.
const (
	KindDataType     Kind = "dataType"
	KindPropertyType Kind = "propertyType"
	KindEntityType   Kind = "entityType"
)

// Kinds lists every kind in generation order.
var Kinds = []Kind{KindDataType, KindPropertyType, KindEntityType}

// LinkEntityTypeURL is the entity type every link entity type inherits from.
const LinkEntityTypeURL VersionedURL = "https://blockprotocol.org/@blockprotocol/types/entity-type/link/v/1"

// Type is a classified ontology type document.
type Type struct {
	ID     VersionedURL
	Kind   Kind
	Schema map[string]any
}

// Title returns the document title.
func (t *Type) Title() string {
	s, _ := t.Schema["title"].(string)
	return s
}

// SetTitle overwrites the document title.
func (t *Type) SetTitle(title string) {
	t.Schema["title"] = title
}

// Description returns the document description, if any.
func (t *Type) Description() string {
	s, _ := t.Schema["description"].(string)
	return s
}

// Decode parses a JSON document into a generic map.
func Decode(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("typesystem: decode document: %w", err)
	}
	return doc, nil
}

// Classify checks doc against the meta-schema of the kind it claims and
// returns the classified Type. Documents that are not a recognizable type
// produce a *typegen.ClassificationError.
func Classify(url string, doc map[string]any) (*Type, error) {
	kind, _ := doc["kind"].(string)
	schema, err := metaSchema(Kind(kind))
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, typegen.NewClassificationError(url, kind)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("typesystem: validate %s: %w", url, err)
	}
	if !res.Valid() {
		return nil, typegen.NewClassificationError(url, kind)
	}
	id, err := ParseVersionedURL(doc["$id"].(string))
	if err != nil {
		return nil, err
	}
	return &Type{ID: id, Kind: Kind(kind), Schema: doc}, nil
}

// ValidationErrors returns a description per meta-schema violation of doc.
// It is empty when doc classifies.
func ValidationErrors(doc map[string]any) ([]string, error) {
	kind, _ := doc["kind"].(string)
	schema, err := metaSchema(Kind(kind))
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return []string{fmt.Sprintf("kind: unknown kind %q", kind)}, nil
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, desc := range res.Errors() {
		out = append(out, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return out, nil
}

var (
	compileOnce sync.Once
	compiled    map[Kind]*gojsonschema.Schema
	compileErr  error
)

func metaSchema(k Kind) (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Kind]*gojsonschema.Schema, len(metaSchemas))
		for kind, src := range metaSchemas {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = fmt.Errorf("typesystem: compile %s meta-schema: %w", kind, err)
				return
			}
			compiled[kind] = s
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return compiled[k], nil
}
