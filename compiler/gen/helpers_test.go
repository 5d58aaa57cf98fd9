package gen

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/typegen/compiler/load"
	"github.com/syssam/typegen/typesystem"
)

const (
	textURL    = "https://example.com/@acme/types/data-type/text/v/1"
	nameURL    = "https://example.com/@acme/types/property-type/name/v/1"
	addressURL = "https://example.com/@acme/types/property-type/address/v/1"
	personURL  = "https://example.com/@acme/types/entity-type/person/v/1"
	companyURL = "https://example.com/@acme/types/entity-type/company/v/1"
	friendURL  = "https://example.com/@acme/types/entity-type/friend-of/v/1"
	worksURL   = "https://example.com/@acme/types/entity-type/works-for/v/1"

	nameBase    = "https://example.com/@acme/types/property-type/name/"
	addressBase = "https://example.com/@acme/types/property-type/address/"
)

// fixtureDocs returns a small ontology: a person with a name, addresses and
// two kinds of links, a company, and two link entity types.
func fixtureDocs() map[string]map[string]any {
	return map[string]map[string]any{
		textURL: {
			"kind": "dataType", "$id": textURL, "title": "Text", "type": "string",
			"description": "An ordered sequence of characters",
		},
		nameURL: {
			"kind": "propertyType", "$id": nameURL, "title": "Name",
			"oneOf": []any{map[string]any{"$ref": textURL}},
		},
		addressURL: {
			"kind": "propertyType", "$id": addressURL, "title": "Address",
			"oneOf": []any{map[string]any{
				"type": "object",
				"properties": map[string]any{
					nameBase: map[string]any{"$ref": nameURL},
				},
				"required": []any{nameBase},
			}},
		},
		personURL: {
			"kind": "entityType", "$id": personURL, "title": "Person", "type": "object",
			"properties": map[string]any{
				nameBase:    map[string]any{"$ref": nameURL},
				addressBase: map[string]any{"type": "array", "items": map[string]any{"$ref": addressURL}},
			},
			"required": []any{nameBase},
			"links": map[string]any{
				friendURL: map[string]any{
					"type":  "array",
					"items": map[string]any{"oneOf": []any{map[string]any{"$ref": personURL}}},
				},
				worksURL: map[string]any{
					"type":  "array",
					"items": map[string]any{},
				},
			},
		},
		companyURL: {
			"kind": "entityType", "$id": companyURL, "title": "Company", "type": "object",
			"properties": map[string]any{
				nameBase: map[string]any{"$ref": nameURL},
			},
		},
		friendURL: {
			"kind": "entityType", "$id": friendURL, "title": "Friend Of", "type": "object",
			"properties": map[string]any{},
			"allOf":      []any{map[string]any{"$ref": string(typesystem.LinkEntityTypeURL)}},
		},
		worksURL: {
			"kind": "entityType", "$id": worksURL, "title": "Works For", "type": "object",
			"properties": map[string]any{},
			"allOf":      []any{map[string]any{"$ref": string(typesystem.LinkEntityTypeURL)}},
		},
	}
}

// docFetcher serves deep copies of docs.
func docFetcher(docs map[string]map[string]any) load.Fetcher {
	return load.FetcherFunc(func(_ context.Context, url string) (map[string]any, error) {
		doc, ok := docs[url]
		if !ok {
			return nil, nil
		}
		return deepCopy(doc), nil
	})
}

func deepCopy(doc map[string]any) map[string]any {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config targeting person.ts and company.ts.
func testConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()
	base := []Option{
		WithOutputFolder(t.TempDir()),
		WithTarget("person.ts", Target{SourceTypeID: personURL, BlockEntity: true}),
		WithTarget("company.ts", Target{SourceTypeID: companyURL}),
		WithFetcher(docFetcher(fixtureDocs())),
		WithLogger(discardLogger()),
	}
	c, err := NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// runUntil runs the pipeline stages up to and including stage.
func runUntil(t *testing.T, c *Config, stage Stage) *Context {
	t.Helper()
	b, err := NewBackend(c)
	require.NoError(t, err)
	ctx := NewContext(c, b)
	_, err = Initialize(context.Background(), ctx)
	require.NoError(t, err)
	if stage >= StagePreprocessed {
		require.NoError(t, Preprocess(ctx))
	}
	if stage >= StageCompiled {
		require.NoError(t, Compile(context.Background(), ctx))
	}
	if stage >= StagePostprocessed {
		require.NoError(t, Postprocess(ctx))
	}
	return ctx
}

// typeContext builds an initialized context directly from documents.
func typeContext(t *testing.T, c *Config, docs ...map[string]any) *Context {
	t.Helper()
	b, err := NewBackend(c)
	require.NoError(t, err)
	col := &load.Collation{
		AllTypes:     make(map[typesystem.VersionedURL]*typesystem.Type),
		Dependencies: make(map[typesystem.VersionedURL][]typesystem.VersionedURL),
	}
	for _, doc := range docs {
		id := typesystem.VersionedURL(doc["$id"].(string))
		typ, err := typesystem.Classify(string(id), doc)
		require.NoError(t, err)
		typ.ID = id
		col.AllTypes[id] = typ
		col.Order = append(col.Order, id)
		for _, ref := range typesystem.References(typ) {
			col.Dependencies[id] = append(col.Dependencies[id], ref.URL)
		}
	}
	ctx := NewContext(c, b)
	require.NoError(t, ctx.SetCollation(col))
	return ctx
}
