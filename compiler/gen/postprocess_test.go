package gen

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/typegen/typesystem"
)

func fileContents(t *testing.T, ctx *Context, name string) string {
	t.Helper()
	for _, f := range ctx.GeneratedFiles() {
		if f.Name == name {
			return f.Contents
		}
	}
	t.Fatalf("file %s was not generated", name)
	return ""
}

func TestPostprocessTypeScript(t *testing.T) {
	ctx := runUntil(t, testConfig(t), StagePostprocessed)
	assert.Equal(t, StagePostprocessed, ctx.Stage())

	files := ctx.GeneratedFiles()
	require.Len(t, files, 2)
	assert.Equal(t, "company.ts", files[0].Name)
	assert.Equal(t, "person.ts", files[1].Name)
	assert.Equal(t, ctx.Config.OutputFolder+"/person.ts", files[1].Path)

	assert.Equal(t, "company.ts", ctx.TypeFiles[nameURL])
	assert.Equal(t, "company.ts", ctx.TypeFiles[textURL])
	assert.Equal(t, "person.ts", ctx.TypeFiles[addressURL])
	assert.Equal(t, "person.ts", ctx.TypeFiles[typesystem.LinkEntityTypeURL])

	t.Run("person file", func(t *testing.T) {
		src := fileContents(t, ctx, "person.ts")
		header := "/** This file was automatically generated – do not edit it. */\n\n" +
			"import type { Entity, LinkData } from \"@blockprotocol/graph\";\n\n" +
			"import type { NamePropertyValue, TextDataType } from \"./company\";\n" +
			"import { NamePropertyValueTypeId, TextDataTypeTypeId } from \"./company\";\n\n" +
			"export type { NamePropertyValue, TextDataType };\n" +
			"export { NamePropertyValueTypeId, TextDataTypeTypeId };\n\n"
		assert.True(t, strings.HasPrefix(src, header), src)
		assert.True(t, strings.HasSuffix(src, "\n"))

		for _, want := range []string{
			"export type Person = Entity<PersonProperties>",
			"export type FriendOf = Entity<FriendOfProperties> & { linkData: LinkData }",
			"export type LinkProperties = {}",
			"export type PersonFriendOfLinks = { linkEntity: FriendOf; rightEntity: Person }",
			"export type PersonWorksForLinks = { linkEntity: WorksFor; rightEntity: Entity }",
			"export type PersonOutgoingLinksByLinkEntityTypeId = {\n" +
				"  \"https://example.com/@acme/types/entity-type/friend-of/v/1\": PersonFriendOfLinks\n" +
				"  \"https://example.com/@acme/types/entity-type/works-for/v/1\": PersonWorksForLinks\n}",
			"export type PersonOutgoingLinkAndTarget = PersonFriendOfLinks | PersonWorksForLinks",
			"export const PersonTypeId = \"https://example.com/@acme/types/entity-type/person/v/1\" as const",
			"export type BlockEntity = Person",
			"export type BlockEntityOutgoingLinkAndTarget = PersonOutgoingLinkAndTarget",
		} {
			assert.Contains(t, src, want)
		}
		assert.NotContains(t, src, "export type NamePropertyValue =")
		assert.Equal(t, 1, strings.Count(src, "export type Person ="))
	})

	t.Run("company file", func(t *testing.T) {
		src := fileContents(t, ctx, "company.ts")
		assert.Contains(t, src, "import type { Entity } from \"@blockprotocol/graph\";\n\n")
		assert.Contains(t, src, "export type NamePropertyValue = TextDataType")
		assert.Contains(t, src, "export type CompanyOutgoingLinksByLinkEntityTypeId = {}")
		assert.Contains(t, src, "export type CompanyOutgoingLinkAndTarget = never")
		assert.NotContains(t, src, "BlockEntity")
		assert.NotContains(t, src, "from \"./person\"")
	})
}

func TestPostprocessOptions(t *testing.T) {
	t.Run("without link targets", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t, WithoutFeatures(FeatureLinkTargets.Name)), StagePostprocessed)
		src := fileContents(t, ctx, "person.ts")
		assert.NotContains(t, src, "OutgoingLinkAndTarget")
		assert.NotContains(t, src, "PersonFriendOfLinks")
		assert.Contains(t, src, "export type BlockEntity = Person")
	})

	t.Run("without type ID aliases", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t, WithTypeIDAliases(false, nil)), StagePostprocessed)
		for _, f := range ctx.GeneratedFiles() {
			assert.NotContains(t, f.Contents, `TypeId = "`)
			assert.NotContains(t, f.Contents, "export {")
		}
	})

	t.Run("with a type ID alias override", func(t *testing.T) {
		c := testConfig(t, WithTypeIDAliases(true, map[typesystem.VersionedURL]string{personURL: "PersonID"}))
		ctx := runUntil(t, c, StagePostprocessed)
		src := fileContents(t, ctx, "person.ts")
		assert.Contains(t, src, "export const PersonID = ")
		assert.NotContains(t, src, "PersonTypeId")
	})

	t.Run("with temporal imports", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t, WithTemporal(true)), StagePostprocessed)
		src := fileContents(t, ctx, "person.ts")
		assert.Contains(t, src, "from \"@blockprotocol/graph/temporal\";")
		assert.NotContains(t, src, "from \"@blockprotocol/graph\";")
	})
}

func TestDefineIdentifierInFile(t *testing.T) {
	newCtx := func(t *testing.T) *Context {
		c := testConfig(t)
		b, err := NewBackend(c)
		require.NoError(t, err)
		return NewContext(c, b)
	}
	src := func(file string) IdentifierSource {
		return IdentifierSource{DefiningPath: file, Contents: "export type A = string", DependsOn: []string{"B"}}
	}

	t.Run("records dependencies", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), true))
		assert.True(t, ctx.FilesToDefinedIdentifiers["a.ts"].Has("A"))
		assert.Equal(t, []string{"A", "B"}, ctx.FilesToDependentIdentifiers["a.ts"].Slice())
		assert.Equal(t, SourceLocal, ctx.IdentifiersToSources["A"].Sources[0].Kind)
	})

	t.Run("accepts the same definition twice", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), true))
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), true))
		assert.Len(t, ctx.IdentifiersToSources["A"].Sources, 1)
	})

	t.Run("rejects a second definition with different contents", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("ABCLinks", src("a.ts"), true))
		other := src("a.ts")
		other.Contents = "export type ABCLinks = number"
		err := ctx.DefineIdentifierInFile("ABCLinks", other, true)
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.Contains(t, err.Error(), "different contents")
		assert.Len(t, ctx.IdentifiersToSources["ABCLinks"].Sources, 1)
	})

	t.Run("rejects definitions in two files", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), true))
		err := ctx.DefineIdentifierInFile("A", src("b.ts"), true)
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.Contains(t, err.Error(), "multiple files")
	})

	t.Run("keeps local definitions per file", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("BlockEntity", src("a.ts"), false))
		require.NoError(t, ctx.DefineIdentifierInFile("BlockEntity", src("b.ts"), false))
		sources := ctx.IdentifiersToSources["BlockEntity"]
		assert.False(t, sources.LocallyImportable)
		assert.Len(t, sources.Sources, 2)
	})

	t.Run("rejects ambiguous definitions", func(t *testing.T) {
		ctx := newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), false))
		err := ctx.DefineIdentifierInFile("A", src("b.ts"), true)
		assert.True(t, IsGenerationError(err))
		assert.Contains(t, err.Error(), "ambiguous")

		ctx = newCtx(t)
		require.NoError(t, ctx.DefineIdentifierInFile("A", src("a.ts"), true))
		err = ctx.DefineIdentifierInFile("A", src("b.ts"), false)
		assert.True(t, IsGenerationError(err))
		assert.Contains(t, err.Error(), "ambiguous")
	})
}

func TestPrependImportsAndExportsErrors(t *testing.T) {
	t.Run("fails without a source", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t), StageCompiled)
		PrepareFileContents(ctx, ctx.Config.Files())
		ctx.AddDependentIdentifierInFile("Missing", "person.ts")
		err := PrependImportsAndExports(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `could not find source for identifier "Missing"`)
	})

	t.Run("fails on a local only identifier", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t), StageCompiled)
		PrepareFileContents(ctx, ctx.Config.Files())
		require.NoError(t, ctx.DefineIdentifierInFile("BlockEntity", IdentifierSource{DefiningPath: "company.ts"}, false))
		ctx.AddDependentIdentifierInFile("BlockEntity", "person.ts")
		err := PrependImportsAndExports(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be imported")
	})
}

func TestPostprocessBlockEntityNotEntity(t *testing.T) {
	c := testConfig(t, WithTarget("name.ts", Target{SourceTypeID: nameURL, BlockEntity: true}))
	ctx := runUntil(t, c, StageCompiled)
	err := Postprocess(ctx)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.NotEqual(t, StagePostprocessed, ctx.Stage())
}

func TestPostprocessGo(t *testing.T) {
	ctx := runUntil(t, goConfig(t), StagePostprocessed)
	src := fileContents(t, ctx, "person.go")

	assert.True(t, strings.HasPrefix(src, "/** This file was automatically generated – do not edit it. */\n\n// Code generated by typegen. DO NOT EDIT.\n\npackage acme\n\n"), src)
	assert.Contains(t, src, "import (\n\t\"github.com/syssam/typegen/graph\"\n)\n\n")
	assert.Contains(t, src, "const PersonTypeID = \"https://example.com/@acme/types/entity-type/person/v/1\"")
	assert.Contains(t, src, "type BlockEntity = Person")
	assert.NotContains(t, src, "OutgoingLinkAndTarget")
	assert.NotContains(t, src, "export")

	company := fileContents(t, ctx, "company.go")
	assert.Contains(t, company, "package acme")
	assert.Contains(t, company, "type NamePropertyValue = TextDataType")
}

func TestPostprocessGraphQL(t *testing.T) {
	c, err := NewConfig(
		WithOutputFolder(t.TempDir()),
		WithLanguage("graphql"),
		WithTarget("person.graphql", Target{SourceTypeID: personURL}),
		WithTarget("company.graphql", Target{SourceTypeID: companyURL}),
		WithFetcher(docFetcher(fixtureDocs())),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := runUntil(t, c, StagePostprocessed)

	company := fileContents(t, ctx, "company.graphql")
	person := fileContents(t, ctx, "person.graphql")
	assert.True(t, strings.HasPrefix(company, "# This file was automatically generated – do not edit it.\n\n"))
	assert.Contains(t, company, "scalar JSON")
	assert.Contains(t, company, "type EntityMetadata")
	assert.NotContains(t, person, "scalar JSON")
	assert.NotContains(t, person, "TypeId")

	var sources []*ast.Source
	for _, f := range ctx.GeneratedFiles() {
		sources = append(sources, &ast.Source{Name: f.Name, Input: f.Contents})
	}
	_, err = parser.ParseSchemas(sources...)
	assert.NoError(t, err)
}

func TestIdentifierSet(t *testing.T) {
	s := NewIdentifierSet("b", "a")
	s.Add("b")
	s.Add("c")
	assert.Equal(t, []string{"b", "a", "c"}, s.Slice())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("d"))

	out := s.Slice()
	out[0] = "z"
	assert.Equal(t, "b", s.Slice()[0])
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "compile", StageCompiled.String())
	assert.True(t, errors.Is(NewGenerationError("x", "", "y", ErrStageOrder), ErrStageOrder))
}

func TestLinkDestinationNotCollated(t *testing.T) {
	ghost := "https://example.com/@acme/types/entity-type/ghost/v/1"
	docs := fixtureDocs()
	docs[personURL]["links"].(map[string]any)[friendURL] = map[string]any{
		"type":  "array",
		"items": map[string]any{"oneOf": []any{map[string]any{"$ref": ghost}}},
	}

	t.Run("allows any entity with a warning", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := runUntil(t, testConfig(t, WithFetcher(docFetcher(docs)), WithLogger(logger)), StagePostprocessed)
		assert.Contains(t, buf.String(), "no link destination was collated")
		assert.Contains(t, fileContents(t, ctx, "person.ts"),
			"export type PersonFriendOfLinks = { linkEntity: FriendOf; rightEntity: Entity }")
	})

	t.Run("fails with a link error when strict", func(t *testing.T) {
		ctx := runUntil(t, testConfig(t, WithFetcher(docFetcher(docs))), StageCompiled)
		ctx.Config.Features = append(ctx.Config.Features, FeatureStrict)
		err := Postprocess(ctx)
		require.Error(t, err)
		assert.True(t, IsLinkError(err))
		assert.Contains(t, err.Error(), ghost)
		assert.NotEqual(t, StagePostprocessed, ctx.Stage())
	})
}
