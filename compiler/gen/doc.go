// Package gen generates source files from versioned ontology types.
//
// # Architecture
//
// Generation runs four stages over one shared Context:
//
//	Initialize   collate every type reachable from the targets (compiler/load)
//	     ↓
//	Preprocess   rewrite titles into identifiers, drop empty allOf, mark link types
//	     ↓
//	Compile      render each type into declarations through a Backend
//	     ↓
//	Postprocess  assign declarations to files, add imports and banners
//	     ↓
//	WriteToFiles format and write every file concurrently
//
// Each stage checks that its predecessor completed and fails with
// ErrStageOrder otherwise.
//
// # Backends
//
// A Backend renders declarations for one language:
//
//   - TypeScript: entity types over @blockprotocol/graph. The renderer hoists
//     titled subschemas, so cross-type references are compiled as placeholder
//     declarations that are removed after compilation.
//   - Go: jennifer statements, entity types as graph.TypedEntity aliases.
//   - GraphQL: gqlparser schema definitions.
//
// # Usage
//
//	cfg, err := gen.NewConfig(
//		gen.WithOutputFolder("./types"),
//		gen.WithTarget("person.ts", gen.Target{SourceTypeID: personURL, BlockEntity: true}),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := gen.Generate(ctx, cfg)
//
// # Error Handling
//
// Errors are typed (TypeError, ConfigError, LinkError, GenerationError,
// ValidationError, WriteError) and match their sentinel with errors.Is:
//
//	if errors.Is(err, gen.ErrWriteFailed) {
//		for _, r := range res.Written {
//			...
//		}
//	}
package gen
