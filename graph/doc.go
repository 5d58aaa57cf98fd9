// Package graph provides the subgraph data model: a bounded-depth extract of a
// graph of typed entities and the ontology types describing them.
//
// # Subgraph Structure
//
// A Subgraph holds its roots, its vertices and the edges between them, and
// records the depths it was resolved to:
//
//	type Subgraph struct {
//	    Roots    []VertexID         // Entry points, always present in Vertices
//	    Vertices Vertices           // base ID -> revision ID -> Vertex
//	    Edges    Edges              // base ID -> revision ID -> []OutwardEdge
//	    Depths   GraphResolveDepths // Hops resolved per edge kind
//	}
//
// Every edge is stored twice: once on its left endpoint and once, reversed,
// on its right endpoint. Link entities carry HAS_LEFT_ENTITY and
// HAS_RIGHT_ENTITY edges; entities point at their type with IS_OF_TYPE; types
// point at each other with the CONSTRAINS_* and INHERITS_FROM edges.
//
// # Building
//
// BuildSubgraphFromEntities roots a subgraph at a flat entity list:
//
//	sg := graph.BuildSubgraphFromEntities([]graph.Entity{person, company})
//
// Build accepts entities and types and fails with ErrMissingRoot when a root is
// absent. The Add*ByMutation methods grow an existing subgraph in place.
//
// # Store
//
// Store is an in-memory datastore. Traverse resolves a subgraph from one
// entity, following each edge kind no further than the given depths:
//
//	store := graph.NewStore()
//	sg, err := store.Traverse(id, graph.DefaultDepths())
//
// # Reading
//
// The package-level helpers Roots, EntityRevision, OutgoingLinks,
// IncomingLinks, LeftEntity, RightEntity and OutgoingLinkAndTargetEntities read
// a subgraph the way generated block code expects.
package graph
