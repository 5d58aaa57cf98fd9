package graph

import (
	"fmt"
	"sort"

	"github.com/syssam/typegen/typesystem"
)

// Data is the flat element set a subgraph is built from.
type Data struct {
	Entities      []Entity
	DataTypes     []*typesystem.Type
	PropertyTypes []*typesystem.Type
	EntityTypes   []*typesystem.Type
}

// BuildSubgraphFromEntities returns a subgraph rooted at every given entity,
// containing exactly those entities and resolved to MaxDepth.
//
// It panics if an entity has no entity ID.
func BuildSubgraphFromEntities(entities []Entity) *Subgraph {
	roots := make([]VertexID, len(entities))
	for i := range entities {
		if entities[i].Metadata.RecordID.EntityID == "" {
			panic(fmt.Sprintf("graph: entity at index %d has no entity ID", i))
		}
		roots[i] = EntityVertexID(&entities[i])
	}
	s := New(roots, FullDepths())
	s.AddEntitiesByMutation(entities...)
	return s
}

// Build returns a subgraph holding every element of data. Edges implied by
// the elements are inferred between vertices that are both present. Every
// root must name a vertex of data.
func Build(data Data, roots []VertexID, depths GraphResolveDepths) (*Subgraph, error) {
	s := New(roots, depths)
	s.addTypes(data.DataTypes)
	s.addTypes(data.PropertyTypes)
	s.addTypes(data.EntityTypes)
	s.addEntities(data.Entities)
	var missing []VertexID
	for _, r := range roots {
		if _, ok := s.Vertices.Get(r); !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingRoot, missing)
	}
	s.inferEdges()
	return s, nil
}

// AddDataTypesByMutation adds data types to s and infers the edges they imply.
func (s *Subgraph) AddDataTypesByMutation(types ...*typesystem.Type) {
	s.addTypes(types)
	s.inferEdges()
}

// AddPropertyTypesByMutation adds property types to s and infers the edges
// they imply.
func (s *Subgraph) AddPropertyTypesByMutation(types ...*typesystem.Type) {
	s.addTypes(types)
	s.inferEdges()
}

// AddEntityTypesByMutation adds entity types to s and infers the edges they
// imply.
func (s *Subgraph) AddEntityTypesByMutation(types ...*typesystem.Type) {
	s.addTypes(types)
	s.inferEdges()
}

// AddEntitiesByMutation adds entities to s and infers the edges they imply.
func (s *Subgraph) AddEntitiesByMutation(entities ...Entity) {
	s.addEntities(entities)
	s.inferEdges()
}

func (s *Subgraph) addTypes(types []*typesystem.Type) {
	for _, t := range types {
		s.Vertices.put(TypeVertexID(t.ID), TypeVertex(t))
	}
}

func (s *Subgraph) addEntities(entities []Entity) {
	for i := range entities {
		e := entities[i]
		s.Vertices.put(EntityVertexID(&e), EntityVertex(&e))
	}
}

// inferEdges walks every vertex and records the edges its element implies,
// with their reversed counterparts. Existing edges are kept.
func (s *Subgraph) inferEdges() {
	bases := make([]string, 0, len(s.Vertices))
	for b := range s.Vertices {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	for _, base := range bases {
		for _, rev := range s.Vertices.Revisions(base) {
			id := VertexID{BaseID: base, RevisionID: rev}
			v := s.Vertices[base][rev]
			if v.Kind == KindEntity {
				s.inferEntityEdges(id, v.Entity)
				continue
			}
			for _, ref := range typesystem.References(v.Type) {
				s.link(id, EdgeKind(ref.Kind), TypeVertexID(ref.URL))
			}
		}
	}
}

func (s *Subgraph) inferEntityEdges(id VertexID, e *Entity) {
	s.link(id, IsOfType, TypeVertexID(e.Metadata.EntityTypeID))
	if e.LinkData == nil {
		return
	}
	if left, ok := s.Vertices.Latest(string(e.LinkData.LeftEntityID)); ok {
		s.link(id, HasLeftEntity, left)
	}
	if right, ok := s.Vertices.Latest(string(e.LinkData.RightEntityID)); ok {
		s.link(id, HasRightEntity, right)
	}
}

// link records a forward edge and its reversal if both endpoints are present.
func (s *Subgraph) link(from VertexID, kind EdgeKind, to VertexID) {
	if _, ok := s.Vertices.Get(to); !ok {
		return
	}
	s.Edges.add(from, OutwardEdge{Kind: kind, RightEndpoint: to})
	s.Edges.add(to, OutwardEdge{Kind: kind, Reversed: true, RightEndpoint: from})
}
