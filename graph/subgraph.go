package graph

import (
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/typegen/typesystem"
)

// DefaultRevision is the revision under which an entity without an edition
// ID is stored.
const DefaultRevision = "1970-01-01T00:00:00.000Z"

// VertexKind discriminates the Vertex union.
type VertexKind string

// Vertex kinds.
const (
	KindDataType     VertexKind = "dataType"
	KindPropertyType VertexKind = "propertyType"
	KindEntityType   VertexKind = "entityType"
	KindEntity       VertexKind = "entity"
)

// VertexID addresses one revision of a vertex. BaseID is an entity ID or an
// ontology base URL; RevisionID is an edition or a type version.
type VertexID struct {
	BaseID     string `json:"baseId"`
	RevisionID string `json:"revisionId"`
}

// EntityVertexID returns the vertex ID of an entity edition.
func EntityVertexID(e *Entity) VertexID {
	rev := e.Metadata.RecordID.EditionID
	if rev == "" {
		rev = DefaultRevision
	}
	return VertexID{BaseID: string(e.Metadata.RecordID.EntityID), RevisionID: rev}
}

// TypeVertexID returns the vertex ID of an ontology type.
func TypeVertexID(id typesystem.VersionedURL) VertexID {
	return VertexID{BaseID: string(id.BaseURL()), RevisionID: strconv.FormatUint(uint64(id.Version()), 10)}
}

// Vertex is either an entity or an ontology type. Exactly one of Entity and
// Type is set, as indicated by Kind.
type Vertex struct {
	Kind   VertexKind       `json:"kind"`
	Entity *Entity          `json:"entity,omitempty"`
	Type   *typesystem.Type `json:"type,omitempty"`

	// seq orders the revisions of one base by insertion.
	seq int
}

// EntityVertex wraps an entity.
func EntityVertex(e *Entity) Vertex { return Vertex{Kind: KindEntity, Entity: e} }

// TypeVertex wraps an ontology type.
func TypeVertex(t *typesystem.Type) Vertex {
	var k VertexKind
	switch t.Kind {
	case typesystem.KindDataType:
		k = KindDataType
	case typesystem.KindPropertyType:
		k = KindPropertyType
	default:
		k = KindEntityType
	}
	return Vertex{Kind: k, Type: t}
}

// Vertices maps a base ID to its revisions.
type Vertices map[string]map[string]Vertex

// Get returns the vertex with the given ID.
func (v Vertices) Get(id VertexID) (Vertex, bool) {
	vertex, ok := v[id.BaseID][id.RevisionID]
	return vertex, ok
}

// Revisions returns the revision IDs stored for base, oldest first. Vertices
// decoded from JSON carry no insertion order and fall back to ID order.
func (v Vertices) Revisions(base string) []string {
	revs := make([]string, 0, len(v[base]))
	for r := range v[base] {
		revs = append(revs, r)
	}
	slices.SortFunc(revs, func(a, b string) int {
		if d := v[base][a].seq - v[base][b].seq; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return revs
}

// Latest returns the revision of base that was added last.
func (v Vertices) Latest(base string) (VertexID, bool) {
	revs := v.Revisions(base)
	if len(revs) == 0 {
		return VertexID{}, false
	}
	return VertexID{BaseID: base, RevisionID: revs[len(revs)-1]}, true
}

// put stores vertex under id. A revision added again keeps its position.
func (v Vertices) put(id VertexID, vertex Vertex) {
	revs := v[id.BaseID]
	if revs == nil {
		revs = make(map[string]Vertex)
		v[id.BaseID] = revs
	}
	if old, ok := revs[id.RevisionID]; ok {
		vertex.seq = old.seq
	} else {
		vertex.seq = len(revs) + 1
	}
	revs[id.RevisionID] = vertex
}

// EdgeKind is the relation an edge expresses.
type EdgeKind string

// Edge kinds leaving entities.
const (
	HasLeftEntity  EdgeKind = "HAS_LEFT_ENTITY"
	HasRightEntity EdgeKind = "HAS_RIGHT_ENTITY"
	IsOfType       EdgeKind = "IS_OF_TYPE"
)

// Ontology edge kinds.
const (
	InheritsFrom                 = EdgeKind(typesystem.InheritsFrom)
	ConstrainsValuesOn           = EdgeKind(typesystem.ConstrainsValuesOn)
	ConstrainsPropertiesOn       = EdgeKind(typesystem.ConstrainsPropertiesOn)
	ConstrainsLinksOn            = EdgeKind(typesystem.ConstrainsLinksOn)
	ConstrainsLinkDestinationsOn = EdgeKind(typesystem.ConstrainsLinkDestinationsOn)
)

// OutwardEdge is an edge stored on its left endpoint. A reversed edge is the
// mirror of a forward edge stored on the forward edge's right endpoint.
type OutwardEdge struct {
	Kind          EdgeKind `json:"kind"`
	Reversed      bool     `json:"reversed"`
	RightEndpoint VertexID `json:"rightEndpoint"`
}

// Edges maps a base ID and revision to the edges leaving that vertex.
type Edges map[string]map[string][]OutwardEdge

// From returns the edges stored on id.
func (e Edges) From(id VertexID) []OutwardEdge {
	return e[id.BaseID][id.RevisionID]
}

// add appends edge to from unless it is already present.
func (e Edges) add(from VertexID, edge OutwardEdge) {
	if e[from.BaseID] == nil {
		e[from.BaseID] = make(map[string][]OutwardEdge)
	}
	for _, existing := range e[from.BaseID][from.RevisionID] {
		if existing == edge {
			return
		}
	}
	e[from.BaseID][from.RevisionID] = append(e[from.BaseID][from.RevisionID], edge)
}

// Subgraph is a bounded-depth extract of a graph of entities and types.
type Subgraph struct {
	Roots    []VertexID         `json:"roots"`
	Vertices Vertices           `json:"vertices"`
	Edges    Edges              `json:"edges"`
	Depths   GraphResolveDepths `json:"depths"`
}

// New returns an empty subgraph with the given roots and depths.
func New(roots []VertexID, depths GraphResolveDepths) *Subgraph {
	return &Subgraph{
		Roots:    roots,
		Vertices: make(Vertices),
		Edges:    make(Edges),
		Depths:   depths,
	}
}
