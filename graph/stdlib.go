package graph

import "sort"

// LinkAndTarget pairs an outgoing link entity with the entity it points at.
type LinkAndTarget struct {
	Link  *Entity
	Right *Entity
}

// Roots returns the vertices of the subgraph roots. Roots without a vertex
// are skipped.
func Roots(s *Subgraph) []Vertex {
	out := make([]Vertex, 0, len(s.Roots))
	for _, r := range s.Roots {
		if v, ok := s.Vertices.Get(r); ok {
			out = append(out, v)
		}
	}
	return out
}

// IsEntityRooted reports whether every root of s is an entity.
func IsEntityRooted(s *Subgraph) bool { return rootedIn(s, KindEntity) }

// IsDataTypeRooted reports whether every root of s is a data type.
func IsDataTypeRooted(s *Subgraph) bool { return rootedIn(s, KindDataType) }

// IsPropertyTypeRooted reports whether every root of s is a property type.
func IsPropertyTypeRooted(s *Subgraph) bool { return rootedIn(s, KindPropertyType) }

// IsEntityTypeRooted reports whether every root of s is an entity type.
func IsEntityTypeRooted(s *Subgraph) bool { return rootedIn(s, KindEntityType) }

// rootedIn reports whether all roots of s are vertices of kind. A root with
// no vertex fails the check.
func rootedIn(s *Subgraph, kind VertexKind) bool {
	for _, r := range s.Roots {
		v, ok := s.Vertices.Get(r)
		if !ok || v.Kind != kind {
			return false
		}
	}
	return true
}

// Entities returns the entities of s ordered by entity ID. With latestOnly
// set, only the latest revision of each entity is returned; otherwise every
// revision is, oldest first.
func Entities(s *Subgraph, latestOnly bool) []*Entity {
	bases := make([]string, 0, len(s.Vertices))
	for b := range s.Vertices {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	var out []*Entity
	for _, base := range bases {
		if latestOnly {
			if e, ok := EntityRevision(s, EntityID(base)); ok {
				out = append(out, e)
			}
			continue
		}
		out = append(out, EntityRevisions(s, EntityID(base))...)
	}
	return out
}

// EntityRevisions returns every revision of an entity in s, oldest first.
func EntityRevisions(s *Subgraph, id EntityID) []*Entity {
	var out []*Entity
	for _, rev := range s.Vertices.Revisions(string(id)) {
		if v, _ := s.Vertices.Get(VertexID{BaseID: string(id), RevisionID: rev}); v.Kind == KindEntity {
			out = append(out, v.Entity)
		}
	}
	return out
}

// EntityRevision returns the latest revision of an entity in s.
func EntityRevision(s *Subgraph, id EntityID) (*Entity, bool) {
	vid, ok := s.Vertices.Latest(string(id))
	if !ok {
		return nil, false
	}
	v, _ := s.Vertices.Get(vid)
	if v.Kind != KindEntity {
		return nil, false
	}
	return v.Entity, true
}

// OutgoingLinks returns the link entities whose left entity is id.
func OutgoingLinks(s *Subgraph, id EntityID) []*Entity {
	return linksOf(s, id, HasLeftEntity)
}

// IncomingLinks returns the link entities whose right entity is id.
func IncomingLinks(s *Subgraph, id EntityID) []*Entity {
	return linksOf(s, id, HasRightEntity)
}

// LeftEntity returns the left entity of a link entity, if present in s.
func LeftEntity(s *Subgraph, link EntityID) (*Entity, bool) {
	return endpointOf(s, link, HasLeftEntity)
}

// RightEntity returns the right entity of a link entity, if present in s.
func RightEntity(s *Subgraph, link EntityID) (*Entity, bool) {
	return endpointOf(s, link, HasRightEntity)
}

// OutgoingLinkAndTargetEntities returns every outgoing link of id with its
// right entity. Links whose target is not in s are omitted.
func OutgoingLinkAndTargetEntities(s *Subgraph, id EntityID) []LinkAndTarget {
	var out []LinkAndTarget
	for _, link := range OutgoingLinks(s, id) {
		right, ok := RightEntity(s, link.Metadata.RecordID.EntityID)
		if !ok {
			continue
		}
		out = append(out, LinkAndTarget{Link: link, Right: right})
	}
	return out
}

// linksOf follows the reversed edges of kind stored on any revision of id.
func linksOf(s *Subgraph, id EntityID, kind EdgeKind) []*Entity {
	var (
		out  []*Entity
		seen = make(map[EntityRecordID]bool)
	)
	for _, rev := range s.Vertices.Revisions(string(id)) {
		for _, edge := range s.Edges.From(VertexID{BaseID: string(id), RevisionID: rev}) {
			if edge.Kind != kind || !edge.Reversed {
				continue
			}
			v, ok := s.Vertices.Get(edge.RightEndpoint)
			if !ok || v.Kind != KindEntity || seen[v.Entity.Metadata.RecordID] {
				continue
			}
			seen[v.Entity.Metadata.RecordID] = true
			out = append(out, v.Entity)
		}
	}
	return out
}

func endpointOf(s *Subgraph, link EntityID, kind EdgeKind) (*Entity, bool) {
	vid, ok := s.Vertices.Latest(string(link))
	if !ok {
		return nil, false
	}
	for _, edge := range s.Edges.From(vid) {
		if edge.Kind == kind && !edge.Reversed {
			v, ok := s.Vertices.Get(edge.RightEndpoint)
			if ok && v.Kind == KindEntity {
				return v.Entity, true
			}
		}
	}
	return nil, false
}
