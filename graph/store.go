package graph

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/syssam/typegen/typesystem"
)

// Store is an in-memory datastore of entities and the types they use.
// Subgraphs are read out of it with Traverse.
type Store struct {
	mu       sync.RWMutex
	entities map[EntityID]Entity
	order    []EntityID
	types    map[typesystem.VersionedURL]*typesystem.Type
	newID    func() string
	edition  func() string
}

// NewStore returns an empty Store. Entity IDs are random UUIDs; edition IDs
// are time-ordered UUIDs, so a later edition sorts after an earlier one.
func NewStore() *Store {
	return &Store{
		entities: make(map[EntityID]Entity),
		types:    make(map[typesystem.VersionedURL]*typesystem.Type),
		newID:    uuid.NewString,
		edition:  newEditionID,
	}
}

func newEditionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CreateEntityParams describes a new entity.
type CreateEntityParams struct {
	EntityTypeID typesystem.VersionedURL
	Properties   map[string]any
	LinkData     *LinkData
}

// CreateEntity stores a new entity and returns it. Link entities must join
// entities already in the store.
func (s *Store) CreateEntity(p CreateEntityParams) (Entity, error) {
	if _, err := typesystem.ParseVersionedURL(string(p.EntityTypeID)); err != nil {
		return Entity{}, fmt.Errorf("graph: create entity: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.LinkData != nil {
		for _, id := range []EntityID{p.LinkData.LeftEntityID, p.LinkData.RightEntityID} {
			if _, ok := s.entities[id]; !ok {
				return Entity{}, fmt.Errorf("%w: link endpoint %s", ErrEntityNotFound, id)
			}
		}
	}
	e := Entity{
		Metadata: EntityMetadata{
			RecordID:     EntityRecordID{EntityID: EntityID(s.newID()), EditionID: s.edition()},
			EntityTypeID: p.EntityTypeID,
		},
		Properties: maps.Clone(p.Properties),
	}
	if p.LinkData != nil {
		link := *p.LinkData
		e.LinkData = &link
	}
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	s.entities[e.Metadata.RecordID.EntityID] = e
	s.order = append(s.order, e.Metadata.RecordID.EntityID)
	return e, nil
}

// Entity returns the entity with the given ID.
func (s *Store) Entity(id EntityID) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return e, nil
}

// UpdateEntity replaces the properties of an entity and gives it a new
// edition ID.
func (s *Store) UpdateEntity(id EntityID, properties map[string]any) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	e.Properties = maps.Clone(properties)
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Metadata.RecordID.EditionID = s.edition()
	s.entities[id] = e
	return e, nil
}

// DeleteEntity removes an entity and every link entity attached to it.
func (s *Store) DeleteEntity(id EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	remove := map[EntityID]bool{id: true}
	for _, other := range s.order {
		if l := s.entities[other].LinkData; l != nil && (l.LeftEntityID == id || l.RightEntityID == id) {
			remove[other] = true
		}
	}
	order := s.order[:0]
	for _, other := range s.order {
		if remove[other] {
			delete(s.entities, other)
			continue
		}
		order = append(order, other)
	}
	s.order = order
	return nil
}

// AddTypes registers ontology types so traversals can resolve them.
func (s *Store) AddTypes(types ...*typesystem.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range types {
		s.types[t.ID] = t
	}
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// node is a traversal position: an entity or an ontology type.
type node struct {
	entity EntityID
	typ    typesystem.VersionedURL
}

type step struct {
	to   node
	slot int
}

var refSlots = map[typesystem.RefKind]int{
	typesystem.InheritsFrom:                 slotInheritsFrom,
	typesystem.ConstrainsValuesOn:           slotValues,
	typesystem.ConstrainsPropertiesOn:       slotProperties,
	typesystem.ConstrainsLinksOn:            slotLinks,
	typesystem.ConstrainsLinkDestinationsOn: slotLinkDestinations,
}

// Traverse returns the subgraph rooted at root, holding every entity and type
// reachable within depths. Each hop consumes one unit of the bound of the
// edge kind and direction it follows.
func (s *Store) Traverse(root EntityID, depths GraphResolveDepths) (*Subgraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rootEntity, ok := s.entities[root]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, root)
	}

	leftOf := make(map[EntityID][]EntityID)
	rightOf := make(map[EntityID][]EntityID)
	for _, id := range s.order {
		if l := s.entities[id].LinkData; l != nil {
			leftOf[l.LeftEntityID] = append(leftOf[l.LeftEntityID], id)
			rightOf[l.RightEntityID] = append(rightOf[l.RightEntityID], id)
		}
	}

	type state struct {
		at     node
		bounds depthVector
	}
	var (
		start   = node{entity: root}
		queue   = []state{{at: start, bounds: depths.vector()}}
		reached = map[node][]depthVector{start: {depths.vector()}}
	)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, st := range s.steps(cur.at, leftOf, rightOf) {
			if cur.bounds[st.slot] == 0 {
				continue
			}
			next := cur.bounds
			next[st.slot]--
			if dominated(reached[st.to], next) {
				continue
			}
			reached[st.to] = append(reached[st.to], next)
			queue = append(queue, state{at: st.to, bounds: next})
		}
	}

	var data Data
	for _, id := range s.order {
		if _, ok := reached[node{entity: id}]; ok {
			data.Entities = append(data.Entities, s.entities[id])
		}
	}
	var urls []typesystem.VersionedURL
	for n := range reached {
		if n.typ != "" {
			urls = append(urls, n.typ)
		}
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i] < urls[j] })
	for _, u := range urls {
		t := s.types[u]
		switch t.Kind {
		case typesystem.KindDataType:
			data.DataTypes = append(data.DataTypes, t)
		case typesystem.KindPropertyType:
			data.PropertyTypes = append(data.PropertyTypes, t)
		default:
			data.EntityTypes = append(data.EntityTypes, t)
		}
	}
	return Build(data, []VertexID{EntityVertexID(&rootEntity)}, depths)
}

// steps lists the hops leaving n. Types unknown to the store are not
// reachable.
func (s *Store) steps(n node, leftOf, rightOf map[EntityID][]EntityID) []step {
	var out []step
	if n.typ != "" {
		t := s.types[n.typ]
		for _, ref := range typesystem.References(t) {
			if _, ok := s.types[ref.URL]; ok {
				out = append(out, step{to: node{typ: ref.URL}, slot: refSlots[ref.Kind]})
			}
		}
		return out
	}
	e := s.entities[n.entity]
	for _, id := range leftOf[n.entity] {
		out = append(out, step{to: node{entity: id}, slot: slotLeftIncoming})
	}
	for _, id := range rightOf[n.entity] {
		out = append(out, step{to: node{entity: id}, slot: slotRightIncoming})
	}
	if e.LinkData != nil {
		out = append(out,
			step{to: node{entity: e.LinkData.LeftEntityID}, slot: slotLeftOutgoing},
			step{to: node{entity: e.LinkData.RightEntityID}, slot: slotRightOutgoing},
		)
	}
	if _, ok := s.types[e.Metadata.EntityTypeID]; ok {
		out = append(out, step{to: node{typ: e.Metadata.EntityTypeID}, slot: slotIsOfType})
	}
	return out
}

// dominated reports whether some recorded bound set already allows
// everything next allows.
func dominated(recorded []depthVector, next depthVector) bool {
	for _, r := range recorded {
		if r.covers(next) {
			return true
		}
	}
	return false
}
