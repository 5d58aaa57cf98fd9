package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typegen/typesystem"
)

func TestLinkHelpers(t *testing.T) {
	alice := entity("alice", personURL)
	bob := entity("bob", personURL)
	carol := entity("carol", personURL)
	ab := linkEntity("alice-bob", "alice", "bob")
	ac := linkEntity("alice-carol", "alice", "carol")
	cb := linkEntity("carol-bob", "carol", "bob")
	s := BuildSubgraphFromEntities([]Entity{alice, bob, carol, ab, ac, cb})

	ids := func(es []*Entity) []EntityID {
		var out []EntityID
		for _, e := range es {
			out = append(out, e.Metadata.RecordID.EntityID)
		}
		return out
	}

	assert.ElementsMatch(t, []EntityID{"alice-bob", "alice-carol"}, ids(OutgoingLinks(s, "alice")))
	assert.Empty(t, OutgoingLinks(s, "bob"))
	assert.ElementsMatch(t, []EntityID{"alice-bob", "carol-bob"}, ids(IncomingLinks(s, "bob")))
	assert.Empty(t, IncomingLinks(s, "missing"))

	left, ok := LeftEntity(s, "carol-bob")
	require.True(t, ok)
	assert.Equal(t, EntityID("carol"), left.Metadata.RecordID.EntityID)
	right, ok := RightEntity(s, "carol-bob")
	require.True(t, ok)
	assert.Equal(t, EntityID("bob"), right.Metadata.RecordID.EntityID)

	_, ok = LeftEntity(s, "alice")
	assert.False(t, ok)

	pairs := OutgoingLinkAndTargetEntities(s, "alice")
	require.Len(t, pairs, 2)
	targets := map[EntityID]EntityID{}
	for _, p := range pairs {
		targets[p.Link.Metadata.RecordID.EntityID] = p.Right.Metadata.RecordID.EntityID
	}
	assert.Equal(t, map[EntityID]EntityID{"alice-bob": "bob", "alice-carol": "carol"}, targets)

	t.Run("skips links whose target is missing", func(t *testing.T) {
		s := BuildSubgraphFromEntities([]Entity{alice, linkEntity("alice-ghost", "alice", "ghost")})
		assert.Len(t, OutgoingLinks(s, "alice"), 1)
		assert.Empty(t, OutgoingLinkAndTargetEntities(s, "alice"))
	})
}

func TestRootsAndRevisions(t *testing.T) {
	alice := entity("alice", personURL)
	s := BuildSubgraphFromEntities([]Entity{alice})

	roots := Roots(s)
	require.Len(t, roots, 1)
	assert.Equal(t, alice, *roots[0].Entity)

	s.Roots = append(s.Roots, VertexID{BaseID: "ghost", RevisionID: "1"})
	assert.Len(t, Roots(s), 1)

	e, ok := EntityRevision(s, "alice")
	require.True(t, ok)
	assert.Equal(t, "alice-1", e.Metadata.RecordID.EditionID)

	next := alice
	next.Metadata.RecordID.EditionID = "alice-2"
	s.AddEntitiesByMutation(next)
	e, ok = EntityRevision(s, "alice")
	require.True(t, ok)
	assert.Equal(t, "alice-2", e.Metadata.RecordID.EditionID)

	_, ok = EntityRevision(s, "ghost")
	assert.False(t, ok)

	_, _, person, _ := ontology()
	s.AddEntityTypesByMutation(person)
	_, ok = EntityRevision(s, EntityID(personURL.BaseURL()))
	assert.False(t, ok, "type vertices are not entities")
}

func TestLatestRevisionFollowsInsertion(t *testing.T) {
	edition := func(rev string) Entity {
		e := entity("alice", personURL)
		e.Metadata.RecordID.EditionID = rev
		return e
	}
	s := BuildSubgraphFromEntities([]Entity{edition("ed-9"), edition("ed-10")})

	e, ok := EntityRevision(s, "alice")
	require.True(t, ok)
	assert.Equal(t, "ed-10", e.Metadata.RecordID.EditionID)
	assert.Equal(t, []string{"ed-9", "ed-10"}, s.Vertices.Revisions("alice"))

	t.Run("re-adding a revision keeps its position", func(t *testing.T) {
		s.AddEntitiesByMutation(edition("ed-9"))
		latest, ok := s.Vertices.Latest("alice")
		require.True(t, ok)
		assert.Equal(t, "ed-10", latest.RevisionID)
	})

	t.Run("link edges target the latest revision", func(t *testing.T) {
		bob := entity("bob", personURL)
		link := linkEntity("alice-bob", "alice", "bob")
		s := BuildSubgraphFromEntities([]Entity{edition("ed-9"), edition("ed-10"), bob, link})
		left, ok := LeftEntity(s, "alice-bob")
		require.True(t, ok)
		assert.Equal(t, "ed-10", left.Metadata.RecordID.EditionID)
	})
}

func TestEntities(t *testing.T) {
	alice := entity("alice", personURL)
	next := alice
	next.Metadata.RecordID.EditionID = "alice-2"
	bob := entity("bob", personURL)
	s := BuildSubgraphFromEntities([]Entity{bob, alice, next})
	_, _, person, _ := ontology()
	s.AddEntityTypesByMutation(person)

	editions := func(es []*Entity) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.Metadata.RecordID.EditionID)
		}
		return out
	}

	assert.Equal(t, []string{"alice-1", "alice-2", "bob-1"}, editions(Entities(s, false)))
	assert.Equal(t, []string{"alice-2", "bob-1"}, editions(Entities(s, true)))
	assert.Equal(t, []string{"alice-1", "alice-2"}, editions(EntityRevisions(s, "alice")))
	assert.Empty(t, EntityRevisions(s, "ghost"))
	assert.Empty(t, EntityRevisions(s, EntityID(personURL.BaseURL())), "type vertices are not entities")
}

func TestRootedGuards(t *testing.T) {
	text, name, person, friendOf := ontology()
	alice := entity("alice", personURL)
	data := Data{
		Entities:      []Entity{alice},
		DataTypes:     []*typesystem.Type{text},
		PropertyTypes: []*typesystem.Type{name},
		EntityTypes:   []*typesystem.Type{person, friendOf},
	}

	tests := []struct {
		name  string
		roots []VertexID
		want  [4]bool // entity, data type, property type, entity type
	}{
		{"entity roots", []VertexID{EntityVertexID(&alice)}, [4]bool{true, false, false, false}},
		{"data type roots", []VertexID{TypeVertexID(textURL)}, [4]bool{false, true, false, false}},
		{"property type roots", []VertexID{TypeVertexID(nameURL)}, [4]bool{false, false, true, false}},
		{"entity type roots", []VertexID{TypeVertexID(personURL), TypeVertexID(friendOfURL)}, [4]bool{false, false, false, true}},
		{"mixed roots", []VertexID{EntityVertexID(&alice), TypeVertexID(personURL)}, [4]bool{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(data, tt.roots, DefaultDepths())
			require.NoError(t, err)
			got := [4]bool{IsEntityRooted(s), IsDataTypeRooted(s), IsPropertyTypeRooted(s), IsEntityTypeRooted(s)}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("a root without a vertex fails every guard", func(t *testing.T) {
		s := BuildSubgraphFromEntities([]Entity{alice})
		s.Roots = append(s.Roots, VertexID{BaseID: "ghost", RevisionID: DefaultRevision})
		assert.False(t, IsEntityRooted(s))
		assert.False(t, IsEntityTypeRooted(s))
	})
}
