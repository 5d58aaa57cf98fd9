package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/typesystem"
)

// friends builds alice -> bob -> carol, linked left to right.
func friends(t *testing.T) (*Store, map[string]EntityID) {
	t.Helper()
	s := NewStore()
	ids := make(map[string]EntityID)
	for _, name := range []string{"alice", "bob", "carol"} {
		e, err := s.CreateEntity(CreateEntityParams{
			EntityTypeID: personURL,
			Properties:   map[string]any{string(nameURL.BaseURL()): name},
		})
		require.NoError(t, err)
		ids[name] = e.Metadata.RecordID.EntityID
	}
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "carol"}} {
		e, err := s.CreateEntity(CreateEntityParams{
			EntityTypeID: friendOfURL,
			LinkData:     &LinkData{LeftEntityID: ids[pair[0]], RightEntityID: ids[pair[1]]},
		})
		require.NoError(t, err)
		ids[pair[0]+"-"+pair[1]] = e.Metadata.RecordID.EntityID
	}
	return s, ids
}

func entityIDs(sg *Subgraph) []EntityID {
	var out []EntityID
	for base, revs := range sg.Vertices {
		for _, v := range revs {
			if v.Kind == KindEntity {
				out = append(out, EntityID(base))
			}
		}
	}
	return out
}

func TestStoreCreateEntity(t *testing.T) {
	s := NewStore()
	props := map[string]any{"a": 1}
	e, err := s.CreateEntity(CreateEntityParams{EntityTypeID: personURL, Properties: props})
	require.NoError(t, err)
	_, err = uuid.Parse(string(e.Metadata.RecordID.EntityID))
	assert.NoError(t, err)
	_, err = uuid.Parse(e.Metadata.RecordID.EditionID)
	assert.NoError(t, err)
	assert.False(t, e.IsLink())

	props["a"] = 2
	got, err := s.Entity(e.Metadata.RecordID.EntityID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Properties["a"])
	assert.Equal(t, 1, s.Len())

	t.Run("rejects an invalid type URL", func(t *testing.T) {
		_, err := s.CreateEntity(CreateEntityParams{EntityTypeID: "https://example.com/person"})
		require.Error(t, err)
		assert.True(t, typegen.IsURLError(err))
	})

	t.Run("rejects a link to a missing entity", func(t *testing.T) {
		_, err := s.CreateEntity(CreateEntityParams{
			EntityTypeID: friendOfURL,
			LinkData:     &LinkData{LeftEntityID: e.Metadata.RecordID.EntityID, RightEntityID: "ghost"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEntityNotFound))
		assert.Equal(t, 1, s.Len())
	})
}

func TestStoreUpdateAndDelete(t *testing.T) {
	s, ids := friends(t)

	before, err := s.Entity(ids["alice"])
	require.NoError(t, err)
	after, err := s.UpdateEntity(ids["alice"], map[string]any{"x": true})
	require.NoError(t, err)
	assert.NotEqual(t, before.Metadata.RecordID.EditionID, after.Metadata.RecordID.EditionID)
	assert.Equal(t, map[string]any{"x": true}, after.Properties)

	sg, err := s.Traverse(ids["alice"], DefaultDepths())
	require.NoError(t, err)
	got, ok := EntityRevision(sg, ids["alice"])
	require.True(t, ok)
	assert.Equal(t, after.Metadata.RecordID.EditionID, got.Metadata.RecordID.EditionID)

	_, err = s.UpdateEntity("ghost", nil)
	assert.True(t, errors.Is(err, ErrEntityNotFound))

	require.NoError(t, s.DeleteEntity(ids["bob"]))
	assert.Equal(t, 2, s.Len(), "both links touching bob are removed")
	_, err = s.Entity(ids["alice-bob"])
	assert.True(t, errors.Is(err, ErrEntityNotFound))
	assert.True(t, errors.Is(s.DeleteEntity(ids["bob"]), ErrEntityNotFound))
}

func TestStoreEditionsAreOrdered(t *testing.T) {
	s := NewStore()
	e, err := s.CreateEntity(CreateEntityParams{EntityTypeID: personURL})
	require.NoError(t, err)
	id := e.Metadata.RecordID.EntityID

	for range 50 {
		prev := e
		e, err = s.UpdateEntity(id, map[string]any{"n": 1})
		require.NoError(t, err)
		v, err := uuid.Parse(e.Metadata.RecordID.EditionID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), v.Version())
		assert.Less(t, prev.Metadata.RecordID.EditionID, e.Metadata.RecordID.EditionID)

		sg := BuildSubgraphFromEntities([]Entity{prev, e})
		latest, ok := EntityRevision(sg, id)
		require.True(t, ok)
		require.Equal(t, e.Metadata.RecordID.EditionID, latest.Metadata.RecordID.EditionID)
	}
}

func TestStoreTraverse(t *testing.T) {
	s, ids := friends(t)

	tests := []struct {
		name   string
		root   string
		depths func() GraphResolveDepths
		want   []string
	}{
		{"zero", "alice", func() GraphResolveDepths { return GraphResolveDepths{} }, []string{"alice"}},
		{"default", "alice", DefaultDepths, []string{"alice", "alice-bob", "bob"}},
		{"default from the middle", "bob", DefaultDepths, []string{"bob", "bob-carol", "carol"}},
		{"incoming", "bob", func() GraphResolveDepths {
			return GraphResolveDepths{
				HasRightEntity: EdgeResolveDepths{Incoming: 1},
				HasLeftEntity:  EdgeResolveDepths{Outgoing: 1},
			}
		}, []string{"bob", "alice-bob", "alice"}},
		{"two hops", "alice", func() GraphResolveDepths {
			return GraphResolveDepths{
				HasLeftEntity:  EdgeResolveDepths{Incoming: 2},
				HasRightEntity: EdgeResolveDepths{Outgoing: 2},
			}
		}, []string{"alice", "alice-bob", "bob", "bob-carol", "carol"}},
		{"full", "carol", FullDepths, []string{"alice", "alice-bob", "bob", "bob-carol", "carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sg, err := s.Traverse(ids[tt.root], tt.depths())
			require.NoError(t, err)
			var want []EntityID
			for _, n := range tt.want {
				want = append(want, ids[n])
			}
			assert.ElementsMatch(t, want, entityIDs(sg))
			require.Len(t, sg.Roots, 1)
			assert.Equal(t, string(ids[tt.root]), sg.Roots[0].BaseID)
			assert.Equal(t, tt.depths(), sg.Depths)
		})
	}

	t.Run("links reach their targets", func(t *testing.T) {
		sg, err := s.Traverse(ids["alice"], DefaultDepths())
		require.NoError(t, err)
		pairs := OutgoingLinkAndTargetEntities(sg, ids["alice"])
		require.Len(t, pairs, 1)
		assert.Equal(t, ids["alice-bob"], pairs[0].Link.Metadata.RecordID.EntityID)
		assert.Equal(t, ids["bob"], pairs[0].Right.Metadata.RecordID.EntityID)
		assert.Empty(t, OutgoingLinks(sg, ids["bob"]), "bob-carol was not reached")
	})

	t.Run("terminates on cycles", func(t *testing.T) {
		_, err := s.CreateEntity(CreateEntityParams{
			EntityTypeID: friendOfURL,
			LinkData:     &LinkData{LeftEntityID: ids["carol"], RightEntityID: ids["alice"]},
		})
		require.NoError(t, err)
		sg, err := s.Traverse(ids["alice"], FullDepths())
		require.NoError(t, err)
		assert.Len(t, entityIDs(sg), 6)
	})

	t.Run("fails for an unknown root", func(t *testing.T) {
		_, err := s.Traverse("ghost", DefaultDepths())
		assert.True(t, errors.Is(err, ErrEntityNotFound))
	})
}

func TestStoreTraverseOntology(t *testing.T) {
	s, ids := friends(t)
	text, name, person, friendOf := ontology()
	s.AddTypes(text, name, person, friendOf)

	types := func(sg *Subgraph) []typesystem.VersionedURL {
		var out []typesystem.VersionedURL
		for _, revs := range sg.Vertices {
			for _, v := range revs {
				if v.Kind != KindEntity {
					out = append(out, v.Type.ID)
				}
			}
		}
		return out
	}

	tests := []struct {
		name   string
		depths GraphResolveDepths
		want   []typesystem.VersionedURL
	}{
		{"none", GraphResolveDepths{}, nil},
		{"type only", GraphResolveDepths{IsOfType: OutgoingEdgeResolveDepth{Outgoing: 1}}, []typesystem.VersionedURL{personURL}},
		{"properties", GraphResolveDepths{
			IsOfType:               OutgoingEdgeResolveDepth{Outgoing: 1},
			ConstrainsPropertiesOn: OutgoingEdgeResolveDepth{Outgoing: 1},
		}, []typesystem.VersionedURL{personURL, nameURL}},
		{"values", GraphResolveDepths{
			IsOfType:               OutgoingEdgeResolveDepth{Outgoing: 1},
			ConstrainsPropertiesOn: OutgoingEdgeResolveDepth{Outgoing: 1},
			ConstrainsValuesOn:     OutgoingEdgeResolveDepth{Outgoing: 1},
		}, []typesystem.VersionedURL{personURL, nameURL, textURL}},
		{"links", GraphResolveDepths{
			IsOfType:          OutgoingEdgeResolveDepth{Outgoing: 1},
			ConstrainsLinksOn: OutgoingEdgeResolveDepth{Outgoing: 1},
		}, []typesystem.VersionedURL{personURL, friendOfURL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sg, err := s.Traverse(ids["alice"], tt.depths)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, types(sg))
		})
	}

	t.Run("records the type edge", func(t *testing.T) {
		sg, err := s.Traverse(ids["alice"], GraphResolveDepths{IsOfType: OutgoingEdgeResolveDepth{Outgoing: 1}})
		require.NoError(t, err)
		assert.Equal(t, []OutwardEdge{{Kind: IsOfType, RightEndpoint: TypeVertexID(personURL)}}, sg.Edges.From(sg.Roots[0]))
	})
}

func ExampleStore_Traverse() {
	s := NewStore()
	alice, _ := s.CreateEntity(CreateEntityParams{EntityTypeID: personURL})
	bob, _ := s.CreateEntity(CreateEntityParams{EntityTypeID: personURL})
	_, _ = s.CreateEntity(CreateEntityParams{
		EntityTypeID: friendOfURL,
		LinkData:     &LinkData{LeftEntityID: alice.Metadata.RecordID.EntityID, RightEntityID: bob.Metadata.RecordID.EntityID},
	})

	sg, _ := s.Traverse(alice.Metadata.RecordID.EntityID, DefaultDepths())
	for _, pair := range OutgoingLinkAndTargetEntities(sg, alice.Metadata.RecordID.EntityID) {
		fmt.Println(pair.Right.Metadata.RecordID.EntityID == bob.Metadata.RecordID.EntityID)
	}
	// Output: true
}
