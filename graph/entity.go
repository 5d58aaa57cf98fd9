package graph

import (
	"encoding/json"
	"fmt"

	"github.com/syssam/typegen/typesystem"
)

// EntityID identifies an entity across all of its editions.
type EntityID string

// EntityRecordID identifies one edition of an entity.
type EntityRecordID struct {
	EntityID  EntityID `json:"entityId"`
	EditionID string   `json:"editionId"`
}

// EntityMetadata is the metadata shared by every entity.
type EntityMetadata struct {
	RecordID     EntityRecordID          `json:"recordId"`
	EntityTypeID typesystem.VersionedURL `json:"entityTypeId"`
}

// LinkData is present on link entities and names the two entities they join.
type LinkData struct {
	LeftEntityID     EntityID `json:"leftEntityId"`
	RightEntityID    EntityID `json:"rightEntityId"`
	LeftToRightOrder *int     `json:"leftToRightOrder,omitempty"`
	RightToLeftOrder *int     `json:"rightToLeftOrder,omitempty"`
}

// TypedEntity is an entity whose properties are decoded into P.
// Generated Go entity types are instantiations of it.
type TypedEntity[P any] struct {
	Metadata   EntityMetadata `json:"metadata"`
	Properties P              `json:"properties"`
	LinkData   *LinkData      `json:"linkData,omitempty"`
}

// Entity is an entity with untyped properties keyed by property type base URL.
type Entity = TypedEntity[map[string]any]

// IsLink reports whether the entity is a link entity.
func (e *TypedEntity[P]) IsLink() bool { return e.LinkData != nil }

// Erase converts a typed entity into an untyped one by round-tripping its
// properties through JSON.
func Erase[P any](e TypedEntity[P]) (Entity, error) {
	out := Entity{Metadata: e.Metadata, LinkData: e.LinkData}
	data, err := json.Marshal(e.Properties)
	if err != nil {
		return out, fmt.Errorf("graph: encode properties of %s: %w", e.Metadata.RecordID.EntityID, err)
	}
	if err := json.Unmarshal(data, &out.Properties); err != nil {
		return out, fmt.Errorf("graph: decode properties of %s: %w", e.Metadata.RecordID.EntityID, err)
	}
	return out, nil
}

// Narrow converts an untyped entity into a typed one.
func Narrow[P any](e Entity) (TypedEntity[P], error) {
	out := TypedEntity[P]{Metadata: e.Metadata, LinkData: e.LinkData}
	data, err := json.Marshal(e.Properties)
	if err != nil {
		return out, fmt.Errorf("graph: encode properties of %s: %w", e.Metadata.RecordID.EntityID, err)
	}
	if err := json.Unmarshal(data, &out.Properties); err != nil {
		return out, fmt.Errorf("graph: decode properties of %s: %w", e.Metadata.RecordID.EntityID, err)
	}
	return out, nil
}
