package typesystem

const (
	textURL   = "https://example.com/@acme/types/data-type/text/v/1"
	nameURL   = "https://example.com/@acme/types/property-type/name/v/1"
	addrURL   = "https://example.com/@acme/types/property-type/address/v/1"
	personURL = "https://example.com/@acme/types/entity-type/person/v/1"
	friendURL = "https://example.com/@acme/types/entity-type/friend-of/v/1"
)

func textDoc() map[string]any {
	return map[string]any{
		"kind":  "dataType",
		"$id":   textURL,
		"title": "Text",
		"type":  "string",
	}
}

func addressDoc() map[string]any {
	return map[string]any{
		"kind":  "propertyType",
		"$id":   addrURL,
		"title": "Address",
		"oneOf": []any{
			map[string]any{"$ref": textURL},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"https://example.com/@acme/types/property-type/name/": map[string]any{"$ref": nameURL},
				},
			},
			map[string]any{
				"type":  "array",
				"items": map[string]any{"oneOf": []any{map[string]any{"$ref": textURL}}},
			},
		},
	}
}

func personDoc() map[string]any {
	return map[string]any{
		"kind":  "entityType",
		"$id":   personURL,
		"title": "Person",
		"type":  "object",
		"properties": map[string]any{
			"https://example.com/@acme/types/property-type/name/": map[string]any{"$ref": nameURL},
			"https://example.com/@acme/types/property-type/address/": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": addrURL},
			},
		},
		"links": map[string]any{
			friendURL: map[string]any{
				"type":  "array",
				"items": map[string]any{"oneOf": []any{map[string]any{"$ref": personURL}}},
			},
		},
	}
}

func friendDoc() map[string]any {
	return map[string]any{
		"kind":       "entityType",
		"$id":        friendURL,
		"title":      "Friend Of",
		"type":       "object",
		"properties": map[string]any{},
		"allOf":      []any{map[string]any{"$ref": string(LinkEntityTypeURL)}},
	}
}
