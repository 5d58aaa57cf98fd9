package typesystem

// Builtin returns a fresh copy of a well-known type document that never needs
// to be fetched, such as the link entity type.
func Builtin(url VersionedURL) (map[string]any, bool) {
	switch url {
	case LinkEntityTypeURL:
		return map[string]any{
			"kind":        "entityType",
			"$id":         string(LinkEntityTypeURL),
			"title":       "Link",
			"description": "The most generic connection between two entities, defining a relationship from a source to a target.",
			"type":        "object",
			"properties":  map[string]any{},
		}, true
	}
	return nil, false
}
