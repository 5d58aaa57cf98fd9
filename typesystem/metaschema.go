package typesystem

// Structural meta-schemas, one per kind. They check the parts of a document
// the generator reads and leave everything else open.
var metaSchemas = map[Kind]string{
	KindDataType: `{
  "type": "object",
  "required": ["kind", "$id", "title", "type"],
  "properties": {
    "kind": { "const": "dataType" },
    "$id": { "type": "string", "pattern": "^https?://.+/v/[0-9]+$" },
    "title": { "type": "string", "minLength": 1 },
    "type": { "type": "string" }
  }
}`,
	KindPropertyType: `{
  "type": "object",
  "required": ["kind", "$id", "title", "oneOf"],
  "properties": {
    "kind": { "const": "propertyType" },
    "$id": { "type": "string", "pattern": "^https?://.+/v/[0-9]+$" },
    "title": { "type": "string", "minLength": 1 },
    "oneOf": { "type": "array", "minItems": 1, "items": { "type": "object" } }
  }
}`,
	KindEntityType: `{
  "type": "object",
  "required": ["kind", "$id", "title", "type", "properties"],
  "properties": {
    "kind": { "const": "entityType" },
    "$id": { "type": "string", "pattern": "^https?://.+/v/[0-9]+$" },
    "title": { "type": "string", "minLength": 1 },
    "type": { "const": "object" },
    "properties": { "type": "object" },
    "required": { "type": "array", "items": { "type": "string" } },
    "links": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["type", "items"],
        "properties": {
          "type": { "const": "array" },
          "items": {
            "type": "object",
            "properties": {
              "oneOf": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["$ref"],
                  "properties": { "$ref": { "type": "string" } }
                }
              }
            }
          }
        }
      }
    },
    "allOf": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["$ref"],
        "properties": { "$ref": { "type": "string" } }
      }
    }
  }
}`,
}
