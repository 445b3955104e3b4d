package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for overlay.yml. Unknown
// top-level keys are allowed so extension sections such as logging pass;
// the known sections reject unknown fields.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		Anonymous:                 true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Overlay Configuration"
	schema.Description = "Schema for overlay.yml properties."
	schema.AdditionalProperties = nil

	return json.MarshalIndent(schema, "", "  ")
}
