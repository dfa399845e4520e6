package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "fractalcraft://patterns.schema.json"

// Shape checks only; value ranges that depend on other fields stay in Validate.
const patternsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "center": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "x": {"type": "integer"},
        "y": {"type": "integer"},
        "z": {"type": "integer"}
      }
    },
    "patterns": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["width", "height", "max_iter", "scale", "label"],
        "properties": {
          "width": {"type": "integer", "minimum": 1},
          "height": {"type": "integer", "minimum": 1},
          "max_iter": {"type": "integer", "minimum": 1},
          "scale": {"type": "number", "exclusiveMinimum": 0},
          "block": {"type": "string"},
          "label": {"type": "string", "minLength": 1}
        }
      }
    },
    "pacing": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "remove_every": {"type": "integer", "minimum": 0},
        "remove_pause_ms": {"type": "integer", "minimum": 0},
        "draw_every": {"type": "integer", "minimum": 0},
        "draw_pause_ms": {"type": "integer", "minimum": 0},
        "settle_after_remove_ms": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, patternsSchema)
	})
	return schema, schemaErr
}

// validateDocument checks raw YAML against the pattern file schema. The document is
// round-tripped through JSON so the validator sees JSON types only.
func validateDocument(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("empty document")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("document is not JSON-compatible: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
