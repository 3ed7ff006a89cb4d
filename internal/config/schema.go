package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the JSON Schema for secretctl.yaml. The version value
// is gated separately in Load so the error can name the supported version.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "stores"],
  "additionalProperties": false,
  "properties": {
    "version": {
      "type": "integer",
      "minimum": 0
    },
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "store": {"type": "string", "minLength": 1},
        "namespace": {"type": "string", "minLength": 1}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "listen": {"type": "string", "minLength": 1}
      }
    },
    "stores": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "timeout_ms": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

// validateDefinition validates a parsed configuration document against the
// JSON schema before it is decoded into typed structs.
func validateDefinition(raw map[string]interface{}) error {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}

	return nil
}
