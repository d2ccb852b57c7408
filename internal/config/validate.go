package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"botwright/pkg/schema"
)

// workflowSchemaJSON is the JSON Schema for workflow documents. Embedded as a
// constant to avoid filesystem dependencies. Action objects only pin the
// shared envelope here; per-type field validation happens when the registry
// constructs the concrete action.
const workflowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://botwright.dev/schemas/workflow.json",
  "type": "object",
  "required": ["bot", "actions"],
  "properties": {
    "bot": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "headless": { "type": "boolean" },
        "debug": { "type": "boolean" },
        "correlation_id": { "type": "string" },
        "report": {
          "type": "object",
          "properties": {
            "notify": { "type": "boolean" },
            "upload": { "type": "boolean" },
            "upload_to": { "type": "string" },
            "transfer_to": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "variables": { "type": "object" },
    "actions": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/action" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "retry_count": { "type": "integer", "minimum": 1 },
        "retry_delay": { "type": "integer", "minimum": 0 },
        "wait_lower": { "type": "number", "minimum": 0 },
        "wait_upper": { "type": "number", "minimum": 0 },
        "when": { "type": "string" }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	workflowSchema *jsonschema.Schema
	compileErr     error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(workflowSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal workflow schema: %w", err)
			return
		}
		if err := c.AddResource("https://botwright.dev/schemas/workflow.json", doc); err != nil {
			compileErr = fmt.Errorf("add workflow schema resource: %w", err)
			return
		}
		workflowSchema, compileErr = c.Compile("https://botwright.dev/schemas/workflow.json")
	})
	return workflowSchema, compileErr
}

// ValidateDocument validates a decoded workflow tree against the embedded
// workflow JSON Schema.
func ValidateDocument(doc any) error {
	compiled, err := compiledSchema()
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow schema unavailable").WithCause(err)
	}

	value, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize workflow document").WithCause(err)
	}

	if err := compiled.Validate(value); err != nil {
		return toBotError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number, as the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toBotError converts a jsonschema.ValidationError into a BotError with the
// per-location violations collected into details.
func toBotError(err error) *schema.BotError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation,
		"validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
