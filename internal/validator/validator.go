package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/haptix/pkg/domain"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://haptix.dev/schemas/graph.json"

// graphSchemaJSON is the JSON Schema for GraphDefinition documents.
// Reference checks (unknown nodes, duplicates) happen in domain.BuildGraph.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://haptix.dev/schemas/graph.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": ["array", "null"],
      "items": { "$ref": "#/$defs/edge" }
    },
    "entry_nodes": {
      "type": ["array", "null"],
      "items": { "type": "string", "minLength": 1 }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "trigger"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "trigger": { "$ref": "#/$defs/trigger" },
        "actions": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/action" }
        }
      },
      "additionalProperties": false
    },
    "trigger": {
      "type": "object",
      "required": ["phrase"],
      "properties": {
        "type": { "type": "string", "enum": ["phrase"] },
        "phrase": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    },
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": { "type": "string", "enum": ["stimulus", "wait", "preset"] },
        "mode": { "type": "string" },
        "value": { "type": "integer" },
        "repeats": { "type": "integer", "minimum": 0 },
        "interval": { "type": "number", "minimum": 0 },
        "seconds": { "type": "number", "minimum": 0 },
        "preset": { "type": "string" },
        "loops": { "type": "integer", "minimum": 0 }
      },
      "additionalProperties": false,
      "allOf": [
        {
          "if": { "properties": { "type": { "const": "stimulus" } } },
          "then": { "required": ["mode"] }
        },
        {
          "if": { "properties": { "type": { "const": "preset" } } },
          "then": { "required": ["preset", "mode"] }
        }
      ]
    },
    "edge": {
      "type": "object",
      "required": ["id", "source", "target"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    }
  }
}`

// Validator checks raw graph documents against the graph schema.
// It is safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the graph schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(graphSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal graph schema: %w", err)
	}
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add graph schema resource: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile graph schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustNew is New for package-level initialization; the schema is a constant.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateDocument checks a decoded document (maps, slices and scalars, as
// produced by JSON or YAML decoders). Failures are *domain.GraphValidationError.
func (v *Validator) ValidateDocument(doc any) error {
	normalized, err := toJSONValue(doc)
	if err != nil {
		return &domain.GraphValidationError{Reason: fmt.Sprintf("document is not JSON-compatible: %v", err), Err: err}
	}
	if err := v.schema.Validate(normalized); err != nil {
		return toGraphError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toGraphError flattens a schema failure into a GraphValidationError naming
// the first offending location.
func toGraphError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &domain.GraphValidationError{Reason: err.Error(), Err: err}
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return &domain.GraphValidationError{Reason: verr.Error(), Err: err}
	}

	reason := violations[0].message
	if len(violations) > 1 {
		reason = fmt.Sprintf("%s (and %d more)", reason, len(violations)-1)
	}
	return &domain.GraphValidationError{Ref: violations[0].location, Reason: reason, Err: err}
}

type violation struct {
	location string
	message  string
}

// collectViolations walks a ValidationError tree and collects leaf errors
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []violation{{location: loc, message: verr.Error()}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
