package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/prescribe/internal/schema"
)

// ErrInvalidBatch marks a batch file that fails the batch JSON Schema.
var ErrInvalidBatch = errors.New("invalid batch file")

// ErrDateFormat marks an examination date that is not a real dd/mm/yyyy date.
var ErrDateFormat = errors.New("invalid date format")

const batchSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "prescriptions": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "expect", "record"],
        "properties": {
          "name":   {"type": "string", "minLength": 1},
          "expect": {"$ref": "#/definitions/expect"},
          "record": {
            "type": "object",
            "additionalProperties": false,
            "required": ["id", "firstName", "lastName", "address", "sphere", "cylinder", "axis", "examinationDate", "optometrist"],
            "properties": {
              "id":              {"type": "integer"},
              "firstName":       {"type": "string"},
              "lastName":        {"type": "string"},
              "address":         {"type": "string"},
              "sphere":          {"type": "number"},
              "cylinder":        {"type": "number"},
              "axis":            {"type": "number"},
              "examinationDate": {"type": "string"},
              "optometrist":     {"type": "string"}
            }
          }
        }
      }
    },
    "remarks": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "steps"],
        "properties": {
          "name":  {"type": "string", "minLength": 1},
          "steps": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "additionalProperties": false,
              "required": ["text", "category", "expect"],
              "properties": {
                "text":     {"type": "string"},
                "category": {"type": "string"},
                "expect":   {"$ref": "#/definitions/expect"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "expect": {"enum": ["accepted", "rejected", "input_error"]}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(batchSchema)

// Parse validates raw against the batch schema and decodes it. Every schema
// error is reported, not just the first.
func Parse(raw []byte) (*schema.Batch, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: JSON parse failed: %w", ErrInvalidBatch, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidBatch, strings.Join(msgs, "; "))
	}

	var b schema.Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: JSON parse failed: %w", ErrInvalidBatch, err)
	}
	if err := validateBatch(&b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}
	return &b, nil
}

// validateBatch covers what the schema cannot: case names must be unique per section.
func validateBatch(b *schema.Batch) error {
	seen := make(map[string]bool, len(b.Prescriptions))
	for i, c := range b.Prescriptions {
		if seen[c.Name] {
			return fmt.Errorf("prescriptions[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
	}
	seen = make(map[string]bool, len(b.Remarks))
	for i, s := range b.Remarks {
		if seen[s.Name] {
			return fmt.Errorf("remarks[%d]: duplicate session name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseDate parses a strict dd/mm/yyyy date: two-digit day and month,
// four-digit year, and a day that exists in that month.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(schema.DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q, want DD/MM/YYYY", ErrDateFormat, s)
	}
	t, err := time.Parse(schema.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q, want DD/MM/YYYY", ErrDateFormat, s)
	}
	return t, nil
}
