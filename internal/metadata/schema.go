package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/medrecords/internal/common"
)

// BuildProjectionJSONSchema returns the JSON-Schema for Projection as a generic map.
func BuildProjectionJSONSchema() map[string]any {
	props := map[string]any{
		"has_text":      map[string]any{"type": "boolean"},
		"text_length":   map[string]any{"type": "integer", "minimum": 0},
		"word_count":    map[string]any{"type": "integer", "minimum": 0},
		"document_type": map[string]any{"type": "string", "minLength": 1},
		"dates": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"raw", "format"},
				"properties": map[string]any{
					"raw":    map[string]any{"type": "string", "minLength": 1},
					"format": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		"keywords": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"uniqueItems": true,
		},
		"ocr_confidence": map[string]any{
			"type":    []string{"number", "null"},
			"minimum": 0.0,
			"maximum": 100.0,
		},
		"page_count": map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
	}
	required := []string{"has_text", "text_length", "word_count", "document_type", "dates", "keywords"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func projectionSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileSchema(BuildProjectionJSONSchema())
	})
	return compiled, compileErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks p against the projection schema.
func Validate(p Projection) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}
	return ValidateJSON(b)
}

// ValidateJSON checks raw JSON against the projection schema.
func ValidateJSON(data []byte) error {
	schema, err := projectionSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("VALIDATION_ERROR", "unmarshal projection", common.ErrValidation)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("projection does not match schema: %v", err), common.ErrValidation)
	}
	return nil
}
