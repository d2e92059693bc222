// Package validation checks request payloads against JSON schemas
// before they reach the engine.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// genreMapSchema is the public-recommendation body: a flat object of at
// most 20 genre names mapped to numeric interest values.
const genreMapSchema = `{
	"type": "object",
	"minProperties": 1,
	"maxProperties": 20,
	"additionalProperties": {"type": "number"}
}`

type ValidationResult struct {
	Valid  bool
	Errors []string
}

type SchemaValidator struct {
	genreMap *gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(genreMapSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile genre map schema: %w", err)
	}
	return &SchemaValidator{genreMap: schema}, nil
}

// ValidateGenreMap validates a raw public-recommendation body.
func (sv *SchemaValidator) ValidateGenreMap(body []byte) *ValidationResult {
	result, err := sv.genreMap.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return &ValidationResult{Valid: false, Errors: errs}
}
