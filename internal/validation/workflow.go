package validation

import (
	"errors"

	"github.com/rendis/cigraph/pkg/schema"
)

// Validator orchestrates the validation pipeline:
// 1. Structural (JSON Schema, every kind)
// 2. Semantic (GitHub workflows only: needs references and cycles, cron schedules)
type Validator struct {
	jsonSchema *JSONSchemaValidator
}

// New creates a Validator with all schemas compiled.
func New() (*Validator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Validator{jsonSchema: jsv}, nil
}

// Validate runs the pipeline for doc. Structural violations are errors and
// skip the semantic stage; semantic findings are warnings. A nil Validator
// returns an empty result.
func (v *Validator) Validate(kind Kind, doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if v == nil {
		return result
	}

	result.Merge(validateStructural(v.jsonSchema, kind, doc))
	if !result.Valid() || kind != KindGitHubWorkflow {
		return result
	}

	m, _ := doc.(map[string]any)
	result.Merge(validateNeeds(m))
	result.Merge(validateSchedule(m))
	return result
}

// validateStructural converts JSONSchemaValidator output into a
// ValidationResult with one error per violation.
func validateStructural(v *JSONSchemaValidator, kind Kind, doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateDocument(kind, doc)
	if err == nil {
		return result
	}

	var sErr *schema.Error
	if !errors.As(err, &sErr) {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	if violations, ok := sErr.Details["violations"].([]violation); ok {
		for _, vio := range violations {
			result.AddError(vio.Pointer, schema.ErrCodeValidation, vio.Message)
		}
		return result
	}
	result.AddError("/", schema.ErrCodeValidation, sErr.Message)
	return result
}
