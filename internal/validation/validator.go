package validation

import "github.com/rendis/cigraph/pkg/schema"

// DocumentValidator checks a parsed CI document and reports structural and
// semantic findings. Findings never block call-graph construction.
type DocumentValidator interface {
	Validate(kind Kind, doc any) *schema.ValidationResult
}

var _ DocumentValidator = (*Validator)(nil)
