package schema

import "fmt"

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one finding about a parsed CI document.
type ValidationIssue struct {
	// Path is a JSON pointer into the document, e.g. "/jobs/build/steps/0".
	Path string `json:"path"`
	// Line is the 1-based source line Path resolves to, 0 when unknown.
	Line     int                `json:"line,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s: line %d %s: %s", i.Severity, i.Line, i.Path, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// ValidationResult collects the findings of one validation run. Errors are
// structural violations; warnings are semantic findings that do not make
// the document unusable.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// Merge appends other's issues to r.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Locate fills in Line for every issue whose line is still unknown.
func (r *ValidationResult) Locate(line func(path string) int) {
	if r == nil || line == nil {
		return
	}
	for _, issues := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for i := range issues {
			if issues[i].Line == 0 {
				issues[i].Line = line(issues[i].Path)
			}
		}
	}
}

// All returns errors followed by warnings, each in insertion order.
func (r *ValidationResult) All() []ValidationIssue {
	if r == nil {
		return nil
	}
	out := make([]ValidationIssue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// ToError reports the errors of an invalid result as one VALIDATION_ERROR
// for document, or nil when the result is valid.
func (r *ValidationResult) ToError(document string) error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].String()
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("document has %d structural errors", len(r.Errors))
	}
	return NewError(ErrCodeValidation, msg).
		WithPath(document).
		WithDetails(map[string]any{
			"errors":   r.Errors,
			"warnings": r.Warnings,
		})
}
