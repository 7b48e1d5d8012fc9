package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Accumulation ---

func TestValidationResult_Empty(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.Empty(t, r.All())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/jobs/build", ErrCodeValidation, "missing property 'runs-on'")
	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "/jobs/build", r.Errors[0].Path)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_WarningsStayValid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/on/schedule/0/cron", ErrCodeValidation, "invalid cron expression")
	assert.True(t, r.Valid(), "warnings alone should not make result invalid")
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", ErrCodeValidation, "err1")

	r2 := &ValidationResult{}
	r2.AddError("/jobs/a", ErrCodeCycleDetected, "err2")
	r2.AddWarning("/jobs/b", ErrCodeValidation, "warn2")

	r1.Merge(r2)
	r1.Merge(nil)
	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 1)
}

func TestValidationResult_All(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/on/schedule/0/cron", ErrCodeValidation, "w1")
	r.AddError("/", ErrCodeValidation, "e1")

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].Message)
	assert.Equal(t, "w1", all[1].Message)

	var nilResult *ValidationResult
	assert.Nil(t, nilResult.All())
}

// --- Location ---

func TestValidationResult_Locate(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/jobs/build", ErrCodeValidation, "e")
	r.AddWarning("/on", ErrCodeValidation, "w")
	r.Errors = append(r.Errors, ValidationIssue{Path: "/x", Line: 42, Severity: SeverityError})

	lines := map[string]int{"/jobs/build": 7, "/on": 1, "/x": 99}
	r.Locate(func(p string) int { return lines[p] })

	assert.Equal(t, 7, r.Errors[0].Line)
	assert.Equal(t, 42, r.Errors[1].Line, "known lines are kept")
	assert.Equal(t, 1, r.Warnings[0].Line)

	var nilResult *ValidationResult
	nilResult.Locate(func(string) int { return 1 })
	r.Locate(nil)
}

func TestValidationIssue_String(t *testing.T) {
	i := ValidationIssue{Path: "/jobs", Line: 3, Message: "bad", Severity: SeverityError}
	assert.Equal(t, "error: line 3 /jobs: bad", i.String())

	i.Line = 0
	assert.Equal(t, "error: /jobs: bad", i.String())
}

// --- ToError ---

func TestValidationResult_ToError_Valid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/", ErrCodeValidation, "just a warning")
	assert.Nil(t, r.ToError("ci.yml"))
}

func TestValidationResult_ToError_SingleError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/jobs/build", ErrCodeValidation, "missing property 'runs-on'")

	err := r.ToError("/repo/.github/workflows/ci.yml")
	require.Error(t, err)

	var sErr *Error
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, ErrCodeValidation, sErr.Code)
	assert.Equal(t, "/repo/.github/workflows/ci.yml", sErr.Path)
	assert.Equal(t, "error: /jobs/build: missing property 'runs-on'", sErr.Message)
}

func TestValidationResult_ToError_MultipleErrors(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err1")
	r.AddError("/", ErrCodeValidation, "err2")
	r.AddWarning("/", ErrCodeValidation, "warn1")

	var sErr *Error
	require.True(t, errors.As(r.ToError("ci.yml"), &sErr))
	assert.Contains(t, sErr.Message, "2 structural errors")
	assert.Len(t, sErr.Details["errors"], 2)
	assert.Len(t, sErr.Details["warnings"], 1)
}
