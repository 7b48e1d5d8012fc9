package validation

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/rendis/cigraph/pkg/schema"
)

// GitHub accepts classic five-field cron expressions only; descriptors such
// as @daily are rejected.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCron reports whether expr is a valid GitHub schedule expression.
func ValidateCron(expr string) error {
	if _, err := scheduleParser.Parse(expr); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid cron expression %q", expr).WithCause(err)
	}
	return nil
}

// validateSchedule checks every on.schedule[].cron entry of a GitHub workflow.
func validateSchedule(doc map[string]any) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	on, _ := doc["on"].(map[string]any)
	entries, _ := on["schedule"].([]any)
	for i, e := range entries {
		path := fmt.Sprintf("/on/schedule/%d/cron", i)
		entry, _ := e.(map[string]any)
		expr, ok := entry["cron"].(string)
		if !ok {
			result.AddWarning(path, schema.ErrCodeValidation, "schedule entry has no cron expression")
			continue
		}
		if err := ValidateCron(expr); err != nil {
			result.AddWarning(path, schema.ErrCodeValidation, err.Error())
		}
	}
	return result
}
