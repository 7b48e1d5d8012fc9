package validation

import (
	"fmt"
	"sort"

	"github.com/rendis/cigraph/pkg/schema"
)

// validateNeeds checks GitHub Actions `needs:` edges: every referenced job
// must exist, and the job graph must be acyclic (Kahn's algorithm).
func validateNeeds(doc map[string]any) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	jobs, _ := doc["jobs"].(map[string]any)
	if len(jobs) == 0 {
		return result
	}

	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// edges[id] = jobs id waits for, reverse[id] = jobs waiting for id.
	edges := make(map[string][]string, len(jobs))
	reverse := make(map[string][]string, len(jobs))

	for _, id := range ids {
		job, _ := jobs[id].(map[string]any)
		seen := make(map[string]bool)
		for i, dep := range needsOf(job) {
			path := fmt.Sprintf("/jobs/%s/needs/%d", pointerEscaper.Replace(id), i)
			if _, ok := jobs[dep]; !ok {
				result.AddWarning(path, schema.ErrCodeValidation,
					fmt.Sprintf("references non-existent job %q", dep))
				continue
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			edges[id] = append(edges[id], dep)
			reverse[dep] = append(reverse[dep], id)
		}
	}

	inDegree := make(map[string]int, len(ids))
	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		inDegree[id] = len(edges[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dependent := range reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if visited != len(ids) {
		var stuck []string
		for _, id := range ids {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		result.AddWarning("/jobs", schema.ErrCodeCycleDetected,
			fmt.Sprintf("jobs %v form a needs cycle", stuck))
	}
	return result
}

func needsOf(job map[string]any) []string {
	switch n := job["needs"].(type) {
	case string:
		return []string{n}
	case []any:
		out := make([]string, 0, len(n))
		for _, v := range n {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
