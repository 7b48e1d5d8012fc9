package github

import (
	"fmt"

	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/yamldoc"
)

// WorkflowReferences extracts, in document order, the `uses:` references of
// a workflow: one per reusable-workflow job and one per step of other jobs.
func WorkflowReferences(root yamldoc.Value) []reference.Descriptor {
	var out []reference.Descriptor
	for _, job := range root.Get("jobs").Pairs() {
		ctx := "jobs." + job.Key
		if uses := job.Value.Get("uses"); !uses.IsNull() {
			out = append(out, classify(uses, ctx+".uses"))
			continue
		}
		out = append(out, stepReferences(job.Value.Get("steps"), ctx+".steps")...)
	}
	return out
}

// ActionReferences extracts the step references of a composite action.
func ActionReferences(root yamldoc.Value) []reference.Descriptor {
	return stepReferences(root.Path("runs", "steps"), "runs.steps")
}

func stepReferences(steps yamldoc.Value, ctx string) []reference.Descriptor {
	var out []reference.Descriptor
	for i, step := range steps.Items() {
		uses := step.Get("uses")
		if uses.IsNull() {
			continue
		}
		out = append(out, classify(uses, fmt.Sprintf("%s[%d]", ctx, i)))
	}
	return out
}

func classify(uses yamldoc.Value, ctx string) reference.Descriptor {
	raw, ok := uses.Str()
	if !ok {
		return reference.Unknown("", ctx, "uses is not a string")
	}
	return reference.ClassifyGitHub(raw, ctx)
}

// Triggers returns the event names of a workflow's `on:` key in document
// order. `on` may be a single event, a list of events or a mapping.
func Triggers(root yamldoc.Value) []string {
	on := root.Get("on")
	switch on.Kind() {
	case yamldoc.KindScalar:
		s, _ := on.Str()
		return []string{s}
	case yamldoc.KindSequence:
		var out []string
		for _, item := range on.Items() {
			if s, ok := item.Str(); ok {
				out = append(out, s)
			}
		}
		return out
	case yamldoc.KindMapping:
		pairs := on.Pairs()
		out := make([]string, 0, len(pairs))
		for _, p := range pairs {
			out = append(out, p.Key)
		}
		return out
	default:
		return nil
	}
}
