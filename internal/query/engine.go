// Package query filters call-graph nodes with user-supplied predicates. Three
// expression languages are supported; each sees a node as
//
//	node = {name, type, source_path, caller_path, context, resolved,
//	        error_code, depth, callees, document}
package query

import (
	"context"

	"github.com/rendis/cigraph/pkg/schema"
)

// Engine names accepted by NewEngine.
const (
	EngineCEL  = "cel"
	EngineExpr = "expr"
	EngineJQ   = "jq"
)

// Engine evaluates an expression against a data map.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch name {
	case EngineCEL:
		return NewCELEngine()
	case EngineExpr:
		return NewExprEngine(), nil
	case EngineJQ:
		return NewGoJQEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown query engine %q", name).
			WithDetails(map[string]any{"available": []string{EngineCEL, EngineExpr, EngineJQ}})
	}
}

func compileError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func evalError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeEvaluation, "%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}
