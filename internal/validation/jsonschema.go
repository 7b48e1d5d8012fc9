package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rendis/cigraph/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// JSONSchemaValidator checks parsed CI documents against the embedded
// per-dialect schemas (JSON Schema Draft 2020-12). Schemas are compiled once
// in the constructor, so the validator is safe for concurrent use.
type JSONSchemaValidator struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewJSONSchemaValidator compiles every embedded schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for _, k := range Kinds {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaSources[k]))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s schema: %w", k, err)
		}
		if err := c.AddResource(schemaURL(k), doc); err != nil {
			return nil, fmt.Errorf("add %s schema resource: %w", k, err)
		}
	}

	schemas := make(map[Kind]*jsonschema.Schema, len(Kinds))
	for _, k := range Kinds {
		s, err := c.Compile(schemaURL(k))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", k, err)
		}
		schemas[k] = s
	}
	return &JSONSchemaValidator{schemas: schemas}, nil
}

// ValidateDocument checks doc, a plain Go value as produced by
// yamldoc.Value.Interface, against the schema for kind.
func (v *JSONSchemaValidator) ValidateDocument(kind Kind, doc any) error {
	s, ok := v.schemas[kind]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeValidation, "no schema for %q", kind)
	}

	inst, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize document").WithCause(err)
	}

	if err := s.Validate(inst); err != nil {
		return toError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toError converts a jsonschema.ValidationError into a *schema.Error whose
// details carry one "pointer: message" entry per leaf violation.
func toError(err error) *schema.Error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	msg := violations[0].String()
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// violation is one leaf of a ValidationError tree.
type violation struct {
	Pointer string
	Message string
}

func (v violation) String() string {
	return v.Pointer + ": " + v.Message
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			segs := make([]string, len(verr.InstanceLocation))
			for i, seg := range verr.InstanceLocation {
				segs[i] = pointerEscaper.Replace(seg)
			}
			loc = "/" + strings.Join(segs, "/")
		}
		return []violation{{Pointer: loc, Message: leafMessage(verr)}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

var (
	printer        = message.NewPrinter(language.English)
	pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")
)

func leafMessage(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return verr.Error()
	}
	return verr.ErrorKind.LocalizedString(printer)
}
