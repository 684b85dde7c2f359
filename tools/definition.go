package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Result is the outcome of a successful tool call.
type Result struct {
	Text string
	// Warning flags a call that succeeded without effect.
	Warning string
}

// String is the tool_result content shown to the model.
func (r Result) String() string {
	if r.Warning == "" {
		return r.Text
	}
	if r.Text == "" {
		return "warning: " + r.Warning
	}
	return r.Text + " (warning: " + r.Warning + ")"
}

// HandlerFunc runs a tool against raw JSON input.
type HandlerFunc func(ctx context.Context, input json.RawMessage) (Result, error)

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    HandlerFunc
}

// GenerateSchema reflects T into an inline object schema.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// validator is implemented by every tool input.
type validator interface {
	Validate() error
}

// bind adapts a typed handler: it decodes input strictly, validates it and
// only then calls fn.
func bind[T validator](fn func(context.Context, T) (Result, error)) HandlerFunc {
	return func(ctx context.Context, input json.RawMessage) (Result, error) {
		var in T
		raw := bytes.TrimSpace(input)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			raw = []byte("{}")
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return Result{}, invalidParams("malformed input: %v", err)
		}
		if err := in.Validate(); err != nil {
			return Result{}, err
		}
		return fn(ctx, in)
	}
}
