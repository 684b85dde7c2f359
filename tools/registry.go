package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/anthropics/anthropic-sdk-go"
)

// toolNamePattern is the name format accepted by the Messages API.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Registry is an immutable, validated set of tools.
type Registry struct {
	defs   []ToolDefinition
	byName map[string]int
}

// NewRegistry validates defs and indexes them by name. Names must be unique
// and API-safe and every definition needs a handler and an object schema.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if !toolNamePattern.MatchString(d.Name) {
			return nil, fmt.Errorf("tool %q: invalid name", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("tool %q: registered twice", d.Name)
		}
		if d.Function == nil {
			return nil, fmt.Errorf("tool %q: nil handler", d.Name)
		}
		if d.InputSchema.Properties == nil {
			return nil, fmt.Errorf("tool %q: schema has no properties", d.Name)
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// Dispatch runs the named tool. Failures are *ToolError values.
func (r *Registry) Dispatch(ctx context.Context, name string, input json.RawMessage) (Result, error) {
	i, ok := r.byName[name]
	if !ok {
		return Result{}, toolErr(CodeUnknownTool, "tool %q is not registered", name)
	}
	return r.defs[i].Function(ctx, input)
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Name
	}
	return out
}

// Params renders the tools for a Messages request.
func (r *Registry) Params() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.defs))
	for _, t := range r.defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}
