package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/petasbytes/game-agent/internal/emulator/emulatortest"
	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/memory"
	"github.com/petasbytes/game-agent/tools"
)

func newEnv() (tools.Env, *emulatortest.Fake) {
	fake := &emulatortest.Fake{}
	return tools.Env{
		Memory:   memory.NewStore(),
		Session:  &session.State{},
		Emulator: fake,
	}, fake
}

func newRegistry(t *testing.T) (*tools.Registry, tools.Env, *emulatortest.Fake) {
	t.Helper()
	env, fake := newEnv()
	reg, err := tools.NewGameRegistry(env)
	if err != nil {
		t.Fatalf("NewGameRegistry: %v", err)
	}
	return reg, env, fake
}

func TestRegistry_ToolCount(t *testing.T) {
	reg, _, _ := newRegistry(t)
	wantCount := 7
	if got := len(reg.Definitions()); got != wantCount {
		t.Fatalf("unexpected number of tools: got %d want %d", got, wantCount)
	}
}

func TestRegistry_ToolNames(t *testing.T) {
	reg, _, _ := newRegistry(t)
	want := map[string]struct{}{
		"send_inputs":        {},
		"set_game":           {},
		"set_current_goal":   {},
		"add_to_memory":      {},
		"remove_from_memory": {},
		"update_memory_item": {},
		"search_memory":      {},
	}

	// Unexpected names detected
	for _, name := range reg.Names() {
		if _, ok := want[name]; !ok {
			t.Fatalf("unexpected tool in registry: %q", name)
		}
	}

	// Missing expected names
	got := map[string]struct{}{}
	for _, name := range reg.Names() {
		got[name] = struct{}{}
	}
	for name := range want {
		if _, ok := got[name]; !ok {
			t.Errorf("missing expected tool: %q", name)
		}
	}

	// Fail now if any errors were reported above
	if t.Failed() {
		t.FailNow()
	}
}

func TestRegistry_RejectsBadDefinitions(t *testing.T) {
	ok := func(context.Context, json.RawMessage) (tools.Result, error) { return tools.Result{}, nil }
	schema := tools.GenerateSchema[tools.SetGameInput]()

	cases := map[string][]tools.ToolDefinition{
		"invalid name": {{Name: "has space", InputSchema: schema, Function: ok}},
		"too long":     {{Name: strings.Repeat("x", 65), InputSchema: schema, Function: ok}},
		"duplicate": {
			{Name: "a", InputSchema: schema, Function: ok},
			{Name: "a", InputSchema: schema, Function: ok},
		},
		"nil handler": {{Name: "a", InputSchema: schema}},
		"no schema":   {{Name: "a", Function: ok}},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tools.NewRegistry(defs...); err == nil {
				t.Fatalf("expected registration error")
			}
		})
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg, _, _ := newRegistry(t)
	_, err := reg.Dispatch(context.Background(), "read_file", json.RawMessage(`{}`))
	if !errors.Is(err, &tools.ToolError{Code: tools.CodeUnknownTool}) {
		t.Fatalf("expected ERR_UNKNOWN_TOOL, got %v", err)
	}
}

func TestRegistry_Params(t *testing.T) {
	reg, _, _ := newRegistry(t)
	params := reg.Params()
	if len(params) != 7 {
		t.Fatalf("expected 7 params, got %d", len(params))
	}
	b, err := json.Marshal(params[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		Name        string `json:"name"`
		InputSchema struct {
			Type       string                     `json:"type"`
			Properties map[string]json.RawMessage `json:"properties"`
			Required   []string                   `json:"required"`
		} `json:"input_schema"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "send_inputs" || got.InputSchema.Type != "object" {
		t.Fatalf("unexpected tool param: %s", b)
	}
	if _, ok := got.InputSchema.Properties["inputs"]; !ok || len(got.InputSchema.Required) != 1 || got.InputSchema.Required[0] != "inputs" {
		t.Fatalf("unexpected schema: %s", b)
	}
}

func TestGenerateSchema_OptionalFieldsNotRequired(t *testing.T) {
	s := tools.GenerateSchema[tools.SearchMemoryInput]()
	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Fatalf("required = %v, want [query]", s.Required)
	}
}
