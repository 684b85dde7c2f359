package telemetry

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Turn identifies the orchestrator turn an event belongs to.
type Turn struct {
	ID      string
	Session string
	Index   int
}

type turnKey struct{}

// NewTurn returns a Turn with a fresh, time-sortable ID.
func NewTurn(session string, index int) Turn {
	return Turn{ID: "turn-" + ulid.Make().String(), Session: session, Index: index}
}

// WithTurn returns a child context carrying t.
func WithTurn(ctx context.Context, t Turn) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnKey{}, t)
}

// TurnFromContext returns the Turn stored in ctx. It reports false when none
// is present or the stored turn has no ID.
func TurnFromContext(ctx context.Context) (Turn, bool) {
	if ctx == nil {
		return Turn{}, false
	}
	t, ok := ctx.Value(turnKey{}).(Turn)
	if !ok || t.ID == "" {
		return Turn{}, false
	}
	return t, true
}

// EmitTurn is Emit with the turn identity from ctx merged into fields.
// Keys already present in fields win.
func EmitTurn(ctx context.Context, name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	t, ok := TurnFromContext(ctx)
	if !ok {
		Emit(name, fields)
		return
	}
	m := map[string]any{"turn_id": t.ID, "turn": t.Index}
	if t.Session != "" {
		m["session_id"] = t.Session
	}
	for k, v := range fields {
		m[k] = v
	}
	Emit(name, m)
}
