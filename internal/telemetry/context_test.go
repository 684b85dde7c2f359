package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/petasbytes/game-agent/internal/telemetry"
)

func TestTurn_RoundTrip(t *testing.T) {
	want := telemetry.Turn{ID: "turn-123", Session: "s1", Index: 4}
	got, ok := telemetry.TurnFromContext(telemetry.WithTurn(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("want %+v,true; got %+v,%v", want, got, ok)
	}
}

func TestTurn_EmptyIDRejectedOnRead(t *testing.T) {
	ctx := telemetry.WithTurn(context.Background(), telemetry.Turn{Index: 2})
	if got, ok := telemetry.TurnFromContext(ctx); ok {
		t.Fatalf("want false; got %+v", got)
	}
}

func TestTurn_MissingValue(t *testing.T) {
	if got, ok := telemetry.TurnFromContext(context.Background()); ok {
		t.Fatalf("want false; got %+v", got)
	}
}

func TestTurn_ParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	child := telemetry.WithTurn(parent, telemetry.NewTurn("", 1))
	cancel()

	select {
	case <-child.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("child context did not observe parent cancellation")
	}
}

func TestTurn_LastWriteWins(t *testing.T) {
	ctx := telemetry.WithTurn(context.Background(), telemetry.Turn{ID: "t1", Index: 1})
	ctx = telemetry.WithTurn(ctx, telemetry.Turn{ID: "t2", Index: 2})

	got, ok := telemetry.TurnFromContext(ctx)
	if !ok || got.ID != "t2" || got.Index != 2 {
		t.Fatalf("want t2/2; got %+v,%v", got, ok)
	}
}

func TestNewTurn_UniqueAndPrefixed(t *testing.T) {
	a, b := telemetry.NewTurn("s", 1), telemetry.NewTurn("s", 1)
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q twice", a.ID)
	}
	if len(a.ID) != len("turn-")+26 || a.ID[:5] != "turn-" {
		t.Fatalf("unexpected id format: %q", a.ID)
	}
	if a.Session != "s" || a.Index != 1 {
		t.Fatalf("unexpected turn: %+v", a)
	}
}

func TestEmitTurn_StampsIdentity(t *testing.T) {
	dir := observeInto(t)
	ctx := telemetry.WithTurn(context.Background(), telemetry.Turn{ID: "turn-x", Session: "s9", Index: 7})

	telemetry.EmitTurn(ctx, "tool_exec", map[string]any{"tool_name": "set_game", "turn": 99})

	events := readEventLines(t, dir)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev["turn_id"] != "turn-x" || ev["session_id"] != "s9" || ev["tool_name"] != "set_game" {
		t.Fatalf("unexpected event: %v", ev)
	}
	// Caller fields win over the context.
	if ev["turn"] != float64(99) {
		t.Fatalf("turn = %v, want 99", ev["turn"])
	}
}

func TestEmitTurn_WithoutTurn(t *testing.T) {
	dir := observeInto(t)
	telemetry.EmitTurn(context.Background(), "summary", map[string]any{"chars": 3})

	events := readEventLines(t, dir)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0]["turn_id"]; ok {
		t.Fatalf("unexpected turn_id: %v", events[0])
	}
}
