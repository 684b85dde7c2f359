package telemetry

import (
	"context"

	"github.com/petasbytes/game-agent/internal/metrics"
	"github.com/petasbytes/game-agent/memory"
)

// EmitTurnFeatures records local features of a completed turn.
func EmitTurnFeatures(ctx context.Context, rec memory.TurnRecord) {
	if !ObserveEnabled() {
		return
	}
	f := metrics.ForTurn(rec)
	EmitTurn(ctx, "turn_features", map[string]any{
		"turn":             rec.Index,
		"features_version": "2",
		"text":             textFields(f.Text),
		"reasoning":        textFields(f.Reasoning),
		"tool_calls":       f.ToolCalls,
		"tool_errors":      f.ToolErrors,
		"input_ticks":      f.InputTicks,
	})
}

func textFields(f metrics.Features) map[string]any {
	return map[string]any{
		"bytes": f.Bytes,
		"runes": f.Runes,
		"words": f.Words,
		"lines": f.Lines,
	}
}
