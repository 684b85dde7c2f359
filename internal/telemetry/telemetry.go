// Package telemetry appends structured JSONL events describing each turn for
// offline analysis. Emission is best-effort: failures are logged, never
// returned.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventsFile is the JSONL file name inside the telemetry directory.
const EventsFile = "events.jsonl"

var writeMu sync.Mutex

// Emit writes a single JSON line to <dir>/events.jsonl when observation is on.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		slog.Warn("telemetry: marshal", "event", name, "error", err)
		return
	}

	dir := Current().Dir
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("telemetry: mkdir", "dir", dir, "error", err)
		return
	}

	path := filepath.Join(dir, EventsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("telemetry: open", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		slog.Warn("telemetry: write", "path", path, "error", err)
	}
}
