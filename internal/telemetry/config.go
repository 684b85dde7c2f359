package telemetry

import (
	"os"
	"sync"
)

// DefaultDir is where events.jsonl is written when no directory is configured.
const DefaultDir = ".player"

// Options controls JSONL emission.
type Options struct {
	// Observe enables events.jsonl.
	Observe bool
	// Dir holds events.jsonl; empty means DefaultDir.
	Dir string
}

var (
	mu      sync.RWMutex
	current = Options{Dir: DefaultDir}
)

func init() {
	// Read once at process start; Configure overrides it.
	current.Observe = os.Getenv("PLAYER_OBSERVE_JSON") == "1"
}

// Configure replaces the emission options.
func Configure(o Options) {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	mu.Lock()
	current = o
	mu.Unlock()
}

// Current returns the active options.
func Current() Options {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// ObserveEnabled reports whether JSONL emission is on.
func ObserveEnabled() bool {
	// Allow tests to enable mid-run via env override.
	if os.Getenv("PLAYER_OBSERVE_JSON") == "1" {
		return true
	}
	return Current().Observe
}
