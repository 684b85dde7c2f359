package runner

import (
	"time"

	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/memory"
)

// Snapshot is an immutable view of the loop published at every Idle and on
// stop, for readers on other goroutines.
type Snapshot struct {
	State     string              `json:"state"`
	Session   session.State       `json:"session"`
	Memory    []memory.Item       `json:"memory"`
	History   []memory.TurnRecord `json:"history"`
	LastError string              `json:"last_error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Snapshot returns the latest published view. Safe for concurrent use.
func (o *Orchestrator) Snapshot() *Snapshot { return o.snapshot.Load() }

func (o *Orchestrator) publish(lastErr string) {
	o.snapshot.Store(&Snapshot{
		State:     o.State().String(),
		Session:   *o.state,
		Memory:    o.memory.Items(),
		History:   o.history.Window(),
		LastError: lastErr,
		UpdatedAt: o.now(),
	})
}
