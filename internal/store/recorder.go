package store

import (
	"context"

	"github.com/petasbytes/game-agent/internal/session"
	"github.com/petasbytes/game-agent/memory"
)

// SessionRecorder writes the turns of one session.
type SessionRecorder struct {
	Store     *SQLiteStore
	SessionID string
}

// RecordTurn stores rec and the session identity as of that turn.
func (r SessionRecorder) RecordTurn(ctx context.Context, rec memory.TurnRecord, st session.State) error {
	if err := r.Store.RecordTurn(ctx, r.SessionID, rec); err != nil {
		return err
	}
	return r.Store.UpdateSession(ctx, r.SessionID, st.GameName, st.CurrentGoal)
}
