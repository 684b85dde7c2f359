// Package store keeps an append-only audit log of play sessions and their
// turns in SQLite. It is not used to resume a session.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/petasbytes/game-agent/memory"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one play session.
type Session struct {
	ID        string     `json:"id"`
	Game      string     `json:"game,omitempty"`
	Goal      string     `json:"goal,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Turns     int        `json:"turns"`
}

// SQLiteStore persists sessions and turns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; the status API only reads memory snapshots.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		game        TEXT NOT NULL DEFAULT '',
		goal        TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		ended_at    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);

	CREATE TABLE IF NOT EXISTS turns (
		session_id   TEXT NOT NULL REFERENCES sessions(id),
		idx          INTEGER NOT NULL,
		summary      INTEGER NOT NULL DEFAULT 0,
		screenshot   TEXT NOT NULL DEFAULT '',
		text         TEXT NOT NULL DEFAULT '',
		reasoning    TEXT,
		invocations  TEXT,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (session_id, idx, summary)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession starts a new session with a fresh ULID.
func (s *SQLiteStore) CreateSession(ctx context.Context) (Session, error) {
	sess := Session{ID: ulid.Make().String(), StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sess.ID, sess.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// UpdateSession records the identified game and current goal.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id, game, goal string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET game = ?, goal = ? WHERE id = ?`, game, goal, id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireRow(res, id)
}

// EndSession stamps the end time.
func (s *SQLiteStore) EndSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return requireRow(res, id)
}

// RecordTurn appends a turn record. Writing the same record twice replaces it.
func (s *SQLiteStore) RecordTurn(ctx context.Context, sessionID string, rec memory.TurnRecord) error {
	reasoning, err := marshalNullable(rec.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	invocations, err := marshalNullable(rec.Invocations)
	if err != nil {
		return fmt.Errorf("marshal invocations: %w", err)
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO turns (session_id, idx, summary, screenshot, text, reasoning, invocations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rec.Index, boolInt(rec.Summary), rec.Screenshot, rec.Text, reasoning, invocations,
		ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert turn %d: %w", rec.Index, err)
	}
	return nil
}

// ListTurns returns the turns of a session ordered by index; a summary
// record sorts after the turn it closes. limit <= 0 returns all of them,
// otherwise the newest limit records.
func (s *SQLiteStore) ListTurns(ctx context.Context, sessionID string, limit int) ([]memory.TurnRecord, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	query := `SELECT idx, summary, screenshot, text, reasoning, invocations, created_at
		FROM turns WHERE session_id = ? ORDER BY idx DESC, summary DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []memory.TurnRecord
	for rows.Next() {
		var (
			rec                    memory.TurnRecord
			summary                int
			reasoning, invocations sql.NullString
			created                string
		)
		if err := rows.Scan(&rec.Index, &summary, &rec.Screenshot, &rec.Text, &reasoning, &invocations, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.Summary = summary != 0
		if reasoning.Valid {
			if err := json.Unmarshal([]byte(reasoning.String), &rec.Reasoning); err != nil {
				return nil, fmt.Errorf("decode reasoning of turn %d: %w", rec.Index, err)
			}
		}
		if invocations.Valid {
			if err := json.Unmarshal([]byte(invocations.String), &rec.Invocations); err != nil {
				return nil, fmt.Errorf("decode invocations of turn %d: %w", rec.Index, err)
			}
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetSession loads one session with its turn count.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ? GROUP BY s.id`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ListSessions returns sessions newest first. limit <= 0 returns all.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := sessionSelect + ` GROUP BY s.id ORDER BY s.started_at DESC, s.id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

const sessionSelect = `SELECT s.id, s.game, s.goal, s.started_at, s.ended_at,
	COUNT(CASE WHEN t.summary = 0 THEN 1 END)
	FROM sessions s LEFT JOIN turns t ON t.session_id = s.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess    Session
		started string
		ended   sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.Game, &sess.Goal, &started, &ended, &sess.Turns); err != nil {
		return Session{}, err
	}
	sess.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if ended.Valid {
		t, err := time.Parse(time.RFC3339Nano, ended.String)
		if err == nil {
			sess.EndedAt = &t
		}
	}
	return sess, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func marshalNullable[T any](v []T) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
