// Package sessionstore persists WorkflowSession/WorkflowRun state durably
// (spec §4.6), grounded on internal/store/sqlite.go's WAL-mode SQLite
// style and internal/store/sync.go's last-sync bookkeeping.
package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/workflow"
)

// Store persists one row per (workflow_name, session_id), with runs[] and
// session_state serialized as JSON — schema-init style matches
// SQLiteStore.initSchema.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates/opens the session store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		workflow_name TEXT NOT NULL,
		session_id TEXT NOT NULL,
		session_state TEXT NOT NULL DEFAULT '{}',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (workflow_name, session_id)
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		workflow_name TEXT NOT NULL,
		session_id TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		steps TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (workflow_name, session_id) REFERENCES sessions(workflow_name, session_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(workflow_name, session_id, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSession creates the session row if absent, leaving existing state
// untouched (a session spans the trading day; the orchestrator calls this
// once at day-start).
func (s *Store) EnsureSession(ctx context.Context, workflowName, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sessions (workflow_name, session_id, session_state, updated_at)
		VALUES (?, ?, '{}', ?)`, workflowName, sessionID, time.Now())
	return err
}

// LoadState loads the session's shared session_state map.
func (s *Store) LoadState(ctx context.Context, workflowName, sessionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT session_state FROM sessions WHERE workflow_name = ? AND session_id = ?`,
		workflowName, sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, "loading session state")
	}
	state := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, domainerrors.Wrap(err, "decoding session state")
	}
	return state, nil
}

// SaveState persists the session's shared session_state map.
func (s *Store) SaveState(ctx context.Context, workflowName, sessionID string, state map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(state)
	if err != nil {
		return domainerrors.Wrap(err, "encoding session state")
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET session_state = ?, updated_at = ? WHERE workflow_name = ? AND session_id = ?`,
		raw, time.Now(), workflowName, sessionID)
	return err
}

// SaveRun persists a completed or in-flight Run record.
func (s *Store) SaveRun(ctx context.Context, run *workflow.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return domainerrors.Wrap(err, "encoding run steps")
	}
	var ended interface{}
	if !run.EndedAt.IsZero() {
		ended = run.EndedAt
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_name, session_id, status, started_at, ended_at, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET status = excluded.status, ended_at = excluded.ended_at, steps = excluded.steps`,
		run.ID, run.WorkflowName, run.SessionID, run.Status, run.StartedAt, ended, steps)
	return err
}

// History returns all runs for (workflowName, sessionID), oldest first,
// backing RunContext.History(n).
func (s *Store) History(ctx context.Context, workflowName, sessionID string) ([]workflow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, status, started_at, ended_at, steps FROM runs
		WHERE workflow_name = ? AND session_id = ? ORDER BY started_at ASC`, workflowName, sessionID)
	if err != nil {
		return nil, domainerrors.Wrap(err, "querying run history")
	}
	defer rows.Close()

	var runs []workflow.Run
	for rows.Next() {
		var r workflow.Run
		var ended sql.NullTime
		var steps string
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &ended, &steps); err != nil {
			return nil, domainerrors.Wrap(err, "scanning run row")
		}
		if ended.Valid {
			r.EndedAt = ended.Time
		}
		r.WorkflowName = workflowName
		r.SessionID = sessionID
		if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
			return nil, domainerrors.Wrap(err, "decoding run steps")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CrossSessionView implements workflow.CrossSessionHandle read-only over a
// named other session (§4.6).
type CrossSessionView struct {
	store        *Store
	workflowName string
	sessionID    string
}

// NewCrossSessionView builds a read-only handle onto another session.
func (s *Store) NewCrossSessionView(workflowName, sessionID string) *CrossSessionView {
	return &CrossSessionView{store: s, workflowName: workflowName, sessionID: sessionID}
}

// Runs returns the named workflow's runs in the cross-session's session.
func (v *CrossSessionView) Runs(workflowName string) ([]workflow.Run, error) {
	return v.store.History(context.Background(), workflowName, v.sessionID)
}

// State returns one value from the cross-session's session_state.
func (v *CrossSessionView) State(key string) (interface{}, bool) {
	state, err := v.store.LoadState(context.Background(), v.workflowName, v.sessionID)
	if err != nil {
		return nil, false
	}
	val, ok := state[key]
	return val, ok
}
