package workflow

import "sync"

// RunContext is the shared-mutable-state handle passed to every Stage of
// one Run: session_state (read/write, shared across the whole session) and
// workflow_history (read-only lookback into prior runs of the same
// workflow within the session). Guarded by a single mutex — the teacher's
// Orchestrator protects its own daily counters the same way.
type RunContext struct {
	mu      sync.RWMutex
	state   map[string]interface{}
	history []Run
	cross   CrossSessionHandle

	SessionID string
	RunID     string
}

// NewRunContext builds a RunContext sharing state with the rest of the
// session; history is the session's prior runs of this workflow, oldest
// first.
func NewRunContext(sessionID, runID string, state map[string]interface{}, history []Run, cross CrossSessionHandle) *RunContext {
	if state == nil {
		state = make(map[string]interface{})
	}
	return &RunContext{
		state:     state,
		history:   history,
		cross:     cross,
		SessionID: sessionID,
		RunID:     runID,
	}
}

// Get reads a session_state value.
func (rc *RunContext) Get(key string) (interface{}, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.state[key]
	return v, ok
}

// Set writes a session_state value, visible to every subsequent stage in
// this run and every later run of the session.
func (rc *RunContext) Set(key string, value interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state[key] = value
}

// History returns up to the last n prior runs of this workflow, most
// recent last. n <= 0 returns the full history.
func (rc *RunContext) History(n int) []Run {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if n <= 0 || n >= len(rc.history) {
		return rc.history
	}
	return rc.history[len(rc.history)-n:]
}

// CrossSession returns the read-only handle onto other sessions, if one
// was wired for this run.
func (rc *RunContext) CrossSession() CrossSessionHandle {
	return rc.cross
}

// Snapshot returns a shallow copy of the current session_state, safe to
// persist to the session store without holding rc's lock.
func (rc *RunContext) Snapshot() map[string]interface{} {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make(map[string]interface{}, len(rc.state))
	for k, v := range rc.state {
		out[k] = v
	}
	return out
}
