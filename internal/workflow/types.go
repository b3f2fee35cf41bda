// Package workflow implements the orchestrator's run-time: Workflows made
// of Stages (agent, parallel group, function), executed as Runs inside a
// Session, with shared session_state and workflow_history (spec §4.5).
// Generalized from internal/agents.Orchestrator's single fixed pipeline of
// "run N agents in parallel, merge into a map" into a named, composable
// stage graph.
package workflow

import (
	"context"
	"time"
)

// RunStatus is a completed or in-flight Run's outcome.
type RunStatus string

const (
	RunOK      RunStatus = "OK"
	RunFailed  RunStatus = "FAILED"
	RunPartial RunStatus = "PARTIAL"
	RunHalt    RunStatus = "HALT"
)

// StageKind distinguishes the three stage shapes named in §4.5.
type StageKind string

const (
	StageAgent    StageKind = "agent"
	StageParallel StageKind = "parallel_group"
	StageFunction StageKind = "function"
)

// StageFunc is the unit of work a Stage wraps. It reads/writes through the
// RunContext rather than taking/returning raw values, so a Function Stage
// and an Agent Stage compose identically.
type StageFunc func(ctx context.Context, rc *RunContext) (interface{}, error)

// Stage is one named unit of a Workflow's execution graph.
type Stage struct {
	Name     string
	Kind     StageKind
	Fn       StageFunc        // for StageAgent / StageFunction
	Members  []Stage          // for StageParallel
	Deadline time.Duration    // 0 means the Engine's default stage deadline
}

// Workflow is an ordered list of Stages sharing one RunContext per
// invocation.
type Workflow struct {
	Name   string
	Stages []Stage
}

// StepOutput is one Stage's recorded result within a Run, in the order
// produced.
type StepOutput struct {
	StageName string
	Kind      StageKind
	StartedAt time.Time
	EndedAt   time.Time
	Output    interface{}
	Err       error
}

// Run is one execution of a Workflow.
type Run struct {
	ID          string
	WorkflowName string
	SessionID   string
	StartedAt   time.Time
	EndedAt     time.Time
	Status      RunStatus
	Steps       []StepOutput
}

// Duration returns EndedAt.Sub(StartedAt); zero if the Run has not ended.
func (r *Run) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// CrossSessionHandle is a read-only view into another session's recorded
// runs, used by a Stage that wants yesterday's DayReport without being able
// to mutate it (§4.6).
type CrossSessionHandle interface {
	Runs(workflowName string) ([]Run, error)
	State(key string) (interface{}, bool)
}
