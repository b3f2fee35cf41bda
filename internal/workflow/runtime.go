package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	domainerrors "zerodha-trader/internal/errors"
)

// Engine runs Workflows: one Run per invocation, Stages executed in
// order, Parallel Group members fanned out on a bounded conc pool (the
// teacher's runAgentsParallel used a raw sync.WaitGroup + channel for the
// same shape; conc.Pool gives the same bounded fan-out with built-in panic
// recovery and error aggregation).
type Engine struct {
	log        zerolog.Logger
	maxFanOut  int
	stageDeadline time.Duration
}

// NewEngine builds an Engine. maxFanOut bounds Parallel Group concurrency
// (values <= 0 fall back to 4); stageDeadline is the
// default per-stage timeout when a Stage doesn't set its own.
func NewEngine(log zerolog.Logger, maxFanOut int, stageDeadline time.Duration) *Engine {
	if maxFanOut <= 0 {
		maxFanOut = 4
	}
	return &Engine{log: log, maxFanOut: maxFanOut, stageDeadline: stageDeadline}
}

// Execute runs wf once against rc, producing a Run record. A stage error
// never aborts the Engine loop outright — HALT-worthiness is a matter of
// Run status computed from the stage outcomes, mirroring §4.5's OK/FAILED/
// PARTIAL/HALT contract.
func (e *Engine) Execute(ctx context.Context, wf Workflow, rc *RunContext) *Run {
	run := &Run{
		ID:           rc.RunID,
		WorkflowName: wf.Name,
		SessionID:    rc.SessionID,
		StartedAt:    time.Now(),
	}

	halted := false
	anyFailed := false
	anyOK := false

	for _, stage := range wf.Stages {
		if halted {
			break
		}
		step := e.runStage(ctx, stage, rc)
		run.Steps = append(run.Steps, step)
		if step.Err != nil {
			anyFailed = true
			var werr *domainerrors.WorkflowError
			if domainerrors.As(step.Err, &werr) && werr.Halt {
				halted = true
			}
		} else {
			anyOK = true
		}
	}

	run.EndedAt = time.Now()
	switch {
	case halted:
		run.Status = RunHalt
	case anyFailed && anyOK:
		run.Status = RunPartial
	case anyFailed:
		run.Status = RunFailed
	default:
		run.Status = RunOK
	}
	return run
}

func (e *Engine) runStage(ctx context.Context, stage Stage, rc *RunContext) StepOutput {
	step := StepOutput{StageName: stage.Name, Kind: stage.Kind, StartedAt: time.Now()}

	deadline := stage.Deadline
	if deadline == 0 {
		deadline = e.stageDeadline
	}
	stageCtx := ctx
	var cancel context.CancelFunc
	if deadline > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	switch stage.Kind {
	case StageParallel:
		step.Output, step.Err = e.runParallel(stageCtx, stage, rc)
	default:
		step.Output, step.Err = e.runOne(stageCtx, stage, rc)
	}

	step.EndedAt = time.Now()
	if step.Err != nil {
		e.log.Error().Err(step.Err).Str("stage", stage.Name).Str("run_id", rc.RunID).Msg("workflow: stage failed")
	}
	return step
}

func (e *Engine) runOne(ctx context.Context, stage Stage, rc *RunContext) (interface{}, error) {
	if stage.Fn == nil {
		return nil, domainerrors.NewWorkflowError(rc.RunID, stage.Name, false, nil)
	}
	return stage.Fn(ctx, rc)
}

// runParallel fans a Parallel Group's members out on a bounded conc pool
// and aggregates member errors with multierr, so one failing analyst
// doesn't drop the others' results (§4.5, §5's fan-out requirement).
func (e *Engine) runParallel(ctx context.Context, stage Stage, rc *RunContext) (interface{}, error) {
	results := make([]interface{}, len(stage.Members))
	errs := make([]error, len(stage.Members))

	p := pool.New().WithMaxGoroutines(e.maxFanOut)
	for i, member := range stage.Members {
		i, member := i, member
		p.Go(func() {
			out, err := e.runOne(ctx, member, rc)
			results[i] = out
			errs[i] = err
		})
	}
	p.Wait()

	var merged error
	for i, err := range errs {
		if err != nil {
			merged = multierr.Append(merged, domainerrors.Wrapf(err, "member %s", stage.Members[i].Name))
		}
	}
	return results, merged
}

// NewRunID generates a new run identifier.
func NewRunID() string { return uuid.NewString() }
