// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zerodha-trader/internal/catalog"
	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/workflow"
)

// addWorkflowCommands adds the operator commands that drive the workflow
// runtime directly (spec.md §6): run-workflow executes one named Workflow
// against a session, show-session dumps a session's recorded state.
func addWorkflowCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunWorkflowCmd(app))
	rootCmd.AddCommand(newShowSessionCmd(app))
}

func newRunWorkflowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-workflow <name>",
		Short: "Execute a named workflow against a session",
		Long: `Execute one of the catalog's named workflows (Intraday Analysis,
Order Execution, Position Monitoring, News Digest, Post-Trade Analysis)
against a session's shared state.

Exit code 0 means the run finished OK, 3 means the run HALTed (a Function
Stage raised a terminal WorkflowError, e.g. the regime gate at extreme
VIX), and any other nonzero code means the run FAILED outright.`,
		Args:    cobra.ExactArgs(1),
		Example: `  trader run-workflow "Intraday Analysis" --session 2026-08-02`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			name := args[0]

			if app.SessionStore == nil {
				return NewExitError(1, fmt.Errorf("session store not available"))
			}
			wf, ok := catalog.ByName(app.Workflows, name)
			if !ok {
				output.Error("Unknown workflow: %s", name)
				return NewExitError(1, fmt.Errorf("unknown workflow %q", name))
			}

			session, _ := cmd.Flags().GetString("session")
			if session == "" {
				session = time.Now().Format("2006-01-02")
			}

			if app.Auth != nil && !app.Auth.Valid() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := app.Auth.Ensure(ctx); err != nil {
					cancel()
					output.Error("Token lifecycle ladder could not validate the session: %v", err)
					return NewExitError(2, err)
				}
				cancel()
			}

			ctx := context.Background()
			if err := app.SessionStore.EnsureSession(ctx, name, session); err != nil {
				return NewExitError(1, domainerrors.Wrap(err, "ensuring session"))
			}
			state, err := app.SessionStore.LoadState(ctx, name, session)
			if err != nil {
				return NewExitError(1, domainerrors.Wrap(err, "loading session state"))
			}
			history, err := app.SessionStore.History(ctx, name, session)
			if err != nil {
				return NewExitError(1, domainerrors.Wrap(err, "loading run history"))
			}
			cross := app.SessionStore.NewCrossSessionView(name, session)

			rc := workflow.NewRunContext(session, workflow.NewRunID(), state, history, cross)
			run := app.WorkflowEngine.Execute(ctx, wf, rc)

			if saveErr := app.SessionStore.SaveState(ctx, name, session, rc.Snapshot()); saveErr != nil {
				app.Logger.Warn().Err(saveErr).Msg("failed to persist session_state after run")
			}
			if saveErr := app.SessionStore.SaveRun(ctx, run); saveErr != nil {
				app.Logger.Warn().Err(saveErr).Msg("failed to persist run record")
			}

			if output.IsJSON() {
				_ = output.JSON(run)
			} else {
				output.Printf("Run %s: %s (%s)\n", run.ID, run.Status, run.Duration())
				for _, step := range run.Steps {
					if step.Err != nil {
						output.Printf("  [%s] %s: FAILED: %v\n", step.Kind, step.StageName, step.Err)
					} else {
						output.Printf("  [%s] %s: OK\n", step.Kind, step.StageName)
					}
				}
			}

			switch run.Status {
			case workflow.RunOK:
				return nil
			case workflow.RunHalt:
				return NewExitError(3, fmt.Errorf("run %s HALTed", run.ID))
			default:
				return NewExitError(1, fmt.Errorf("run %s %s", run.ID, run.Status))
			}
		},
	}

	cmd.Flags().String("session", "", "session id (default: today, YYYY-MM-DD)")
	return cmd
}

func newShowSessionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show-session <workflow> <date>",
		Short:   "Show a session's recorded runs and shared state",
		Args:    cobra.ExactArgs(2),
		Example: `  trader show-session "Intraday Analysis" 2026-08-02`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			workflowName, session := args[0], args[1]

			if app.SessionStore == nil {
				return NewExitError(1, fmt.Errorf("session store not available"))
			}

			ctx := context.Background()
			state, err := app.SessionStore.LoadState(ctx, workflowName, session)
			if err != nil {
				return NewExitError(1, domainerrors.Wrap(err, "loading session state"))
			}
			runs, err := app.SessionStore.History(ctx, workflowName, session)
			if err != nil {
				return NewExitError(1, domainerrors.Wrap(err, "loading run history"))
			}

			result := map[string]interface{}{
				"workflow_name": workflowName,
				"session_id":    session,
				"session_state": state,
				"runs":          runs,
			}
			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Bold("Session %s / %s", workflowName, session)
			output.Printf("  %d recorded run(s)\n", len(runs))
			for _, r := range runs {
				output.Printf("  - %s: %s (%s -> %s)\n", r.ID, r.Status, r.StartedAt.Format(time.RFC3339), r.EndedAt.Format(time.RFC3339))
			}
			output.Println()
			output.Bold("session_state")
			for k, v := range state {
				output.Printf("  %s = %v\n", k, v)
			}
			return nil
		},
	}
}
