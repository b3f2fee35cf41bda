// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zerodha-trader/internal/catalog"
	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/models"
	"zerodha-trader/internal/performance"
	"zerodha-trader/internal/scheduler"
	"zerodha-trader/internal/workflow"
)

// addTraderCommands adds autonomous trading commands.
// Requirements: 26, 62.6, 65.21-65.26
func addTraderCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trader",
		Short: "Autonomous trading daemon control",
		Long:  "Run and inspect the autonomous trading scheduler.",
	}

	cmd.AddCommand(newTraderStartCmd(app))
	cmd.AddCommand(newTraderStatusCmd(app))
	cmd.AddCommand(newTraderTradesCmd(app))
	cmd.AddCommand(newTraderConfigCmd(app))
	cmd.AddCommand(newTraderHealthCmd(app))

	rootCmd.AddCommand(cmd)

	// Also add the trade ledger at root level for easier access.
	rootCmd.AddCommand(newTradesCmd(app))
}

// triggerTable is spec.md §4.7's trigger table: the five named workflows'
// wall-clock fire times. Position Monitoring's 09:30-15:20/20min cadence is
// expanded to its individual trigger minutes; News Digest's hourly
// 09:00-16:00 cadence likewise.
func triggerTable() []scheduler.Trigger {
	triggers := []scheduler.Trigger{
		{WorkflowName: "Intraday Analysis", Hour: 9, Minute: 0},
		{WorkflowName: "Order Execution", Hour: 9, Minute: 15},
		{WorkflowName: "Post-Trade Analysis", Hour: 16, Minute: 0},
	}
	for t := 9*60 + 30; t <= 15*60+20; t += 20 {
		triggers = append(triggers, scheduler.Trigger{WorkflowName: "Position Monitoring", Hour: t / 60, Minute: t % 60})
	}
	for h := 9; h <= 16; h++ {
		triggers = append(triggers, scheduler.Trigger{WorkflowName: "News Digest", Hour: h, Minute: 0})
	}
	return triggers
}

// runScheduledWorkflow is the scheduler.RunFunc the daemon wires in: it
// gates the run on the token-lifecycle ladder (C11), executes the workflow
// against today's session, and persists the Run and session_state.
func runScheduledWorkflow(app *App) scheduler.RunFunc {
	return func(ctx context.Context, workflowName string, firedAt time.Time) error {
		if app.Auth != nil && !app.Auth.Valid() {
			if _, err := app.Auth.Ensure(ctx); err != nil {
				return domainerrors.Wrapf(err, "auth ladder blocked scheduled run of %s", workflowName)
			}
		}

		wf, ok := catalog.ByName(app.Workflows, workflowName)
		if !ok {
			return fmt.Errorf("unknown workflow %q", workflowName)
		}
		session := firedAt.Format("2006-01-02")

		if err := app.SessionStore.EnsureSession(ctx, workflowName, session); err != nil {
			return domainerrors.Wrap(err, "ensuring session")
		}
		state, err := app.SessionStore.LoadState(ctx, workflowName, session)
		if err != nil {
			return domainerrors.Wrap(err, "loading session state")
		}
		history, err := app.SessionStore.History(ctx, workflowName, session)
		if err != nil {
			return domainerrors.Wrap(err, "loading run history")
		}
		cross := app.SessionStore.NewCrossSessionView(workflowName, session)

		rc := workflow.NewRunContext(session, workflow.NewRunID(), state, history, cross)
		run := app.WorkflowEngine.Execute(ctx, wf, rc)

		if err := app.SessionStore.SaveState(ctx, workflowName, session, rc.Snapshot()); err != nil {
			app.Logger.Warn().Err(err).Msg("failed to persist session_state after scheduled run")
		}
		if err := app.SessionStore.SaveRun(ctx, run); err != nil {
			app.Logger.Warn().Err(err).Msg("failed to persist run record")
		}
		return nil
	}
}

// newTradesCmd creates a standalone trade-ledger command at root level.
func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "View trade ledger history",
		Long: `Display executed trades with full lifecycle transparency.

This command provides access to:
- Recent trade history with lifecycle status
- Detailed view of a single trade
- Realized P&L statistics`,
		Example: `  trader trades list
  trader trades show <trade-id>
  trader trades stats --days 30`,
	}

	tradesCmd := newTraderTradesCmd(app)
	for _, subCmd := range tradesCmd.Commands() {
		cmd.AddCommand(subCmd)
	}

	return cmd
}

func newTraderStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler loop in the foreground",
		Long: `Run the spec's trigger table (§4.7) in the foreground: Intraday
Analysis at 09:00, Order Execution at 09:15, Position Monitoring every 20
minutes from 09:30 to 15:20, News Digest hourly from 09:00 to 16:00, and
Post-Trade Analysis at 16:00 — each gated on the token lifecycle ladder and
skipped on non-trading days.

There is no background daemon or IPC: this command blocks until
interrupted (Ctrl+C / SIGTERM). Run it under a process supervisor (systemd,
supervisord, tmux) for unattended operation.`,
		Example: `  trader trader start`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.SessionStore == nil {
				return NewExitError(1, fmt.Errorf("session store not available"))
			}
			if len(app.Workflows) == 0 {
				return NewExitError(1, fmt.Errorf("workflow catalog not available"))
			}

			output.Bold("Starting scheduler")
			output.Printf("  Mode:  %s\n", app.Config.Agents.AutonomousMode)
			if app.Config.IsPaperMode() {
				output.Warning("Paper trading mode")
			}
			output.Dim("Press Ctrl+C to stop")
			output.Println()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if app.Health != nil {
				app.Health.Start()
				defer app.Health.Stop()
			}

			app.Scheduler = scheduler.New(app.Calendar, runScheduledWorkflow(app), app.Logger)
			err := app.Scheduler.Run(ctx, triggerTable())
			if err != nil && err != context.Canceled {
				return NewExitError(1, err)
			}
			output.Println()
			output.Info("Scheduler stopped")
			return nil
		},
	}
}

func newTraderStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session's real status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			sessionValid := app.Auth != nil && app.Auth.Valid()
			var lastStatus string
			if app.Auth != nil {
				lastStatus = string(app.Auth.LastStatus())
			}

			today := time.Now().Format("2006-01-02")
			var dailyPnL float64
			var tradeCount int
			if app.Ledger != nil {
				if trades, err := app.Ledger.TradesForDay(context.Background(), today); err == nil {
					tradeCount = len(trades)
				}
				dailyPnL, _ = app.Ledger.DayPnL(context.Background(), today)
			}

			var marketSession string
			if app.MarketHours != nil {
				marketSession = string(app.MarketHours.GetSession())
			}

			status := struct {
				Mode           string
				SessionValid   bool
				AuthLastStatus string
				MarketSession  string
				DailyTrades    int
				DailyPnL       float64
				SchedulerUp    bool
				EnabledAgents  []string
			}{
				Mode:           app.Config.Agents.AutonomousMode,
				SessionValid:   sessionValid,
				AuthLastStatus: lastStatus,
				MarketSession:  marketSession,
				DailyTrades:    tradeCount,
				DailyPnL:       dailyPnL,
				SchedulerUp:    app.Scheduler != nil,
				EnabledAgents:  app.Config.Agents.EnabledAgents,
			}

			if output.IsJSON() {
				return output.JSON(status)
			}

			output.Bold("Trader Status")
			output.Println()
			if status.SessionValid {
				output.Printf("  Session:      %s\n", output.Green("valid ("+status.AuthLastStatus+")"))
			} else {
				output.Printf("  Session:      %s\n", output.Yellow("not validated — run 'trader login'"))
			}
			output.Printf("  Mode:         %s\n", status.Mode)
			output.Printf("  Market:       %s\n", status.MarketSession)
			output.Printf("  Scheduler:    %v\n", status.SchedulerUp)
			output.Println()

			output.Bold("Today")
			output.Printf("  Trades:       %d / %d\n", status.DailyTrades, app.Config.Agents.MaxDailyTrades)
			output.Printf("  P&L:          %s\n", output.FormatPnL(status.DailyPnL))
			output.Println()

			output.Bold("Enabled Agents")
			for _, agent := range status.EnabledAgents {
				output.Printf("  - %s\n", agent)
			}

			return nil
		},
	}
}

func newTraderTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "View executed trades",
		Long:  "Display recent trades from the trade ledger with lifecycle status.",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent trades",
		Long: `List recent trades with lifecycle status and realized P&L.

Shows symbol, direction, quantity, status, and P&L for each trade.`,
		Example: `  trader trades list
  trader trades list --days 7
  trader trades list --symbol RELIANCE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Ledger == nil {
				output.Error("Ledger not initialized. Please check your configuration.")
				return fmt.Errorf("ledger not initialized")
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = 7
			}

			var trades []*models.Trade
			now := time.Now()
			for d := now.AddDate(0, 0, -days); !d.After(now); d = d.AddDate(0, 0, 1) {
				dayTrades, err := app.Ledger.TradesForDay(ctx, d.Format("2006-01-02"))
				if err != nil {
					output.Error("Failed to get trades: %v", err)
					return err
				}
				trades = append(trades, dayTrades...)
			}
			if symbol != "" {
				filtered := trades[:0]
				for _, t := range trades {
					if t.Symbol == symbol {
						filtered = append(filtered, t)
					}
				}
				trades = filtered
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found")
				return nil
			}

			output.Bold("Recent Trades")
			output.Println()

			table := NewTable(output, "ID", "Symbol", "Direction", "Qty", "Status", "Entry", "Exit", "P&L")
			for _, t := range trades {
				displayID := t.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				statusColor := ColorYellow
				switch t.Status {
				case models.TradeClosed:
					statusColor = ColorGreen
				case models.TradeRejected, models.TradeStoppedOut, models.TradeExpired:
					statusColor = ColorRed
				}

				table.AddRow(
					displayID,
					t.Symbol,
					string(t.Direction),
					fmt.Sprintf("%d", t.Quantity),
					output.ColoredString(statusColor, string(t.Status)),
					FormatPrice(t.EntryFillPrice),
					FormatPrice(t.ExitFillPrice),
					output.FormatPnL(t.RealizedPnL),
				)
			}
			table.Render()

			output.Println()
			output.Dim("Use 'trader trades show <id>' for full details")

			return nil
		},
	}
	listCmd.Flags().String("symbol", "", "Filter by symbol")
	listCmd.Flags().Int("days", 7, "Number of days to look back")
	cmd.AddCommand(listCmd)

	showCmd := &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show trade details",
		Long: `Show full details of a specific trade.

Displays entry/stop/target prices, fill prices, lifecycle status, and
realized P&L.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Ledger == nil {
				output.Error("Ledger not initialized. Please check your configuration.")
				return fmt.Errorf("ledger not initialized")
			}

			trade, err := app.Ledger.Get(ctx, args[0])
			if err != nil {
				output.Error("Failed to get trade: %v", err)
				return err
			}
			if trade == nil {
				output.Error("Trade not found: %s", args[0])
				return nil
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Bold("Trade: %s", trade.ID)
			output.Println()
			output.Printf("  Symbol:        %s\n", trade.Symbol)
			output.Printf("  Direction:     %s\n", trade.Direction)
			output.Printf("  Quantity:      %d\n", trade.Quantity)
			output.Printf("  Status:        %s\n", trade.Status)
			output.Printf("  Stop Loss:     %s\n", FormatIndianCurrency(trade.StopLossPrice))
			output.Printf("  Take Profit:   %s\n", FormatIndianCurrency(trade.TakeProfitPrice))
			output.Println()

			if trade.EntryTime != nil {
				output.Printf("  Entry Time:    %s\n", FormatDateTime(*trade.EntryTime))
				output.Printf("  Entry Fill:    %s\n", FormatIndianCurrency(trade.EntryFillPrice))
			}
			if trade.ExitTime != nil {
				output.Printf("  Exit Time:     %s\n", FormatDateTime(*trade.ExitTime))
				output.Printf("  Exit Fill:     %s\n", FormatIndianCurrency(trade.ExitFillPrice))
				output.Printf("  Exit Reason:   %s\n", trade.ExitReason)
			}
			output.Println()

			output.Printf("  Realized P&L:  %s\n", output.FormatPnL(trade.RealizedPnL))
			output.Printf("  Client Tag:    %s\n", trade.ClientTag)

			return nil
		},
	}
	cmd.AddCommand(showCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trade statistics",
		Long:  "Show realized P&L and win-rate statistics from the trade ledger.",
		Example: `  trader trades stats
  trader trades stats --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Ledger == nil {
				output.Error("Ledger not initialized. Please check your configuration.")
				return fmt.Errorf("ledger not initialized")
			}

			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = 30
			}

			var totalPnL float64
			var wins, losses, total int
			now := time.Now()
			for d := now.AddDate(0, 0, -days); !d.After(now); d = d.AddDate(0, 0, 1) {
				dayTrades, err := app.Ledger.TradesForDay(ctx, d.Format("2006-01-02"))
				if err != nil {
					output.Error("Failed to get trade stats: %v", err)
					return err
				}
				for _, t := range dayTrades {
					if t.Status != models.TradeClosed {
						continue
					}
					total++
					totalPnL += t.RealizedPnL
					if t.RealizedPnL > 0 {
						wins++
					} else {
						losses++
					}
				}
			}

			winRate := 0.0
			if total > 0 {
				winRate = float64(wins) / float64(total) * 100
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"total_trades": total,
					"wins":         wins,
					"losses":       losses,
					"win_rate":     winRate,
					"total_pnl":    totalPnL,
				})
			}

			output.Bold("Trade Statistics")
			output.Printf("  Last %d days\n\n", days)

			output.Printf("  Total Trades: %d\n", total)
			winRateColor := ColorYellow
			if winRate >= 60 {
				winRateColor = ColorGreen
			} else if winRate < 50 {
				winRateColor = ColorRed
			}
			output.Printf("  Win Rate:     %s\n", output.ColoredString(winRateColor, fmt.Sprintf("%.1f%% (%d/%d)", winRate, wins, total)))
			output.Printf("  Total P&L:    %s\n", output.FormatPnL(totalPnL))

			return nil
		},
	}
	statsCmd.Flags().Int("days", 30, "Number of days to analyze")
	cmd.AddCommand(statsCmd)

	return cmd
}

func newTraderConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "View/edit trader configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Trader Configuration")
			output.Println()

			output.Printf("  Model:              %s\n", app.Config.Agents.Model)
			output.Printf("  Temperature:        %.1f\n", app.Config.Agents.Temperature)
			output.Printf("  Autonomous Mode:    %s\n", app.Config.Agents.AutonomousMode)
			output.Printf("  Auto Threshold:     %.0f%%\n", app.Config.Agents.AutoExecuteThreshold)
			output.Printf("  Max Daily Trades:   %d\n", app.Config.Agents.MaxDailyTrades)
			output.Printf("  Max Daily Loss:     %s\n", FormatIndianCurrency(app.Config.Agents.MaxDailyLoss))
			output.Printf("  Max Position Size:  %s\n", FormatIndianCurrency(app.Config.Agents.MaxPositionSize))
			output.Printf("  Cooldown:           %d min\n", app.Config.Agents.CooldownMinutes)
			output.Printf("  Consec. Loss Limit: %d\n", app.Config.Agents.ConsecutiveLossLimit)
			output.Println()

			output.Bold("Enabled Agents")
			for _, agent := range app.Config.Agents.EnabledAgents {
				weight := app.Config.Agents.AgentWeights[agent]
				output.Printf("  â€¢ %-12s (weight: %.2f)\n", agent, weight)
			}
			output.Println()

			output.Dim("Edit ~/.config/zerodha-trader/agents.toml to change settings")

			return nil
		},
	}
}

func newTraderHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "System health diagnostics",
		Long: `Display system health: process memory and goroutine counts
(runtime.MemStats), and a live probe of the broker, ledger, and session
store — not a fabricated status board.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			mem := performance.MemoryStats()

			type check struct {
				Name   string
				Passed bool
				Detail string
			}
			checks := []check{}

			if app.Broker != nil {
				_, err := app.Broker.GetBalance(ctx)
				checks = append(checks, check{"Broker session", err == nil, fmt.Sprintf("%v", errOrOK(err))})
			} else {
				checks = append(checks, check{"Broker session", false, "not configured"})
			}
			if app.Auth != nil {
				checks = append(checks, check{"Token lifecycle ladder", app.Auth.Valid(), string(app.Auth.LastStatus())})
			}
			if app.Ledger != nil {
				_, err := app.Ledger.TradesForDay(ctx, time.Now().Format("2006-01-02"))
				checks = append(checks, check{"Trade ledger", err == nil, fmt.Sprintf("%v", errOrOK(err))})
			} else {
				checks = append(checks, check{"Trade ledger", false, "not initialized"})
			}
			checks = append(checks, check{"Session store", app.SessionStore != nil, "sessions.db"})
			checks = append(checks, check{"Workflow catalog", len(app.Workflows) > 0, fmt.Sprintf("%d workflows", len(app.Workflows))})

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"memory": mem,
					"checks": checks,
				})
			}

			output.Bold("System")
			output.Printf("  Heap Alloc:  %s\n", performance.FormatBytes(mem.HeapAlloc))
			output.Printf("  Sys:         %s\n", performance.FormatBytes(mem.Sys))
			output.Printf("  Goroutines:  %d\n", mem.Goroutines)
			output.Printf("  GC Cycles:   %d\n", mem.NumGC)
			output.Println()

			output.Bold("Health Checks")
			for _, c := range checks {
				status := output.Green("PASS")
				if !c.Passed {
					status = output.Red("FAIL")
				}
				output.Printf("  %-24s %s (%s)\n", c.Name, status, c.Detail)
			}

			return nil
		},
	}
}

func errOrOK(err error) interface{} {
	if err == nil {
		return "OK"
	}
	return err
}
