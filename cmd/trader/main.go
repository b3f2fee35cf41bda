// Command trader is the operator entry point (spec.md §6): it wires
// config, logging, broker, session store, and workflow catalog into a
// cobra root command and propagates each command's intended process exit
// code (login: 0/2/nonzero, run-workflow: 0/3/nonzero) to the shell.
package main

import (
	"fmt"
	"os"

	"zerodha-trader/internal/cli"
	"zerodha-trader/internal/config"
	"zerodha-trader/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := os.Getenv("TRADER_CONFIG_DIR")
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trader: loading configuration: %v\n", err)
		return 1
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		return cli.ExitCode(err)
	}
	return 0
}
