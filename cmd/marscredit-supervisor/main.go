// Command marscredit-supervisor is the headless control surface for the
// Mars Credit miner supervisor: it exposes the same geth/miner/wallet/
// network operations a desktop UI would drive over IPC, as CLI subcommands
// plus an interactive console, for operators running the supervisor without
// the desktop shell.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "marscredit-supervisor",
		Usage: "supervise local Mars Credit (geth) mining nodes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Usage: "override the default <home>/.marscredit root"},
			&cli.StringFlag{Name: "config", Usage: "path to config.toml"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace|debug|info|warn|error|crit"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable ANSI color on the terminal log handler"},
		},
		Commands: []*cli.Command{
			gethCommand,
			minerCommand,
			walletCommand,
			networkCommand,
			consoleCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
