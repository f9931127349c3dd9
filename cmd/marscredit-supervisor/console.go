package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"
)

// consoleCommand opens an interactive REPL that runs each typed line through
// the same command tree the one-shot subcommands use, for operators who want
// to drive several operations in one session. Each line builds its own env,
// so in-memory supervisor state does not carry over from one line to the
// next.
var consoleCommand = &cli.Command{
	Name:  "console",
	Usage: "interactive REPL exposing miner/wallet/network/geth operations",
	Action: withEnv(func(c *cli.Context, e *env) error {
		return runConsole(c, e)
	}),
}

func runConsole(c *cli.Context, e *env) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	prompt := color.New(color.FgCyan).Sprint("marscredit> ")
	fmt.Println("marscredit-supervisor console. Type 'help' for commands, 'exit' to quit.")

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == liner.ErrNotTerminalOutput {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "exit" || input == "quit" {
			return nil
		}
		if input == "help" {
			printConsoleHelp()
			continue
		}

		if err := dispatchConsoleLine(c, e, input); err != nil {
			color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		}
	}
}

// dispatchConsoleLine re-invokes the registered cli.App against the
// tokenized line so console commands stay in lockstep with the one-shot CLI
// surface instead of duplicating a second command table.
func dispatchConsoleLine(c *cli.Context, e *env, input string) error {
	tokens := strings.Fields(input)
	app := c.App
	args := append([]string{app.Name}, tokens...)
	return app.RunContext(c.Context, args)
}

func printConsoleHelp() {
	fmt.Println(`Available namespaces: geth, miner, wallet, network
Examples:
  geth is-available
  miner add-tab
  miner start 1
  miner state 1
  wallet generate
  network balance 0x000000000000000000000000000000000000dEaD
Type 'exit' or 'quit' to leave the console.`)
}
