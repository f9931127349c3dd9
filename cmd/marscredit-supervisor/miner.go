package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/marscredit/monorepo/internal/instance"
)

func parseIndexArg(c *cli.Context) (int, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("missing miner index argument")
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 1 {
		return 0, fmt.Errorf("invalid miner index %q", raw)
	}
	return i, nil
}

func printState(st *instance.Snapshot) {
	if st == nil {
		fmt.Println("null")
		return
	}
	fmt.Printf("minerIndex=%d running=%t pid=%d rpcUrl=%s state=%s\n",
		st.MinerIndex, st.Running, st.Pid, st.RPCURL, st.State)
}

var minerCommand = &cli.Command{
	Name:  "miner",
	Usage: "control and inspect miner instances (tabs)",
	Subcommands: []*cli.Command{
		{
			Name:  "add-tab",
			Usage: "allocate a new miner tab without starting it",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "threads", Value: 1},
				&cli.IntFlag{Name: "cache-mb", Value: 4096},
				&cli.StringFlag{Name: "etherbase"},
			},
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx := e.supervisor.AddTab(instance.Config{
					MinerThreads: c.Int("threads"),
					CacheMB:      c.Int("cache-mb"),
					Etherbase:    c.String("etherbase"),
				})
				fmt.Println(idx)
				return nil
			}),
		},
		{
			Name:      "remove-tab",
			ArgsUsage: "<index>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx, err := parseIndexArg(c)
				if err != nil {
					return err
				}
				return e.supervisor.RemoveTab(idx)
			}),
		},
		{
			Name:      "start",
			ArgsUsage: "<index>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "threads"},
				&cli.IntFlag{Name: "cache-mb"},
				&cli.StringFlag{Name: "etherbase"},
			},
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx, err := parseIndexArg(c)
				if err != nil {
					return err
				}
				return e.supervisor.StartMiner(idx, instance.Config{
					MinerThreads: c.Int("threads"),
					CacheMB:      c.Int("cache-mb"),
					Etherbase:    c.String("etherbase"),
				})
			}),
		},
		{
			Name:      "stop",
			ArgsUsage: "<index>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx, err := parseIndexArg(c)
				if err != nil {
					return err
				}
				return e.supervisor.StopMiner(idx)
			}),
		},
		{
			Name:  "stop-all",
			Usage: "stop every running instance",
			Action: withEnv(func(c *cli.Context, e *env) error {
				return e.supervisor.StopAll()
			}),
		},
		{
			Name:      "state",
			ArgsUsage: "<index>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx, err := parseIndexArg(c)
				if err != nil {
					return err
				}
				printState(e.supervisor.GetMinerState(idx))
				return nil
			}),
		},
		{
			Name:  "tabs",
			Usage: "list known tab indices",
			Action: withEnv(func(c *cli.Context, e *env) error {
				for _, i := range e.supervisor.GetTabIndices() {
					fmt.Println(i)
				}
				return nil
			}),
		},
		{
			Name:  "running",
			Usage: "list currently running tab indices",
			Action: withEnv(func(c *cli.Context, e *env) error {
				for _, i := range e.supervisor.GetRunningMinerIndices() {
					fmt.Println(i)
				}
				return nil
			}),
		},
		{
			Name:      "rpc-url",
			ArgsUsage: "<index>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				idx, err := parseIndexArg(c)
				if err != nil {
					return err
				}
				url := e.supervisor.GetRpcUrl(idx)
				if url == "" {
					return fmt.Errorf("no such miner index %d", idx)
				}
				fmt.Println(url)
				return nil
			}),
		},
	},
}
