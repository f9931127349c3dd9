package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/marscredit/monorepo/internal/rpcclient"
)

var networkCommand = &cli.Command{
	Name:  "network",
	Usage: "JSON-RPC passthrough to a local or remote node",
	Subcommands: []*cli.Command{
		{
			Name:      "balance",
			ArgsUsage: "<address>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "rpc-url", Usage: "local node URL; falls back to the remote endpoint when empty or unreachable"},
			},
			Action: withEnv(func(c *cli.Context, e *env) error {
				addr := c.Args().First()
				if addr == "" {
					return fmt.Errorf("usage: network balance <address>")
				}
				wei, source, err := e.rpc.GetBalancePreferLocal(context.Background(), c.String("rpc-url"), addr)
				if err != nil {
					return err
				}
				mars, err := rpcclient.WeiToMars(wei)
				if err != nil {
					return err
				}
				fmt.Printf("%s mars (source=%s, wei=%s)\n", mars, source, wei)
				return nil
			}),
		},
		{
			Name:      "miner-set-etherbase",
			ArgsUsage: "<rpcUrl> <address>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if c.Args().Len() < 2 {
					return fmt.Errorf("usage: network miner-set-etherbase <rpcUrl> <address>")
				}
				ok, err := e.rpc.MinerSetEtherbase(context.Background(), c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Println(ok)
				return nil
			}),
		},
		{
			Name:      "miner-start",
			ArgsUsage: "<rpcUrl> <threads>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if c.Args().Len() < 2 {
					return fmt.Errorf("usage: network miner-start <rpcUrl> <threads>")
				}
				var threads int
				fmt.Sscanf(c.Args().Get(1), "%d", &threads)
				return e.rpc.MinerStart(context.Background(), c.Args().Get(0), threads)
			}),
		},
		{
			Name:      "miner-stop",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if c.Args().Len() < 1 {
					return fmt.Errorf("usage: network miner-stop <rpcUrl>")
				}
				return e.rpc.MinerStop(context.Background(), c.Args().Get(0))
			}),
		},
		{
			Name:      "eth-mining",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				mining, err := e.rpc.EthMining(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(mining)
				return nil
			}),
		},
		{
			Name:      "eth-hashrate",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				rate, err := e.rpc.EthHashrate(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(rate)
				return nil
			}),
		},
		{
			Name:      "eth-block-number",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				n, err := e.rpc.EthBlockNumber(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			}),
		},
		{
			Name:      "eth-syncing",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				raw, err := e.rpc.EthSyncing(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}),
		},
		{
			Name:      "net-peer-count",
			ArgsUsage: "<rpcUrl>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				n, err := e.rpc.NetPeerCount(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			}),
		},
		{
			Name:  "remote-rpc-url",
			Usage: "print the fixed read-only remote endpoint",
			Action: withEnv(func(c *cli.Context, e *env) error {
				fmt.Println(e.rpc.RemoteURL())
				return nil
			}),
		},
	},
}
