package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/marscredit/monorepo/internal/binmgr"
	"github.com/marscredit/monorepo/internal/config"
)

var gethCommand = &cli.Command{
	Name:  "geth",
	Usage: "manage the supervised Geth binary",
	Subcommands: []*cli.Command{
		{
			Name:  "is-available",
			Usage: "check whether a runnable geth binary is present",
			Action: withEnv(func(c *cli.Context, e *env) error {
				st, err := e.binmgr.IsAvailable("")
				if err != nil {
					return err
				}
				if st.OK {
					fmt.Printf("ok=true path=%s version=%s\n", st.Path, st.Version)
				} else {
					fmt.Printf("ok=false path=%s\n", st.Path)
				}
				return nil
			}),
		},
		{
			Name:  "download",
			Usage: "download and install the platform-appropriate geth binary",
			Action: withEnv(func(c *cli.Context, e *env) error {
				result, err := e.binmgr.Download(context.Background(), func(p binmgr.Progress) {
					fmt.Printf("\rdownloading... %.1f%%", p.Percent)
				})
				fmt.Println()
				if err != nil {
					return err
				}
				if result.FellBackFrom != "" {
					fmt.Printf("no native build for this platform, used %s build instead\n", result.FellBackFrom)
				}
				fmt.Printf("installed geth %s at %s\n", result.Version, result.Path)
				return nil
			}),
		},
		{
			Name:  "get-path",
			Usage: "print the resolved geth binary path",
			Action: withEnv(func(c *cli.Context, e *env) error {
				fmt.Println(e.binmgr.GetPath())
				return nil
			}),
		},
		{
			Name:      "set-path",
			Usage:     "persist an explicit geth binary path to config.toml",
			ArgsUsage: "<path>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				path := c.Args().First()
				if path == "" {
					return fmt.Errorf("usage: geth set-path <path>")
				}
				e.cfg.GethBinaryPath = path
				e.supervisor.SetGethPath(path)
				return config.Save(configPath(c), e.cfg)
			}),
		},
	},
}
