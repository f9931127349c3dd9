package main

import (
	"fmt"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// promptPassword reads a password from the controlling terminal without
// echoing it, the way geth's own account unlock prompt does.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func optionalIndexFlag(c *cli.Context) *int {
	if !c.IsSet("index") {
		return nil
	}
	idx := c.Int("index")
	return &idx
}

var walletCommand = &cli.Command{
	Name:  "wallet",
	Usage: "generate, import, and inspect mining wallets",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "generate a new random BIP39 wallet",
			Action: withEnv(func(c *cli.Context, e *env) error {
				g, err := e.wallet.Generate()
				if err != nil {
					return err
				}
				fmt.Printf("address=%s\nmnemonic=%s\nprivateKey=%s\n", g.Address, g.Mnemonic, g.PrivateKey)
				return nil
			}),
		},
		{
			Name:      "import-mnemonic",
			ArgsUsage: "<phrase...>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				phrase := joinArgs(c)
				if phrase == "" {
					return fmt.Errorf("usage: wallet import-mnemonic <phrase...>")
				}
				imp, err := e.wallet.ImportFromMnemonic(phrase)
				if err != nil {
					return err
				}
				fmt.Printf("address=%s\nprivateKey=%s\n", imp.Address, imp.PrivateKey)
				return nil
			}),
		},
		{
			Name:      "import-private-key",
			ArgsUsage: "<hex>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				hexKey := c.Args().First()
				if hexKey == "" {
					return fmt.Errorf("usage: wallet import-private-key <hex>")
				}
				addr, err := e.wallet.ImportFromPrivateKey(hexKey)
				if err != nil {
					return err
				}
				fmt.Println(addr)
				return nil
			}),
		},
		{
			Name:      "set-address-only",
			ArgsUsage: "<address>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				addr := c.Args().First()
				if addr == "" {
					return fmt.Errorf("usage: wallet set-address-only <address>")
				}
				return e.wallet.SetAddressOnly(addr)
			}),
		},
		{
			Name:  "stored-address",
			Usage: "print the stored mining address, preferring the address-only file over any keystore",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "index", Usage: "miner index to fall back to a keystore lookup for"},
			},
			Action: withEnv(func(c *cli.Context, e *env) error {
				addr, err := e.wallet.GetStoredMiningAddress(optionalIndexFlag(c))
				if err != nil {
					return err
				}
				if addr == "" {
					fmt.Println("null")
					return nil
				}
				fmt.Println(addr)
				return nil
			}),
		},
		{
			Name:      "write-keystore",
			ArgsUsage: "<index> <privateKeyHex>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if c.Args().Len() < 2 {
					return fmt.Errorf("usage: wallet write-keystore <index> <privateKeyHex>")
				}
				idx, err := strconv.Atoi(c.Args().Get(0))
				if err != nil {
					return fmt.Errorf("invalid miner index %q", c.Args().Get(0))
				}
				pw, err := promptPassword("keystore password: ")
				if err != nil {
					return err
				}
				addr, err := e.wallet.WriteKeystoreToMiner(idx, c.Args().Get(1), pw)
				if err != nil {
					return err
				}
				fmt.Println(addr)
				return nil
			}),
		},
		{
			Name:      "save-mnemonic",
			ArgsUsage: "<phrase...>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				phrase := joinArgs(c)
				if phrase == "" {
					return fmt.Errorf("usage: wallet save-mnemonic <phrase...>")
				}
				pw, err := promptPassword("mnemonic store password: ")
				if err != nil {
					return err
				}
				return e.wallet.SaveMnemonic(phrase, pw)
			}),
		},
		{
			Name:  "load-mnemonic",
			Usage: "decrypt and print the stored mnemonic",
			Action: withEnv(func(c *cli.Context, e *env) error {
				pw, err := promptPassword("mnemonic store password: ")
				if err != nil {
					return err
				}
				phrase, err := e.wallet.LoadMnemonic(pw)
				if err != nil {
					return err
				}
				if phrase == "" {
					fmt.Println("null")
					return nil
				}
				fmt.Println(phrase)
				return nil
			}),
		},
		{
			Name:      "is-valid-address",
			ArgsUsage: "<address>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				fmt.Println(e.wallet.IsValidAddress(c.Args().First()))
				return nil
			}),
		},
		{
			Name:  "info",
			Usage: "summarize persisted wallet state",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "index"},
			},
			Action: withEnv(func(c *cli.Context, e *env) error {
				info, err := e.wallet.GetWalletInfo(optionalIndexFlag(c))
				if err != nil {
					return err
				}
				if info == nil {
					fmt.Println("null")
					return nil
				}
				fmt.Printf("address=%s mode=%s hasMnemonic=%t hasPrivateKey=%t\n",
					info.Address, info.Mode, info.HasMnemonic, info.HasPrivateKey)
				return nil
			}),
		},
	},
}

func joinArgs(c *cli.Context) string {
	args := c.Args().Slice()
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
