package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/marscredit/monorepo/internal/applog"
	"github.com/marscredit/monorepo/internal/binmgr"
	"github.com/marscredit/monorepo/internal/config"
	"github.com/marscredit/monorepo/internal/paths"
	"github.com/marscredit/monorepo/internal/rpcclient"
	"github.com/marscredit/monorepo/internal/supervisor"
	"github.com/marscredit/monorepo/internal/wallet"
)

// env bundles every component the CLI actions need, built by withEnv for
// each command action from global flags and the optional config.toml (once
// per one-shot invocation, and once per line typed in the console).
type env struct {
	layout     *paths.Layout
	cfg        config.Config
	binmgr     *binmgr.Manager
	wallet     *wallet.Service
	rpc        *rpcclient.Client
	supervisor *supervisor.Service
	log        gethlog.Logger
	closeLog   func() error
}

var levelByName = map[string]slog.Level{
	"trace": gethlog.LevelTrace,
	"debug": gethlog.LevelDebug,
	"info":  gethlog.LevelInfo,
	"warn":  gethlog.LevelWarn,
	"error": gethlog.LevelError,
	"crit":  gethlog.LevelCrit,
}

// buildEnv resolves the platform, layout, config file, logger, and every
// component in dependency order (leaves first), matching the supervisor's
// own component dependency graph.
func buildEnv(c *cli.Context) (*env, error) {
	fileCfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	rootOverride := c.String("datadir")
	if rootOverride == "" {
		rootOverride = fileCfg.RootDir
	}
	layout, err := paths.NewLayout(rootOverride)
	if err != nil {
		return nil, fmt.Errorf("resolve layout: %w", err)
	}

	levelName := c.String("log-level")
	if !c.IsSet("log-level") && fileCfg.LogLevel != "" {
		levelName = fileCfg.LogLevel
	}
	level, ok := levelByName[levelName]
	if !ok {
		level = gethlog.LevelInfo
	}
	var color *bool
	if c.Bool("no-color") {
		off := false
		color = &off
	}
	logger, closer, err := applog.Setup(applog.Options{
		AppLogPath: layout.AppLogPath(),
		Verbosity:  level,
		Color:      color,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	platform, err := paths.Platform()
	if err != nil {
		return nil, fmt.Errorf("resolve platform: %w", err)
	}

	remoteURL := fileCfg.RemoteRPCURL
	rpc := rpcclient.New(remoteURL)
	mgr := binmgr.New(layout, platform)
	wal := wallet.New(layout)
	sup := supervisor.New(layout, rpc)

	gethPath := fileCfg.GethBinaryPath
	if gethPath == "" {
		gethPath = mgr.GetPath()
	}
	sup.SetGethPath(gethPath)

	return &env{
		layout:     layout,
		cfg:        fileCfg,
		binmgr:     mgr,
		wallet:     wal,
		rpc:        rpc,
		supervisor: sup,
		log:        logger,
		closeLog:   closer,
	}, nil
}

func (e *env) Close() {
	e.binmgr.Close()
	if e.closeLog != nil {
		e.closeLog()
	}
}

// withEnv wraps a leaf command action with env construction/teardown so
// every subcommand doesn't repeat the same boilerplate.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := buildEnv(c)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(c, e)
	}
}

func configPath(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return filepath.Join(c.String("datadir"), "config.toml")
}
