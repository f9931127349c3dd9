// Package config loads the supervisor's optional config.toml, the same
// override-by-file-then-flags pattern cmd/geth uses for its dumpconfig/
// loadConfig pair, scaled down to the handful of knobs this supervisor needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the supervisor's persisted configuration.
type Config struct {
	// RootDir overrides <home>/.marscredit when non-empty.
	RootDir string `toml:"root_dir"`
	// GethBinaryPath overrides the resolved geth binary path when non-empty.
	GethBinaryPath string `toml:"geth_binary_path"`
	// LogLevel is one of trace, debug, info, warn, error, crit.
	LogLevel string `toml:"log_level"`
	// RemoteRPCURL overrides the fixed remote read-only RPC endpoint.
	RemoteRPCURL string `toml:"remote_rpc_url"`
}

// Default returns the base configuration: LogLevel is "info" and every other
// field is empty, meaning "use the component's own default."
func Default() Config {
	return Config{LogLevel: "info"}
}

// Load reads a TOML config file. A missing file is not an error; it returns
// Default(). A present-but-malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
