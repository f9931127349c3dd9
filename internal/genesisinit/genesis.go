// Package genesisinit ensures a miner's chain-data directory is initialized
// from the bundled genesis file before Geth is ever started against it.
package genesisinit

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/marscredit/monorepo/internal/paths"
)

//go:embed genesis.json
var bundled embed.FS

// Error is a fatal genesis-init failure carrying the child process's
// captured output, per spec §4.3/§7.
type Error struct {
	Stdout string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("genesis init failed: %v\nstdout: %s\nstderr: %s", e.Err, e.Stdout, e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// searchPaths returns the fixed genesis resolution order: an explicit
// override, then the development path genesis/genesis.json relative to the
// working directory, then the bundled
// asset embedded into this binary. Only the override and dev path are real
// files on disk; the bundled asset is materialized into a temp file on
// demand by resolveGenesis.
func searchPaths(override string) []string {
	var out []string
	if override != "" {
		out = append(out, override)
	}
	out = append(out, filepath.Join("genesis", "genesis.json"))
	return out
}

// InitMinerDataDir is idempotent: once miners/<i>/geth/chaindata exists it
// returns immediately without touching anything, preserving previously
// synced chain data across restarts.
func InitMinerDataDir(layout *paths.Layout, gethBinaryPath string, minerIndex int, genesisPathOverride string) error {
	logger := log.New("component", "genesisinit", "miner", minerIndex)

	chainData := layout.MinerChainDataDir(minerIndex)
	if _, err := os.Stat(chainData); err == nil {
		logger.Debug("chain data already initialized", "dir", chainData)
		return nil
	}

	dataDir := layout.MinerDataDir(minerIndex)
	for _, dir := range []string{dataDir, layout.MinerKeystoreDir(minerIndex), layout.MinerLogsDir(minerIndex)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	genesisPath, cleanup, err := resolveGenesis(genesisPathOverride)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("initializing chain data", "genesis", genesisPath)
	cmd := exec.Command(gethBinaryPath, "--datadir", dataDir, "init", genesisPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Error{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	}
	logger.Info("chain data initialized", "dir", dataDir)
	return nil
}

// resolveGenesis walks searchPaths, falling back to the binary-embedded
// asset written to a temp file if nothing on disk matches.
func resolveGenesis(override string) (path string, cleanup func(), err error) {
	for _, candidate := range searchPaths(override) {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, func() {}, nil
		}
	}

	data, err := bundled.ReadFile("genesis.json")
	if err != nil {
		return "", nil, fmt.Errorf("read bundled genesis: %w", err)
	}
	f, err := os.CreateTemp("", "marscredit-genesis-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create temp genesis file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write temp genesis file: %w", err)
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
