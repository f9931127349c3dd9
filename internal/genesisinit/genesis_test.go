package genesisinit

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/marscredit/monorepo/internal/paths"
)

// writeFakeGeth writes a script standing in for the real geth binary. It
// accepts "--datadir <dir> init <genesis>" and creates the chaindata marker
// directory exactly the way a real init would.
func writeFakeGeth(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var script, name string
	if runtime.GOOS == "windows" {
		name = filepath.Join(dir, "fakegeth.bat")
		script = "@echo off\r\nmkdir \"%2%\\geth\\chaindata\"\r\n"
	} else {
		name = filepath.Join(dir, "fakegeth.sh")
		script = "#!/bin/sh\ndatadir=$2\nmkdir -p \"$datadir/geth/chaindata\"\n"
	}
	if err := os.WriteFile(name, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestInitMinerDataDirIdempotent(t *testing.T) {
	root := t.TempDir()
	layout, err := paths.NewLayout(root)
	if err != nil {
		t.Fatal(err)
	}
	geth := writeFakeGeth(t)

	if err := InitMinerDataDir(layout, geth, 1, ""); err != nil {
		t.Fatalf("first init: %v", err)
	}
	chainData := layout.MinerChainDataDir(1)
	if _, err := os.Stat(chainData); err != nil {
		t.Fatalf("chaindata dir missing after init: %v", err)
	}

	// Drop a marker file into chaindata so we can tell whether the
	// second call touched it; an idempotent no-op must leave it alone.
	marker := filepath.Join(chainData, "SENTINEL")
	if err := os.WriteFile(marker, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := InitMinerDataDir(layout, geth, 1, ""); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("idempotent init must not touch existing chain data: %v", err)
	}
}

func TestInitMinerDataDirCreatesSubdirs(t *testing.T) {
	root := t.TempDir()
	layout, err := paths.NewLayout(root)
	if err != nil {
		t.Fatal(err)
	}
	geth := writeFakeGeth(t)

	if err := InitMinerDataDir(layout, geth, 2, ""); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{layout.MinerDataDir(2), layout.MinerKeystoreDir(2), layout.MinerLogsDir(2)} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
		}
	}
}

func TestResolveGenesisFallsBackToBundled(t *testing.T) {
	path, cleanup, err := resolveGenesis("")
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("resolved genesis path does not exist: %v", err)
	}
}

func TestResolveGenesisPrefersOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom-genesis.json")
	if err := os.WriteFile(override, []byte(`{"config":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	path, cleanup, err := resolveGenesis(override)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if path != override {
		t.Errorf("expected override path %s, got %s", override, path)
	}
}

func TestInitMinerDataDirGenesisInitFailed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake-failure script is unix-specific")
	}
	root := t.TempDir()
	layout, err := paths.NewLayout(root)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	name := filepath.Join(dir, "fakegeth.sh")
	script := "#!/bin/sh\necho boom 1>&2\nexit 1\n"
	if err := os.WriteFile(name, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	err = InitMinerDataDir(layout, name, 3, "")
	if err == nil {
		t.Fatal("expected GenesisInitFailed error")
	}
	var gerr *Error
	if !asGenesisError(err, &gerr) {
		t.Fatalf("expected *genesisinit.Error, got %T: %v", err, err)
	}
	if gerr.Stderr == "" {
		t.Error("expected captured stderr")
	}
}

func asGenesisError(err error, target **Error) bool {
	g, ok := err.(*Error)
	if ok {
		*target = g
	}
	return ok
}
