// Package paths resolves the deterministic on-disk layout used by every
// other component. It is a pure mapping from host identity and miner index
// to filesystem locations; nothing here touches disk.
package paths

import (
	"fmt"
	"path/filepath"
	"runtime"

	homedir "github.com/mitchellh/go-homedir"
)

// Key identifies a supported platform/arch combination.
type Key string

const (
	DarwinArm64 Key = "darwin-arm64"
	DarwinX64   Key = "darwin-x64"
	Win32X64    Key = "win32-x64"
	Win32Arm64  Key = "win32-arm64"
	LinuxX64    Key = "linux-x64"
	LinuxArm64  Key = "linux-arm64"
)

// errUnsupported is wrapped into the error Platform returns when the host
// OS/arch has no mapping.
var errUnsupported = fmt.Errorf("unsupported platform")

// Platform resolves the current host's platform key from runtime.GOOS and
// runtime.GOARCH. The result is immutable for the process lifetime.
func Platform() (Key, error) {
	return platformFor(runtime.GOOS, runtime.GOARCH)
}

func platformFor(goos, goarch string) (Key, error) {
	switch goos {
	case "darwin":
		switch goarch {
		case "arm64":
			return DarwinArm64, nil
		case "amd64":
			return DarwinX64, nil
		}
	case "windows":
		switch goarch {
		case "amd64":
			return Win32X64, nil
		case "arm64":
			return Win32Arm64, nil
		}
	case "linux":
		switch goarch {
		case "amd64":
			return LinuxX64, nil
		case "arm64":
			return LinuxArm64, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", errUnsupported, goos, goarch)
}

// IsWindows reports whether k targets a Windows host.
func (k Key) IsWindows() bool {
	return k == Win32X64 || k == Win32Arm64
}

// Layout resolves every path under a single root directory,
// "<home>/.marscredit" by default.
type Layout struct {
	Root string
}

// NewLayout resolves the default layout rooted at <home>/.marscredit. An
// empty override uses the host home directory; a non-empty override is used
// verbatim (tests and the config file both rely on this).
func NewLayout(rootOverride string) (*Layout, error) {
	if rootOverride != "" {
		return &Layout{Root: rootOverride}, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Layout{Root: filepath.Join(home, ".marscredit")}, nil
}

// GethBinaryName is "geth.exe" on Windows, "geth" elsewhere.
func GethBinaryName(k Key) string {
	if k.IsWindows() {
		return "geth.exe"
	}
	return "geth"
}

func (l *Layout) BinDir() string { return filepath.Join(l.Root, "bin") }

func (l *Layout) GethBinaryPath(k Key) string {
	return filepath.Join(l.BinDir(), GethBinaryName(k))
}

func (l *Layout) MinersDir() string { return filepath.Join(l.Root, "miners") }

func (l *Layout) MinerDataDir(i int) string {
	return filepath.Join(l.MinersDir(), fmt.Sprint(i))
}

func (l *Layout) MinerKeystoreDir(i int) string {
	return filepath.Join(l.MinerDataDir(i), "keystore")
}

func (l *Layout) MinerLogsDir(i int) string {
	return filepath.Join(l.MinerDataDir(i), "logs")
}

func (l *Layout) MinerPidPath(i int) string {
	return filepath.Join(l.MinerDataDir(i), "geth.pid")
}

func (l *Layout) MinerChainDataDir(i int) string {
	return filepath.Join(l.MinerDataDir(i), "geth", "chaindata")
}

func (l *Layout) WalletEncPath() string {
	return filepath.Join(l.Root, "wallet.enc")
}

func (l *Layout) MiningAddressPath() string {
	return filepath.Join(l.Root, "mining_address.txt")
}

func (l *Layout) LogsDir() string {
	return filepath.Join(l.Root, "logs")
}

func (l *Layout) AppLogPath() string {
	return filepath.Join(l.LogsDir(), "app.log")
}

// PortTriple is the core §3 invariant: the same index always owns the same
// three ports, so collisions are detectable and restarts resume cleanly.
type PortTriple struct {
	HTTP int
	WS   int
	P2P  int
}

func Ports(minerIndex int) PortTriple {
	return PortTriple{
		HTTP: 8546 + 2*(minerIndex-1),
		WS:   8547 + 2*(minerIndex-1),
		P2P:  30304 + (minerIndex - 1),
	}
}
