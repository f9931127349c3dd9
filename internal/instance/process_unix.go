//go:build !windows

package instance

import (
	"os"
	"os/exec"
	"syscall"
)

// setDetached puts the child in its own process group so supervisor exit
// does not orphan-kill children mid-operation.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGracefully sends SIGTERM, the cooperative shutdown signal Geth
// handles on Unix.
func terminateGracefully(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
