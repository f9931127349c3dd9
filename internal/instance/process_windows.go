//go:build windows

package instance

import (
	"os"
	"os/exec"
)

// setDetached is a no-op on Windows; os/exec has no process-group detach
// primitive equivalent to Setpgid, and Geth tolerates living in the parent's
// job object for the supervisor's lifetime.
func setDetached(cmd *exec.Cmd) {}

// terminateGracefully has no cooperative-termination signal available on
// Windows through os.Process, so termination here is best-effort graceful,
// else forced: Kill is issued immediately and the same 5s forced-kill
// deadline in Stop still applies uniformly afterward.
func terminateGracefully(p *os.Process) error {
	return p.Kill()
}
