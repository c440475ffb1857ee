//go:build !windows

package steps

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcGroup runs cmd in its own process group so that cancellation kills
// the whole shell pipeline, not only the direct child.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	cmd.WaitDelay = 3 * time.Second
}
