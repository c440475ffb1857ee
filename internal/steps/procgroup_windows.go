//go:build windows

package steps

import (
	"os/exec"
	"time"
)

// setProcGroup only sets WaitDelay on Windows, which has no Unix-style
// process groups. exec.CommandContext already kills the child on cancel.
func setProcGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 3 * time.Second
}
