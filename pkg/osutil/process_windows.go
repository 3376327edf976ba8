//go:build windows

package osutil

import (
	"os/exec"
)

// SetProcessGroup is a no-op on Windows; there is no equivalent of Setpgid
// for foreground processes.
func SetProcessGroup(_ *exec.Cmd) {
}

// KillProcessGroup terminates the main process. Children may keep running
// since Windows has no Unix-style process groups.
func KillProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
