//go:build !windows

package shell

import (
	"os/exec"
	"syscall"
)

// termSignal names the signal that terminated the command, or "" if it
// exited normally.
func termSignal(exitErr *exec.ExitError) string {
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return ""
	}
	return status.Signal().String()
}
