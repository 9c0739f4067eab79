//go:build windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// platformSignalGroup terminates the full process tree. Windows has no
// process-group signal, so taskkill /T is the closest primitive.
func platformSignalGroup(pid int, graceful bool) error {
	args := []string{"/pid", strconv.Itoa(pid), "/t"}
	if !graceful {
		args = append(args, "/f")
	}
	return exec.Command("taskkill", args...).Run()
}

// platformSignalPid terminates the leader process only.
func platformSignalPid(pid int, graceful bool) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}

// GroupAttr is a no-op on Windows; taskkill /t handles the tree.
func GroupAttr() *syscall.SysProcAttr {
	return nil
}
