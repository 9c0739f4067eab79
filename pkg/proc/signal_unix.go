//go:build !windows

package proc

import "syscall"

// platformSignalGroup signals the whole process group via the negative pid.
func platformSignalGroup(pid int, graceful bool) error {
	return syscall.Kill(-pid, chooseSignal(graceful))
}

// platformSignalPid signals the leader process only.
func platformSignalPid(pid int, graceful bool) error {
	return syscall.Kill(pid, chooseSignal(graceful))
}

func chooseSignal(graceful bool) syscall.Signal {
	if graceful {
		return syscall.SIGTERM
	}
	return syscall.SIGKILL
}

// GroupAttr returns the SysProcAttr that places a child in its own process
// group, so the whole command tree can be torn down with one signal.
func GroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
