//go:build windows

package shell

import "os/exec"

// termSignal has no equivalent on Windows; exit codes carry everything.
func termSignal(_ *exec.ExitError) string { return "" }
