// Package proc terminates OS processes and process groups with a
// graceful-then-forceful escalation strategy. It is the cleanup backend for
// shell executions: cancellation handlers call KillProcessGroup exactly once
// per tool call, and the call is safe against processes that already exited.
package proc
