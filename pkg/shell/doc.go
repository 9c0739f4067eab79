// Package shell executes command lines on behalf of shell-backed tools. Each
// execution streams live output chunks to the caller, buffers a capped copy
// for the final result, and exposes the backing pid so the scheduler can
// report and cancel it. Teardown goes through the proc package with signal
// escalation.
package shell
