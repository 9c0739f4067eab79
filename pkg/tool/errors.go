package tool

import "errors"

// ErrorType classifies how a tool call failed. It travels on the terminal
// CallResponse so the reasoning loop can react in-context.
type ErrorType string

const (
	// ErrorInvalidParams marks a pre-execution argument validation failure.
	ErrorInvalidParams ErrorType = "invalid_tool_params"
	// ErrorExecutionFailed marks a tool or hook failure at runtime.
	ErrorExecutionFailed ErrorType = "execution_failed"
	// ErrorNotRegistered marks a request naming an unknown tool.
	ErrorNotRegistered ErrorType = "tool_not_registered"
	// ErrorStopExecution marks a hook-requested whole-batch abort.
	ErrorStopExecution ErrorType = "stop_execution"
	// ErrorUnhandled marks a recovered invocation panic.
	ErrorUnhandled ErrorType = "unhandled_exception"
	// ErrorCancelled marks a call terminated by the batch signal.
	ErrorCancelled ErrorType = "cancelled"
)

var (
	// ErrToolNotFound is returned when a registry lookup misses.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned when a tool name conflicts.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrInvalidArguments is returned by Build when args fail schema
	// validation.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)
