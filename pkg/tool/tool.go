package tool

import "context"

// CallRequest is a single tool invocation request issued by the reasoning
// loop. It is immutable once submitted; hook-modified arguments produce a new
// invocation, never an edit of the original request.
type CallRequest struct {
	CallID          string                 `json:"call_id"`
	Name            string                 `json:"name"`
	Args            map[string]interface{} `json:"args"`
	ClientInitiated bool                   `json:"client_initiated"`
	PromptID        string                 `json:"prompt_id"`
}

// Result is what an invocation produces on completion.
type Result struct {
	// Content is re-injected into the model conversation.
	Content string
	// Display is the human-facing summary for the transcript.
	Display string
	// OutputFile optionally points at a file holding overflow output.
	OutputFile string
}

// CallResponse is the terminal outcome of a scheduled call, one per request.
type CallResponse struct {
	CallID     string
	Parts      []string
	Display    string
	OutputFile string
	Error      error
	ErrorType  ErrorType
}

// ExecOptions carries the optional collaborators an invocation may use while
// running. All fields may be nil.
type ExecOptions struct {
	// OnOutput receives live output chunks as they arrive.
	OnOutput func(chunk string)
	// OnPid is called once the invocation has a backing OS process.
	OnPid func(pid int)
	// Shell configures shell-backed invocations.
	Shell *ShellConfig
}

// ShellConfig configures how shell-backed tools run their commands.
type ShellConfig struct {
	WorkingDir     string
	UsePty         bool
	TerminalCols   int
	TerminalRows   int
	MaxOutputBytes int
}

// Tool is a named capability the reasoning loop can request.
type Tool interface {
	Name() string
	DisplayName() string
	// ReadOnly reports whether the tool mutates no external state. The
	// scheduler uses it to decide which calls may run concurrently.
	ReadOnly() bool
	OutputMarkdown() bool
	// Build validates args and binds them into an executable Invocation.
	Build(args map[string]interface{}) (Invocation, error)
}

// Invocation is the bound, validated, executable form of a tool call.
type Invocation interface {
	Params() map[string]interface{}
	Description() string
	// Confirmation returns what must be approved before execution, or nil
	// when the call may proceed without approval.
	Confirmation(ctx context.Context) (*Confirmation, error)
	Execute(ctx context.Context, opts ExecOptions) (Result, error)
}

// RemoteTool is implemented by tools backed by an external server. The
// scheduler uses it to enrich hook events with connection metadata.
type RemoteTool interface {
	Tool
	ServerName() string
}
