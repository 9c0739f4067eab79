package tool

// ConfirmationKind discriminates what kind of approval a call needs.
type ConfirmationKind string

const (
	// ConfirmExec asks for approval of a shell command.
	ConfirmExec ConfirmationKind = "exec"
	// ConfirmEdit asks for approval of a file modification.
	ConfirmEdit ConfirmationKind = "edit"
	// ConfirmMCP asks for approval of a remote server tool call.
	ConfirmMCP ConfirmationKind = "mcp"
	// ConfirmInfo asks for a generic yes/no with a description only.
	ConfirmInfo ConfirmationKind = "info"
)

// Confirmation describes what must be approved before a call executes. It
// carries only the data needed to render a prompt; rendering itself lives
// with the approval gate's handler.
type Confirmation struct {
	Kind  ConfirmationKind `json:"kind"`
	Title string           `json:"title"`

	// Exec confirmations.
	Command     string `json:"command,omitempty"`
	RootCommand string `json:"root_command,omitempty"`

	// Edit confirmations.
	Path string `json:"path,omitempty"`
	Diff string `json:"diff,omitempty"`

	// MCP confirmations.
	ServerName string `json:"server_name,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}
