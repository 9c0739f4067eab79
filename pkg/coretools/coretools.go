package coretools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harun/toolcore/pkg/shell"
	"github.com/harun/toolcore/pkg/tool"
)

// Options configures core tool registration.
type Options struct {
	WorkspaceRoot string
	Shell         *shell.Service
}

// Register adds the baseline filesystem and shell tools to the registry.
func Register(registry *tool.Registry, opts Options) error {
	if registry == nil {
		return errors.New("tool registry is required")
	}

	tools := []*tool.Definition{
		runShellCommandTool(opts),
		readFileTool(opts),
		writeFileTool(opts),
		editFileTool(opts),
	}

	for _, def := range tools {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", def.ToolName, err)
		}
	}
	return nil
}

func runShellCommandTool(opts Options) *tool.Definition {
	return &tool.Definition{
		ToolName:        "run_shell_command",
		ToolDisplayName: "Shell",
		Description:     "Execute a shell command in the workspace and return its output.",
		Mutating:        true,
		Parameters: []tool.Parameter{
			{Name: "command", Type: "string", Description: "Command line to execute", Required: true},
			{Name: "cwd", Type: "string", Description: "Working directory (relative to workspace)", Required: false},
			{Name: "timeout", Type: "number", Description: "Timeout in seconds", Required: false},
		},
		Describe: func(args map[string]interface{}) string {
			command, _ := args["command"].(string)
			return command
		},
		Confirm: func(args map[string]interface{}) *tool.Confirmation {
			command, _ := args["command"].(string)
			return &tool.Confirmation{
				Kind:        tool.ConfirmExec,
				Title:       "Run shell command",
				Command:     command,
				RootCommand: rootCommand(command),
			}
		},
		Handler: func(ctx context.Context, args map[string]interface{}, execOpts tool.ExecOptions) (tool.Result, error) {
			if opts.Shell == nil {
				return tool.Result{}, errors.New("shell service is not configured")
			}

			command, _ := args["command"].(string)
			command = strings.TrimSpace(command)
			if command == "" {
				return tool.Result{}, errors.New("command is required")
			}

			workspaceRoot, err := resolveWorkspaceRoot(opts)
			if err != nil {
				return tool.Result{}, err
			}
			cwd := workspaceRoot
			if raw, ok := args["cwd"].(string); ok && strings.TrimSpace(raw) != "" {
				cwd, err = resolvePathInWorkspace(workspaceRoot, raw)
				if err != nil {
					return tool.Result{}, err
				}
			}

			runCtx := ctx
			cancel := func() {}
			if timeout := parseDurationSeconds(args["timeout"], 0); timeout > 0 {
				runCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			defer cancel()

			shellOpts := shell.Options{WorkingDir: cwd}
			if execOpts.Shell != nil {
				shellOpts.UsePty = execOpts.Shell.UsePty
				shellOpts.Cols = execOpts.Shell.TerminalCols
				shellOpts.Rows = execOpts.Shell.TerminalRows
				shellOpts.MaxOutputBytes = execOpts.Shell.MaxOutputBytes
			}

			handle := opts.Shell.Execute(runCtx, command, execOpts.OnOutput, shellOpts)
			if execOpts.OnPid != nil && handle.Pid() > 0 {
				execOpts.OnPid(handle.Pid())
			}

			outcome := <-handle.Result()

			content := outcome.Output
			if content == "" {
				content = "(no output)"
			}
			if outcome.ExitCode != 0 {
				detail := fmt.Sprintf("exit code %d", outcome.ExitCode)
				if outcome.Signal != "" {
					detail = fmt.Sprintf("terminated by %s", outcome.Signal)
				}
				content = fmt.Sprintf("%s\n[command failed: %s]", content, detail)
			}

			display := fmt.Sprintf("$ %s (exit %d)", command, outcome.ExitCode)
			return tool.Result{Content: content, Display: display}, nil
		},
	}
}

func readFileTool(opts Options) *tool.Definition {
	return &tool.Definition{
		ToolName:        "read_file",
		ToolDisplayName: "Read File",
		Description:     "Read a file from the workspace.",
		Markdown:        true,
		Parameters: []tool.Parameter{
			{Name: "path", Type: "string", Description: "Relative file path", Required: true},
			{Name: "max_bytes", Type: "number", Description: "Maximum bytes to read", Required: false, Default: float64(200000)},
		},
		Describe: func(args map[string]interface{}) string {
			path, _ := args["path"].(string)
			return "read " + path
		},
		Handler: func(_ context.Context, args map[string]interface{}, _ tool.ExecOptions) (tool.Result, error) {
			workspaceRoot, err := resolveWorkspaceRoot(opts)
			if err != nil {
				return tool.Result{}, err
			}
			pathValue, _ := args["path"].(string)
			target, err := resolvePathInWorkspace(workspaceRoot, pathValue)
			if err != nil {
				return tool.Result{}, err
			}

			maxBytes := int64(200000)
			if raw, ok := args["max_bytes"].(float64); ok && raw > 0 {
				maxBytes = int64(raw)
			}

			data, truncated, err := readFileWithLimit(target, maxBytes)
			if err != nil {
				if os.IsNotExist(err) {
					return tool.Result{}, fmt.Errorf("file not found: %s", pathValue)
				}
				return tool.Result{}, err
			}

			content := string(data)
			if truncated {
				content += shell.TruncationMarker
			}
			return tool.Result{
				Content: content,
				Display: fmt.Sprintf("Read %d bytes from %s", len(data), pathValue),
			}, nil
		},
	}
}

func writeFileTool(opts Options) *tool.Definition {
	return &tool.Definition{
		ToolName:        "write_file",
		ToolDisplayName: "Write File",
		Description:     "Write content to a file in the workspace.",
		Mutating:        true,
		Parameters: []tool.Parameter{
			{Name: "path", Type: "string", Description: "Relative file path", Required: true},
			{Name: "content", Type: "string", Description: "File content", Required: true},
			{Name: "append", Type: "boolean", Description: "Append instead of overwrite", Required: false},
		},
		Describe: func(args map[string]interface{}) string {
			path, _ := args["path"].(string)
			return "write " + path
		},
		Confirm: func(args map[string]interface{}) *tool.Confirmation {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			return &tool.Confirmation{
				Kind:  tool.ConfirmEdit,
				Title: "Write file",
				Path:  path,
				Diff:  previewDiff("", content),
			}
		},
		Handler: func(_ context.Context, args map[string]interface{}, _ tool.ExecOptions) (tool.Result, error) {
			workspaceRoot, err := resolveWorkspaceRoot(opts)
			if err != nil {
				return tool.Result{}, err
			}
			pathValue, _ := args["path"].(string)
			target, err := resolvePathInWorkspace(workspaceRoot, pathValue)
			if err != nil {
				return tool.Result{}, err
			}
			content, _ := args["content"].(string)
			appendMode, _ := args["append"].(bool)

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return tool.Result{}, err
			}

			flag := os.O_CREATE | os.O_WRONLY
			if appendMode {
				flag |= os.O_APPEND
			} else {
				flag |= os.O_TRUNC
			}
			file, err := os.OpenFile(target, flag, 0644)
			if err != nil {
				return tool.Result{}, err
			}
			if _, err := file.WriteString(content); err != nil {
				file.Close()
				return tool.Result{}, err
			}
			if err := file.Close(); err != nil {
				return tool.Result{}, err
			}

			return tool.Result{
				Content: fmt.Sprintf("Wrote %d bytes to %s", len(content), pathValue),
				Display: fmt.Sprintf("Wrote %s", pathValue),
			}, nil
		},
	}
}

func editFileTool(opts Options) *tool.Definition {
	return &tool.Definition{
		ToolName:        "edit_file",
		ToolDisplayName: "Edit File",
		Description:     "Replace text in a workspace file.",
		Mutating:        true,
		Parameters: []tool.Parameter{
			{Name: "path", Type: "string", Description: "Relative file path", Required: true},
			{Name: "search", Type: "string", Description: "Text to search for", Required: true},
			{Name: "replace", Type: "string", Description: "Replacement text", Required: true},
			{Name: "replace_all", Type: "boolean", Description: "Replace all occurrences", Required: false},
		},
		Describe: func(args map[string]interface{}) string {
			path, _ := args["path"].(string)
			return "edit " + path
		},
		Confirm: func(args map[string]interface{}) *tool.Confirmation {
			path, _ := args["path"].(string)
			search, _ := args["search"].(string)
			replace, _ := args["replace"].(string)
			return &tool.Confirmation{
				Kind:  tool.ConfirmEdit,
				Title: "Edit file",
				Path:  path,
				Diff:  previewDiff(search, replace),
			}
		},
		Handler: func(_ context.Context, args map[string]interface{}, _ tool.ExecOptions) (tool.Result, error) {
			workspaceRoot, err := resolveWorkspaceRoot(opts)
			if err != nil {
				return tool.Result{}, err
			}
			pathValue, _ := args["path"].(string)
			target, err := resolvePathInWorkspace(workspaceRoot, pathValue)
			if err != nil {
				return tool.Result{}, err
			}
			search, _ := args["search"].(string)
			replace, _ := args["replace"].(string)
			replaceAll, _ := args["replace_all"].(bool)
			if search == "" {
				return tool.Result{}, errors.New("search is required")
			}

			data, err := os.ReadFile(target)
			if err != nil {
				if os.IsNotExist(err) {
					return tool.Result{}, fmt.Errorf("file not found: %s", pathValue)
				}
				return tool.Result{}, err
			}
			content := string(data)

			occurrences := 0
			var updated string
			if replaceAll {
				occurrences = strings.Count(content, search)
				updated = strings.ReplaceAll(content, search, replace)
			} else if idx := strings.Index(content, search); idx >= 0 {
				occurrences = 1
				updated = content[:idx] + replace + content[idx+len(search):]
			}
			if occurrences == 0 {
				return tool.Result{}, errors.New("search text not found")
			}

			if err := os.WriteFile(target, []byte(updated), 0644); err != nil {
				return tool.Result{}, err
			}

			return tool.Result{
				Content: fmt.Sprintf("Replaced %d occurrence(s) in %s", occurrences, pathValue),
				Display: fmt.Sprintf("Edited %s", pathValue),
			}, nil
		},
	}
}

func rootCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// previewDiff renders a minimal removed/added preview for approval prompts.
func previewDiff(before, after string) string {
	var b strings.Builder
	for _, line := range splitPreviewLines(before) {
		b.WriteString("- " + line + "\n")
	}
	for _, line := range splitPreviewLines(after) {
		b.WriteString("+ " + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func splitPreviewLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(content, "\n"), "\n")
}

func resolveWorkspaceRoot(opts Options) (string, error) {
	if strings.TrimSpace(opts.WorkspaceRoot) != "" {
		return filepath.Clean(opts.WorkspaceRoot), nil
	}
	return "", errors.New("workspace root is not configured")
}

func resolvePathInWorkspace(workspaceRoot, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", errors.New("path is required")
	}
	if strings.Contains(pathValue, "://") {
		return "", errors.New("path must be a local file")
	}
	candidate := pathValue
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workspaceRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(workspaceRoot, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside workspace root", pathValue)
	}
	return candidate, nil
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	if limit <= 0 {
		limit = 200000
	}
	buf := make([]byte, limit)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, false, err
	}

	truncated := false
	extra := make([]byte, 1)
	if m, _ := file.Read(extra); m > 0 {
		truncated = true
	}
	return buf[:n], truncated, nil
}

func parseDurationSeconds(value interface{}, fallback time.Duration) time.Duration {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return fallback
}
