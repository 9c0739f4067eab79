package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harun/toolcore/pkg/approval"
	"github.com/harun/toolcore/pkg/tool"
)

// ApprovalPrompter resolves approval requests with an interactive terminal
// prompt.
type ApprovalPrompter struct {
	reader io.Reader
	writer io.Writer
}

// NewApprovalPrompter creates a terminal approval prompter.
func NewApprovalPrompter(reader io.Reader, writer io.Writer) *ApprovalPrompter {
	return &ApprovalPrompter{reader: reader, writer: writer}
}

// RequestApproval implements approval.Handler.
func (p *ApprovalPrompter) RequestApproval(ctx context.Context, req approval.Request) (approval.Decision, error) {
	p.display(req)

	answerChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(p.reader)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				errChan <- err
				return
			}
			errChan <- io.EOF
			return
		}
		answerChan <- scanner.Text()
	}()

	select {
	case answer := <-answerChan:
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return approval.Decision{Outcome: approval.OutcomeApproved}, nil
		default:
			return approval.Decision{Outcome: approval.OutcomeRejected, Reason: "rejected at prompt"}, nil
		}

	case err := <-errChan:
		return approval.Decision{}, err

	case <-ctx.Done():
		fmt.Fprintln(p.writer, "approval wait cancelled")
		return approval.Decision{Outcome: approval.OutcomeCancelled, Reason: "cancelled"}, nil
	}
}

func (p *ApprovalPrompter) display(req approval.Request) {
	fmt.Fprintln(p.writer, "")
	fmt.Fprintf(p.writer, "Approval required for %s\n", req.ToolName)
	if req.Description != "" {
		fmt.Fprintf(p.writer, "  %s\n", req.Description)
	}

	details := req.Details
	if details != nil {
		switch details.Kind {
		case tool.ConfirmExec:
			fmt.Fprintf(p.writer, "  command: %s\n", details.Command)
		case tool.ConfirmEdit:
			fmt.Fprintf(p.writer, "  file: %s\n", details.Path)
			if details.Diff != "" {
				fmt.Fprintln(p.writer, indent(details.Diff, "  "))
			}
		case tool.ConfirmMCP:
			fmt.Fprintf(p.writer, "  server: %s, tool: %s\n", details.ServerName, details.ToolName)
		}
	}

	fmt.Fprint(p.writer, "Proceed? [y/N] ")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
