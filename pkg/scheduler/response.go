package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harun/toolcore/pkg/tool"
)

// successResponse assembles the terminal response of a successful call. The
// model-facing part is never empty, and a hook-adjusted input is disclosed
// by naming the modified keys.
func successResponse(req tool.CallRequest, content string, result tool.Result, modifiedKeys []string) tool.CallResponse {
	if content == "" {
		content = fmt.Sprintf("%s completed with no output", req.Name)
	}
	parts := []string{content}
	if len(modifiedKeys) > 0 {
		parts = append(parts, "[input adjusted by hook: "+strings.Join(modifiedKeys, ", ")+"]")
	}

	display := result.Display
	if display == "" {
		display = content
	}

	return tool.CallResponse{
		CallID:     req.CallID,
		Parts:      parts,
		Display:    display,
		OutputFile: result.OutputFile,
	}
}

// errorResponse assembles an error terminal response. Even failures carry a
// non-empty model-facing part so the reasoning loop can react in-context.
func errorResponse(req tool.CallRequest, errType tool.ErrorType, err error) tool.CallResponse {
	return tool.CallResponse{
		CallID:    req.CallID,
		Parts:     []string{fmt.Sprintf("Tool %q failed: %v", req.Name, err)},
		Display:   err.Error(),
		Error:     err,
		ErrorType: errType,
	}
}

// cancelResponse assembles a cancelled terminal response.
func cancelResponse(req tool.CallRequest, reason string) tool.CallResponse {
	return tool.CallResponse{
		CallID:    req.CallID,
		Parts:     []string{fmt.Sprintf("Tool %q was not run: %s", req.Name, reason)},
		Display:   reason,
		Error:     errors.New(reason),
		ErrorType: tool.ErrorCancelled,
	}
}
