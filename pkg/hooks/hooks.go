package hooks

import (
	"context"
	"errors"
	"strings"

	"github.com/harun/toolcore/pkg/tool"
)

// Event names for tool lifecycle hooks.
const (
	EventBeforeTool = "before_tool"
	EventAfterTool  = "after_tool"
)

// System fires policy hooks around tool execution. A nil System is a no-op:
// the scheduler checks for absence once and skips the pipeline entirely.
type System interface {
	// FireBeforeToolEvent runs before-hooks for a call. The returned output
	// may block the call, rewrite its input, or stop the whole batch. A nil
	// output means no hook had anything to say.
	FireBeforeToolEvent(ctx context.Context, toolName string, args map[string]interface{}, server *tool.ServerInfo) (*BeforeToolOutput, error)

	// FireAfterToolEvent runs after-hooks once a call has a result.
	FireAfterToolEvent(ctx context.Context, toolName string, args map[string]interface{}, result tool.Result, server *tool.ServerInfo) (*AfterToolOutput, error)
}

// decision is the merged outcome of the hook scripts that ran for one event.
type decision struct {
	blocked           bool
	reason            string
	stopExecution     bool
	stopReason        string
	modifiedInput     map[string]interface{}
	additionalContext []string
}

// BeforeToolOutput is the aggregate before-hook decision for one call.
type BeforeToolOutput struct {
	d decision
}

// ShouldStopExecution reports whether a hook asked to halt the whole batch.
func (o *BeforeToolOutput) ShouldStopExecution() bool {
	return o != nil && o.d.stopExecution
}

// EffectiveReason is the human-readable reason for a stop or block.
func (o *BeforeToolOutput) EffectiveReason() string {
	if o == nil {
		return ""
	}
	if o.d.stopExecution && o.d.stopReason != "" {
		return o.d.stopReason
	}
	return o.d.reason
}

// BlockingError returns a non-nil error when a hook blocked this call.
func (o *BeforeToolOutput) BlockingError() error {
	if o == nil || !o.d.blocked {
		return nil
	}
	reason := o.d.reason
	if reason == "" {
		reason = "blocked by hook"
	}
	return errors.New(reason)
}

// ModifiedToolInput returns the replacement argument map, or nil when no
// hook rewrote the input.
func (o *BeforeToolOutput) ModifiedToolInput() map[string]interface{} {
	if o == nil {
		return nil
	}
	return o.d.modifiedInput
}

// AdditionalContext returns extra context text supplied by hooks.
func (o *BeforeToolOutput) AdditionalContext() string {
	if o == nil {
		return ""
	}
	return strings.Join(o.d.additionalContext, "\n")
}

// AfterToolOutput is the aggregate after-hook decision for one call.
type AfterToolOutput struct {
	d decision
}

// ShouldStopExecution reports whether a hook asked to halt the whole batch.
func (o *AfterToolOutput) ShouldStopExecution() bool {
	return o != nil && o.d.stopExecution
}

// EffectiveReason is the human-readable reason for a stop or block.
func (o *AfterToolOutput) EffectiveReason() string {
	if o == nil {
		return ""
	}
	if o.d.stopExecution && o.d.stopReason != "" {
		return o.d.stopReason
	}
	return o.d.reason
}

// BlockingError returns a non-nil error when a hook rejected the result.
func (o *AfterToolOutput) BlockingError() error {
	if o == nil || !o.d.blocked {
		return nil
	}
	reason := o.d.reason
	if reason == "" {
		reason = "blocked by hook"
	}
	return errors.New(reason)
}

// AdditionalContext returns extra context to append to the model-facing
// result, or "" when none was supplied.
func (o *AfterToolOutput) AdditionalContext() string {
	if o == nil {
		return ""
	}
	return strings.Join(o.d.additionalContext, "\n")
}
