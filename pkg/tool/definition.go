package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Parameter describes one argument of a definition-backed tool.
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Handler is the function a definition-backed tool runs once its arguments
// have been validated and bound.
type Handler func(ctx context.Context, args map[string]interface{}, opts ExecOptions) (Result, error)

// ConfirmFunc decides whether bound arguments need approval before running.
// Returning nil means no approval is required.
type ConfirmFunc func(args map[string]interface{}) *Confirmation

// Definition declares a tool from metadata, parameters, and a handler. It
// implements Tool: Build compiles the parameters into a JSON schema once and
// validates every argument map against it.
type Definition struct {
	ToolName        string
	ToolDisplayName string
	Description     string
	Markdown        bool
	// Mutating marks tools that change external state; they never run
	// concurrently with other mutating calls.
	Mutating   bool
	Parameters []Parameter
	Confirm    ConfirmFunc
	Handler    Handler
	// Describe renders a short human description of a bound call. Optional;
	// the tool name is used when absent.
	Describe func(args map[string]interface{}) string

	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
}

// Name implements Tool.
func (d *Definition) Name() string { return d.ToolName }

// DisplayName implements Tool.
func (d *Definition) DisplayName() string {
	if d.ToolDisplayName != "" {
		return d.ToolDisplayName
	}
	return d.ToolName
}

// ReadOnly implements Tool.
func (d *Definition) ReadOnly() bool { return !d.Mutating }

// OutputMarkdown implements Tool.
func (d *Definition) OutputMarkdown() bool { return d.Markdown }

// Validate checks the definition is complete enough to register.
func (d *Definition) Validate() error {
	if d.ToolName == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if d.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", d.ToolName)
	}
	if d.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil for %s", d.ToolName)
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range d.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty in %s", d.ToolName)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s.%s", param.Type, d.ToolName, param.Name)
		}
	}
	return nil
}

// Build implements Tool. It validates args against the generated schema and
// binds them into an Invocation.
func (d *Definition) Build(args map[string]interface{}) (Invocation, error) {
	if err := d.ensureSchema(); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := d.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			details = append(details, verr.String())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, details)
	}

	bound := make(map[string]interface{}, len(args))
	for k, v := range args {
		bound[k] = v
	}
	for _, param := range d.Parameters {
		if _, ok := bound[param.Name]; !ok && param.Default != nil {
			bound[param.Name] = param.Default
		}
	}

	return &definitionInvocation{def: d, args: bound}, nil
}

// ensureSchema compiles the parameter schema exactly once; concurrent Build
// calls share the compiled result.
func (d *Definition) ensureSchema() error {
	d.schemaOnce.Do(func() {
		properties := make(map[string]interface{}, len(d.Parameters))
		required := []string{}
		for _, param := range d.Parameters {
			paramSchema := map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Default != nil {
				paramSchema["default"] = param.Default
			}
			properties[param.Name] = paramSchema
			if param.Required {
				required = append(required, param.Name)
			}
		}

		schemaMap := map[string]interface{}{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           properties,
		}
		if len(required) > 0 {
			schemaMap["required"] = required
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
		if err != nil {
			d.schemaErr = fmt.Errorf("failed to generate schema for %s: %w", d.ToolName, err)
			return
		}
		d.schema = schema
	})
	return d.schemaErr
}

type definitionInvocation struct {
	def  *Definition
	args map[string]interface{}
}

func (inv *definitionInvocation) Params() map[string]interface{} { return inv.args }

func (inv *definitionInvocation) Description() string {
	if inv.def.Describe != nil {
		return inv.def.Describe(inv.args)
	}
	return inv.def.ToolName
}

func (inv *definitionInvocation) Confirmation(_ context.Context) (*Confirmation, error) {
	if inv.def.Confirm == nil {
		return nil, nil
	}
	return inv.def.Confirm(inv.args), nil
}

func (inv *definitionInvocation) Execute(ctx context.Context, opts ExecOptions) (Result, error) {
	return inv.def.Handler(ctx, inv.args, opts)
}
