// Package tool defines the contract between the reasoning loop and the
// execution core: tool call requests and responses, the Tool and Invocation
// interfaces, schema-validated tool definitions, and the registry that
// resolves tool names to implementations.
package tool
