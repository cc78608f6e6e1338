package domain

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool descriptors served over tools/list use mcp.Tool directly
// (marshals to the MCP wire shape: name, description, inputSchema).
// Content blocks returned by tools/call use mcp.Content / mcp.TextContent.

// Workspace describes one Amazon Managed Prometheus workspace the
// GetAvailableWorkspaces tool can report.
type Workspace struct {
	ID     string `json:"workspace_id"`
	Alias  string `json:"alias"`
	Status string `json:"status"`
	URL    string `json:"prometheus_url"`
}

// ToolErrorKind classifies tool invocation failures.
type ToolErrorKind string

const (
	// ToolNotFound means the requested tool name is not in the registry.
	ToolNotFound ToolErrorKind = "not_found"
	// ToolExecutionFailed means the underlying capability raised during execution.
	ToolExecutionFailed ToolErrorKind = "execution_failed"
	// ToolNoResult means the capability completed but produced no output.
	// This is an error, not a success: a silent empty result historically
	// masked missing-required-argument bugs.
	ToolNoResult ToolErrorKind = "no_result"
)

// ToolError is the error type returned by tool registry invocations.
type ToolError struct {
	Kind ToolErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Kind, e.Err)
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Kind)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError builds a ToolError for the given tool and kind.
func NewToolError(kind ToolErrorKind, tool string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Err: err}
}

// AsToolError unwraps err into a *ToolError if possible.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	ok := errors.As(err, &te)
	return te, ok
}

// resultKind tags the InvocationResult union.
type resultKind int

const (
	resultEmpty resultKind = iota
	resultContent
	resultValue
)

// InvocationResult is the tagged union of shapes a tool invocation can
// produce: a ready-made content-block list (optionally with metadata), a
// single structured value, or nothing at all. Each variant has an explicit
// constructor; the normalizer converts all of them to one wire shape.
type InvocationResult struct {
	kind    resultKind
	content []mcp.Content
	meta    map[string]interface{}
	value   interface{}
}

// ContentResult wraps a list of content blocks, with optional metadata.
func ContentResult(blocks []mcp.Content, meta map[string]interface{}) InvocationResult {
	return InvocationResult{kind: resultContent, content: blocks, meta: meta}
}

// ValueResult wraps a single structured value (decoded JSON).
func ValueResult(v interface{}) InvocationResult {
	return InvocationResult{kind: resultValue, value: v}
}

// EmptyResult is the sentinel "no result" outcome, distinct from success.
func EmptyResult() InvocationResult {
	return InvocationResult{kind: resultEmpty}
}

// IsEmpty reports whether the invocation produced no output.
func (r InvocationResult) IsEmpty() bool { return r.kind == resultEmpty }

// Content returns the content-list variant payload, if that is the variant.
func (r InvocationResult) Content() ([]mcp.Content, bool) {
	return r.content, r.kind == resultContent
}

// Meta returns metadata attached to a content-list result, if any.
func (r InvocationResult) Meta() map[string]interface{} { return r.meta }

// Value returns the structured-value variant payload, if that is the variant.
func (r InvocationResult) Value() (interface{}, bool) {
	return r.value, r.kind == resultValue
}
