package usecase

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ampgate/ampgate/internal/domain"
)

// ToolRegistry is the uniform view the dispatcher has over the backend's
// tool-execution capability. Implementations adapt whatever concrete
// registry exists; the dispatcher never probes the backend directly.
type ToolRegistry interface {
	// List enumerates the tool descriptors fresh on every call.
	// Order is registry-defined and stable.
	List(ctx context.Context) ([]mcp.Tool, error)

	// Invoke executes the named tool with the given arguments.
	// Unknown names fail with domain.ToolNotFound; execution failures with
	// domain.ToolExecutionFailed. A completed invocation that produced no
	// output returns the empty-variant InvocationResult.
	Invoke(ctx context.Context, name string, args map[string]interface{}) (domain.InvocationResult, error)
}
