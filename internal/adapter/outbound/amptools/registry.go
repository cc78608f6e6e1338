// Package amptools exposes the fixed Amazon Managed Prometheus tool
// catalog as a usecase.ToolRegistry.
package amptools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ampgate/ampgate/internal/domain"
)

// Tool names as published over tools/list. Case-sensitive.
const (
	ToolGetAvailableWorkspaces = "GetAvailableWorkspaces"
	ToolExecuteQuery           = "ExecuteQuery"
	ToolExecuteRangeQuery      = "ExecuteRangeQuery"
	ToolListMetrics            = "ListMetrics"
	ToolGetServerInfo          = "GetServerInfo"
)

// MetricsBackend is the outbound port the registry invokes. The concrete
// implementation signs every call with the deployment's execution identity.
type MetricsBackend interface {
	Query(ctx context.Context, region, workspaceID, query, at string) (map[string]interface{}, error)
	RangeQuery(ctx context.Context, region, workspaceID, query, start, end, step string) (map[string]interface{}, error)
	ListMetricNames(ctx context.Context, region, workspaceID string) ([]string, error)
	ListWorkspaces(ctx context.Context, region string) ([]domain.Workspace, error)
	QueryURL(region, workspaceID string) string
}

// Registry implements usecase.ToolRegistry over a MetricsBackend. The
// catalog is fixed at five tools; there is no runtime discovery.
type Registry struct {
	backend       MetricsBackend
	defaultRegion string
	logger        *slog.Logger
}

// NewRegistry creates a Registry. defaultRegion applies when a call omits
// the optional region argument.
func NewRegistry(backend MetricsBackend, defaultRegion string, logger *slog.Logger) *Registry {
	return &Registry{
		backend:       backend,
		defaultRegion: defaultRegion,
		logger:        logger.With("component", "tool_registry"),
	}
}

// List returns the declared tool catalog.
func (r *Registry) List(_ context.Context) ([]mcp.Tool, error) {
	return []mcp.Tool{
		mcp.NewTool(ToolGetAvailableWorkspaces,
			mcp.WithDescription("List available Prometheus workspaces"),
			mcp.WithString("region", mcp.Description("AWS region")),
		),
		mcp.NewTool(ToolExecuteQuery,
			mcp.WithDescription("Execute a PromQL query against Amazon Managed Prometheus at a specific instant in time. Returns current metric values. For time series data over a range, use ExecuteRangeQuery instead."),
			mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Prometheus workspace ID")),
			mcp.WithString("query", mcp.Required(), mcp.Description("PromQL query")),
			mcp.WithString("region", mcp.Description("AWS region")),
			mcp.WithString("time", mcp.Description("Optional timestamp")),
		),
		mcp.NewTool(ToolExecuteRangeQuery,
			mcp.WithDescription("Execute a PromQL range query over a time period. Returns time series data useful for generating graphs or trend analysis."),
			mcp.WithString("workspace_id", mcp.Required()),
			mcp.WithString("query", mcp.Required()),
			mcp.WithString("start", mcp.Required()),
			mcp.WithString("end", mcp.Required()),
			mcp.WithString("step", mcp.Required()),
			mcp.WithString("region"),
		),
		mcp.NewTool(ToolListMetrics,
			mcp.WithDescription("Get a sorted list of all available metric names in the Prometheus server. Useful for discovering metrics before crafting specific queries."),
			mcp.WithString("workspace_id", mcp.Required()),
			mcp.WithString("region"),
		),
		mcp.NewTool(ToolGetServerInfo,
			mcp.WithDescription("Get information about the Prometheus server configuration including URL, AWS region, profile, and service name. Useful for debugging connection issues."),
			mcp.WithString("workspace_id", mcp.Required()),
			mcp.WithString("region"),
		),
	}, nil
}

// Invoke executes the named tool. Unknown names return ToolNotFound;
// missing required arguments and backend failures return
// ToolExecutionFailed; a backend success with no payload returns the empty
// result, which the caller treats as ToolNoResult.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (domain.InvocationResult, error) {
	var (
		payload interface{}
		err     error
	)
	switch name {
	case ToolGetAvailableWorkspaces:
		payload, err = r.getAvailableWorkspaces(ctx, args)
	case ToolExecuteQuery:
		payload, err = r.executeQuery(ctx, args)
	case ToolExecuteRangeQuery:
		payload, err = r.executeRangeQuery(ctx, args)
	case ToolListMetrics:
		payload, err = r.listMetrics(ctx, args)
	case ToolGetServerInfo:
		payload, err = r.getServerInfo(args)
	default:
		return domain.InvocationResult{}, domain.NewToolError(domain.ToolNotFound, name, nil)
	}

	if err != nil {
		r.logger.Warn("Tool invocation failed", slog.String("tool", name), slog.Any("error", err))
		return domain.InvocationResult{}, domain.NewToolError(domain.ToolExecutionFailed, name, err)
	}
	if payload == nil {
		return domain.EmptyResult(), nil
	}
	return domain.ValueResult(payload), nil
}

func (r *Registry) getAvailableWorkspaces(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	region := r.region(args)
	workspaces, err := r.backend.ListWorkspaces(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return map[string]interface{}{
		"workspaces": workspaces,
		"count":      len(workspaces),
		"region":     region,
	}, nil
}

func (r *Registry) executeQuery(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	required, err := stringArgs(args, "workspace_id", "query")
	if err != nil {
		return nil, err
	}
	result, err := r.backend.Query(ctx, r.region(args), required["workspace_id"], required["query"], optionalString(args, "time"))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

func (r *Registry) executeRangeQuery(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	required, err := stringArgs(args, "workspace_id", "query", "start", "end", "step")
	if err != nil {
		return nil, err
	}
	result, err := r.backend.RangeQuery(ctx, r.region(args),
		required["workspace_id"], required["query"],
		required["start"], required["end"], required["step"])
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

func (r *Registry) listMetrics(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	required, err := stringArgs(args, "workspace_id")
	if err != nil {
		return nil, err
	}
	names, err := r.backend.ListMetricNames(ctx, r.region(args), required["workspace_id"])
	if err != nil {
		return nil, fmt.Errorf("list metrics failed: %w", err)
	}
	sort.Strings(names)
	return map[string]interface{}{"metrics": names}, nil
}

func (r *Registry) getServerInfo(args map[string]interface{}) (interface{}, error) {
	required, err := stringArgs(args, "workspace_id")
	if err != nil {
		return nil, err
	}
	region := r.region(args)
	return map[string]interface{}{
		"prometheus_url": r.backend.QueryURL(region, required["workspace_id"]),
		"aws_region":     region,
		"service_name":   "aps",
		"workspace_id":   required["workspace_id"],
	}, nil
}

func (r *Registry) region(args map[string]interface{}) string {
	if region := optionalString(args, "region"); region != "" {
		return region
	}
	return r.defaultRegion
}

// stringArgs extracts the named arguments, failing on the first one that is
// absent or not a non-empty string.
func stringArgs(args map[string]interface{}, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := args[name].(string)
		if !ok || v == "" {
			return nil, fmt.Errorf("missing required argument %q", name)
		}
		out[name] = v
	}
	return out, nil
}

func optionalString(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}
