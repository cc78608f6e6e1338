package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ampgate/ampgate/internal/domain"
	"github.com/ampgate/ampgate/pkg/shared/mcpjsonrpc"
)

// MCP protocol version advertised by initialize.
const ProtocolVersion = "2024-11-05"

// JSON-RPC methods handled by the dispatcher.
const (
	MethodInitialize              = "initialize"
	MethodInitializedNotification = "notifications/initialized"
	MethodToolsList               = "tools/list"
	MethodToolsCall               = "tools/call"
)

// ServerInfo identifies this server in the initialize handshake.
type ServerInfo struct {
	Name    string
	Version string
}

// Dispatcher routes one decoded JSON-RPC request to its handler and shapes
// the response envelope. It is stateless across requests; the only
// collaborator is the tool registry.
type Dispatcher struct {
	registry ToolRegistry
	server   ServerInfo
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a Dispatcher serving the given registry.
func NewDispatcher(registry ToolRegistry, server ServerInfo, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		server:   server,
		logger:   logger.With("component", "dispatcher"),
		tracer:   otel.Tracer("github.com/ampgate/ampgate/internal/usecase"),
	}
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfoResult       `json:"serverInfo"`
}

type serverInfoResult struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type listToolsResult struct {
	Tools []mcp.Tool `json:"tools"`
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Dispatch handles a single request. The returned response always carries
// version "2.0"; for non-notification methods its id echoes the request id
// exactly (same type and value).
func (d *Dispatcher) Dispatch(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	ctx, span := d.tracer.Start(ctx, "mcp.dispatch",
		trace.WithAttributes(attribute.String("rpc.method", req.Method)))
	defer span.End()

	log := d.logger.With(slog.String("method", req.Method))
	log.Debug("Dispatching JSON-RPC request")

	switch req.Method {
	case MethodInitialize:
		return mcpjsonrpc.NewResponse(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfoResult{Name: d.server.Name, Version: d.server.Version},
		})

	case MethodInitializedNotification:
		// Notifications get no id, no result, no error.
		return mcpjsonrpc.NewNotificationAck()

	case MethodToolsList:
		return d.handleListTools(ctx, req)

	case MethodToolsCall:
		return d.handleCallTool(ctx, req)

	default:
		log.Warn("Unknown JSON-RPC method")
		return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (d *Dispatcher) handleListTools(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	tools, err := d.registry.List(ctx)
	if err != nil {
		d.logger.Error("Failed to list tools", slog.Any("error", err))
		return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInternalError,
			fmt.Sprintf("Failed to list tools: %v", err))
	}
	d.logger.Debug("Listed tools", slog.Int("count", len(tools)))
	return mcpjsonrpc.NewResponse(req.ID, listToolsResult{Tools: tools})
}

func (d *Dispatcher) handleCallTool(ctx context.Context, req *mcpjsonrpc.Request) *mcpjsonrpc.Response {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			d.logger.Warn("Malformed tools/call params", slog.Any("error", err))
			return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInvalidParams,
				fmt.Sprintf("Invalid params: %v", err))
		}
	}
	if params.Name == "" {
		return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInvalidParams, "Missing tool name")
	}

	log := d.logger.With(slog.String("tool", params.Name))
	log.Info("Invoking tool")

	result, err := d.registry.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		return d.callErrorResponse(req, params.Name, err)
	}
	if result.IsEmpty() {
		log.Warn("Tool produced no result")
		return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInternalError,
			fmt.Sprintf("Tool %s returned no result - likely missing required parameters or configuration error", params.Name))
	}

	return mcpjsonrpc.NewResponse(req.ID, &mcp.CallToolResult{Content: Normalize(result)})
}

func (d *Dispatcher) callErrorResponse(req *mcpjsonrpc.Request, name string, err error) *mcpjsonrpc.Response {
	log := d.logger.With(slog.String("tool", name), slog.Any("error", err))

	if te, ok := domain.AsToolError(err); ok {
		switch te.Kind {
		case domain.ToolNotFound:
			log.Warn("Unknown tool requested")
			return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeMethodNotFound,
				fmt.Sprintf("Unknown tool: %s", name))
		case domain.ToolNoResult:
			log.Warn("Tool completed without output")
			return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInternalError,
				fmt.Sprintf("Tool %s returned no result - likely missing required parameters or configuration error", name))
		default:
			log.Error("Tool execution failed")
			cause := te.Error()
			if te.Err != nil {
				cause = te.Err.Error()
			}
			return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInternalError,
				fmt.Sprintf("Tool execution failed: %s", cause))
		}
	}

	log.Error("Tool execution failed")
	return mcpjsonrpc.NewErrorResponse(req.ID, mcpjsonrpc.CodeInternalError,
		fmt.Sprintf("Tool execution failed: %v", err))
}
