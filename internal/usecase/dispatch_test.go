package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ampgate/ampgate/internal/domain"
	"github.com/ampgate/ampgate/internal/usecase"
	"github.com/ampgate/ampgate/pkg/shared/mcpjsonrpc"
)

// MockToolRegistry is a mock implementation of the ToolRegistry interface.
type MockToolRegistry struct {
	mock.Mock
}

func (m *MockToolRegistry) List(ctx context.Context) ([]mcp.Tool, error) {
	args := m.Called(ctx)
	var tools []mcp.Tool
	if args.Get(0) != nil {
		tools = args.Get(0).([]mcp.Tool)
	}
	return tools, args.Error(1)
}

func (m *MockToolRegistry) Invoke(ctx context.Context, name string, arguments map[string]interface{}) (domain.InvocationResult, error) {
	args := m.Called(ctx, name, arguments)
	return args.Get(0).(domain.InvocationResult), args.Error(1)
}

func newTestDispatcher(registry usecase.ToolRegistry) *usecase.Dispatcher {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return usecase.NewDispatcher(registry, usecase.ServerInfo{Name: "amp-mcp-gateway", Version: "1.0.0"}, logger)
}

func TestDispatcher_IDEcho(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(new(MockToolRegistry))

	tests := []struct {
		name   string
		id     json.RawMessage
		wantID string
	}{
		{name: "integer id", id: json.RawMessage(`7`), wantID: `7`},
		{name: "string id", id: json.RawMessage(`"req-1"`), wantID: `"req-1"`},
		{name: "null id still answered", id: json.RawMessage(`null`), wantID: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.Dispatch(ctx, &mcpjsonrpc.Request{Version: "2.0", Method: "initialize", ID: tt.id})
			data, err := json.Marshal(resp)
			require.NoError(t, err)

			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &raw))
			assert.JSONEq(t, tt.wantID, string(raw["id"]))
		})
	}
}

func TestDispatcher_Initialize(t *testing.T) {
	d := newTestDispatcher(new(MockToolRegistry))
	resp := d.Dispatch(context.Background(), &mcpjsonrpc.Request{Version: "2.0", Method: "initialize", ID: json.RawMessage(`1`)})

	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)

	var result struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		Capabilities    map[string]interface{} `json:"capabilities"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Contains(t, result.Capabilities, "tools")
	assert.Equal(t, "amp-mcp-gateway", result.ServerInfo.Name)
	assert.Equal(t, "1.0.0", result.ServerInfo.Version)
}

func TestDispatcher_NotificationAck(t *testing.T) {
	d := newTestDispatcher(new(MockToolRegistry))
	resp := d.Dispatch(context.Background(), &mcpjsonrpc.Request{Version: "2.0", Method: "notifications/initialized"})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "id")
	assert.NotContains(t, raw, "result")
	assert.NotContains(t, raw, "error")
	assert.JSONEq(t, `"2.0"`, string(raw["jsonrpc"]))
}

func TestDispatcher_MethodNotFound(t *testing.T) {
	d := newTestDispatcher(new(MockToolRegistry))
	resp := d.Dispatch(context.Background(), &mcpjsonrpc.Request{Version: "2.0", Method: "resources/list", ID: json.RawMessage(`3`)})

	require.NotNil(t, resp.Error)
	assert.Equal(t, mcpjsonrpc.CodeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "resources/list")
	assert.Nil(t, resp.Result)
}

func TestDispatcher_ListTools(t *testing.T) {
	registry := new(MockToolRegistry)
	tools := []mcp.Tool{
		mcp.NewTool("ExecuteQuery", mcp.WithDescription("Run a PromQL query")),
		mcp.NewTool("ListMetrics", mcp.WithDescription("List metric names")),
	}
	registry.On("List", mock.Anything).Return(tools, nil).Once()

	d := newTestDispatcher(registry)
	resp := d.Dispatch(context.Background(), &mcpjsonrpc.Request{Version: "2.0", Method: "tools/list", ID: json.RawMessage(`4`)})

	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)

	var result struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "ExecuteQuery", result.Tools[0].Name)
	assert.NotEmpty(t, result.Tools[0].Description)
	assert.IsType(t, map[string]interface{}{}, result.Tools[0].InputSchema)

	registry.AssertExpectations(t)
}

func TestDispatcher_CallTool(t *testing.T) {
	execFailed := domain.NewToolError(domain.ToolExecutionFailed, "ExecuteQuery", errors.New("backend unreachable"))

	tests := []struct {
		name        string
		params      string
		mockSetup   func(*MockToolRegistry)
		wantCode    int
		wantMsgPart string
		wantText    string
	}{
		{
			name:   "success wraps normalized content",
			params: `{"name":"ExecuteQuery","arguments":{"workspace_id":"ws-123","query":"up"}}`,
			mockSetup: func(r *MockToolRegistry) {
				payload := map[string]interface{}{
					"status": "success",
					"data":   map[string]interface{}{"resultType": "vector"},
				}
				r.On("Invoke", mock.Anything, "ExecuteQuery", map[string]interface{}{"workspace_id": "ws-123", "query": "up"}).
					Return(domain.ValueResult(payload), nil).Once()
			},
			wantText: "resultType",
		},
		{
			name:        "missing tool name",
			params:      `{"arguments":{"query":"up"}}`,
			mockSetup:   func(r *MockToolRegistry) {},
			wantCode:    mcpjsonrpc.CodeInvalidParams,
			wantMsgPart: "Missing tool name",
		},
		{
			name:        "malformed params",
			params:      `"not an object"`,
			mockSetup:   func(r *MockToolRegistry) {},
			wantCode:    mcpjsonrpc.CodeInvalidParams,
			wantMsgPart: "Invalid params",
		},
		{
			name:   "unknown tool",
			params: `{"name":"NoSuchTool"}`,
			mockSetup: func(r *MockToolRegistry) {
				r.On("Invoke", mock.Anything, "NoSuchTool", map[string]interface{}(nil)).
					Return(domain.EmptyResult(), domain.NewToolError(domain.ToolNotFound, "NoSuchTool", nil)).Once()
			},
			wantCode:    mcpjsonrpc.CodeMethodNotFound,
			wantMsgPart: "Unknown tool: NoSuchTool",
		},
		{
			name:   "execution failure interpolates cause",
			params: `{"name":"ExecuteQuery","arguments":{}}`,
			mockSetup: func(r *MockToolRegistry) {
				r.On("Invoke", mock.Anything, "ExecuteQuery", map[string]interface{}{}).
					Return(domain.EmptyResult(), execFailed).Once()
			},
			wantCode:    mcpjsonrpc.CodeInternalError,
			wantMsgPart: "backend unreachable",
		},
		{
			name:   "empty result is an error, not success",
			params: `{"name":"ExecuteQuery","arguments":{}}`,
			mockSetup: func(r *MockToolRegistry) {
				r.On("Invoke", mock.Anything, "ExecuteQuery", map[string]interface{}{}).
					Return(domain.EmptyResult(), nil).Once()
			},
			wantCode:    mcpjsonrpc.CodeInternalError,
			wantMsgPart: "returned no result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := new(MockToolRegistry)
			tt.mockSetup(registry)

			d := newTestDispatcher(registry)
			resp := d.Dispatch(context.Background(), &mcpjsonrpc.Request{
				Version: "2.0",
				Method:  "tools/call",
				Params:  json.RawMessage(tt.params),
				ID:      json.RawMessage(`9`),
			})

			if tt.wantCode != 0 {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.Contains(t, resp.Error.Message, tt.wantMsgPart)
				assert.Nil(t, resp.Result)
			} else {
				require.Nil(t, resp.Error)
				data, err := json.Marshal(resp.Result)
				require.NoError(t, err)

				var result struct {
					Content []struct {
						Type string `json:"type"`
						Text string `json:"text"`
					} `json:"content"`
				}
				require.NoError(t, json.Unmarshal(data, &result))
				require.NotEmpty(t, result.Content)
				assert.Equal(t, "text", result.Content[0].Type)
				assert.Contains(t, result.Content[0].Text, tt.wantText)
			}

			registry.AssertExpectations(t)
		})
	}
}
