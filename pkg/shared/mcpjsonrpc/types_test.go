package mcpjsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampgate/ampgate/pkg/shared/mcpjsonrpc"
)

func TestResponseIDEcho(t *testing.T) {
	tests := []struct {
		name   string
		id     json.RawMessage
		wantID string
	}{
		{name: "integer id", id: json.RawMessage(`1`), wantID: `1`},
		{name: "string id", id: json.RawMessage(`"abc"`), wantID: `"abc"`},
		{name: "null id", id: json.RawMessage(`null`), wantID: `null`},
		{name: "absent id emits null", id: nil, wantID: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := mcpjsonrpc.NewResponse(tt.id, map[string]string{"ok": "yes"})
			data, err := json.Marshal(resp)
			require.NoError(t, err)

			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &raw))
			assert.JSONEq(t, tt.wantID, string(raw["id"]))
			assert.Contains(t, raw, "result")
			assert.NotContains(t, raw, "error")
		})
	}
}

func TestNotificationAckShape(t *testing.T) {
	data, err := json.Marshal(mcpjsonrpc.NewNotificationAck())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1, len(raw))
	assert.JSONEq(t, `"2.0"`, string(raw["jsonrpc"]))
}

func TestRequestPreservesRawID(t *testing.T) {
	var req mcpjsonrpc.Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`), &req))
	assert.Equal(t, "tools/list", req.Method)
	assert.Equal(t, json.RawMessage(`42`), req.ID)

	var noID mcpjsonrpc.Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"x"}`), &noID))
	assert.Nil(t, noID.ID)
}
