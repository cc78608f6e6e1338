package mcpjsonrpc

import "encoding/json"

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification

// Version is the only protocol version this package speaks.
const Version = "2.0"

// Request represents a JSON-RPC request object.
//
// ID and Params are kept as raw JSON so that a response can echo the
// request id byte-for-byte (same type and value), and so that each method
// handler can decode its own params shape. A nil ID means the request
// carried no id member at all.
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response represents a JSON-RPC response object.
//
// ID is raw JSON echoed from the request. A nil ID omits the member
// entirely (the bare notification acknowledgement); NullID emits id:null.
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes used by this server (JSON-RPC reserved range).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NullID is the literal JSON null id, used when a request carried no id
// but the method still demands a response envelope with an id member.
var NullID = json.RawMessage("null")

// NewResponse builds a success response echoing the given request id.
func NewResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{Version: Version, ID: echoID(id), Result: result}
}

// NewErrorResponse builds an error response echoing the given request id.
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{Version: Version, ID: echoID(id), Error: &Error{Code: code, Message: message}}
}

// NewNotificationAck builds the bare acknowledgement envelope for
// notifications: no id, no result, no error.
func NewNotificationAck() *Response {
	return &Response{Version: Version}
}

func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return NullID
	}
	return id
}
