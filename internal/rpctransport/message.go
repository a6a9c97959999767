package rpctransport

import "encoding/json"

// Request is an inbound JSON-RPC 2.0 request or notification. A request
// with a non-nil ID expects a Response; a notification (nil ID) does not.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound JSON-RPC 2.0 response: exactly one of Result or
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object. Code follows the kind-to-code
// mapping in errors.go.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult builds a successful Response for the given request ID.
func NewResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error Response for the given request ID.
func NewError(id json.RawMessage, err *Error) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: err}
}
