package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorKind classifies a transport failure.
type ErrorKind string

const (
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindStatus  ErrorKind = "http_status"
	ErrorKindDecode  ErrorKind = "decode"
	ErrorKindRPC     ErrorKind = "rpc"
	ErrorKindEncode  ErrorKind = "encode"
)

// TransportError describes why a request did not yield a usable result.
type TransportError struct {
	Kind ErrorKind
	// Status is the HTTP status code for ErrorKindStatus, the JSON-RPC
	// error code for ErrorKindRPC, and zero otherwise.
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// Response is the outcome of one request: either Ok with a raw result
// (possibly absent) or Err.
type Response struct {
	Result json.RawMessage
	Err    *TransportError
	// Header holds the HTTP response headers when a response was received.
	Header http.Header
}

// OK reports whether the request succeeded at the transport level.
func (r Response) OK() bool {
	return r.Err == nil
}

// HasResult reports whether an Ok response carried a non-null result member.
func (r Response) HasResult() bool {
	if r.Err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func errResponse(kind ErrorKind, status int, header http.Header, format string, args ...any) Response {
	return Response{
		Header: header,
		Err: &TransportError{
			Kind:    kind,
			Status:  status,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
