// Package fakeserver provides a fake metadata MCP service over HTTP for testing.
package fakeserver

import (
	"encoding/json"
	"time"
)

// Framing selects how responses are written.
type Framing string

const (
	FramingJSON Framing = "json"
	FramingSSE  Framing = "sse"
)

// Config controls the fake server's behavior.
type Config struct {
	// Tools to return from tools/list
	Tools []Tool `json:"tools"`

	// Framing of successful responses (default FramingJSON).
	Framing Framing `json:"framing"`

	// SessionID is returned in the Mcp-Session-Id header of the initialize
	// response. Empty means sessionless.
	SessionID string `json:"sessionId"`

	// RequireSession rejects tool calls that do not echo SessionID.
	RequireSession bool `json:"requireSession"`

	// BearerToken, when set, is required on every request.
	BearerToken string `json:"bearerToken"`

	ProtocolVersion string `json:"protocolVersion"`
	ServerName      string `json:"serverName"`

	// OmitInitializeResult answers initialize with an envelope lacking result.
	OmitInitializeResult bool `json:"omitInitializeResult"`

	// Per-method delays (simulate slow responses). Keys are JSON-RPC
	// methods or tool names.
	// NOTE: Use short delays (10-50ms) in tests to avoid slow suite.
	Delays map[string]time.Duration `json:"delays"`

	// Per-method forced errors (JSON-RPC error responses). Keys are JSON-RPC
	// methods or tool names.
	Errors map[string]JSONRPCError `json:"errors"`

	// Per-method forced HTTP status codes. Keys are JSON-RPC methods or
	// tool names.
	Status map[string]int `json:"status"`

	// Per-method malformed bodies. Keys are JSON-RPC methods or tool names.
	Malformed map[string]bool `json:"malformed"`

	// Tool call handling
	ToolHandler ToolHandler `json:"-"` // Custom handler for tools/call (not JSON-serializable)
	EchoToolCalls bool `json:"echoToolCalls"` // If true, tools/call returns the tool name and arguments as text
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// InitializeResult is the result of the initialize request.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ServerInfo describes the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities describes server capabilities.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability indicates the server supports tools.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolsListResult is the result of tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams is the params for tools/call.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the result of tools/call.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in a tool result.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextResult is a tool result holding a single text block.
func TextResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// JSONResult is a tool result whose single text block is v encoded as JSON.
func JSONResult(v any) ToolCallResult {
	data, err := json.Marshal(v)
	if err != nil {
		return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: err.Error()}}, IsError: true}
	}
	return TextResult(string(data))
}

// ToolHandler handles a tool call.
type ToolHandler func(name string, arguments map[string]any) ToolCallResult
