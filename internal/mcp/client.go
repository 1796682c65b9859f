package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// ProtocolVersion is the protocol version sent in the handshake.
	ProtocolVersion = "2024-11-05"

	// DefaultClientName and DefaultClientVersion identify the harness.
	DefaultClientName    = "TestMCP"
	DefaultClientVersion = "1.0.0"
)

// ErrMalformedHandshake is returned when initialize succeeds at the
// transport level but carries no result.
var ErrMalformedHandshake = errors.New("malformed initialize response: missing result")

// ClientOptions tunes a Client. The zero value is usable.
type ClientOptions struct {
	ClientName    string
	ClientVersion string

	// Limiter paces tool calls. Nil means unlimited.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// Client negotiates a session and dispatches tool calls over a Transport.
type Client struct {
	transport Transport
	session   *Session
	opts      ClientOptions
	logger    *slog.Logger
}

// Handshake holds the diagnostics captured by Initialize.
type Handshake struct {
	ProtocolVersion string
	ServerName      string
	ServerVersion   string
	// SessionID is empty when the server runs sessionless.
	SessionID string
}

// Sessionless reports whether the server did not issue a session id.
func (h *Handshake) Sessionless() bool {
	return h.SessionID == ""
}

// initializeParams is the params for the initialize request.
type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// toolsListResult is the result of tools/list.
type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

// NewClient creates a client. The session must be the one the transport
// was built with so that a captured session id reaches later requests.
func NewClient(transport Transport, session *Session, opts ClientOptions) *Client {
	if opts.ClientName == "" {
		opts.ClientName = DefaultClientName
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = DefaultClientVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: transport,
		session:   session,
		opts:      opts,
		logger:    logger,
	}
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

// Initialize performs the handshake. A nil error means the session is
// usable, with or without a session id.
func (c *Client) Initialize(ctx context.Context) (*Handshake, error) {
	params := initializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: clientInfo{
			Name:    c.opts.ClientName,
			Version: c.opts.ClientVersion,
		},
	}

	resp := c.transport.Send(ctx, methodInit, params)
	if resp.Err != nil {
		return nil, fmt.Errorf("initialize: %w", resp.Err)
	}
	if !resp.HasResult() {
		return nil, ErrMalformedHandshake
	}

	hs := &Handshake{
		ProtocolVersion: gjson.GetBytes(resp.Result, "protocolVersion").String(),
		ServerName:      gjson.GetBytes(resp.Result, "serverInfo.name").String(),
		ServerVersion:   gjson.GetBytes(resp.Result, "serverInfo.version").String(),
	}
	c.logger.Info("initialized",
		"protocol_version", hs.ProtocolVersion,
		"server", hs.ServerName,
		"server_version", hs.ServerVersion)

	if sid := sessionIDFromHeader(resp.Header); sid != "" {
		c.session.SetID(sid)
		hs.SessionID = c.session.ID()
		c.logger.Info("session established", "session_id", hs.SessionID)
	} else {
		c.logger.Info("server did not issue a session id, continuing sessionless")
	}
	return hs, nil
}

// sessionIDFromHeader looks the session header up case-insensitively.
func sessionIDFromHeader(h http.Header) string {
	if h == nil {
		return ""
	}
	if v := h.Get(HeaderSessionID); v != "" {
		return v
	}
	for k, vals := range h {
		if strings.EqualFold(k, HeaderSessionID) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// ListTools retrieves the tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	resp := c.transport.Send(ctx, "tools/list", map[string]any{})
	if resp.Err != nil {
		return nil, fmt.Errorf("tools/list: %w", resp.Err)
	}
	if !resp.HasResult() {
		return nil, nil
	}
	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("tools/list: decode result: %w", err)
	}
	return result.Tools, nil
}

// toolCallParams is the params for tools/call.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// toolCallResult is the result of tools/call.
type toolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// CallTool invokes a tool. It never fails: transport errors are folded
// into an error ToolResult whose text is "Error: <message>".
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) *ToolResult {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return errorResult(err.Error())
		}
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	resp := c.transport.Send(ctx, "tools/call", toolCallParams{Name: name, Arguments: arguments})
	if resp.Err != nil {
		c.logger.Debug("tool call failed", "tool", name, "kind", resp.Err.Kind, "error", resp.Err.Message)
		return errorResult(resp.Err.Message)
	}
	if !resp.HasResult() {
		return &ToolResult{}
	}

	var result toolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return errorResult(fmt.Sprintf("decode tool result: %v", err))
	}
	return &ToolResult{Content: result.Content, IsError: result.IsError}
}

func errorResult(message string) *ToolResult {
	return &ToolResult{
		Content: []ContentItem{TextContent("Error: " + message)},
		IsError: true,
	}
}
