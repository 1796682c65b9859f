// Package mcp implements the JSON-RPC over HTTP client used to drive a
// metadata MCP service: transport, session negotiation and tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"sync"
)

// Transport sends one JSON-RPC request and returns its decoded response.
// Implementations never return a Go error; failures are carried in
// Response.Err.
type Transport interface {
	Send(ctx context.Context, method string, params any) Response
}

// Session holds the connection parameters shared by every request of a run.
// The session id is written at most once, by the negotiator.
type Session struct {
	BaseURL   string
	AuthToken string

	mu        sync.RWMutex
	sessionID string
	captured  bool
}

// NewSession creates a session for the given base URL. An empty token
// disables the Authorization header.
func NewSession(baseURL, authToken string) *Session {
	return &Session{BaseURL: baseURL, AuthToken: authToken}
}

// ID returns the captured session id, or "" in sessionless mode.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// SetID stores the session id. Only the first call has any effect; it
// reports whether the id was stored.
func (s *Session) SetID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captured {
		return false
	}
	s.sessionID = id
	s.captured = true
	return true
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}
