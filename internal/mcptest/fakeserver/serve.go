package fakeserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const sessionHeader = "Mcp-Session-Id"

// Request records one request received by the server.
type Request struct {
	Path          string
	Method        string
	Tool          string
	Arguments     map[string]any
	SessionID     string
	Authorization string
}

// Server is an http.Handler that speaks the metadata service's JSON-RPC
// dialect. It records every request it receives.
type Server struct {
	cfg Config

	mu       sync.Mutex
	requests []Request
}

// New creates a server with the given behavior.
func New(cfg Config) *Server {
	if cfg.Framing == "" {
		cfg.Framing = FramingJSON
	}
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = "2024-11-05"
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "fake-1c-metadata"
	}
	return &Server{cfg: cfg}
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// ToolCalls returns the recorded tools/call requests for one tool, or for
// every tool when name is "".
func (s *Server) ToolCalls(name string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != "tools/call" {
			continue
		}
		if name == "" || r.Tool == name {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(r Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec := Request{
		Path:          r.URL.Path,
		Method:        req.Method,
		SessionID:     r.Header.Get(sessionHeader),
		Authorization: r.Header.Get("Authorization"),
	}
	var call ToolCallParams
	if req.Method == "tools/call" {
		if err := json.Unmarshal(req.Params, &call); err != nil {
			http.Error(w, "invalid params: "+err.Error(), http.StatusBadRequest)
			return
		}
		rec.Tool = call.Name
		rec.Arguments = call.Arguments
	}
	s.record(rec)

	if s.cfg.BearerToken != "" && rec.Authorization != "Bearer "+s.cfg.BearerToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := req.Method
	if rec.Tool != "" {
		key = rec.Tool
	}

	if delay, ok := s.lookupDelay(req.Method, key); ok {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status, ok := s.lookupStatus(req.Method, key); ok {
		http.Error(w, fmt.Sprintf("forced status for %s", key), status)
		return
	}
	if s.cfg.Malformed[req.Method] || s.cfg.Malformed[key] {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "this is not valid json")
		return
	}
	if rpcErr, ok := s.lookupError(req.Method, key); ok {
		s.write(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcErr})
		return
	}

	switch req.Method {
	case "initialize":
		if s.cfg.SessionID != "" {
			w.Header().Set(sessionHeader, s.cfg.SessionID)
		}
		if s.cfg.OmitInitializeResult {
			s.write(w, rpcResponse{JSONRPC: "2.0", ID: req.ID})
			return
		}
		s.writeResult(w, req.ID, InitializeResult{
			ProtocolVersion: s.cfg.ProtocolVersion,
			ServerInfo:      ServerInfo{Name: s.cfg.ServerName, Version: "1.0.0"},
			Capabilities:    Capabilities{Tools: &ToolsCapability{}},
		})

	case "tools/list":
		tools := s.cfg.Tools
		if tools == nil {
			tools = []Tool{}
		}
		s.writeResult(w, req.ID, ToolsListResult{Tools: tools})

	case "tools/call":
		if s.cfg.RequireSession && rec.SessionID != s.cfg.SessionID {
			http.Error(w, "missing or unknown session", http.StatusBadRequest)
			return
		}
		s.writeResult(w, req.ID, s.callTool(call))

	default:
		s.write(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &JSONRPCError{
			Code: -32601, Message: "Method not found",
		}})
	}
}

func (s *Server) callTool(call ToolCallParams) ToolCallResult {
	if s.cfg.ToolHandler != nil {
		return s.cfg.ToolHandler(call.Name, call.Arguments)
	}
	if s.cfg.EchoToolCalls {
		args, _ := json.Marshal(call.Arguments)
		return TextResult(fmt.Sprintf("tool=%s args=%s", call.Name, args))
	}
	return TextResult("")
}

func (s *Server) lookupDelay(method, key string) (time.Duration, bool) {
	if d, ok := s.cfg.Delays[key]; ok {
		return d, true
	}
	d, ok := s.cfg.Delays[method]
	return d, ok
}

func (s *Server) lookupStatus(method, key string) (int, bool) {
	if st, ok := s.cfg.Status[key]; ok {
		return st, true
	}
	st, ok := s.cfg.Status[method]
	return st, ok
}

func (s *Server) lookupError(method, key string) (JSONRPCError, bool) {
	if e, ok := s.cfg.Errors[key]; ok {
		return e, true
	}
	e, ok := s.cfg.Errors[method]
	return e, ok
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.write(w, rpcResponse{JSONRPC: "2.0", ID: id, Result: data})
}

// write encodes the envelope in the configured framing. SSE payloads are
// indented and split over several data lines.
func (s *Server) write(w http.ResponseWriter, resp rpcResponse) {
	if s.cfg.Framing == FramingSSE {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		var b strings.Builder
		b.WriteString("event: message\n")
		for _, line := range strings.Split(string(data), "\n") {
			b.WriteString("data: ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		io.WriteString(w, b.String())
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
