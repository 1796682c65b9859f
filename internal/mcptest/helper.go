// Package mcptest provides test infrastructure for exercising the harness
// against a fake metadata service.
package mcptest

import (
	"net/http/httptest"
	"testing"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcptest/fakeserver"
)

// FakeServerConfig is an alias for fakeserver.Config for convenience.
type FakeServerConfig = fakeserver.Config

// Tool is an alias for fakeserver.Tool for convenience.
type Tool = fakeserver.Tool

// JSONRPCError is an alias for fakeserver.JSONRPCError for convenience.
type JSONRPCError = fakeserver.JSONRPCError

// StartFakeServer serves a fake metadata service on a loopback listener.
// It returns the server (for request inspection) and its base URL. The
// listener is closed by t.Cleanup.
func StartFakeServer(t *testing.T, cfg FakeServerConfig) (*fakeserver.Server, string) {
	t.Helper()

	srv := fakeserver.New(cfg)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts.URL
}
