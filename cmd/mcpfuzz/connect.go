package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/auth"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

// connect resolves credentials, builds a client for the configured
// service and performs the handshake. A handshake failure is fatal.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mcp.Client, *mcp.Handshake, error) {
	baseURL := cfg.BaseURL()
	token, err := auth.ResolveToken(ctx, cfg.Auth, baseURL)
	if err != nil {
		return nil, nil, err
	}

	mcp.DebugLogging = strings.EqualFold(cfg.Log.Level, "debug")
	session := mcp.NewSession(baseURL, token)
	transport := mcp.NewHTTPTransport(session, mcp.HTTPConfig{
		InitializePath: cfg.Server.InitializePath,
		RequestPath:    cfg.Server.RequestPath,
		Timeout:        cfg.Server.Timeout,
		Logger:         logger,
	})

	var limiter *rate.Limiter
	if cfg.Rate.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate.RPS), max(cfg.Rate.Burst, 1))
	}
	client := mcp.NewClient(transport, session, mcp.ClientOptions{
		Limiter: limiter,
		Logger:  logger,
	})

	hs, err := client.Initialize(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("handshake with %s failed: %w", baseURL, err)
	}
	return client, hs, nil
}

// addServerFlags registers the flags that locate and authenticate
// against the service.
func addServerFlags(f *pflag.FlagSet) {
	d := config.Default()
	f.String("host", d.Server.Host, "Service host")
	f.Int("port", d.Server.Port, "Service port")
	f.Duration("timeout", d.Server.Timeout, "Per-request timeout")
	f.String("auth-mode", d.Auth.Mode, "Auth mode: none, bearer, oauth2, keyring, file, vault")
	f.String("token", "", "Bearer token (overrides stored tokens)")
}
