package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/logging"
)

// Version information (set at build time via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "mcpfuzz",
	Short: "Conformance and fuzz harness for the 1C metadata MCP service",
	Long: `mcpfuzz drives randomized exploration rounds against an MCP service
that exposes 1C configuration metadata over JSON-RPC/HTTP, and reports
per-tool success statistics.

Use 'mcpfuzz run' to start a run and 'mcpfuzz tools' to inspect the
service's tool catalog.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Suppress errors from being printed twice
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ~/.config/mcpfuzz/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration for cmd and builds its logger. The
// returned closer releases the log file, if any.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("set up logging: %w", err)
	}
	return cfg, logger, closer, nil
}
