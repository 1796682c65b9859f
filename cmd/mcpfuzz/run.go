package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/events"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/logging"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/runlog"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/stats"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/telemetry"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run exploration rounds against the service",
	Long: `Run a fuzz session: perform the MCP handshake, then execute randomized
exploration rounds (list objects, fetch a structure, sample predefined
data) and print per-tool success statistics.

Every call is written to the run log (default testMCP.md). The command
exits 0 whenever the run completes, regardless of the success rate.

Examples:
  mcpfuzz run
  mcpfuzz run --host 10.0.0.5 --port 8000 --rounds 50
  mcpfuzz run --workers 4 --seed 42 --summary-file summary.json
  mcpfuzz run --auth-mode bearer --token $TOKEN --tui`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	d := config.Default()
	f := runCmd.Flags()
	addServerFlags(f)
	f.Int("rounds", d.Explore.Rounds, "Number of exploration rounds")
	f.Int("workers", d.Explore.Workers, "Rounds run concurrently")
	f.Uint64("seed", 0, "Random seed (0 derives one from the clock)")
	f.Float64("rps", 0, "Maximum tool calls per second (0 = unlimited)")
	f.Int("burst", d.Rate.Burst, "Rate limiter burst")
	f.String("log-file", d.Output.LogFile, "Run log path")
	f.String("summary-file", "", "Write the summary as JSON or YAML (by extension)")
	f.String("metrics-file", "", "Write Prometheus metrics in textfile format")
	f.Bool("tui", false, "Show live progress")
	f.String("otlp-endpoint", "", "OTLP/HTTP collector for traces (host:port or URL)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "mcpfuzz",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	// The log is truncated even when the handshake fails.
	runLog, err := runlog.Create(cfg.Output.LogFile)
	if err != nil {
		return err
	}
	defer runLog.Close()

	client, hs, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var validator *explore.ArgValidator
	if pre, err := explore.Preflight(ctx, client, logger); err != nil {
		logger.Warn("tools/list preflight failed, arguments will not be validated", "error", err)
	} else {
		validator = pre.Validator
	}

	seed := cfg.Explore.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	metrics := telemetry.NewMetrics()
	agg := stats.NewAggregator(explore.Methods...)
	observers := explore.Observers{runLog, metrics}

	// The TUI owns the terminal; keep diagnostics off it unless they go to a file.
	runLogger := logger
	if cfg.Output.TUI && cfg.Log.File == "" {
		runLogger = logging.Discard()
	}

	var bus *events.Bus
	var publisher *events.Publisher
	if cfg.Output.TUI {
		bus = events.NewBusSize(1024, runLogger)
		defer bus.Close()
		publisher = events.NewPublisher(bus)
		observers = append(observers, publisher)
	}

	driver := explore.NewDriver(client, cfg.DriverConfig(), explore.Options{
		Classifier: classify.New(cfg.Explore.ErrorKeywords),
		Recorder:   agg,
		Observer:   observers,
		Validator:  validator,
		Logger:     runLogger,
	})
	runner := explore.NewRunner(driver, cfg.Explore.Rounds, cfg.Explore.Workers, seed)

	logger.Info("starting run",
		"rounds", cfg.Explore.Rounds,
		"workers", cfg.Explore.Workers,
		"seed", seed,
		"log_file", cfg.Output.LogFile)

	var report explore.Report
	if cfg.Output.TUI {
		report, err = runWithTUI(ctx, cfg, hs, client.Session(), seed, bus, publisher, runner)
		if err != nil {
			return err
		}
	} else {
		report = runner.Run(ctx)
	}

	return finishRun(cmd, cfg, logger, report, agg.Summary(), runLog, metrics)
}

// runWithTUI runs the rounds in the background while the progress view
// owns the terminal. Quitting the view stops the run.
func runWithTUI(ctx context.Context, cfg *config.Config, hs *mcp.Handshake, session *mcp.Session,
	seed uint64, bus *events.Bus, publisher *events.Publisher, runner *explore.Runner) (explore.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(tui.Options{
		Rounds:  cfg.Explore.Rounds,
		Workers: cfg.Explore.Workers,
		Seed:    seed,
		Server:  session.BaseURL,
		Stop:    cancel,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := tui.Subscribe(bus, p)
	defer unsubscribe()

	bus.Publish(events.NewRunStarted(cfg.Explore.Rounds, cfg.Explore.Workers, seed, hs.ServerName, session.ID()))

	done := make(chan explore.Report, 1)
	go func() {
		report := runner.Run(runCtx)
		publisher.Finished(report)
		done <- report
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return explore.Report{}, fmt.Errorf("TUI error: %w", err)
	}

	// The view may quit before the run drains its in-flight rounds.
	cancel()
	return <-done, nil
}

// finishRun prints the summary and writes every configured artifact.
func finishRun(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, report explore.Report,
	sum stats.Summary, runLog *runlog.Writer, metrics *telemetry.Metrics) error {
	if err := runLog.WriteSummary(sum); err != nil {
		logger.Error("write run log", "path", cfg.Output.LogFile, "error", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sum.Table(theme.New()))
	if report.Cancelled {
		fmt.Fprintf(out, "Interrupted after %d of %d rounds.\n", report.Completed, report.Planned)
	} else {
		fmt.Fprintf(out, "Completed %d rounds.\n", report.Completed)
	}

	if path := cfg.Output.SummaryFile; path != "" {
		if err := sum.WriteFile(path); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if path := cfg.Output.MetricsFile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	logger.Info("run finished",
		"completed", report.Completed,
		"cancelled", report.Cancelled,
		"calls", runLog.Calls(),
		"success_rate", fmt.Sprintf("%.1f%%", sum.Totals.SuccessRate))
	return nil
}
