// Package telemetry exports run metrics in the Prometheus text format and
// traces over OTLP.
package telemetry

import (
	"bytes"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/fileutil"
)

const namespace = "mcpfuzz"

// Metrics collects per-call and per-round counters on its own registry.
// It implements explore.Observer.
type Metrics struct {
	registry *prometheus.Registry

	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	rounds        *prometheus.CounterVec
	argViolations *prometheus.CounterVec
}

var _ explore.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the harness metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool calls by tool and verdict.",
			},
			[]string{"tool", "verdict"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_total",
				Help:      "Exploration rounds by final status.",
			},
			[]string{"status"},
		),
		argViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_violations_total",
				Help:      "Calls whose arguments failed the tool's input schema.",
			},
			[]string{"tool"},
		),
	}
	m.registry.MustRegister(m.calls, m.callDuration, m.rounds, m.argViolations)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) CallCompleted(rec explore.CallRecord) {
	m.calls.WithLabelValues(rec.Tool, rec.Outcome.Verdict.String()).Inc()
	m.callDuration.WithLabelValues(rec.Tool).Observe(rec.Duration.Seconds())
	if rec.ArgError != nil {
		m.argViolations.WithLabelValues(rec.Tool).Inc()
	}
}

func (m *Metrics) RoundCompleted(res explore.RoundResult) {
	m.rounds.WithLabelValues(res.Status.String()).Inc()
}

// WritePrometheus writes every metric family in the text exposition format.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile writes the metrics to path atomically, as the node
// exporter textfile collector expects.
func (m *Metrics) WriteTextfile(path string) error {
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
