// Package stats aggregates per-tool verdict counters and renders the
// run summary.
package stats

import (
	"sync"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
)

// MethodStats holds the counters for one tool. Counters only grow.
type MethodStats struct {
	Total   int `json:"total" yaml:"total"`
	Success int `json:"success" yaml:"success"`
	Errors  int `json:"errors" yaml:"errors"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Aggregator accumulates verdicts. It is safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	order []string
	stats map[string]*MethodStats
}

// NewAggregator creates an aggregator whose summary lists methods in the
// given order. Methods recorded but not listed are appended in first-seen
// order.
func NewAggregator(methods ...string) *Aggregator {
	a := &Aggregator{stats: make(map[string]*MethodStats, len(methods))}
	for _, m := range methods {
		a.ensure(m)
	}
	return a
}

func (a *Aggregator) ensure(method string) *MethodStats {
	s, ok := a.stats[method]
	if !ok {
		s = &MethodStats{}
		a.stats[method] = s
		a.order = append(a.order, method)
	}
	return s
}

// Record counts one verdict for method.
func (a *Aggregator) Record(method string, v classify.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.ensure(method)
	s.Total++
	switch v {
	case classify.Success:
		s.Success++
	case classify.Error:
		s.Errors++
	case classify.Skipped:
		s.Skipped++
	}
}

// Stats returns a snapshot of one method's counters.
func (a *Aggregator) Stats(method string) MethodStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.stats[method]; ok {
		return *s
	}
	return MethodStats{}
}

// Row is one line of the summary table.
type Row struct {
	Method string `json:"method" yaml:"method"`

	MethodStats `json:",inline" yaml:",inline"`

	// SuccessRate is a percentage in [0, 100].
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// Summary is the final statistics table.
type Summary struct {
	Rows   []Row `json:"methods" yaml:"methods"`
	Totals Row   `json:"totals" yaml:"totals"`
}

// Summary snapshots every method in canonical order plus a totals row.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sum Summary
	totals := MethodStats{}
	for _, m := range a.order {
		s := *a.stats[m]
		sum.Rows = append(sum.Rows, Row{Method: m, MethodStats: s, SuccessRate: SuccessRate(s.Success, s.Total)})
		totals.Total += s.Total
		totals.Success += s.Success
		totals.Errors += s.Errors
		totals.Skipped += s.Skipped
	}
	sum.Totals = Row{Method: "total", MethodStats: totals, SuccessRate: SuccessRate(totals.Success, totals.Total)}
	return sum
}

// SuccessRate returns success/total as a percentage, or 0 when total is 0.
func SuccessRate(success, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(success) / float64(total) * 100
}
