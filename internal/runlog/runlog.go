// Package runlog writes the human-readable markdown log of a run: one
// block per tool call followed by the statistics table.
package runlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/stats"
)

// DefaultPath is where the run log goes when none is configured.
const DefaultPath = "testMCP.md"

const separator = "============================================================"

// FinishedLine closes every run log.
const FinishedLine = "[INFO] Тестирование завершено."

// Writer appends call blocks to the log. It implements explore.Observer
// and is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	seq    int
	err    error
}

// Create truncates path and returns a Writer appending to it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}
	return &Writer{w: f, closer: f}, nil
}

// New returns a Writer over w. Close does not close w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// CallCompleted writes one call block, numbered by its round. Calls of
// the same round share a number.
func (l *Writer) CallCompleted(rec explore.CallRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++

	var b strings.Builder
	fmt.Fprintf(&b, "Тест #%d\n", rec.Round)
	fmt.Fprintf(&b, "API: %s\n", rec.Tool)
	fmt.Fprintf(&b, "Параметры: %s\n", indentJSON(rec.Arguments))
	fmt.Fprintf(&b, "Результат: %s\n", indentJSON(rec.Outcome.Payload.Value()))
	b.WriteString(separator + "\n")
	l.write(b.String())
}

// RoundCompleted is a no-op; rounds are visible through their calls.
func (l *Writer) RoundCompleted(explore.RoundResult) {}

// WriteSummary appends the statistics table and the closing line.
func (l *Writer) WriteSummary(sum stats.Summary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("\n" + sum.Markdown() + "\n" + FinishedLine + "\n")
	return l.err
}

// Calls reports how many call blocks were written.
func (l *Writer) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Close closes the underlying file and returns the first write error.
func (l *Writer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		if err := l.closer.Close(); err != nil && l.err == nil {
			l.err = fmt.Errorf("close run log: %w", err)
		}
		l.closer = nil
	}
	return l.err
}

func (l *Writer) write(s string) {
	if l.err != nil {
		return
	}
	if _, err := io.WriteString(l.w, s); err != nil {
		l.err = fmt.Errorf("write run log: %w", err)
	}
}

// indentJSON renders v with two-space indentation and unescaped
// non-ASCII text.
func indentJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
