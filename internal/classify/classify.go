// Package classify turns tool results into verdicts.
package classify

import (
	"strings"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

// Verdict is the classification of one tool call.
type Verdict int

const (
	Success Verdict = iota
	Error
	Skipped
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Error:
		return "error"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// DefaultKeywords are the substrings that mark a textual result as an
// application error. Matching is case-insensitive.
var DefaultKeywords = []string{
	"ошибка",
	"исключение",
	"не найден",
	"error",
	"exception",
	"not found",
	"вызватьисключение",
}

// Outcome is a verdict together with the payload it was derived from.
type Outcome struct {
	Verdict Verdict
	Payload Payload
}

// Classifier assigns verdicts using a keyword table.
type Classifier struct {
	keywords []string
}

// New creates a classifier. A nil or empty table selects DefaultKeywords.
func New(keywords []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &Classifier{keywords: lower}
}

// Keywords returns the normalized keyword table.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// Classify decodes the result's first text item and assigns a verdict.
// It is total: every result, including nil, yields an outcome.
func (c *Classifier) Classify(r *mcp.ToolResult) Outcome {
	text := r.FirstText()
	p := DecodePayload(text)
	if r != nil && r.IsError {
		if p.Kind != PayloadObject && p.Kind != PayloadList {
			p = errorPayload(text)
		}
		return Outcome{Verdict: Error, Payload: p}
	}
	return Outcome{Verdict: c.Verdict(p), Payload: p}
}

// Verdict applies the rules in order: error, then skipped, then success.
func (c *Classifier) Verdict(p Payload) Verdict {
	if p.HasError() {
		return Error
	}
	result, hasResult := p.Result()
	if s, ok := result.(string); hasResult && ok && c.containsKeyword(s) {
		return Error
	}
	if p.Kind == PayloadList && len(p.List) == 0 {
		return Skipped
	}
	if s, ok := result.(string); hasResult && ok && s == "" {
		return Skipped
	}
	return Success
}

func (c *Classifier) containsKeyword(s string) bool {
	s = strings.ToLower(s)
	for _, k := range c.keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
