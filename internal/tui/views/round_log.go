// Package views holds the panes of the progress UI.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
)

// maxRoundEntries bounds the scrollback.
const maxRoundEntries = 1000

// RoundEntry is one finished round.
type RoundEntry struct {
	Round     int
	MetaType  string
	Object    string
	Status    string
	Timestamp time.Time
}

// RoundLogModel shows finished rounds, newest last.
type RoundLogModel struct {
	theme    theme.Theme
	viewport viewport.Model
	entries  []RoundEntry
	follow   bool
	width    int
	height   int
}

// NewRoundLog creates a round log in follow mode.
func NewRoundLog(th theme.Theme) RoundLogModel {
	m := RoundLogModel{
		theme:    th,
		viewport: viewport.New(0, 0),
		entries:  make([]RoundEntry, 0, 64),
		follow:   true,
	}
	m.updateContent()
	return m
}

// SetSize sets the outer dimensions including the pane border.
func (m *RoundLogModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	// Pane border and padding take 4 columns and 2 rows
	m.viewport.Width = max(width-4, 10)
	m.viewport.Height = max(height-2, 1)
	m.updateContent()
}

// ToggleFollow toggles follow mode.
func (m *RoundLogModel) ToggleFollow() {
	m.follow = !m.follow
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// IsFollowing returns whether follow mode is active.
func (m RoundLogModel) IsFollowing() bool {
	return m.follow
}

// Len returns the number of retained entries.
func (m RoundLogModel) Len() int {
	return len(m.entries)
}

// Append adds a finished round.
func (m *RoundLogModel) Append(e RoundEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > maxRoundEntries {
		m.entries = m.entries[len(m.entries)-maxRoundEntries:]
	}
	m.updateContent()
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *RoundLogModel) updateContent() {
	if len(m.entries) == 0 {
		m.viewport.SetContent(m.theme.Faint.Render("No rounds yet..."))
		return
	}

	var content strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.theme.Faint.Render(e.Timestamp.Format("15:04:05")))
		content.WriteString(" ")
		content.WriteString(m.theme.Primary.Render(fmt.Sprintf("#%-4d", e.Round)))
		content.WriteString(" ")

		target := e.MetaType
		if e.Object != "" {
			target += "." + e.Object
		}
		content.WriteString(m.theme.Base.Render(target))
		content.WriteString(" ")
		content.WriteString(m.statusStyle(e.Status))
	}
	m.viewport.SetContent(content.String())
}

func (m RoundLogModel) statusStyle(status string) string {
	switch {
	case status == "completed":
		return m.theme.Success.Render(status)
	case strings.HasSuffix(status, "_error"):
		return m.theme.Danger.Render(status)
	default:
		return m.theme.Warn.Render(status)
	}
}

// Update forwards scrolling keys to the viewport.
func (m RoundLogModel) Update(msg tea.Msg) (RoundLogModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pane.
func (m RoundLogModel) View() string {
	title := "Rounds"
	if m.follow {
		title += " " + m.theme.Success.Render("[f]ollow")
	} else {
		title += " " + m.theme.Faint.Render("[f]ollow")
	}
	return m.theme.RenderPane(title, m.viewport.View(), m.width)
}
