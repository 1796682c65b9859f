// Package tui renders live progress of a fuzz run.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/events"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/views"
)

// EventMsg carries a bus event into the Bubble Tea loop.
type EventMsg struct {
	Event events.Event
}

// Options describe the run being displayed.
type Options struct {
	Rounds  int
	Workers int
	Seed    uint64
	Server  string
	// Stop is called once when the user asks to stop the run.
	Stop func()
}

// toolCounts tallies verdicts for one tool.
type toolCounts struct {
	success, errors, skipped int
}

// Model is the root Bubble Tea model.
type Model struct {
	opts Options

	theme    theme.Theme
	keys     KeyBindings
	width    int
	height   int
	progress progress.Model
	spinner  spinner.Model
	rounds   views.RoundLogModel

	serverName string
	sessionID  string
	startedAt  time.Time
	completed  int
	calls      int
	tools      map[string]*toolCounts

	stopping  bool
	finished  bool
	cancelled bool
}

// NewModel creates the progress model.
func NewModel(opts Options) Model {
	th := theme.New()
	return Model{
		opts:     opts,
		theme:    th,
		keys:     NewKeyBindings(),
		progress: progress.New(progress.WithDefaultGradient()),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(th.Primary),
		),
		rounds:    views.NewRoundLog(th),
		startedAt: time.Now(),
		tools:     make(map[string]*toolCounts),
	}
}

// Subscribe forwards bus events to the program. It returns the
// unsubscribe function.
func Subscribe(bus *events.Bus, p *tea.Program) func() {
	return bus.Subscribe(func(e events.Event) {
		p.Send(EventMsg{Event: e})
	})
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.CtrlC):
			if m.finished || m.stopping {
				return m, tea.Quit
			}
			m.stopping = true
			if m.opts.Stop != nil {
				m.opts.Stop()
			}
			return m, nil
		case key.Matches(msg, m.keys.Follow):
			m.rounds.ToggleFollow()
			return m, nil
		}
		var cmd tea.Cmd
		m.rounds, cmd = m.rounds.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		return m, m.handleEvent(msg.Event)
	}
	return m, nil
}

func (m *Model) handleEvent(e events.Event) tea.Cmd {
	switch evt := e.(type) {
	case events.RunStartedEvent:
		m.opts.Rounds = evt.Rounds
		m.opts.Workers = evt.Workers
		m.opts.Seed = evt.Seed
		m.serverName = evt.ServerName
		m.sessionID = evt.SessionID
		m.startedAt = evt.Timestamp()

	case events.CallCompletedEvent:
		m.calls++
		c, ok := m.tools[evt.Tool]
		if !ok {
			c = &toolCounts{}
			m.tools[evt.Tool] = c
			if m.width > 0 {
				m.updateLayout()
			}
		}
		switch evt.Verdict {
		case "success":
			c.success++
		case "error":
			c.errors++
		case "skipped":
			c.skipped++
		}

	case events.RoundCompletedEvent:
		m.completed++
		m.rounds.Append(views.RoundEntry{
			Round:     evt.Round,
			MetaType:  evt.MetaType,
			Object:    evt.Object,
			Status:    evt.Status,
			Timestamp: evt.Timestamp(),
		})

	case events.RunFinishedEvent:
		m.finished = true
		m.cancelled = evt.Cancelled
		m.completed = evt.Completed
		return tea.Quit
	}
	return nil
}

func (m *Model) updateLayout() {
	m.progress.Width = max(m.width-4, 10)
	// header (3) + progress (2) + tools table + status bar (1)
	used := 6 + len(m.tools) + 3
	m.rounds.SetSize(m.width, max(m.height-used, 4))
}

// Percent is the fraction of planned rounds completed.
func (m Model) Percent() float64 {
	if m.opts.Rounds <= 0 {
		return 1
	}
	return min(float64(m.completed)/float64(m.opts.Rounds), 1)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(m.Percent()))
	b.WriteString("\n\n")
	b.WriteString(m.renderTools())
	b.WriteString("\n")
	b.WriteString(m.rounds.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	state := m.spinner.View() + " running"
	switch {
	case m.finished && m.cancelled:
		state = m.theme.Warn.Render("● cancelled")
	case m.finished:
		state = m.theme.Success.Render("● finished")
	case m.stopping:
		state = m.theme.Warn.Render(m.spinner.View() + " stopping after current round")
	}

	server := m.opts.Server
	if m.serverName != "" {
		server = m.serverName + " @ " + server
	}
	session := "sessionless"
	if m.sessionID != "" {
		session = "session " + m.sessionID
	}

	title := m.theme.Title.Render("mcpfuzz") + "  " + state
	info := m.theme.Muted.Render(fmt.Sprintf("%s · %s · workers %d · seed %d",
		server, session, m.opts.Workers, m.opts.Seed))
	counts := fmt.Sprintf("rounds %d/%d · calls %d · elapsed %s",
		m.completed, m.opts.Rounds, m.calls, time.Since(m.startedAt).Round(time.Second))
	return lipgloss.JoinVertical(lipgloss.Left, title, info, counts)
}

func (m Model) renderTools() string {
	names := make([]string, 0, len(m.tools))
	for name := range m.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(m.theme.TableHeader.Render(fmt.Sprintf("%-24s %8s %8s %8s", "TOOL", "SUCCESS", "ERRORS", "SKIPPED")))
	for _, name := range names {
		c := m.tools[name]
		b.WriteString("\n ")
		b.WriteString(fmt.Sprintf("%-24s ", name))
		b.WriteString(m.theme.Success.Render(fmt.Sprintf("%8d", c.success)))
		b.WriteString(" ")
		b.WriteString(m.theme.Danger.Render(fmt.Sprintf("%8d", c.errors)))
		b.WriteString(" ")
		b.WriteString(m.theme.Warn.Render(fmt.Sprintf("%8d", c.skipped)))
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	parts := make([]string, 0, 4)
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, m.theme.Primary.Render(h.Key)+" "+h.Desc)
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
