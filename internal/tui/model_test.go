package tui

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/events"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/testutil"
)

// updateModel calls Update and asserts the concrete Model type.
func updateModel(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	switch v := newModel.(type) {
	case Model:
		return v, cmd
	case *Model:
		return *v, cmd
	default:
		panic("unexpected type from Update")
	}
}

func newTestModelWithSize(t *testing.T, width, height int, opts Options) Model {
	t.Helper()
	m, _ := updateModel(NewModel(opts), tea.WindowSizeMsg{Width: width, Height: height})
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestView_Loading(t *testing.T) {
	m := NewModel(Options{Rounds: 10})
	if view := m.View(); view != "Loading..." {
		t.Errorf("expected 'Loading...' before resize, got %q", view)
	}
}

func TestModel_CountsEvents(t *testing.T) {
	m := newTestModelWithSize(t, 100, 30, Options{Rounds: 4, Server: "http://127.0.0.1:8000"})

	m, _ = updateModel(m, EventMsg{events.NewRunStarted(4, 2, 99, "1C MCP", "abc")})
	m, _ = updateModel(m, EventMsg{events.NewCallCompleted(0, "list_metadata_objects", "success", time.Millisecond)})
	m, _ = updateModel(m, EventMsg{events.NewCallCompleted(0, "get_metadata_structure", "error", time.Millisecond)})
	m, _ = updateModel(m, EventMsg{events.NewCallCompleted(1, "list_metadata_objects", "skipped", time.Millisecond)})
	m, _ = updateModel(m, EventMsg{events.NewRoundCompleted(0, "Catalogs", "Валюты", "completed")})

	if m.calls != 3 || m.completed != 1 {
		t.Errorf("calls=%d completed=%d", m.calls, m.completed)
	}
	if c := m.tools["list_metadata_objects"]; c == nil || c.success != 1 || c.skipped != 1 {
		t.Errorf("list counts = %+v", c)
	}
	if got := m.Percent(); got != 0.25 {
		t.Errorf("Percent() = %v, want 0.25", got)
	}

	view := testutil.StripANSI(m.View())
	for _, want := range []string{
		"mcpfuzz", "1C MCP @ http://127.0.0.1:8000", "session abc", "workers 2", "seed 99",
		"rounds 1/4", "calls 3", "list_metadata_objects", "get_metadata_structure",
		"Catalogs.Валюты", "25%",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_RunFinishedQuits(t *testing.T) {
	m := newTestModelWithSize(t, 80, 24, Options{Rounds: 2})

	m, cmd := updateModel(m, EventMsg{events.NewRunFinished(2, false)})
	if !isQuit(cmd) {
		t.Error("expected quit after run finished")
	}
	if !m.finished || m.Percent() != 1 {
		t.Errorf("finished=%v percent=%v", m.finished, m.Percent())
	}
	if !strings.Contains(testutil.StripANSI(m.View()), "finished") {
		t.Error("header should show finished state")
	}
}

func TestModel_QuitKeyStopsRunFirst(t *testing.T) {
	var stops atomic.Int32
	m := newTestModelWithSize(t, 80, 24, Options{Rounds: 100, Stop: func() { stops.Add(1) }})

	m, cmd := updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if isQuit(cmd) {
		t.Fatal("first q should request a stop, not quit")
	}
	if stops.Load() != 1 || !m.stopping {
		t.Fatalf("stop not requested: stops=%d stopping=%v", stops.Load(), m.stopping)
	}
	if !strings.Contains(testutil.StripANSI(m.View()), "stopping") {
		t.Error("header should show stopping state")
	}

	_, cmd = updateModel(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Error("second stop key should quit")
	}
	if stops.Load() != 1 {
		t.Error("Stop must be called once")
	}
}

func TestModel_CancelledRun(t *testing.T) {
	m := newTestModelWithSize(t, 80, 24, Options{Rounds: 10})
	m, _ = updateModel(m, EventMsg{events.NewRunFinished(3, true)})
	if !strings.Contains(testutil.StripANSI(m.View()), "cancelled") {
		t.Error("header should show cancelled state")
	}
}

func TestModel_FollowToggle(t *testing.T) {
	m := newTestModelWithSize(t, 80, 24, Options{})
	m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if m.rounds.IsFollowing() {
		t.Error("f should turn follow off")
	}
}

func TestSubscribe_ForwardsBusEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	got := make(chan tea.Msg, 4)
	p := tea.NewProgram(recorder{got}, tea.WithInput(nil), tea.WithOutput(&strings.Builder{}), tea.WithoutRenderer())
	unsubscribe := Subscribe(bus, p)
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	bus.Send(events.NewRunFinished(1, false))

	select {
	case msg := <-got:
		em, ok := msg.(EventMsg)
		if !ok || em.Event.Type() != events.EventRunFinished {
			t.Errorf("unexpected message %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the program")
	}
	p.Quit()
	<-done
}

// recorder is a minimal program model that reports EventMsgs.
type recorder struct {
	got chan tea.Msg
}

func (r recorder) Init() tea.Cmd { return nil }

func (r recorder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(EventMsg); ok {
		r.got <- msg
	}
	return r, nil
}

func (r recorder) View() string { return "" }
