package panel

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/errcode"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

type fakeController struct {
	dispatched []string
	toggles    int
	alerts     int
	reshuffles int
	err        error
}

func (f *fakeController) Dispatch(cmd string) (engine.PendingCommand, error) {
	f.dispatched = append(f.dispatched, cmd)
	return engine.PendingCommand{Command: cmd}, f.err
}
func (f *fakeController) ToggleStream() engine.StreamState { f.toggles++; return engine.Paused }
func (f *fakeController) TriggerTestAlert() string         { f.alerts++; return "Obstacle" }
func (f *fakeController) Reshuffle() string                { f.reshuffles++; return "calm" }

func testSnapshot() engine.Snapshot {
	cfg := config.Default()
	return engine.Snapshot{
		Log: []engine.LogEntry{
			{Timestamp: time.Unix(10, 0), Message: "System: Executed 'Capture Frame' successfully."},
			{Timestamp: time.Unix(9, 0), Message: "> Capture Frame"},
		},
		Alert:         "Capture Frame — completed",
		Mood:          "neutral",
		Streaming:     true,
		QuickCommands: cfg.Commands.Quick,
		Device:        cfg.Device,
		Video:         engine.VideoInfo{FeedPath: cfg.Video.FeedPath, PreviewURL: cfg.Video.DrivePreviewURL()},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return mm, cmd
}

func ready(t *testing.T, ctl Controller) model {
	m := newModel(ctl)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	m, _ = update(t, m, snapshotMsg{testSnapshot()})
	return m
}

func TestForwardSendsSnapshots(t *testing.T) {
	ch := make(chan engine.Snapshot, 2)
	ch <- engine.Snapshot{Mood: "happy"}
	ch <- engine.Snapshot{Mood: "sad"}
	close(ch)
	p := &fakeProgram{}
	Forward(ch, p)
	if len(p.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(p.msgs))
	}
	s, ok := p.msgs[1].(snapshotMsg)
	if !ok || s.Mood != "sad" {
		t.Fatalf("unexpected message %#v", p.msgs[1])
	}
}

func TestQuickCommandKeys(t *testing.T) {
	ctl := &fakeController{}
	m := ready(t, ctl)
	for _, k := range []string{"c", "f", "r", "d", "u"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, key(k))
		if cmd == nil {
			t.Fatalf("key %q produced no command", k)
		}
		if msg := cmd(); msg != nil {
			t.Fatalf("unexpected message %#v", msg)
		}
	}
	want := config.Default().Commands.Quick
	if strings.Join(ctl.dispatched, "|") != strings.Join(want, "|") {
		t.Fatalf("dispatched %v, want %v", ctl.dispatched, want)
	}
}

func TestFreeCommandInput(t *testing.T) {
	ctl := &fakeController{}
	m := ready(t, ctl)
	m, _ = update(t, m, key(":"))
	if !m.inputOpen {
		t.Fatalf("input not opened")
	}
	m, _ = update(t, m, key("Describe the room"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.inputOpen || cmd == nil {
		t.Fatalf("enter should close input and dispatch")
	}
	cmd()
	if len(ctl.dispatched) != 1 || ctl.dispatched[0] != "Describe the room" {
		t.Fatalf("dispatched %v", ctl.dispatched)
	}

	m, _ = update(t, m, key(":"))
	m, _ = update(t, m, key("discard me"))
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.inputOpen || cmd != nil {
		t.Fatalf("esc should close input without a command")
	}
	if len(ctl.dispatched) != 1 {
		t.Fatalf("esc dispatched a command: %v", ctl.dispatched)
	}
}

func TestOperatorActions(t *testing.T) {
	ctl := &fakeController{}
	m := ready(t, ctl)
	for _, k := range []string{"v", "a", "p"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, key(k))
		if cmd == nil {
			t.Fatalf("key %q produced no command", k)
		}
		cmd()
	}
	if ctl.toggles != 1 || ctl.alerts != 1 || ctl.reshuffles != 1 {
		t.Fatalf("unexpected calls: %+v", ctl)
	}
}

func TestDispatchErrorIsShown(t *testing.T) {
	ctl := &fakeController{err: errcode.New(errcode.EngineClosed, "engine.Dispatch", "Capture Frame")}
	m := ready(t, ctl)
	_, cmd := update(t, m, key("c"))
	msg := cmd()
	em, ok := msg.(errMsg)
	if !ok || !errors.Is(em.err, errcode.EngineClosed) {
		t.Fatalf("expected errMsg, got %#v", msg)
	}
	m, _ = update(t, m, msg)
	if !strings.Contains(m.View(), "engine_closed") {
		t.Fatalf("error not rendered")
	}
}

func TestViewRendersState(t *testing.T) {
	m := ready(t, &fakeController{})
	m, _ = update(t, m, adminMsg{addr: ":8080", active: true})
	out := m.View()
	for _, want := range []string{
		"Capture Frame — completed",
		"> Capture Frame",
		"LIVE",
		"Mood: neutral",
		"admin=:8080",
		"https://drive.google.com/file/d/",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
	if strings.Index(out, "Executed 'Capture Frame'") > strings.Index(out, "> Capture Frame") {
		t.Fatalf("log not newest first")
	}

	s := testSnapshot()
	s.Streaming = false
	m, _ = update(t, m, snapshotMsg{s})
	if !strings.Contains(m.View(), "PAUSED") {
		t.Fatalf("paused indicator missing")
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := ready(t, &fakeController{})
	m, _ = update(t, m, key("?"))
	if !strings.Contains(m.View(), "Key Bindings:") {
		t.Fatalf("help not shown")
	}
	m, _ = update(t, m, key("?"))
	if m.help {
		t.Fatalf("help not closed")
	}
	_, cmd := update(t, m, key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestWrapToggle(t *testing.T) {
	m := ready(t, &fakeController{})
	m, _ = update(t, m, key("w"))
	if !m.wrap {
		t.Fatalf("wrap not enabled")
	}
}

func TestBatteryBar(t *testing.T) {
	if got := batteryBar(50, 10); !strings.HasSuffix(got, "50.0%") || strings.Count(got, "░") != 5 {
		t.Fatalf("unexpected bar %q", got)
	}
	if got := batteryBar(150, 4); strings.Count(got, "░") != 0 {
		t.Fatalf("overfull bar %q", got)
	}
}
