package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"guidelight-panel/internal/engine"
)

// quickKeys bind the configured quick commands, in order.
var quickKeys = []string{"c", "f", "r", "d", "u"}

type model struct {
	ctl        Controller
	snap       engine.Snapshot
	table      table.Model
	vp         viewport.Model
	input      textinput.Model
	inputOpen  bool
	help       bool
	wrap       bool
	autoscroll bool
	width      int
	height     int
	admin      adminMsg
	lastErr    string
}

func newModel(ctl Controller) model {
	cols := []table.Column{
		{Title: "Metric", Width: 14},
		{Title: "Value", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(5))
	in := textinput.New()
	in.Placeholder = "command for the device"
	in.CharLimit = 120
	return model{
		ctl:        ctl,
		table:      t,
		vp:         viewport.New(0, 0),
		input:      in,
		autoscroll: true,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.inputOpen {
			switch msg.Type {
			case tea.KeyEnter:
				cmd := strings.TrimSpace(m.input.Value())
				m.inputOpen = false
				m.input.Blur()
				m.input.Reset()
				m.updateViewportHeight()
				if cmd == "" {
					return m, nil
				}
				return m, m.dispatch(cmd)
			case tea.KeyEsc:
				m.inputOpen = false
				m.input.Blur()
				m.input.Reset()
				m.updateViewportHeight()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		key := msg.String()
		for i, k := range quickKeys {
			if key == k && i < len(m.snap.QuickCommands) {
				return m, m.dispatch(m.snap.QuickCommands[i])
			}
		}
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case ":":
			m.inputOpen = true
			m.updateViewportHeight()
			return m, m.input.Focus()
		case "v":
			ctl := m.ctl
			return m, func() tea.Msg { ctl.ToggleStream(); return nil }
		case "a":
			ctl := m.ctl
			return m, func() tea.Msg { ctl.TriggerTestAlert(); return nil }
		case "p":
			ctl := m.ctl
			return m, func() tea.Msg { ctl.Reshuffle(); return nil }
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoTop()
			}
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		}
		if !m.autoscroll {
			switch key {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown":
				m.vp.LineDown(10)
			case "pgup":
				m.vp.LineUp(10)
			}
		}
		return m, nil
	case snapshotMsg:
		m.snap = msg.Snapshot
		m.table.SetRows(metricRows(m.snap))
		m.updateViewportHeight()
		m.refreshViewport()
	case adminMsg:
		m.admin = msg
		m.updateViewportHeight()
	case errMsg:
		m.lastErr = msg.err.Error()
	}
	return m, nil
}

func (m model) dispatch(command string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		if _, err := ctl.Dispatch(command); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func metricRows(s engine.Snapshot) []table.Row {
	mt := s.Metrics
	return []table.Row{
		{"Temperature", fmt.Sprintf("%.1f°C", mt.TemperatureC)},
		{"CPU load", fmt.Sprintf("%d%%", mt.CPULoad)},
		{"GPU load", fmt.Sprintf("%d%%", mt.GPULoad)},
		{"Battery", fmt.Sprintf("%.1f%%", mt.Battery)},
	}
}

func (m *model) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderBottom()) - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

// refreshViewport renders the log newest first.
func (m *model) refreshViewport() {
	lines := make([]string, 0, len(m.snap.Log))
	for _, l := range m.snap.Log {
		line := logStyle(l.Message).Render(l.String())
		if m.wrap && m.vp.Width > 0 {
			line = wordwrap.String(line, m.vp.Width)
		}
		lines = append(lines, line)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoTop()
	}
}
