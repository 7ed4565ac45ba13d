package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"guidelight-panel/internal/engine"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	liveStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m model) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{m.renderHeader(), divider, m.vp.View(), divider, m.renderBottom()}, "\n")
}

func (m model) renderHeader() string {
	s := m.snap
	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("%s Control Panel", nonEmpty(s.Device.Name, "Guidelight"))),
		m.renderDevice(),
		m.renderStream(),
		fmt.Sprintf("Mood: %s", s.Mood),
		fmt.Sprintf("Pending commands: %d", len(s.Pending)),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.table.View(),
		batteryBar(s.Metrics.Battery, 20),
	)
	top := lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(left), " ", boxStyle.Render(right))
	return lipgloss.JoinVertical(lipgloss.Left, top, m.renderAlert())
}

func (m model) renderDevice() string {
	d := m.snap.Device
	parts := []string{fmt.Sprintf("Device: %s (%s)", nonEmpty(d.Status, "unknown"), d.ID)}
	for _, c := range d.Components {
		parts = append(parts, fmt.Sprintf("  %s: %s", c.Name, c.Value))
	}
	return strings.Join(parts, "\n")
}

func (m model) renderStream() string {
	s := m.snap
	var state string
	if s.Stream() == engine.Streaming {
		state = liveStyle.Render("● LIVE")
	} else {
		state = pausedStyle.Render("❚❚ PAUSED")
	}
	line := fmt.Sprintf("Video: %s %s", state, dimStyle.Render(s.Video.FeedPath))
	if s.Video.PreviewURL != "" {
		line += "\n" + dimStyle.Render("Preview: "+s.Video.PreviewURL)
	}
	return line
}

func (m model) renderAlert() string {
	a := m.snap.Alert
	style := dimStyle
	switch {
	case strings.HasPrefix(a, "ERROR"):
		style = errorStyle
	case a != "" && a != engine.DefaultAlert:
		style = alertStyle
	}
	return style.Render("Alert: " + a)
}

func (m model) renderBottom() string {
	var lines []string
	if m.inputOpen {
		lines = append(lines, "Command: "+m.input.View())
	} else {
		var quick []string
		for i, c := range m.snap.QuickCommands {
			if i >= len(quickKeys) {
				break
			}
			quick = append(quick, fmt.Sprintf("[%s] %s", quickKeys[i], c))
		}
		if len(quick) > 0 {
			lines = append(lines, strings.Join(quick, "  "))
		}
		lines = append(lines, dimStyle.Render("[:] command  [v] stream  [a] test alert  [p] mood  [?] help  [q] quit"))
	}
	status := fmt.Sprintf("wrap=%v autoscroll=%v", m.wrap, m.autoscroll)
	if m.admin.active {
		status += fmt.Sprintf("  admin=%s", m.admin.addr)
	}
	lines = append(lines, dimStyle.Render(status))
	if m.lastErr != "" {
		lines = append(lines, errorStyle.Render(m.lastErr))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
	}
	for i, c := range m.snap.QuickCommands {
		if i >= len(quickKeys) {
			break
		}
		lines = append(lines, fmt.Sprintf(" %s  send %q", quickKeys[i], c))
	}
	lines = append(lines,
		" :  type a command (enter sends, esc cancels)",
		" v  stop/resume the video stream",
		" a  raise a test alert",
		" p  reshuffle the playlist mood",
		" w  toggle wrap for the log",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	)
	return strings.Join(lines, "\n")
}

// batteryBar draws the charge level, colored like the stdout writer.
func batteryBar(level float64, width int) string {
	filled := int(level / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	color := "10"
	switch {
	case level < 25:
		color = "9"
	case level < 75:
		color = "11"
	}
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", filled))
	return fmt.Sprintf("[%s%s] %.1f%%", bar, strings.Repeat("░", width-filled), level)
}

func logStyle(msg string) lipgloss.Style {
	switch {
	case strings.HasPrefix(msg, "> "):
		return commandStyle
	case strings.HasPrefix(msg, "Alert:"):
		return alertStyle
	case strings.Contains(msg, "failed") || strings.Contains(msg, "timed out") || strings.HasPrefix(msg, "Telemetry:"):
		return errorStyle
	}
	return lipgloss.NewStyle()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
