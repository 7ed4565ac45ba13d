// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints telemetry rows and events using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.PanelConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.PanelConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Panel Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Device:\t%s (%s)\n", w.cfg.Device.Name, w.cfg.Device.ID)
	fmt.Fprintf(tw, "Telemetry Period:\t%s\n", w.cfg.Telemetry.Period)
	fmt.Fprintf(tw, "Command Delay:\t%s\n", w.cfg.Commands.Delay)
	fmt.Fprintf(tw, "Command Timeout:\t%s\n", w.cfg.Commands.Timeout)
	fmt.Fprintf(tw, "Log Capacity:\t%d\n", w.cfg.Log.Capacity)
	fmt.Fprintf(tw, "Moods:\t%v\n", w.cfg.Moods)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// batteryColor picks a color for the battery level.
func batteryColor(b float64) string {
	switch {
	case b < 25:
		return colorRed
	case b < 75:
		return colorYellow
	default:
		return colorGreen
	}
}

// Write outputs a single telemetry row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.Row) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sdevice=%s%s ", colorBlue, row.DeviceID, colorReset)
	fmt.Fprintf(w.out, "%stemp=%.1f°C%s ", colorMagenta, row.TemperatureC, colorReset)
	fmt.Fprintf(w.out, "%scpu=%d%%%s ", colorCyan, row.CPULoad, colorReset)
	fmt.Fprintf(w.out, "%sgpu=%d%%%s ", colorCyan, row.GPULoad, colorReset)
	fmt.Fprintf(w.out, "%sbatt=%.2f%%%s", batteryColor(row.Battery), row.Battery, colorReset)
	if row.Recharged {
		fmt.Fprintf(w.out, " %srecharged%s", colorGreen, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent prints a panel event.
func (w *ColorStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	kindColor := colorWhite()
	switch e.Kind {
	case telemetry.EventCommand:
		kindColor = colorBlue
	case telemetry.EventAlert:
		kindColor = colorYellow
	case telemetry.EventError:
		kindColor = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %s\n",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		kindColor, e.Kind, colorReset, e.Message)
	return nil
}

func colorWhite() string { return "\x1b[37m" }
