package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"guidelight-panel/internal/telemetry"
)

// JSONStdoutWriter prints telemetry and events as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// NewJSONWriter creates a JSONStdoutWriter writing to out.
func NewJSONWriter(out io.Writer) *JSONStdoutWriter {
	return &JSONStdoutWriter{out: out}
}

// Write outputs a telemetry row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.Row) error {
	return w.line(row)
}

// WriteBatch outputs multiple telemetry rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent outputs a panel event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	return w.line(e)
}

func (w *JSONStdoutWriter) line(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
