// Package sink exports engine output: telemetry rows and panel events.
package sink

import "guidelight-panel/internal/telemetry"

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.Row) error
}

// EventWriter receives panel log events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Row) error
}

// Optional: Event writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}

// WriteRows writes rows using batch mode when w supports it.
func WriteRows(w TelemetryWriter, rows []telemetry.Row) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents writes events using batch mode when w supports it.
func WriteEvents(w EventWriter, rows []telemetry.EventRow) error {
	if bw, ok := w.(batchEventWriter); ok {
		return bw.WriteEvents(rows)
	}
	for _, r := range rows {
		if err := w.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}
