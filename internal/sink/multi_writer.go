package sink

import "guidelight-panel/internal/telemetry"

// MultiWriter fan-outs telemetry and event rows to multiple writers.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	eventwriters []EventWriter
}

// NewMultiWriter creates a new MultiWriter. Nil entries are skipped.
func NewMultiWriter(tws []TelemetryWriter, ews []EventWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range tws {
		if w != nil {
			mw.telewriters = append(mw.telewriters, w)
		}
	}
	for _, w := range ews {
		if w != nil {
			mw.eventwriters = append(mw.eventwriters, w)
		}
	}
	return mw
}

// Write sends a telemetry row to all writers.
func (mw *MultiWriter) Write(row telemetry.Row) error {
	for _, w := range mw.telewriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Row) error {
	for _, w := range mw.telewriters {
		if err := WriteRows(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent sends an event to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.eventwriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.eventwriters {
		if err := WriteEvents(w, rows); err != nil {
			return err
		}
	}
	return nil
}
