package main

import (
	"os"

	"golang.org/x/term"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/sink"
)

// writerOptions selects the export sinks.
type writerOptions struct {
	printOnly bool   // ignore GREPTIMEDB_ENDPOINT
	stdout    bool   // print to STDOUT when no database is used
	export    string // JSONL export path; events go to export+".events"
}

// newWriters sets up telemetry and event writers based on flags and env vars.
// Either writer may be nil when nothing is configured. The returned func
// closes any opened files.
func newWriters(cfg *config.PanelConfig, o writerOptions) (sink.TelemetryWriter, sink.EventWriter, func(), error) {
	cleanup := func() {}

	tw, ew, err := baseWriters(cfg, o)
	if err != nil {
		return nil, nil, nil, err
	}
	if o.export == "" {
		return tw, ew, cleanup, nil
	}

	fw, err := sink.NewFileWriter(o.export, o.export+".events")
	if err != nil {
		return nil, nil, nil, err
	}
	mw := sink.NewMultiWriter([]sink.TelemetryWriter{tw, fw}, []sink.EventWriter{ew, fw})
	cleanup = func() { fw.Close() }
	return mw, mw, cleanup, nil
}

// baseWriters chooses GreptimeDB when GREPTIMEDB_ENDPOINT is set, else STDOUT.
func baseWriters(cfg *config.PanelConfig, o writerOptions) (sink.TelemetryWriter, sink.EventWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if !o.printOnly && endpoint != "" {
		db := os.Getenv("GREPTIMEDB_DATABASE")
		if db == "" {
			db = "public"
		}
		w, err := sink.NewGreptimeDBWriter(endpoint, db, os.Getenv("GREPTIMEDB_TABLE"), os.Getenv("GREPTIMEDB_EVENT_TABLE"))
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	}
	if !o.stdout {
		return nil, nil, nil
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		w := sink.NewColorStdoutWriter(cfg)
		return w, w, nil
	}
	w := sink.NewJSONStdoutWriter()
	return w, w, nil
}

// newTelemetryWriter creates a telemetry writer for replays.
func newTelemetryWriter(cfg *config.PanelConfig, printOnly bool) (sink.TelemetryWriter, error) {
	tw, _, _, err := newWriters(cfg, writerOptions{printOnly: printOnly, stdout: true})
	return tw, err
}
