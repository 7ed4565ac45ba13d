package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"guidelight-panel/internal/telemetry"
)

func readLines(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var out [][]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, append([]byte(nil), sc.Bytes()...))
	}
	return out
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	telePath := filepath.Join(dir, "telemetry.jsonl")
	eventPath := filepath.Join(dir, "telemetry.jsonl.events")

	fw, err := NewFileWriter(telePath, eventPath)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	row := telemetry.Row{DeviceID: "g1", TemperatureC: 36.7, CPULoad: 28, GPULoad: 14, Battery: 98.4, Timestamp: ts}
	ev := telemetry.EventRow{DeviceID: "g1", Kind: telemetry.EventAlert, Message: "Alert: chair 1.2m ahead", Timestamp: ts}
	if err := fw.WriteBatch([]telemetry.Row{row, row}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := fw.WriteEvent(ev); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, telePath)
	if len(lines) != 2 {
		t.Fatalf("telemetry lines = %d, want 2", len(lines))
	}
	var got telemetry.Row
	if err := json.Unmarshal(lines[0], &got); err != nil {
		t.Fatalf("decode telemetry: %v", err)
	}
	if got.CPULoad != row.CPULoad || got.Battery != row.Battery {
		t.Fatalf("unexpected telemetry: %#v", got)
	}

	evLines := readLines(t, eventPath)
	if len(evLines) != 1 {
		t.Fatalf("event lines = %d, want 1", len(evLines))
	}
	var gotEv telemetry.EventRow
	if err := json.Unmarshal(evLines[0], &gotEv); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if gotEv.Message != ev.Message || gotEv.Kind != ev.Kind {
		t.Fatalf("unexpected event: %#v", gotEv)
	}
}

func TestFileWriterWithoutEvents(t *testing.T) {
	fw, err := NewFileWriter(filepath.Join(t.TempDir(), "t.jsonl"), "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteEvent(telemetry.EventRow{Message: "ignored"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
}
