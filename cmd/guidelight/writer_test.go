package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/sink"
	"guidelight-panel/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:4001")
	cfg := config.Default()
	tw, ew, cleanup, err := newWriters(&cfg, writerOptions{printOnly: true, stdout: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	// go test output is not a terminal.
	if _, ok := tw.(*sink.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sink.JSONStdoutWriter, got %T", tw)
	}
	if _, ok := ew.(*sink.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sink.JSONStdoutWriter, got %T", ew)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	tw, _, cleanup, err := newWriters(nil, writerOptions{stdout: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := tw.(*sink.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sink.JSONStdoutWriter, got %T", tw)
	}
}

func TestNewWritersNothingConfigured(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	tw, ew, cleanup, err := newWriters(nil, writerOptions{})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if tw != nil || ew != nil {
		t.Fatalf("expected no writers, got %T and %T", tw, ew)
	}
}

func TestNewWritersExport(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	tw, ew, cleanup, err := newWriters(nil, writerOptions{export: path})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := tw.(*sink.MultiWriter); !ok {
		t.Fatalf("expected *sink.MultiWriter, got %T", tw)
	}
	if err := tw.Write(telemetry.Row{DeviceID: "g1", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := ew.WriteEvent(telemetry.EventRow{DeviceID: "g1", Message: "> Read text", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
	cleanup()

	for _, p := range []string{path, path + ".events"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersBadExportPath(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	_, _, _, err := newWriters(nil, writerOptions{export: filepath.Join(t.TempDir(), "missing", "t.jsonl")})
	if err == nil {
		t.Fatalf("expected error for unwritable export path")
	}
}
