// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// Metrics is the live reading of the wearable.
type Metrics struct {
	TemperatureC float64 `json:"temperature_c"`
	CPULoad      int     `json:"cpu_load"`
	GPULoad      int     `json:"gpu_load"`
	Battery      float64 `json:"battery"`
}

// InitialMetrics is the reading shown before the first tick.
func InitialMetrics() Metrics {
	return Metrics{TemperatureC: 36.5, CPULoad: 22, GPULoad: 18, Battery: 100}
}

// Row represents one telemetry record for export sinks.
type Row struct {
	DeviceID     string    `json:"device_id"`     // TAG
	TemperatureC float64   `json:"temperature_c"` // FIELD
	CPULoad      int       `json:"cpu_load"`      // FIELD
	GPULoad      int       `json:"gpu_load"`      // FIELD
	Battery      float64   `json:"battery"`       // FIELD
	Recharged    bool      `json:"recharged"`     // FIELD
	Timestamp    time.Time `json:"ts"`            // TIME INDEX
}

// Metrics returns the reading carried by the row.
func (r Row) Metrics() Metrics {
	return Metrics{TemperatureC: r.TemperatureC, CPULoad: r.CPULoad, GPULoad: r.GPULoad, Battery: r.Battery}
}

// EventRow is one panel log line for export sinks.
type EventRow struct {
	DeviceID  string    `json:"device_id"` // TAG
	Kind      string    `json:"kind"`      // TAG
	Message   string    `json:"message"`   // FIELD
	Timestamp time.Time `json:"ts"`        // TIME INDEX
}

// Event kinds.
const (
	EventInfo    = "info"
	EventCommand = "command"
	EventAlert   = "alert"
	EventError   = "error"
)

// TelemetryTableName holds the table name used when writing to GreptimeDB.
// It defaults to "device_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "device_telemetry"
}()

// EventTableName is the GreptimeDB table for panel events
// (GREPTIMEDB_EVENT_TABLE, default "panel_events").
var EventTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_EVENT_TABLE"); env != "" {
		return env
	}
	return "panel_events"
}()

func (Row) TableName() string {
	return TelemetryTableName
}

func (EventRow) TableName() string {
	return EventTableName
}
