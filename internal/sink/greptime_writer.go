package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"guidelight-panel/internal/telemetry"
)

// DefaultWriteTimeout bounds a single GreptimeDB insert.
const DefaultWriteTimeout = 5 * time.Second

// greptimeClient is the part of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry and panel events to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	table      string
	eventTable string
	timeout    time.Duration
	log        *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and targets
// database. Empty table names fall back to the telemetry defaults.
func NewGreptimeDBWriter(endpoint, database, tableName, eventTable string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint port: %w", err)
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if tableName == "" {
		tableName = telemetry.TelemetryTableName
	}
	if eventTable == "" {
		eventTable = telemetry.EventTableName
	}
	return &GreptimeDBWriter{
		client:     client,
		table:      tableName,
		eventTable: eventTable,
		timeout:    DefaultWriteTimeout,
		log:        slog.Default(),
	}, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.Row) error {
	return w.WriteBatch([]telemetry.Row{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := addColumns(tbl,
		tag("device_id", types.STRING),
		field("temperature_c", types.FLOAT64),
		field("cpu_load", types.INT64),
		field("gpu_load", types.INT64),
		field("battery", types.FLOAT64),
		field("recharged", types.BOOLEAN),
	); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.DeviceID, r.TemperatureC, int64(r.CPULoad), int64(r.GPULoad), r.Battery, r.Recharged, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, w.table, len(rows))
}

// WriteEvent inserts a single panel event.
func (w *GreptimeDBWriter) WriteEvent(e telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{e})
}

// WriteEvents inserts multiple panel events.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 || w.eventTable == "" {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := addColumns(tbl,
		tag("device_id", types.STRING),
		tag("kind", types.STRING),
		field("message", types.STRING),
	); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, e := range rows {
		if err := tbl.AddRow(e.DeviceID, e.Kind, e.Message, e.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, w.eventTable, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, name string, n int) error {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger().Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.logger().Debug("greptime write", "table", name, "rows", n)
	return nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

type column struct {
	name string
	typ  types.ColumnType
	tag  bool
}

func tag(name string, typ types.ColumnType) column   { return column{name: name, typ: typ, tag: true} }
func field(name string, typ types.ColumnType) column { return column{name: name, typ: typ} }

func addColumns(tbl *table.Table, cols ...column) error {
	for _, c := range cols {
		var err error
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	return nil
}
