// Package engine holds the live state of the control panel: the event log,
// simulated telemetry, in-flight commands, the alert, the mood and the
// stream flag.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/logging"
	"guidelight-panel/internal/scheduler"
	"guidelight-panel/internal/sink"
	"guidelight-panel/internal/telemetry"
)

const (
	// DefaultAlert is shown until something overwrites it.
	DefaultAlert = "no active alerts"
	// DefaultMood is the mood before the first reshuffle.
	DefaultMood = "neutral"

	testAlert      = "Obstacle: chair 1.2m ahead"
	testAlertLog   = "Alert: chair 1.2m ahead"
	rechargedLog   = "Battery recharged to 100%"
	streamStopped  = "Stopped video stream"
	streamStarted  = "Started video stream"
	reshuffleLogFm = "Playlist reshuffled -> mood: %s"
)

// Engine is the only mutator of panel state. Every operation and every timer
// callback runs under one mutex, so each state change and its log entry are
// atomic with respect to everything else.
type Engine struct {
	mu sync.Mutex

	cfg     config.PanelConfig
	clock   scheduler.Clock
	sched   *scheduler.Scheduler
	rand    telemetry.Source
	log     *slog.Logger
	channel CommandChannel
	tw      sink.TelemetryWriter
	ew      sink.EventWriter
	export  *sink.Queue
	qsize   int

	buf       *LogBuffer
	gen       *telemetry.Generator
	metrics   telemetry.Metrics
	alert     string
	mood      string
	streaming bool
	pending   map[string]*inflight
	seq       uint64
	updatedAt time.Time

	ticker  *scheduler.Timer
	started bool
	closed  bool

	subs    map[int]chan Snapshot
	nextSub int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock drives the engine and its scheduler from clock.
func WithClock(c scheduler.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithRand sets the randomness used for telemetry, moods and simulated failures.
func WithRand(src telemetry.Source) Option { return func(e *Engine) { e.rand = src } }

// WithChannel replaces the simulated device channel.
func WithChannel(c CommandChannel) Option { return func(e *Engine) { e.channel = c } }

// WithTelemetryWriter exports every telemetry tick to w. Writes happen on a
// background queue, never on the caller's goroutine.
func WithTelemetryWriter(w sink.TelemetryWriter) Option { return func(e *Engine) { e.tw = w } }

// WithEventWriter exports every log entry to w.
func WithEventWriter(w sink.EventWriter) Option { return func(e *Engine) { e.ew = w } }

// WithExportBuffer sets how many rows may wait for the writers before new
// ones are dropped.
func WithExportBuffer(n int) Option { return func(e *Engine) { e.qsize = n } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds an engine from cfg. Timers are not armed until Start or Run.
func New(cfg config.PanelConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		clock:     scheduler.System,
		log:       slog.Default(),
		metrics:   telemetry.InitialMetrics(),
		alert:     DefaultAlert,
		mood:      DefaultMood,
		streaming: true,
		pending:   make(map[string]*inflight),
		subs:      make(map[int]chan Snapshot),
	}
	for _, o := range opts {
		o(e)
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.sched = scheduler.New(e.clock)
	if e.tw != nil || e.ew != nil {
		e.export = sink.NewQueue(e.tw, e.ew, e.qsize, e.log)
	}
	if e.channel == nil {
		e.channel = NewSimulatedChannel(e.sched, cfg.Commands.Delay, cfg.Commands.FailureRate, e.rand)
	}

	t := cfg.Telemetry
	e.gen = telemetry.NewGenerator(cfg.Device.ID, telemetry.Bounds{
		TempMinC:        t.TempMinC,
		TempMaxC:        t.TempMaxC,
		CPUMin:          t.CPUMin,
		CPUMax:          t.CPUMax,
		GPUMin:          t.GPUMin,
		GPUMax:          t.GPUMax,
		GPU:             !t.DisableGPU,
		BatteryFloor:    t.BatteryFloor,
		BatteryDrainMax: t.BatteryDrainMax,
	}, e.rand, e.clock.Now)

	e.buf = NewLogBuffer(cfg.Log.Capacity, e.clock.Now)
	// Seed lines read top to bottom once the log is shown newest first.
	for i := len(cfg.Log.Seed) - 1; i >= 0; i-- {
		e.appendLocked(telemetry.EventInfo, cfg.Log.Seed[i])
	}
	e.updatedAt = e.clock.Now()
	return e, nil
}

// Scheduler exposes the timer queue, mainly so tests can Fire it against a
// manual clock.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// Start arms the telemetry ticker. It is idempotent and a no-op once closed.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	e.ticker = e.sched.Every(e.cfg.Telemetry.Period, e.tick)
	e.log.Info("engine started", "device", e.cfg.Device.ID, "period", e.cfg.Telemetry.Period,
		"delay", e.cfg.Commands.Delay)
}

// Run starts the engine and fires timers until ctx is done, then closes it.
func (e *Engine) Run(ctx context.Context) {
	ctx = logging.NewContext(ctx, e.log)
	e.Start()
	e.sched.Run(ctx)
	e.Close()
}

// Close cancels the ticker and every in-flight command, stops the scheduler
// and waits for queued exports to be written. Later operations are no-ops.
// Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.ticker.Stop()
	for id, f := range e.pending {
		if f.cancel != nil {
			f.cancel()
		}
		f.timeout.Stop()
		delete(e.pending, id)
	}
	e.publishLocked()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.mu.Unlock()

	e.sched.Close()
	if e.export != nil {
		e.export.Close()
		if n := e.export.Dropped(); n > 0 {
			e.log.Warn("export rows dropped", "count", n)
		}
	}
	e.log.Info("engine closed", "device", e.cfg.Device.ID)
}

// tick advances the simulated telemetry.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	row, clamped := e.gen.Tick(&e.metrics)
	for _, err := range clamped {
		metric := "metric"
		var ce *telemetry.ClampError
		if errors.As(err, &ce) {
			metric = ce.Metric
		}
		e.appendLocked(telemetry.EventError, fmt.Sprintf("Telemetry: %s out of range, clamped", metric))
		e.log.Warn("telemetry clamped", "err", err)
	}
	if row.Recharged && !e.cfg.Telemetry.SilentRecharge {
		e.appendLocked(telemetry.EventInfo, rechargedLog)
	}
	if e.export != nil {
		if err := e.export.Write(row); err != nil {
			e.log.Debug("telemetry row not exported", "err", err)
		}
	}
	e.updatedAt = row.Timestamp
	e.publishLocked()
}

// SetAlert overwrites the current alert.
func (e *Engine) SetAlert(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.alert = message
	e.publishLocked()
}

// TriggerTestAlert raises the canned obstacle alert, logs it and returns the
// alert now in effect.
func (e *Engine) TriggerTestAlert() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.alert
	}
	e.alert = testAlert
	e.appendLocked(telemetry.EventAlert, testAlertLog)
	e.publishLocked()
	return e.alert
}

// Reshuffle picks a new mood uniformly from the configured set and returns it.
func (e *Engine) Reshuffle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.mood
	}
	e.mood = e.cfg.Moods[e.rand.Intn(len(e.cfg.Moods))]
	e.appendLocked(telemetry.EventInfo, fmt.Sprintf(reshuffleLogFm, e.mood))
	e.publishLocked()
	return e.mood
}

// ToggleStream flips the stream flag and returns the new state.
func (e *Engine) ToggleStream() StreamState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return streamState(e.streaming)
	}
	e.streaming = !e.streaming
	if e.streaming {
		e.appendLocked(telemetry.EventInfo, streamStarted)
	} else {
		e.appendLocked(telemetry.EventInfo, streamStopped)
	}
	e.publishLocked()
	return streamState(e.streaming)
}

// appendLocked logs message and queues it for export. Callers hold e.mu.
func (e *Engine) appendLocked(kind, message string) LogEntry {
	entry := e.buf.Append(message)
	e.updatedAt = entry.Timestamp
	if e.export != nil {
		ev := telemetry.EventRow{
			DeviceID:  e.cfg.Device.ID,
			Kind:      kind,
			Message:   message,
			Timestamp: entry.Timestamp.UTC(),
		}
		if err := e.export.WriteEvent(ev); err != nil {
			e.log.Debug("event not exported", "kind", kind, "err", err)
		}
	}
	return entry
}
