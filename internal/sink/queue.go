package sink

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"guidelight-panel/internal/errcode"
	"guidelight-panel/internal/telemetry"
)

// DefaultQueueSize is the number of rows a Queue holds before dropping.
const DefaultQueueSize = 512

// maxBatch caps how many queued items one flush hands to the writers.
const maxBatch = 64

// ErrQueueFull is returned when a row is dropped because the queue is full.
var ErrQueueFull = errcode.New(errcode.Unavailable, "sink.Queue", "export queue full")

// ErrQueueClosed is returned for writes after Close.
var ErrQueueClosed = errcode.New(errcode.Unavailable, "sink.Queue", "export queue closed")

type queued struct {
	row   *telemetry.Row
	event *telemetry.EventRow
}

// Queue hands telemetry rows and events to the wrapped writers from a single
// goroutine. Write and WriteEvent never block: when the buffer is full the
// row is dropped and counted. Rows reach the writers in the order they were
// queued; consecutive rows of the same kind are written as one batch.
type Queue struct {
	tw  TelemetryWriter
	ew  EventWriter
	log *slog.Logger

	mu     sync.RWMutex
	closed bool
	items  chan queued
	done   chan struct{}

	dropped atomic.Uint64
}

// NewQueue starts a queue in front of tw and ew. Either writer may be nil,
// in which case rows of that kind are discarded. size <= 0 uses DefaultQueueSize.
func NewQueue(tw TelemetryWriter, ew EventWriter, size int, log *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		tw:    tw,
		ew:    ew,
		log:   log,
		items: make(chan queued, size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Write queues a telemetry row.
func (q *Queue) Write(row telemetry.Row) error {
	if q.tw == nil {
		return nil
	}
	return q.push(queued{row: &row})
}

// WriteEvent queues a panel event.
func (q *Queue) WriteEvent(e telemetry.EventRow) error {
	if q.ew == nil {
		return nil
	}
	return q.push(queued{event: &e})
}

// Dropped reports how many rows were discarded because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

func (q *Queue) push(it queued) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- it:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting rows and waits until everything already queued has
// been written. It is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for it := range q.items {
		batch := []queued{it}
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-q.items:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		q.flush(batch)
	}
}

// flush writes batch, grouping runs of the same kind.
func (q *Queue) flush(batch []queued) {
	for len(batch) > 0 {
		if batch[0].row != nil {
			var rows []telemetry.Row
			for len(batch) > 0 && batch[0].row != nil {
				rows = append(rows, *batch[0].row)
				batch = batch[1:]
			}
			if err := WriteRows(q.tw, rows); err != nil {
				q.log.Error("telemetry export failed", "rows", len(rows), "err", err)
			}
			continue
		}
		var events []telemetry.EventRow
		for len(batch) > 0 && batch[0].event != nil {
			events = append(events, *batch[0].event)
			batch = batch[1:]
		}
		if err := WriteEvents(q.ew, events); err != nil {
			q.log.Error("event export failed", "events", len(events), "err", err)
		}
	}
}
