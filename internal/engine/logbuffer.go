package engine

import "time"

// DefaultLogCapacity is the number of entries kept when no capacity is configured.
const DefaultLogCapacity = 60

// LogEntry is one line of the panel event log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Clock renders the entry time the way the panel shows it.
func (e LogEntry) Clock() string { return e.Timestamp.Local().Format("15:04:05") }

func (e LogEntry) String() string { return "[" + e.Clock() + "] " + e.Message }

// LogBuffer is a bounded, newest-first record of panel events. It is not safe
// for concurrent use; the Engine guards it.
type LogBuffer struct {
	entries []LogEntry
	cap     int
	now     func() time.Time
}

// NewLogBuffer creates a buffer holding at most capacity entries, stamping
// them with now. A non-positive capacity means DefaultLogCapacity.
func NewLogBuffer(capacity int, now func() time.Time) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &LogBuffer{entries: make([]LogEntry, 0, capacity), cap: capacity, now: now}
}

// Append timestamps message and puts it in front, evicting the oldest entry
// when the buffer is full.
func (b *LogBuffer) Append(message string) LogEntry {
	e := LogEntry{Timestamp: b.now(), Message: message}
	if len(b.entries) < b.cap {
		b.entries = append(b.entries, LogEntry{})
	}
	copy(b.entries[1:], b.entries[:len(b.entries)-1])
	b.entries[0] = e
	return e
}

// Entries returns a copy of the log, newest first.
func (b *LogBuffer) Entries() []LogEntry {
	out := make([]LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *LogBuffer) Len() int { return len(b.entries) }
func (b *LogBuffer) Cap() int { return b.cap }
