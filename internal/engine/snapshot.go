package engine

import (
	"time"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/telemetry"
)

// StreamState is the video stream flag as shown to the operator.
type StreamState int

const (
	Paused StreamState = iota
	Streaming
)

func streamState(on bool) StreamState {
	if on {
		return Streaming
	}
	return Paused
}

func (s StreamState) String() string {
	if s == Streaming {
		return "Streaming"
	}
	return "Paused"
}

// VideoInfo carries the opaque video references. Nothing checks they exist.
type VideoInfo struct {
	FeedPath    string `json:"feed_path"`
	DriveFileID string `json:"drive_file_id,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// Snapshot is a copy of the panel state. Presentation renders it and never
// writes back.
type Snapshot struct {
	Log           []LogEntry        `json:"log"`
	Metrics       telemetry.Metrics `json:"metrics"`
	Alert         string            `json:"alert"`
	Mood          string            `json:"mood"`
	Moods         []string          `json:"moods"`
	Streaming     bool              `json:"streaming"`
	Pending       []PendingCommand  `json:"pending"`
	QuickCommands []string          `json:"quick_commands"`
	Device        config.Device     `json:"device"`
	Video         VideoInfo         `json:"video"`
	Closed        bool              `json:"closed"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Stream returns the stream flag as a StreamState.
func (s Snapshot) Stream() StreamState { return streamState(s.Streaming) }

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	dev := e.cfg.Device
	dev.Components = append([]config.Component(nil), dev.Components...)
	return Snapshot{
		Log:           e.buf.Entries(),
		Metrics:       e.metrics,
		Alert:         e.alert,
		Mood:          e.mood,
		Moods:         append([]string(nil), e.cfg.Moods...),
		Streaming:     e.streaming,
		Pending:       e.pendingLocked(),
		QuickCommands: append([]string(nil), e.cfg.Commands.Quick...),
		Device:        dev,
		Video: VideoInfo{
			FeedPath:    e.cfg.Video.FeedPath,
			DriveFileID: e.cfg.Video.DriveFileID,
			PreviewURL:  e.cfg.Video.DrivePreviewURL(),
		},
		Closed:    e.closed,
		UpdatedAt: e.updatedAt,
	}
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current state. A slow reader only loses intermediate
// snapshots; the newest one is always delivered. The channel is closed by
// the returned cancel func or when the engine closes.
func (e *Engine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		ch <- e.snapshotLocked()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			close(c)
			delete(e.subs, id)
		}
	}
}

// publishLocked pushes the current state to subscribers without blocking.
// Callers hold e.mu.
func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	s := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
