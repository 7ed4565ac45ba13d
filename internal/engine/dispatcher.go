package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"guidelight-panel/internal/errcode"
	"guidelight-panel/internal/scheduler"
	"guidelight-panel/internal/telemetry"
)

// PendingCommand is a command issued to the device and not yet resolved.
type PendingCommand struct {
	ID       string    `json:"id"`
	Command  string    `json:"command"`
	IssuedAt time.Time `json:"issued_at"`
	DueAt    time.Time `json:"due_at"`
}

type inflight struct {
	cmd     PendingCommand
	seq     uint64
	cancel  func()
	timeout *scheduler.Timer
}

// Dispatch issues command to the device. The "> command" entry is logged
// before Dispatch returns; the outcome lands in the log and the alert once
// the channel acknowledges, fails or the command times out.
func (e *Engine) Dispatch(command string) (PendingCommand, error) {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return PendingCommand{}, errcode.New(errcode.InvalidParams, "engine.Dispatch", "empty command")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return PendingCommand{}, errcode.New(errcode.EngineClosed, "engine.Dispatch", cmd)
	}

	now := e.clock.Now()
	p := PendingCommand{
		ID:       uuid.NewString(),
		Command:  cmd,
		IssuedAt: now,
		DueAt:    now.Add(e.cfg.Commands.Delay),
	}
	e.seq++
	f := &inflight{cmd: p, seq: e.seq}
	e.pending[p.ID] = f

	e.appendLocked(telemetry.EventCommand, "> "+cmd)
	f.cancel = e.channel.Send(p, func(err error) { e.resolve(p.ID, err) })
	if d := e.cfg.Commands.Timeout; d > 0 {
		f.timeout = e.sched.After(d, func() { e.expire(p.ID) })
	}
	e.log.Debug("command dispatched", "id", p.ID, "command", cmd, "due", p.DueAt)
	e.publishLocked()
	return p, nil
}

// resolve settles a command once the channel answers.
func (e *Engine) resolve(id string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.takeLocked(id)
	if !ok {
		return
	}
	f.timeout.Stop()

	cmd := f.cmd.Command
	if err == nil {
		e.appendLocked(telemetry.EventInfo, fmt.Sprintf("System: Executed '%s' successfully.", cmd))
		e.alert = cmd + " — completed"
		e.log.Debug("command completed", "id", id, "command", cmd)
	} else {
		e.appendLocked(telemetry.EventError, fmt.Sprintf("System: Command '%s' failed: %s", cmd, failureReason(err)))
		e.alert = "ERROR: " + cmd + " — failed"
		e.log.Warn("command failed", "id", id, "command", cmd, "code", errcode.Of(err), "err", err)
	}
	e.publishLocked()
}

// expire settles a command the channel never answered.
func (e *Engine) expire(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.takeLocked(id)
	if !ok {
		return
	}
	if f.cancel != nil {
		f.cancel()
	}
	cmd := f.cmd.Command
	e.appendLocked(telemetry.EventError, fmt.Sprintf("System: Command '%s' timed out.", cmd))
	e.alert = "ERROR: " + cmd + " — timed out"
	e.log.Warn("command timed out", "id", id, "command", cmd, "code", errcode.CommandTimeout,
		"after", e.cfg.Commands.Timeout)
	e.publishLocked()
}

func (e *Engine) takeLocked(id string) (*inflight, bool) {
	if e.closed {
		return nil, false
	}
	f, ok := e.pending[id]
	if !ok {
		return nil, false
	}
	delete(e.pending, id)
	return f, true
}

// pendingLocked lists in-flight commands in dispatch order.
func (e *Engine) pendingLocked() []PendingCommand {
	fs := make([]*inflight, 0, len(e.pending))
	for _, f := range e.pending {
		fs = append(fs, f)
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].seq < fs[j].seq })
	out := make([]PendingCommand, len(fs))
	for i, f := range fs {
		out[i] = f.cmd
	}
	return out
}

func failureReason(err error) string {
	var ce *errcode.E
	if errors.As(err, &ce) && ce.Msg != "" {
		return ce.Msg
	}
	return err.Error()
}
