package engine

import (
	"time"

	"guidelight-panel/internal/errcode"
	"guidelight-panel/internal/scheduler"
	"guidelight-panel/internal/telemetry"
)

// CommandChannel carries operator commands to the device. Send must return
// before ack is invoked, and ack is invoked at most once. The returned cancel
// func abandons the command; it is safe to call after ack.
type CommandChannel interface {
	Send(cmd PendingCommand, ack func(error)) (cancel func())
}

// SimulatedChannel acknowledges every command after Delay. With a non-zero
// FailureRate a share of commands is rejected instead.
type SimulatedChannel struct {
	sched       *scheduler.Scheduler
	Delay       time.Duration
	FailureRate float64
	rand        telemetry.Source
}

// NewSimulatedChannel creates a channel acknowledging on sched after delay.
func NewSimulatedChannel(sched *scheduler.Scheduler, delay time.Duration, failureRate float64, src telemetry.Source) *SimulatedChannel {
	return &SimulatedChannel{sched: sched, Delay: delay, FailureRate: failureRate, rand: src}
}

// Send implements CommandChannel.
func (c *SimulatedChannel) Send(cmd PendingCommand, ack func(error)) func() {
	var err error
	if c.FailureRate > 0 && c.rand != nil && c.rand.Float64() < c.FailureRate {
		err = errcode.New(errcode.CommandFailed, "device.Send", "device rejected command")
	}
	t := c.sched.After(c.Delay, func() { ack(err) })
	return func() { t.Stop() }
}
