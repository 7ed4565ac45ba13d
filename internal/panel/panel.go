// Package panel renders the control panel in the terminal with bubbletea.
package panel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/logging"
)

// Controller is the set of engine operations the panel can trigger.
type Controller interface {
	Dispatch(command string) (engine.PendingCommand, error)
	ToggleStream() engine.StreamState
	TriggerTestAlert() string
	Reshuffle() string
}

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// snapshotMsg carries a fresh engine state.
type snapshotMsg struct{ engine.Snapshot }

// adminMsg reports the admin server status.
type adminMsg struct {
	addr   string
	active bool
}

// errMsg reports a rejected operator action.
type errMsg struct{ err error }

// Panel is a running terminal UI.
type Panel struct {
	program *tea.Program
}

// New builds the UI for ctl. Extra options are passed to bubbletea, which
// lets tests swap input and output.
func New(ctx context.Context, ctl Controller, opts ...tea.ProgramOption) *Panel {
	m := newModel(ctl)
	base := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	return &Panel{program: tea.NewProgram(m, append(base, opts...)...)}
}

// Run feeds snaps into the UI and blocks until the operator quits, ctx is
// done or snaps is closed.
func (p *Panel) Run(ctx context.Context, snaps <-chan engine.Snapshot) error {
	log := logging.FromContext(ctx)
	go func() {
		Forward(snaps, p.program)
		p.program.Quit()
	}()
	if _, err := p.program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("panel: %w", err)
	}
	log.Debug("panel closed")
	return nil
}

// SetAdminStatus updates the admin indicator.
func (p *Panel) SetAdminStatus(addr string, active bool) {
	p.program.Send(adminMsg{addr: addr, active: active})
}

// Forward relays snapshots to a program until snaps is closed.
func Forward(snaps <-chan engine.Snapshot, p teaProgram) {
	for s := range snaps {
		p.Send(snapshotMsg{s})
	}
}
