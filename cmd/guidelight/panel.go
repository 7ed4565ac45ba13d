package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guidelight-panel/internal/admin"
	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/logging"
	"guidelight-panel/internal/panel"
)

var (
	panelAdmin     string
	panelPrintOnly bool
	panelExport    string
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Run the interactive terminal control panel",
	Long:  "panel shows live telemetry, alerts, mood and the event log in the terminal and sends operator commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// The terminal belongs to the UI; logs only go to --debug-log.
		log, closeLog, err := newLogger(io.Discard)
		if err != nil {
			return err
		}
		defer closeLog()

		tw, ew, cleanup, err := newWriters(&cfg, writerOptions{printOnly: panelPrintOnly, export: panelExport})
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		eng, err := engine.New(cfg,
			engine.WithTelemetryWriter(tw),
			engine.WithEventWriter(ew),
			engine.WithLogger(log))
		if err != nil {
			return err
		}
		snaps, unsubscribe := eng.Subscribe(16)
		defer unsubscribe()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan struct{})
		go func() {
			eng.Run(ctx)
			close(done)
		}()

		ui := panel.New(ctx, eng)
		if panelAdmin != "" {
			go func() {
				ui.SetAdminStatus(panelAdmin, true)
				if err := admin.NewServer(eng, log).Start(ctx, panelAdmin); err != nil {
					log.Error("admin server failed", "addr", panelAdmin, "err", err)
				}
				ui.SetAdminStatus(panelAdmin, false)
			}()
		}

		err = ui.Run(ctx, snaps)
		cancel()
		eng.Close()
		<-done
		return err
	},
}

func init() {
	panelCmd.Flags().StringVar(&panelAdmin, "admin", "", "Also serve the admin HTTP surface on this address (e.g. :8080)")
	panelCmd.Flags().BoolVar(&panelPrintOnly, "print-only", false, "Never write to GreptimeDB even if GREPTIMEDB_ENDPOINT is set")
	panelCmd.Flags().StringVar(&panelExport, "export", "", "Path to export telemetry (JSONL) and events (<path>.events)")
}
