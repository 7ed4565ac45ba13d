package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guidelight-panel/internal/admin"
	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/logging"
)

var (
	serveAddr      string
	servePrintOnly bool
	serveQuiet     bool
	serveExport    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel headless behind the admin HTTP server",
	Long:  "serve runs the live-state engine and exposes it as a web page, a JSON API and a websocket stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		tw, ew, cleanup, err := newWriters(&cfg, writerOptions{printOnly: servePrintOnly, stdout: !serveQuiet, export: serveExport})
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
		done := make(chan struct{})
		go func() {
			eng.Run(ctx)
			close(done)
		}()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Admin.Addr
		}
		err = admin.NewServer(eng, log).Start(ctx, addr)
		stop()
		eng.Close()
		<-done
		log.Info("panel stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to admin.addr from the config)")
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	serveCmd.Flags().BoolVar(&serveQuiet, "quiet", false, "Do not print telemetry and events to STDOUT")
	serveCmd.Flags().StringVar(&serveExport, "export", "", "Path to export telemetry (JSONL) and events (<path>.events)")
}
