package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"guidelight-panel/internal/sink"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry export",
	Long:  "replay feeds telemetry rows from a JSONL export back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		writer, err := newTelemetryWriter(&cfg, replayPrintOnly)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		n, err := sink.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		log.Info("replay finished", "input", replayInput, "rows", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry export file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 for no delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
