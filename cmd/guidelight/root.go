package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/logging"
)

var (
	configPath string
	schemaPath string
	logLevel   string
	debugLog   string
)

var rootCmd = &cobra.Command{
	Use:   "guidelight",
	Short: "Guidelight wearable control panel",
	Long: "guidelight runs the control panel for the Guidelight wearable: simulated telemetry, " +
		"command acknowledgments, alerts and playlist mood, in the terminal or over HTTP.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/panel.yaml", "Path to panel configuration YAML (empty for built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "schemas/panel.cue", "Path to CUE schema file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&debugLog, "debug-log", "", "Write diagnostic logs to this file")

	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func loadConfig() (config.PanelConfig, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return config.PanelConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger. Logs go to --debug-log when set,
// otherwise to fallback. The returned func closes the log file.
func newLogger(fallback io.Writer) (*slog.Logger, func(), error) {
	if debugLog == "" {
		l := logging.NewWithLevel(fallback, logLevel)
		slog.SetDefault(l)
		return l, func() {}, nil
	}
	f, err := os.OpenFile(debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	l := logging.NewWithLevel(f, logLevel)
	slog.SetDefault(l)
	return l, func() { f.Close() }, nil
}
