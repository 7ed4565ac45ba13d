package main

import (
	"github.com/spf13/cobra"

	"guidelight-panel/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB export",
	Long:  "dashboard writes Grafana dashboard JSON for the telemetry and event tables. Set GREPTIMEDB_DATASOURCE_UID first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return dashboard.Render(dashboardOut, dashboard.DefaultParams(cfg.Device.ID))
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
