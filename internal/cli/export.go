package cli

import (
	"github.com/spf13/cobra"

	"stellarpulse/internal/app"
)

var (
	exportTimeframe int
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export OHLC chart data as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			TimeframeDays: exportTimeframe,
			PNGPath:       exportPNGPath,
			CSVPath:       exportCSVPath,
			MaxPoints:     exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportTimeframe, "timeframe", 7, "Chart lookback window in days (1, 7, 30 or 365)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
