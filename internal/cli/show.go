package cli

import (
	"github.com/spf13/cobra"

	"stellarpulse/internal/app"
)

var (
	showTimeframe int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display a one-shot market snapshot and the stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			TimeframeDays: showTimeframe,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showTimeframe, "timeframe", 7, "Chart lookback window in days (1, 7, 30 or 365)")
}
