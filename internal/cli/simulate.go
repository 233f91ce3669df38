package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrices string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一段价格走势并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrices == "" {
			return errors.New("--prices 必须提供")
		}

		parts := strings.Split(simulatePrices, ",")
		prices := make([]decimal.Decimal, 0, len(parts))
		for _, part := range parts {
			price, err := decimal.NewFromString(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", part, err)
			}
			if price.Sign() <= 0 {
				return fmt.Errorf("price %q must be greater than zero", part)
			}
			prices = append(prices, price)
		}

		return getApp().SimulateAlerts(cmd.Context(), prices)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePrices, "prices", "", "逗号分隔的 BTC 价格序列, 例如 107000,105000,103000")
}
