package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/settings"
)

// ShowOptions hold parameters for the one-shot snapshot dump.
type ShowOptions struct {
	TimeframeDays int
}

// Show fetches one market snapshot plus the stored settings and prints both.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	timeframe := marketdata.ParseTimeframe(opts.TimeframeDays)

	snapshot, err := a.newUpstreamSnapshot(ctx, timeframe)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openSettingsStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	aggregate, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, settings.ErrNotFound) {
			a.Logger.Warn().Err(err).Msg("settings unavailable; showing defaults")
		}
		aggregate = settings.Defaults()
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "Market")
	fmt.Fprintf(writer, "  BTC price (USD)\t%s\n", snapshot.BTCPrice.Price.StringFixed(2))
	fmt.Fprintf(writer, "  24h change\t%.2f%%\n", snapshot.BTCPrice.Change24h)
	fmt.Fprintf(writer, "  USD/AUD rate\t%.4f\n", snapshot.AUDRate)
	fmt.Fprintf(writer, "  Chart window\t%dd (%d candles)\n", timeframe.Days(), len(snapshot.ChartData))
	if n := len(snapshot.ChartData); n > 0 {
		last := snapshot.ChartData[n-1]
		fmt.Fprintf(writer, "  Last candle\t%s close %.2f\n",
			time.UnixMilli(int64(last.Timestamp())).UTC().Format(time.RFC3339), last[4])
	}

	fmt.Fprintln(writer, "Settings")
	fmt.Fprintf(writer, "  AUD budget\t%s\n", aggregate.Settings.AUDBudget.StringFixed(2))
	fmt.Fprintf(writer, "  Transfer fee\t%.2f%%\n", aggregate.Settings.TransferFeePercent)
	email := aggregate.Settings.Email
	if email == "" {
		email = "(not set)"
	}
	fmt.Fprintf(writer, "  Alert email\t%s\n", email)

	fmt.Fprintln(writer, "Alerts")
	if len(aggregate.Alerts) == 0 {
		fmt.Fprintln(writer, "  (none)")
	}
	for _, alert := range aggregate.Alerts {
		status := "disabled"
		if alert.IsEnabled {
			status = "enabled"
		}
		fmt.Fprintf(writer, "  %s\tbelow %s\t%s\n", alert.ID, alert.BTCThreshold.StringFixed(0), status)
	}

	return writer.Flush()
}

func (a *App) newUpstreamSnapshot(ctx context.Context, timeframe marketdata.Timeframe) (marketdata.Snapshot, error) {
	return a.newCache().Snapshot(ctx, timeframe)
}
