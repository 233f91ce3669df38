package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/settings"
)

// SimulateAlerts 用给定的价格序列驱动一次完整的告警评估流程。
// Rules come from the configured store (or the defaults when none is
// reachable) and every resulting event is delivered synchronously so the
// command can report delivery failures before exiting.
func (a *App) SimulateAlerts(ctx context.Context, prices []decimal.Decimal) error {
	if len(prices) < 2 {
		return errors.New("at least two prices are required to cross a threshold")
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
			a.Logger.Warn().Err(err).Msg("settings unavailable; simulating against defaults")
		}
		aggregate = settings.Defaults()
	}

	rules := make([]alerting.Rule, 0, len(aggregate.Alerts))
	for _, alert := range aggregate.Alerts {
		rules = append(rules, alerting.Rule{
			ID:        alert.ID,
			Threshold: alert.BTCThreshold,
			Enabled:   alert.IsEnabled,
		})
	}

	notifiers := []alerting.Notifier{alerting.NewToastNotifier(a.Logger)}
	if email := a.newEmailNotifier(); email.Configured() {
		notifiers = append(notifiers, email)
	}

	evaluator := alerting.NewEvaluator()
	fired := 0

	for _, price := range prices {
		events := evaluator.Observe(price, rules)
		for _, event := range events {
			fired++
			a.Logger.Info().
				Str("rule", event.RuleID).
				Str("threshold", event.Threshold.String()).
				Str("price", event.Price.String()).
				Msg("simulated crossing")

			alert := alerting.Alert{
				RuleID:    event.RuleID,
				Threshold: event.Threshold,
				Price:     event.Price,
				Email:     aggregate.Settings.Email,
			}
			for _, notifier := range notifiers {
				if err := notifier.Notify(ctx, alert); err != nil {
					a.Logger.Error().Err(err).Str("rule", event.RuleID).Msg("simulated delivery failed")
				}
			}
		}
	}

	if fired == 0 {
		a.Logger.Info().Int("prices", len(prices)).Msg("no thresholds crossed by the given sequence")
	}
	return nil
}
