package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/fetcher"
	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/settings"
)

// SnapshotProvider serves the merged market snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, timeframe marketdata.Timeframe) (marketdata.Snapshot, error)
}

// AlertSink receives alert events for delivery.
type AlertSink interface {
	Dispatch(alert alerting.Alert)
}

// Reference deviations beyond this many percent are worth an operator's
// attention.
var referenceWarnPct = decimal.NewFromInt(1)

// Service connects the market data cache, the alert evaluator and the
// notification sink. Each price observation — whether from the polling loop
// or from an API-triggered refresh — runs one evaluation pass.
type Service struct {
	market    SnapshotProvider
	store     settings.Store
	sink      AlertSink
	reference fetcher.ReferencePriceFetcher
	timeframe marketdata.Timeframe
	logger    zerolog.Logger

	mu        sync.Mutex
	evaluator *alerting.Evaluator
}

// New constructs the observation service. reference may be nil.
func New(market SnapshotProvider, store settings.Store, sink AlertSink, reference fetcher.ReferencePriceFetcher, timeframe marketdata.Timeframe, logger zerolog.Logger) *Service {
	return &Service{
		market:    market,
		store:     store,
		sink:      sink,
		reference: reference,
		timeframe: timeframe,
		logger:    logger.With().Str("component", "service").Logger(),
		evaluator: alerting.NewEvaluator(),
	}
}

// Tick performs one polling pass: refresh (or reuse) the snapshot, feed the
// spot price through the evaluator, and cross-check the on-chain reference.
func (s *Service) Tick(ctx context.Context) error {
	snapshot, err := s.market.Snapshot(ctx, s.timeframe)
	if err != nil {
		return fmt.Errorf("poll market data: %w", err)
	}

	s.ObservePrice(ctx, snapshot.BTCPrice.Price)
	s.checkReference(ctx, snapshot.BTCPrice.Price)
	return nil
}

// ObservePrice runs one evaluation pass over the current rule list and
// dispatches any resulting events. Safe for concurrent use; passes are
// serialised so every rule sees a consistent before/after price pair.
func (s *Service) ObservePrice(ctx context.Context, price decimal.Decimal) {
	aggregate := s.loadSettings(ctx)

	rules := make([]alerting.Rule, 0, len(aggregate.Alerts))
	for _, alert := range aggregate.Alerts {
		rules = append(rules, alerting.Rule{
			ID:        alert.ID,
			Threshold: alert.BTCThreshold,
			Enabled:   alert.IsEnabled,
		})
	}

	s.mu.Lock()
	events := s.evaluator.Observe(price, rules)
	s.mu.Unlock()

	for _, event := range events {
		s.logger.Info().
			Str("rule_id", event.RuleID).
			Str("threshold", event.Threshold.String()).
			Str("price", event.Price.String()).
			Msg("threshold crossed")

		s.sink.Dispatch(alerting.Alert{
			RuleID:    event.RuleID,
			Threshold: event.Threshold,
			Price:     event.Price,
			Email:     aggregate.Settings.Email,
		})
	}
}

// loadSettings never fails the evaluation pass: an unreadable store falls
// back to the default aggregate.
func (s *Service) loadSettings(ctx context.Context) settings.SettingsAndAlerts {
	aggregate, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, settings.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("settings unreadable; using defaults")
		}
		return settings.Defaults()
	}
	return aggregate
}

// checkReference logs the deviation between the provider spot and the
// on-chain feed. Purely an operability signal; never feeds the cache.
func (s *Service) checkReference(ctx context.Context, spot decimal.Decimal) {
	if s.reference == nil || spot.IsZero() {
		return
	}

	ref, err := s.reference.FetchReference(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("on-chain reference unavailable")
		return
	}
	if ref.IsZero() {
		return
	}

	deviation := spot.Div(ref).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	event := s.logger.Debug()
	if deviation.Abs().GreaterThan(referenceWarnPct) {
		event = s.logger.Warn()
	}
	event.Str("spot", spot.String()).
		Str("reference", ref.String()).
		Str("deviation_pct", deviation.StringFixed(3)).
		Msg("spot vs on-chain reference")
}
