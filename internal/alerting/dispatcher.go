package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const dispatchTimeout = 15 * time.Second

// Dispatcher fans an alert out to all configured notifiers. Delivery is
// fire-and-forget: failures are logged and never retried, and a failing
// email channel never blocks the in-app channel.
type Dispatcher struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewDispatcher wires the given notifiers into a Dispatcher.
func NewDispatcher(logger zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch delivers the alert on a detached context so a slow provider does
// not hold up the evaluation pass that produced the event.
func (d *Dispatcher) Dispatch(alert Alert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		for _, notifier := range d.notifiers {
			if err := notifier.Notify(ctx, alert); err != nil {
				d.logger.Error().Err(err).
					Str("rule_id", alert.RuleID).
					Msg("failed to dispatch alert")
			}
		}
	}()
}
