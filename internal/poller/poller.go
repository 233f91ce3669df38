package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per polling interval.
type TickFunc func(ctx context.Context) error

// Poller drives periodic execution of the market observation job. The first
// tick runs immediately so the dashboard has data and the evaluator has an
// initial observation as soon as the process starts.
type Poller struct {
	interval time.Duration
	logger   zerolog.Logger
}

// New constructs a Poller instance.
func New(interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		panic("poller interval must be positive")
	}
	return &Poller{interval: interval, logger: logger.With().Str("component", "poller").Logger()}
}

// Run blocks, invoking the tick function immediately and then on every
// interval until ctx is cancelled. Tick errors are logged, never fatal.
func (p *Poller) Run(ctx context.Context, tick TickFunc) error {
	if err := tick(ctx); err != nil {
		p.logger.Error().Err(err).Msg("initial tick failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.logger.Debug().Msg("executing scheduled tick")
			if err := tick(ctx); err != nil {
				p.logger.Error().Err(err).Msg("tick execution failed")
			}
		}
	}
}
