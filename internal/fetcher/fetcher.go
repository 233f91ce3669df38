package fetcher

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUpstreamUnavailable covers transport failures, non-success status
	// codes and malformed payloads from the price provider. The specific
	// cause is logged at the call site; callers only branch on this kind.
	ErrUpstreamUnavailable = errors.New("fetcher: upstream unavailable")

	// ErrRateUnavailable indicates a required currency key was missing from
	// the exchange-rate table.
	ErrRateUnavailable = errors.New("fetcher: exchange rate unavailable")
)

// ReferencePriceFetcher retrieves an independent on-chain BTC/USD reference.
type ReferencePriceFetcher interface {
	FetchReference(ctx context.Context) (decimal.Decimal, error)
}
