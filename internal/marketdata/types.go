package marketdata

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard API speaks plain JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// Timeframe is a chart lookback window expressed in days.
type Timeframe int

// Supported chart lookback windows.
const (
	Timeframe1D Timeframe = 1
	Timeframe7D Timeframe = 7
	Timeframe1M Timeframe = 30
	Timeframe1Y Timeframe = 365
)

// DefaultTimeframe is used when the caller does not specify a window.
const DefaultTimeframe = Timeframe7D

// ParseTimeframe maps a day count onto a supported window. Unknown values
// fall back to the default window rather than failing the request.
func ParseTimeframe(days int) Timeframe {
	switch Timeframe(days) {
	case Timeframe1D, Timeframe7D, Timeframe1M, Timeframe1Y:
		return Timeframe(days)
	default:
		return DefaultTimeframe
	}
}

// Days returns the lookback day count for the window.
func (t Timeframe) Days() int {
	return int(t)
}

// PriceQuote carries the spot price and its 24h change.
type PriceQuote struct {
	Price     decimal.Decimal `json:"price"`
	Change24h float64         `json:"change24h"`
}

// ChartPoint is one OHLC candle: [timestamp_ms, open, high, low, close].
type ChartPoint [5]float64

// Timestamp returns the candle timestamp in epoch milliseconds.
func (p ChartPoint) Timestamp() float64 { return p[0] }

// Snapshot is the immutable aggregate served to clients. Either all three
// parts were fetched in the same refresh or the snapshot does not exist;
// there is no partial form.
type Snapshot struct {
	BTCPrice  PriceQuote   `json:"btcPrice"`
	AUDRate   float64      `json:"audRate"`
	ChartData []ChartPoint `json:"chartData"`
}
