package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stellarpulse/internal/marketdata"
)

const (
	simplePricePath   = "/simple/price?ids=bitcoin&vs_currencies=usd&include_24hr_change=true"
	exchangeRatesPath = "/exchange_rates"
	ohlcPathFormat    = "/coins/bitcoin/ohlc?vs_currency=usd&days=%d"
)

// CoinGeckoOptions parameterise the CoinGecko client.
type CoinGeckoOptions struct {
	BaseURL        string
	TargetCurrency string
	Timeout        time.Duration
	UserAgent      string
}

// CoinGecko fetches spot price, exchange rates and OHLC data from the
// CoinGecko public API.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko client.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	if opts.TargetCurrency == "" {
		opts.TargetCurrency = "aud"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type simplePriceResponse struct {
	Bitcoin struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
	} `json:"bitcoin"`
}

type exchangeRatesResponse struct {
	Rates map[string]struct {
		Name  string  `json:"name"`
		Unit  string  `json:"unit"`
		Value float64 `json:"value"`
		Type  string  `json:"type"`
	} `json:"rates"`
}

// FetchPrice retrieves the BTC spot price in USD plus its 24h change.
func (c *CoinGecko) FetchPrice(ctx context.Context) (marketdata.PriceQuote, error) {
	var payload simplePriceResponse
	if err := c.getJSON(ctx, c.baseURL+simplePricePath, &payload); err != nil {
		return marketdata.PriceQuote{}, err
	}

	if payload.Bitcoin.USD <= 0 {
		c.logger.Error().Float64("usd", payload.Bitcoin.USD).Msg("price payload missing bitcoin quote")
		return marketdata.PriceQuote{}, fmt.Errorf("%w: empty bitcoin quote", ErrUpstreamUnavailable)
	}

	return marketdata.PriceQuote{
		Price:     decimal.NewFromFloat(payload.Bitcoin.USD),
		Change24h: payload.Bitcoin.USD24hChange,
	}, nil
}

// FetchExchangeRate retrieves the rate table and derives the USD to target
// currency conversion. The table is denominated against BTC, so the
// conversion is usd.value / target.value.
func (c *CoinGecko) FetchExchangeRate(ctx context.Context) (float64, error) {
	var payload exchangeRatesResponse
	if err := c.getJSON(ctx, c.baseURL+exchangeRatesPath, &payload); err != nil {
		return 0, err
	}

	usd, ok := payload.Rates["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: missing usd entry", ErrRateUnavailable)
	}
	target, ok := payload.Rates[c.opts.TargetCurrency]
	if !ok || target.Value == 0 {
		return 0, fmt.Errorf("%w: missing %s entry", ErrRateUnavailable, c.opts.TargetCurrency)
	}

	return usd.Value / target.Value, nil
}

// FetchChart retrieves the OHLC candle series for the given lookback window.
// The series is returned in chronological order.
func (c *CoinGecko) FetchChart(ctx context.Context, days int) ([]marketdata.ChartPoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: non-positive day count %d", ErrUpstreamUnavailable, days)
	}

	var points []marketdata.ChartPoint
	if err := c.getJSON(ctx, c.baseURL+fmt.Sprintf(ohlcPathFormat, days), &points); err != nil {
		return nil, err
	}

	// Consumers assume strictly increasing timestamps.
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp() < points[j].Timestamp()
	})

	return points, nil
}

func (c *CoinGecko) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "stellarpulse/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("upstream request failed")
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("read upstream response failed")
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", url).
			Str("body", truncateBody(body)).Msg("upstream returned non-success status")
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("decode upstream payload failed")
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return nil
}

func truncateBody(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}

var _ marketdata.Upstream = (*CoinGecko)(nil)
