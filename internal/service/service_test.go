package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/settings"
)

type scriptedMarket struct {
	prices []int64
	index  int
	err    error
}

func (m *scriptedMarket) Snapshot(ctx context.Context, timeframe marketdata.Timeframe) (marketdata.Snapshot, error) {
	if m.err != nil {
		return marketdata.Snapshot{}, m.err
	}
	price := m.prices[m.index]
	if m.index < len(m.prices)-1 {
		m.index++
	}
	return marketdata.Snapshot{
		BTCPrice: marketdata.PriceQuote{Price: decimal.NewFromInt(price)},
		AUDRate:  0.6667,
	}, nil
}

type captureSink struct {
	mu     sync.Mutex
	alerts []alerting.Alert
}

func (c *captureSink) Dispatch(alert alerting.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
}

func (c *captureSink) all() []alerting.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]alerting.Alert(nil), c.alerts...)
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context) (settings.SettingsAndAlerts, error) {
	return settings.SettingsAndAlerts{}, errors.New("connection refused")
}

func (failingStore) Save(ctx context.Context, aggregate settings.SettingsAndAlerts) error {
	return errors.New("connection refused")
}

func storeWith(t *testing.T, aggregate settings.SettingsAndAlerts) settings.Store {
	t.Helper()
	store := settings.NewMemoryStore()
	if err := store.Save(context.Background(), aggregate); err != nil {
		t.Fatalf("准备存储失败: %v", err)
	}
	return store
}

func TestTickDispatchesOnCrossing(t *testing.T) {
	aggregate := settings.SettingsAndAlerts{
		Settings: settings.UserSettings{Email: "user@example.com"},
		Alerts: []settings.PriceAlert{
			{ID: "alert-100k", BTCThreshold: decimal.NewFromInt(100000), IsEnabled: true},
		},
	}
	market := &scriptedMarket{prices: []int64{105000, 101000, 99000, 95000}}
	sink := &captureSink{}

	svc := New(market, storeWith(t, aggregate), sink, nil, marketdata.DefaultTimeframe, zerolog.Nop())

	for i := 0; i < 4; i++ {
		if err := svc.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d 不应报错: %v", i, err)
		}
	}

	alerts := sink.all()
	if len(alerts) != 1 {
		t.Fatalf("整个序列应恰好派发一次, 实际 %d", len(alerts))
	}
	if alerts[0].RuleID != "alert-100k" {
		t.Fatalf("规则 id 不正确: %s", alerts[0].RuleID)
	}
	if alerts[0].Email != "user@example.com" {
		t.Fatalf("事件应携带收件人: %s", alerts[0].Email)
	}
	if !alerts[0].Price.Equal(decimal.NewFromInt(99000)) {
		t.Fatalf("事件应携带触发时价格, 实际 %s", alerts[0].Price.String())
	}
}

func TestTickPropagatesMarketError(t *testing.T) {
	market := &scriptedMarket{err: errors.New("upstream down")}
	svc := New(market, settings.NewMemoryStore(), &captureSink{}, nil, marketdata.DefaultTimeframe, zerolog.Nop())

	if err := svc.Tick(context.Background()); err == nil {
		t.Fatal("快照失败时 tick 应返回错误")
	}
}

func TestUnreadableStoreFallsBackToDefaults(t *testing.T) {
	// Default rules: only the 106k alert is enabled. A crossing of that
	// threshold must still fire even though the store is down.
	market := &scriptedMarket{prices: []int64{107000, 105000}}
	sink := &captureSink{}
	svc := New(market, failingStore{}, sink, nil, marketdata.DefaultTimeframe, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if err := svc.Tick(context.Background()); err != nil {
			t.Fatalf("tick 不应报错: %v", err)
		}
	}

	alerts := sink.all()
	if len(alerts) != 1 {
		t.Fatalf("默认规则应触发一次, 实际 %d", len(alerts))
	}
	if alerts[0].RuleID != "alert-106k" {
		t.Fatalf("应为默认 106k 规则: %s", alerts[0].RuleID)
	}
	if alerts[0].Email != "" {
		t.Fatalf("默认聚合无收件人, 实际 %s", alerts[0].Email)
	}
}

func TestObservePriceSharedAcrossTriggers(t *testing.T) {
	// Polling and API-triggered observations feed one evaluator: a repeated
	// observation of the same cached price must not double-fire.
	aggregate := settings.SettingsAndAlerts{
		Alerts: []settings.PriceAlert{
			{ID: "alert-100k", BTCThreshold: decimal.NewFromInt(100000), IsEnabled: true},
		},
	}
	sink := &captureSink{}
	svc := New(&scriptedMarket{prices: []int64{0}}, storeWith(t, aggregate), sink, nil, marketdata.DefaultTimeframe, zerolog.Nop())

	svc.ObservePrice(context.Background(), decimal.NewFromInt(105000))
	svc.ObservePrice(context.Background(), decimal.NewFromInt(99000))
	svc.ObservePrice(context.Background(), decimal.NewFromInt(99000))

	if got := len(sink.all()); got != 1 {
		t.Fatalf("重复观测同一价格不应重复触发, 实际 %d", got)
	}
}
