package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/config"
	"stellarpulse/internal/fetcher"
	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/poller"
	"stellarpulse/internal/server"
	"stellarpulse/internal/service"
	"stellarpulse/internal/settings"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newUpstream() *fetcher.CoinGecko {
	return fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
		BaseURL:        a.Config.Upstream.BaseURL,
		TargetCurrency: a.Config.Upstream.TargetCurrency,
		Timeout:        a.Config.Upstream.RequestTimeout,
		UserAgent:      a.Config.Upstream.UserAgent,
	}, a.Logger)
}

func (a *App) newCache() *marketdata.Cache {
	return marketdata.NewCache(a.newUpstream(), marketdata.CacheOptions{
		Freshness: a.Config.Cache.Freshness,
	}, a.Logger)
}

func (a *App) newEmailNotifier() *alerting.SendGridNotifier {
	cfg := a.Config.Alerting.Email
	return alerting.NewSendGridNotifier(cfg.APIKey, cfg.FromEmail, cfg.FromName, cfg.APIBase, cfg.RequestTimeout, a.Logger)
}

func (a *App) newReference() fetcher.ReferencePriceFetcher {
	if a.Config.Ethereum.RPCURL == "" {
		return nil
	}
	return fetcher.NewOnchain(fetcher.OnchainOptions{
		RPCURL:      a.Config.Ethereum.RPCURL,
		FeedAddress: a.Config.Ethereum.FeedAddress,
		Timeout:     a.Config.Ethereum.RequestTimeout,
	}, a.Logger)
}

// openSettingsStore falls back to process memory when no DSN is configured.
func (a *App) openSettingsStore(ctx context.Context) (settings.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; settings will not survive restarts")
		return settings.NewMemoryStore(), nil, nil
	}

	pool, err := settings.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	repo := settings.NewRepository(pool)
	return repo, repo.Close, nil
}

// Run executes the long-running API server and polling loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openSettingsStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	cache := a.newCache()
	email := a.newEmailNotifier()

	notifiers := []alerting.Notifier{alerting.NewToastNotifier(a.Logger)}
	if email.Configured() {
		notifiers = append(notifiers, email)
	} else {
		a.Logger.Warn().Msg("sendgrid api key not configured; email channel disabled")
	}
	dispatcher := alerting.NewDispatcher(a.Logger, notifiers...)

	timeframe := marketdata.ParseTimeframe(a.Config.Poller.TimeframeDays)
	svc := service.New(cache, store, dispatcher, a.newReference(), timeframe, a.Logger)

	srv := server.NewServer(server.Options{
		Addr:              a.Config.Server.Addr,
		ReadHeaderTimeout: a.Config.Server.ReadHeaderTimeout,
		ShutdownTimeout:   a.Config.Server.ShutdownTimeout,
		Market:            cache,
		Store:             store,
		Observer:          svc,
		Email:             email,
	}, a.Logger)

	p := poller.New(a.Config.Poller.Interval, a.Logger)

	a.Logger.Info().Msg("starting dashboard backend")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return p.Run(ctx, svc.Tick) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("backend terminated with error")
		return err
	}

	a.Logger.Info().Msg("dashboard backend stopped")
	return nil
}

// ExportOptions hold parameters for exporting chart data.
type ExportOptions struct {
	TimeframeDays int
	PNGPath       string
	CSVPath       string
	MaxPoints     int
}
