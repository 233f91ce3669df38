package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/settings"
)

// MarketData serves the merged market snapshot.
type MarketData interface {
	Snapshot(ctx context.Context, timeframe marketdata.Timeframe) (marketdata.Snapshot, error)
}

// PriceObserver is fed every price served through the API, so a
// user-triggered timeframe change evaluates alerts immediately instead of
// waiting for the next polling tick.
type PriceObserver interface {
	ObservePrice(ctx context.Context, price decimal.Decimal)
}

// EmailSender delivers alert emails on behalf of the send-alert-email
// endpoint.
type EmailSender interface {
	Configured() bool
	Notify(ctx context.Context, alert alerting.Alert) error
}

// Options collect the server's collaborators.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	Market   MarketData
	Store    settings.Store
	Observer PriceObserver
	Email    EmailSender
}

// Server exposes the dashboard HTTP API.
type Server struct {
	opts   Options
	logger zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(opts Options, logger zerolog.Logger) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{opts: opts, logger: logger.With().Str("component", "api_server").Logger()}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/market-data", s.handleMarketData)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/send-alert-email", s.handleSendAlertEmail)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("api server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// apiResponse is the envelope every endpoint speaks.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) respondOK(w http.ResponseWriter, data any) {
	s.respond(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, apiResponse{Success: false, Error: message})
}
