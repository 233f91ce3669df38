package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"stellarpulse/internal/alerting"
	"stellarpulse/internal/marketdata"
	"stellarpulse/internal/settings"
)

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	timeframe := marketdata.DefaultTimeframe
	if raw := r.URL.Query().Get("timeframe"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			s.logger.Debug().Str("timeframe", raw).Msg("unparseable timeframe; using default")
		} else {
			timeframe = marketdata.ParseTimeframe(days)
		}
	}

	snapshot, err := s.opts.Market.Snapshot(r.Context(), timeframe)
	if err != nil {
		s.logger.Error().Err(err).Int("timeframe_days", timeframe.Days()).Msg("market data fetch failed")
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch market data")
		return
	}

	if s.opts.Observer != nil {
		s.opts.Observer.ObservePrice(r.Context(), snapshot.BTCPrice.Price)
	}

	s.respondOK(w, snapshot)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetSettings(w, r)
	case http.MethodPost:
		s.handlePostSettings(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	aggregate, err := s.opts.Store.Load(r.Context())
	if err != nil {
		// An unreadable store never blocks the dashboard.
		if !errors.Is(err, settings.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("settings unreadable; serving defaults")
		}
		aggregate = settings.Defaults()
	}
	s.respondOK(w, aggregate)
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var aggregate settings.SettingsAndAlerts
	if err := json.NewDecoder(r.Body).Decode(&aggregate); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.opts.Store.Save(r.Context(), aggregate); err != nil {
		s.logger.Error().Err(err).Msg("settings write failed")
		s.respondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	s.respondOK(w, aggregate)
}

type sendAlertEmailRequest struct {
	Email     string  `json:"email"`
	BTCPrice  float64 `json:"btcPrice"`
	Threshold float64 `json:"threshold"`
}

func (s *Server) handleSendAlertEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendAlertEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if s.opts.Email == nil || !s.opts.Email.Configured() {
		s.logger.Error().Msg("email provider credential is not set")
		s.respondError(w, http.StatusInternalServerError, "Email service is not configured.")
		return
	}

	alert := alerting.Alert{
		Threshold: decimal.NewFromFloat(req.Threshold),
		Price:     decimal.NewFromFloat(req.BTCPrice),
		Email:     req.Email,
	}
	if err := s.opts.Email.Notify(r.Context(), alert); err != nil {
		s.logger.Error().Err(err).Msg("alert email send failed")
		s.respondError(w, http.StatusInternalServerError, "Failed to send email.")
		return
	}

	s.respond(w, http.StatusOK, apiResponse{Success: true})
}
