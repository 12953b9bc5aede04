// Package handlers provides HTTP handlers for portfolio history and the
// analytics derived from it.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/analytics"
	"github.com/folioscope/folioscope/internal/modules/history"
	"github.com/folioscope/folioscope/internal/modules/valuation"
)

// Valuer values a portfolio in a reporting currency.
type Valuer interface {
	Value(ctx context.Context, assets []domain.Asset, currency string) valuation.PortfolioValuation
}

// Builder reconstructs the daily portfolio series.
type Builder interface {
	Build(ctx context.Context, assets []domain.Asset, currentValues map[string]float64, currency string) ([]history.Point, error)
}

// Handler handles history HTTP requests
type Handler struct {
	valuer       Valuer
	builder      Builder
	baseCurrency string
	log          zerolog.Logger
}

// NewHandler creates a new history handler
func NewHandler(valuer Valuer, builder Builder, baseCurrency string, log zerolog.Logger) *Handler {
	return &Handler{
		valuer:       valuer,
		builder:      builder,
		baseCurrency: baseCurrency,
		log:          log.With().Str("handler", "history").Logger(),
	}
}

// HistoryRequest is the POST /api/history body.
type HistoryRequest struct {
	Assets   []domain.Asset `json:"assets"`
	Currency string         `json:"currency,omitempty"`
}

// HandleHistory handles POST /api/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.baseCurrency
	}

	v := h.valuer.Value(r.Context(), req.Assets, currency)

	currentValues := make(map[string]float64, len(v.Assets))
	for _, a := range v.Assets {
		currentValues[a.ID] = a.CurrentValue
	}

	series, err := h.builder.Build(r.Context(), req.Assets, currentValues, currency)
	if err != nil {
		if !errors.Is(err, domain.ErrTooManyAssets) {
			h.log.Error().Err(err).Msg("History reconstruction failed")
			http.Error(w, "Failed to build history", http.StatusInternalServerError)
			return
		}
		// Oversized portfolios get analytics without a series.
		h.log.Warn().Int("assets", len(req.Assets)).Msg("Portfolio too large for history")
		series = []history.Point{}
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	summary := analytics.Summarize(values, v)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"series":        series,
			"volatility":    nanToNil(summary.Volatility),
			"sharpe":        nanToNil(summary.Sharpe),
			"concentration": summary.Concentration,
			"risk_score":    summary.RiskScore,
			"risk_level":    summary.RiskLevel,
			"alerts":        summary.Alerts,
			"insights":      summary.Insights,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"currency":  currency,
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// nanToNil maps NaN metrics to JSON null.
func nanToNil(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
