// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/valuation"
)

// Valuer values a portfolio in a reporting currency.
type Valuer interface {
	Value(ctx context.Context, assets []domain.Asset, currency string) valuation.PortfolioValuation
}

// Handler handles valuation HTTP requests
type Handler struct {
	valuer       Valuer
	baseCurrency string
	log          zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(valuer Valuer, baseCurrency string, log zerolog.Logger) *Handler {
	return &Handler{
		valuer:       valuer,
		baseCurrency: baseCurrency,
		log:          log.With().Str("handler", "valuation").Logger(),
	}
}

// ValueRequest is the POST /api/valuation body. Currency defaults to the
// configured base currency.
type ValueRequest struct {
	Assets   []domain.Asset `json:"assets"`
	Currency string         `json:"currency,omitempty"`
}

// HandleValue handles POST /api/valuation
func (h *Handler) HandleValue(w http.ResponseWriter, r *http.Request) {
	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.baseCurrency
	}

	result := h.valuer.Value(r.Context(), req.Assets, currency)

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
