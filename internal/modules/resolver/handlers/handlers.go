// Package handlers provides HTTP handlers for price resolution.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/modules/resolver"
)

// PriceResolver resolves a batch of price requests.
type PriceResolver interface {
	Resolve(ctx context.Context, requests []resolver.PriceRequest) map[resolver.Key]resolver.PriceResult
}

// Handler handles price resolution HTTP requests
type Handler struct {
	resolver PriceResolver
	log      zerolog.Logger
}

// NewHandler creates a new price resolution handler
func NewHandler(priceResolver PriceResolver, log zerolog.Logger) *Handler {
	return &Handler{
		resolver: priceResolver,
		log:      log.With().Str("handler", "prices").Logger(),
	}
}

// ResolveRequest is the POST /api/prices body.
type ResolveRequest struct {
	Requests []resolver.PriceRequest `json:"requests"`
}

// HandleResolve handles POST /api/prices
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Requests) == 0 {
		http.Error(w, "at least one price request is required", http.StatusBadRequest)
		return
	}

	results := h.resolver.Resolve(r.Context(), req.Requests)

	prices := make(map[string]resolver.PriceResult, len(results))
	for key, result := range results {
		prices[string(key)] = result
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"prices":    prices,
			"requested": len(req.Requests),
			"resolved":  len(prices),
		},
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
