package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/resolver"
)

type fakeResolver struct {
	results  map[resolver.Key]resolver.PriceResult
	received []resolver.PriceRequest
}

func (f *fakeResolver) Resolve(_ context.Context, requests []resolver.PriceRequest) map[resolver.Key]resolver.PriceResult {
	f.received = requests
	return f.results
}

func TestHandleResolve(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	fake := &fakeResolver{results: map[resolver.Key]resolver.PriceResult{
		resolver.KeyFor("AAPL", domain.ClassEquity, "EUR"): {Price: 150.5, Source: "tiingo"},
	}}
	handler := NewHandler(fake, logger)

	requestBody := map[string]interface{}{
		"requests": []map[string]interface{}{
			{"identifier": "AAPL", "asset_class": "equity", "currency": "EUR"},
		},
	}
	bodyBytes, _ := json.Marshal(requestBody)

	req := httptest.NewRequest("POST", "/api/prices", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()

	handler.HandleResolve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	require.Len(t, fake.received, 1)
	assert.Equal(t, "AAPL", fake.received[0].Identifier)

	var response map[string]interface{}
	err := json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	prices := data["prices"].(map[string]interface{})
	entry := prices["AAPL-EUR"].(map[string]interface{})
	assert.Equal(t, 150.5, entry["price"])
	assert.Equal(t, "tiingo", entry["source"])
	assert.Equal(t, 1.0, data["resolved"])
}

func TestHandleResolveEmptyBody(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(&fakeResolver{}, logger)

	req := httptest.NewRequest("POST", "/api/prices", bytes.NewReader([]byte(`{"requests": []}`)))
	w := httptest.NewRecorder()

	handler.HandleResolve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleResolveInvalidJSON(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(&fakeResolver{}, logger)

	req := httptest.NewRequest("POST", "/api/prices", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	handler.HandleResolve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
