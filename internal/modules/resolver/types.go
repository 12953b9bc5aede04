package resolver

import (
	"github.com/folioscope/folioscope/internal/domain"
)

// PriceRequest asks for one asset's price in one reporting currency.
// Property and PurchasePrice are only consulted for real estate, where
// they feed the estimation prompt and the low-confidence fallback.
type PriceRequest struct {
	Identifier    string                     `json:"identifier"`
	Class         domain.AssetClass          `json:"asset_class"`
	Currency      string                     `json:"currency"`
	ForceRefresh  bool                       `json:"force_refresh,omitempty"`
	Property      *domain.PropertyAttributes `json:"property,omitempty"`
	PurchasePrice float64                    `json:"purchase_price,omitempty"`
}

// PriceResult is a resolved price plus the provider it came from.
// Source "purchase_price" marks a low-confidence fallback.
type PriceResult struct {
	Price  float64 `json:"price"`
	Source string  `json:"source"`
}

// Key addresses one resolved price in the result map.
type Key string

// KeyFor builds the result key for an identifier/class/currency triple.
// The identifier is folded the same way the cache folds it, so a request
// for "BTC" and one for "btc" land on the same entry.
func KeyFor(identifier string, class domain.AssetClass, currency string) Key {
	return Key(domain.NormalizeIdentifier(identifier, class) + "-" + currency)
}

// KeyForRequest builds the result key for a request.
func KeyForRequest(req PriceRequest) Key {
	return KeyFor(req.Identifier, req.Class, req.Currency)
}
