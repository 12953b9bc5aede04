// Package domain contains the core asset model shared by all modules.
// The domain layer is pure: no clients, no persistence, no HTTP.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetClass identifies how an asset is priced and aggregated.
type AssetClass string

const (
	ClassEquity        AssetClass = "equity"
	ClassETF           AssetClass = "etf"
	ClassFund          AssetClass = "fund"
	ClassCrypto        AssetClass = "crypto"
	ClassFiat          AssetClass = "fiat"
	ClassCommodity     AssetClass = "commodity"
	ClassMineral       AssetClass = "mineral"
	ClassPreciousMetal AssetClass = "precious_metal"
	ClassRealEstate    AssetClass = "real_estate"
	ClassPrivateEquity AssetClass = "private_equity"
	ClassOther         AssetClass = "other"
)

// ListingAttributes describe exchange-listed assets (equities, ETFs, funds, commodities).
type ListingAttributes struct {
	Ticker   string `json:"ticker,omitempty"`
	ISIN     string `json:"isin,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// CryptoAttributes describe crypto holdings.
type CryptoAttributes struct {
	Symbol string `json:"symbol,omitempty"`
	CoinID string `json:"coin_id,omitempty"` // canonical market-data provider id, e.g. "bitcoin"
}

// PropertyAttributes describe real-estate holdings. All fields feed the
// valuation prompt, none are required.
type PropertyAttributes struct {
	SquareMeters   float64 `json:"sqm,omitempty"`
	PropertyType   string  `json:"property_type,omitempty"` // apartment, house, land, commercial
	Location       string  `json:"location,omitempty"`
	IsRented       bool    `json:"is_rented,omitempty"`
	MonthlyRent    float64 `json:"monthly_rent,omitempty"`
	AnnualExpenses float64 `json:"annual_expenses,omitempty"`
}

// MetalAttributes describe physical precious-metal holdings.
type MetalAttributes struct {
	Metal    string  `json:"metal,omitempty"` // gold, silver
	Form     string  `json:"form,omitempty"`  // bar, coin
	WeightOz float64 `json:"weight_oz,omitempty"`
	Purity   string  `json:"purity,omitempty"`
}

// SavingsAttributes describe interest-bearing fiat deposits.
type SavingsAttributes struct {
	InterestRate float64 `json:"interest_rate,omitempty"` // annual, percent
}

// Asset is an immutable snapshot of a holding supplied by the external
// account store. The attribute variant matching the asset class is set,
// the others are nil.
type Asset struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Class         AssetClass `json:"asset_class"`
	Quantity      float64    `json:"quantity"`
	PurchasePrice float64    `json:"purchase_price"`
	PurchaseDate  time.Time  `json:"purchase_date"`
	Currency      string     `json:"currency"` // holding currency, e.g. "EUR", "USD"

	Listing  *ListingAttributes  `json:"listing,omitempty"`
	Crypto   *CryptoAttributes   `json:"crypto,omitempty"`
	Property *PropertyAttributes `json:"property,omitempty"`
	Metal    *MetalAttributes    `json:"metal,omitempty"`
	Savings  *SavingsAttributes  `json:"savings,omitempty"`
}

// EnsureID assigns a fresh identifier to assets submitted without one.
func (a *Asset) EnsureID() {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
}

// PriceIdentifier returns the identifier used for price resolution.
// Listed assets prefer ISIN over ticker over name, crypto prefers the
// canonical coin id over the symbol, precious metals use the metal name,
// and real estate derives a synthetic id from the asset id.
func (a *Asset) PriceIdentifier() string {
	switch a.Class {
	case ClassEquity, ClassETF, ClassFund, ClassCommodity:
		if a.Listing != nil {
			if a.Listing.ISIN != "" {
				return a.Listing.ISIN
			}
			if a.Listing.Ticker != "" {
				return a.Listing.Ticker
			}
		}
		return a.Name
	case ClassCrypto:
		if a.Crypto != nil {
			if a.Crypto.CoinID != "" {
				return a.Crypto.CoinID
			}
			if a.Crypto.Symbol != "" {
				return a.Crypto.Symbol
			}
		}
		return a.Name
	case ClassPreciousMetal:
		if a.Metal != nil && a.Metal.Metal != "" {
			return a.Metal.Metal
		}
		return strings.ToLower(a.Name)
	case ClassRealEstate:
		return "re-" + a.ID
	default:
		return a.Name
	}
}

// InterestRate returns the annual interest rate for fiat deposits, 0 otherwise.
func (a *Asset) InterestRate() float64 {
	if a.Savings != nil {
		return a.Savings.InterestRate
	}
	return 0
}

// IsMarketPriced reports whether the class has a live market price.
// Real estate, fiat and private equity are valued by other means.
func (c AssetClass) IsMarketPriced() bool {
	switch c {
	case ClassRealEstate, ClassFiat, ClassPrivateEquity:
		return false
	}
	return true
}

// IsListed reports whether the class resolves through the quote provider
// chain (per-asset lookups against exchange data).
func (c AssetClass) IsListed() bool {
	switch c {
	case ClassEquity, ClassETF, ClassFund, ClassCommodity:
		return true
	}
	return false
}

// IsBatchResolved reports whether the class is resolved through the batched
// market-data provider (one call per target currency).
func (c AssetClass) IsBatchResolved() bool {
	return c == ClassCrypto || c == ClassPreciousMetal
}

// NormalizeIdentifier folds identifiers for classes whose providers are
// case-insensitive. Crypto and precious-metal ids are trimmed and
// lowercased, all other classes preserve case.
func NormalizeIdentifier(identifier string, class AssetClass) string {
	if class.IsBatchResolved() {
		return strings.ToLower(strings.TrimSpace(identifier))
	}
	return identifier
}
