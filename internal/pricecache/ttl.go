package pricecache

import (
	"time"

	"github.com/folioscope/folioscope/internal/domain"
)

// TTL constants per asset class. A quotation is fresh while
// fetched_at > now - TTL(class).
const (
	// Exchange-quoted classes move slowly enough for a few minutes of reuse.
	TTLListed = 5 * time.Minute

	// Crypto and tokenized metals trade around the clock.
	TTLBatch = 1 * time.Minute

	// AI property estimates are expensive and noisy, refresh daily.
	TTLRealEstate = 24 * time.Hour

	// Real-estate rows older than this are purged after each fresh write,
	// bounding growth from repeated estimation calls.
	RealEstateRetention = 7 * 24 * time.Hour
)

// TTL returns the freshness window for a class.
func TTL(class domain.AssetClass) time.Duration {
	switch {
	case class.IsBatchResolved():
		return TTLBatch
	case class == domain.ClassRealEstate:
		return TTLRealEstate
	default:
		return TTLListed
	}
}
