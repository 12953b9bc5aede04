package domain

import "errors"

// Resolution and analytics error taxonomy. Provider-level errors are caught
// inside the resolver and surface only as missing result entries, never as
// request failures.
var (
	// ErrProviderUnavailable - network or HTTP-level failure talking to an upstream.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderNoData - the upstream answered but the payload held no usable price.
	ErrProviderNoData = errors.New("provider returned no usable data")

	// ErrResolutionExhausted - every provider in the class chain failed.
	ErrResolutionExhausted = errors.New("all providers in chain failed")

	// ErrConfigurationMissing - no credential configured for a provider.
	ErrConfigurationMissing = errors.New("provider credential not configured")

	// ErrInsufficientHistory - fewer series points than analytics needs.
	ErrInsufficientHistory = errors.New("insufficient history for analytics")

	// ErrTooManyAssets - portfolio exceeds the history reconstruction bound.
	ErrTooManyAssets = errors.New("too many assets for history reconstruction")
)
