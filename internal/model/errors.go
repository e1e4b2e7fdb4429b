package model

import "errors"

var (
	// ErrInvalidSegment is returned for a market segment outside the known set.
	ErrInvalidSegment = errors.New("invalid market segment")

	// ErrInvalidInstrument is returned for an empty or blank instrument symbol.
	ErrInvalidInstrument = errors.New("invalid instrument")

	// ErrUpstreamUnavailable wraps failures of price or news retrieval.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
