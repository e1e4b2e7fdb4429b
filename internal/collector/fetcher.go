package collector

import (
	"context"

	"TickerTracker/internal/model"
)

// PriceHistorySource retrieves recent daily closing prices.
type PriceHistorySource interface {
	// GetRecentCloses returns up to lookback daily closes for the provider
	// symbol, oldest first.
	GetRecentCloses(ctx context.Context, symbol string, lookback int) (model.PriceSeries, error)
	Name() string
}
