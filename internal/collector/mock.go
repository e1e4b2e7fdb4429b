package collector

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"TickerTracker/internal/model"
)

// MockSource returns deterministic synthetic prices for development and
// testing. Each symbol gets its own base price and drift.
type MockSource struct {
	// Series overrides the generated data per symbol.
	Series map[string][]float64
	// Err, when set, is returned for every request.
	Err error
	// Now anchors the generated dates; time.Now when zero.
	Now time.Time
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) GetRecentCloses(_ context.Context, symbol string, lookback int) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	now := m.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	closes, ok := m.Series[symbol]
	if !ok {
		closes = generateMockCloses(symbol, lookback)
	}
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{
			Time:  now.Truncate(24*time.Hour).AddDate(0, 0, -(len(closes) - 1 - i)),
			Close: c,
		}
	}
	return trim(model.NewPriceSeries(symbol, points), lookback), nil
}

func generateMockCloses(symbol string, count int) []float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()

	base := 20 + float64(seed%480)
	drift := (float64(seed%7) - 3) * 0.002
	closes := make([]float64, count)
	for i := range closes {
		wave := math.Sin(float64(i)/5+float64(seed%11)) * 0.01
		closes[i] = base * (1 + drift*float64(i) + wave)
	}
	return closes
}
