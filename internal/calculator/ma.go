package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// ComputeMovingAverages returns the short and long simple moving averages,
// rounded to 2 decimals. Both are nil when fewer than long prices exist.
func ComputeMovingAverages(prices []float64, short, long int) (shortMA, longMA *float64) {
	if long <= 0 || len(prices) < long {
		return nil, nil
	}
	s, err := CalculateSMA(prices, short)
	if err != nil {
		return nil, nil
	}
	l, err := CalculateSMA(prices, long)
	if err != nil {
		return nil, nil
	}
	return ptr(Round2(s)), ptr(Round2(l))
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
