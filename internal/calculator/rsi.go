package calculator

// ComputeRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 prices; returns nil otherwise.
// A series with no losses yields 100, or 50 when it also has no gains.
func ComputeRSI(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for the remaining prices
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain > 0 {
			return ptr(100)
		}
		return ptr(50)
	}
	rs := avgGain / avgLoss
	return ptr(Round2(100.0 - 100.0/(1.0+rs)))
}

func ptr(v float64) *float64 { return &v }
