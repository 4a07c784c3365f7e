package indicators

import "cryptoPredictor/internal/domain"

// RSI computes the Relative Strength Index from the mean gain and mean loss
// of the last period close-to-close changes. A value is defined from index
// period onwards.
//
// With no losses in the window the index saturates at 100; a window with
// neither gains nor losses (flat prices) is undefined.
func RSI(closes []float64, period int) []domain.NullFloat64 {
	out := make([]domain.NullFloat64, len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		out[i] = rsiValue(gain/float64(period), loss/float64(period))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) domain.NullFloat64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return domain.Null
		}
		return domain.Float(100)
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// Ensure RSI is within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return domain.Float(rsi)
}
