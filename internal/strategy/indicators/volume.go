package indicators

import "cryptoPredictor/internal/domain"

// VolumeRatio returns the volume SMA and each bar's volume relative to it.
// The ratio is undefined while the SMA is undefined or zero.
func VolumeRatio(volumes []float64, period int) (sma, ratio []domain.NullFloat64) {
	sma = SMA(volumes, period)
	ratio = make([]domain.NullFloat64, len(volumes))
	for i, v := range volumes {
		ratio[i] = domain.Div(domain.Float(v), sma[i])
	}
	return sma, ratio
}

// Returns computes the fractional price change over n bars.
func Returns(closes []float64, n int) []domain.NullFloat64 {
	out := make([]domain.NullFloat64, len(closes))
	if n <= 0 {
		return out
	}
	for i := n; i < len(closes); i++ {
		out[i] = domain.Sub(domain.Div(domain.Float(closes[i]), domain.Float(closes[i-n])), domain.Float(1))
	}
	return out
}

// Volatility is the trailing sample standard deviation of returns.
func Volatility(returns []domain.NullFloat64, period int) []domain.NullFloat64 {
	return rolling(returns, period, sampleStdDev)
}
