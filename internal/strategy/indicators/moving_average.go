package indicators

import "cryptoPredictor/internal/domain"

// SMA computes the simple moving average over a trailing window.
// The first period-1 values are undefined.
func SMA(values []float64, period int) []domain.NullFloat64 {
	return rolling(defined(values), period, mean)
}

// EMA computes the exponential moving average with alpha = 2/(span+1).
// It is seeded from the first value and uses bias-corrected weights, so
// every bar has a value; early values rest on little history.
func EMA(values []float64, span int) []domain.NullFloat64 {
	out := make([]domain.NullFloat64, len(values))
	if span <= 0 {
		return out
	}
	decay := 1 - 2.0/float64(span+1)

	// weighted sum and sum of weights, each decayed once per bar
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = domain.Float(num / den)
	}
	return out
}

// MACD computes the MACD line (fast EMA minus slow EMA) and its signal line.
func MACD(closes []float64, fastSpan, slowSpan, signalSpan int) (line, signal []domain.NullFloat64) {
	fast := EMA(closes, fastSpan)
	slow := EMA(closes, slowSpan)

	line = make([]domain.NullFloat64, len(closes))
	raw := make([]float64, len(closes))
	for i := range closes {
		line[i] = domain.Sub(fast[i], slow[i])
		raw[i] = line[i].Float64
	}
	return line, EMA(raw, signalSpan)
}
