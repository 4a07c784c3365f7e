package indicators

import (
	"fmt"
	"math"

	"cryptoPredictor/internal/domain"
)

// Config holds the window lengths of every indicator the engine computes.
type Config struct {
	RSIPeriod        int     // e.g., 14
	EMAFastSpan      int     // e.g., 9
	EMAMidSpan       int     // e.g., 21
	EMASlowSpan      int     // e.g., 50
	MACDFastSpan     int     // e.g., 12
	MACDSlowSpan     int     // e.g., 26
	MACDSignalSpan   int     // e.g., 9
	BBPeriod         int     // e.g., 20
	BBStdDev         float64 // Band width in standard deviations, e.g., 2.0
	ATRPeriod        int     // e.g., 14
	VolumePeriod     int     // Volume SMA window, e.g., 20
	VolatilityPeriod int     // Window for the standard deviation of returns, e.g., 20
}

// DefaultConfig returns the standard indicator windows.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		EMAFastSpan:      9,
		EMAMidSpan:       21,
		EMASlowSpan:      50,
		MACDFastSpan:     12,
		MACDSlowSpan:     26,
		MACDSignalSpan:   9,
		BBPeriod:         20,
		BBStdDev:         2.0,
		ATRPeriod:        14,
		VolumePeriod:     20,
		VolatilityPeriod: 20,
	}
}

// Validate checks that all windows are usable.
func (c Config) Validate() error {
	windows := map[string]int{
		"RSI period":        c.RSIPeriod,
		"EMA fast span":     c.EMAFastSpan,
		"EMA mid span":      c.EMAMidSpan,
		"EMA slow span":     c.EMASlowSpan,
		"MACD fast span":    c.MACDFastSpan,
		"MACD slow span":    c.MACDSlowSpan,
		"MACD signal span":  c.MACDSignalSpan,
		"Bollinger period":  c.BBPeriod,
		"ATR period":        c.ATRPeriod,
		"volume period":     c.VolumePeriod,
		"volatility period": c.VolatilityPeriod,
	}
	for name, v := range windows {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.BBPeriod < 2 || c.VolatilityPeriod < 2 {
		return fmt.Errorf("standard deviation windows need at least 2 points")
	}
	if c.BBStdDev <= 0 {
		return fmt.Errorf("Bollinger standard deviation multiplier must be positive, got %v", c.BBStdDev)
	}
	if c.MACDFastSpan >= c.MACDSlowSpan {
		return fmt.Errorf("MACD fast span must be less than slow span")
	}
	return nil
}

// RequiredDataPoints returns the number of candles after which every
// windowed indicator is defined.
func (c Config) RequiredDataPoints() int {
	maxPeriod := c.BBPeriod
	for _, p := range []int{c.RSIPeriod + 1, c.ATRPeriod, c.VolumePeriod, c.VolatilityPeriod + 1, c.MACDSlowSpan} {
		if p > maxPeriod {
			maxPeriod = p
		}
	}
	return maxPeriod
}

// defined lifts a plain series into NullFloat64 values.
func defined(values []float64) []domain.NullFloat64 {
	out := make([]domain.NullFloat64, len(values))
	for i, v := range values {
		out[i] = domain.Float(v)
	}
	return out
}

// rolling applies fn to every trailing window of length period. A window
// containing an undefined value yields an undefined result.
func rolling(values []domain.NullFloat64, period int, fn func(window []float64) float64) []domain.NullFloat64 {
	out := make([]domain.NullFloat64, len(values))
	if period <= 0 {
		return out
	}
	window := make([]float64, 0, period)
	for i := period - 1; i < len(values); i++ {
		window = window[:0]
		for _, v := range values[i-period+1 : i+1] {
			if !v.Valid {
				break
			}
			window = append(window, v.Float64)
		}
		if len(window) == period {
			out[i] = domain.Float(fn(window))
		}
	}
	return out
}

func mean(window []float64) float64 {
	total := 0.0
	for _, v := range window {
		total += v
	}
	return total / float64(len(window))
}

// sampleStdDev is the n-1 standard deviation; NaN for fewer than two points.
func sampleStdDev(window []float64) float64 {
	n := len(window)
	if n < 2 {
		return math.NaN()
	}
	m := mean(window)
	ss := 0.0
	for _, v := range window {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
