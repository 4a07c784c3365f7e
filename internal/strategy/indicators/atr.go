package indicators

import (
	"math"

	"cryptoPredictor/internal/domain"
)

// TrueRange returns the true range of every candle. The first candle has no
// previous close, so its true range is just High - Low.
func TrueRange(candles []*domain.Candle) []float64 {
	trueRanges := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			trueRanges[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := c.High - c.Low
		tr2 := math.Abs(c.High - prevClose)
		tr3 := math.Abs(c.Low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return trueRanges
}

// ATR computes the Average True Range as a trailing mean of true range.
func ATR(candles []*domain.Candle, period int) []domain.NullFloat64 {
	return SMA(TrueRange(candles), period)
}
