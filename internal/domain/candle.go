package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Timeframe is the candle period of a series.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Timeframes lists the supported timeframes in ascending order.
var Timeframes = []Timeframe{Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d}

// Duration returns the wall-clock length of one candle.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe converts a string such as "1h" into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range Timeframes {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe %q (want one of 15m, 1h, 4h, 1d)", s)
}

var symbolSeparators = strings.NewReplacer("/", "", "-", "", "_", "", " ", "")

// NormalizeSymbol turns a pair like "BTC/USDT" or "btc-usdt" into the
// exchange form "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(symbolSeparators.Replace(symbol))
}

// Candle represents a single OHLCV data point.
type Candle struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Timeframe Timeframe // Candle period
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// ValidateSeries checks that candles form a usable series: finite values,
// High >= Low, non-negative volume and strictly increasing open times.
func ValidateSeries(candles []*Candle) error {
	for i, c := range candles {
		if c == nil {
			return fmt.Errorf("candle %d is nil", i)
		}
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("candle %d (%s) has a non-finite value", i, c.OpenTime.Format(time.RFC3339))
			}
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d (%s): high %v below low %v", i, c.OpenTime.Format(time.RFC3339), c.High, c.Low)
		}
		if c.Volume < 0 {
			return fmt.Errorf("candle %d (%s): negative volume %v", i, c.OpenTime.Format(time.RFC3339), c.Volume)
		}
		if i > 0 && !c.OpenTime.After(candles[i-1].OpenTime) {
			return fmt.Errorf("candle %d (%s) is not after candle %d (%s)", i, c.OpenTime.Format(time.RFC3339),
				i-1, candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the closing prices of the series.
func Closes(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volumes of the series.
func Volumes(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
