// Package features derives model-ready values from the latest indicator row.
package features

import (
	"errors"
	"fmt"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/strategy/indicators"
)

var (
	// ErrMissingFeature is returned for a feature name nothing can resolve.
	ErrMissingFeature = errors.New("feature not available")
	// ErrUndefinedFeature is returned when a feature exists but has no value yet.
	ErrUndefinedFeature = errors.New("feature value is undefined")
)

// Row holds the derived features of one candle.
type Row struct {
	PriceToEMA50  domain.NullFloat64 // Close / slow EMA
	RSINormalized domain.NullFloat64 // (RSI - 50) / 50, in [-1, 1]
	BBPosition    domain.NullFloat64 // 0 at the lower band, 1 at the upper; may leave [0, 1]
}

// Build derives the feature row from an indicator row. Zero denominators
// (flat bands, zero EMA) give undefined values.
func Build(r indicators.Row) Row {
	return Row{
		PriceToEMA50:  domain.Div(r.Close(), r.EMASlow),
		RSINormalized: domain.Div(domain.Sub(r.RSI, domain.Float(50)), domain.Float(50)),
		BBPosition:    domain.Div(domain.Sub(r.Close(), r.BBLower), domain.Sub(r.BBUpper, r.BBLower)),
	}
}

// Lookup resolves a feature by the column name a model was trained with.
func Lookup(ind indicators.Row, feat Row, name string) (domain.NullFloat64, error) {
	c := ind.Candle
	switch name {
	case "open":
		return domain.Float(c.Open), nil
	case "high":
		return domain.Float(c.High), nil
	case "low":
		return domain.Float(c.Low), nil
	case "close":
		return domain.Float(c.Close), nil
	case "volume":
		return domain.Float(c.Volume), nil
	case "rsi":
		return ind.RSI, nil
	case "ema_9", "ema_fast":
		return ind.EMAFast, nil
	case "ema_21", "ema_mid":
		return ind.EMAMid, nil
	case "ema_50", "ema_slow":
		return ind.EMASlow, nil
	case "macd":
		return ind.MACD, nil
	case "macd_signal":
		return ind.MACDSignal, nil
	case "bb_middle":
		return ind.BBMiddle, nil
	case "bb_upper":
		return ind.BBUpper, nil
	case "bb_lower":
		return ind.BBLower, nil
	case "bb_width":
		return ind.BBWidth, nil
	case "atr":
		return ind.ATR, nil
	case "volume_sma":
		return ind.VolumeSMA, nil
	case "volume_ratio":
		return ind.VolumeRatio, nil
	case "return_1":
		return ind.Return1, nil
	case "return_5":
		return ind.Return5, nil
	case "volatility_20", "volatility":
		return ind.Volatility, nil
	case "price_to_ema50":
		return feat.PriceToEMA50, nil
	case "rsi_normalized":
		return feat.RSINormalized, nil
	case "bb_position":
		return feat.BBPosition, nil
	default:
		return domain.Null, fmt.Errorf("%w: %q", ErrMissingFeature, name)
	}
}

// Vector assembles the named features in order. Every feature must exist
// and be defined.
func Vector(ind indicators.Row, feat Row, names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := Lookup(ind, feat, name)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, fmt.Errorf("%w: %q", ErrUndefinedFeature, name)
		}
		out[i] = v.Float64
	}
	return out, nil
}
