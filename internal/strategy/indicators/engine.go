package indicators

import (
	"fmt"

	"cryptoPredictor/internal/domain"
)

// Row holds the indicator values attached to one candle. Values whose
// window is not yet full are undefined.
type Row struct {
	Candle domain.Candle

	RSI         domain.NullFloat64
	EMAFast     domain.NullFloat64 // EMA over Config.EMAFastSpan (9)
	EMAMid      domain.NullFloat64 // EMA over Config.EMAMidSpan (21)
	EMASlow     domain.NullFloat64 // EMA over Config.EMASlowSpan (50)
	MACD        domain.NullFloat64
	MACDSignal  domain.NullFloat64
	BBMiddle    domain.NullFloat64
	BBUpper     domain.NullFloat64
	BBLower     domain.NullFloat64
	BBWidth     domain.NullFloat64
	ATR         domain.NullFloat64
	VolumeSMA   domain.NullFloat64
	VolumeRatio domain.NullFloat64
	Return1     domain.NullFloat64
	Return5     domain.NullFloat64
	Volatility  domain.NullFloat64 // Std dev of Return1 over Config.VolatilityPeriod
}

// Close returns the candle's closing price as a defined value.
func (r Row) Close() domain.NullFloat64 {
	return domain.Float(r.Candle.Close)
}

// Engine computes the full indicator table for a candle series.
type Engine struct {
	cfg Config
}

// NewEngine creates an indicator engine with validated windows.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid indicator config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's windows.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compute returns one Row per candle. The input is not modified and every
// value at index i depends only on candles[0..i].
func (e *Engine) Compute(candles []*domain.Candle) []Row {
	closes := domain.Closes(candles)
	volumes := domain.Volumes(candles)

	rsi := RSI(closes, e.cfg.RSIPeriod)
	emaFast := EMA(closes, e.cfg.EMAFastSpan)
	emaMid := EMA(closes, e.cfg.EMAMidSpan)
	emaSlow := EMA(closes, e.cfg.EMASlowSpan)
	macd, macdSignal := MACD(closes, e.cfg.MACDFastSpan, e.cfg.MACDSlowSpan, e.cfg.MACDSignalSpan)
	bands := Bollinger(closes, e.cfg.BBPeriod, e.cfg.BBStdDev)
	atr := ATR(candles, e.cfg.ATRPeriod)
	volumeSMA, volumeRatio := VolumeRatio(volumes, e.cfg.VolumePeriod)
	return1 := Returns(closes, 1)
	return5 := Returns(closes, 5)
	volatility := Volatility(return1, e.cfg.VolatilityPeriod)

	rows := make([]Row, len(candles))
	for i, c := range candles {
		rows[i] = Row{
			Candle:      *c,
			RSI:         rsi[i],
			EMAFast:     emaFast[i],
			EMAMid:      emaMid[i],
			EMASlow:     emaSlow[i],
			MACD:        macd[i],
			MACDSignal:  macdSignal[i],
			BBMiddle:    bands[i].Middle,
			BBUpper:     bands[i].Upper,
			BBLower:     bands[i].Lower,
			BBWidth:     bands[i].Width,
			ATR:         atr[i],
			VolumeSMA:   volumeSMA[i],
			VolumeRatio: volumeRatio[i],
			Return1:     return1[i],
			Return5:     return5[i],
			Volatility:  volatility[i],
		}
	}
	return rows
}
