// Package signal packages scored, validated pipeline output into the
// terminal signal record.
package signal

import (
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/risk"
)

// Input is everything the assembler needs for one series.
type Input struct {
	Symbol    string
	Timeframe domain.Timeframe
	Timestamp time.Time
	Price     float64
	Score     ports.Score
	Levels    *risk.Levels // Nil when levels are unavailable
	Buy       bool         // Outcome of RiskManager.Validate
	Trend     domain.Trend
	RSI       domain.NullFloat64
	Volume    domain.NullFloat64 // Volume ratio of the latest candle
}

// Assemble builds the signal record. Trade levels are only reported for a
// BUY; on HOLD they stay undefined.
func Assemble(in Input) domain.Signal {
	sig := domain.Signal{
		Symbol:          in.Symbol,
		Timeframe:       in.Timeframe,
		Timestamp:       in.Timestamp,
		CurrentPrice:    in.Price,
		Prediction:      in.Score.Direction,
		Confidence:      in.Score.Confidence * 100,
		Signal:          domain.Hold,
		EntryPrice:      domain.Null,
		StopLoss:        domain.Null,
		TakeProfit:      domain.Null,
		RiskRewardRatio: domain.Null,
		Trend:           in.Trend,
		RSI:             in.RSI,
		VolumeRatio:     in.Volume,
	}
	if in.Trend == "" {
		sig.Trend = domain.TrendUnknown
	}

	if in.Buy && in.Levels != nil {
		sig.Signal = domain.Buy
		sig.EntryPrice = domain.Float(in.Levels.Entry)
		sig.StopLoss = domain.Float(in.Levels.StopLoss)
		sig.TakeProfit = domain.Float(in.Levels.TakeProfit)
		sig.RiskRewardRatio = domain.Float(in.Levels.RiskReward)
	}
	return sig
}
