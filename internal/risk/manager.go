package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
)

// RiskConfig holds configuration for trade levels and signal validation
type RiskConfig struct {
	StopLossATRMultiplier   float64 // Stop distance below entry in ATRs, e.g., 2
	TakeProfitATRMultiplier float64 // Target distance above entry in ATRs, e.g., 4
	MinConfidence           float64 // Minimum scorer confidence for a BUY, e.g., 0.70
	MinRiskReward           float64 // Minimum reward/risk for a BUY, e.g., 2.0
	ATRPrecision            int32   // Decimal places ATR is rounded to before use, e.g., 8
}

// DefaultRiskConfig returns the standard 2 ATR stop, 4 ATR target framing.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		StopLossATRMultiplier:   2,
		TakeProfitATRMultiplier: 4,
		MinConfidence:           0.70,
		MinRiskReward:           2.0,
		ATRPrecision:            8,
	}
}

// Levels are the proposed trade levels for a long entry.
type Levels struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	RiskReward float64
}

// RiskManager derives trade levels from volatility and gates signals
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) (*RiskManager, error) {
	if config.StopLossATRMultiplier <= 0 || config.TakeProfitATRMultiplier <= 0 {
		return nil, fmt.Errorf("ATR multipliers must be positive")
	}
	if config.MinConfidence < 0 || config.MinConfidence > 1 {
		return nil, fmt.Errorf("minimum confidence %v must be within [0, 1]", config.MinConfidence)
	}
	if config.MinRiskReward < 0 {
		return nil, fmt.Errorf("minimum risk/reward cannot be negative")
	}
	if config.ATRPrecision < 0 {
		return nil, fmt.Errorf("ATR precision cannot be negative")
	}
	return &RiskManager{config: config}, nil
}

// Levels computes stop-loss, take-profit and risk/reward for an entry at
// price. The arithmetic is decimal so the structural ratio of the two
// multipliers is reproduced exactly.
func (r *RiskManager) Levels(price float64, atr domain.NullFloat64) (*Levels, error) {
	if !atr.Valid || atr.Float64 <= 0 {
		return nil, ports.ErrNoVolatility
	}
	entry := decimal.NewFromFloat(price)
	volatility := decimal.NewFromFloat(atr.Float64).Round(r.config.ATRPrecision)
	if !volatility.IsPositive() {
		return nil, fmt.Errorf("%w: ATR %v rounds to zero", ports.ErrNoVolatility, atr.Float64)
	}

	stopLoss := entry.Sub(volatility.Mul(decimal.NewFromFloat(r.config.StopLossATRMultiplier)))
	takeProfit := entry.Add(volatility.Mul(decimal.NewFromFloat(r.config.TakeProfitATRMultiplier)))

	return &Levels{
		Entry:      entry.InexactFloat64(),
		StopLoss:   stopLoss.InexactFloat64(),
		TakeProfit: takeProfit.InexactFloat64(),
		RiskReward: riskReward(entry, stopLoss, takeProfit).InexactFloat64(),
	}, nil
}

// RiskReward recomputes (takeProfit - entry) / (entry - stopLoss) from
// reported levels. It errors when the stop is not below the entry.
func RiskReward(entry, stopLoss, takeProfit float64) (float64, error) {
	e := decimal.NewFromFloat(entry)
	sl := decimal.NewFromFloat(stopLoss)
	if !e.GreaterThan(sl) {
		return 0, fmt.Errorf("stop loss %v is not below entry %v", stopLoss, entry)
	}
	return riskReward(e, sl, decimal.NewFromFloat(takeProfit)).InexactFloat64(), nil
}

func riskReward(entry, stopLoss, takeProfit decimal.Decimal) decimal.Decimal {
	return takeProfit.Sub(entry).Div(entry.Sub(stopLoss))
}

// Validate reports whether a score and its levels qualify as a BUY: the
// scorer is bullish, confident enough, and the reward justifies the risk.
func (r *RiskManager) Validate(score ports.Score, levels *Levels) bool {
	if levels == nil {
		return false
	}
	return score.Direction == 1 &&
		score.Confidence >= r.config.MinConfidence &&
		levels.RiskReward >= r.config.MinRiskReward
}
