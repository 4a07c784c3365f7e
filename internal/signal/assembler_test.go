package signal

import (
	"encoding/json"
	"testing"
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() Input {
	return Input{
		Symbol:    "ETH/USDT",
		Timeframe: domain.Timeframe4h,
		Timestamp: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Price:     2000,
		Score:     ports.Score{Direction: 1, Confidence: 0.8, Source: domain.SourceModel},
		Levels:    &risk.Levels{Entry: 2000, StopLoss: 1960, TakeProfit: 2080, RiskReward: 2},
		Buy:       true,
		Trend:     domain.TrendUp,
		RSI:       domain.Float(28.5),
		Volume:    domain.Float(1.7),
	}
}

func TestAssemble_Buy(t *testing.T) {
	in := baseInput()

	sig := Assemble(in)

	assert.Equal(t, domain.Buy, sig.Signal)
	assert.True(t, sig.IsBuy())
	assert.Equal(t, 1, sig.Prediction)
	assert.InDelta(t, 80.0, sig.Confidence, 1e-9)
	assert.Equal(t, domain.Float(2000), sig.EntryPrice)
	assert.Equal(t, domain.Float(1960), sig.StopLoss)
	assert.Equal(t, domain.Float(2080), sig.TakeProfit)
	assert.Equal(t, domain.Float(2), sig.RiskRewardRatio)
	assert.Equal(t, in.Price, sig.EntryPrice.Float64)
	assert.Equal(t, domain.TrendUp, sig.Trend)
	assert.Equal(t, in.Timestamp, sig.Timestamp)
}

func TestAssemble_HoldLeavesTradeFieldsUndefined(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"validator rejected", func(in *Input) { in.Buy = false }},
		{"levels unavailable", func(in *Input) { in.Levels = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)

			sig := Assemble(in)

			assert.Equal(t, domain.Hold, sig.Signal)
			assert.False(t, sig.EntryPrice.Valid)
			assert.False(t, sig.StopLoss.Valid)
			assert.False(t, sig.TakeProfit.Valid)
			assert.False(t, sig.RiskRewardRatio.Valid)
			// the scorer's call is still reported
			assert.Equal(t, 1, sig.Prediction)
		})
	}
}

func TestAssemble_PropagatesUndefinedValues(t *testing.T) {
	in := baseInput()
	in.RSI = domain.Null
	in.Volume = domain.Null
	in.Trend = ""

	sig := Assemble(in)

	assert.Equal(t, domain.TrendUnknown, sig.Trend)

	data, err := json.Marshal(sig)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"symbol", "timeframe", "timestamp", "current_price", "prediction",
		"confidence", "signal", "entry_price", "stop_loss", "take_profit", "risk_reward_ratio",
		"trend", "rsi", "volume_ratio"} {
		assert.Contains(t, decoded, key)
	}
	assert.Len(t, decoded, 14)
	assert.Nil(t, decoded["rsi"])
	assert.Nil(t, decoded["volume_ratio"])
	assert.Nil(t, decoded["entry_price"])
	assert.Equal(t, "HOLD", decoded["signal"])
}

func TestAssemble_LevelsRoundTripThroughCalculator(t *testing.T) {
	manager, err := risk.NewRiskManager(risk.DefaultRiskConfig())
	require.NoError(t, err)
	levels, err := manager.Levels(1234.5678, domain.Float(17.25))
	require.NoError(t, err)

	in := baseInput()
	in.Levels = levels
	in.Buy = manager.Validate(in.Score, levels)
	require.True(t, in.Buy)

	sig := Assemble(in)
	rr, err := risk.RiskReward(sig.EntryPrice.Float64, sig.StopLoss.Float64, sig.TakeProfit.Float64)
	require.NoError(t, err)
	assert.Equal(t, sig.RiskRewardRatio.Float64, rr)
	assert.Equal(t, 2.0, rr)
}
