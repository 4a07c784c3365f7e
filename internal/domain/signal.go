package domain

import "time"

// Signal is the terminal record produced for one candle series.
// Trade-level fields are undefined unless Signal is Buy.
type Signal struct {
	Symbol          string      `json:"symbol"`
	Timeframe       Timeframe   `json:"timeframe"`
	Timestamp       time.Time   `json:"timestamp"` // Open time of the last candle used
	CurrentPrice    float64     `json:"current_price"`
	Prediction      int         `json:"prediction"` // Binary direction from the scorer (0 or 1)
	Confidence      float64     `json:"confidence"` // Percentage, 0-100
	Signal          Direction   `json:"signal"`
	EntryPrice      NullFloat64 `json:"entry_price"`
	StopLoss        NullFloat64 `json:"stop_loss"`
	TakeProfit      NullFloat64 `json:"take_profit"`
	RiskRewardRatio NullFloat64 `json:"risk_reward_ratio"`
	Trend           Trend       `json:"trend"`
	RSI             NullFloat64 `json:"rsi"`
	VolumeRatio     NullFloat64 `json:"volume_ratio"`
}

// IsBuy checks if the signal recommends entering a trade.
func (s *Signal) IsBuy() bool {
	return s.Signal == Buy
}
