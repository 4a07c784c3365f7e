package domain

import "time"

// ExitReason tells how a replayed trade ended.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitExpired    ExitReason = "expired" // Neither level reached within the horizon
)

// Trade is the hypothetical outcome of following one BUY signal on
// historical candles. Results are in multiples of the initial risk (R),
// so trades on different symbols and price scales are comparable.
type Trade struct {
	Symbol     string     // Trading symbol (e.g., "BTC/USDT")
	Timeframe  Timeframe  // Candle period of the signal
	EntryPrice float64    // Entry level of the signal
	StopLoss   float64    // Stop level of the signal
	TakeProfit float64    // Target level of the signal
	ExitPrice  float64    // Level or close at which the trade was resolved
	Confidence float64    // Signal confidence, 0-100
	EntryTime  time.Time  // Timestamp of the signal
	ExitTime   time.Time  // Open time of the candle that resolved the trade
	Reason     ExitReason // Why the trade ended
	R          float64    // (ExitPrice - EntryPrice) / (EntryPrice - StopLoss)
}

// IsWin reports whether the trade closed with a profit.
func (t *Trade) IsWin() bool {
	return t.R > 0
}
