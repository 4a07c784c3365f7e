package backtesting

import (
	"context"
	"fmt"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/strategy/analytics"
)

// Evaluator produces the signal for the latest candle of a history.
// *app.Predictor satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, timeframe domain.Timeframe, candles []*domain.Candle) (*domain.Signal, error)
}

// BacktestConfig holds configuration for a signal replay
type BacktestConfig struct {
	Symbol    string
	Timeframe domain.Timeframe
	Warmup    int // Candles in the first evaluated history, e.g., 50
	Horizon   int // Candles a BUY has to reach a level before it expires, e.g., 24
	Lookback  int // Most recent candles passed to the evaluator; 0 passes the whole history
}

// BacktestResult holds the results of a replay
type BacktestResult struct {
	Evaluated int // Histories scored
	Holds     int
	Trades    []*domain.Trade
	Metrics   *analytics.PerformanceMetrics
}

// Backtest walks forward through candles, scoring every growing history
// with ev. Each BUY is resolved against the candles that follow it: the stop
// is checked before the target within a candle, and a trade still open
// after Horizon candles exits at the last close. While a trade is open no
// new signal is taken.
func Backtest(ctx context.Context, ev Evaluator, candles []*domain.Candle, config BacktestConfig) (*BacktestResult, error) {
	if config.Warmup <= 0 || config.Horizon <= 0 {
		return nil, fmt.Errorf("warmup and horizon must be positive")
	}
	if config.Lookback < 0 || (config.Lookback > 0 && config.Lookback < config.Warmup) {
		return nil, fmt.Errorf("lookback must be zero or at least the warmup")
	}
	if len(candles) <= config.Warmup {
		return nil, fmt.Errorf("%d candles leave nothing to replay after a warmup of %d: %w",
			len(candles), config.Warmup, ports.ErrInsufficientData)
	}

	result := &BacktestResult{}

	// The last candle has no future to resolve a trade against.
	for i := config.Warmup - 1; i < len(candles)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		}

		from := 0
		if config.Lookback > 0 {
			from = max(0, i+1-config.Lookback)
		}
		sig, err := ev.Evaluate(ctx, config.Symbol, config.Timeframe, candles[from:i+1])
		if err != nil {
			return nil, fmt.Errorf("evaluating candle %d: %w", i, err)
		}
		result.Evaluated++
		if !sig.IsBuy() {
			result.Holds++
			continue
		}

		trade, exitIndex := resolve(sig, candles, i, config.Horizon)
		result.Trades = append(result.Trades, trade)
		i = exitIndex
	}

	result.Metrics = analytics.AnalyzePerformance(result.Trades)
	return result, nil
}

// resolve follows a BUY issued on candles[at] and returns the trade with
// the index of the candle that closed it.
func resolve(sig *domain.Signal, candles []*domain.Candle, at, horizon int) (*domain.Trade, int) {
	trade := &domain.Trade{
		Symbol:     sig.Symbol,
		Timeframe:  sig.Timeframe,
		EntryPrice: sig.EntryPrice.Float64,
		StopLoss:   sig.StopLoss.Float64,
		TakeProfit: sig.TakeProfit.Float64,
		Confidence: sig.Confidence,
		EntryTime:  sig.Timestamp,
	}

	last := min(at+horizon, len(candles)-1)
	exitIndex := last
	trade.Reason = domain.ExitExpired
	trade.ExitPrice = candles[last].Close
	for j := at + 1; j <= last; j++ {
		c := candles[j]
		if c.Low <= trade.StopLoss {
			trade.Reason, trade.ExitPrice, exitIndex = domain.ExitStopLoss, trade.StopLoss, j
			break
		}
		if c.High >= trade.TakeProfit {
			trade.Reason, trade.ExitPrice, exitIndex = domain.ExitTakeProfit, trade.TakeProfit, j
			break
		}
	}

	trade.ExitTime = candles[exitIndex].OpenTime
	trade.R = (trade.ExitPrice - trade.EntryPrice) / (trade.EntryPrice - trade.StopLoss)
	return trade, exitIndex
}
