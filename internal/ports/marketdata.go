package ports

import (
	"context"

	"cryptoPredictor/internal/domain"
)

// MarketData is the source of historical candles.
type MarketData interface {
	// FetchCandles returns up to limit candles for symbol and timeframe,
	// oldest first. It fails with ErrDataUnavailable when the source is
	// unreachable or returns no rows.
	FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error)
}
