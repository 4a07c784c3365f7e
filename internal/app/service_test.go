package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/metrics"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/risk"
	"cryptoPredictor/internal/strategy"
	"cryptoPredictor/internal/strategy/indicators"
	"cryptoPredictor/internal/strategy/trend"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockMarketData struct {
	series map[string][]*domain.Candle
	err    error
	limits []int
	mu     sync.Mutex
}

func (m *mockMarketData) FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	m.mu.Lock()
	m.limits = append(m.limits, limit)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	candles, ok := m.series[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return candles, nil
}

// blockingMarketData waits for the context on every fetch and announces
// the first one on started.
type blockingMarketData struct {
	started chan struct{}
	once    sync.Once
}

func (m *blockingMarketData) FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	m.once.Do(func() { close(m.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockScorer struct {
	score ports.Score
}

func (m *mockScorer) Score(ctx context.Context, in ports.ScoreInput) ports.Score { return m.score }
func (m *mockScorer) Name() string                                               { return "mock" }

type mockRecorder struct {
	mu       sync.Mutex
	signals  int
	failures []string
	reasons  []string
	batches  []int
	sources  []domain.ScoreSource
}

func (m *mockRecorder) ObserveSignal(sig *domain.Signal, source domain.ScoreSource, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
	m.sources = append(m.sources, source)
}

func (m *mockRecorder) ObserveFailure(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, symbol)
	m.reasons = append(m.reasons, metrics.Reason(err))
}

func (m *mockRecorder) ObserveBatch(symbols int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, symbols)
}

func testConfig() *config.Config {
	return &config.Config{
		Symbols:    []string{"BTC/USDT"},
		Timeframe:  domain.Timeframe1h,
		FetchLimit: 500,
		MinCandles: 26,
		Workers:    2,
		Indicators: indicators.DefaultConfig(),
		Trend:      trend.DefaultConfig(),
		Scoring:    strategy.DefaultConfig(),
		Risk:       risk.DefaultRiskConfig(),
	}
}

var seriesStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// candlesFromCloses builds an hourly series; each bar opens at the previous
// close and spans half a unit beyond its body.
func candlesFromCloses(closes []float64, volumes []float64) []*domain.Candle {
	candles := make([]*domain.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high, low := open, c
		if c > open {
			high, low = c, open
		}
		openTime := seriesStart.Add(time.Duration(i) * time.Hour)
		candles[i] = &domain.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour - time.Millisecond),
			Symbol:    "BTC/USDT",
			Timeframe: domain.Timeframe1h,
			Open:      open,
			High:      high + 0.5,
			Low:       low - 0.5,
			Close:     c,
			Volume:    volumes[i],
		}
	}
	return candles
}

// flatCandles returns n bars closing at 100 with a true range of 1.
func flatCandles(n int) []*domain.Candle {
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
		volumes[i] = 500
	}
	return candlesFromCloses(closes, volumes)
}

// selloffCandles returns 60 bars: flat at 100, a steady one-unit decline
// and a final capitulation bar to 80 on four times the usual volume.
func selloffCandles() []*domain.Candle {
	closes := make([]float64, 60)
	volumes := make([]float64, 60)
	for i := range closes {
		volumes[i] = 500
		switch {
		case i < 45:
			closes[i] = 100
		case i < 59:
			closes[i] = float64(144 - i)
		default:
			closes[i] = 80
		}
	}
	volumes[59] = 2000
	return candlesFromCloses(closes, volumes)
}

// reversalCandles returns 61 bars: a one-unit-per-bar decline from 140 to
// 100, nineteen flat bars while MACD recovers above its signal, and a final
// two-unit drop on four times the usual volume.
func reversalCandles() []*domain.Candle {
	closes := make([]float64, 61)
	volumes := make([]float64, 61)
	for i := range closes {
		volumes[i] = 500
		switch {
		case i <= 40:
			closes[i] = float64(140 - i)
		case i < 60:
			closes[i] = 100
		default:
			closes[i] = 98
		}
	}
	volumes[60] = 2000
	return candlesFromCloses(closes, volumes)
}

func newTestPredictor(t *testing.T, md ports.MarketData, scorer ports.Scorer, rec Recorder) (*Predictor, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	p, err := NewPredictor(testConfig(), logger, md, scorer, rec)
	require.NoError(t, err)
	return p, logger
}

func TestNewPredictor(t *testing.T) {
	md := &mockMarketData{}
	scorer := &mockScorer{}

	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		nilDep  string
		wantErr bool
	}{
		{name: "valid configuration"},
		{name: "nil config", nilDep: "config", wantErr: true},
		{name: "nil logger", nilDep: "logger", wantErr: true},
		{name: "nil market data", nilDep: "marketData", wantErr: true},
		{name: "nil scorer", nilDep: "scorer", wantErr: true},
		{
			name:    "fetch limit not positive",
			mutate:  func(cfg *config.Config) { cfg.FetchLimit = 0 },
			wantErr: true,
		},
		{
			name:    "min candles above fetch limit",
			mutate:  func(cfg *config.Config) { cfg.MinCandles = 501 },
			wantErr: true,
		},
		{
			name:    "invalid indicator windows",
			mutate:  func(cfg *config.Config) { cfg.Indicators.RSIPeriod = 0 },
			wantErr: true,
		},
		{
			name:    "invalid risk settings",
			mutate:  func(cfg *config.Config) { cfg.Risk.StopLossATRMultiplier = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			var (
				logger     ports.Logger     = &mockLogger{}
				marketData ports.MarketData = md
				sc         ports.Scorer     = scorer
			)
			switch tt.nilDep {
			case "config":
				cfg = nil
			case "logger":
				logger = nil
			case "marketData":
				marketData = nil
			case "scorer":
				sc = nil
			}

			p, err := NewPredictor(cfg, logger, marketData, sc, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, p)
			}
		})
	}
}

func TestPredictor_Generate_FlatSeriesHolds(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(60)}}
	rec := &mockRecorder{}
	p, logger := newTestPredictor(t, md, strategy.NewRuleBased(strategy.DefaultConfig()), rec)

	sig, err := p.Generate(context.Background(), "BTC/USDT", domain.Timeframe1h)
	require.NoError(t, err)

	assert.Equal(t, []int{500}, md.limits)
	assert.Equal(t, domain.Hold, sig.Signal)
	assert.Equal(t, 0, sig.Prediction)
	// EMAs of a constant series carry rounding noise, so only the bound is pinned.
	assert.Less(t, sig.Confidence, 60.0)
	assert.Equal(t, 100.0, sig.CurrentPrice)
	assert.Equal(t, domain.TrendSideways, sig.Trend)
	assert.False(t, sig.RSI.Valid, "RSI is undefined on a flat series")
	assert.False(t, sig.EntryPrice.Valid)
	assert.False(t, sig.StopLoss.Valid)
	assert.False(t, sig.TakeProfit.Valid)
	assert.False(t, sig.RiskRewardRatio.Valid)
	assert.Equal(t, seriesStart.Add(59*time.Hour), sig.Timestamp)

	assert.Equal(t, 1, rec.signals)
	assert.Equal(t, []domain.ScoreSource{domain.SourceRules}, rec.sources)
	assert.Contains(t, logger.infoMsgs, "Signal generated")
}

func TestPredictor_Generate_ConfidentScoreBuys(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(60)}}
	scorer := &mockScorer{score: ports.Score{Direction: 1, Confidence: 0.9, Source: domain.SourceModel}}
	p, _ := newTestPredictor(t, md, scorer, nil)

	sig, err := p.Generate(context.Background(), "BTC/USDT", domain.Timeframe1h)
	require.NoError(t, err)

	assert.Equal(t, domain.Buy, sig.Signal)
	assert.Equal(t, 1, sig.Prediction)
	assert.InDelta(t, 90.0, sig.Confidence, 1e-9)
	require.True(t, sig.EntryPrice.Valid)
	assert.Equal(t, sig.CurrentPrice, sig.EntryPrice.Float64)
	assert.Equal(t, 98.0, sig.StopLoss.Float64)
	assert.Equal(t, 104.0, sig.TakeProfit.Float64)
	assert.Equal(t, 2.0, sig.RiskRewardRatio.Float64)
}

func TestPredictor_Generate_BelowConfidenceGateHolds(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(60)}}
	scorer := &mockScorer{score: ports.Score{Direction: 1, Confidence: 0.65, Source: domain.SourceModel}}
	p, _ := newTestPredictor(t, md, scorer, nil)

	sig, err := p.Generate(context.Background(), "BTC/USDT", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Equal(t, domain.Hold, sig.Signal)
	assert.Equal(t, 1, sig.Prediction)
	assert.False(t, sig.EntryPrice.Valid)
}

func TestPredictor_Generate_SelloffScoresBelowThreshold(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"ETH/USDT": selloffCandles()}}
	p, _ := newTestPredictor(t, md, strategy.NewRuleBased(strategy.DefaultConfig()), nil)

	sig, err := p.Generate(context.Background(), "ETH/USDT", domain.Timeframe1h)
	require.NoError(t, err)

	// Oversold RSI, close under the lower band and a volume surge: 4 of 7 points.
	require.True(t, sig.RSI.Valid)
	assert.Less(t, sig.RSI.Float64, 30.0)
	require.True(t, sig.VolumeRatio.Valid)
	assert.Greater(t, sig.VolumeRatio.Float64, 1.2)
	assert.InDelta(t, 400.0/7.0, sig.Confidence, 1e-9)
	assert.Equal(t, 0, sig.Prediction)
	assert.Equal(t, domain.Hold, sig.Signal)
	assert.Equal(t, domain.TrendDown, sig.Trend)
	assert.Equal(t, 80.0, sig.CurrentPrice)
	assert.False(t, sig.StopLoss.Valid)
}

func TestPredictor_Generate_Errors(t *testing.T) {
	dup := flatCandles(30)
	dup[20].OpenTime = dup[19].OpenTime

	tests := []struct {
		name    string
		md      *mockMarketData
		wantErr error
		wantLog string
	}{
		{
			name:    "source failure",
			md:      &mockMarketData{err: errors.New("connection refused")},
			wantErr: ports.ErrDataUnavailable,
			wantLog: "error",
		},
		{
			name:    "source returns nothing",
			md:      &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": {}}},
			wantErr: ports.ErrDataUnavailable,
			wantLog: "error",
		},
		{
			name:    "too few candles",
			md:      &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(25)}},
			wantErr: ports.ErrInsufficientData,
			wantLog: "warn",
		},
		{
			name:    "duplicate timestamps",
			md:      &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": dup}},
			wantErr: ports.ErrInvalidCandles,
			wantLog: "warn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			p, logger := newTestPredictor(t, tt.md, &mockScorer{}, rec)

			sig, err := p.Generate(context.Background(), "BTC/USDT", domain.Timeframe1h)
			assert.Nil(t, sig)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, []string{"BTC/USDT"}, rec.failures)
			assert.Zero(t, rec.signals)

			switch tt.wantLog {
			case "error":
				assert.Contains(t, logger.errorMsgs, "Signal generation failed")
			case "warn":
				assert.Contains(t, logger.warnMsgs, "Signal not generated")
			}
		})
	}
}

func TestPredictor_Generate_FailureReasons(t *testing.T) {
	tests := []struct {
		name        string
		md          *mockMarketData
		wantErr     error
		unavailable bool
		reason      string
	}{
		{
			name:        "rate limited",
			md:          &mockMarketData{err: fmt.Errorf("FetchCandles failed: %w: %w", ports.ErrDataUnavailable, ports.ErrRateLimited)},
			wantErr:     ports.ErrRateLimited,
			unavailable: true,
			reason:      "rate_limited",
		},
		{
			name:    "cancelled fetch",
			md:      &mockMarketData{err: fmt.Errorf("klines: %w", context.Canceled)},
			wantErr: ports.ErrContextCanceled,
			reason:  "canceled",
		},
		{
			name:    "fetch deadline",
			md:      &mockMarketData{err: context.DeadlineExceeded},
			wantErr: ports.ErrTimeout,
			reason:  "timeout",
		},
		{
			name:        "unreachable source",
			md:          &mockMarketData{err: errors.New("connection refused")},
			wantErr:     ports.ErrDataUnavailable,
			unavailable: true,
			reason:      "data_unavailable",
		},
		{
			name:        "short series",
			md:          &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(10)}},
			wantErr:     ports.ErrInsufficientData,
			unavailable: true,
			reason:      "insufficient_data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			p, _ := newTestPredictor(t, tt.md, &mockScorer{}, rec)

			_, err := p.Generate(context.Background(), "BTC/USDT", domain.Timeframe1h)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.unavailable, errors.Is(err, ports.ErrDataUnavailable))
			assert.Equal(t, []string{tt.reason}, rec.reasons)
		})
	}
}

func TestPredictor_Evaluate(t *testing.T) {
	p, _ := newTestPredictor(t, &mockMarketData{}, strategy.NewRuleBased(strategy.DefaultConfig()), nil)
	candles := flatCandles(26)

	sig, err := p.Evaluate(context.Background(), "SOL/USDT", domain.Timeframe4h, candles)
	require.NoError(t, err)
	assert.Equal(t, "SOL/USDT", sig.Symbol)
	assert.Equal(t, domain.Timeframe4h, sig.Timeframe)
	assert.Equal(t, candles[25].OpenTime, sig.Timestamp)
	assert.Equal(t, domain.TrendUnknown, sig.Trend, "26 rows is short of the trend window")
	assert.Equal(t, domain.Hold, sig.Signal)

	// Same input, same output.
	again, err := p.Evaluate(context.Background(), "SOL/USDT", domain.Timeframe4h, candles)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	_, err = p.Evaluate(context.Background(), "SOL/USDT", domain.Timeframe4h, candles[:5])
	assert.True(t, errors.Is(err, ports.ErrInsufficientData))
	assert.True(t, errors.Is(err, ports.ErrDataUnavailable), "a short series is also unavailable data")
}

func TestPredictor_Evaluate_OversoldReversalBuys(t *testing.T) {
	p, _ := newTestPredictor(t, &mockMarketData{}, strategy.NewRuleBased(strategy.DefaultConfig()), nil)
	candles := reversalCandles()

	// The last row as the scorer sees it.
	last := p.engine.Compute(candles)[len(candles)-1]
	require.True(t, last.RSI.Valid)
	assert.Less(t, last.RSI.Float64, 30.0)
	assert.Less(t, last.Close().Float64, last.BBLower.Float64)
	assert.Greater(t, last.MACD.Float64, last.MACDSignal.Float64)
	assert.Greater(t, last.VolumeRatio.Float64, 1.2)

	sig, err := p.Evaluate(context.Background(), "BTC/USDT", domain.Timeframe1h, candles)
	require.NoError(t, err)

	// RSI, MACD, band and volume: 5 of 7 points clears both gates.
	assert.Equal(t, domain.Buy, sig.Signal)
	assert.Equal(t, 1, sig.Prediction)
	assert.InDelta(t, 500.0/7, sig.Confidence, 1e-9)
	assert.Equal(t, 98.0, sig.CurrentPrice)
	require.True(t, sig.EntryPrice.Valid)
	assert.Equal(t, sig.CurrentPrice, sig.EntryPrice.Float64)
	assert.Less(t, sig.StopLoss.Float64, sig.EntryPrice.Float64)
	assert.Greater(t, sig.TakeProfit.Float64, sig.EntryPrice.Float64)
	assert.Equal(t, 2.0, sig.RiskRewardRatio.Float64)
	assert.Equal(t, domain.TrendDown, sig.Trend)
}

func TestPredictor_Evaluate_UndefinedATRHolds(t *testing.T) {
	cfg := testConfig()
	cfg.Indicators.ATRPeriod = 40
	scorer := &mockScorer{score: ports.Score{Direction: 1, Confidence: 0.99, Source: domain.SourceModel}}
	logger := &mockLogger{}
	p, err := NewPredictor(cfg, logger, &mockMarketData{}, scorer, nil)
	require.NoError(t, err)

	sig, err := p.Evaluate(context.Background(), "BTC/USDT", domain.Timeframe1h, flatCandles(30))
	require.NoError(t, err)
	assert.Equal(t, domain.Hold, sig.Signal)
	assert.False(t, sig.RiskRewardRatio.Valid)
	assert.Contains(t, logger.debugMsgs, "Trade levels unavailable")
}

func TestPredictor_GenerateAll(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{
		"BTC/USDT": flatCandles(60),
		"ETH/USDT": selloffCandles(),
		"SOL/USDT": flatCandles(10),
	}}
	rec := &mockRecorder{}
	p, _ := newTestPredictor(t, md, strategy.NewRuleBased(strategy.DefaultConfig()), rec)

	symbols := []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"}
	results := p.GenerateAll(context.Background(), symbols, domain.Timeframe1h)
	require.Len(t, results, len(symbols))

	for i, symbol := range symbols {
		assert.Equal(t, symbol, results[i].Symbol)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, "BTC/USDT", results[0].Signal.Symbol)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "ETH/USDT", results[1].Signal.Symbol)
	assert.True(t, errors.Is(results[2].Err, ports.ErrInsufficientData))
	assert.True(t, errors.Is(results[3].Err, ports.ErrDataUnavailable))
	assert.Nil(t, results[3].Signal)

	assert.Equal(t, 2, rec.signals)
	assert.ElementsMatch(t, []string{"SOL/USDT", "XRP/USDT"}, rec.failures)
	assert.Equal(t, []int{4}, rec.batches)
}

func TestPredictor_GenerateAll_CancelledContext(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(60)}}
	rec := &mockRecorder{}
	p, _ := newTestPredictor(t, md, &mockScorer{}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A free worker slot and a done context race; either way no symbol is
	// left without an outcome and failures stay typed.
	results := p.GenerateAll(ctx, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, domain.Timeframe1h)
	require.Len(t, results, 3)
	for _, r := range results {
		if r.Err == nil {
			assert.NotNil(t, r.Signal)
			continue
		}
		assert.Nil(t, r.Signal)
		assert.True(t, errors.Is(r.Err, ports.ErrContextCanceled) || errors.Is(r.Err, ports.ErrDataUnavailable), "got %v", r.Err)
	}

	// Symbols that never got a worker slot are counted as failures too.
	assert.Equal(t, countFailed(results), len(rec.failures))
	assert.Equal(t, []int{3}, rec.batches)
}

func TestPredictor_GenerateAll_CancelledWhileQueued(t *testing.T) {
	md := &blockingMarketData{started: make(chan struct{})}
	rec := &mockRecorder{}
	p, _ := newTestPredictor(t, md, &mockScorer{}, rec)
	p.cfg.Workers = 1

	// The first symbol holds the only slot until the batch is cancelled; the
	// rest are still queued for it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-md.started
		cancel()
	}()

	symbols := []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
	results := p.GenerateAll(ctx, symbols, domain.Timeframe1h)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Nil(t, r.Signal)
		assert.ErrorIs(t, r.Err, ports.ErrContextCanceled)
	}
	assert.ElementsMatch(t, symbols, rec.failures)
	assert.Equal(t, []string{"canceled", "canceled", "canceled"}, rec.reasons)
}

func countFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func TestPredictor_Watch(t *testing.T) {
	md := &mockMarketData{series: map[string][]*domain.Candle{"BTC/USDT": flatCandles(60)}}
	p, logger := newTestPredictor(t, md, strategy.NewRuleBased(strategy.DefaultConfig()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batches [][]Result
	sink := func(ctx context.Context, results []Result) {
		batches = append(batches, results)
		if len(batches) == 3 {
			cancel()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Watch(ctx, []string{"BTC/USDT"}, domain.Timeframe1h, 10*time.Millisecond, sink)
	}()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop after cancellation")
	}

	require.Len(t, batches, 3)
	for _, batch := range batches {
		require.Len(t, batch, 1)
		assert.NoError(t, batch[0].Err)
	}
	assert.Contains(t, logger.infoMsgs, "Watch loop stopped")
}

func TestPredictor_Watch_InvalidArguments(t *testing.T) {
	p, _ := newTestPredictor(t, &mockMarketData{}, &mockScorer{}, nil)
	sink := func(context.Context, []Result) {}

	assert.Error(t, p.Watch(context.Background(), nil, domain.Timeframe1h, 0, sink))
	assert.Error(t, p.Watch(context.Background(), nil, domain.Timeframe1h, time.Second, nil))
}
