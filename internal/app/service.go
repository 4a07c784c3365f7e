package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/risk"
	"cryptoPredictor/internal/signal"
	"cryptoPredictor/internal/strategy/features"
	"cryptoPredictor/internal/strategy/indicators"
	"cryptoPredictor/internal/strategy/trend"
)

// Recorder receives the outcome of every generation. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObserveSignal(sig *domain.Signal, source domain.ScoreSource, elapsed time.Duration)
	ObserveFailure(symbol string, err error)
	ObserveBatch(symbols int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSignal(*domain.Signal, domain.ScoreSource, time.Duration) {}
func (nopRecorder) ObserveFailure(string, error)                                    {}
func (nopRecorder) ObserveBatch(int)                                                {}

// Result is the outcome for one symbol of a batch.
type Result struct {
	Symbol string
	Signal *domain.Signal
	Err    error
}

// Predictor orchestrates signal generation: fetch candles, compute
// indicators, score, size the trade and assemble the signal. It keeps no
// state between calls.
type Predictor struct {
	cfg        *config.Config
	logger     ports.Logger
	marketData ports.MarketData
	scorer     ports.Scorer
	recorder   Recorder

	engine  *indicators.Engine
	trend   *trend.Classifier
	riskMgr *risk.RiskManager
}

// NewPredictor creates a new application service instance. recorder may be nil.
func NewPredictor(
	cfg *config.Config,
	logger ports.Logger,
	marketData ports.MarketData,
	scorer ports.Scorer,
	recorder Recorder,
) (*Predictor, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || marketData == nil || scorer == nil {
		return nil, fmt.Errorf("missing required dependencies for Predictor")
	}

	// Validate config values needed by service
	if cfg.FetchLimit <= 0 {
		return nil, fmt.Errorf("configuration FetchLimit must be positive")
	}
	if cfg.MinCandles <= 1 || cfg.MinCandles > cfg.FetchLimit {
		return nil, fmt.Errorf("configuration MinCandles must be within (1, FetchLimit]")
	}

	engine, err := indicators.NewEngine(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	riskMgr, err := risk.NewRiskManager(cfg.Risk)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Predictor{
		cfg:        cfg,
		logger:     logger,
		marketData: marketData,
		scorer:     scorer,
		recorder:   recorder,
		engine:     engine,
		trend:      trend.NewClassifier(cfg.Trend),
		riskMgr:    riskMgr,
	}, nil
}

// Generate fetches the latest candles for symbol and produces its signal.
// An unreachable source, an empty series and a short series all match
// ports.ErrDataUnavailable; a short one also matches ErrInsufficientData.
// A malformed series is ErrInvalidCandles, and cancellation is reported as
// ErrContextCanceled or ErrTimeout.
func (p *Predictor) Generate(ctx context.Context, symbol string, timeframe domain.Timeframe) (*domain.Signal, error) {
	start := time.Now()
	fields := map[string]interface{}{"symbol": symbol, "timeframe": string(timeframe)}

	candles, err := p.marketData.FetchCandles(ctx, symbol, timeframe, p.cfg.FetchLimit)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			err = fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", ports.ErrTimeout, err)
		case !errors.Is(err, ports.ErrDataUnavailable):
			err = fmt.Errorf("%w: %w", ports.ErrDataUnavailable, err)
		}
		return nil, p.fail(ctx, symbol, fmt.Errorf("fetching candles for %s: %w", symbol, err), fields)
	}
	if len(candles) == 0 {
		return nil, p.fail(ctx, symbol, fmt.Errorf("no candles for %s %s: %w", symbol, timeframe, ports.ErrDataUnavailable), fields)
	}

	sig, source, err := p.evaluate(ctx, symbol, timeframe, candles)
	if err != nil {
		return nil, p.fail(ctx, symbol, err, fields)
	}

	elapsed := time.Since(start)
	p.recorder.ObserveSignal(sig, source, elapsed)
	p.logger.Info(ctx, "Signal generated", map[string]interface{}{
		"symbol":     sig.Symbol,
		"timeframe":  string(sig.Timeframe),
		"signal":     string(sig.Signal),
		"confidence": sig.Confidence,
		"trend":      string(sig.Trend),
		"source":     string(source),
		"elapsed":    elapsed.String(),
	})
	return sig, nil
}

// Evaluate runs the pipeline on candles already in hand. It performs no I/O.
func (p *Predictor) Evaluate(ctx context.Context, symbol string, timeframe domain.Timeframe, candles []*domain.Candle) (*domain.Signal, error) {
	sig, _, err := p.evaluate(ctx, symbol, timeframe, candles)
	return sig, err
}

func (p *Predictor) evaluate(ctx context.Context, symbol string, timeframe domain.Timeframe, candles []*domain.Candle) (*domain.Signal, domain.ScoreSource, error) {
	if len(candles) < p.cfg.MinCandles {
		return nil, "", fmt.Errorf("%s %s has %d candles, need %d: %w: %w",
			symbol, timeframe, len(candles), p.cfg.MinCandles, ports.ErrDataUnavailable, ports.ErrInsufficientData)
	}
	if err := domain.ValidateSeries(candles); err != nil {
		return nil, "", fmt.Errorf("%s %s: %w: %w", symbol, timeframe, ports.ErrInvalidCandles, err)
	}

	rows := p.engine.Compute(candles)
	last := rows[len(rows)-1]

	score := p.scorer.Score(ctx, ports.ScoreInput{
		Indicators: last,
		Features:   features.Build(last),
	})

	price := last.Candle.Close
	levels, err := p.riskMgr.Levels(price, last.ATR)
	if err != nil {
		// No volatility means no trade levels; the signal degrades to HOLD.
		p.logger.Debug(ctx, "Trade levels unavailable", map[string]interface{}{
			"symbol": symbol,
			"price":  price,
			"reason": err.Error(),
		})
		levels = nil
	}

	sig := signal.Assemble(signal.Input{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: last.Candle.OpenTime,
		Price:     price,
		Score:     score,
		Levels:    levels,
		Buy:       p.riskMgr.Validate(score, levels),
		Trend:     p.trend.Classify(rows),
		RSI:       last.RSI,
		Volume:    last.VolumeRatio,
	})
	return &sig, score.Source, nil
}

// GenerateAll produces signals for every symbol with at most cfg.Workers
// generations in flight. Results follow the order of symbols; a failing
// symbol carries its error and never aborts the batch.
func (p *Predictor) GenerateAll(ctx context.Context, symbols []string, timeframe domain.Timeframe) []Result {
	results := make([]Result, len(symbols))
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		results[i].Symbol = symbol
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i].Err = fmt.Errorf("%s: %w: %w", symbol, ports.ErrContextCanceled, ctx.Err())
				p.recorder.ObserveFailure(symbol, results[i].Err)
				return
			}
			defer func() { <-sem }()
			results[i].Signal, results[i].Err = p.Generate(ctx, symbol, timeframe)
		}(i, symbol)
	}
	wg.Wait()

	p.recorder.ObserveBatch(len(symbols))
	return results
}

// Watch runs GenerateAll immediately and then every interval, handing each
// batch to sink, until ctx is cancelled.
func (p *Predictor) Watch(ctx context.Context, symbols []string, timeframe domain.Timeframe, every time.Duration, sink func(context.Context, []Result)) error {
	if every <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	if sink == nil {
		return fmt.Errorf("watch requires a result sink")
	}

	p.logger.Info(ctx, "Starting watch loop", map[string]interface{}{
		"symbols":   len(symbols),
		"timeframe": string(timeframe),
		"interval":  every.String(),
	})

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		sink(ctx, p.GenerateAll(ctx, symbols, timeframe))

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	p.logger.Info(ctx, "Watch loop stopped")
	return nil
}

func (p *Predictor) fail(ctx context.Context, symbol string, err error, fields map[string]interface{}) error {
	p.recorder.ObserveFailure(symbol, err)
	if errors.Is(err, ports.ErrInsufficientData) || errors.Is(err, ports.ErrInvalidCandles) {
		p.logger.Warn(ctx, "Signal not generated", mergeFields(fields, map[string]interface{}{"error": err.Error()}))
	} else {
		p.logger.Error(ctx, err, "Signal generation failed", fields)
	}
	return err
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
