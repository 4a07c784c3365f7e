package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/adapters/csvfeed"
	"cryptoPredictor/internal/adapters/logger"
	"cryptoPredictor/internal/app"
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/strategy/backtesting"
)

func main() {
	symbol := flag.String("symbol", "BTC/USDT", "Symbol to replay")
	timeframeFlag := flag.String("timeframe", "", "Candle timeframe, overrides TIMEFRAME")
	file := flag.String("file", "", "Candle CSV, defaults to CSV_DIR/<SYMBOL>_<timeframe>.csv")
	warmup := flag.Int("warmup", 60, "Candles in the first evaluated history")
	horizon := flag.Int("horizon", 24, "Candles a BUY has to reach a level before it expires")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *timeframeFlag != "" {
		cfg.Timeframe, err = domain.ParseTimeframe(*timeframeFlag)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}
	if *warmup < cfg.MinCandles {
		log.Fatalf("FATAL: warmup %d is below MIN_CANDLES %d", *warmup, cfg.MinCandles)
	}
	path := *file
	if path == "" {
		path = filepath.Join(cfg.CSVDir, csvfeed.FileName(*symbol, cfg.Timeframe))
	}

	appLogger, err := logger.NewZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	ctx := context.Background()

	// 2. Load candles from CSV
	candles, err := csvfeed.ReadCandles(path)
	if err != nil {
		appLogger.Error(ctx, err, "Error loading candles", map[string]interface{}{"path": path})
		log.Fatalf("Error loading candles from %s: %v", path, err)
	}
	appLogger.Info(ctx, "Loaded candles", map[string]interface{}{"path": path, "count": len(candles)})

	// 3. Build the same pipeline the live predictor runs
	feed, err := csvfeed.New(filepath.Dir(path), appLogger)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	scorer, err := app.NewScorer(cfg, appLogger, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize scorer: %v", err)
	}
	predictor, err := app.NewPredictor(cfg, appLogger, feed, scorer, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize predictor: %v", err)
	}

	// 4. Replay
	result, err := backtesting.Backtest(ctx, predictor, candles, backtesting.BacktestConfig{
		Symbol:    *symbol,
		Timeframe: cfg.Timeframe,
		Warmup:    *warmup,
		Horizon:   *horizon,
		Lookback:  cfg.FetchLimit,
	})
	if err != nil {
		appLogger.Error(ctx, err, "Backtest error")
		log.Fatalf("Backtest error: %v", err)
	}

	m := result.Metrics
	appLogger.Info(ctx, "Backtest result", map[string]interface{}{
		"symbol":    *symbol,
		"scorer":    scorer.Name(),
		"evaluated": result.Evaluated,
		"trades":    m.TotalTrades,
		"winRate":   m.WinRate * 100,
		"totalR":    m.TotalR,
		"maxDD":     m.MaxDrawdown,
	})

	// 5. Report
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Symbol\t%s %s\n", *symbol, cfg.Timeframe)
	fmt.Fprintf(w, "Scorer\t%s\n", scorer.Name())
	fmt.Fprintf(w, "Candles evaluated\t%d (%d HOLD)\n", result.Evaluated, result.Holds)
	fmt.Fprintf(w, "Trades\t%d (%d won, %d lost, %d expired)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades, m.ExpiredTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Total\t%.2fR\n", m.TotalR)
	fmt.Fprintf(w, "Expectancy\t%.2fR\n", m.Expectancy)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", m.ProfitFactor)
	fmt.Fprintf(w, "Max drawdown\t%.2fR\n", m.MaxDrawdown)
	fmt.Fprintf(w, "Sharpe\t%.2f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Avg confidence\t%.1f\n", m.AverageConfidence)
	fmt.Fprintf(w, "Avg duration\t%s\n", m.AverageTradeDuration)
	for _, mr := range m.GetMonthlyReturns() {
		fmt.Fprintf(w, "  %s\t%+.2fR\n", mr.Month.Format("2006-01"), mr.Return)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Error writing report: %v", err)
	}
}
