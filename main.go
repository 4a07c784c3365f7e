package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/adapters/binanceclient"
	"cryptoPredictor/internal/adapters/csvfeed"
	"cryptoPredictor/internal/adapters/logger"
	"cryptoPredictor/internal/adapters/sqlite"
	"cryptoPredictor/internal/app"
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/metrics"
	"cryptoPredictor/internal/ports"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols, overrides SYMBOLS")
	timeframeFlag := flag.String("timeframe", "", "Candle timeframe, overrides TIMEFRAME")
	watch := flag.Bool("watch", false, "Regenerate signals every WATCH_INTERVAL_SECONDS until interrupted")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	if *symbolsFlag != "" {
		cfg.Symbols = splitSymbols(*symbolsFlag)
	}
	if *timeframeFlag != "" {
		cfg.Timeframe, err = domain.ParseTimeframe(*timeframeFlag)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}
	if len(cfg.Symbols) == 0 {
		log.Fatalf("FATAL: no symbols to evaluate")
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": string(cfg.LogFormat)})

	// 3. Initialize Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	// 4. Initialize Market Data (Binance or CSV, optionally behind the SQLite cache)
	marketData, closeMarketData, err := newMarketData(cfg, appLogger, appMetrics)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize market data source")
		log.Fatalf("FATAL: Failed to initialize market data source: %v", err)
	}
	defer closeMarketData()

	// 5. Initialize Scorer (model-backed when an artifact is present)
	scorer, err := app.NewScorer(cfg, appLogger, appMetrics)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize scorer")
		log.Fatalf("FATAL: Failed to initialize scorer: %v", err)
	}

	// 6. Initialize Application Service
	predictor, err := app.NewPredictor(cfg, appLogger, marketData, scorer, appMetrics)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize predictor")
		log.Fatalf("FATAL: Failed to initialize predictor: %v", err)
	}

	// 7. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	out := json.NewEncoder(os.Stdout)
	sink := func(ctx context.Context, results []app.Result) {
		for _, r := range results {
			if r.Err != nil {
				continue // Already logged by the predictor
			}
			if err := out.Encode(r.Signal); err != nil {
				appLogger.Error(ctx, err, "Failed to write signal", map[string]interface{}{"symbol": r.Symbol})
			}
		}
	}

	if !*watch {
		results := predictor.GenerateAll(ctx, cfg.Symbols, cfg.Timeframe)
		sink(ctx, results)
		if failed := countFailures(results); failed == len(results) {
			appLogger.Error(ctx, errors.New("no signal generated"), "All symbols failed", map[string]interface{}{"symbols": len(results)})
			closeMarketData()
			_ = appLogger.Sync()
			os.Exit(1)
		}
		return
	}

	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, registry, appLogger)
		server.Start(ctx)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Stop(shutdownCtx); err != nil {
				appLogger.Error(context.Background(), err, "Error stopping metrics server")
			}
		}()
	}

	if err := predictor.Watch(ctx, cfg.Symbols, cfg.Timeframe, cfg.WatchInterval, sink); err != nil {
		appLogger.Error(ctx, err, "Watch loop exited with error")
		return
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}

// newMarketData builds the configured candle source. The returned close
// function releases the cache database, if any.
func newMarketData(cfg *config.Config, appLogger ports.Logger, appMetrics *metrics.Metrics) (ports.MarketData, func(), error) {
	var source ports.MarketData
	switch cfg.DataSource {
	case config.SourceCSV:
		feed, err := csvfeed.New(cfg.CSVDir, appLogger)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info(context.Background(), "CSV feed initialized", map[string]interface{}{"dir": cfg.CSVDir})
		source = feed
	default:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:               cfg.APIKey,
			SecretKey:            cfg.SecretKey,
			UseTestnet:           cfg.IsTestnet,
			Logger:               appLogger,
			ReconnectDelay:       cfg.ReconnectDelay,
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		})
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info(context.Background(), "Binance client initialized")
		source = client
	}

	if cfg.CacheDBPath == "" {
		return source, func() {}, nil
	}

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.CacheDBPath,
		Logger: appLogger,
	})
	if err != nil {
		return nil, nil, err
	}
	cached, err := sqlite.NewCachedMarketData(source, repo, appLogger, appMetrics, sqlite.CacheConfig{MaxAge: cfg.CacheMaxAge})
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	appLogger.Info(context.Background(), "Candle cache initialized", map[string]interface{}{"path": cfg.CacheDBPath, "maxAge": cfg.CacheMaxAge.String()})

	closeRepo := func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing candle cache")
		}
	}
	return cached, closeRepo, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func countFailures(results []app.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
