package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/adapters/binanceclient"
	"cryptoPredictor/internal/adapters/csvfeed"
	"cryptoPredictor/internal/adapters/logger"
	"cryptoPredictor/internal/domain"
)

func main() {
	symbol := flag.String("symbol", "BTC/USDT", "Symbol to download")
	timeframeFlag := flag.String("timeframe", "", "Candle timeframe, overrides TIMEFRAME")
	days := flag.Int("days", 90, "Days of history to download")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	if *timeframeFlag != "" {
		cfg.Timeframe, err = domain.ParseTimeframe(*timeframeFlag)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}
	if *days <= 0 {
		log.Fatalf("FATAL: days must be positive")
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	ctx := context.Background()

	// 3. Initialize Exchange Client (Binance Adapter)
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -*days)

	fmt.Printf("Fetching candles for %s %s from %s to %s...\n", *symbol, cfg.Timeframe, start.Format(time.RFC3339), end.Format(time.RFC3339))
	candles, err := client.FetchRange(ctx, *symbol, cfg.Timeframe, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(ctx, "Fetched candles", map[string]interface{}{"count": len(candles)})

	// Written where the csv source and the backtest runner look for it.
	if err := os.MkdirAll(cfg.CSVDir, 0o755); err != nil {
		log.Fatalf("Error creating %s: %v", cfg.CSVDir, err)
	}
	filename := filepath.Join(cfg.CSVDir, csvfeed.FileName(*symbol, cfg.Timeframe))
	if err := csvfeed.WriteCandles(candles, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}
