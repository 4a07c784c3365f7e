package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoPredictor/internal/adapters/logger" // Import the logger package for LogLevel
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/risk"
	"cryptoPredictor/internal/strategy"
	"cryptoPredictor/internal/strategy/indicators"
	"cryptoPredictor/internal/strategy/trend"
)

// Data sources for candles.
const (
	SourceBinance = "binance"
	SourceCSV     = "csv"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	DataSource string // "binance" or "csv"
	CSVDir     string // Directory of <SYMBOL>_<timeframe>.csv files for the csv source

	// Binance API (keys are optional, klines are public)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Signal generation
	Symbols    []string
	Timeframe  domain.Timeframe
	FetchLimit int // Candles requested per signal, e.g., 500
	MinCandles int // Fewer candles than this is an insufficient-data error
	Workers    int // Symbols evaluated concurrently in a batch

	// Pipeline parameters
	Indicators indicators.Config
	Trend      trend.Config
	Scoring    strategy.Config
	Risk       risk.RiskConfig

	// Classifier artifact; a missing file means rule-based scoring
	ModelPath string

	// Candle cache (empty path disables it)
	CacheDBPath string
	CacheMaxAge time.Duration

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat logger.Format

	// Watch mode
	MetricsAddr   string // Empty disables the /metrics server
	WatchInterval time.Duration

	// Connection Settings (Binance client)
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Market data
	cfg.DataSource = strings.ToLower(getEnv("DATA_SOURCE", SourceBinance))
	cfg.CSVDir = getEnv("CSV_DIR", "./data")
	switch cfg.DataSource {
	case SourceBinance, SourceCSV:
	default:
		errs = append(errs, fmt.Sprintf("DATA_SOURCE must be %q or %q, got %q", SourceBinance, SourceCSV, cfg.DataSource))
	}

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false) // Market data only, production is safe

	// Signal generation
	cfg.Symbols = getEnvAsList("SYMBOLS", []string{"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT"})
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.Timeframe, err = domain.ParseTimeframe(getEnv("TIMEFRAME", string(domain.Timeframe1h)))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEFRAME: %v", err))
	}

	cfg.FetchLimit, err = getEnvAsIntRequired("FETCH_LIMIT", 500)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FETCH_LIMIT: %v", err))
	} else if cfg.FetchLimit <= 0 {
		errs = append(errs, "FETCH_LIMIT must be positive")
	}

	cfg.Workers = getEnvAsInt("WORKERS", 4)
	if cfg.Workers <= 0 {
		errs = append(errs, "WORKERS must be positive")
	}

	// Indicator windows (using defaults if not set)
	ind := indicators.DefaultConfig()
	ind.RSIPeriod = getEnvAsInt("RSI_PERIOD", ind.RSIPeriod)
	ind.EMAFastSpan = getEnvAsInt("EMA_FAST", ind.EMAFastSpan)
	ind.EMAMidSpan = getEnvAsInt("EMA_MID", ind.EMAMidSpan)
	ind.EMASlowSpan = getEnvAsInt("EMA_SLOW", ind.EMASlowSpan)
	ind.MACDFastSpan = getEnvAsInt("MACD_FAST", ind.MACDFastSpan)
	ind.MACDSlowSpan = getEnvAsInt("MACD_SLOW", ind.MACDSlowSpan)
	ind.MACDSignalSpan = getEnvAsInt("MACD_SIGNAL", ind.MACDSignalSpan)
	ind.BBPeriod = getEnvAsInt("BB_PERIOD", ind.BBPeriod)
	ind.BBStdDev = getEnvAsFloat("BB_STDDEV", ind.BBStdDev)
	ind.ATRPeriod = getEnvAsInt("ATR_PERIOD", ind.ATRPeriod)
	ind.VolumePeriod = getEnvAsInt("VOLUME_SMA_PERIOD", ind.VolumePeriod)
	ind.VolatilityPeriod = getEnvAsInt("VOLATILITY_PERIOD", ind.VolatilityPeriod)
	if err := ind.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid indicator settings: %v", err))
	}
	cfg.Indicators = ind

	cfg.MinCandles, err = getEnvAsIntRequired("MIN_CANDLES", ind.RequiredDataPoints())
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CANDLES: %v", err))
	} else if cfg.MinCandles <= 1 {
		errs = append(errs, "MIN_CANDLES must be greater than 1")
	} else if cfg.MinCandles > cfg.FetchLimit {
		errs = append(errs, "MIN_CANDLES cannot exceed FETCH_LIMIT")
	}

	// Trend
	cfg.Trend = trend.DefaultConfig()
	cfg.Trend.MinRows = getEnvAsInt("TREND_MIN_ROWS", cfg.Trend.MinRows)
	cfg.Trend.Band = getEnvAsFloat("TREND_BAND", cfg.Trend.Band)
	if cfg.Trend.MinRows <= 0 || cfg.Trend.Band < 0 || cfg.Trend.Band >= 1 {
		errs = append(errs, "TREND_MIN_ROWS must be positive and TREND_BAND within [0, 1)")
	}

	// Scoring
	cfg.Scoring = strategy.DefaultConfig()
	cfg.Scoring.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", cfg.Scoring.RSIOversold)
	cfg.Scoring.RSINeutral = getEnvAsFloat("RSI_NEUTRAL", cfg.Scoring.RSINeutral)
	cfg.Scoring.VolumeSurge = getEnvAsFloat("VOLUME_SURGE", cfg.Scoring.VolumeSurge)
	cfg.Scoring.BuyThreshold = getEnvAsFloat("RULE_BUY_THRESHOLD", cfg.Scoring.BuyThreshold)
	if cfg.Scoring.RSIOversold <= 0 || cfg.Scoring.RSINeutral <= cfg.Scoring.RSIOversold || cfg.Scoring.RSINeutral > 100 {
		errs = append(errs, "invalid RSI thresholds (need 0 < RSI_OVERSOLD < RSI_NEUTRAL <= 100)")
	}
	if cfg.Scoring.BuyThreshold < 0 || cfg.Scoring.BuyThreshold > 1 {
		errs = append(errs, "RULE_BUY_THRESHOLD must be between 0.0 and 1.0")
	}

	// Risk
	cfg.Risk = risk.DefaultRiskConfig()
	cfg.Risk.StopLossATRMultiplier, err = getEnvAsFloatRequired("STOP_ATR_MULTIPLIER", cfg.Risk.StopLossATRMultiplier)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_ATR_MULTIPLIER: %v", err))
	} else if cfg.Risk.StopLossATRMultiplier <= 0 {
		errs = append(errs, "STOP_ATR_MULTIPLIER must be positive")
	}

	cfg.Risk.TakeProfitATRMultiplier, err = getEnvAsFloatRequired("TAKE_PROFIT_ATR_MULTIPLIER", cfg.Risk.TakeProfitATRMultiplier)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_ATR_MULTIPLIER: %v", err))
	} else if cfg.Risk.TakeProfitATRMultiplier <= 0 {
		errs = append(errs, "TAKE_PROFIT_ATR_MULTIPLIER must be positive")
	}

	cfg.Risk.MinConfidence, err = getEnvAsFloatRequired("MIN_CONFIDENCE", cfg.Risk.MinConfidence)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CONFIDENCE: %v", err))
	} else if cfg.Risk.MinConfidence < 0 || cfg.Risk.MinConfidence > 1 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0.0 and 1.0")
	}

	cfg.Risk.MinRiskReward, err = getEnvAsFloatRequired("MIN_RISK_REWARD", cfg.Risk.MinRiskReward)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_RISK_REWARD: %v", err))
	} else if cfg.Risk.MinRiskReward < 0 {
		errs = append(errs, "MIN_RISK_REWARD cannot be negative")
	}

	// Model and cache
	cfg.ModelPath = getEnv("MODEL_PATH", "./model.json")
	cfg.CacheDBPath = getEnv("CACHE_DB_PATH", "") // Disabled by default
	cacheMaxAgeSeconds := getEnvAsInt("CACHE_MAX_AGE_SECONDS", 0)
	if cacheMaxAgeSeconds < 0 {
		errs = append(errs, "CACHE_MAX_AGE_SECONDS cannot be negative")
	}
	cfg.CacheMaxAge = time.Duration(cacheMaxAgeSeconds) * time.Second

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = logger.Format(strings.ToLower(getEnv("LOG_FORMAT", string(logger.FormatConsole))))

	// Watch mode
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")
	watchSeconds := getEnvAsInt("WATCH_INTERVAL_SECONDS", 300)
	if watchSeconds <= 0 {
		errs = append(errs, "WATCH_INTERVAL_SECONDS must be positive")
	}
	cfg.WatchInterval = time.Duration(watchSeconds) * time.Second

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 1)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 3)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
