package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// maxKlinesPerRequest is the largest page the klines endpoint serves.
	maxKlinesPerRequest = 1500
)

// Client implements ports.MarketData over Binance USD-M futures klines.
type Client struct {
	futuresClient        *futures.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey               string
	SecretKey            string
	UseTestnet           bool
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Delay between retries of a failed request (e.g., 1 * time.Second)
	MaxReconnectAttempts int           // Max attempts before giving up
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Klines are a public endpoint, keys are optional.
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty, using public endpoints only")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	// Default reconnect settings if not provided
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Client{
		futuresClient:        client,
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// classifyError maps an error to the standardized ports error it belongs to.
func classifyError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003: // Too many requests
			return ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			return ports.ErrTimeout
		case -1022, -2014, -2015: // Signature invalid, API-key format invalid, key/IP/permission rejected
			return ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			return ports.ErrInvalidRequest
		case -1000, -1001, -1006, -1007: // Unknown, disconnected, unexpected response, timeout waiting for backend
			return ports.ErrExchangeUnavailable
		default:
			return ports.ErrUnknown
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "no such host"):
		return ports.ErrConnectionFailed
	default:
		return ports.ErrUnknown
	}
}

// handleError translates Binance API errors into standardized ports errors.
// Every failure of a market-data call also matches ports.ErrDataUnavailable.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}

	mappedErr := classifyError(err)
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrDataUnavailable, mappedErr, err)
}

// retryable reports whether a classified failure may succeed on retry.
func retryable(err error) bool {
	return errors.Is(err, ports.ErrConnectionFailed) ||
		errors.Is(err, ports.ErrExchangeUnavailable) ||
		errors.Is(err, ports.ErrRateLimited)
}

// withRetry runs fn, retrying transient failures with a linear backoff.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		if err = fn(); err == nil || !retryable(classifyError(err)) {
			return err
		}
		if attempt == c.maxReconnectAttempts {
			break
		}
		delay := c.reconnectDelay * time.Duration(attempt)
		c.logger.Warn(ctx, "Request failed, retrying", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay.String(),
			"error":     err.Error(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// FetchCandles implements ports.MarketData. It returns up to limit of the
// most recent candles, oldest first.
func (c *Client) FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	op := "FetchCandles"
	if limit <= 0 {
		return nil, fmt.Errorf("%s failed: %w: limit must be positive, got %d", op, ports.ErrInvalidRequest, limit)
	}
	if limit > maxKlinesPerRequest {
		c.logger.Warn(ctx, "Requested limit exceeds the klines page size, capping", map[string]interface{}{
			"limit": limit,
			"cap":   maxKlinesPerRequest,
		})
		limit = maxKlinesPerRequest
	}

	var klines []*futures.Kline
	err := c.withRetry(ctx, op, func() error {
		var err error
		klines, err = c.futuresClient.NewKlinesService().
			Symbol(domain.NormalizeSymbol(symbol)).
			Interval(string(timeframe)).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("%s failed: %w: no candles for %s %s", op, ports.ErrDataUnavailable, symbol, timeframe)
	}

	candles, err := translateKlines(klines, symbol, timeframe)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return candles, nil
}

// FetchRange fetches all candles for a symbol/timeframe between start and
// end, paging through the klines endpoint.
func (c *Client) FetchRange(ctx context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) ([]*domain.Candle, error) {
	op := "FetchRange"
	var all []*domain.Candle
	from := start

	for {
		var klines []*futures.Kline
		err := c.withRetry(ctx, op, func() error {
			var err error
			klines, err = c.futuresClient.NewKlinesService().
				Symbol(domain.NormalizeSymbol(symbol)).
				Interval(string(timeframe)).
				StartTime(from.UnixMilli()).
				EndTime(end.UnixMilli()).
				Limit(maxKlinesPerRequest).
				Do(ctx)
			return err
		})
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		page, err := translateKlines(klines, symbol, timeframe)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		all = append(all, page...)

		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxKlinesPerRequest {
			break
		}
	}

	return all, nil
}

func translateKlines(klines []*futures.Kline, symbol string, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	candles := make([]*domain.Candle, 0, len(klines))
	for _, bk := range klines {
		candle, err := translateBinanceKline(bk, symbol, timeframe)
		if err != nil {
			return nil, fmt.Errorf("failed to translate kline: %w", err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func translateBinanceKline(bk *futures.Kline, symbol string, timeframe domain.Timeframe) (*domain.Candle, error) {
	if bk == nil {
		return nil, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Candle{
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: time.UnixMilli(bk.CloseTime).UTC(),
		Symbol:    symbol, // Keep the caller's spelling, futures.Kline carries none
		Timeframe: timeframe,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
