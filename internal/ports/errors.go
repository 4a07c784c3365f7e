package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market data errors
	ErrDataUnavailable      = errors.New("market data unavailable")
	ErrInsufficientData     = errors.New("not enough candles to generate a signal")
	ErrInvalidCandles       = errors.New("candle series violates its contract")
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")

	// Scoring errors
	ErrClassifierFailed = errors.New("classifier inference failed")

	// Risk errors
	ErrNoVolatility = errors.New("volatility undefined or zero, trade levels unavailable")

	// Cache errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
