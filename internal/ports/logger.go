package ports

import "context"

// Logger is the structured logger every component receives at construction.
// Fields are flat key/value maps; the predictor uses "symbol", "timeframe"
// and "path" consistently so log lines for one series can be correlated.
// The zap-backed implementation is in internal/adapters/logger.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error records err under the "error" key next to msg.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
