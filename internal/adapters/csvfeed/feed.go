// Package csvfeed serves candles from CSV files, one file per symbol and
// timeframe, for offline runs.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
)

var header = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// Feed implements ports.MarketData over a directory of CSV files.
type Feed struct {
	dir    string
	logger ports.Logger
}

// New creates a feed reading from dir.
func New(dir string, logger ports.Logger) (*Feed, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for CSV feed")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: CSV directory %s: %w", ports.ErrConfigurationError, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ports.ErrConfigurationError, dir)
	}
	return &Feed{dir: dir, logger: logger}, nil
}

// FileName is the file a feed reads for symbol and timeframe,
// e.g. BTCUSDT_1h.csv.
func FileName(symbol string, timeframe domain.Timeframe) string {
	return fmt.Sprintf("%s_%s.csv", domain.NormalizeSymbol(symbol), timeframe)
}

// FetchCandles implements ports.MarketData, returning the last limit rows.
func (f *Feed) FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("FetchCandles failed: %w: limit must be positive, got %d", ports.ErrInvalidRequest, limit)
	}
	path := filepath.Join(f.dir, FileName(symbol, timeframe))
	candles, err := ReadCandles(path)
	if err != nil {
		f.logger.Error(ctx, err, "Failed to read candle file", map[string]interface{}{"path": path})
		return nil, fmt.Errorf("FetchCandles failed: %w: %w", ports.ErrDataUnavailable, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("FetchCandles failed: %w: %s has no rows", ports.ErrDataUnavailable, path)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	for _, c := range candles {
		c.Symbol = symbol
		c.Timeframe = timeframe
	}
	f.logger.Debug(ctx, "Read candles from CSV", map[string]interface{}{"path": path, "count": len(candles)})
	return candles, nil
}

// ReadCandles parses a file written by WriteCandles. Timestamps may be
// RFC3339 or Unix milliseconds.
func ReadCandles(filename string) ([]*domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(header)

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if first[0] != header[0] {
		return nil, fmt.Errorf("unexpected header %v", first)
	}

	var candles []*domain.Candle
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseRecord(record []string) (*domain.Candle, error) {
	openTime, err := parseTime(record[0])
	if err != nil {
		return nil, fmt.Errorf("parsing open_time: %w", err)
	}
	closeTime, err := parseTime(record[1])
	if err != nil {
		return nil, fmt.Errorf("parsing close_time: %w", err)
	}
	values := make([]float64, 5)
	for i := range values {
		values[i], err = strconv.ParseFloat(record[4+i], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s '%s': %w", header[4+i], record[4+i], err)
		}
	}
	return &domain.Candle{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Symbol:    record[2],
		Timeframe: domain.Timeframe(record[3]),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

// WriteCandles writes candles to filename, creating parent directories.
func WriteCandles(candles []*domain.Candle, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, c := range candles {
		err := writer.Write([]string{
			c.OpenTime.UTC().Format(time.RFC3339),
			c.CloseTime.UTC().Format(time.RFC3339),
			c.Symbol,
			string(c.Timeframe),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
