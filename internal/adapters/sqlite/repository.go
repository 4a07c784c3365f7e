package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository stores candle series in SQLite, keyed by normalized symbol,
// timeframe and open time.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/candles.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers from concurrent symbol fetches.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		open_time INTEGER NOT NULL, -- Unix milliseconds
		close_time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (symbol, timeframe, open_time)
	);

	CREATE TABLE IF NOT EXISTS fetches (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		fetched_at INTEGER NOT NULL, -- Unix milliseconds
		PRIMARY KEY (symbol, timeframe)
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("%w: failed to execute schema initialization: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveCandles upserts a series and records when it was fetched.
func (r *Repository) SaveCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, candles []*domain.Candle, fetchedAt time.Time) error {
	key := domain.NormalizeSymbol(symbol)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback() // No-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timeframe, open_time) DO UPDATE SET
			close_time = excluded.close_time,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("%w: prepare candle insert: %w", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, key, string(timeframe), c.OpenTime.UnixMilli(), c.CloseTime.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("%w: insert candle %s: %w", ports.ErrQueryFailed, c.OpenTime.Format(time.RFC3339), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fetches (symbol, timeframe, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (symbol, timeframe) DO UPDATE SET fetched_at = excluded.fetched_at`,
		key, string(timeframe), fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: record fetch time: %w", ports.ErrQueryFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit candles: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// LoadCandles returns the most recent limit candles, oldest first.
func (r *Repository) LoadCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume FROM (
			SELECT * FROM candles WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC`,
		domain.NormalizeSymbol(symbol), string(timeframe), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: load candles: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		var openMs, closeMs int64
		c := &domain.Candle{Symbol: symbol, Timeframe: timeframe}
		if err := rows.Scan(&openMs, &closeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("%w: scan candle: %w", ports.ErrQueryFailed, err)
		}
		c.OpenTime = time.UnixMilli(openMs).UTC()
		c.CloseTime = time.UnixMilli(closeMs).UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate candles: %w", ports.ErrQueryFailed, err)
	}
	return candles, nil
}

// LastFetched returns when the series was last saved; ok is false if never.
func (r *Repository) LastFetched(ctx context.Context, symbol string, timeframe domain.Timeframe) (fetchedAt time.Time, ok bool, err error) {
	var ms int64
	err = r.db.QueryRowContext(ctx, `SELECT fetched_at FROM fetches WHERE symbol = ? AND timeframe = ?`,
		domain.NormalizeSymbol(symbol), string(timeframe)).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: load fetch time: %w", ports.ErrQueryFailed, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Prune deletes all but the most recent keep candles of a series.
func (r *Repository) Prune(ctx context.Context, symbol string, timeframe domain.Timeframe, keep int) (int64, error) {
	key := domain.NormalizeSymbol(symbol)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM candles WHERE symbol = ? AND timeframe = ? AND open_time NOT IN (
			SELECT open_time FROM candles WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC LIMIT ?
		)`, key, string(timeframe), key, string(timeframe), keep)
	if err != nil {
		return 0, fmt.Errorf("%w: prune candles: %w", ports.ErrQueryFailed, err)
	}
	return res.RowsAffected()
}
