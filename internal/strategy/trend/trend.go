package trend

import (
	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/strategy/indicators"
)

// Config holds parameters for trend classification.
type Config struct {
	MinRows int     // Rows needed before any label other than unknown, e.g., 50
	Band    float64 // Hysteresis around the slow EMA, e.g., 0.01 for 1%
}

// DefaultConfig returns the standard classifier settings.
func DefaultConfig() Config {
	return Config{MinRows: 50, Band: 0.01}
}

// Classifier labels a series from the relation of its mid and slow EMAs.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a trend classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify compares the latest mid EMA (21) against the slow EMA (50).
// Inside the band around the slow EMA the series is sideways, which keeps
// the label from flapping when the two averages are nearly equal.
func (c *Classifier) Classify(rows []indicators.Row) domain.Trend {
	if len(rows) == 0 || len(rows) < c.cfg.MinRows {
		return domain.TrendUnknown
	}

	last := rows[len(rows)-1]
	if !last.EMAMid.Valid || !last.EMASlow.Valid {
		return domain.TrendUnknown
	}
	short, long := last.EMAMid.Float64, last.EMASlow.Float64

	switch {
	case short > long*(1+c.cfg.Band):
		return domain.TrendUp
	case short < long*(1-c.cfg.Band):
		return domain.TrendDown
	default:
		return domain.TrendSideways
	}
}
