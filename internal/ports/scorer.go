package ports

import (
	"context"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/strategy/features"
	"cryptoPredictor/internal/strategy/indicators"
)

// ScoreInput is what a scorer sees: the latest indicator and feature rows.
type ScoreInput struct {
	Indicators indicators.Row
	Features   features.Row
}

// Score is a directional call with its confidence in [0,1].
type Score struct {
	Direction  int // 1 = bullish, 0 = no trade
	Confidence float64
	Source     domain.ScoreSource
}

// Scorer turns the latest rows into a Score.
type Scorer interface {
	Score(ctx context.Context, in ScoreInput) Score
	// Name returns the name of the scoring strategy
	Name() string
}
