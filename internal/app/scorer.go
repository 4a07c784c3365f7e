package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cryptoPredictor/config"
	"cryptoPredictor/internal/model"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/strategy"
)

// NewScorer picks the scoring strategy once at startup. A classifier
// artifact at cfg.ModelPath selects the model-backed scorer; without one the
// rules are used. An artifact that exists but cannot be loaded is an error.
func NewScorer(cfg *config.Config, logger ports.Logger, observer strategy.FallbackObserver) (ports.Scorer, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for scorer")
	}

	opts := strategy.Options{Observer: observer}
	m, err := model.Load(cfg.ModelPath)
	switch {
	case err == nil:
		opts.Classifier = m.Classifier
		opts.Preprocessor = m.Preprocessor()
		logger.Info(context.Background(), "Classifier loaded", map[string]interface{}{"path": cfg.ModelPath})
	case errors.Is(err, os.ErrNotExist):
		logger.Info(context.Background(), "No classifier artifact, scoring with rules", map[string]interface{}{"path": cfg.ModelPath})
	default:
		return nil, err
	}

	return strategy.New(cfg.Scoring, logger, opts)
}
