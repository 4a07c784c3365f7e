package strategy

import (
	"context"
	"fmt"
	"math"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
	"cryptoPredictor/internal/strategy/features"
	"cryptoPredictor/internal/strategy/indicators"
)

// Rule weights. Their sum is the default MaxScore.
const (
	pointsRSIWeak     = 1.0
	pointsRSIOversold = 2.0
	pointsEMAStack    = 2.0
	pointsMACDCross   = 1.0
	pointsBelowBand   = 1.5
	pointsVolumeSurge = 0.5
	defaultMaxScore   = pointsRSIOversold + pointsEMAStack + pointsMACDCross + pointsBelowBand + pointsVolumeSurge
)

// Config holds parameters for the rule-based scorer.
type Config struct {
	RSIOversold   float64 // e.g., 30.0
	RSINeutral    float64 // Upper bound of the weak-momentum band, e.g., 50.0
	VolumeSurge   float64 // Volume ratio counted as elevated, e.g., 1.2
	MaxScore      float64 // Normalizer for the point total, e.g., 7
	MaxConfidence float64 // Cap below certainty, e.g., 0.95
	BuyThreshold  float64 // Confidence at which the direction turns bullish, e.g., 0.60
}

// DefaultConfig returns the standard rule weights and thresholds.
func DefaultConfig() Config {
	return Config{
		RSIOversold:   30.0,
		RSINeutral:    50.0,
		VolumeSurge:   1.2,
		MaxScore:      defaultMaxScore,
		MaxConfidence: 0.95,
		BuyThreshold:  0.60,
	}
}

func (c Config) validate() error {
	if c.RSIOversold <= 0 || c.RSINeutral <= c.RSIOversold || c.RSINeutral > 100 {
		return fmt.Errorf("invalid RSI thresholds (need 0 < oversold < neutral <= 100)")
	}
	if c.MaxScore <= 0 {
		return fmt.Errorf("max score must be positive")
	}
	if c.MaxConfidence <= 0 || c.MaxConfidence > 1 || c.BuyThreshold < 0 || c.BuyThreshold > 1 {
		return fmt.Errorf("confidence cap and buy threshold must be within [0, 1]")
	}
	return nil
}

// FallbackObserver is notified whenever the model path gives way to rules.
type FallbackObserver interface {
	ObserveScorerFallback(reason string)
}

// Options select the scoring strategy. A nil Classifier selects RuleBased.
type Options struct {
	Classifier   ports.Classifier
	Preprocessor ports.Preprocessor // Optional, applied before the classifier
	Observer     FallbackObserver   // Optional
}

// New creates the scorer once at construction: model-backed when a
// classifier is supplied, rule-based otherwise.
func New(cfg Config, logger ports.Logger, opts Options) (ports.Scorer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for scorer")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rules := &RuleBased{cfg: cfg}
	if opts.Classifier == nil {
		logger.Info(context.Background(), "Using rule-based scorer")
		return rules, nil
	}
	logger.Info(context.Background(), "Using model-backed scorer",
		map[string]interface{}{"features": len(opts.Classifier.FeatureNames()), "preprocessor": opts.Preprocessor != nil})
	return &ModelBacked{
		classifier:   opts.Classifier,
		preprocessor: opts.Preprocessor,
		rules:        rules,
		logger:       logger,
		observer:     opts.Observer,
	}, nil
}

// RuleBased scores the latest row with an additive point system.
type RuleBased struct {
	cfg Config
}

// NewRuleBased creates a rule-based scorer without validation.
func NewRuleBased(cfg Config) *RuleBased {
	return &RuleBased{cfg: cfg}
}

// Name returns the name of the strategy
func (r *RuleBased) Name() string {
	return "rule-based"
}

// Score implements ports.Scorer. It is pure: equal inputs give equal scores.
func (r *RuleBased) Score(_ context.Context, in ports.ScoreInput) ports.Score {
	confidence := math.Min(r.points(in.Indicators)/r.cfg.MaxScore, r.cfg.MaxConfidence)
	direction := 0
	if confidence >= r.cfg.BuyThreshold {
		direction = 1
	}
	return ports.Score{Direction: direction, Confidence: confidence, Source: domain.SourceRules}
}

// points sums the weights of the conditions that hold. Undefined inputs
// never satisfy a condition.
func (r *RuleBased) points(row indicators.Row) float64 {
	score := 0.0
	closePrice := row.Close()

	// Momentum
	if domain.Greater(row.RSI, domain.Float(r.cfg.RSIOversold)) && domain.Less(row.RSI, domain.Float(r.cfg.RSINeutral)) {
		score += pointsRSIWeak
	} else if domain.Less(row.RSI, domain.Float(r.cfg.RSIOversold)) {
		score += pointsRSIOversold
	}

	// Trend stacking: close > EMA21 > EMA50
	if domain.Greater(closePrice, row.EMAMid) && domain.Greater(row.EMAMid, row.EMASlow) {
		score += pointsEMAStack
	}

	if domain.Greater(row.MACD, row.MACDSignal) {
		score += pointsMACDCross
	}

	if domain.Less(closePrice, row.BBLower) {
		score += pointsBelowBand
	}

	if domain.Greater(row.VolumeRatio, domain.Float(r.cfg.VolumeSurge)) {
		score += pointsVolumeSurge
	}

	return score
}

// ModelBacked scores with a trained classifier and falls back to the rules
// on any failure.
type ModelBacked struct {
	classifier   ports.Classifier
	preprocessor ports.Preprocessor
	rules        *RuleBased
	logger       ports.Logger
	observer     FallbackObserver
}

// Name returns the name of the strategy
func (m *ModelBacked) Name() string {
	return "model-backed"
}

// Score implements ports.Scorer.
func (m *ModelBacked) Score(ctx context.Context, in ports.ScoreInput) (score ports.Score) {
	defer func() {
		if rec := recover(); rec != nil {
			score = m.fallback(ctx, in, "panic", fmt.Errorf("%w: classifier panicked: %v", ports.ErrClassifierFailed, rec))
		}
	}()

	x, err := features.Vector(in.Indicators, in.Features, m.classifier.FeatureNames())
	if err != nil {
		return m.fallback(ctx, in, "features", err)
	}

	if m.preprocessor != nil {
		x, err = m.preprocessor.Transform(x)
		if err != nil {
			return m.fallback(ctx, in, "preprocess", fmt.Errorf("%w: %w", ports.ErrClassifierFailed, err))
		}
	}

	label, err := m.classifier.Predict(x)
	if err != nil {
		return m.fallback(ctx, in, "predict", fmt.Errorf("%w: %w", ports.ErrClassifierFailed, err))
	}
	proba, err := m.classifier.PredictProba(x)
	if err != nil {
		return m.fallback(ctx, in, "predict_proba", fmt.Errorf("%w: %w", ports.ErrClassifierFailed, err))
	}
	if (label != 0 && label != 1) || math.IsNaN(proba) || proba < 0 || proba > 1 {
		return m.fallback(ctx, in, "invalid_output",
			fmt.Errorf("%w: label %d, probability %v", ports.ErrClassifierFailed, label, proba))
	}

	return ports.Score{Direction: label, Confidence: proba, Source: domain.SourceModel}
}

func (m *ModelBacked) fallback(ctx context.Context, in ports.ScoreInput, reason string, err error) ports.Score {
	m.logger.Warn(ctx, "Classifier path failed, falling back to rules",
		map[string]interface{}{"reason": reason, "error": err.Error()})
	if m.observer != nil {
		m.observer.ObserveScorerFallback(reason)
	}
	return m.rules.Score(ctx, in)
}
