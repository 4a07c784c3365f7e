// Package model loads a trained classifier artifact for the model-backed
// scorer. The artifact is JSON: a logistic regression over named features
// with an optional standard scaler applied first.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"cryptoPredictor/internal/ports"
)

const defaultThreshold = 0.5

// Artifact is the on-disk layout of a trained model.
type Artifact struct {
	FeatureNames []string        `json:"feature_names"`
	Coefficients []float64       `json:"coefficients"`
	Intercept    float64         `json:"intercept"`
	Threshold    *float64        `json:"threshold,omitempty"`
	Scaler       *ScalerArtifact `json:"scaler,omitempty"`
}

// ScalerArtifact holds per-feature standardization parameters.
type ScalerArtifact struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Model bundles the classifier with its optional preprocessor.
type Model struct {
	Classifier *LogisticRegression
	Scaler     *StandardScaler // Nil when the artifact has no scaler
}

// Preprocessor returns the scaler as a ports.Preprocessor, or a nil
// interface when there is none.
func (m *Model) Preprocessor() ports.Preprocessor {
	if m.Scaler == nil {
		return nil
	}
	return m.Scaler
}

// Load reads and validates an artifact. A missing file yields an error
// matching os.ErrNotExist so callers can fall back to rule scoring; any
// other problem is a configuration error.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model artifact %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("%w: reading model artifact %s: %w", ports.ErrConfigurationError, path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decoding model artifact %s: %w", ports.ErrConfigurationError, path, err)
	}
	m, err := FromArtifact(a)
	if err != nil {
		return nil, fmt.Errorf("%w: model artifact %s: %w", ports.ErrConfigurationError, path, err)
	}
	return m, nil
}

// FromArtifact validates an artifact and builds the model.
func FromArtifact(a Artifact) (*Model, error) {
	threshold := defaultThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	clf, err := NewLogisticRegression(a.FeatureNames, a.Coefficients, a.Intercept, threshold)
	if err != nil {
		return nil, err
	}
	m := &Model{Classifier: clf}
	if a.Scaler != nil {
		if len(a.Scaler.Mean) != len(a.FeatureNames) {
			return nil, fmt.Errorf("scaler has %d means for %d features", len(a.Scaler.Mean), len(a.FeatureNames))
		}
		m.Scaler, err = NewStandardScaler(a.Scaler.Mean, a.Scaler.Scale)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LogisticRegression is a binary linear classifier.
type LogisticRegression struct {
	names        []string
	coefficients []float64
	intercept    float64
	threshold    float64
}

// NewLogisticRegression validates the parameters of a fitted model.
func NewLogisticRegression(names []string, coefficients []float64, intercept, threshold float64) (*LogisticRegression, error) {
	if len(names) == 0 {
		return nil, errors.New("model has no features")
	}
	if len(coefficients) != len(names) {
		return nil, fmt.Errorf("model has %d coefficients for %d features", len(coefficients), len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			return nil, fmt.Errorf("feature name %q is empty or repeated", name)
		}
		seen[name] = true
	}
	for i, c := range coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d for %s is not finite", i, names[i])
		}
	}
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, errors.New("intercept is not finite")
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v must be within (0, 1)", threshold)
	}

	return &LogisticRegression{
		names:        append([]string(nil), names...),
		coefficients: append([]float64(nil), coefficients...),
		intercept:    intercept,
		threshold:    threshold,
	}, nil
}

// FeatureNames returns the ordered inputs the model was trained on.
func (l *LogisticRegression) FeatureNames() []string {
	return append([]string(nil), l.names...)
}

// PredictProba returns the probability of the bullish class.
func (l *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(x) != len(l.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(l.coefficients), len(x))
	}
	z := l.intercept
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %s is not finite", l.names[i])
		}
		z += l.coefficients[i] * v
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Predict returns 1 when the bullish probability reaches the threshold.
func (l *LogisticRegression) Predict(x []float64) (int, error) {
	p, err := l.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= l.threshold {
		return 1, nil
	}
	return 0, nil
}

// StandardScaler centers and scales each feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// NewStandardScaler rejects mismatched lengths and zero scales.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler has %d means and %d scales", len(mean), len(scale))
	}
	for i, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("scale %d is %v", i, s)
		}
	}
	return &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
	}, nil
}

// Transform returns (x - mean) / scale as a new slice.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out, nil
}
