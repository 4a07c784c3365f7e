package ports

// Classifier is a trained binary model consumed at inference time.
// Implementations must be safe for concurrent use if shared across calls.
type Classifier interface {
	// FeatureNames lists the inputs the model was trained on, in order.
	FeatureNames() []string
	// Predict returns the class label (0 or 1).
	Predict(features []float64) (int, error)
	// PredictProba returns the probability of class 1.
	PredictProba(features []float64) (float64, error)
}

// Preprocessor transforms a feature vector before it reaches the classifier.
type Preprocessor interface {
	Transform(features []float64) ([]float64, error)
}
