package ml

// Regressor predicts a single scalar from one feature vector.
type Regressor interface {
	Predict(features []float64) (float64, error)
	FeatureNames() []string
}

// Classifier returns one probability per class, in the order of Classes.
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
	Classes() []string
	FeatureNames() []string
}

// TensorClassifier is a Classifier over image tensors.
type TensorClassifier interface {
	PredictProba(input *Tensor) ([]float64, error)
	Classes() []string
	InputShape() []int
}

// ArgMax returns the index and value of the largest probability.
func ArgMax(probs []float64) (int, float64) {
	best := -1
	bestValue := 0.0
	for i, p := range probs {
		if best == -1 || p > bestValue {
			best = i
			bestValue = p
		}
	}
	return best, bestValue
}
