package ml

import (
	"fmt"
	"math"
)

// Activation is applied to a layer output.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	ReLU6   Activation = "relu6"
	Sigmoid Activation = "sigmoid"
	Softmax Activation = "softmax"
)

func (a Activation) valid() bool {
	switch a {
	case "", Linear, ReLU, ReLU6, Sigmoid, Softmax:
		return true
	}
	return false
}

// apply runs the activation in place. Softmax normalises over groups of
// size channels (the last tensor axis).
func (a Activation) apply(values []float64, channels int) {
	switch a {
	case ReLU:
		for i, v := range values {
			values[i] = math.Max(v, 0)
		}
	case ReLU6:
		for i, v := range values {
			values[i] = math.Min(math.Max(v, 0), 6)
		}
	case Sigmoid:
		for i, v := range values {
			values[i] = sigmoid(v)
		}
	case Softmax:
		for start := 0; start+channels <= len(values); start += channels {
			copy(values[start:start+channels], softmax(values[start:start+channels]))
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		maxScore = math.Max(maxScore, s)
	}
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func checkFinite(values ...float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}
