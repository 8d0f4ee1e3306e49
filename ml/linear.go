package ml

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression computes coef . x + intercept.
type LinearRegression struct {
	features  []string
	coef      *mat.VecDense
	intercept float64
}

// NewLinearRegression needs one coefficient per feature.
func NewLinearRegression(features []string, coef []float64, intercept float64) (*LinearRegression, error) {
	if len(features) == 0 || len(coef) != len(features) {
		return nil, fmt.Errorf("linear regression: %d coefficients for %d features", len(coef), len(features))
	}
	return &LinearRegression{
		features:  slices.Clone(features),
		coef:      mat.NewVecDense(len(coef), slices.Clone(coef)),
		intercept: intercept,
	}, nil
}

func (m *LinearRegression) FeatureNames() []string {
	return slices.Clone(m.features)
}

func (m *LinearRegression) Predict(features []float64) (float64, error) {
	if len(features) != m.coef.Len() {
		return 0, &SchemaMismatchError{What: "linear regression input", Expected: []int{m.coef.Len()}, Got: []int{len(features)}}
	}
	y := mat.Dot(m.coef, mat.NewVecDense(len(features), features)) + m.intercept
	if err := checkFinite(y); err != nil {
		return 0, &InferenceError{Model: "linear_regression", Err: err}
	}
	return y, nil
}

// LogisticRegression holds one coefficient row for binary problems (the
// decision function of the second class) or one row per class.
type LogisticRegression struct {
	features  []string
	classes   []string
	coef      *mat.Dense
	intercept []float64
}

// NewLogisticRegression takes one coefficient row per class, or a single
// row for a binary model.
func NewLogisticRegression(features, classes []string, coef [][]float64, intercept []float64) (*LogisticRegression, error) {
	if len(features) == 0 {
		return nil, errors.New("logistic regression has no features")
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic regression needs at least 2 classes, got %d", len(classes))
	}
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	if len(coef) != rows || len(intercept) != rows {
		return nil, fmt.Errorf("logistic regression: expected %d coefficient rows, got %d", rows, len(coef))
	}
	data := make([]float64, 0, rows*len(features))
	for i, row := range coef {
		if len(row) != len(features) {
			return nil, fmt.Errorf("logistic regression: row %d has %d coefficients for %d features", i, len(row), len(features))
		}
		data = append(data, row...)
	}
	return &LogisticRegression{
		features:  slices.Clone(features),
		classes:   slices.Clone(classes),
		coef:      mat.NewDense(rows, len(features), data),
		intercept: slices.Clone(intercept),
	}, nil
}

func (m *LogisticRegression) FeatureNames() []string {
	return slices.Clone(m.features)
}

func (m *LogisticRegression) Classes() []string {
	return slices.Clone(m.classes)
}

// PredictProba returns one probability per class.
func (m *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	rows, cols := m.coef.Dims()
	if len(features) != cols {
		return nil, &SchemaMismatchError{What: "logistic regression input", Expected: []int{cols}, Got: []int{len(features)}}
	}
	var z mat.VecDense
	z.MulVec(m.coef, mat.NewVecDense(cols, features))
	scores := make([]float64, rows)
	for i := range scores {
		scores[i] = z.AtVec(i) + m.intercept[i]
	}
	var probs []float64
	if rows == 1 {
		p := sigmoid(scores[0])
		probs = []float64{1 - p, p}
	} else {
		probs = softmax(scores)
	}
	if err := checkFinite(probs...); err != nil {
		return nil, &InferenceError{Model: "logistic_regression", Err: err}
	}
	return probs, nil
}
