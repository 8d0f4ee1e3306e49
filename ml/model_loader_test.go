package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegressorLinear(t *testing.T) {
	path := writeFile(t, "model.json", `{
		"type": "linear_regression",
		"features": ["a", "b"],
		"coef": [1, 2],
		"intercept": 3
	}`)
	model, err := LoadRegressor(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, model.FeatureNames())

	y, err := model.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 6.0, y)
}

func TestLoadClassifierLogistic(t *testing.T) {
	path := writeFile(t, "model.json", `{
		"type": "logistic_regression",
		"features": ["a"],
		"classes": ["no", "yes"],
		"coef": [[2]],
		"intercept": [0]
	}`)
	model, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"no", "yes"}, model.Classes())

	probs, err := model.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, probs)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"corrupt json":      `{"type": "linear_regression",`,
		"unknown type":      `{"type": "svm", "features": ["a"]}`,
		"missing coef":      `{"type": "linear_regression", "features": ["a"], "intercept": 0}`,
		"coef length":       `{"type": "linear_regression", "features": ["a", "b"], "coef": [1], "intercept": 0}`,
		"classifier as reg": `{"type": "logistic_regression", "features": ["a"], "classes": ["x", "y"], "coef": [[1]], "intercept": [0]}`,
		"bad tree":          `{"type": "tree_ensemble", "features": ["a"], "objective": "regression", "trees": [[{"feature_idx": 0, "left_child": 0, "right_child": 0, "is_leaf": false}]]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "model.json", content)
			_, err := LoadRegressor(path)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, path, loadErr.Path)
		})
	}

	_, err := LoadRegressor(filepath.Join(t.TempDir(), "absent.json"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTreeEnsembleSaveLoad(t *testing.T) {
	tree := &DecisionTree{}
	require.NoError(t, tree.Train([][]float64{{0}, {0}, {1}, {1}}, []float64{1, 1, 3, 3}, 2, 1))
	ensemble, err := NewTreeEnsemble(EnsembleConfig{
		Features:  []string{"x"},
		Objective: RegressionObjective,
		BaseScore: 0.5,
		Trees:     []*DecisionTree{tree},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, ensemble.Save(path))

	loaded, err := LoadRegressor(path)
	require.NoError(t, err)
	for _, x := range []float64{0, 1} {
		want, _ := ensemble.Predict([]float64{x})
		got, err := loaded.Predict([]float64{x})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodersAndScalerSaveLoad(t *testing.T) {
	dir := t.TempDir()
	fuel, err := NewLabelEncoder("fuel", []string{"Diesel", "Petrol"})
	require.NoError(t, err)
	gear, err := NewLabelEncoder("gear", []string{"Auto", "Manual"})
	require.NoError(t, err)
	require.NoError(t, SaveEncoders(filepath.Join(dir, "encoders.json"), []*LabelEncoder{fuel, gear}))

	encoders, err := LoadEncoders(filepath.Join(dir, "encoders.json"))
	require.NoError(t, err)
	assert.Len(t, encoders, 2)
	assert.Equal(t, "gear", encoders["gear"].Column())
	assert.Equal(t, "fuel", encoders["fuel"].Column())
	assert.Equal(t, []string{"Diesel", "Petrol"}, encoders["fuel"].Classes())

	scaler, err := FitStandardScaler([]string{"a"}, [][]float64{{1}, {3}})
	require.NoError(t, err)
	require.NoError(t, scaler.Save(filepath.Join(dir, "scaler.json")))
	loaded, err := LoadScaler(filepath.Join(dir, "scaler.json"))
	require.NoError(t, err)
	out, err := loaded.Transform([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, out)
}

func TestLoadScalerRejectsInvertedRange(t *testing.T) {
	path := writeFile(t, "scaler.json", `{"kind": "minmax", "columns": ["x", "y"], "min": [0, 20], "max": [1, 10]}`)
	_, err := LoadScaler(path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Path)
	assert.Contains(t, err.Error(), "below min")

	path = writeFile(t, "scaler.json", `{"kind": "standard", "columns": ["x"], "mean": [0], "scale": [-2]}`)
	_, err = LoadScaler(path)
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "negative scale")
}

func TestLoadNetworkWithLabels(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, "model.json", `{
		"type": "neural_network",
		"input_shape": [2, 2, 1],
		"classes": ["c0", "c1"],
		"layers": [
			{"type": "flatten"},
			{"type": "dense", "weights": [[1, 0], [0, 1], [1, 0], [0, 1]], "bias": [0, 0], "activation": "softmax"}
		]
	}`)
	labels := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(labels, []byte(`{"classes": ["moon", "blue"]}`), 0o644))

	enc, err := LoadLabelEncoder(labels, "species")
	require.NoError(t, err)
	network, err := LoadNetwork(model, enc)
	require.NoError(t, err)
	assert.Equal(t, []string{"moon", "blue"}, network.Classes())
	assert.Equal(t, []int{2, 2, 1}, network.InputShape())

	three, err := NewLabelEncoder("species", []string{"a", "b", "c"})
	require.NoError(t, err)
	_, err = LoadNetwork(model, three)
	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}
