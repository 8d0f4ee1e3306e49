// Package apptest writes small, deterministic artifact sets for every demo
// app so that packages can exercise the full pipeline in tests.
package apptest

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// JellyfishClasses is the label set written to jellyfish/labels.json.
var JellyfishClasses = []string{
	"Moon_jellyfish", "barrel_jellyfish", "blue_jellyfish",
	"compass_jellyfish", "lions_mane_jellyfish", "mauve_stinger_jellyfish",
}

// CarModels are the classes of the car model encoder, sorted the way a fitted
// encoder stores them. They cover every option of the car form.
var CarModels = []string{
	"B-MAX", "C-MAX", "EcoSport", "Edge", "Escort", "Fiesta", "Focus",
	"Fusion", "Galaxy", "Grand C-MAX", "Grand Tourneo Connect", "KA", "Ka+",
	"Kuga", "Mondeo", "Mustang", "Puma", "Ranger", "S-MAX", "Streetka",
	"Tourneo Connect", "Tourneo Custom", "Transit Tourneo",
}

var houseFeatures = []string{
	"bedrooms", "bathrooms", "sqft_living", "floors", "waterfront", "view",
	"condition", "grade", "sqft_above", "sqft_basement", "yr_built",
	"yr_renovated", "year", "month", "day",
}

var carFeatures = []string{"model", "transmission", "mileage", "fuelType", "tax", "mpg", "engineSize", "car_age"}

var loanFeatures = []string{
	"person_age", "person_gender", "person_education", "person_income",
	"person_emp_exp", "person_home_ownership", "loan_amnt", "loan_intent",
	"loan_int_rate", "loan_percent_income", "cb_person_cred_hist_length",
	"credit_score", "previous_loan_defaults_on_file",
}

var fashionClasses = []string{
	"T-shirt/top", "Trouser", "Pullover", "Dress", "Coat",
	"Sandal", "Shirt", "Sneaker", "Bag", "Ankle boot",
}

// WriteArtifacts writes the artifacts of all five apps under root/<app>.
func WriteArtifacts(tb testing.TB, root string) {
	tb.Helper()
	WriteHouse(tb, filepath.Join(root, "house"))
	WriteCar(tb, filepath.Join(root, "car"))
	WriteLoan(tb, filepath.Join(root, "loan"))
	WriteFashion(tb, filepath.Join(root, "fashion"))
	WriteJellyfish(tb, filepath.Join(root, "jellyfish"))
}

// WriteHouse writes a two-tree boosted model on log price. For the default
// form values it predicts exp(12.6).
func WriteHouse(tb testing.TB, dir string) {
	tb.Helper()
	mean := make([]float64, len(houseFeatures))
	scale := make([]float64, len(houseFeatures))
	for i := range scale {
		scale[i] = 1
	}
	mean[2], scale[2] = 2000, 500 // sqft_living

	WriteJSON(tb, filepath.Join(dir, "scaler.json"), map[string]any{
		"kind": "standard", "columns": houseFeatures, "mean": mean, "scale": scale,
	})
	WriteJSON(tb, filepath.Join(dir, "model.json"), map[string]any{
		"type":        "tree_ensemble",
		"features":    houseFeatures,
		"objective":   "regression",
		"aggregation": "sum",
		"base_score":  12.0,
		"trees": [][]map[string]any{
			split(2, 0, 0.5, 1.0), // sqft_living above the mean
			split(7, 7, 0.1, 0.3), // grade above 7
		},
	})
}

func split(feature int, threshold, left, right float64) []map[string]any {
	return []map[string]any{
		{"feature_idx": feature, "threshold": threshold, "left_child": 1, "right_child": 2, "is_leaf": false},
		{"value": left, "is_leaf": true},
		{"value": right, "is_leaf": true},
	}
}

// WriteCar writes a linear price model over encoded and scaled columns.
func WriteCar(tb testing.TB, dir string) {
	tb.Helper()
	WriteJSON(tb, filepath.Join(dir, "encoders.json"), map[string]any{
		"model":        map[string]any{"classes": CarModels},
		"transmission": map[string]any{"classes": []string{"Automatic", "Manual", "Semi-Auto"}},
		"fuelType":     map[string]any{"classes": []string{"Diesel", "Electric", "Hybrid", "Petrol"}},
	})
	WriteJSON(tb, filepath.Join(dir, "scaler.json"), map[string]any{
		"kind":    "standard",
		"columns": []string{"mileage", "tax", "mpg", "engineSize", "car_age"},
		"mean":    []float64{20000, 150, 55, 1.2, 5},
		"scale":   []float64{15000, 60, 10, 0.4, 3},
	})
	WriteJSON(tb, filepath.Join(dir, "model.json"), map[string]any{
		"type":      "linear_regression",
		"features":  carFeatures,
		"coef":      []float64{100, 500, -1500, 200, 100, -300, 800, -1200},
		"intercept": 11700.0,
	})
}

// WriteLoan writes a logistic model whose decision is dominated by previous
// defaults and credit score.
func WriteLoan(tb testing.TB, dir string) {
	tb.Helper()
	WriteJSON(tb, filepath.Join(dir, "encoders.json"), map[string]any{
		"person_gender":                  map[string]any{"classes": []string{"female", "male"}},
		"person_education":               map[string]any{"classes": []string{"bachelor", "doctorate", "high_school", "master"}},
		"person_home_ownership":          map[string]any{"classes": []string{"MORTGAGE", "OTHER", "OWN", "RENT"}},
		"loan_intent":                    map[string]any{"classes": []string{"DEBTCONSOLIDATION", "EDUCATION", "HOMEIMPROVEMENT", "MEDICAL", "PERSONAL", "VENTURE"}},
		"previous_loan_defaults_on_file": map[string]any{"classes": []string{"No", "Yes"}},
	})
	WriteJSON(tb, filepath.Join(dir, "scaler.json"), map[string]any{
		"kind": "standard",
		"columns": []string{
			"person_age", "person_income", "person_emp_exp", "loan_amnt",
			"loan_int_rate", "loan_percent_income", "cb_person_cred_hist_length", "credit_score",
		},
		"mean":  []float64{30, 60000, 5, 10000, 11, 0.15, 6, 630},
		"scale": []float64{6, 30000, 5, 6000, 3, 0.09, 4, 50},
	})
	coef := make([]float64, len(loanFeatures))
	coef[9] = -1    // loan_percent_income
	coef[11] = 1.5  // credit_score
	coef[12] = -4.0 // previous_loan_defaults_on_file == Yes
	WriteJSON(tb, filepath.Join(dir, "model.json"), map[string]any{
		"type":      "logistic_regression",
		"features":  loanFeatures,
		"classes":   []string{"rejected", "approved"},
		"coef":      [][]float64{coef},
		"intercept": []float64{1},
	})
}

// WriteFashion writes a 784-16-10 dense network with fixed weights.
func WriteFashion(tb testing.TB, dir string) {
	tb.Helper()
	WriteJSON(tb, filepath.Join(dir, "model.json"), map[string]any{
		"type":        "neural_network",
		"input_shape": []int{784},
		"classes":     fashionClasses,
		"layers": []map[string]any{
			{"type": "dense", "weights": weights(784, 16, 1), "bias": make([]float64, 16), "activation": "relu"},
			{"type": "dense", "weights": weights(16, 10, 2), "bias": make([]float64, 10), "activation": "softmax"},
		},
	})
}

// WriteJellyfish writes a small convolutional network on 224x224 RGB input
// plus labels.json.
func WriteJellyfish(tb testing.TB, dir string) {
	tb.Helper()
	kernel := make([][][][]float64, 3)
	for y := range kernel {
		kernel[y] = make([][][]float64, 3)
		for x := range kernel[y] {
			kernel[y][x] = weights(3, 4, y*3+x)
		}
	}
	WriteJSON(tb, filepath.Join(dir, "labels.json"), map[string]any{"classes": JellyfishClasses})
	WriteJSON(tb, filepath.Join(dir, "model.json"), map[string]any{
		"type":        "neural_network",
		"input_shape": []int{224, 224, 3},
		"classes":     []string{"c0", "c1", "c2", "c3", "c4", "c5"},
		"layers": []map[string]any{
			{"type": "conv2d", "kernel": kernel, "bias": make([]float64, 4), "strides": 2, "padding": "same", "activation": "relu"},
			{"type": "max_pooling2d", "pool_size": 2, "strides": 2},
			{"type": "global_average_pooling2d"},
			{"type": "dense", "weights": weights(4, len(JellyfishClasses), 3), "bias": make([]float64, len(JellyfishClasses)), "activation": "softmax"},
		},
	})
}

// weights returns a fixed in x out matrix with small mixed-sign entries.
func weights(in, out, seed int) [][]float64 {
	w := make([][]float64, in)
	for i := range w {
		w[i] = make([]float64, out)
		for j := range w[i] {
			w[i][j] = float64((i*7+j*13+seed*5)%17-8) / 100
		}
	}
	return w
}

// WriteJSON marshals v to path, creating parent directories.
func WriteJSON(tb testing.TB, path string, v any) {
	tb.Helper()
	payload, err := json.Marshal(v)
	require.NoError(tb, err)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, payload, 0o644))
}

// PNG encodes a w x h gradient image.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w-1, 1)), G: uint8(y * 255 / max(h-1, 1)), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(tb, png.Encode(&buf, img))
	return buf.Bytes()
}
