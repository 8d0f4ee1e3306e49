package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type modelFile struct {
	Type        string          `json:"type"`
	Features    []string        `json:"features,omitempty"`
	Classes     []string        `json:"classes,omitempty"`
	Coef        json.RawMessage `json:"coef,omitempty"`
	Intercept   json.RawMessage `json:"intercept,omitempty"`
	Objective   Objective       `json:"objective,omitempty"`
	Aggregation Aggregation     `json:"aggregation,omitempty"`
	BaseScore   float64         `json:"base_score,omitempty"`
	Trees       [][]TreeNode    `json:"trees,omitempty"`
	InputShape  []int           `json:"input_shape,omitempty"`
	Layers      []layerSpec     `json:"layers,omitempty"`
}

type layerSpec struct {
	Type       string          `json:"type"`
	Weights    [][]float64     `json:"weights,omitempty"`
	Kernel     [][][][]float64 `json:"kernel,omitempty"`
	Bias       []float64       `json:"bias,omitempty"`
	Strides    int             `json:"strides,omitempty"`
	Padding    Padding         `json:"padding,omitempty"`
	PoolSize   int             `json:"pool_size,omitempty"`
	Activation Activation      `json:"activation,omitempty"`
}

func (s layerSpec) build() (Layer, error) {
	switch s.Type {
	case "dense":
		return NewDense(s.Weights, s.Bias, s.Activation)
	case "conv2d":
		return NewConv2D(s.Kernel, s.Bias, s.Strides, s.Padding, s.Activation)
	case "max_pooling2d":
		return NewMaxPooling2D(s.PoolSize, s.Strides)
	case "global_average_pooling2d":
		return GlobalAveragePooling2D{}, nil
	case "flatten":
		return Flatten{}, nil
	default:
		return nil, fmt.Errorf("%w: layer %q", ErrUnsupported, s.Type)
	}
}

// readArtifact validates the file against schema before decoding it into dst.
func readArtifact(path string, schema *jsonschema.Schema, dst interface{}) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return loadErrorf(path, "corrupt json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return loadErrorf(path, "schema validation: %w", err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return loadErrorf(path, "decode: %w", err)
	}
	return nil
}

func readModel(path string) (*modelFile, error) {
	var f modelFile
	if err := readArtifact(path, modelSchema, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *modelFile) trees() ([]*DecisionTree, error) {
	trees := make([]*DecisionTree, len(f.Trees))
	for i, nodes := range f.Trees {
		tree, err := NewDecisionTree(nodes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}
	return trees, nil
}

func (f *modelFile) ensemble() (*TreeEnsemble, error) {
	trees, err := f.trees()
	if err != nil {
		return nil, err
	}
	return NewTreeEnsemble(EnsembleConfig{
		Features:    f.Features,
		Classes:     f.Classes,
		Objective:   f.Objective,
		Aggregation: f.Aggregation,
		BaseScore:   f.BaseScore,
		Trees:       trees,
	})
}

// LoadRegressor reads a linear_regression or regression tree_ensemble model.
func LoadRegressor(path string) (Regressor, error) {
	f, err := readModel(path)
	if err != nil {
		return nil, err
	}
	var model Regressor
	switch f.Type {
	case "linear_regression":
		var coef []float64
		var intercept float64
		if err := json.Unmarshal(f.Coef, &coef); err != nil {
			return nil, loadErrorf(path, "coef: %w", err)
		}
		if err := json.Unmarshal(f.Intercept, &intercept); err != nil {
			return nil, loadErrorf(path, "intercept: %w", err)
		}
		model, err = NewLinearRegression(f.Features, coef, intercept)
	case "tree_ensemble":
		if f.Objective != RegressionObjective {
			return nil, loadErrorf(path, "tree ensemble objective %q is not a regression", f.Objective)
		}
		model, err = f.ensemble()
	default:
		return nil, loadErrorf(path, "%w: %q is not a regressor", ErrUnsupported, f.Type)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return model, nil
}

// LoadClassifier reads a logistic_regression or binary tree_ensemble model.
func LoadClassifier(path string) (Classifier, error) {
	f, err := readModel(path)
	if err != nil {
		return nil, err
	}
	var model Classifier
	switch f.Type {
	case "logistic_regression":
		var coef [][]float64
		var intercept []float64
		if err := json.Unmarshal(f.Coef, &coef); err != nil {
			return nil, loadErrorf(path, "coef: %w", err)
		}
		if err := json.Unmarshal(f.Intercept, &intercept); err != nil {
			return nil, loadErrorf(path, "intercept: %w", err)
		}
		model, err = NewLogisticRegression(f.Features, f.Classes, coef, intercept)
	case "tree_ensemble":
		if f.Objective != BinaryObjective {
			return nil, loadErrorf(path, "tree ensemble objective %q is not a classifier", f.Objective)
		}
		model, err = f.ensemble()
	default:
		return nil, loadErrorf(path, "%w: %q is not a classifier", ErrUnsupported, f.Type)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return model, nil
}

// LoadNetwork reads a neural_network model. When labels is non-nil its
// classes replace the ones stored in the model file and must agree in count.
func LoadNetwork(path string, labels *LabelEncoder) (*NeuralNetwork, error) {
	f, err := readModel(path)
	if err != nil {
		return nil, err
	}
	if f.Type != "neural_network" {
		return nil, loadErrorf(path, "%w: %q is not a neural network", ErrUnsupported, f.Type)
	}
	classes := f.Classes
	if labels != nil {
		if labels.Len() != len(f.Classes) {
			return nil, loadErrorf(path, "label encoder has %d classes, model has %d", labels.Len(), len(f.Classes))
		}
		classes = labels.Classes()
	}
	layers := make([]Layer, len(f.Layers))
	for i, spec := range f.Layers {
		layer, err := spec.build()
		if err != nil {
			return nil, loadErrorf(path, "layer %d: %w", i, err)
		}
		layers[i] = layer
	}
	network, err := NewNeuralNetwork(f.InputShape, classes, layers)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return network, nil
}

// LoadEncoders reads a column -> label encoder map.
func LoadEncoders(path string) (map[string]*LabelEncoder, error) {
	var files map[string]encoderFile
	if err := readArtifact(path, encodersSchema, &files); err != nil {
		return nil, err
	}
	encoders := make(map[string]*LabelEncoder, len(files))
	for column, f := range files {
		enc, err := NewLabelEncoder(column, f.Classes)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		encoders[column] = enc
	}
	return encoders, nil
}

// LoadLabelEncoder reads a single encoder file, used for image class names.
func LoadLabelEncoder(path, column string) (*LabelEncoder, error) {
	var f encoderFile
	if err := readArtifact(path, labelEncoderSchema, &f); err != nil {
		return nil, err
	}
	enc, err := NewLabelEncoder(column, f.Classes)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return enc, nil
}

// LoadScaler reads a scaler.json artifact. Any failure is a *LoadError.
func LoadScaler(path string) (*Scaler, error) {
	var f scalerFile
	if err := readArtifact(path, scalerSchema, &f); err != nil {
		return nil, err
	}
	scaler, err := f.build()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return scaler, nil
}

func writeJSON(path string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// Save writes e as a model.json artifact LoadRegressor or LoadClassifier
// reads back.
func (e *TreeEnsemble) Save(path string) error {
	if len(e.trees) == 0 {
		return ErrNotLoaded
	}
	f := modelFile{
		Type:        "tree_ensemble",
		Features:    e.FeatureNames(),
		Classes:     e.Classes(),
		Objective:   e.objective,
		Aggregation: e.aggregation,
		BaseScore:   e.baseScore,
		Trees:       make([][]TreeNode, len(e.trees)),
	}
	for i, tree := range e.trees {
		f.Trees[i] = tree.Nodes()
	}
	return writeJSON(path, f)
}

// Save writes s in the scaler.json format.
func (s *Scaler) Save(path string) error {
	return writeJSON(path, s.file())
}

// SaveEncoders writes the encoders as one encoders.json keyed by column.
func SaveEncoders(path string, encoders []*LabelEncoder) error {
	if len(encoders) == 0 {
		return errors.New("no encoders to save")
	}
	files := make(map[string]encoderFile, len(encoders))
	for _, enc := range encoders {
		files[enc.Column()] = encoderFile{Classes: enc.Classes()}
	}
	return writeJSON(path, files)
}
