package apps

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

const (
	ModelFile    = "model.json"
	EncodersFile = "encoders.json"
	ScalerFile   = "scaler.json"
	LabelsFile   = "labels.json"
)

// loadTabular reads encoders and scaler when requested and validates them,
// together with the model's feature order, against columns. Every option a
// select field offers for a categorical column must be an encoder class.
func loadTabular(dir string, fields []form.Field, columns []features.Column, modelFeatures []string, withEncoders, withScaler bool) (*features.TabularAdapter, error) {
	var encoders map[string]*ml.LabelEncoder
	if withEncoders {
		var err error
		if encoders, err = ml.LoadEncoders(filepath.Join(dir, EncodersFile)); err != nil {
			return nil, err
		}
	}
	var scaler *ml.Scaler
	if withScaler {
		var err error
		if scaler, err = ml.LoadScaler(filepath.Join(dir, ScalerFile)); err != nil {
			return nil, err
		}
	}
	adapter, err := features.NewTabularAdapter(columns, encoders, scaler, modelFeatures)
	if err != nil {
		return nil, &ml.LoadError{Path: dir, Err: err}
	}
	if err := checkOptions(fields, columns, encoders); err != nil {
		return nil, &ml.LoadError{Path: filepath.Join(dir, EncodersFile), Err: err}
	}
	return adapter, nil
}

func checkOptions(fields []form.Field, columns []features.Column, encoders map[string]*ml.LabelEncoder) error {
	byName := make(map[string]features.Column, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}
	for _, f := range fields {
		c, ok := byName[f.Name]
		if f.Type != form.SelectInput || !ok || c.Kind != features.CategoricalColumn {
			continue
		}
		name := c.Encoder
		if name == "" {
			name = c.Name
		}
		classes := encoders[name].Classes()
		for _, opt := range f.Options {
			if !slices.Contains(classes, opt) {
				return fmt.Errorf("field %q offers %q, which encoder %q does not know", f.Name, opt, name)
			}
		}
	}
	return nil
}

// regressionPredictor serves tabular regressors. With logTarget the model
// was trained on log(y) and the prediction is exponentiated for display.
type regressionPredictor struct {
	adapter   *features.TabularAdapter
	model     ml.Regressor
	logTarget bool
	caption   string
	currency  string
}

func (p *regressionPredictor) Predict(record *features.Record) (Result, error) {
	vector, err := p.adapter.Transform(record)
	if err != nil {
		return Result{}, err
	}
	y, err := p.model.Predict(vector)
	if err != nil {
		return Result{}, err
	}
	if p.logTarget {
		y = math.Exp(y)
		if math.IsInf(y, 0) {
			return Result{}, &ml.InferenceError{Model: "regressor", Err: ml.ErrNonFinite}
		}
	}
	return Result{
		Kind:    RegressionKind,
		Value:   y,
		Message: fmt.Sprintf("%s: %s", p.caption, formatAmount(p.currency, y)),
	}, nil
}

// binaryPredictor serves tabular binary classifiers framed as
// accepted/rejected. The positive class is the second model class.
type binaryPredictor struct {
	adapter       *features.TabularAdapter
	model         ml.Classifier
	positiveLabel string
	negativeLabel string
}

func (p *binaryPredictor) Predict(record *features.Record) (Result, error) {
	vector, err := p.adapter.Transform(record)
	if err != nil {
		return Result{}, err
	}
	probs, err := p.model.PredictProba(vector)
	if err != nil {
		return Result{}, err
	}
	if len(probs) != 2 {
		return Result{}, &ml.SchemaMismatchError{What: "classifier output", Expected: []int{2}, Got: []int{len(probs)}}
	}
	positive := probs[1]
	res := Result{
		Kind:          ClassificationKind,
		Probabilities: classProbabilities(p.model.Classes(), probs),
	}
	if positive >= 0.5 {
		res.Label = p.positiveLabel
		res.Positive = true
		res.Probability = positive
		res.Message = fmt.Sprintf("%s · Confidence: %s", p.positiveLabel, FormatPercent(positive))
	} else {
		res.Label = p.negativeLabel
		res.Probability = 1 - positive
		res.Message = fmt.Sprintf("%s · Risk Score: %s", p.negativeLabel, FormatPercent(1-positive))
	}
	res.Band = confidenceBand(res.Probability)
	return res, nil
}

// imagePredictor serves image classifiers: one uploaded image, argmax label.
type imagePredictor struct {
	field   string
	adapter features.ImageAdapter
	model   ml.TensorClassifier
}

func newImagePredictor(field string, adapter features.ImageAdapter, model ml.TensorClassifier, dir string) (*imagePredictor, error) {
	if !slices.Equal(model.InputShape(), adapter.InputShape()) {
		return nil, &ml.LoadError{Path: dir, Err: fmt.Errorf("model input shape %v does not match preprocessing %v", model.InputShape(), adapter.InputShape())}
	}
	return &imagePredictor{field: field, adapter: adapter, model: model}, nil
}

func (p *imagePredictor) Predict(record *features.Record) (Result, error) {
	data, ok := record.Image(p.field)
	if !ok {
		return Result{}, &features.MissingFieldError{Field: p.field}
	}
	tensor, err := p.adapter.Transform(data)
	if err != nil {
		return Result{}, err
	}
	probs, err := p.model.PredictProba(tensor)
	if err != nil {
		return Result{}, err
	}
	classes := p.model.Classes()
	idx, confidence := ml.ArgMax(probs)
	if idx < 0 || idx >= len(classes) {
		return Result{}, &ml.SchemaMismatchError{What: "classifier output", Expected: []int{len(classes)}, Got: []int{len(probs)}}
	}
	return Result{
		Kind:          ClassificationKind,
		Label:         classes[idx],
		Probability:   confidence,
		Band:          confidenceBand(confidence),
		Positive:      true,
		Probabilities: classProbabilities(classes, probs),
		Message:       fmt.Sprintf("Prediction: %s · Confidence: %s", classes[idx], FormatPercent(confidence)),
	}, nil
}

func classProbabilities(classes []string, probs []float64) []ClassProbability {
	out := make([]ClassProbability, 0, len(probs))
	for i, p := range probs {
		name := fmt.Sprintf("class %d", i)
		if i < len(classes) {
			name = classes[i]
		}
		out = append(out, ClassProbability{Class: name, Probability: p})
	}
	return out
}
