// Package apps defines the five demo apps and the load-once registry that
// request handlers share.
package apps

import (
	"fmt"
	"time"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

// Kind is the type of result an app produces.
type Kind string

const (
	RegressionKind     Kind = "regression"
	ClassificationKind Kind = "classification"
)

// ClassProbability is the probability of one class.
type ClassProbability struct {
	Class       string  `json:"class"`
	Probability float64 `json:"probability"`
}

// Result is the rendered outcome of one submit. Probability is the
// confidence shown to the user and always lies in [0, 1].
type Result struct {
	App           string             `json:"app"`
	Kind          Kind               `json:"kind"`
	Value         float64            `json:"value,omitempty"`
	Label         string             `json:"label,omitempty"`
	Probability   float64            `json:"probability,omitempty"`
	Band          string             `json:"band,omitempty"`
	Positive      bool               `json:"positive,omitempty"`
	Probabilities []ClassProbability `json:"probabilities,omitempty"`
	Message       string             `json:"message"`
}

// Predictor turns a collected record into a result with exactly one model
// call.
type Predictor interface {
	Predict(record *features.Record) (Result, error)
}

// Definition is the static description of an app. Load reads its artifacts
// from dir once at startup.
type Definition struct {
	Name        string
	Title       string
	Description string
	Fields      []form.Field
	Load        func(dir string) (Predictor, error)
}

// App is a loaded, immutable app.
type App struct {
	Name        string
	Title       string
	Description string
	Fields      []form.Field
	LoadedAt    time.Time

	predictor Predictor
}

// Predict collects the submission, runs the pipeline once and returns the
// result. Every failure, including a panic inside the model, comes back as an
// error; UserMessage renders it.
func (a *App) Predict(in form.Input) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &ml.InferenceError{Model: a.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	record, err := form.Collect(a.Fields, in)
	if err != nil {
		return Result{}, err
	}
	res, err = a.predictor.Predict(record)
	if err != nil {
		return Result{}, err
	}
	res.App = a.Name
	return res, nil
}

// HasImageInput reports whether the form needs a multipart upload.
func (a *App) HasImageInput() bool {
	for _, f := range a.Fields {
		if f.Type == form.ImageInput {
			return true
		}
	}
	return false
}
