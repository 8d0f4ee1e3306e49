package ml

import (
	"errors"
	"fmt"
	"slices"
)

// Objective tells how raw tree output is read.
type Objective string

const (
	RegressionObjective Objective = "regression"
	BinaryObjective     Objective = "binary"
)

// Aggregation combines the outputs of the trees.
type Aggregation string

const (
	SumAggregation  Aggregation = "sum"
	MeanAggregation Aggregation = "mean"
)

// TreeEnsemble combines regression trees either as a boosted sum on top of
// a base score or as a forest average. With the binary objective the raw
// score is a logit for the second class.
type TreeEnsemble struct {
	features    []string
	classes     []string
	objective   Objective
	aggregation Aggregation
	baseScore   float64
	trees       []*DecisionTree
}

// EnsembleConfig describes a tree ensemble before validation.
type EnsembleConfig struct {
	Features    []string
	Classes     []string
	Objective   Objective
	Aggregation Aggregation
	BaseScore   float64
	Trees       []*DecisionTree
}

// NewTreeEnsemble validates every tree against the feature list.
func NewTreeEnsemble(cfg EnsembleConfig) (*TreeEnsemble, error) {
	if len(cfg.Features) == 0 {
		return nil, errors.New("tree ensemble has no features")
	}
	if len(cfg.Trees) == 0 {
		return nil, errors.New("tree ensemble has no trees")
	}
	switch cfg.Objective {
	case RegressionObjective:
	case BinaryObjective:
		if len(cfg.Classes) != 2 {
			return nil, fmt.Errorf("binary tree ensemble needs 2 classes, got %d", len(cfg.Classes))
		}
	default:
		return nil, fmt.Errorf("unknown objective %q", cfg.Objective)
	}
	if cfg.Aggregation == "" {
		cfg.Aggregation = SumAggregation
	}
	if cfg.Aggregation != SumAggregation && cfg.Aggregation != MeanAggregation {
		return nil, fmt.Errorf("unknown aggregation %q", cfg.Aggregation)
	}
	for i, tree := range cfg.Trees {
		if err := tree.validate(len(cfg.Features)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &TreeEnsemble{
		features:    slices.Clone(cfg.Features),
		classes:     slices.Clone(cfg.Classes),
		objective:   cfg.Objective,
		aggregation: cfg.Aggregation,
		baseScore:   cfg.BaseScore,
		trees:       slices.Clone(cfg.Trees),
	}, nil
}

func (e *TreeEnsemble) FeatureNames() []string {
	return slices.Clone(e.features)
}

func (e *TreeEnsemble) Classes() []string {
	return slices.Clone(e.classes)
}

func (e *TreeEnsemble) raw(features []float64) (float64, error) {
	if len(features) != len(e.features) {
		return 0, &SchemaMismatchError{What: "tree ensemble input", Expected: []int{len(e.features)}, Got: []int{len(features)}}
	}
	sum := 0.0
	for i, tree := range e.trees {
		v, err := tree.Predict(features)
		if err != nil {
			return 0, &InferenceError{Model: "tree_ensemble", Err: fmt.Errorf("tree %d: %w", i, err)}
		}
		sum += v
	}
	if e.aggregation == MeanAggregation {
		sum /= float64(len(e.trees))
	}
	score := e.baseScore + sum
	if err := checkFinite(score); err != nil {
		return 0, &InferenceError{Model: "tree_ensemble", Err: err}
	}
	return score, nil
}

// Predict returns the aggregated value of a regression ensemble.
func (e *TreeEnsemble) Predict(features []float64) (float64, error) {
	if e.objective != RegressionObjective {
		return 0, &InferenceError{Model: "tree_ensemble", Err: errors.New("classifier used as regressor")}
	}
	return e.raw(features)
}

// PredictProba returns class probabilities of a classification ensemble.
func (e *TreeEnsemble) PredictProba(features []float64) ([]float64, error) {
	if e.objective != BinaryObjective {
		return nil, &InferenceError{Model: "tree_ensemble", Err: errors.New("regressor used as classifier")}
	}
	score, err := e.raw(features)
	if err != nil {
		return nil, err
	}
	p := sigmoid(score)
	return []float64{1 - p, p}, nil
}
