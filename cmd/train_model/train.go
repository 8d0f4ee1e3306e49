package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"modeldemos/features"
	"modeldemos/ml"
)

type options struct {
	DataPath       string
	OutDir         string
	Target         string
	Features       []string
	Categorical    []string
	LogTarget      bool
	MaxDepth       int
	MinSamplesLeaf int
	TestRatio      float64
}

type report struct {
	TrainRows int
	TestRows  int
	Dropped   int
	DroppedBy string
	Nodes     int
	RMSE      float64
	MAE       float64
}

// dataset holds the parsed CSV rows and their targets.
type dataset struct {
	columns []features.Column
	records []*features.Record
	targets []float64
}

func (o options) validate() error {
	if o.DataPath == "" {
		return errors.New("data path is required")
	}
	if o.OutDir == "" {
		return errors.New("output dir is required")
	}
	if o.Target == "" {
		return errors.New("target column is required")
	}
	if len(o.Features) == 0 {
		return errors.New("at least one feature is required")
	}
	if slices.Contains(o.Features, o.Target) {
		return fmt.Errorf("target %q is also a feature", o.Target)
	}
	for _, c := range o.Categorical {
		if !slices.Contains(o.Features, c) {
			return fmt.Errorf("categorical column %q is not a feature", c)
		}
	}
	return nil
}

func (o options) columns() []features.Column {
	columns := make([]features.Column, len(o.Features))
	for i, name := range o.Features {
		if slices.Contains(o.Categorical, name) {
			columns[i] = features.Categorical(name)
		} else {
			columns[i] = features.Numeric(name)
		}
	}
	return columns
}

// train fits encoders, scaler and a regression tree on the CSV and writes
// the artifact set to o.OutDir.
func train(o options) (report, error) {
	if err := o.validate(); err != nil {
		return report{}, err
	}
	f, err := os.Open(o.DataPath)
	if err != nil {
		return report{}, err
	}
	defer f.Close()

	cleaner := defaultCleaner(o.Features, o.Target, o.LogTarget)
	data, err := readDataset(f, o.columns(), o.Target, o.LogTarget, cleaner)
	if err != nil {
		return report{}, fmt.Errorf("read %s: %w", o.DataPath, err)
	}

	encoders, scaler, err := fitPreprocessing(data)
	if err != nil {
		return report{}, err
	}
	encoderMap := make(map[string]*ml.LabelEncoder, len(encoders))
	for _, enc := range encoders {
		encoderMap[enc.Column()] = enc
	}
	adapter, err := features.NewTabularAdapter(data.columns, encoderMap, scaler, o.Features)
	if err != nil {
		return report{}, err
	}

	vectors := make([][]float64, len(data.records))
	for i, rec := range data.records {
		if vectors[i], err = adapter.Transform(rec); err != nil {
			return report{}, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	trainX, trainY, testX, testY := splitDataset(vectors, data.targets, o.TestRatio)
	tree := &ml.DecisionTree{}
	if err := tree.Train(trainX, trainY, o.MaxDepth, o.MinSamplesLeaf); err != nil {
		return report{}, fmt.Errorf("train tree: %w", err)
	}
	model, err := ml.NewTreeEnsemble(ml.EnsembleConfig{
		Features:    o.Features,
		Objective:   ml.RegressionObjective,
		Aggregation: ml.SumAggregation,
		Trees:       []*ml.DecisionTree{tree},
	})
	if err != nil {
		return report{}, err
	}

	rep := report{
		TrainRows: len(trainX),
		TestRows:  len(testX),
		Dropped:   cleaner.droppedTotal(),
		DroppedBy: cleaner.summary(),
		Nodes:     len(tree.Nodes()),
	}
	if rep.RMSE, rep.MAE, err = evaluateModel(model, testX, testY, o.LogTarget); err != nil {
		return report{}, err
	}

	if err := model.Save(filepath.Join(o.OutDir, "model.json")); err != nil {
		return report{}, fmt.Errorf("save model: %w", err)
	}
	if len(encoders) > 0 {
		if err := ml.SaveEncoders(filepath.Join(o.OutDir, "encoders.json"), encoders); err != nil {
			return report{}, fmt.Errorf("save encoders: %w", err)
		}
	}
	if scaler != nil {
		if err := scaler.Save(filepath.Join(o.OutDir, "scaler.json")); err != nil {
			return report{}, fmt.Errorf("save scaler: %w", err)
		}
	}
	return rep, nil
}

// readDataset parses the used columns of every row the cleaner keeps.
func readDataset(r io.Reader, columns []features.Column, target string, logTarget bool, cleaner *rowCleaner) (*dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	used := append(features.ColumnNames(columns), target)
	for _, name := range used {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("column %q not in header", name)
		}
	}

	data := &dataset{columns: columns}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(used))
		for _, name := range used {
			fields[name] = strings.TrimSpace(row[index[name]])
		}
		if !cleaner.keep(fields) {
			continue
		}

		y, err := strconv.ParseFloat(fields[target], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: target: %w", line, err)
		}
		if logTarget {
			y = math.Log(y)
		}

		rec := features.NewRecord()
		for _, c := range columns {
			raw := fields[c.Name]
			if c.Kind == features.CategoricalColumn {
				rec.SetCategory(c.Name, raw)
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, c.Name, err)
			}
			rec.SetNumber(c.Name, v)
		}
		data.records = append(data.records, rec)
		data.targets = append(data.targets, y)
	}
	if len(data.records) == 0 {
		return nil, errors.New("no usable data rows")
	}
	return data, nil
}

// fitPreprocessing fits one label encoder per categorical column and a
// standard scaler over the numeric columns, in column order.
func fitPreprocessing(data *dataset) ([]*ml.LabelEncoder, *ml.Scaler, error) {
	var (
		encoders []*ml.LabelEncoder
		numeric  []string
	)
	for _, c := range data.columns {
		if c.Kind == features.NumericColumn {
			numeric = append(numeric, c.Name)
			continue
		}
		labels := make([]string, len(data.records))
		for i, rec := range data.records {
			labels[i], _ = rec.Category(c.Name)
		}
		enc, err := ml.FitLabelEncoder(c.Name, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("fit encoder %q: %w", c.Name, err)
		}
		encoders = append(encoders, enc)
	}
	if len(numeric) == 0 {
		return encoders, nil, nil
	}

	rows := make([][]float64, len(data.records))
	for i, rec := range data.records {
		rows[i] = make([]float64, len(numeric))
		for j, name := range numeric {
			rows[i][j], _ = rec.Number(name)
		}
	}
	scaler, err := ml.FitStandardScaler(numeric, rows)
	if err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	return encoders, scaler, nil
}

// splitDataset keeps row order: the first part trains, the tail tests.
func splitDataset(rows [][]float64, targets []float64, testRatio float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio < 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	split := int(float64(len(rows)) * (1 - testRatio))
	split = max(split, 1)
	return rows[:split], targets[:split], rows[split:], targets[split:]
}

// evaluateModel reports RMSE and MAE on the original target scale.
func evaluateModel(model ml.Regressor, testX [][]float64, testY []float64, logTarget bool) (rmse, mae float64, err error) {
	if len(testX) == 0 {
		return 0, 0, nil
	}
	var sq, abs float64
	for i, x := range testX {
		pred, err := model.Predict(x)
		if err != nil {
			return 0, 0, err
		}
		want := testY[i]
		if logTarget {
			pred, want = math.Exp(pred), math.Exp(want)
		}
		diff := pred - want
		sq += diff * diff
		abs += math.Abs(diff)
	}
	n := float64(len(testX))
	return math.Sqrt(sq / n), abs / n, nil
}
