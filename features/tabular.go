package features

import (
	"errors"
	"fmt"
	"slices"

	"modeldemos/ml"
)

// ColumnKind tells how a column is turned into a feature value.
type ColumnKind int

const (
	NumericColumn ColumnKind = iota
	CategoricalColumn
)

// Column is one entry of a training-time schema. Categorical columns name
// the encoder that maps their labels; it defaults to the column name.
type Column struct {
	Name    string
	Kind    ColumnKind
	Encoder string
}

// Numeric declares a column taken as a number.
func Numeric(name string) Column {
	return Column{Name: name, Kind: NumericColumn}
}

// Categorical declares a column encoded by the encoder of the same name.
func Categorical(name string) Column {
	return Column{Name: name, Kind: CategoricalColumn, Encoder: name}
}

// ColumnNames returns the names of columns in order.
func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// TabularAdapter maps a Record to a feature vector in training column order.
// Categorical columns become their encoder index; numeric columns go through
// the scaler in one pass.
type TabularAdapter struct {
	columns  []Column
	encoders []*ml.LabelEncoder
	scaler   *ml.Scaler
	numeric  []int
}

// NewTabularAdapter checks the declared columns against the loaded
// artifacts: model feature order, one encoder per categorical column and
// nothing else, and a scaler covering exactly the numeric columns in order.
// scaler and modelFeatures may be nil.
func NewTabularAdapter(columns []Column, encoders map[string]*ml.LabelEncoder, scaler *ml.Scaler, modelFeatures []string) (*TabularAdapter, error) {
	if len(columns) == 0 {
		return nil, errors.New("schema has no columns")
	}
	names := ColumnNames(columns)
	seen := make(map[string]bool, len(columns))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}
	if modelFeatures != nil && !slices.Equal(names, modelFeatures) {
		return nil, fmt.Errorf("model features %v do not match schema %v", modelFeatures, names)
	}

	a := &TabularAdapter{
		columns:  slices.Clone(columns),
		encoders: make([]*ml.LabelEncoder, len(columns)),
		scaler:   scaler,
	}
	used := make(map[string]bool)
	numericNames := make([]string, 0, len(columns))
	for i, c := range columns {
		switch c.Kind {
		case CategoricalColumn:
			encName := c.Encoder
			if encName == "" {
				encName = c.Name
			}
			enc, ok := encoders[encName]
			if !ok {
				return nil, fmt.Errorf("no encoder for categorical column %q", c.Name)
			}
			a.encoders[i] = enc
			used[encName] = true
		case NumericColumn:
			a.numeric = append(a.numeric, i)
			numericNames = append(numericNames, c.Name)
		default:
			return nil, fmt.Errorf("column %q has unknown kind %d", c.Name, c.Kind)
		}
	}
	for name := range encoders {
		if !used[name] {
			return nil, fmt.Errorf("encoder %q has no categorical column", name)
		}
	}
	if scaler != nil && !slices.Equal(scaler.Columns(), numericNames) {
		return nil, fmt.Errorf("scaler columns %v do not match numeric columns %v", scaler.Columns(), numericNames)
	}
	return a, nil
}

// Width is the length of the produced vector.
func (a *TabularAdapter) Width() int {
	return len(a.columns)
}

// Transform builds the feature vector for r. A missing value yields a
// *MissingFieldError and an unseen label an *ml.UnknownCategoryError.
func (a *TabularAdapter) Transform(r *Record) ([]float64, error) {
	vector := make([]float64, len(a.columns))
	for i, c := range a.columns {
		if c.Kind == CategoricalColumn {
			label, ok := r.Category(c.Name)
			if !ok {
				return nil, &MissingFieldError{Field: c.Name}
			}
			idx, err := a.encoders[i].Transform(label)
			if err != nil {
				return nil, err
			}
			vector[i] = float64(idx)
			continue
		}
		v, ok := r.Number(c.Name)
		if !ok {
			return nil, &MissingFieldError{Field: c.Name}
		}
		vector[i] = v
	}

	if a.scaler != nil && len(a.numeric) > 0 {
		raw := make([]float64, len(a.numeric))
		for j, idx := range a.numeric {
			raw[j] = vector[idx]
		}
		scaled, err := a.scaler.Transform(raw)
		if err != nil {
			return nil, err
		}
		for j, idx := range a.numeric {
			vector[idx] = scaled[j]
		}
	}
	return vector, nil
}
