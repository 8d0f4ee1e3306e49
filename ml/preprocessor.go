package ml

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ScalerKind names the scaling applied to numeric columns.
type ScalerKind string

const (
	StandardScaling ScalerKind = "standard"
	MinMaxScaling   ScalerKind = "minmax"
)

// Scaler reapplies training-time numeric normalisation:
// (value - center) / scale per column. For standard scaling center is the
// mean and scale the standard deviation; for min-max scaling center is the
// minimum and scale the range.
type Scaler struct {
	kind    ScalerKind
	columns []string
	center  []float64
	scale   []float64
}

// NewScaler builds a scaler computing (v - center) / scale per column. A
// zero scale is replaced by 1. A negative scale or non-finite statistics
// are rejected.
func NewScaler(kind ScalerKind, columns []string, center, scale []float64) (*Scaler, error) {
	if kind != StandardScaling && kind != MinMaxScaling {
		return nil, fmt.Errorf("unknown scaler kind %q", kind)
	}
	if len(columns) == 0 {
		return nil, errors.New("scaler has no columns")
	}
	if len(center) != len(columns) || len(scale) != len(columns) {
		return nil, errors.New("columns/center/scale length mismatch")
	}
	s := &Scaler{
		kind:    kind,
		columns: slices.Clone(columns),
		center:  slices.Clone(center),
		scale:   slices.Clone(scale),
	}
	for i, v := range s.scale {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(s.center[i]) || math.IsInf(s.center[i], 0) {
			return nil, fmt.Errorf("scaler column %q has non-finite statistics", columns[i])
		}
		if v < 0 {
			return nil, fmt.Errorf("scaler column %q has negative scale %v", columns[i], v)
		}
		// constant columns pass through unscaled
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

// FitStandardScaler computes per-column mean and population standard
// deviation over rows.
func FitStandardScaler(columns []string, rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("rows is empty")
	}
	n := float64(len(rows))
	mean := make([]float64, len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return nil, &SchemaMismatchError{What: "scaler fit", Expected: []int{len(columns)}, Got: []int{len(row)}}
		}
		for i, v := range row {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	std := make([]float64, len(columns))
	for _, row := range rows {
		for i, v := range row {
			diff := v - mean[i]
			std[i] += diff * diff
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
	}
	return NewScaler(StandardScaling, columns, mean, std)
}

// Kind reports whether the scaler standardises or min-max scales.
func (s *Scaler) Kind() ScalerKind {
	return s.kind
}

// Columns returns the scaled column names in order.
func (s *Scaler) Columns() []string {
	return slices.Clone(s.columns)
}

// Transform scales all columns in one pass and returns a new slice.
func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.columns) {
		return nil, &SchemaMismatchError{What: "scaler input", Expected: []int{len(s.columns)}, Got: []int{len(values)}}
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.center[i]) / s.scale[i]
	}
	return out, nil
}

type scalerFile struct {
	Kind    ScalerKind `json:"kind"`
	Columns []string   `json:"columns"`
	Mean    []float64  `json:"mean,omitempty"`
	Scale   []float64  `json:"scale,omitempty"`
	Min     []float64  `json:"min,omitempty"`
	Max     []float64  `json:"max,omitempty"`
}

func (f scalerFile) build() (*Scaler, error) {
	switch f.Kind {
	case StandardScaling:
		return NewScaler(f.Kind, f.Columns, f.Mean, f.Scale)
	case MinMaxScaling:
		if len(f.Min) != len(f.Max) {
			return nil, errors.New("min/max length mismatch")
		}
		ranges := make([]float64, len(f.Max))
		for i := range f.Max {
			if f.Max[i] < f.Min[i] {
				return nil, fmt.Errorf("scaler column %d: max %v is below min %v", i, f.Max[i], f.Min[i])
			}
			ranges[i] = f.Max[i] - f.Min[i]
		}
		return NewScaler(f.Kind, f.Columns, f.Min, ranges)
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", f.Kind)
	}
}

func (s *Scaler) file() scalerFile {
	f := scalerFile{Kind: s.kind, Columns: s.Columns()}
	if s.kind == MinMaxScaling {
		f.Min = slices.Clone(s.center)
		f.Max = make([]float64, len(s.center))
		for i := range s.center {
			f.Max[i] = s.center[i] + s.scale[i]
		}
		return f
	}
	f.Mean = slices.Clone(s.center)
	f.Scale = slices.Clone(s.scale)
	return f
}
