// Package form declares the input widgets of a demo app and collects a
// submission into a features.Record, enforcing only per-field constraints.
package form

import (
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"modeldemos/features"
)

// FieldType selects the widget rendered for a field.
type FieldType string

const (
	NumberInput FieldType = "number"
	RangeInput  FieldType = "range"
	SelectInput FieldType = "select"
	ImageInput  FieldType = "image"
)

// Field is one form widget. Default only pre-fills the rendered form; a
// submission that omits the field is rejected.
type Field struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Type    FieldType `json:"type"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Integer bool      `json:"integer,omitempty"`
	Options []string  `json:"options,omitempty"`
	// NumericOptions makes a select submit its option as a number.
	NumericOptions bool     `json:"numeric_options,omitempty"`
	Accept         []string `json:"accept,omitempty"`
	Default        string   `json:"default,omitempty"`
}

// Bound returns a pointer for Field.Min and Field.Max.
func Bound(v float64) *float64 {
	return &v
}

// Input is a raw submission: scalar values as text plus uploaded files.
type Input struct {
	Values map[string]string
	Files  map[string][]byte
}

// FieldError reports a value that violates its field's constraint.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

var DefaultImageTypes = []string{"image/png", "image/jpeg"}

// Collect builds a Record from in, checking every declared field.
func Collect(fields []Field, in Input) (*features.Record, error) {
	record := features.NewRecord()
	for _, f := range fields {
		if f.Type == ImageInput {
			data, ok := in.Files[f.Name]
			if !ok || len(data) == 0 {
				return nil, &features.MissingFieldError{Field: f.Name}
			}
			accept := f.Accept
			if len(accept) == 0 {
				accept = DefaultImageTypes
			}
			contentType := http.DetectContentType(data)
			if !slices.Contains(accept, contentType) {
				return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("unsupported file type %s", contentType)}
			}
			record.SetImage(f.Name, data)
			continue
		}

		raw, ok := in.Values[f.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return nil, &features.MissingFieldError{Field: f.Name}
		}

		if f.Type == SelectInput {
			if !slices.Contains(f.Options, raw) {
				return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not one of %s", raw, strings.Join(f.Options, ", "))}
			}
			if !f.NumericOptions {
				record.SetCategory(f.Name, raw)
				continue
			}
		}

		v, err := f.parseNumber(raw)
		if err != nil {
			return nil, err
		}
		record.SetNumber(f.Name, v)
	}
	return record, nil
}

func (f Field) parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if f.Integer && v != math.Trunc(v) {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not a whole number", raw)}
	}
	if f.Min != nil && v < *f.Min {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("must be at least %g", *f.Min)}
	}
	if f.Max != nil && v > *f.Max {
		return 0, &FieldError{Field: f.Name, Reason: fmt.Sprintf("must be at most %g", *f.Max)}
	}
	return v, nil
}
