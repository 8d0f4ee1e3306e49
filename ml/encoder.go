package ml

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// LabelEncoder maps training-time category labels to their integer index.
// The index of a label is its position in the class list.
type LabelEncoder struct {
	column  string
	classes []string
	index   map[string]int
}

// NewLabelEncoder keeps classes in the given order; duplicates are an error.
func NewLabelEncoder(column string, classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("encoder %q has no classes", column)
	}
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		if _, dup := index[class]; dup {
			return nil, fmt.Errorf("encoder %q has duplicate class %q", column, class)
		}
		index[class] = i
	}
	return &LabelEncoder{column: column, classes: slices.Clone(classes), index: index}, nil
}

// FitLabelEncoder collects the distinct values of a column, sorted, the same
// way the offline trainer assigns indices.
func FitLabelEncoder(column string, values []string) (*LabelEncoder, error) {
	if len(values) == 0 {
		return nil, errors.New("values is empty")
	}
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return NewLabelEncoder(column, classes)
}

func (e *LabelEncoder) Column() string {
	return e.column
}

// Classes returns a copy of the class list.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Transform returns the index of value or an *UnknownCategoryError.
func (e *LabelEncoder) Transform(value string) (int, error) {
	idx, ok := e.index[value]
	if !ok {
		return 0, &UnknownCategoryError{Column: e.column, Value: value}
	}
	return idx, nil
}

// InverseTransform returns the class at idx.
func (e *LabelEncoder) InverseTransform(idx int) (string, error) {
	if idx < 0 || idx >= len(e.classes) {
		return "", fmt.Errorf("encoder %q: index %d out of range [0,%d)", e.column, idx, len(e.classes))
	}
	return e.classes[idx], nil
}

type encoderFile struct {
	Classes []string `json:"classes"`
}
