// Package features turns raw form submissions into the exact numeric
// representation a stored model was trained on.
package features

import "fmt"

// Record is one raw submission: field name to number, category label or
// image bytes. It lives for a single request.
type Record struct {
	numbers    map[string]float64
	categories map[string]string
	images     map[string][]byte
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		numbers:    make(map[string]float64),
		categories: make(map[string]string),
		images:     make(map[string][]byte),
	}
}

// SetNumber stores a numeric value and returns r for chaining.
func (r *Record) SetNumber(name string, v float64) *Record {
	r.numbers[name] = v
	return r
}

// SetCategory stores a categorical label.
func (r *Record) SetCategory(name, v string) *Record {
	r.categories[name] = v
	return r
}

// SetImage stores raw upload bytes.
func (r *Record) SetImage(name string, data []byte) *Record {
	r.images[name] = data
	return r
}

// Number returns the numeric value of name, if set.
func (r *Record) Number(name string) (float64, bool) {
	v, ok := r.numbers[name]
	return v, ok
}

// Category returns the label of name, if set.
func (r *Record) Category(name string) (string, bool) {
	v, ok := r.categories[name]
	return v, ok
}

// Image returns the upload stored under name, if any.
func (r *Record) Image(name string) ([]byte, bool) {
	v, ok := r.images[name]
	return v, ok
}

// MissingFieldError is returned when a field the schema needs was not
// submitted. Missing fields are never defaulted.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// ImageError reports an upload that could not be decoded as a supported image
// or whose dimensions exceed the pixel budget.
type ImageError struct {
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("invalid image: %v", e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}
