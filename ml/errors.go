package ml

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded   = errors.New("model not loaded")
	ErrNonFinite   = errors.New("model produced a non-finite value")
	ErrUnsupported = errors.New("unsupported artifact type")
)

// LoadError is returned for any artifact that is missing, corrupt, or does not
// match the schema its app declares. It is fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load artifact %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErrorf(path, format string, args ...interface{}) error {
	return &LoadError{Path: path, Err: fmt.Errorf(format, args...)}
}

// UnknownCategoryError reports a categorical value the encoder never saw
// during training.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for column %q", e.Value, e.Column)
}

// SchemaMismatchError reports an input whose length or shape differs from
// what the artifact was trained on.
type SchemaMismatchError struct {
	What     string
	Expected []int
	Got      []int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s shape mismatch: expected %v, got %v", e.What, e.Expected, e.Got)
}

// InferenceError wraps any other failure raised by a model call.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
