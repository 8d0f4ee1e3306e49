package ml

import (
	"math"
	"slices"
)

// Tensor is a dense row-major array. Image tensors use NHWC layout with a
// leading batch dimension of 1.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor allocates a zeroed tensor.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float64, shapeSize(shape))}
}

func (t *Tensor) Len() int {
	return len(t.Data)
}

// Reshape returns a view with the same data and a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if shapeSize(shape) != len(t.Data) {
		return nil, &SchemaMismatchError{What: "reshape", Expected: shape, Got: t.Shape}
	}
	return &Tensor{Shape: slices.Clone(shape), Data: t.Data}, nil
}

// Identical reports whether both tensors have the same shape and bit-for-bit
// equal data.
func (t *Tensor) Identical(other *Tensor) bool {
	if other == nil || !slices.Equal(t.Shape, other.Shape) || len(t.Data) != len(other.Data) {
		return false
	}
	for i := range t.Data {
		if math.Float64bits(t.Data[i]) != math.Float64bits(other.Data[i]) {
			return false
		}
	}
	return true
}

func shapeSize(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}
