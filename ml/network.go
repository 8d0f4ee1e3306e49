package ml

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Layer is one step of a feed-forward network. Shapes always carry the
// leading batch dimension, which must be 1.
type Layer interface {
	Kind() string
	OutputShape(in []int) ([]int, error)
	Forward(in *Tensor) (*Tensor, error)
}

// NeuralNetwork runs a stored Keras-style sequential classifier whose last
// layer is a softmax dense layer.
type NeuralNetwork struct {
	inputShape []int
	classes    []string
	layers     []Layer
}

// NewNeuralNetwork checks that the layers chain from inputShape to a
// softmax output with one unit per class.
func NewNeuralNetwork(inputShape []int, classes []string, layers []Layer) (*NeuralNetwork, error) {
	if len(inputShape) == 0 {
		return nil, errors.New("network has no input shape")
	}
	if len(layers) == 0 {
		return nil, errors.New("network has no layers")
	}
	shape := append([]int{1}, inputShape...)
	for i, layer := range layers {
		next, err := layer.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, layer.Kind(), err)
		}
		shape = next
	}
	if !slices.Equal(shape, []int{1, len(classes)}) {
		return nil, fmt.Errorf("network output shape %v does not match %d classes", shape, len(classes))
	}
	if last, ok := layers[len(layers)-1].(*Dense); !ok || last.activation != Softmax {
		return nil, errors.New("network must end with a softmax dense layer")
	}
	return &NeuralNetwork{
		inputShape: slices.Clone(inputShape),
		classes:    slices.Clone(classes),
		layers:     layers,
	}, nil
}

// InputShape excludes the batch dimension.
func (n *NeuralNetwork) InputShape() []int {
	return slices.Clone(n.inputShape)
}

func (n *NeuralNetwork) Classes() []string {
	return slices.Clone(n.classes)
}

// PredictProba runs a forward pass over a batch of one.
func (n *NeuralNetwork) PredictProba(input *Tensor) ([]float64, error) {
	want := append([]int{1}, n.inputShape...)
	if input == nil || !slices.Equal(input.Shape, want) || len(input.Data) != shapeSize(want) {
		var got []int
		if input != nil {
			got = input.Shape
		}
		return nil, &SchemaMismatchError{What: "network input", Expected: want, Got: got}
	}
	out := input
	for i, layer := range n.layers {
		next, err := layer.Forward(out)
		if err != nil {
			return nil, &InferenceError{Model: "neural_network", Err: fmt.Errorf("layer %d (%s): %w", i, layer.Kind(), err)}
		}
		out = next
	}
	if err := checkFinite(out.Data...); err != nil {
		return nil, &InferenceError{Model: "neural_network", Err: err}
	}
	return slices.Clone(out.Data), nil
}

// Dense is a fully connected layer over the flattened input.
type Dense struct {
	weights    *mat.Dense
	bias       []float64
	activation Activation
}

// NewDense takes weights as [in][out], the Keras kernel layout.
func NewDense(weights [][]float64, bias []float64, activation Activation) (*Dense, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, errors.New("dense layer has no weights")
	}
	in, out := len(weights), len(weights[0])
	data := make([]float64, 0, in*out)
	for _, row := range weights {
		if len(row) != out {
			return nil, errors.New("dense weights are ragged")
		}
		data = append(data, row...)
	}
	if len(bias) != out {
		return nil, fmt.Errorf("dense bias has %d values for %d units", len(bias), out)
	}
	if !activation.valid() {
		return nil, fmt.Errorf("unknown activation %q", activation)
	}
	return &Dense{weights: mat.NewDense(in, out, data), bias: slices.Clone(bias), activation: activation}, nil
}

func (d *Dense) Kind() string { return "dense" }

func (d *Dense) OutputShape(in []int) ([]int, error) {
	rows, cols := d.weights.Dims()
	if len(in) != 2 || in[0] != 1 || in[1] != rows {
		return nil, fmt.Errorf("expected input [1 %d], got %v", rows, in)
	}
	return []int{1, cols}, nil
}

func (d *Dense) Forward(in *Tensor) (*Tensor, error) {
	shape, err := d.OutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	x := mat.NewDense(1, len(in.Data), in.Data)
	var y mat.Dense
	y.Mul(x, d.weights)
	out := NewTensor(shape...)
	copy(out.Data, y.RawRowView(0))
	for i := range out.Data {
		out.Data[i] += d.bias[i]
	}
	d.activation.apply(out.Data, shape[1])
	return out, nil
}

// Padding follows the Keras "valid" and "same" conventions.
type Padding string

const (
	ValidPadding Padding = "valid"
	SamePadding  Padding = "same"
)

// Conv2D is a 2D convolution over NHWC input.
type Conv2D struct {
	kh, kw, cin, cout int
	kernel            []float64
	bias              []float64
	stride            int
	padding           Padding
	activation        Activation
}

// NewConv2D takes the kernel as [kh][kw][cin][cout].
func NewConv2D(kernel [][][][]float64, bias []float64, stride int, padding Padding, activation Activation) (*Conv2D, error) {
	if len(kernel) == 0 || len(kernel[0]) == 0 || len(kernel[0][0]) == 0 || len(kernel[0][0][0]) == 0 {
		return nil, errors.New("conv2d kernel is empty")
	}
	c := &Conv2D{
		kh:         len(kernel),
		kw:         len(kernel[0]),
		cin:        len(kernel[0][0]),
		cout:       len(kernel[0][0][0]),
		stride:     stride,
		padding:    padding,
		activation: activation,
	}
	if c.stride <= 0 {
		c.stride = 1
	}
	if c.padding == "" {
		c.padding = ValidPadding
	}
	if c.padding != ValidPadding && c.padding != SamePadding {
		return nil, fmt.Errorf("unknown padding %q", padding)
	}
	if !activation.valid() {
		return nil, fmt.Errorf("unknown activation %q", activation)
	}
	if len(bias) != c.cout {
		return nil, fmt.Errorf("conv2d bias has %d values for %d filters", len(bias), c.cout)
	}
	c.kernel = make([]float64, 0, c.kh*c.kw*c.cin*c.cout)
	for _, rows := range kernel {
		if len(rows) != c.kw {
			return nil, errors.New("conv2d kernel is ragged")
		}
		for _, channels := range rows {
			if len(channels) != c.cin {
				return nil, errors.New("conv2d kernel is ragged")
			}
			for _, filters := range channels {
				if len(filters) != c.cout {
					return nil, errors.New("conv2d kernel is ragged")
				}
				c.kernel = append(c.kernel, filters...)
			}
		}
	}
	c.bias = slices.Clone(bias)
	return c, nil
}

func (c *Conv2D) Kind() string { return "conv2d" }

func (c *Conv2D) geometry(h, w int) (oh, ow, padTop, padLeft int) {
	if c.padding == SamePadding {
		oh = (h + c.stride - 1) / c.stride
		ow = (w + c.stride - 1) / c.stride
		padH := max((oh-1)*c.stride+c.kh-h, 0)
		padW := max((ow-1)*c.stride+c.kw-w, 0)
		return oh, ow, padH / 2, padW / 2
	}
	if h < c.kh || w < c.kw {
		return 0, 0, 0, 0
	}
	return (h-c.kh)/c.stride + 1, (w-c.kw)/c.stride + 1, 0, 0
}

func (c *Conv2D) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 || in[0] != 1 || in[3] != c.cin {
		return nil, fmt.Errorf("expected input [1 h w %d], got %v", c.cin, in)
	}
	oh, ow, _, _ := c.geometry(in[1], in[2])
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("input %v smaller than kernel %dx%d", in, c.kh, c.kw)
	}
	return []int{1, oh, ow, c.cout}, nil
}

func (c *Conv2D) Forward(in *Tensor) (*Tensor, error) {
	shape, err := c.OutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	h, w := in.Shape[1], in.Shape[2]
	oh, ow, padTop, padLeft := c.geometry(h, w)
	out := NewTensor(shape...)
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			dst := out.Data[(oy*ow+ox)*c.cout : (oy*ow+ox+1)*c.cout]
			copy(dst, c.bias)
			for ky := 0; ky < c.kh; ky++ {
				iy := oy*c.stride + ky - padTop
				if iy < 0 || iy >= h {
					continue
				}
				for kx := 0; kx < c.kw; kx++ {
					ix := ox*c.stride + kx - padLeft
					if ix < 0 || ix >= w {
						continue
					}
					src := in.Data[(iy*w+ix)*c.cin : (iy*w+ix+1)*c.cin]
					base := (ky*c.kw + kx) * c.cin * c.cout
					for ci, v := range src {
						weights := c.kernel[base+ci*c.cout : base+(ci+1)*c.cout]
						for co, k := range weights {
							dst[co] += v * k
						}
					}
				}
			}
		}
	}
	c.activation.apply(out.Data, c.cout)
	return out, nil
}

// MaxPooling2D takes the maximum of each pool window.
type MaxPooling2D struct {
	pool   int
	stride int
}

func NewMaxPooling2D(pool, stride int) (*MaxPooling2D, error) {
	if pool <= 0 {
		return nil, errors.New("pool size must be positive")
	}
	if stride <= 0 {
		stride = pool
	}
	return &MaxPooling2D{pool: pool, stride: stride}, nil
}

func (p *MaxPooling2D) Kind() string { return "max_pooling2d" }

func (p *MaxPooling2D) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 || in[0] != 1 {
		return nil, fmt.Errorf("expected input [1 h w c], got %v", in)
	}
	if in[1] < p.pool || in[2] < p.pool {
		return nil, fmt.Errorf("input %v smaller than pool %d", in, p.pool)
	}
	return []int{1, (in[1]-p.pool)/p.stride + 1, (in[2]-p.pool)/p.stride + 1, in[3]}, nil
}

func (p *MaxPooling2D) Forward(in *Tensor) (*Tensor, error) {
	shape, err := p.OutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	w, ch := in.Shape[2], in.Shape[3]
	oh, ow := shape[1], shape[2]
	out := NewTensor(shape...)
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			for c := 0; c < ch; c++ {
				best := math.Inf(-1)
				for py := 0; py < p.pool; py++ {
					for px := 0; px < p.pool; px++ {
						iy, ix := oy*p.stride+py, ox*p.stride+px
						best = math.Max(best, in.Data[(iy*w+ix)*ch+c])
					}
				}
				out.Data[(oy*ow+ox)*ch+c] = best
			}
		}
	}
	return out, nil
}

// GlobalAveragePooling2D averages each channel over height and width.
type GlobalAveragePooling2D struct{}

func (GlobalAveragePooling2D) Kind() string { return "global_average_pooling2d" }

func (GlobalAveragePooling2D) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 || in[0] != 1 {
		return nil, fmt.Errorf("expected input [1 h w c], got %v", in)
	}
	return []int{1, in[3]}, nil
}

func (g GlobalAveragePooling2D) Forward(in *Tensor) (*Tensor, error) {
	shape, err := g.OutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	ch := in.Shape[3]
	pixels := in.Shape[1] * in.Shape[2]
	out := NewTensor(shape...)
	for i, v := range in.Data {
		out.Data[i%ch] += v
	}
	for c := range out.Data {
		out.Data[c] /= float64(pixels)
	}
	return out, nil
}

// Flatten keeps the batch dimension and collapses the rest.
type Flatten struct{}

func (Flatten) Kind() string { return "flatten" }

func (Flatten) OutputShape(in []int) ([]int, error) {
	if len(in) < 2 || in[0] != 1 {
		return nil, fmt.Errorf("expected batched input, got %v", in)
	}
	return []int{1, shapeSize(in[1:])}, nil
}

func (f Flatten) Forward(in *Tensor) (*Tensor, error) {
	shape, err := f.OutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	return in.Reshape(shape...)
}
