package features

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"modeldemos/ml"
)

// ColorMode is the colour space the model expects.
type ColorMode int

const (
	Grayscale ColorMode = iota
	RGB
)

// Channels is 1 for Grayscale and 3 for RGB.
func (m ColorMode) Channels() int {
	if m == RGB {
		return 3
	}
	return 1
}

// TensorLayout is the shape of the produced tensor.
type TensorLayout int

const (
	// FlatLayout produces [1, H*W*C].
	FlatLayout TensorLayout = iota
	// NHWCLayout produces [1, H, W, C].
	NHWCLayout
)

var ErrEmptyImage = errors.New("empty image")

// DefaultMaxPixels caps the decoded size of an upload when an adapter sets
// no MaxPixels of its own.
const DefaultMaxPixels = 25_000_000

// ImageAdapter converts an uploaded image into a model input tensor: convert
// the colour mode, resample to Width x Height, multiply each 0..255 channel
// value by Scale, then lay it out with a batch dimension of 1.
type ImageAdapter struct {
	Width  int
	Height int
	Mode   ColorMode
	Layout TensorLayout
	Scale  float64
	// MaxPixels rejects uploads whose width x height exceeds it before any
	// pixel data is decoded. Zero means DefaultMaxPixels.
	MaxPixels int
}

// InputShape is the tensor shape without the batch dimension.
func (a ImageAdapter) InputShape() []int {
	c := a.Mode.Channels()
	if a.Layout == NHWCLayout {
		return []int{a.Height, a.Width, c}
	}
	return []int{a.Height * a.Width * c}
}

func (a ImageAdapter) maxPixels() int64 {
	if a.MaxPixels > 0 {
		return int64(a.MaxPixels)
	}
	return DefaultMaxPixels
}

// Transform decodes a PNG or JPEG upload and converts it. The header is
// checked against the pixel budget first.
func (a ImageAdapter) Transform(data []byte) (*ml.Tensor, error) {
	if len(data) == 0 {
		return nil, &ImageError{Err: ErrEmptyImage}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageError{Err: err}
	}
	if format != "png" && format != "jpeg" {
		return nil, &ImageError{Err: fmt.Errorf("unsupported format %q", format)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ImageError{Err: ErrEmptyImage}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > a.maxPixels() {
		return nil, &ImageError{Err: fmt.Errorf("image is %dx%d, more than %d pixels", cfg.Width, cfg.Height, a.maxPixels())}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageError{Err: err}
	}
	return a.TransformImage(img)
}

// TransformImage converts an already decoded image.
func (a ImageAdapter) TransformImage(img image.Image) (*ml.Tensor, error) {
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", a.Width, a.Height)
	}
	if img.Bounds().Empty() {
		return nil, &ImageError{Err: ErrEmptyImage}
	}
	scale := a.Scale
	if scale == 0 {
		scale = 1.0 / 255.0
	}
	target := image.Rect(0, 0, a.Width, a.Height)
	channels := a.Mode.Channels()
	shape := append([]int{1}, a.InputShape()...)
	out := ml.NewTensor(shape...)

	// colour conversion happens before resampling; alpha is dropped and the
	// stored RGB kept, so a transparent pixel keeps its colour
	src := opaque(img)
	if a.Mode == Grayscale {
		gray := luma(src)
		resized := image.NewGray(target)
		draw.CatmullRom.Scale(resized, target, gray, gray.Bounds(), draw.Src, nil)
		for y := 0; y < a.Height; y++ {
			for x := 0; x < a.Width; x++ {
				out.Data[y*a.Width+x] = float64(resized.Pix[resized.PixOffset(x, y)]) * scale
			}
		}
		return out, nil
	}

	resized := image.NewNRGBA(target)
	draw.CatmullRom.Scale(resized, target, src, src.Bounds(), draw.Src, nil)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			from := resized.PixOffset(x, y)
			dst := (y*a.Width + x) * channels
			for c := 0; c < channels; c++ {
				out.Data[dst+c] = float64(resized.Pix[from+c]) * scale
			}
		}
	}
	return out, nil
}

// opaque copies img into a zero-origin NRGBA with every alpha set to 255,
// keeping the non-premultiplied colour of each pixel.
func opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgbaAt(img, x, y)
			c.A = 0xff
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	switch m := img.(type) {
	case *image.NRGBA:
		return m.NRGBAAt(x, y)
	case *image.NRGBA64:
		c := m.NRGBA64At(x, y)
		return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// luma uses the ITU-R 601-2 weights in 16.16 fixed point.
func luma(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			l := (uint32(c.R)*19595 + uint32(c.G)*38470 + uint32(c.B)*7471 + 0x8000) >> 16
			out.Pix[out.PixOffset(x, y)] = uint8(l)
		}
	}
	return out
}
