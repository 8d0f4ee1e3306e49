package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 200, A: 255})
		}
	}
	return img
}

func TestImageAdapterShapes(t *testing.T) {
	data := encodePNG(t, gradient(60, 40))

	flat := ImageAdapter{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout}
	tensor, err := flat.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 784}, tensor.Shape)
	assert.Equal(t, []int{784}, flat.InputShape())

	nhwc := ImageAdapter{Width: 224, Height: 224, Mode: RGB, Layout: NHWCLayout}
	tensor, err = nhwc.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 224, 224, 3}, tensor.Shape)
	assert.Equal(t, 224*224*3, tensor.Len())
	for _, v := range tensor.Data {
		require.True(t, v >= 0 && v <= 1, "value %v outside [0, 1]", v)
	}
}

func TestImageAdapterDeterministic(t *testing.T) {
	data := encodePNG(t, gradient(50, 70))
	adapter := ImageAdapter{Width: 224, Height: 224, Mode: RGB, Layout: NHWCLayout}

	first, err := adapter.Transform(data)
	require.NoError(t, err)
	second, err := adapter.Transform(data)
	require.NoError(t, err)
	assert.True(t, first.Identical(second))
}

func TestImageAdapterAcceptsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(32, 32), nil))
	adapter := ImageAdapter{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout}
	_, err := adapter.Transform(buf.Bytes())
	assert.NoError(t, err)
}

func TestImageAdapterGrayscaleScale(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 28, 28))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	adapter := ImageAdapter{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout}
	tensor, err := adapter.TransformImage(img)
	require.NoError(t, err)
	for _, v := range tensor.Data {
		require.InDelta(t, 1.0, v, 1.0/255)
	}
}

func TestImageAdapterRejectsBadInput(t *testing.T) {
	adapter := ImageAdapter{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout}

	_, err := adapter.Transform(nil)
	var imgErr *ImageError
	require.ErrorAs(t, err, &imgErr)
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = adapter.Transform([]byte("definitely not an image"))
	assert.ErrorAs(t, err, &imgErr)
}

func TestImageAdapterKeepsColourOfTransparentPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 28, 28))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []uint8{255, 255, 255, 0})
	}
	data := encodePNG(t, img)

	for _, adapter := range []ImageAdapter{
		{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout},
		{Width: 224, Height: 224, Mode: RGB, Layout: NHWCLayout},
	} {
		tensor, err := adapter.Transform(data)
		require.NoError(t, err)
		for _, v := range tensor.Data {
			require.InDelta(t, 1.0, v, 1.0/255)
		}
	}
}

func TestImageAdapterGrayscaleLuma(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []uint8{255, 0, 0, 255})
	}
	adapter := ImageAdapter{Width: 4, Height: 4, Mode: Grayscale, Layout: FlatLayout}
	tensor, err := adapter.TransformImage(img)
	require.NoError(t, err)
	for _, v := range tensor.Data {
		require.InDelta(t, 76.0/255, v, 1.0/255)
	}
}

// pngHeader returns a PNG holding only the signature and an IHDR chunk for
// an 8-bit grayscale image of the given size.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth; colour type and methods stay zero
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestImageAdapterRejectsOversizedImage(t *testing.T) {
	adapter := ImageAdapter{Width: 224, Height: 224, Mode: RGB, Layout: NHWCLayout}

	// only the header is present, so a decode attempt would fail differently
	_, err := adapter.Transform(pngHeader(12000, 12000))
	var imgErr *ImageError
	require.ErrorAs(t, err, &imgErr)
	assert.Contains(t, err.Error(), "12000x12000")

	small := ImageAdapter{Width: 28, Height: 28, Mode: Grayscale, Layout: FlatLayout, MaxPixels: 10_000}
	blank := encodePNG(t, image.NewGray(image.Rect(0, 0, 200, 200)))
	_, err = small.Transform(blank)
	require.ErrorAs(t, err, &imgErr)
	assert.Contains(t, err.Error(), "more than 10000 pixels")

	small.MaxPixels = 200 * 200
	_, err = small.Transform(blank)
	assert.NoError(t, err)
}
