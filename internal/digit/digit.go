// Package digit turns a freehand canvas drawing into the 28x28 grayscale
// image an MNIST-style classifier expects.
package digit

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Size is the edge length of a normalized digit image.
const Size = 28

// MaxCanvasSize bounds the width and height of an accepted drawing.
const MaxCanvasSize = 4096

var (
	// ErrNoDrawing is returned when there is no bitmap to normalize.
	ErrNoDrawing = errors.New("no drawing")

	// ErrShape is returned when an image is not Size x Size.
	ErrShape = fmt.Errorf("image must be %dx%d", Size, Size)

	// ErrTooLarge is returned for drawings wider or taller than MaxCanvasSize.
	ErrTooLarge = fmt.Errorf("drawing exceeds %dx%d", MaxCanvasSize, MaxCanvasSize)
)

// Normalize composites src over a white background, reduces it to luminance
// and resamples it to exactly Size x Size. src is never modified.
func Normalize(src image.Image, options ...Option) (*image.Gray, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrNoDrawing
	}

	cfg := &config{
		filter: Lanczos,
	}

	for _, option := range options {
		option(cfg)
	}

	gray := flatten(src)

	return cfg.filter.resample(gray), nil
}

// flatten treats transparent pixels as white, the background the
// classifier was trained on.
func flatten(src image.Image) *image.Gray {
	bounds := src.Bounds()

	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	composed := imaging.Overlay(background, src, image.Pt(0, 0), 1.0)

	return toGray(imaging.Grayscale(composed))
}

// toGray keeps the red channel of an NRGBA image whose channels are already
// equal (the output of imaging.Grayscale or of resampling such an image).
func toGray(src *image.NRGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		row := src.Pix[y*src.Stride:]

		for x := 0; x < bounds.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = row[x*4]
		}
	}

	return dst
}

// FromRGBA wraps a raw, non-premultiplied RGBA buffer as it comes out of a
// browser canvas.
func FromRGBA(width, height int, pix []byte) (*image.NRGBA, error) {
	if err := CheckBounds(width, height); err != nil {
		return nil, err
	}

	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("expected %d bytes for a %dx%d RGBA bitmap, got %d", width*height*4, width, height, len(pix))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)

	return img, nil
}

// CheckBounds reports whether a width x height drawing can be accepted
// before any pixel memory is allocated for it.
func CheckBounds(width, height int) error {
	if width < 1 || height < 1 {
		return ErrNoDrawing
	}

	if width > MaxCanvasSize || height > MaxCanvasSize {
		return ErrTooLarge
	}

	return nil
}
