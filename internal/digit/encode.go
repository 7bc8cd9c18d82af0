package digit

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Encode serializes a normalized digit as PNG. PNG is lossless, so the
// inference service decodes exactly the pixels produced by Normalize.
func Encode(img *image.Gray) ([]byte, error) {
	if img == nil || img.Bounds().Dx() != Size || img.Bounds().Dy() != Size {
		return nil, ErrShape
	}

	var buf bytes.Buffer

	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode reads a payload produced by Encode back into a grayscale grid.
func Decode(payload []byte) (*image.Gray, error) {
	img, err := imaging.Decode(bytes.NewReader(payload))

	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == image.Pt(0, 0) {
		return gray, nil
	}

	return toGray(imaging.Grayscale(img)), nil
}
