package digit_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/Brownie44l1/digit-pad/internal/digit"

	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	normalized, err := digit.Normalize(seven())
	require.NoError(t, err)

	payload, err := digit.Encode(normalized)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("\x89PNG\r\n\x1a\n")))

	decoded, err := digit.Decode(payload)
	require.NoError(t, err)

	require.Equal(t, normalized.Bounds(), decoded.Bounds())

	for y := 0; y < digit.Size; y++ {
		for x := 0; x < digit.Size; x++ {
			require.Equal(t, normalized.GrayAt(x, y), decoded.GrayAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	normalized, err := digit.Normalize(seven())
	require.NoError(t, err)

	a, err := digit.Encode(normalized)
	require.NoError(t, err)

	b, err := digit.Encode(normalized)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestEncodeRejectsShape(t *testing.T) {
	_, err := digit.Encode(image.NewGray(image.Rect(0, 0, 27, 28)))
	require.ErrorIs(t, err, digit.ErrShape)

	_, err = digit.Encode(nil)
	require.ErrorIs(t, err, digit.ErrShape)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := digit.Decode([]byte("not a png"))
	require.Error(t, err)
}
