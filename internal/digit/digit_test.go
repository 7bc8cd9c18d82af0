package digit_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/Brownie44l1/digit-pad/internal/digit"

	"github.com/stretchr/testify/require"
)

// canvas mimics the drawing surface: transparent background with opaque
// black strokes.
func canvas(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

func stroke(img *image.NRGBA, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 0xff})
		}
	}
}

// seven draws a thick "7" on a 280x280 canvas.
func seven() *image.NRGBA {
	img := canvas(280, 280)

	stroke(img, 60, 50, 220, 80)

	for i := 0; i < 180; i++ {
		x := 200 - i*100/180
		stroke(img, x, 80+i, x+30, 81+i)
	}

	return img
}

func TestNormalizeShape(t *testing.T) {
	for _, filter := range []digit.Filter{digit.Lanczos, digit.CatmullRom, digit.Box} {
		for _, r := range []image.Rectangle{
			image.Rect(0, 0, 1, 1),
			image.Rect(0, 0, 28, 28),
			image.Rect(0, 0, 280, 280),
			image.Rect(0, 0, 13, 57),
			image.Rect(5, 7, 505, 27),
		} {
			t.Run(filter.String()+"/"+r.String(), func(t *testing.T) {
				src := image.NewNRGBA(r)

				result, err := digit.Normalize(src, digit.WithFilter(filter))
				require.NoError(t, err)

				require.Equal(t, image.Rect(0, 0, digit.Size, digit.Size), result.Bounds())
				require.Len(t, result.Pix, digit.Size*digit.Size)
			})
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	src := seven()

	for _, filter := range []digit.Filter{digit.Lanczos, digit.CatmullRom, digit.Box} {
		t.Run(filter.String(), func(t *testing.T) {
			a, err := digit.Normalize(src, digit.WithFilter(filter))
			require.NoError(t, err)

			b, err := digit.Normalize(src, digit.WithFilter(filter))
			require.NoError(t, err)

			require.Equal(t, a.Pix, b.Pix)
		})
	}
}

func TestNormalizeTransparentIsWhite(t *testing.T) {
	result, err := digit.Normalize(canvas(280, 280))
	require.NoError(t, err)

	for _, v := range result.Pix {
		require.Equal(t, uint8(255), v)
	}

	for _, filter := range []digit.Filter{digit.CatmullRom, digit.Box} {
		result, err := digit.Normalize(canvas(280, 280), digit.WithFilter(filter))
		require.NoError(t, err)

		for _, v := range result.Pix {
			require.GreaterOrEqual(t, v, uint8(250))
		}
	}
}

func TestNormalizeStroke(t *testing.T) {
	result, err := digit.Normalize(seven())
	require.NoError(t, err)

	// top bar of the seven
	require.Less(t, result.GrayAt(14, 6).Y, uint8(64))

	// corners stay background
	require.Greater(t, result.GrayAt(0, 27).Y, uint8(240))
	require.Greater(t, result.GrayAt(27, 27).Y, uint8(240))
}

func TestNormalizeLuminance(t *testing.T) {
	src := canvas(28, 28)

	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = 255
		src.Pix[i+3] = 255
	}

	result, err := digit.Normalize(src)
	require.NoError(t, err)

	// 0.299 * 255
	require.InDelta(t, 76, int(result.GrayAt(10, 10).Y), 1)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	src := seven()
	before := append([]uint8(nil), src.Pix...)

	_, err := digit.Normalize(src)
	require.NoError(t, err)

	require.Equal(t, before, src.Pix)
}

func TestNormalizeNoDrawing(t *testing.T) {
	_, err := digit.Normalize(nil)
	require.ErrorIs(t, err, digit.ErrNoDrawing)

	_, err = digit.Normalize(image.NewNRGBA(image.Rectangle{}))
	require.ErrorIs(t, err, digit.ErrNoDrawing)
}

func TestFromRGBA(t *testing.T) {
	pix := make([]byte, 2*3*4)
	pix[3] = 0xff

	img, err := digit.FromRGBA(2, 3, pix)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 3), img.Bounds())
	require.Equal(t, color.NRGBA{A: 0xff}, img.NRGBAAt(0, 0))

	pix[3] = 0
	require.Equal(t, uint8(0xff), img.Pix[3], "buffer must be copied")

	_, err = digit.FromRGBA(2, 3, pix[:5])
	require.Error(t, err)

	_, err = digit.FromRGBA(0, 3, nil)
	require.ErrorIs(t, err, digit.ErrNoDrawing)

	// width*height*4 wraps to zero on 64-bit ints.
	_, err = digit.FromRGBA(1<<31, 1<<31, nil)
	require.ErrorIs(t, err, digit.ErrTooLarge)

	_, err = digit.FromRGBA(digit.MaxCanvasSize+1, 1, make([]byte, (digit.MaxCanvasSize+1)*4))
	require.ErrorIs(t, err, digit.ErrTooLarge)
}

func TestFilterValid(t *testing.T) {
	require.True(t, digit.Lanczos.Valid())
	require.True(t, digit.CatmullRom.Valid())
	require.True(t, digit.Box.Valid())
	require.False(t, digit.Filter(99).Valid())
	require.False(t, digit.Filter(-1).Valid())
}

func TestParseFilter(t *testing.T) {
	for name, expected := range map[string]digit.Filter{
		"":           digit.Lanczos,
		"Lanczos":    digit.Lanczos,
		"catmullrom": digit.CatmullRom,
		"box":        digit.Box,
		"area":       digit.Box,
	} {
		f, err := digit.ParseFilter(name)
		require.NoError(t, err, name)
		require.Equal(t, expected, f, name)
	}

	for _, name := range []string{"nearest", "nearest-neighbor", "point"} {
		_, err := digit.ParseFilter(name)
		require.Error(t, err, name)
	}
}
