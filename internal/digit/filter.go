package digit

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Filter is an anti-aliasing resampling filter. Nearest-neighbour is not
// available: it breaks thin strokes apart at 28x28.
type Filter int

const (
	Lanczos Filter = iota
	CatmullRom
	Box
)

func (f Filter) String() string {
	switch f {
	case Lanczos:
		return "lanczos"
	case CatmullRom:
		return "catmullrom"
	case Box:
		return "box"
	}

	return fmt.Sprintf("Filter(%d)", int(f))
}

func (f Filter) Valid() bool {
	return f >= Lanczos && f <= Box
}

func ParseFilter(name string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos", "lanczos3":
		return Lanczos, nil
	case "catmullrom", "catmull-rom", "bicubic":
		return CatmullRom, nil
	case "box", "area":
		return Box, nil
	}

	return Lanczos, fmt.Errorf("unsupported resampling filter %q", name)
}

func (f Filter) resample(src *image.Gray) *image.Gray {
	switch f {
	case CatmullRom:
		dst := image.NewGray(image.Rect(0, 0, Size, Size))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		return dst

	case Box:
		return toGray(imaging.Resize(src, Size, Size, imaging.Box))

	default:
		resized := resize.Resize(Size, Size, src, resize.Lanczos3)

		if gray, ok := resized.(*image.Gray); ok {
			return gray
		}

		return toGray(imaging.Clone(resized))
	}
}

type config struct {
	filter Filter
}

type Option func(*config)

func WithFilter(filter Filter) Option {
	return func(c *config) {
		c.filter = filter
	}
}
