package crops

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

// Black thresholds for the measurement images. Channels darker than the
// threshold become pure black.
const (
	entropyThreshold  = 0x07
	balancedThreshold = 0x10
)

// measure builds an edge-density proxy of src: edges enhanced, grayscale,
// then a black threshold. src is not modified.
func measure(src image.Image, threshold uint8) *image.NRGBA {
	edges := effect.EdgeDetection(src, 1)
	gray := effect.Grayscale(edges)
	out := adjust.Apply(gray, func(c color.RGBA) color.RGBA {
		if c.R < threshold {
			c.R = 0
		}
		if c.G < threshold {
			c.G = 0
		}
		if c.B < threshold {
			c.B = 0
		}
		c.A = 255
		return c
	})
	return stdimg.ToNRGBA(out)
}

// soften blurs a measurement image; entropy slicing behaves better on it.
func soften(m *image.NRGBA) *image.NRGBA {
	return stdimg.ToNRGBA(blur.Gaussian(m, 3))
}
