package stdimg

import (
	"image"
	"math"
)

// GrayHistogram counts the pixels of src per luma value (0..255) using the
// weights 0.299, 0.587 and 0.114.
func GrayHistogram(src image.Image) [256]int {
	var hist [256]int
	if src == nil {
		return hist
	}
	n := ToNRGBA(src)
	for i := 0; i < len(n.Pix); i += 4 {
		hist[Luma(n.Pix[i], n.Pix[i+1], n.Pix[i+2])]++
	}
	return hist
}

// Luma converts an RGB triple to its gray level.
func Luma(r, g, b uint8) uint8 {
	return clampFloatToUint8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

// Entropy returns the Shannon entropy, in bits, of a histogram covering area
// pixels. Empty buckets contribute nothing.
func Entropy(hist [256]int, area int) float64 {
	if area <= 0 {
		return 0
	}
	value := 0.0
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(area)
		value += p * math.Log2(p)
	}
	return -value
}

// RegionEntropy is Entropy of the gray histogram of r within src.
func RegionEntropy(src *image.NRGBA, r image.Rectangle) float64 {
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return 0
	}
	var hist [256]int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := src.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			hist[Luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])]++
			i += 4
		}
	}
	return Entropy(hist, r.Dx()*r.Dy())
}
