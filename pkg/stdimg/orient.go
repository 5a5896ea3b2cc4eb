package stdimg

import (
	"image"
)

// Flip mirrors src vertically (top row becomes bottom row).
func Flip(src *image.NRGBA) *image.NRGBA {
	return remap(src, false, func(x, y, w, h int) (int, int) { return x, h - 1 - y })
}

// Flop mirrors src horizontally.
func Flop(src *image.NRGBA) *image.NRGBA {
	return remap(src, false, func(x, y, w, h int) (int, int) { return w - 1 - x, y })
}

// Rotate180 turns src upside down.
func Rotate180(src *image.NRGBA) *image.NRGBA {
	return remap(src, false, func(x, y, w, h int) (int, int) { return w - 1 - x, h - 1 - y })
}

// Rotate90 turns src a quarter clockwise.
func Rotate90(src *image.NRGBA) *image.NRGBA {
	return remap(src, true, func(x, y, w, h int) (int, int) { return h - 1 - y, x })
}

// Rotate270 turns src a quarter counter-clockwise.
func Rotate270(src *image.NRGBA) *image.NRGBA {
	return remap(src, true, func(x, y, w, h int) (int, int) { return y, w - 1 - x })
}

// RightAngle rotates src clockwise by a multiple of 90 degrees. ok is false
// when degrees is not such a multiple.
func RightAngle(src *image.NRGBA, degrees int) (out *image.NRGBA, ok bool) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return CloneNRGBA(src), true
	case 90:
		return Rotate90(src), true
	case 180:
		return Rotate180(src), true
	case 270:
		return Rotate270(src), true
	}
	return nil, false
}

// remap copies every pixel of src to the destination coordinate given by dst.
// With swap the output has transposed dimensions.
func remap(src *image.NRGBA, swap bool, dst func(x, y, w, h int) (int, int)) *image.NRGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	rect := image.Rect(0, 0, w, h)
	if swap {
		rect = image.Rect(0, 0, h, w)
	}
	out := image.NewNRGBA(rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := dst(x, y, w, h)
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(dx, dy)
			copy(out.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return out
}
