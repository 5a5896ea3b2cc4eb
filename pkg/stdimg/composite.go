package stdimg

import (
	"image"
)

// Over composites src onto dst with its top-left corner at (xoff, yoff),
// honouring the alpha of both images. Pixels of src falling outside dst are
// ignored. dst is modified in place and returned.
func Over(dst *image.NRGBA, src image.Image, xoff, yoff int) *image.NRGBA {
	if dst == nil || src == nil {
		return dst
	}
	srcNR := ToNRGBA(src)
	dstB := dst.Bounds()
	srcB := srcNR.Bounds()

	startX := max(dstB.Min.X, xoff)
	startY := max(dstB.Min.Y, yoff)
	endX := min(dstB.Max.X, xoff+srcB.Dx())
	endY := min(dstB.Max.Y, yoff+srcB.Dy())
	if startX >= endX || startY >= endY {
		return dst
	}

	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			si := srcNR.PixOffset(x-xoff, y-yoff)
			di := dst.PixOffset(x, y)
			sa := float64(srcNR.Pix[si+3]) / 255.0
			if sa == 0 {
				continue
			}
			da := float64(dst.Pix[di+3]) / 255.0
			outA := sa + da*(1-sa)
			for c := 0; c < 3; c++ {
				sc := float64(srcNR.Pix[si+c])
				dc := float64(dst.Pix[di+c])
				dst.Pix[di+c] = clampFloatToUint8((sc*sa + dc*da*(1-sa)) / outA)
			}
			dst.Pix[di+3] = clampFloatToUint8(outA * 255.0)
		}
	}
	return dst
}

// ScaleAlpha multiplies the alpha channel of a copy of src by factor.
func ScaleAlpha(src *image.NRGBA, factor float64) *image.NRGBA {
	out := CloneNRGBA(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampFloatToUint8(float64(out.Pix[i]) * factor)
	}
	return out
}
