package crops

import (
	"image"
	"log/slog"

	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

// potentialRatio forces a cut on the side whose safe-zone potential is at
// least this many times smaller than the other side's.
const potentialRatio = 1.5

// sliceDivisions controls the slice size: (source - target) / sliceDivisions.
const sliceDivisions = 25

type entropyStrategy struct{}

func (entropyStrategy) Offsets(src image.Image, width, height int) (int, int, error) {
	srcW, srcH, w, h, err := target(src, width, height)
	if err != nil {
		return 0, 0, err
	}
	x, y := entropyOffsets(src, w, h, nil)
	slog.Debug("entropy crop", "src", [2]int{srcW, srcH}, "target", [2]int{w, h}, "x", x, "y", y)
	return x, y, nil
}

// entropyOffsets runs the slicing search on both axes. zones are safe zones
// in source coordinates; slices touching them gain potential.
func entropyOffsets(src image.Image, w, h int, zones []image.Rectangle) (int, int) {
	img := soften(measure(src, entropyThreshold))
	b := img.Bounds()
	x := slice(img, b.Dx(), w, true, zones)
	y := slice(img, b.Dy(), h, false, zones)
	return x, y
}

// slice shrinks the window [top, bottom) along one axis until it equals
// targetSize, each step dropping the slice with less detail from one end.
// horizontal selects the x axis, where slices are full-height columns.
func slice(img *image.NRGBA, originalSize, targetSize int, horizontal bool, zones []image.Rectangle) int {
	if targetSize >= originalSize {
		return 0
	}
	region := func(start, end int) image.Rectangle {
		if horizontal {
			return image.Rect(start, 0, end, img.Bounds().Dy())
		}
		return image.Rect(0, start, img.Bounds().Dx(), end)
	}

	sliceSize := ceilDiv(originalSize-targetSize, sliceDivisions)
	top, bottom := 0, originalSize

	// cached entropies of the current end slices, keyed by their region
	var aRect, bRect image.Rectangle
	var aEnt, bEnt float64

	for bottom-top > targetSize {
		sliceSize = min(bottom-top-targetSize, sliceSize)

		if r := region(top, top+sliceSize); r != aRect {
			aRect, aEnt = r, stdimg.RegionEntropy(img, r)
		}
		if r := region(bottom-sliceSize, bottom); r != bRect {
			bRect, bEnt = r, stdimg.RegionEntropy(img, r)
		}

		aPot := potential(zones, horizontal, top, top+sliceSize)
		bPot := potential(zones, horizontal, bottom-sliceSize, bottom)
		canCutA := aPot <= 0
		canCutB := bPot <= 0

		// neither side is free: force a cut when one side matters far less
		if !canCutA && !canCutB {
			if float64(aPot)*potentialRatio < float64(bPot) {
				canCutA = true
			} else if float64(aPot) > float64(bPot)*potentialRatio {
				canCutB = true
			}
		}

		switch {
		case canCutA && !canCutB:
			top += sliceSize
		case canCutB && !canCutA:
			bottom -= sliceSize
		case aEnt < bEnt:
			top += sliceSize
		default:
			bottom -= sliceSize
		}
	}
	return top
}

// potential of the slice [start, end) is the largest cross-axis extent of any
// safe zone it overlaps. Zone bounds are treated as inclusive.
func potential(zones []image.Rectangle, horizontal bool, start, end int) int {
	best := 0
	for _, z := range zones {
		lo, hi, extent := z.Min.Y, z.Max.Y, z.Dx()
		if horizontal {
			lo, hi, extent = z.Min.X, z.Max.X, z.Dy()
		}
		if lo <= end-1 && hi >= start {
			best = max(best, extent)
		}
	}
	return best
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
