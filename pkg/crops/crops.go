// Package crops implements the content-aware crop strategies. Each strategy
// is a pure function of the source pixels and the target size: it returns
// the top-left corner of the box that keeps the most interesting content, and
// never modifies the image it is given.
package crops

import (
	"image"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// Strategy names, matched case-insensitively.
const (
	Entropy  = "Entropy"
	Balanced = "Balanced"
	Face     = "Face"
	Smart    = "Smart"
)

// legacyPrefix marks the constant-style names accepted in transform strings,
// for example CROP_ENTROPY.
const legacyPrefix = "CROP_"

var names = []string{Entropy, Balanced, Face, Smart}

// Strategy computes crop offsets.
type Strategy interface {
	// Offsets returns (x, y) with 0 <= x <= srcW-width and 0 <= y <= srcH-height.
	// A target larger than the source on an axis yields 0 on that axis.
	Offsets(src image.Image, width, height int) (x, y int, err error)
}

// FaceDetector finds face bounding boxes in img coordinates.
type FaceDetector interface {
	Detect(img image.Image) ([]image.Rectangle, error)
}

// Options configures strategy construction.
type Options struct {
	// Faces backs the Face strategy. Without it Face is unavailable.
	Faces FaceDetector
	// Seed drives the pixel sampling of Balanced.
	Seed int64
}

// Normalize maps a strategy name, including the CROP_ forms, to its
// canonical spelling. ok is false for anything that is not a strategy.
func Normalize(name string) (canonical string, ok bool) {
	n := strings.TrimSpace(name)
	if len(n) > len(legacyPrefix) && strings.EqualFold(n[:len(legacyPrefix)], legacyPrefix) {
		n = n[len(legacyPrefix):]
	}
	for _, s := range names {
		if strings.EqualFold(n, s) {
			return s, true
		}
	}
	return "", false
}

// Names lists the canonical strategy names.
func Names() []string {
	return append([]string(nil), names...)
}

// New returns the strategy called name.
func New(name string, opts Options) (Strategy, error) {
	canonical, ok := Normalize(name)
	if !ok {
		return nil, imgerr.Configurationf("unknown crop strategy %q (known: %s)", name, strings.Join(names, ", "))
	}
	switch canonical {
	case Entropy:
		return entropyStrategy{}, nil
	case Balanced:
		return balancedStrategy{seed: opts.Seed}, nil
	case Face:
		if opts.Faces == nil {
			return nil, imgerr.Unavailablef("face crop requires a face detector, none is configured")
		}
		return faceStrategy{detector: opts.Faces}, nil
	default:
		return smartStrategy{}, nil
	}
}

// Offsets is a convenience wrapper around New and Strategy.Offsets.
func Offsets(src image.Image, width, height int, name string, opts Options) (int, int, error) {
	s, err := New(name, opts)
	if err != nil {
		return 0, 0, err
	}
	return s.Offsets(src, width, height)
}

// target validates the request and clamps it to the source size.
func target(src image.Image, width, height int) (srcW, srcH, w, h int, err error) {
	if src == nil {
		return 0, 0, 0, 0, imgerr.NotLoadedf("no source image for crop analysis")
	}
	b := src.Bounds()
	if b.Empty() {
		return 0, 0, 0, 0, imgerr.Geometryf("empty source image")
	}
	if width <= 0 || height <= 0 {
		return 0, 0, 0, 0, imgerr.Geometryf("invalid crop size %dx%d", width, height)
	}
	return b.Dx(), b.Dy(), min(width, b.Dx()), min(height, b.Dy()), nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
