package crops

import (
	"image"
	"log/slog"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// detectMaxSide bounds the working copy handed to the face detector.
const detectMaxSide = 800

type faceStrategy struct {
	detector FaceDetector
}

// Offsets runs the entropy search with safe zones around every detected
// face, so slices crossing a face are cut last.
func (s faceStrategy) Offsets(src image.Image, width, height int) (int, int, error) {
	_, _, w, h, err := target(src, width, height)
	if err != nil {
		return 0, 0, err
	}
	if s.detector == nil {
		return 0, 0, imgerr.Unavailablef("face crop requires a face detector, none is configured")
	}
	zones, err := SafeZones(src, s.detector)
	if err != nil {
		return 0, 0, err
	}
	x, y := entropyOffsets(src, w, h, zones)
	slog.Debug("face crop", "zones", len(zones), "x", x, "y", y)
	return x, y, nil
}

// SafeZones detects faces on a downscaled copy of src and returns each face
// box grown by half its size on every side, in src coordinates. The result
// belongs to the caller; nothing is cached between calls.
func SafeZones(src image.Image, detector FaceDetector) ([]image.Rectangle, error) {
	b := src.Bounds()
	work := src
	if b.Dx() > detectMaxSide || b.Dy() > detectMaxSide {
		work = resize.Thumbnail(detectMaxSide, detectMaxSide, src, resize.Bilinear)
	}
	faces, err := detector.Detect(work)
	if err != nil {
		if imgerr.KindOf(err) != 0 {
			return nil, err
		}
		return nil, imgerr.WrapBackend(err, "face detection")
	}

	wb := work.Bounds()
	xRatio := float64(b.Dx()) / float64(wb.Dx())
	yRatio := float64(b.Dy()) / float64(wb.Dy())

	zones := make([]image.Rectangle, 0, len(faces))
	for _, f := range faces {
		f = f.Sub(wb.Min)
		hw := ceilDiv(f.Dx(), 2)
		hh := ceilDiv(f.Dy(), 2)
		zones = append(zones, image.Rect(
			int(math.Round(float64(f.Min.X-hw)*xRatio)),
			int(math.Round(float64(f.Min.Y-hh)*yRatio)),
			int(math.Round(float64(f.Max.X+hw)*xRatio)),
			int(math.Round(float64(f.Max.Y+hh)*yRatio)),
		))
	}
	return zones, nil
}

// DetectorFunc adapts a function to FaceDetector.
type DetectorFunc func(img image.Image) ([]image.Rectangle, error)

func (f DetectorFunc) Detect(img image.Image) ([]image.Rectangle, error) {
	if f == nil {
		return nil, errors.New("nil detector func")
	}
	return f(img)
}
