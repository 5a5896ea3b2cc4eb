//go:build !gocv

package crops

import (
	"image"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// CascadeDetector is unavailable without the gocv build tag.
type CascadeDetector struct{}

// NewCascadeDetector reports that face detection is not compiled in.
func NewCascadeDetector(paths ...string) (*CascadeDetector, error) {
	return nil, imgerr.Unavailablef("face detection needs a build with -tags gocv")
}

func (*CascadeDetector) Detect(image.Image) ([]image.Rectangle, error) {
	return nil, imgerr.Unavailablef("face detection needs a build with -tags gocv")
}

func (*CascadeDetector) Close() error { return nil }

// DetectorAvailable reports whether this build can detect faces.
func DetectorAvailable() bool { return false }
