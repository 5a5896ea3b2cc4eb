//go:build gocv

package crops

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// CascadeDetector finds faces with one or more Haar cascades, typically a
// frontal and a profile classifier. Detect is safe for concurrent use.
type CascadeDetector struct {
	mu          sync.Mutex
	classifiers []gocv.CascadeClassifier
}

// NewCascadeDetector loads every cascade XML file in paths.
func NewCascadeDetector(paths ...string) (*CascadeDetector, error) {
	if len(paths) == 0 {
		return nil, imgerr.Configurationf("no face cascade files configured")
	}
	d := &CascadeDetector{}
	for _, p := range paths {
		c := gocv.NewCascadeClassifier()
		if !c.Load(p) {
			c.Close()
			d.Close()
			return nil, imgerr.Configurationf("cannot load face cascade %q", p)
		}
		d.classifiers = append(d.classifiers, c)
	}
	return d, nil
}

// Detect returns the union of the boxes found by every cascade.
func (d *CascadeDetector) Detect(img image.Image) ([]image.Rectangle, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, imgerr.WrapBackend(err, "convert image for face detection")
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	d.mu.Lock()
	defer d.mu.Unlock()
	var faces []image.Rectangle
	for i := range d.classifiers {
		faces = append(faces, d.classifiers[i].DetectMultiScale(gray)...)
	}
	return faces, nil
}

// Close releases the classifiers.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.classifiers {
		d.classifiers[i].Close()
	}
	d.classifiers = nil
	return nil
}

// DetectorAvailable reports whether this build can detect faces.
func DetectorAvailable() bool { return true }
