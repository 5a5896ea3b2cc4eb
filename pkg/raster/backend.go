// Package raster defines the capability contract every imaging engine
// implements, the settings shared by all engines and the adapter registry
// used to pick one by name.
package raster

import (
	"image"
	"image/color"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// Backend is a decoded image owned by one engine. Geometry arguments are
// already resolved to absolute pixels and validated by the caller.
//
// After Close, or when decoding never succeeded, every method fails with an
// error matching imgerr.ErrNotLoaded. A Backend is not safe for concurrent
// use.
type Backend interface {
	Size() (width, height int, err error)
	MimeType() (string, error)

	// Format switches the output encoding. Converting to a format without
	// alpha flattens onto the configured background.
	Format(format string) error
	// Resize stretches the image to exactly width x height.
	Resize(width, height int) error
	Crop(width, height, x, y int) error
	// Rotate turns the image clockwise by degrees. Uncovered corners are
	// transparent, or background for formats without alpha.
	Rotate(degrees int) error
	// Flip mirrors vertically, Flop horizontally.
	Flip() error
	Flop() error
	// Watermark composites overlay with its top-left corner at (x, y),
	// respecting the overlay's own alpha.
	Watermark(overlay Backend, x, y int) error
	// Opacity scales the alpha channel by percent/100.
	Opacity(percent int) error
	// Blur smooths the image loops times; dimensions are unchanged.
	Blur(loops int) error

	SetCompressionQuality(quality int) error
	SetBackground(c color.NRGBA) error
	SetAnimated(animated bool) error
	SetProgressive(progressive bool) error

	// CropOffsets runs the named crop strategy and returns the top-left
	// corner of the best width x height box.
	CropOffsets(width, height int, method string) (x, y int, err error)

	Save(path string) error
	Bytes() ([]byte, error)
	// Image returns a snapshot of the current (first) frame.
	Image() (image.Image, error)
	Close() error
}

// Options are handed to a backend factory when an image is loaded.
type Options struct {
	Crop crops.Options
}

// Settings holds the output configuration shared by every backend.
type Settings struct {
	Quality     int
	Background  color.NRGBA
	Animated    bool
	Progressive bool
}

// DefaultQuality is the compression quality used until one is set.
const DefaultQuality = 86

// DefaultSettings returns quality 86 on an opaque white background.
func DefaultSettings() Settings {
	return Settings{
		Quality:    DefaultQuality,
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// ClampQuality limits q to 0..100.
func ClampQuality(q int) int {
	return min(max(q, 0), 100)
}

// Formats maps every accepted output format name to its mime type.
var Formats = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// NormalizeFormat lower-cases f and checks it against Formats. jpeg is
// reported as jpg.
func NormalizeFormat(f string) (string, error) {
	f = strings.ToLower(strings.TrimSpace(f))
	if _, ok := Formats[f]; !ok {
		return "", imgerr.Configurationf("unsupported output format %q", f)
	}
	if f == "jpeg" {
		f = "jpg"
	}
	return f, nil
}

// HasAlpha reports whether mime can carry transparency.
func HasAlpha(mime string) bool {
	return mime != "image/jpeg" && mime != "image/bmp"
}
