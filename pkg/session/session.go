// Package session is the image editing facade. A Session owns exactly one
// raster backend, resolves every geometry argument (pixels, percentages,
// keywords, crop strategies, client hints) to absolute pixels and then
// delegates the pixel work to the backend.
//
// Operations mutate the session in place and take effect immediately: if the
// third of three calls fails, the first two have already been applied.
// Transform is the exception, it validates the whole chain first.
//
// A Session is not safe for concurrent use; give each request its own.
package session

import (
	"encoding/base64"
	"image/color"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/dims"
	"github.com/Fepozopo/imgcow/pkg/exif"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/transform"

	// registered engines
	_ "github.com/Fepozopo/imgcow/pkg/magick"
	_ "github.com/Fepozopo/imgcow/pkg/native"
)

// Session is one image being edited.
type Session struct {
	backend  raster.Backend
	engine   string
	filename string
	source   []byte // encoded input, kept for metadata when loaded from memory
	animated bool
	hints    ClientHints
	rotated  bool
}

var _ transform.Target = (*Session)(nil)

type options struct {
	backend string
	crop    crops.Options
	hints   map[string]string
}

// Option configures FromFile and FromBytes.
type Option func(*options)

// WithBackend selects the engine by name ("native", "gd", "imagick", ...).
// The default picks the richest installed engine.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithFaceDetector enables the Face crop strategy.
func WithFaceDetector(d crops.FaceDetector) Option {
	return func(o *options) { o.crop.Faces = d }
}

// WithSeed fixes the sampling seed of the Balanced crop strategy.
func WithSeed(seed int64) Option {
	return func(o *options) { o.crop.Seed = seed }
}

// WithClientHints applies SetClientHints at creation time.
func WithClientHints(hints map[string]string) Option {
	return func(o *options) { o.hints = hints }
}

func setup(opts []Option) (options, raster.Factory, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	f, err := raster.Lookup(o.backend)
	return o, f, err
}

// FromFile decodes the image at path. Unknown or uninstalled backends fail
// here, before anything is read.
func FromFile(path string, opts ...Option) (*Session, error) {
	o, f, err := setup(opts)
	if err != nil {
		return nil, err
	}
	b, err := f.FromFile(path, raster.Options{Crop: o.crop})
	if err != nil {
		return nil, err
	}
	s := &Session{backend: b, engine: f.Name, filename: path}
	if err := s.init(o, func() ([]byte, error) { return os.ReadFile(path) }); err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

// FromBytes decodes an encoded image held in memory.
func FromBytes(data []byte, opts ...Option) (*Session, error) {
	o, f, err := setup(opts)
	if err != nil {
		return nil, err
	}
	b, err := f.FromBytes(data, raster.Options{Crop: o.crop})
	if err != nil {
		return nil, err
	}
	s := &Session{backend: b, engine: f.Name, source: data}
	if err := s.init(o, func() ([]byte, error) { return data, nil }); err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

// init applies client hints and flags animated GIFs.
func (s *Session) init(o options, read func() ([]byte, error)) error {
	if o.hints != nil {
		if err := s.SetClientHints(o.hints); err != nil {
			return err
		}
	}
	mime, err := s.backend.MimeType()
	if err != nil || mime != "image/gif" {
		return err
	}
	data, err := read()
	if err != nil {
		return imgerr.WrapBackend(err, "read gif frames")
	}
	if raster.IsAnimatedGIF(data) {
		s.animated = true
		return s.backend.SetAnimated(true)
	}
	return nil
}

func (s *Session) loaded() (raster.Backend, error) {
	if s == nil || s.backend == nil {
		return nil, imgerr.NotLoadedf("session has no image")
	}
	return s.backend, nil
}

// Engine is the name of the backend in use.
func (s *Session) Engine() string { return s.engine }

// Filename is the source path, empty for in-memory images.
func (s *Session) Filename() string { return s.filename }

// Animated reports whether the source is an animated GIF.
func (s *Session) Animated() bool { return s.animated }

// Size returns the current dimensions.
func (s *Session) Size() (int, int, error) {
	b, err := s.loaded()
	if err != nil {
		return 0, 0, err
	}
	return b.Size()
}

// Width returns the current width.
func (s *Session) Width() (int, error) {
	w, _, err := s.Size()
	return w, err
}

// Height returns the current height.
func (s *Session) Height() (int, error) {
	_, h, err := s.Size()
	return h, err
}

// MimeType returns the mime type the image will be encoded as.
func (s *Session) MimeType() (string, error) {
	b, err := s.loaded()
	if err != nil {
		return "", err
	}
	return b.MimeType()
}

// Resize scales the image proportionally so it fits inside width x height,
// or covers it when cover is set. Either dimension may be "0" (derived from
// the other) or a percentage of the current size. Client hints apply after
// the proportional math. Without cover the image is never enlarged.
func (s *Session) Resize(width, height string, cover bool) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	iw, ih, err := b.Size()
	if err != nil {
		return err
	}
	w, err := dims.ResolveLength(dims.X, width, iw, false)
	if err != nil {
		return err
	}
	h, err := dims.ResolveLength(dims.Y, height, ih, false)
	if err != nil {
		return err
	}
	w, h, err = dims.ProportionalResize(iw, ih, w, h, cover)
	if err != nil {
		return err
	}
	w, h, err = s.clientSize(w, h)
	if err != nil {
		return err
	}
	if w >= iw && !cover {
		slog.Debug("resize skipped, no upscaling", "current", [2]int{iw, ih}, "target", [2]int{w, h})
		return nil
	}
	return b.Resize(w, h)
}

// Crop cuts a width x height box. x and y are positions ("center",
// "right-50px", "25%", "10") or x names a crop strategy, in which case the
// strategy chooses both offsets. The box is clamped to the image.
func (s *Session) Crop(width, height, x, y string) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	iw, ih, err := b.Size()
	if err != nil {
		return err
	}
	w, err := dims.ResolveLength(dims.X, width, iw, false)
	if err != nil {
		return err
	}
	h, err := dims.ResolveLength(dims.Y, height, ih, false)
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return imgerr.Geometryf("invalid crop size %dx%d", w, h)
	}
	w, h, err = s.clientSize(w, h)
	if err != nil {
		return err
	}
	w, h = min(w, iw), min(h, ih)

	x, y = orDefault(x, "center"), orDefault(y, "middle")
	var ox, oy int
	if name, ok := crops.Normalize(x); ok {
		ox, oy, err = b.CropOffsets(w, h, name)
		if err != nil {
			return err
		}
	} else {
		if ox, err = dims.ResolvePosition(dims.X, x, w, iw); err != nil {
			return err
		}
		if oy, err = dims.ResolvePosition(dims.Y, y, h, ih); err != nil {
			return err
		}
	}
	ox, oy = clamp(ox, 0, iw-w), clamp(oy, 0, ih-h)
	slog.Debug("crop", "size", [2]int{w, h}, "offset", [2]int{ox, oy}, "anchor", x+","+y)
	return b.Crop(w, h, ox, oy)
}

// ResizeCrop resizes in cover mode and crops to exactly width x height.
func (s *Session) ResizeCrop(width, height, x, y string) error {
	if err := s.Resize(width, height, true); err != nil {
		return err
	}
	return s.Crop(width, height, x, y)
}

// Transform runs a transform string. The whole string is parsed before the
// first operation runs. An empty string resizes to the current size, which
// only has an effect through client hints.
func (s *Session) Transform(ops string) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	parsed, err := transform.Parse(ops)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		w, h, err := b.Size()
		if err != nil {
			return err
		}
		return s.Resize(strconv.Itoa(w), strconv.Itoa(h), false)
	}
	for _, op := range parsed {
		if err := op.Apply(s); err != nil {
			return errors.Wrapf(err, "%s", op.Name())
		}
	}
	return nil
}

// TransformResponsive evaluates responsive rules for props and runs the
// resulting transform string.
func (s *Session) TransformResponsive(rules string, props transform.ClientProperties) error {
	ops, err := transform.Responsive(rules, props)
	if err != nil {
		return err
	}
	return s.Transform(ops)
}

// Watermark draws other on top of the image. Positions are resolved for
// other's box inside this image; empty values default to right and bottom.
func (s *Session) Watermark(other *Session, x, y string) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	ob, err := other.loaded()
	if err != nil {
		return err
	}
	iw, ih, err := b.Size()
	if err != nil {
		return err
	}
	ow, oh, err := ob.Size()
	if err != nil {
		return err
	}
	px, err := dims.ResolvePosition(dims.X, orDefault(x, "right"), ow, iw)
	if err != nil {
		return err
	}
	py, err := dims.ResolvePosition(dims.Y, orDefault(y, "bottom"), oh, ih)
	if err != nil {
		return err
	}
	return b.Watermark(ob, px, py)
}

// Orientation returns the EXIF orientation of a JPEG source, 0 when absent.
func (s *Session) Orientation() (int, error) {
	mime, err := s.MimeType()
	if err != nil || mime != "image/jpeg" {
		return 0, err
	}
	data := s.source
	if data == nil && s.filename != "" {
		if data, err = os.ReadFile(s.filename); err != nil {
			return 0, imgerr.WrapBackend(err, "read %s", s.filename)
		}
	}
	return exif.Orientation(data), nil
}

// Exif decodes the camera metadata of a JPEG source.
func (s *Session) Exif() (exif.Data, error) {
	if _, err := s.loaded(); err != nil {
		return exif.Data{}, err
	}
	if s.source != nil {
		return exif.Read(s.source)
	}
	if s.filename == "" {
		return exif.Data{}, imgerr.Configurationf("no source to read metadata from")
	}
	return exif.ReadFile(s.filename)
}

// AutoRotate turns the image upright according to its EXIF orientation.
// It runs at most once per session.
func (s *Session) AutoRotate() error {
	if _, err := s.loaded(); err != nil {
		return err
	}
	if s.rotated {
		return nil
	}
	o, err := s.Orientation()
	if err != nil {
		return err
	}
	var steps []func() error
	switch o {
	case exif.TopRight:
		steps = append(steps, s.Flop)
	case exif.BottomRight:
		steps = append(steps, func() error { return s.Rotate(180) })
	case exif.BottomLeft:
		steps = append(steps, s.Flip)
	case exif.LeftTop:
		steps = append(steps, s.Flip, func() error { return s.Rotate(90) })
	case exif.RightTop:
		steps = append(steps, func() error { return s.Rotate(90) })
	case exif.RightBottom:
		steps = append(steps, s.Flop, func() error { return s.Rotate(90) })
	case exif.LeftBottom:
		steps = append(steps, func() error { return s.Rotate(-90) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	s.rotated = true
	return nil
}

// Rotate turns the image clockwise. 0 is a no-op.
func (s *Session) Rotate(degrees int) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	if degrees == 0 {
		return nil
	}
	return b.Rotate(degrees)
}

// Flip mirrors the image vertically.
func (s *Session) Flip() error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.Flip()
}

// Flop mirrors the image horizontally.
func (s *Session) Flop() error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.Flop()
}

// DefaultBlurLoops is the blur strength used by the CLI.
const DefaultBlurLoops = 4

// Blur smooths the image; loops controls the strength.
func (s *Session) Blur(loops int) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.Blur(loops)
}

// Opacity scales the alpha channel to percent. Values of 100 or more, and
// negative values, leave the image unchanged.
func (s *Session) Opacity(percent int) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.Opacity(percent)
}

// Quality sets the compression quality, clamped to 0..100.
func (s *Session) Quality(quality int) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.SetCompressionQuality(raster.ClampQuality(quality))
}

// Progressive requests interlaced output where the engine supports it.
func (s *Session) Progressive(on bool) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.SetProgressive(on)
}

// Background sets the colour used when flattening and rotating.
func (s *Session) Background(c color.NRGBA) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.SetBackground(c)
}

// Format switches the output format.
func (s *Session) Format(format string) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	return b.Format(format)
}

// Bytes encodes the image.
func (s *Session) Bytes() ([]byte, error) {
	b, err := s.loaded()
	if err != nil {
		return nil, err
	}
	return b.Bytes()
}

// Base64 returns the encoded image as a data URI.
func (s *Session) Base64() (string, error) {
	data, err := s.Bytes()
	if err != nil {
		return "", err
	}
	mime, err := s.MimeType()
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Save writes the image to path, or over the source file when path is empty.
func (s *Session) Save(path string) error {
	b, err := s.loaded()
	if err != nil {
		return err
	}
	if path == "" {
		path = s.filename
	}
	if path == "" {
		return imgerr.Configurationf("no output path and the image was not loaded from a file")
	}
	return b.Save(path)
}

// Close releases the backend. Later calls fail with ErrNotLoaded.
func (s *Session) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
