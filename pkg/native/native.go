// Package native is the pure-Go raster backend. It is always available and
// keeps the decoded image as a single *image.NRGBA.
//
// Capability gaps compared to the ImageMagick backend:
//   - animated GIFs are reduced to their first frame;
//   - JPEG output is always baseline, the progressive flag is recorded only;
//   - ICO input is not decoded.
package native

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

// Name is the adapter name in the raster registry.
const Name = "native"

func init() {
	raster.Register(raster.Factory{
		Name:    Name,
		Aliases: []string{"gd", "go"},
		FromFile: func(path string, opts raster.Options) (raster.Backend, error) {
			return FromFile(path, opts)
		},
		FromBytes: func(data []byte, opts raster.Options) (raster.Backend, error) {
			return FromBytes(data, opts)
		},
	})
}

var formatMimes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// Backend implements raster.Backend on an in-memory NRGBA image.
type Backend struct {
	img      *image.NRGBA
	mime     string
	settings raster.Settings
	opts     raster.Options
}

var _ raster.Backend = (*Backend)(nil)

// FromFile decodes the image stored at path.
func FromFile(path string, opts raster.Options) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgerr.WrapBackend(err, "read %s", path)
	}
	return FromBytes(data, opts)
}

// FromBytes decodes an encoded image.
func FromBytes(data []byte, opts raster.Options) (*Backend, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, imgerr.WrapBackend(err, "decode image")
	}
	mime, ok := formatMimes[format]
	if !ok {
		return nil, imgerr.Backendf("unsupported input format %q", format)
	}
	b := &Backend{
		img:      stdimg.ToNRGBA(img),
		mime:     mime,
		settings: raster.DefaultSettings(),
		opts:     opts,
	}
	return b, nil
}

// FromImage wraps an already decoded image; it is encoded as mime.
func FromImage(img image.Image, mime string, opts raster.Options) *Backend {
	return &Backend{img: stdimg.ToNRGBA(img), mime: mime, settings: raster.DefaultSettings(), opts: opts}
}

func (b *Backend) loaded() error {
	if b == nil || b.img == nil {
		return imgerr.NotLoadedf("native backend has no image")
	}
	return nil
}

func (b *Backend) Size() (int, int, error) {
	if err := b.loaded(); err != nil {
		return 0, 0, err
	}
	r := b.img.Bounds()
	return r.Dx(), r.Dy(), nil
}

func (b *Backend) MimeType() (string, error) {
	if err := b.loaded(); err != nil {
		return "", err
	}
	return b.mime, nil
}

func (b *Backend) Format(format string) error {
	if err := b.loaded(); err != nil {
		return err
	}
	f, err := raster.NormalizeFormat(format)
	if err != nil {
		return err
	}
	b.mime = raster.Formats[f]
	if !raster.HasAlpha(b.mime) {
		b.img = b.flatten(b.img)
	}
	return nil
}

// flatten draws img onto the background colour.
func (b *Backend) flatten(img *image.NRGBA) *image.NRGBA {
	bg := b.settings.Background
	bg.A = 255
	r := img.Bounds()
	return imaging.Overlay(imaging.New(r.Dx(), r.Dy(), bg), img, image.Pt(0, 0), 1.0)
}

func (b *Backend) Resize(width, height int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return imgerr.Geometryf("invalid resize target %dx%d", width, height)
	}
	b.img = imaging.Resize(b.img, width, height, imaging.Lanczos)
	return nil
}

func (b *Backend) Crop(width, height, x, y int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return imgerr.Geometryf("invalid crop size %dx%d", width, height)
	}
	rect := image.Rect(x, y, x+width, y+height)
	if rect.Intersect(b.img.Bounds()).Empty() {
		return imgerr.Geometryf("crop box %v is outside the image", rect)
	}
	b.img = imaging.Crop(b.img, rect)
	return nil
}

func (b *Backend) Rotate(degrees int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if degrees%360 == 0 {
		return nil
	}
	if out, ok := stdimg.RightAngle(b.img, degrees); ok {
		b.img = out
		return nil
	}
	var fill color.Color = color.Transparent
	if !raster.HasAlpha(b.mime) {
		fill = b.settings.Background
	}
	// imaging rotates counter-clockwise
	b.img = imaging.Rotate(b.img, -float64(degrees), fill)
	return nil
}

func (b *Backend) Flip() error {
	if err := b.loaded(); err != nil {
		return err
	}
	b.img = stdimg.Flip(b.img)
	return nil
}

func (b *Backend) Flop() error {
	if err := b.loaded(); err != nil {
		return err
	}
	b.img = stdimg.Flop(b.img)
	return nil
}

func (b *Backend) Watermark(overlay raster.Backend, x, y int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if overlay == nil {
		return imgerr.NotLoadedf("watermark image is missing")
	}
	ov, err := overlay.Image()
	if err != nil {
		return err
	}
	b.img = stdimg.Over(stdimg.CloneNRGBA(b.img), ov, x, y)
	return nil
}

func (b *Backend) Opacity(percent int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if percent >= 100 || percent < 0 {
		return nil
	}
	f := float64(percent) / 100
	b.img = imaging.AdjustFunc(b.img, func(c color.NRGBA) color.NRGBA {
		c.A = uint8(float64(c.A)*f + 0.5)
		return c
	})
	return nil
}

// blurSigma is the gaussian sigma of a single blur pass on the reduced copy.
const blurSigma = 2.0

// Blur works on a copy reduced to a fifth of the size, then scales back and
// runs one more pass to hide the upscaling.
func (b *Backend) Blur(loops int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if loops <= 0 {
		return imgerr.Geometryf("blur loops must be positive, got %d", loops)
	}
	r := b.img.Bounds()
	small := image.NewNRGBA(image.Rect(0, 0, max(r.Dx()/5, 1), max(r.Dy()/5, 1)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), b.img, r, draw.Src, nil)
	for i := 0; i < loops; i++ {
		small = stdimg.GaussianBlur(small, blurSigma)
	}
	big := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.CatmullRom.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)
	b.img = stdimg.GaussianBlur(big, blurSigma)
	return nil
}

func (b *Backend) SetCompressionQuality(quality int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	b.settings.Quality = raster.ClampQuality(quality)
	return nil
}

func (b *Backend) SetBackground(c color.NRGBA) error {
	if err := b.loaded(); err != nil {
		return err
	}
	b.settings.Background = c
	return nil
}

func (b *Backend) SetAnimated(animated bool) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if animated {
		slog.Debug("native backend keeps only the first frame of animated images")
	}
	b.settings.Animated = animated
	return nil
}

func (b *Backend) SetProgressive(progressive bool) error {
	if err := b.loaded(); err != nil {
		return err
	}
	b.settings.Progressive = progressive
	return nil
}

func (b *Backend) CropOffsets(width, height int, method string) (int, int, error) {
	if err := b.loaded(); err != nil {
		return 0, 0, err
	}
	return crops.Offsets(b.img, width, height, method, b.opts.Crop)
}

func (b *Backend) Save(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return imgerr.WrapBackend(err, "write %s", path)
	}
	return nil
}

func (b *Backend) Bytes() ([]byte, error) {
	if err := b.loaded(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encode(&buf, b.img, b.mime, b.settings); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Backend) Image() (image.Image, error) {
	if err := b.loaded(); err != nil {
		return nil, err
	}
	return stdimg.CloneNRGBA(b.img), nil
}

func (b *Backend) Close() error {
	b.img = nil
	return nil
}
