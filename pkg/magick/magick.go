//go:build imagick

// Package magick is the ImageMagick raster backend. It needs the MagickWand
// C library and is compiled in with the imagick build tag.
package magick

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/gographics/imagick.v3/imagick"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

var initOnce sync.Once

func initialize() {
	initOnce.Do(func() {
		imagick.Initialize()
		slog.Debug("imagemagick initialized")
	})
}

func init() {
	raster.Register(raster.Factory{
		Name:    Name,
		Aliases: Aliases,
		Rich:    true,
		FromFile: func(path string, opts raster.Options) (raster.Backend, error) {
			return FromFile(path, opts)
		},
		FromBytes: func(data []byte, opts raster.Options) (raster.Backend, error) {
			return FromBytes(data, opts)
		},
	})
}

// Backend implements raster.Backend on a MagickWand. Animated images keep
// every frame.
type Backend struct {
	wand     *imagick.MagickWand
	settings raster.Settings
	opts     raster.Options
}

var _ raster.Backend = (*Backend)(nil)

// FromFile reads path through ImageMagick.
func FromFile(path string, opts raster.Options) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgerr.WrapBackend(err, "read %s", path)
	}
	return FromBytes(data, opts)
}

// FromBytes decodes an encoded image of any format ImageMagick understands.
func FromBytes(data []byte, opts raster.Options) (*Backend, error) {
	initialize()
	mw := imagick.NewMagickWand()
	if err := mw.ReadImageBlob(data); err != nil {
		mw.Destroy()
		return nil, imgerr.WrapBackend(err, "decode image")
	}
	mw.ResetIterator()
	return &Backend{wand: mw, settings: raster.DefaultSettings(), opts: opts}, nil
}

func (b *Backend) loaded() error {
	if b == nil || b.wand == nil {
		return imgerr.NotLoadedf("imagick backend has no image")
	}
	return nil
}

// frames runs fn on every frame, coalescing animations first when animated
// output is requested.
func (b *Backend) frames(fn func(mw *imagick.MagickWand) error) error {
	if b.settings.Animated && b.wand.GetNumberImages() > 1 {
		coalesced := b.wand.CoalesceImages()
		b.wand.Destroy()
		b.wand = coalesced
	}
	b.wand.ResetIterator()
	for b.wand.NextImage() {
		if err := fn(b.wand); err != nil {
			return imgerr.WrapBackend(err, "imagemagick")
		}
		if !b.settings.Animated {
			break
		}
	}
	b.wand.ResetIterator()
	return nil
}

func (b *Backend) Size() (int, int, error) {
	if err := b.loaded(); err != nil {
		return 0, 0, err
	}
	return int(b.wand.GetImageWidth()), int(b.wand.GetImageHeight()), nil
}

func (b *Backend) MimeType() (string, error) {
	if err := b.loaded(); err != nil {
		return "", err
	}
	f := strings.ToLower(b.wand.GetImageFormat())
	if mime, ok := raster.Formats[f]; ok {
		return mime, nil
	}
	return "image/" + f, nil
}

func (b *Backend) Format(format string) error {
	if err := b.loaded(); err != nil {
		return err
	}
	f, err := raster.NormalizeFormat(format)
	if err != nil {
		return err
	}
	if !raster.HasAlpha(raster.Formats[f]) {
		if err := b.flatten(); err != nil {
			return err
		}
	}
	if err := b.wand.SetFormat(f); err != nil {
		return imgerr.WrapBackend(err, "set format %s", f)
	}
	return b.frames(func(mw *imagick.MagickWand) error { return mw.SetImageFormat(f) })
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// flatten merges all layers onto the background colour.
func (b *Backend) flatten() error {
	pw := imagick.NewPixelWand()
	defer pw.Destroy()
	bg := b.settings.Background
	bg.A = 255
	pw.SetColor(hexColor(bg))
	if err := b.wand.SetImageBackgroundColor(pw); err != nil {
		return imgerr.WrapBackend(err, "set background")
	}
	flat := b.wand.MergeImageLayers(imagick.IMAGE_LAYER_FLATTEN)
	b.wand.Destroy()
	b.wand = flat
	return nil
}

func (b *Backend) Resize(width, height int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return imgerr.Geometryf("invalid resize target %dx%d", width, height)
	}
	return b.frames(func(mw *imagick.MagickWand) error {
		return mw.ResizeImage(uint(width), uint(height), imagick.FILTER_LANCZOS)
	})
}

func (b *Backend) Crop(width, height, x, y int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return imgerr.Geometryf("invalid crop size %dx%d", width, height)
	}
	return b.frames(func(mw *imagick.MagickWand) error {
		if err := mw.CropImage(uint(width), uint(height), x, y); err != nil {
			return err
		}
		return mw.SetImagePage(uint(width), uint(height), 0, 0)
	})
}

func (b *Backend) Rotate(degrees int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if degrees%360 == 0 {
		return nil
	}
	pw := imagick.NewPixelWand()
	defer pw.Destroy()
	mime, _ := b.MimeType()
	if raster.HasAlpha(mime) {
		pw.SetColor("none")
	} else {
		pw.SetColor(hexColor(b.settings.Background))
	}
	return b.frames(func(mw *imagick.MagickWand) error {
		if err := mw.RotateImage(pw, float64(degrees)); err != nil {
			return err
		}
		return mw.SetImagePage(mw.GetImageWidth(), mw.GetImageHeight(), 0, 0)
	})
}

func (b *Backend) Flip() error {
	if err := b.loaded(); err != nil {
		return err
	}
	return b.frames(func(mw *imagick.MagickWand) error { return mw.FlipImage() })
}

func (b *Backend) Flop() error {
	if err := b.loaded(); err != nil {
		return err
	}
	return b.frames(func(mw *imagick.MagickWand) error { return mw.FlopImage() })
}

// overlayWand borrows the wand of another magick backend, or decodes a
// snapshot of any other backend.
func overlayWand(overlay raster.Backend) (*imagick.MagickWand, func(), error) {
	if o, ok := overlay.(*Backend); ok {
		if err := o.loaded(); err != nil {
			return nil, nil, err
		}
		return o.wand, func() {}, nil
	}
	img, err := overlay.Image()
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, nil, imgerr.WrapBackend(err, "encode watermark")
	}
	mw := imagick.NewMagickWand()
	if err := mw.ReadImageBlob(buf.Bytes()); err != nil {
		mw.Destroy()
		return nil, nil, imgerr.WrapBackend(err, "decode watermark")
	}
	return mw, mw.Destroy, nil
}

func (b *Backend) Watermark(overlay raster.Backend, x, y int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if overlay == nil {
		return imgerr.NotLoadedf("watermark image is missing")
	}
	src, release, err := overlayWand(overlay)
	if err != nil {
		return err
	}
	defer release()
	return b.frames(func(mw *imagick.MagickWand) error {
		return mw.CompositeImage(src, imagick.COMPOSITE_OP_OVER, true, x, y)
	})
}

func (b *Backend) Opacity(percent int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if percent >= 100 || percent < 0 {
		return nil
	}
	return b.frames(func(mw *imagick.MagickWand) error {
		img, err := exportFrame(mw)
		if err != nil {
			return err
		}
		out := stdimg.ScaleAlpha(img, float64(percent)/100)
		if err := mw.SetImageAlphaChannel(imagick.ALPHA_CHANNEL_SET); err != nil {
			return err
		}
		r := out.Bounds()
		return mw.ImportImagePixels(0, 0, uint(r.Dx()), uint(r.Dy()), "RGBA", imagick.PIXEL_CHAR, out.Pix)
	})
}

// Blur works on a copy reduced to a fifth of the size, like the native
// backend, so both engines produce a comparable look.
func (b *Backend) Blur(loops int) error {
	if err := b.loaded(); err != nil {
		return err
	}
	if loops <= 0 {
		return imgerr.Geometryf("blur loops must be positive, got %d", loops)
	}
	return b.frames(func(mw *imagick.MagickWand) error {
		w, h := mw.GetImageWidth(), mw.GetImageHeight()
		if err := mw.ScaleImage(max(w/5, 1), max(h/5, 1)); err != nil {
			return err
		}
		for i := 0; i < loops; i++ {
			if err := mw.BlurImage(0, 2); err != nil {
				return err
			}
		}
		if err := mw.ResizeImage(w, h, imagick.FILTER_CATROM); err != nil {
			return err
		}
		return mw.BlurImage(0, 2)
	})
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

// exportFrame copies the current frame into an NRGBA image.
func exportFrame(mw *imagick.MagickWand) (*image.NRGBA, error) {
	w, h := mw.GetImageWidth(), mw.GetImageHeight()
	px, err := mw.ExportImagePixels(0, 0, w, h, "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, imgerr.WrapBackend(err, "export pixels")
	}
	pix, ok := px.([]byte)
	if !ok {
		return nil, imgerr.Backendf("unexpected pixel buffer %T", px)
	}
	return &image.NRGBA{Pix: pix, Stride: int(w) * 4, Rect: image.Rect(0, 0, int(w), int(h))}, nil
}

func (b *Backend) CropOffsets(width, height int, method string) (int, int, error) {
	img, err := b.Image()
	if err != nil {
		return 0, 0, err
	}
	return crops.Offsets(img, width, height, method, b.opts.Crop)
}

// prepare applies the output settings right before encoding.
func (b *Backend) prepare() error {
	if err := b.loaded(); err != nil {
		return err
	}
	interlace := imagick.INTERLACE_NO
	if b.settings.Progressive {
		interlace = imagick.INTERLACE_PLANE
	}
	if err := b.wand.SetInterlaceScheme(interlace); err != nil {
		return imgerr.WrapBackend(err, "set interlace")
	}
	if err := b.frames(func(mw *imagick.MagickWand) error {
		if err := mw.SetImageCompressionQuality(uint(b.settings.Quality)); err != nil {
			return err
		}
		return mw.StripImage()
	}); err != nil {
		return err
	}
	if b.settings.Animated && b.wand.GetNumberImages() > 1 {
		optimized := b.wand.OptimizeImageLayers()
		b.wand.Destroy()
		b.wand = optimized
	}
	return nil
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
	if err := b.prepare(); err != nil {
		return nil, err
	}
	if b.settings.Animated {
		return b.wand.GetImagesBlob(), nil
	}
	b.wand.ResetIterator()
	b.wand.NextImage()
	return b.wand.GetImageBlob(), nil
}

func (b *Backend) Image() (image.Image, error) {
	if err := b.loaded(); err != nil {
		return nil, err
	}
	b.wand.ResetIterator()
	b.wand.NextImage()
	return exportFrame(b.wand)
}

func (b *Backend) Close() error {
	if b.wand != nil {
		b.wand.Destroy()
		b.wand = nil
	}
	return nil
}
