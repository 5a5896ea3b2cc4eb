package native

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func load(t *testing.T, w, h int, c color.NRGBA) *Backend {
	t.Helper()
	b, err := FromBytes(pngBytes(t, stdimg.SolidNRGBA(w, h, c)), raster.Options{})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return b
}

func size(t *testing.T, b raster.Backend) (int, int) {
	t.Helper()
	w, h, err := b.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	return w, h
}

var red = color.NRGBA{R: 255, A: 255}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"native", "GD"} {
		f, err := raster.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		if f.Name != Name {
			t.Fatalf("lookup %s resolved to %s", name, f.Name)
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	_, err := FromBytes([]byte("definitely not an image"), raster.Options{})
	if !errors.Is(err, imgerr.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	_, err = FromFile(filepath.Join(t.TempDir(), "missing.png"), raster.Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
}

func TestGeometry(t *testing.T) {
	b := load(t, 40, 20, red)
	if mime, _ := b.MimeType(); mime != "image/png" {
		t.Fatalf("mime = %s", mime)
	}

	if err := b.Resize(20, 10); err != nil {
		t.Fatal(err)
	}
	if w, h := size(t, b); w != 20 || h != 10 {
		t.Fatalf("after resize %dx%d", w, h)
	}

	if err := b.Crop(8, 6, 4, 2); err != nil {
		t.Fatal(err)
	}
	if w, h := size(t, b); w != 8 || h != 6 {
		t.Fatalf("after crop %dx%d", w, h)
	}

	if err := b.Rotate(90); err != nil {
		t.Fatal(err)
	}
	if w, h := size(t, b); w != 6 || h != 8 {
		t.Fatalf("after rotate %dx%d", w, h)
	}

	if err := b.Rotate(45); err != nil {
		t.Fatal(err)
	}
	if w, h := size(t, b); w <= 6 || h <= 8 {
		t.Fatalf("arbitrary rotation must grow the canvas, got %dx%d", w, h)
	}

	if err := b.Resize(0, 5); !errors.Is(err, imgerr.ErrGeometry) {
		t.Fatalf("expected geometry error, got %v", err)
	}
	if err := b.Crop(5, 5, 1000, 1000); !errors.Is(err, imgerr.ErrGeometry) {
		t.Fatalf("expected geometry error for crop outside the image, got %v", err)
	}
}

func TestRotateIsClockwise(t *testing.T) {
	img := stdimg.SolidNRGBA(4, 2, color.NRGBA{A: 255})
	img.SetNRGBA(0, 0, red)
	b := FromImage(img, "image/png", raster.Options{})
	if err := b.Rotate(90); err != nil {
		t.Fatal(err)
	}
	out, _ := b.Image()
	// top-left ends up top-right
	if got := out.(*image.NRGBA).NRGBAAt(1, 0); got != red {
		t.Fatalf("pixel (1,0) = %v", got)
	}
}

func TestFormatFlattensOntoBackground(t *testing.T) {
	b := load(t, 4, 4, color.NRGBA{})
	if err := b.SetBackground(color.NRGBA{R: 10, G: 20, B: 30, A: 255}); err != nil {
		t.Fatal(err)
	}
	if err := b.Format("jpeg"); err != nil {
		t.Fatal(err)
	}
	img, _ := b.Image()
	if got := img.(*image.NRGBA).NRGBAAt(2, 2); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Fatalf("flattened pixel = %v", got)
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if raster.Sniff(data) != "image/jpeg" {
		t.Fatalf("output is not a jpeg")
	}
	if err := b.Format("tiff"); !errors.Is(err, imgerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEncodeFormats(t *testing.T) {
	for _, f := range []string{"png", "jpg", "gif", "webp"} {
		b := load(t, 8, 8, red)
		if err := b.Format(f); err != nil {
			t.Fatal(err)
		}
		if err := b.SetCompressionQuality(40); err != nil {
			t.Fatal(err)
		}
		data, err := b.Bytes()
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if got, want := raster.Sniff(data), raster.Formats[f]; got != want {
			t.Fatalf("%s: sniffed %s", f, got)
		}
		again, err := FromBytes(data, raster.Options{})
		if err != nil {
			t.Fatalf("%s: decode own output: %v", f, err)
		}
		if w, h := size(t, again); w != 8 || h != 8 {
			t.Fatalf("%s: round trip %dx%d", f, w, h)
		}
	}
}

func TestWatermarkAndOpacity(t *testing.T) {
	base := load(t, 10, 10, color.NRGBA{B: 255, A: 255})
	mark := load(t, 2, 2, red)
	if err := base.Watermark(mark, 8, 8); err != nil {
		t.Fatal(err)
	}
	img, _ := base.Image()
	n := img.(*image.NRGBA)
	if n.NRGBAAt(9, 9) != red || n.NRGBAAt(7, 7) != (color.NRGBA{B: 255, A: 255}) {
		t.Fatalf("watermark placed wrong: %v %v", n.NRGBAAt(9, 9), n.NRGBAAt(7, 7))
	}

	if err := base.Opacity(50); err != nil {
		t.Fatal(err)
	}
	img, _ = base.Image()
	if a := img.(*image.NRGBA).NRGBAAt(0, 0).A; a < 126 || a > 129 {
		t.Fatalf("alpha after 50%% opacity = %d", a)
	}
}

func TestBlurKeepsSize(t *testing.T) {
	img := stdimg.SolidNRGBA(50, 30, color.NRGBA{A: 255})
	for x := 25; x < 50; x++ {
		for y := 0; y < 30; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	b := FromImage(img, "image/png", raster.Options{})
	if err := b.Blur(2); err != nil {
		t.Fatal(err)
	}
	if w, h := size(t, b); w != 50 || h != 30 {
		t.Fatalf("blur changed size to %dx%d", w, h)
	}
	out, _ := b.Image()
	edge := out.(*image.NRGBA).NRGBAAt(25, 15).R
	if edge == 0 || edge == 255 {
		t.Fatalf("edge was not softened: %d", edge)
	}
	if err := b.Blur(0); !errors.Is(err, imgerr.ErrGeometry) {
		t.Fatalf("expected geometry error, got %v", err)
	}
}

func TestCropOffsetsUsesStrategies(t *testing.T) {
	b := load(t, 60, 40, red)
	x, y, err := b.CropOffsets(20, 20, crops.Balanced)
	if err != nil {
		t.Fatal(err)
	}
	if x != 20 || y != 10 {
		t.Fatalf("flat image should crop at the centre, got (%d,%d)", x, y)
	}
	if _, _, err := b.CropOffsets(20, 20, crops.Face); !errors.Is(err, imgerr.ErrCapabilityUnavailable) {
		t.Fatalf("face without detector: %v", err)
	}
}

func TestSaveAndClose(t *testing.T) {
	b := load(t, 3, 3, red)
	path := filepath.Join(t.TempDir(), "out.png")
	if err := b.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Size(); !errors.Is(err, imgerr.ErrNotLoaded) {
		t.Fatalf("expected not loaded, got %v", err)
	}
	if _, err := b.Bytes(); !errors.Is(err, imgerr.ErrNotLoaded) {
		t.Fatalf("expected not loaded, got %v", err)
	}
}
