package crops

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

// checker paints a checkerboard of the given cell size into r.
func checker(img *image.NRGBA, r image.Rectangle, cell int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
}

func gray(w, h int) *image.NRGBA {
	return stdimg.SolidNRGBA(w, h, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Entropy":       Entropy,
		"entropy":       Entropy,
		"CROP_ENTROPY":  Entropy,
		"crop_balanced": Balanced,
		"BALANCED":      Balanced,
		"CROP_FACE":     Face,
		"smart":         Smart,
	}
	for in, want := range cases {
		got, ok := Normalize(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"center", "", "CROP_", "left", "100"} {
		_, ok := Normalize(in)
		assert.False(t, ok, in)
	}
	assert.Equal(t, []string{Entropy, Balanced, Face, Smart}, Names())
}

func TestNewErrors(t *testing.T) {
	_, err := New("Sharpest", Options{})
	assert.True(t, errors.Is(err, imgerr.ErrConfiguration))

	_, err = New("Face", Options{})
	assert.True(t, errors.Is(err, imgerr.ErrCapabilityUnavailable))

	_, _, err = Offsets(gray(10, 10), 0, 5, Entropy, Options{})
	assert.True(t, errors.Is(err, imgerr.ErrGeometry))
}

func TestEntropyFindsDetail(t *testing.T) {
	img := gray(200, 100)
	checker(img, image.Rect(100, 0, 200, 100), 4)
	before := stdimg.CloneNRGBA(img)

	x, y, err := Offsets(img, 100, 100, Entropy, Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, x, 80)
	assert.LessOrEqual(t, x, 100)
	assert.Equal(t, 0, y)
	assert.Equal(t, before.Pix, img.Pix, "source must not be modified")
}

func TestEntropyVertical(t *testing.T) {
	img := gray(100, 200)
	checker(img, image.Rect(0, 0, 100, 60), 3)

	x, y, err := Offsets(img, 100, 80, "CROP_ENTROPY", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, x)
	assert.LessOrEqual(t, y, 20)
}

func TestBalancedFollowsEnergy(t *testing.T) {
	img := stdimg.SolidNRGBA(200, 200, color.NRGBA{A: 255})
	checker(img, image.Rect(100, 100, 200, 200), 5)

	x, y, err := Offsets(img, 50, 50, Balanced, Options{Seed: 7})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, x, 100)
	assert.GreaterOrEqual(t, y, 100)
	assert.LessOrEqual(t, x, 150)
	assert.LessOrEqual(t, y, 150)

	// deterministic for a given seed
	x2, y2, err := Offsets(img, 50, 50, Balanced, Options{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, [2]int{x, y}, [2]int{x2, y2})
}

func TestBalancedFlatImageCenters(t *testing.T) {
	img := gray(100, 60)
	x, y, err := Offsets(img, 40, 20, Balanced, Options{})
	require.NoError(t, err)
	assert.Equal(t, 30, x)
	assert.Equal(t, 20, y)
}

func TestSafeZones(t *testing.T) {
	det := DetectorFunc(func(img image.Image) ([]image.Rectangle, error) {
		return []image.Rectangle{image.Rect(40, 40, 60, 60)}, nil
	})
	zones, err := SafeZones(gray(100, 100), det)
	require.NoError(t, err)
	assert.Equal(t, []image.Rectangle{image.Rect(30, 30, 70, 70)}, zones)

	// detection runs on a downscaled copy; zones come back in source pixels
	var seen image.Point
	det = DetectorFunc(func(img image.Image) ([]image.Rectangle, error) {
		seen = img.Bounds().Size()
		return []image.Rectangle{image.Rect(100, 100, 140, 140)}, nil
	})
	zones, err = SafeZones(gray(1600, 800), det)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 400), seen)
	assert.Equal(t, []image.Rectangle{image.Rect(160, 160, 320, 320)}, zones)
}

func TestFaceKeepsFace(t *testing.T) {
	img := gray(300, 100)
	checker(img, img.Bounds(), 4)
	det := DetectorFunc(func(image.Image) ([]image.Rectangle, error) {
		return []image.Rectangle{image.Rect(250, 40, 290, 80)}, nil
	})
	x, y, err := Offsets(img, 150, 100, Face, Options{Faces: det})
	require.NoError(t, err)
	assert.Equal(t, 150, x)
	assert.Equal(t, 0, y)
}

func TestFaceDetectorError(t *testing.T) {
	det := DetectorFunc(func(image.Image) ([]image.Rectangle, error) {
		return nil, errors.New("cascade exploded")
	})
	_, _, err := Offsets(gray(50, 50), 20, 20, "crop_face", Options{Faces: det})
	assert.True(t, errors.Is(err, imgerr.ErrBackend))
}

func TestOffsetsInBounds(t *testing.T) {
	img := gray(120, 80)
	checker(img, image.Rect(10, 5, 70, 50), 3)
	det := DetectorFunc(func(image.Image) ([]image.Rectangle, error) {
		return []image.Rectangle{image.Rect(80, 20, 100, 40)}, nil
	})
	sizes := [][2]int{{120, 80}, {60, 40}, {1, 1}, {119, 10}, {30, 79}, {500, 500}}
	for _, name := range Names() {
		for _, s := range sizes {
			x, y, err := Offsets(img, s[0], s[1], name, Options{Faces: det, Seed: 3})
			require.NoError(t, err, "%s %v", name, s)
			w, h := min(s[0], 120), min(s[1], 80)
			assert.True(t, x >= 0 && x <= 120-w, "%s %v: x=%d", name, s, x)
			assert.True(t, y >= 0 && y <= 80-h, "%s %v: y=%d", name, s, y)
		}
	}
}

func TestPotential(t *testing.T) {
	zones := []image.Rectangle{image.Rect(10, 20, 30, 60)}
	assert.Equal(t, 40, potential(zones, true, 0, 11))
	assert.Equal(t, 0, potential(zones, true, 0, 10))
	assert.Equal(t, 40, potential(zones, true, 30, 34))
	assert.Equal(t, 20, potential(zones, false, 55, 70))
	assert.Equal(t, 0, potential(nil, false, 0, 100))
}
