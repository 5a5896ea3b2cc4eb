package crops

import (
	"image"
	"log/slog"
	"math"
	"math/rand"

	"github.com/Fepozopo/imgcow/pkg/stdimg"
)

// sampleDivisor: each quadrant is sampled at area/sampleDivisor random pixels.
const sampleDivisor = 50

type balancedStrategy struct {
	seed int64
}

// energyPoint is the luma-weighted centroid of a quadrant and its energy
// (mean sampled luma per pixel of area).
type energyPoint struct {
	x, y, energy float64
}

func (s balancedStrategy) Offsets(src image.Image, width, height int) (int, int, error) {
	srcW, srcH, w, h, err := target(src, width, height)
	if err != nil {
		return 0, 0, err
	}
	img := measure(src, balancedThreshold)
	rng := rand.New(rand.NewSource(s.seed))

	hw, hh := ceilDiv(srcW, 2), ceilDiv(srcH, 2)
	quadrants := []image.Rectangle{
		image.Rect(0, 0, hw, hh),
		image.Rect(hw, 0, srcW, hh),
		image.Rect(0, hh, hw, srcH),
		image.Rect(hw, hh, srcW, srcH),
	}

	var total float64
	points := make([]energyPoint, 0, len(quadrants))
	for _, q := range quadrants {
		if q.Empty() {
			continue
		}
		p := highestEnergyPoint(img, q, rng)
		points = append(points, p)
		total += p.energy
	}

	cx, cy := float64(srcW)/2, float64(srcH)/2
	if total > 0 {
		cx, cy = 0, 0
		for _, p := range points {
			cx += p.x * (p.energy / total)
			cy += p.y * (p.energy / total)
		}
	}

	x := clamp(int(math.Floor(cx-float64(w)/2)), 0, srcW-w)
	y := clamp(int(math.Floor(cy-float64(h)/2)), 0, srcH-h)
	slog.Debug("balanced crop", "center", [2]float64{cx, cy}, "x", x, "y", y)
	return x, y, nil
}

// highestEnergyPoint samples q and returns its weighted centroid in image
// coordinates. A quadrant without energy reports its own center.
func highestEnergyPoint(img *image.NRGBA, q image.Rectangle, rng *rand.Rand) energyPoint {
	area := q.Dx() * q.Dy()
	samples := ceilDiv(area, sampleDivisor)

	var sum, xs, ys float64
	for k := 0; k < samples; k++ {
		x := q.Min.X + rng.Intn(q.Dx())
		y := q.Min.Y + rng.Intn(q.Dy())
		i := img.PixOffset(x, y)
		v := float64(stdimg.Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		sum += v
		xs += float64(x) * v
		ys += float64(y) * v
	}
	if sum == 0 {
		return energyPoint{
			x: float64(q.Min.X+q.Max.X) / 2,
			y: float64(q.Min.Y+q.Max.Y) / 2,
		}
	}
	return energyPoint{x: xs / sum, y: ys / sum, energy: sum / float64(area)}
}
