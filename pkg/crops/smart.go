package crops

import (
	"image"

	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// smartStrategy scores candidate crops on skin tone, saturation and edges
// and centers the target box on the best one.
type smartStrategy struct{}

func (smartStrategy) Offsets(src image.Image, width, height int) (int, int, error) {
	srcW, srcH, w, h, err := target(src, width, height)
	if err != nil {
		return 0, 0, err
	}
	analyzer := smartcrop.NewAnalyzer(nfnt.NewDefaultResizer())
	best, err := analyzer.FindBestCrop(src, w, h)
	if err != nil {
		return 0, 0, imgerr.WrapBackend(err, "smart crop analysis")
	}
	cx := (best.Min.X + best.Max.X) / 2
	cy := (best.Min.Y + best.Max.Y) / 2
	return clamp(cx-w/2, 0, srcW-w), clamp(cy-h/2, 0, srcH-h), nil
}
