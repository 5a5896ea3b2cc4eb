package native

import (
	"image"
	"image/png"
	"io"
	"log/slog"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
)

// pngCompression maps the 0..100 quality scale onto PNG compression levels:
// high quality favours speed, low quality favours size.
func pngCompression(quality int) png.CompressionLevel {
	switch {
	case quality >= 90:
		return png.BestSpeed
	case quality < 50:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

func encode(w io.Writer, img *image.NRGBA, mime string, s raster.Settings) error {
	var err error
	switch mime {
	case "image/jpeg":
		if s.Progressive {
			slog.Debug("native backend writes baseline JPEG, progressive flag ignored")
		}
		bg := s.Background
		bg.A = 255
		r := img.Bounds()
		flat := imaging.Overlay(imaging.New(r.Dx(), r.Dy(), bg), img, image.Pt(0, 0), 1.0)
		err = imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(max(s.Quality, 1)))
	case "image/png":
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompression(s.Quality)))
	case "image/gif":
		err = imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(256))
	case "image/webp":
		err = webp.Encode(w, img, &webp.Options{Quality: float32(s.Quality)})
	case "image/bmp":
		err = bmp.Encode(w, img)
	default:
		return imgerr.Backendf("cannot encode %s", mime)
	}
	return imgerr.WrapBackend(err, "encode %s", mime)
}
