//go:build !imagick

// Package magick is the ImageMagick raster backend. This build was made
// without the imagick tag, so the engine is registered as unavailable.
package magick

import (
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
)

func init() {
	raster.Register(raster.Factory{
		Name:      Name,
		Aliases:   Aliases,
		Rich:      true,
		Available: func() bool { return false },
		FromFile: func(string, raster.Options) (raster.Backend, error) {
			return nil, errUnavailable()
		},
		FromBytes: func([]byte, raster.Options) (raster.Backend, error) {
			return nil, errUnavailable()
		},
	})
}

func errUnavailable() error {
	return imgerr.Unavailablef("imagemagick support is not compiled in, rebuild with -tags imagick")
}
