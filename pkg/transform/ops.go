package transform

import (
	"strconv"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/dims"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
)

// Target receives parsed operations. *session.Session implements it.
type Target interface {
	Resize(width, height string, cover bool) error
	Crop(width, height, x, y string) error
	ResizeCrop(width, height, x, y string) error
	Format(format string) error
	Quality(quality int) error
}

// Operation is one validated entry of a transform string.
type Operation interface {
	// Name is the canonical lower-case operation name.
	Name() string
	// Params are the raw parameters as written, without defaults.
	Params() []string
	Apply(t Target) error
}

type raw struct {
	params []string
}

func (r raw) Params() []string { return append([]string(nil), r.params...) }

// ResizeOp is resize,<width>[,<height>[,<cover>]].
type ResizeOp struct {
	raw
	Width, Height string
	Cover         bool
}

func (ResizeOp) Name() string { return "resize" }

func (o ResizeOp) Apply(t Target) error { return t.Resize(o.Width, o.Height, o.Cover) }

// CropOp is crop,<width>,<height>[,<x>[,<y>]]. X may name a crop strategy.
type CropOp struct {
	raw
	Width, Height, X, Y string
}

func (CropOp) Name() string { return "crop" }

func (o CropOp) Apply(t Target) error { return t.Crop(o.Width, o.Height, o.X, o.Y) }

// ResizeCropOp is resizecrop,<width>,<height>[,<x>[,<y>]].
type ResizeCropOp struct {
	raw
	Width, Height, X, Y string
}

func (ResizeCropOp) Name() string { return "resizecrop" }

func (o ResizeCropOp) Apply(t Target) error { return t.ResizeCrop(o.Width, o.Height, o.X, o.Y) }

// FormatOp is format,<format>. Format is normalized (jpeg becomes jpg).
type FormatOp struct {
	raw
	Format string
}

func (FormatOp) Name() string { return "format" }

func (o FormatOp) Apply(t Target) error { return t.Format(o.Format) }

// QualityOp is quality,<0-100>. Out of range values are clamped.
type QualityOp struct {
	raw
	Quality int
}

func (QualityOp) Name() string { return "quality" }

func (o QualityOp) Apply(t Target) error { return t.Quality(o.Quality) }

func param(params []string, i int, def string) string {
	if i < len(params) && params[i] != "" {
		return params[i]
	}
	return def
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "f", "false", "n", "no", "off":
		return false, nil
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	}
	return false, imgerr.Geometryf("invalid boolean %q", s)
}

func buildResize(params []string) (Operation, error) {
	op := ResizeOp{raw: raw{params}, Width: param(params, 0, "0"), Height: param(params, 1, "0")}
	if err := dims.ValidateLength(dims.X, op.Width); err != nil {
		return nil, err
	}
	if err := dims.ValidateLength(dims.Y, op.Height); err != nil {
		return nil, err
	}
	cover, err := parseBool(param(params, 2, ""))
	if err != nil {
		return nil, err
	}
	op.Cover = cover
	return op, nil
}

// box validates the shared width,height,x,y parameters of crop and resizecrop.
func box(params []string) (w, h, x, y string, err error) {
	w, h = param(params, 0, ""), param(params, 1, "")
	x, y = param(params, 2, "center"), param(params, 3, "middle")
	if err = dims.ValidateLength(dims.X, w); err != nil {
		return
	}
	if err = dims.ValidateLength(dims.Y, h); err != nil {
		return
	}
	if name, ok := crops.Normalize(x); ok {
		// the strategy picks both offsets; y is ignored
		return w, h, name, y, nil
	}
	if err = dims.ValidatePosition(dims.X, x); err != nil {
		return
	}
	err = dims.ValidatePosition(dims.Y, y)
	return
}

func buildCrop(params []string) (Operation, error) {
	w, h, x, y, err := box(params)
	if err != nil {
		return nil, err
	}
	return CropOp{raw: raw{params}, Width: w, Height: h, X: x, Y: y}, nil
}

func buildResizeCrop(params []string) (Operation, error) {
	w, h, x, y, err := box(params)
	if err != nil {
		return nil, err
	}
	return ResizeCropOp{raw: raw{params}, Width: w, Height: h, X: x, Y: y}, nil
}

func buildFormat(params []string) (Operation, error) {
	f, err := raster.NormalizeFormat(params[0])
	if err != nil {
		return nil, err
	}
	return FormatOp{raw: raw{params}, Format: f}, nil
}

func buildQuality(params []string) (Operation, error) {
	q, err := strconv.Atoi(params[0])
	if err != nil {
		return nil, imgerr.Configurationf("quality must be an integer, got %q", params[0])
	}
	return QualityOp{raw: raw{params}, Quality: raster.ClampQuality(q)}, nil
}
