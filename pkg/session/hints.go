package session

import (
	"math"
	"strconv"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/dims"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// Client hint header names, lower case.
const (
	HintDPR           = "dpr"
	HintViewportWidth = "viewport-width"
	HintWidth         = "width"
)

// ClientHints adjust the final size of resize and crop. Nil fields are unset.
type ClientHints struct {
	DPR           *float64
	ViewportWidth *float64
	Width         *float64
}

// IsZero reports whether no hint is set.
func (h ClientHints) IsZero() bool {
	return h.DPR == nil && h.ViewportWidth == nil && h.Width == nil
}

// Hints returns the current client hints.
func (s *Session) Hints() ClientHints { return s.hints }

// SetClientHints sets the hints named in values. Keys are matched case
// insensitively; an empty value unsets the hint. Keys not present in values
// keep their current value.
func (s *Session) SetClientHints(values map[string]string) error {
	next := s.hints
	for k, v := range values {
		var slot **float64
		switch strings.ToLower(strings.TrimSpace(k)) {
		case HintDPR:
			slot = &next.DPR
		case HintViewportWidth:
			slot = &next.ViewportWidth
		case HintWidth:
			slot = &next.Width
		default:
			return imgerr.Configurationf("unknown client hint %q (valid: dpr, viewport-width, width)", k)
		}
		v = strings.TrimSpace(v)
		if v == "" {
			*slot = nil
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return imgerr.Configurationf("client hint %s must be a positive number, got %q", k, v)
		}
		*slot = &f
	}
	s.hints = next
	return nil
}

// clientSize adapts a computed target size to the hints. A width hint smaller
// than the target wins over a smaller viewport; otherwise the pixel ratio
// scales the target.
func (s *Session) clientSize(w, h int) (int, int, error) {
	hints := s.hints
	switch {
	case hints.Width != nil && *hints.Width < float64(w):
		return dims.ProportionalResize(w, h, int(*hints.Width), 0, false)
	case hints.ViewportWidth != nil && *hints.ViewportWidth < float64(w):
		return dims.ProportionalResize(w, h, int(*hints.ViewportWidth), 0, false)
	case hints.DPR != nil:
		return int(float64(w) * *hints.DPR), int(float64(h) * *hints.DPR), nil
	}
	return w, h, nil
}
