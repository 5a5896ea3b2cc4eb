// Package dims converts pixel, percent and keyword values into absolute pixel
// geometry and computes proportional resize targets.
//
// All functions are pure. Percent values are resolved against the reference
// size passed in at the moment of use and are never cached.
package dims

import (
	"strconv"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// Axis selects the keyword set and the meaning of a value: X uses
// left/center/right, Y uses top/middle/bottom.
type Axis int

const (
	X Axis = iota
	Y
)

func (a Axis) String() string {
	if a == Y {
		return "y"
	}
	return "x"
}

// Kind is the tag of a parsed Value.
type Kind int

const (
	Pixels Kind = iota
	Percent
	Keyword
)

// Value is a parsed dimension or position: a pixel count, a percentage or an
// axis keyword, optionally followed by a signed pixel or percent offset.
type Value struct {
	Kind    Kind
	Number  float64 // pixels or percent, unused for keywords
	Keyword string  // lower-case keyword when Kind == Keyword
	Offset  *Value  // signed trailing offset, Pixels or Percent only
}

var keywords = map[Axis]map[string]float64{
	X: {"left": 0, "center": 50, "right": 100},
	Y: {"top": 0, "middle": 50, "bottom": 100},
}

// Parse parses s using the position grammar base[sign offset]. Whitespace is
// ignored and keywords are case-insensitive. An empty string parses as 0px.
func Parse(axis Axis, s string) (Value, error) {
	s = strings.Join(strings.Fields(s), "")
	split := strings.IndexAny(s[min(1, len(s)):], "+-")
	if split >= 0 {
		split++
	}
	// a sign directly after an exponent marker belongs to the number
	if split > 0 && (s[split-1] == 'e' || s[split-1] == 'E') {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			split = -1
		}
	}
	base, offset := s, ""
	if split > 0 {
		base, offset = s[:split], s[split:]
	}
	v, err := parseTerm(axis, base, true)
	if err != nil {
		return Value{}, err
	}
	if offset != "" {
		o, err := parseTerm(axis, offset, false)
		if err != nil {
			return Value{}, err
		}
		v.Offset = &o
	}
	return v, nil
}

func parseTerm(axis Axis, s string, allowKeyword bool) (Value, error) {
	if s == "" {
		return Value{Kind: Pixels}, nil
	}
	lower := strings.ToLower(s)
	if allowKeyword {
		if _, ok := keywords[axis][lower]; ok {
			return Value{Kind: Keyword, Keyword: lower}, nil
		}
	}
	if strings.HasSuffix(lower, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(lower, "%"), 64)
		if err != nil {
			return Value{}, imgerr.Geometryf("invalid %s percentage %q", axis, s)
		}
		return Value{Kind: Percent, Number: f}, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(lower, "px"), 64)
	if err != nil {
		return Value{}, imgerr.Geometryf("invalid %s value %q", axis, s)
	}
	return Value{Kind: Pixels, Number: f}, nil
}

// percent returns the percentage a Percent or Keyword value stands for.
func (v Value) percent(axis Axis) float64 {
	if v.Kind == Keyword {
		return keywords[axis][v.Keyword]
	}
	return v.Number
}

// length resolves a single term against reference. Percentages truncate.
func (v Value) length(axis Axis, reference int) (int, error) {
	if v.Kind == Pixels {
		return int(v.Number), nil
	}
	if reference <= 0 {
		return 0, imgerr.Geometryf("cannot resolve %s percentage against size %d", axis, reference)
	}
	return int(float64(reference) * v.percent(axis) / 100), nil
}

func (v Value) String() string {
	var s string
	switch v.Kind {
	case Keyword:
		s = v.Keyword
	case Percent:
		s = strconv.FormatFloat(v.Number, 'f', -1, 64) + "%"
	default:
		s = strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	if v.Offset != nil {
		o := v.Offset.String()
		if !strings.HasPrefix(o, "-") {
			o = "+" + o
		}
		s += o
	}
	return s
}

// ResolveLength converts value to pixels. Percentages are taken of reference
// and truncated toward zero. With position set, axis keywords resolve as
// 0%, 50% or 100%; otherwise a keyword is a GeometryError.
func ResolveLength(axis Axis, value string, reference int, position bool) (int, error) {
	v, err := Parse(axis, value)
	if err != nil {
		return 0, err
	}
	if v.Offset != nil {
		return 0, imgerr.Geometryf("unexpected offset in %s length %q", axis, value)
	}
	if v.Kind == Keyword && !position {
		return 0, imgerr.Geometryf("keyword %q is only valid as a position", v.Keyword)
	}
	return v.length(axis, reference)
}

// ResolvePosition returns the pixel offset of a box of newSize placed inside
// a box of oldSize according to spec. A numeric base is used as is; a keyword
// or percent base yields the distance between the two anchor points. The
// optional offset term is resolved against oldSize and added.
func ResolvePosition(axis Axis, spec string, newSize, oldSize int) (int, error) {
	v, err := Parse(axis, spec)
	if err != nil {
		return 0, err
	}
	var pos int
	if v.Kind == Pixels {
		pos = int(v.Number)
	} else {
		n, err := v.length(axis, newSize)
		if err != nil {
			return 0, err
		}
		o, err := v.length(axis, oldSize)
		if err != nil {
			return 0, err
		}
		pos = o - n
	}
	if v.Offset != nil {
		off, err := v.Offset.length(axis, oldSize)
		if err != nil {
			return 0, err
		}
		pos += off
	}
	return pos, nil
}

// ProportionalResize computes the target size for a resize of srcW x srcH
// towards reqW x reqH. A zero request dimension is derived from the other one.
// With both set, fit mode (cover false) scales by the smaller ratio and cover
// mode by the larger; exact ties return the requested pair. Derived dimensions
// are rounded up.
func ProportionalResize(srcW, srcH, reqW, reqH int, cover bool) (int, int, error) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0, imgerr.Geometryf("invalid source size %dx%d", srcW, srcH)
	}
	if reqW < 0 || reqH < 0 {
		return 0, 0, imgerr.Geometryf("negative target size %dx%d", reqW, reqH)
	}
	if reqW == 0 && reqH == 0 {
		return 0, 0, imgerr.Geometryf("target width and height are both zero")
	}
	sw, sh, rw, rh := int64(srcW), int64(srcH), int64(reqW), int64(reqH)
	switch {
	case reqH == 0:
		return reqW, int(ceilDiv(rw*sh, sw)), nil
	case reqW == 0:
		return int(ceilDiv(rh*sw, sh)), reqH, nil
	}
	// compare rw/sw with rh/sh without floating point
	byWidth, byHeight := rw*sh, rh*sw
	if byWidth == byHeight {
		return reqW, reqH, nil
	}
	if (byWidth > byHeight) == cover {
		return reqW, int(ceilDiv(rw*sh, sw)), nil
	}
	return int(ceilDiv(rh*sw, sh)), reqH, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// ValidateLength checks the syntax of a width or height value.
func ValidateLength(axis Axis, value string) error {
	_, err := ResolveLength(axis, value, 100, false)
	return err
}

// ValidatePosition checks the syntax of a position value.
func ValidatePosition(axis Axis, spec string) error {
	_, err := ResolvePosition(axis, spec, 100, 100)
	return err
}
