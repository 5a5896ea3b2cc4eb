package dims

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

func TestResolveLength(t *testing.T) {
	cases := []struct {
		axis     Axis
		value    string
		ref      int
		position bool
		want     int
	}{
		{X, "500", 1000, false, 500},
		{X, "12.9", 1000, false, 12},
		{X, "40px", 1000, false, 40},
		{X, "", 1000, false, 0},
		{X, "50%", 1000, false, 500},
		{X, "50%", 333, false, 166},
		{Y, "33.3%", 100, false, 33},
		{X, " 25 % ", 200, false, 50},
		{X, "center", 333, true, 166},
		{X, "RIGHT", 640, true, 640},
		{Y, "top", 480, true, 0},
		{Y, "middle", 480, true, 240},
		{Y, "bottom", 480, true, 480},
	}
	for _, c := range cases {
		got, err := ResolveLength(c.axis, c.value, c.ref, c.position)
		require.NoError(t, err, "value %q", c.value)
		assert.Equal(t, c.want, got, "value %q against %d", c.value, c.ref)
	}
}

func TestResolveLengthErrors(t *testing.T) {
	cases := []struct {
		axis     Axis
		value    string
		ref      int
		position bool
	}{
		{X, "50%", 0, false},
		{X, "abc", 100, false},
		{X, "center", 100, false},
		{Y, "left", 100, true},
		{X, "10+5", 100, false},
	}
	for _, c := range cases {
		_, err := ResolveLength(c.axis, c.value, c.ref, c.position)
		require.Error(t, err, "value %q", c.value)
		assert.True(t, errors.Is(err, imgerr.ErrGeometry), "value %q: %v", c.value, err)
	}
}

func TestResolvePosition(t *testing.T) {
	cases := []struct {
		axis     Axis
		spec     string
		new, old int
		want     int
	}{
		{X, "center", 300, 1000, 350},
		{X, "right", 640, 640, 0},
		{X, "right", 200, 1000, 800},
		{X, "right-50px", 200, 1000, 750},
		{X, "left+10", 200, 1000, 10},
		{Y, "middle", 100, 500, 200},
		{Y, "bottom-10%", 100, 500, 350},
		{X, "100%+10", 200, 1000, 810},
		{X, "25", 200, 1000, 25},
		{X, "-50", 200, 1000, -50},
		{X, "", 200, 1000, 0},
	}
	for _, c := range cases {
		got, err := ResolvePosition(c.axis, c.spec, c.new, c.old)
		require.NoError(t, err, "spec %q", c.spec)
		assert.Equal(t, c.want, got, "spec %q", c.spec)
	}
}

func TestResolvePositionCenterMatchesHalfDifference(t *testing.T) {
	for _, old := range []int{100, 640, 1000, 1920} {
		for _, n := range []int{10, 50, 100} {
			got, err := ResolvePosition(X, "center", n, old)
			require.NoError(t, err)
			assert.Equal(t, (old-n)/2, got)
		}
	}
}

func TestResolvePositionZeroSize(t *testing.T) {
	_, err := ResolvePosition(X, "center", 0, 100)
	assert.True(t, errors.Is(err, imgerr.ErrGeometry))
}

func TestProportionalResize(t *testing.T) {
	cases := []struct {
		srcW, srcH, reqW, reqH int
		cover                  bool
		w, h                   int
	}{
		{1000, 500, 500, 0, false, 500, 250},
		{1000, 500, 0, 100, false, 200, 100},
		{1000, 500, 500, 500, true, 1000, 500},
		{1000, 500, 500, 500, false, 500, 250},
		{1000, 500, 250, 200, true, 400, 200},
		{1000, 500, 250, 200, false, 250, 125},
		{1000, 500, 200, 100, true, 200, 100},
		{1000, 500, 200, 100, false, 200, 100},
		{333, 777, 100, 0, false, 100, 234},
		{1600, 900, 800, 0, false, 800, 450},
	}
	for _, c := range cases {
		w, h, err := ProportionalResize(c.srcW, c.srcH, c.reqW, c.reqH, c.cover)
		require.NoError(t, err)
		assert.Equal(t, [2]int{c.w, c.h}, [2]int{w, h}, "%+v", c)
	}
}

func TestProportionalResizeKeepsAspect(t *testing.T) {
	sizes := [][2]int{{1000, 500}, {640, 480}, {1920, 1080}, {300, 900}}
	reqs := [][2]int{{100, 0}, {0, 100}, {250, 250}, {500, 120}}
	for _, s := range sizes {
		for _, r := range reqs {
			for _, cover := range []bool{false, true} {
				w, h, err := ProportionalResize(s[0], s[1], r[0], r[1], cover)
				require.NoError(t, err)
				if w == r[0] && h == r[1] {
					continue
				}
				want := float64(s[0]) / float64(s[1])
				got := float64(w) / float64(h)
				assert.InDelta(t, want, got, want*0.05, "src %v req %v cover %v", s, r, cover)
				if cover {
					assert.True(t, w >= r[0] && h >= r[1], "cover must contain the box")
				} else {
					assert.True(t, w <= r[0]+1 || r[0] == 0)
					assert.True(t, h <= r[1]+1 || r[1] == 0)
				}
			}
		}
	}
}

func TestProportionalResizeErrors(t *testing.T) {
	bad := [][5]int{
		{0, 100, 10, 10, 0},
		{100, -1, 10, 10, 0},
		{100, 100, -10, 10, 0},
		{100, 100, 0, 0, 0},
	}
	for _, b := range bad {
		_, _, err := ProportionalResize(b[0], b[1], b[2], b[3], b[4] == 1)
		assert.True(t, errors.Is(err, imgerr.ErrGeometry), "%v", b)
	}
}

func TestParseValue(t *testing.T) {
	v, err := Parse(X, "right-50px")
	require.NoError(t, err)
	assert.Equal(t, Keyword, v.Kind)
	assert.Equal(t, "right", v.Keyword)
	require.NotNil(t, v.Offset)
	assert.Equal(t, Pixels, v.Offset.Kind)
	assert.Equal(t, -50.0, v.Offset.Number)
	assert.Equal(t, "right-50", v.String())

	v, err = Parse(Y, "12.5%")
	require.NoError(t, err)
	assert.Equal(t, Percent, v.Kind)
	assert.Equal(t, "12.5%", v.String())

	v, err = Parse(X, "1e2")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.Number)
	assert.False(t, math.IsNaN(v.Number))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ValidateLength(X, "50%"))
	assert.Error(t, ValidateLength(X, "center"))
	assert.NoError(t, ValidatePosition(Y, "bottom-10"))
	assert.Error(t, ValidatePosition(Y, "bottom-ten"))
}
