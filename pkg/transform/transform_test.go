package transform

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// recorder is a Target that logs every call.
type recorder struct {
	calls []string
}

func (r *recorder) Resize(w, h string, cover bool) error {
	r.calls = append(r.calls, fmt.Sprintf("resize %s %s %v", w, h, cover))
	return nil
}

func (r *recorder) Crop(w, h, x, y string) error {
	r.calls = append(r.calls, fmt.Sprintf("crop %s %s %s %s", w, h, x, y))
	return nil
}

func (r *recorder) ResizeCrop(w, h, x, y string) error {
	r.calls = append(r.calls, fmt.Sprintf("resizecrop %s %s %s %s", w, h, x, y))
	return nil
}

func (r *recorder) Format(f string) error {
	r.calls = append(r.calls, "format "+f)
	return nil
}

func (r *recorder) Quality(q int) error {
	r.calls = append(r.calls, fmt.Sprintf("quality %d", q))
	return nil
}

func TestParseKeepsOrderAndParams(t *testing.T) {
	ops, err := Parse("resize,500,300|crop,100,100,center,middle")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "resize", ops[0].Name())
	assert.Equal(t, []string{"500", "300"}, ops[0].Params())
	assert.Equal(t, "crop", ops[1].Name())
	assert.Equal(t, []string{"100", "100", "center", "middle"}, ops[1].Params())
}

func TestParseApply(t *testing.T) {
	ops, err := Parse(" ReSizeCrop, 300 ,200, crop_entropy | FORMAT,JPEG|quality,80 |resize,50%|crop,10,10")
	require.NoError(t, err)

	rec := &recorder{}
	for _, op := range ops {
		require.NoError(t, op.Apply(rec))
	}
	assert.Equal(t, []string{
		"resizecrop 300 200 Entropy middle",
		"format jpg",
		"quality 80",
		"resize 50% 0 false",
		"crop 10 10 center middle",
	}, rec.calls)
	assert.Equal(t, "resizecrop,300,200,crop_entropy|format,JPEG|quality,80|resize,50%|crop,10,10", String(ops))
}

func TestParseCover(t *testing.T) {
	ops, err := Parse("resize,100,100,true")
	require.NoError(t, err)
	assert.True(t, ops[0].(ResizeOp).Cover)

	_, err = Parse("resize,100,100,maybe")
	assert.True(t, errors.Is(err, imgerr.ErrParse))
}

func TestParseQualityClamps(t *testing.T) {
	ops, err := Parse("quality,150|quality,-3")
	require.NoError(t, err)
	assert.Equal(t, 100, ops[0].(QualityOp).Quality)
	assert.Equal(t, 0, ops[1].(QualityOp).Quality)
}

func TestParseEmpty(t *testing.T) {
	ops, err := Parse("  ")
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown":        "unknown,1",
		"unknown later":  "resize,100|badop,1",
		"empty entry":    "resize,100||format,png",
		"too few":        "crop,100",
		"too many":       "quality,1,2",
		"missing width":  "resize,",
		"bad length":     "resize,abc",
		"keyword width":  "crop,left,100",
		"bad position":   "crop,100,100,middle",
		"bad y position": "crop,100,100,left,center",
		"bad format":     "format,tiff",
		"nan quality":    "quality,high",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			ops, err := Parse(in)
			assert.Nil(t, ops)
			assert.True(t, errors.Is(err, imgerr.ErrParse), "%v", err)
		})
	}
}

func TestSpecs(t *testing.T) {
	assert.Equal(t, []string{"resize", "resizecrop", "crop", "format", "quality"}, Names())
	s, ok := Lookup("RESIZECROP")
	require.True(t, ok)
	assert.Contains(t, s.Help(), "default center")
	_, ok = Lookup("rotate")
	assert.False(t, ok)
}

func TestResponsive(t *testing.T) {
	props := ClientProperties{Width: 400, Height: 300}
	cases := []struct{ rules, want string }{
		{"resize,500,300;max-width=400:resize,400", "resize,500,300|resize,400"},
		{"resize,500,300;min-width=400:resize,400", "resize,500,300|resize,400"},
		{"resize,500,300;max-width=399:resize,400", "resize,500,300"},
		{"resize,500,300;min-width=401:resize,400", "resize,500,300"},
		{"resize,500,300;min-width=399,max-width=401:resize,400", "resize,500,300|resize,400"},
		{"resize,500,300;min-width=398,max-width=399:resize,400", "resize,500,300"},
		{"resize,500,300;min-width=398,max-width=400:resize,400", "resize,500,300|resize,400"},
		{"height=300:crop,10,10;width=401:format,png", "crop,10,10"},
		{"max-height=200:resize,1", ""},
	}
	for _, c := range cases {
		got, err := Responsive(c.rules, props)
		require.NoError(t, err, c.rules)
		assert.Equal(t, c.want, got, c.rules)
	}

	_, err := Responsive("orientation=1:resize,10", props)
	assert.True(t, errors.Is(err, imgerr.ErrParse))
	_, err = Responsive("max-width:resize,10", props)
	assert.True(t, errors.Is(err, imgerr.ErrParse))
	_, err = Responsive("max-width=wide:resize,10", props)
	assert.True(t, errors.Is(err, imgerr.ErrParse))
}

func TestParseClientProperties(t *testing.T) {
	p, err := ParseClientProperties("400,300,fast")
	require.NoError(t, err)
	assert.Equal(t, ClientProperties{Width: 400, Height: 300}, p)

	_, err = ParseClientProperties("400")
	assert.True(t, errors.Is(err, imgerr.ErrParse))
}
