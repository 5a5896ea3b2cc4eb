package imgerr

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{Geometryf("width %d", -1), ErrGeometry},
		{Parsef("unknown operation %q", "x"), ErrParse},
		{Configurationf("bad adapter"), ErrConfiguration},
		{NotLoadedf("closed"), ErrNotLoaded},
		{Unavailablef("face detection"), ErrCapabilityUnavailable},
		{Backendf("encode"), ErrBackend},
	}
	all := []error{ErrGeometry, ErrParse, ErrConfiguration, ErrNotLoaded, ErrBackend, ErrCapabilityUnavailable}
	for _, c := range cases {
		assert.True(t, errors.Is(c.err, c.want), "%v should match %v", c.err, c.want)
		for _, other := range all {
			if other == c.want {
				continue
			}
			assert.False(t, errors.Is(c.err, other), "%v should not match %v", c.err, other)
		}
	}
}

func TestWrapBackendKeepsCause(t *testing.T) {
	err := WrapBackend(os.ErrNotExist, "open %s", "a.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "open a.png")
	assert.Equal(t, Backend, KindOf(err))
}

func TestWrapBackendNilAndClassified(t *testing.T) {
	assert.NoError(t, WrapBackend(nil, "noop"))

	inner := Geometryf("zero width")
	err := WrapBackend(inner, "resize")
	assert.True(t, errors.Is(err, ErrGeometry))
	assert.False(t, errors.Is(err, ErrBackend))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "parse error: bad", Parsef("bad").Error())
}

func TestWrapParseKeepsCause(t *testing.T) {
	assert.NoError(t, WrapParse(nil, "nothing"))

	err := WrapParse(Geometryf("width %q", "abc"), "resize")
	assert.True(t, errors.Is(err, ErrParse))
	assert.True(t, errors.Is(err, ErrGeometry))
	assert.Equal(t, Parse, KindOf(err))
	assert.Contains(t, err.Error(), "resize")
}
