package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/imgcow/pkg/config"
	"github.com/Fepozopo/imgcow/pkg/session"
	"github.com/Fepozopo/imgcow/pkg/stdimg"
	"github.com/Fepozopo/imgcow/pkg/transform"
)

// isolate clears configuration and preview detection from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		config.EnvBackend, config.EnvQuality, config.EnvBackground, config.EnvLogLevel,
		config.EnvFaceCascades, config.EnvPresets,
		"TERM_PROGRAM", "ITERM_SESSION_ID", "KITTY_WINDOW_ID", "KONSOLE_VERSION", "WT_SESSION",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("TERM", "dumb")
	t.Setenv("IMGCOW_PREVIEW", "off")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimg.SolidNRGBA(w, h, color.NRGBA{R: 200, G: 50, B: 50, A: 255})))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTransformCommand(t *testing.T) {
	dir := isolate(t)
	in, out := filepath.Join(dir, "in.png"), filepath.Join(dir, "out.jpg")
	writePNG(t, in, 400, 200)

	_, err := run(t, "--backend", "native", "transform", in, out, "--ops", "resizecrop,100,80|format,jpg", "--quality", "70")
	require.NoError(t, err)
	w, h := imageSize(t, out)
	assert.Equal(t, [2]int{100, 80}, [2]int{w, h})
}

func TestTransformCommandPresetAndRules(t *testing.T) {
	dir := isolate(t)
	presets := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(presets, []byte("presets:\n  half: \"resize,50%\"\nrules:\n  small: \"max-width=500:resize,100\"\n"), 0o644))
	in, out := filepath.Join(dir, "in.png"), filepath.Join(dir, "out.png")
	writePNG(t, in, 400, 200)

	_, err := run(t, "--presets", presets, "transform", in, out, "--ops", "half", "--rules", "small", "--client-width", "400", "--client-height", "300")
	require.NoError(t, err)
	w, h := imageSize(t, out)
	assert.Equal(t, [2]int{100, 50}, [2]int{w, h})
}

func TestTransformCommandErrors(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 40, 20)

	_, err := run(t, "transform", in, filepath.Join(dir, "out.png"))
	assert.Error(t, err)
	_, err = run(t, "transform", in, filepath.Join(dir, "out.png"), "--ops", "resize,10|badop")
	assert.Error(t, err)
	_, err = run(t, "transform", in, filepath.Join(dir, "out.png"), "--ops", "resize,10", "--dpr", "x")
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "out.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestInfoCommand(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 30, 20)

	out, err := run(t, "info", in, "-o", "json")
	require.NoError(t, err)
	var info ImageInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 30, info.Width)
	assert.Equal(t, "image/png", info.Mime)
	assert.Nil(t, info.Exif)

	out, err = run(t, "info", in, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "width: 30")

	out, err = run(t, "info", in)
	require.NoError(t, err)
	assert.Contains(t, out, "Size: 30x20")

	_, err = run(t, "info", in, "-o", "xml")
	assert.Error(t, err)
}

func TestOpsCommand(t *testing.T) {
	isolate(t)
	out, err := run(t, "ops")
	require.NoError(t, err)
	for _, n := range transform.Names() {
		assert.Contains(t, out, n)
	}
	assert.Contains(t, out, "Entropy")
}

func TestREPL(t *testing.T) {
	dir := isolate(t)
	in, saved := filepath.Join(dir, "in.png"), filepath.Join(dir, "saved.png")
	writePNG(t, in, 200, 100)

	root := &rootFlags{cfg: config.Default()}
	input := strings.Join([]string{
		"t", "resize,50%",
		"t", "badop,1",
		"h",
		"s", saved,
		"q",
	}, "\n") + "\n"
	var out bytes.Buffer
	r := NewREPL(root, NewPrompter(strings.NewReader(input), &out), &out)
	defer r.Close()
	require.NoError(t, r.Open(in))
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "Applied resize,50%")
	assert.Contains(t, out.String(), "transform failed")
	assert.Contains(t, out.String(), "Exiting...")
	w, h := imageSize(t, saved)
	assert.Equal(t, [2]int{100, 50}, [2]int{w, h})
}

func TestREPLWithoutImage(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	r := NewREPL(&rootFlags{cfg: config.Default()}, NewPrompter(strings.NewReader("t\ns\n"), &out), &out)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(out.String(), "No image loaded"))
}

func TestPickFromList(t *testing.T) {
	cases := map[string]string{"2": "resizecrop", "RESIZE": "resize", "fo": "format"}
	for in, want := range cases {
		var out bytes.Buffer
		r := NewREPL(nil, NewPrompter(strings.NewReader(in+"\n"), &out), &out)
		got, err := r.pickFromList()
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"res", "9", "rotate", ""} {
		var out bytes.Buffer
		r := NewREPL(nil, NewPrompter(strings.NewReader(in+"\n"), &out), &out)
		_, err := r.pickFromList()
		assert.Error(t, err, in)
	}
}

func TestFzfLines(t *testing.T) {
	lines := fzfLines(transform.Specs)
	assert.True(t, strings.HasPrefix(lines, "resize: "))
	name, err := pickedName("crop: Crop a box\n")
	require.NoError(t, err)
	assert.Equal(t, "crop", name)
	_, err = pickedName("  ")
	assert.Error(t, err)
}

func TestCells(t *testing.T) {
	cols, rows := cells(16, 16)
	assert.Equal(t, [2]int{6, 3}, [2]int{cols, rows})
	cols, rows = cells(6400, 640)
	assert.Equal(t, 80, cols)
	assert.Equal(t, 4, rows)
}

func previewSession(t *testing.T) *session.Session {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimg.SolidNRGBA(4, 4, color.NRGBA{A: 255})))
	s, err := session.FromBytes(buf.Bytes(), session.WithBackend("native"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreviewInline(t *testing.T) {
	isolate(t)
	t.Setenv("IMGCOW_PREVIEW", "")
	t.Setenv("TERM_PROGRAM", "WezTerm")
	var out bytes.Buffer
	require.NoError(t, Preview(&out, previewSession(t)))
	assert.Contains(t, out.String(), "\x1b]1337;File=inline=1")
}

func TestPreviewKittyUsesPNG(t *testing.T) {
	isolate(t)
	t.Setenv("IMGCOW_PREVIEW", "kitty")
	s := previewSession(t)
	require.NoError(t, s.Format("jpg"))
	var out bytes.Buffer
	require.NoError(t, Preview(&out, s))
	assert.True(t, strings.HasPrefix(out.String(), "\x1b_Ga=T,f=100,"))
}

func TestPreviewOff(t *testing.T) {
	isolate(t)
	assert.Error(t, Preview(&bytes.Buffer{}, previewSession(t)))
}
