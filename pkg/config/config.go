// Package config loads imgcow settings from .env, the environment and an
// optional YAML presets file.
package config

import (
	"image/color"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/session"
)

// Environment variables read by Load.
const (
	EnvBackend      = "IMGCOW_BACKEND"
	EnvQuality      = "IMGCOW_QUALITY"
	EnvBackground   = "IMGCOW_BACKGROUND"
	EnvLogLevel     = "IMGCOW_LOG_LEVEL"
	EnvFaceCascades = "IMGCOW_FACE_CASCADES"
	EnvPresets      = "IMGCOW_PRESETS"
)

// Config is the resolved configuration. CLI flags override its fields.
type Config struct {
	Backend      string
	Quality      int
	Background   color.NRGBA
	LogLevel     slog.Level
	FaceCascades []string
	PresetsPath  string
	Presets      map[string]string
	Rules        map[string]string
}

// presetFile is the YAML layout of the presets file.
type presetFile struct {
	Presets map[string]string `yaml:"presets"`
	Rules   map[string]string `yaml:"rules"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := raster.DefaultSettings()
	return Config{
		Backend:    "auto",
		Quality:    s.Quality,
		Background: s.Background,
		LogLevel:   slog.LevelInfo,
		Presets:    map[string]string{},
		Rules:      map[string]string{},
	}
}

// Load reads .env from the working directory if present, then the IMGCOW_*
// variables, then the presets file. presetsPath wins over IMGCOW_PRESETS.
func Load(presetsPath string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if cfg.Backend != "auto" {
		if _, err := raster.Lookup(cfg.Backend); err != nil {
			return cfg, err
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvQuality)); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil || q < 0 || q > 100 {
			return cfg, imgerr.Configurationf("%s must be an integer between 0 and 100, got %q", EnvQuality, v)
		}
		cfg.Quality = q
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackground)); v != "" {
		c, err := ParseColor(v)
		if err != nil {
			return cfg, err
		}
		cfg.Background = c
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		lvl, err := ParseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = lvl
	}
	for _, p := range strings.Split(os.Getenv(EnvFaceCascades), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.FaceCascades = append(cfg.FaceCascades, p)
		}
	}

	if presetsPath == "" {
		presetsPath = strings.TrimSpace(os.Getenv(EnvPresets))
	}
	if presetsPath != "" {
		if err := cfg.loadPresets(presetsPath); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (c *Config) loadPresets(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return imgerr.WrapBackend(err, "read presets %s", path)
	}
	var f presetFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return imgerr.Configurationf("presets %s: %v", path, err)
	}
	for k, v := range f.Presets {
		c.Presets[k] = v
	}
	for k, v := range f.Rules {
		c.Rules[k] = v
	}
	c.PresetsPath = path
	slog.Debug("presets loaded", "path", path, "presets", len(f.Presets), "rules", len(f.Rules))
	return nil
}

// Ops returns the named preset, or s itself when no preset is called s.
func (c Config) Ops(s string) string {
	if v, ok := c.Presets[s]; ok {
		return v
	}
	return s
}

// ResponsiveRules returns the named rule set, or s itself.
func (c Config) ResponsiveRules(s string) string {
	if v, ok := c.Rules[s]; ok {
		return v
	}
	return s
}

// SessionOptions translates the configuration into session options. The
// returned close function releases the face detector, if one was built.
func (c Config) SessionOptions() ([]session.Option, func(), error) {
	opts := []session.Option{session.WithBackend(c.Backend)}
	if len(c.FaceCascades) == 0 {
		return opts, func() {}, nil
	}
	d, err := crops.NewCascadeDetector(c.FaceCascades...)
	if err != nil {
		return nil, func() {}, err
	}
	opts = append(opts, session.WithFaceDetector(d))
	return opts, func() { d.Close() }, nil
}

// Apply sets quality and background on a freshly loaded session.
func (c Config) Apply(s *session.Session) error {
	if err := s.Quality(c.Quality); err != nil {
		return err
	}
	return s.Background(c.Background)
}

// ParseColor parses a hex colour such as "#fff" or "#1e90ff". An eight digit
// form carries alpha.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, imgerr.Configurationf("invalid colour %q", s)
		}
		alpha, s = uint8(a), s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, imgerr.Configurationf("invalid colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, imgerr.Configurationf("invalid log level %q", s)
	}
	return lvl, nil
}
