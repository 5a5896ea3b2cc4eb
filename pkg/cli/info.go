package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Fepozopo/imgcow/pkg/exif"
	"github.com/Fepozopo/imgcow/pkg/imgerr"
	"github.com/Fepozopo/imgcow/pkg/session"
)

// ImageInfo is what the info command reports.
type ImageInfo struct {
	File     string     `json:"file,omitempty" yaml:"file,omitempty"`
	Engine   string     `json:"engine" yaml:"engine"`
	Width    int        `json:"width" yaml:"width"`
	Height   int        `json:"height" yaml:"height"`
	Mime     string     `json:"mime" yaml:"mime"`
	Animated bool       `json:"animated" yaml:"animated"`
	Exif     *exif.Data `json:"exif,omitempty" yaml:"exif,omitempty"`
}

// Describe collects ImageInfo for s. Missing EXIF is not an error.
func Describe(s *session.Session) (ImageInfo, error) {
	w, h, err := s.Size()
	if err != nil {
		return ImageInfo{}, err
	}
	mime, err := s.MimeType()
	if err != nil {
		return ImageInfo{}, err
	}
	info := ImageInfo{File: s.Filename(), Engine: s.Engine(), Width: w, Height: h, Mime: mime, Animated: s.Animated()}
	if mime == "image/jpeg" {
		if d, err := s.Exif(); err == nil {
			info.Exif = &d
		}
	}
	return info, nil
}

// WriteInfo renders info as "text", "json" or "yaml".
func WriteInfo(out io.Writer, info ImageInfo, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return writeInfoText(out, info)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return errors.WithStack(enc.Encode(info))
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(enc.Close())
	}
	return imgerr.Configurationf("unknown output format %q (text, json, yaml)", format)
}

func writeInfoText(out io.Writer, info ImageInfo) error {
	var b strings.Builder
	if info.File != "" {
		fmt.Fprintf(&b, "File: %s\n", info.File)
	}
	fmt.Fprintf(&b, "Size: %dx%d\nMime: %s\nEngine: %s\n", info.Width, info.Height, info.Mime, info.Engine)
	if info.Animated {
		b.WriteString("Animated: yes\n")
	}
	if ex := info.Exif; ex != nil {
		if ex.Make != "" || ex.Model != "" {
			fmt.Fprintf(&b, "Camera: %s %s\n", ex.Make, ex.Model)
		}
		if ex.LensModel != "" {
			fmt.Fprintf(&b, "Lens: %s\n", ex.LensModel)
		}
		if ex.Orientation != 0 {
			fmt.Fprintf(&b, "Orientation: %d\n", ex.Orientation)
		}
		if ex.DateTimeOriginal != "" {
			fmt.Fprintf(&b, "Taken: %s\n", ex.DateTimeOriginal)
		}
		if ex.ExposureTime != "" {
			fmt.Fprintf(&b, "Exposure: %s s\n", ex.ExposureTime)
		}
		if ex.FNumber != 0 {
			fmt.Fprintf(&b, "Aperture: f/%.1f\n", ex.FNumber)
		}
		if ex.ISO != 0 {
			fmt.Fprintf(&b, "ISO: %d\n", ex.ISO)
		}
		if ex.FocalLength != 0 {
			fmt.Fprintf(&b, "Focal length: %.1f mm\n", ex.FocalLength)
		}
		if g := ex.GPS; g != nil {
			fmt.Fprintf(&b, "GPS: %.6f, %.6f", g.Latitude, g.Longitude)
			if g.Altitude != 0 {
				fmt.Fprintf(&b, " at %.1f m", g.Altitude)
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(out, b.String())
	return errors.WithStack(err)
}
