// Package exif reads the subset of JPEG EXIF metadata imgcow needs: the
// orientation used by auto-rotation, plus the camera and GPS fields shown by
// the info command.
package exif

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Orientation values as stored in tag 0x0112. 2, 4, 5 and 7 are mirrored.
const (
	TopLeft     = 1
	TopRight    = 2
	BottomRight = 3
	BottomLeft  = 4
	LeftTop     = 5
	RightTop    = 6
	RightBottom = 7
	LeftBottom  = 8
)

// Data is the decoded metadata. Zero values mean the tag was absent.
type Data struct {
	Make             string  `json:"make,omitempty" yaml:"make,omitempty"`
	Model            string  `json:"model,omitempty" yaml:"model,omitempty"`
	Software         string  `json:"software,omitempty" yaml:"software,omitempty"`
	Orientation      int     `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	DateTime         string  `json:"datetime,omitempty" yaml:"datetime,omitempty"`
	DateTimeOriginal string  `json:"datetime_original,omitempty" yaml:"datetime_original,omitempty"`
	ExposureTime     string  `json:"exposure_time,omitempty" yaml:"exposure_time,omitempty"`
	FNumber          float64 `json:"f_number,omitempty" yaml:"f_number,omitempty"`
	ISO              int     `json:"iso,omitempty" yaml:"iso,omitempty"`
	FocalLength      float64 `json:"focal_length_mm,omitempty" yaml:"focal_length_mm,omitempty"`
	LensModel        string  `json:"lens_model,omitempty" yaml:"lens_model,omitempty"`
	GPS              *GPS    `json:"gps,omitempty" yaml:"gps,omitempty"`
}

// GPS holds decimal coordinates; south and west are negative.
type GPS struct {
	Latitude  float64   `json:"lat" yaml:"lat"`
	Longitude float64   `json:"lon" yaml:"lon"`
	Altitude  float64   `json:"altitude,omitempty" yaml:"altitude,omitempty"`
	Time      time.Time `json:"time,omitempty" yaml:"time,omitempty"`
}

// ReadFile reads the metadata of the JPEG at path.
func ReadFile(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, errors.WithStack(err)
	}
	return Read(b)
}

// Read decodes the EXIF block of a JPEG. Images without one return an
// error; use Orientation when only the orientation matters.
func Read(jpeg []byte) (Data, error) {
	start, err := tiffOffset(jpeg)
	if err != nil {
		return Data{}, err
	}
	tags, err := readTags(jpeg, start)
	if err != nil {
		return Data{}, err
	}
	return decode(tags), nil
}

// Orientation returns the orientation tag (1..8), or 0 when the image has
// no usable one.
func Orientation(jpeg []byte) int {
	d, err := Read(jpeg)
	if err != nil || d.Orientation < TopLeft || d.Orientation > LeftBottom {
		return 0
	}
	return d.Orientation
}

func decode(tags map[tagKey]string) Data {
	str := func(dir ifd, tag uint16) string { return tags[tagKey{dir, tag}] }
	num := func(dir ifd, tag uint16) int {
		n, _ := strconv.Atoi(strings.SplitN(str(dir, tag), ",", 2)[0])
		return n
	}
	rat := func(dir ifd, tag uint16) float64 {
		f, _ := rational(str(dir, tag))
		return f
	}

	d := Data{
		Make:             str(ifd0, 0x010F),
		Model:            str(ifd0, 0x0110),
		Orientation:      num(ifd0, 0x0112),
		Software:         str(ifd0, 0x0131),
		DateTime:         str(ifd0, 0x0132),
		ExposureTime:     str(ifdExif, 0x829A),
		FNumber:          rat(ifdExif, 0x829D),
		ISO:              num(ifdExif, 0x8827),
		DateTimeOriginal: str(ifdExif, 0x9003),
		FocalLength:      rat(ifdExif, 0x920A),
		LensModel:        str(ifdExif, 0xA434),
	}

	lat, errLat := degrees(str(ifdGPS, 0x0002), str(ifdGPS, 0x0001))
	lon, errLon := degrees(str(ifdGPS, 0x0004), str(ifdGPS, 0x0003))
	if errLat != nil || errLon != nil {
		return d
	}
	d.GPS = &GPS{Latitude: lat, Longitude: lon, Altitude: rat(ifdGPS, 0x0006)}
	if str(ifdGPS, 0x0005) == "1" {
		d.GPS.Altitude = -d.GPS.Altitude
	}
	d.GPS.Time = gpsTime(str(ifdGPS, 0x001D), str(ifdGPS, 0x0007))
	return d
}

func rational(s string) (float64, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, errors.Errorf("invalid rational %q", s)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	q, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if q == 0 {
		return 0, errors.New("zero denominator")
	}
	return n / q, nil
}

func rationals(s string) ([]float64, error) {
	var out []float64
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := rational(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no values")
	}
	return out, nil
}

// degrees converts degrees/minutes/seconds and a N/S/E/W reference to a
// signed decimal value.
func degrees(dms, ref string) (float64, error) {
	v, err := rationals(dms)
	if err != nil {
		return 0, err
	}
	d := v[0]
	if len(v) > 1 {
		d += v[1] / 60
	}
	if len(v) > 2 {
		d += v[2] / 3600
	}
	if ref == "S" || ref == "W" {
		d = -d
	}
	return d, nil
}

// gpsTime combines the YYYY:MM:DD date stamp with the h/m/s time stamp.
func gpsTime(date, clock string) time.Time {
	day, err := time.Parse("2006:01:02", date)
	if err != nil {
		return time.Time{}
	}
	hms, err := rationals(clock)
	if err != nil || len(hms) < 3 {
		return day
	}
	return day.Add(time.Duration(hms[0]*float64(time.Hour) + hms[1]*float64(time.Minute) + hms[2]*float64(time.Second)))
}
