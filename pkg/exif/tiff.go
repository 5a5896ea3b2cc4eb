package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ifd identifies the directory a tag was read from.
type ifd uint8

const (
	ifd0 ifd = iota
	ifdExif
	ifdGPS
)

const (
	tagExifPointer = 0x8769
	tagGPSPointer  = 0x8825
)

type tagKey struct {
	dir ifd
	tag uint16
}

// TIFF field types and their sizes in bytes.
const (
	typeByte     = 1
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

var typeSize = map[uint16]int{
	typeByte:     1,
	typeASCII:    1,
	typeShort:    2,
	typeLong:     4,
	typeRational: 8,
}

var errNoExif = errors.New("no exif segment")

// tiffOffset finds the APP1 Exif segment of a JPEG and returns the index of
// its TIFF header.
func tiffOffset(data []byte) (int, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, errors.New("not a jpeg")
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		// start of scan or end of image: no metadata after this point
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		// standalone markers carry no length
		if marker == 0xFF || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i++
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segLen < 2 {
			return 0, errors.Errorf("bad segment length %d at %d", segLen, i)
		}
		body := data[i+4 : min(i+2+segLen, len(data))]
		if marker == 0xE1 && bytes.HasPrefix(body, []byte("Exif\x00\x00")) {
			return i + 10, nil
		}
		i += 2 + segLen
	}
	return 0, errNoExif
}

// tiffReader decodes IFD entries relative to the TIFF header at base.
type tiffReader struct {
	data    []byte
	base    int
	order   binary.ByteOrder
	tags    map[tagKey]string
	visited map[int]bool
}

func readTags(data []byte, base int) (map[tagKey]string, error) {
	if base+8 > len(data) {
		return nil, errors.New("tiff header truncated")
	}
	r := &tiffReader{data: data, base: base, tags: map[tagKey]string{}, visited: map[int]bool{}}
	switch string(data[base : base+2]) {
	case "II":
		r.order = binary.LittleEndian
	case "MM":
		r.order = binary.BigEndian
	default:
		return nil, errors.New("unknown tiff byte order")
	}
	if r.order.Uint16(data[base+2:base+4]) != 0x002A {
		return nil, errors.New("invalid tiff magic")
	}
	r.walk(int(r.order.Uint32(data[base+4:base+8])), ifd0)
	return r.tags, nil
}

// walk reads the directory at off and every directory chained from it.
// Out of range offsets are ignored so that damaged metadata still yields
// whatever tags are readable.
func (r *tiffReader) walk(off int, dir ifd) {
	abs := r.base + off
	if off <= 0 || abs+2 > len(r.data) || r.visited[abs] {
		return
	}
	r.visited[abs] = true
	n := int(r.order.Uint16(r.data[abs : abs+2]))
	entries := abs + 2
	for e := 0; e < n; e++ {
		at := entries + e*12
		if at+12 > len(r.data) {
			return
		}
		r.entry(r.data[at:at+12], dir)
	}
	if next := entries + n*12; next+4 <= len(r.data) {
		r.walk(int(r.order.Uint32(r.data[next:next+4])), dir)
	}
}

func (r *tiffReader) entry(raw []byte, dir ifd) {
	tag := r.order.Uint16(raw[0:2])
	typ := r.order.Uint16(raw[2:4])
	count := int(r.order.Uint32(raw[4:8]))
	field := raw[8:12]

	switch tag {
	case tagExifPointer:
		r.walk(int(r.order.Uint32(field)), ifdExif)
		return
	case tagGPSPointer:
		r.walk(int(r.order.Uint32(field)), ifdGPS)
		return
	}

	size, ok := typeSize[typ]
	if !ok || count <= 0 {
		return
	}
	total := count * size
	value := field[:min(total, 4)]
	if total > 4 {
		off := r.base + int(r.order.Uint32(field))
		if off < r.base || off+total > len(r.data) {
			return
		}
		value = r.data[off : off+total]
	}
	if s := r.format(typ, count, value); s != "" {
		r.tags[tagKey{dir, tag}] = s
	}
}

// format renders a value the way Data's raw map stores it: numbers comma
// separated, rationals as num/den.
func (r *tiffReader) format(typ uint16, count int, v []byte) string {
	if typ == typeASCII {
		if i := bytes.IndexByte(v, 0); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(string(v))
	}
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		switch typ {
		case typeByte:
			parts = append(parts, fmt.Sprint(v[i]))
		case typeShort:
			parts = append(parts, fmt.Sprint(r.order.Uint16(v[i*2:])))
		case typeLong:
			parts = append(parts, fmt.Sprint(r.order.Uint32(v[i*4:])))
		case typeRational:
			parts = append(parts, fmt.Sprintf("%d/%d", r.order.Uint32(v[i*8:]), r.order.Uint32(v[i*8+4:])))
		}
	}
	return strings.Join(parts, ",")
}
