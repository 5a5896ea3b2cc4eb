package raster

import (
	"bytes"
)

// Sniff detects the mime type of encoded image data from its magic bytes.
// It returns "" when the signature is not recognised.
func Sniff(b []byte) string {
	switch {
	case len(b) >= 3 && bytes.Equal(b[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case len(b) >= 8 && bytes.Equal(b[:8], []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case len(b) >= 6 && (bytes.Equal(b[:6], []byte("GIF87a")) || bytes.Equal(b[:6], []byte("GIF89a"))):
		return "image/gif"
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "image/webp"
	case len(b) >= 2 && bytes.Equal(b[:2], []byte("BM")):
		return "image/bmp"
	case len(b) >= 4 && bytes.Equal(b[:4], []byte{0x00, 0x00, 0x01, 0x00}):
		return "image/x-icon"
	}
	return ""
}

// graphic control extension introducer, label and block size
var gce = []byte{0x00, 0x21, 0xF9, 0x04}

// IsAnimatedGIF reports whether data holds more than one GIF frame, counting
// graphic control extensions followed by an image descriptor or another
// extension.
func IsAnimatedGIF(data []byte) bool {
	if Sniff(data) != "image/gif" {
		return false
	}
	count := 0
	for i := 0; ; {
		j := bytes.Index(data[i:], gce)
		if j < 0 {
			return false
		}
		k := i + j
		// 4 bytes of extension payload, then the block terminator
		if k+9 < len(data) && data[k+8] == 0x00 && (data[k+9] == 0x2C || data[k+9] == 0x21) {
			count++
			if count > 1 {
				return true
			}
		}
		i = k + 1
	}
}
