package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/session"
)

// Terminal image preview. Protocols, in order of preference: iTerm2 style
// inline images (OSC 1337), the kitty graphics protocol, sixel through
// img2sixel, and chafa block art. IMGCOW_PREVIEW forces one of
// "inline", "kitty", "sixel", "chafa" or "off".

type protocol int

const (
	protoNone protocol = iota
	protoInline
	protoKitty
	protoSixel
	protoChafa
)

var protocolNames = map[string]protocol{
	"off":    protoNone,
	"inline": protoInline,
	"iterm":  protoInline,
	"kitty":  protoKitty,
	"sixel":  protoSixel,
	"chafa":  protoChafa,
}

func isKitty() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	return os.Getenv("KITTY_WINDOW_ID") != "" || os.Getenv("KONSOLE_VERSION") != "" ||
		strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}

func isInlineCapable() bool {
	switch os.Getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "Warp", "Hyper", "vscode", "Tabby", "Bobcat":
		return true
	}
	return os.Getenv("ITERM_SESSION_ID") != "" || strings.Contains(strings.ToLower(os.Getenv("TERM")), "wezterm")
}

func isSixelCapable() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	return os.Getenv("WT_SESSION") != "" || strings.Contains(term, "foot") || strings.Contains(term, "mlterm")
}

func hasChafa() bool {
	_, err := exec.LookPath("chafa")
	return err == nil
}

// previewProtocol detects the best protocol for the running terminal.
func previewProtocol() protocol {
	if p, ok := protocolNames[strings.ToLower(os.Getenv("IMGCOW_PREVIEW"))]; ok {
		return p
	}
	switch {
	case isInlineCapable():
		return protoInline
	case isKitty():
		return protoKitty
	case isSixelCapable():
		return protoSixel
	case hasChafa():
		return protoChafa
	}
	return protoNone
}

// cells maps a pixel size to terminal cells, assuming 8x16 pixel cells and
// capping the preview at 80x40 cells. Images are never scaled up.
func cells(w, h int) (cols, rows int) {
	const cellW, cellH, maxCols, maxRows = 8, 16, 80, 40
	if w <= 0 || h <= 0 {
		return 6, 3
	}
	scale := min(1, float64(maxCols*cellW)/float64(w), float64(maxRows*cellH)/float64(h))
	cols = min(max(int(float64(w)*scale/cellW+0.5), 6), maxCols)
	rows = min(max(int(float64(h)*scale/cellH+0.5), 3), maxRows)
	return cols, rows
}

// Preview draws the session's current image on out.
func Preview(out io.Writer, s *session.Session) error {
	p := previewProtocol()
	if p == protoNone {
		return errors.New("terminal has no image preview support")
	}
	data, err := s.Bytes()
	if err != nil {
		return err
	}
	w, h, err := s.Size()
	if err != nil {
		return err
	}
	mime, _ := s.MimeType()
	cols, rows := cells(w, h)
	slog.Debug("preview", "protocol", p, "cells", [2]int{cols, rows}, "mime", mime)

	switch p {
	case protoInline:
		err = sendInline(out, data, cols, rows)
	case protoKitty:
		if mime != "image/png" {
			if data, err = toPNG(data); err != nil {
				return err
			}
		}
		err = sendKitty(out, data, cols, rows)
	case protoSixel:
		err = pipeTo(out, data, "img2sixel", "-")
	case protoChafa:
		err = pipeTo(out, data, "chafa", "--fill=block", "--symbols=block", "-s", fmt.Sprintf("%dx%d", cols, rows), "-")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

func toPNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode preview")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encode preview")
	}
	return buf.Bytes(), nil
}

func sendInline(out io.Writer, data []byte, cols, rows int) error {
	_, err := fmt.Fprintf(out, "\x1b]1337;File=inline=1;size=%d;width=%d;height=%d;preserveAspectRatio=1:%s\a",
		len(data), cols, rows, base64.StdEncoding.EncodeToString(data))
	return errors.WithStack(err)
}

// sendKitty transmits a PNG in base64 chunks of at most 4096 bytes. Only the
// first chunk carries the control keys.
func sendKitty(out io.Writer, data []byte, cols, rows int) error {
	const chunk = 4096
	enc := base64.StdEncoding.EncodeToString(data)
	for pos := 0; pos < len(enc); pos += chunk {
		end := min(pos+chunk, len(enc))
		more := 0
		if end < len(enc) {
			more = 1
		}
		var err error
		if pos == 0 {
			_, err = fmt.Fprintf(out, "\x1b_Ga=T,f=100,t=d,q=2,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, enc[pos:end])
		} else {
			_, err = fmt.Fprintf(out, "\x1b_Gm=%d;%s\x1b\\", more, enc[pos:end])
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func pipeTo(out io.Writer, data []byte, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	return errors.Wrapf(cmd.Run(), "run %s", name)
}

// clearKittyImages deletes kitty graphics left by the fzf previewer. Other
// terminals ignore the sequence.
func clearKittyImages() {
	fmt.Fprint(os.Stdout, "\x1b_Ga=d\x1b\\")
}
