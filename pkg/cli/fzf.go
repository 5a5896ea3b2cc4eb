package cli

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/transform"
)

// fzfLines renders one "name: description" line per operation.
func fzfLines(specs []transform.OperationSpec) string {
	var b strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

// pickedName extracts the operation name from an fzf selection line.
func pickedName(selection string) (string, error) {
	name, _, _ := strings.Cut(strings.TrimSpace(selection), ":")
	if name = strings.TrimSpace(name); name == "" {
		return "", errors.New("no operation selected")
	}
	return name, nil
}

// SelectOperationWithFzf lets the user pick a transform operation in fzf.
func SelectOperationWithFzf(specs []transform.OperationSpec) (string, error) {
	cmd := exec.Command("fzf", "--prompt=Operation> ")
	cmd.Stdin = strings.NewReader(fzfLines(specs))
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "run fzf")
	}
	return pickedName(out.String())
}

// previewCommand picks the fzf --preview renderer for the current terminal.
func previewCommand() string {
	chafa := "chafa --fill=block --symbols=block -s 80x40 {} 2>/dev/null"
	switch previewProtocol() {
	case protoKitty:
		return `printf "\x1b_Ga=d\x1b\\"; kitty +kitten icat --silent {} 2>/dev/null || ` + chafa
	case protoInline:
		return "imgcat {} 2>/dev/null || " + chafa
	case protoSixel:
		return "img2sixel {} 2>/dev/null || " + chafa
	}
	return chafa
}

// SelectFileWithFzf lists the images under startDir in fzf, with a terminal
// preview, and returns the chosen path. It needs find, bash and fzf on PATH.
func SelectFileWithFzf(startDir string) (string, error) {
	script := fmt.Sprintf(
		"find %s -type f \\( -iname '*.jpg' -o -iname '*.jpeg' -o -iname '*.png' -o -iname '*.gif' -o -iname '*.webp' -o -iname '*.bmp' \\) | fzf --height 100%% --border --prompt='Files> ' --preview=%q --preview-window='right:60%%'",
		strconv.Quote(startDir), previewCommand(),
	)
	cmd := exec.Command("bash", "-lc", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	err := cmd.Run()
	clearKittyImages()
	if err != nil {
		return "", errors.Wrap(err, "run fzf for files")
	}
	sel := strings.TrimSpace(out.String())
	if sel == "" {
		return "", errors.New("no file selected")
	}
	return sel, nil
}
