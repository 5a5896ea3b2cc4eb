package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter reads whole lines from one shared reader, so input typed ahead is
// never lost between prompts.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

var stdPrompter = NewPrompter(os.Stdin, os.Stdout)

// Line displays prompt and returns the next line, trimmed.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Key returns the first non-blank rune of the next line, or 0 for an empty
// line.
func (p *Prompter) Key(prompt string) (rune, error) {
	line, err := p.Line(prompt)
	if err != nil || line == "" {
		return 0, err
	}
	return []rune(line)[0], nil
}

// Path reads a file path. A single "/" opens the fzf file picker and falls
// back to a typed path when fzf is missing or cancelled.
func (p *Prompter) Path(prompt string) (string, error) {
	in, err := p.Line(prompt)
	if err != nil || in != "/" {
		return in, err
	}
	if sel, err := SelectFileWithFzf("."); err == nil && sel != "" {
		fmt.Fprintf(p.out, " [fzf] %s\n", sel)
		return sel, nil
	}
	return p.Line(prompt)
}

// PromptLine reads one line from stdin.
func PromptLine(prompt string) (string, error) {
	return stdPrompter.Line(prompt)
}
