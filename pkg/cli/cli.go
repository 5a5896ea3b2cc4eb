package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Fepozopo/imgcow/pkg/session"
	"github.com/Fepozopo/imgcow/pkg/transform"
)

// REPL is the interactive editor. Every change is applied to the open image
// immediately; nothing is written until the user saves.
type REPL struct {
	root *rootFlags
	p    *Prompter
	out  io.Writer

	cur   *session.Session
	close func()
	path  string
}

// NewREPL returns an editor with no image open.
func NewREPL(root *rootFlags, p *Prompter, out io.Writer) *REPL {
	return &REPL{root: root, p: p, out: out}
}

func (r *REPL) usage() {
	fmt.Fprintln(r.out, "Commands available:")
	fmt.Fprintln(r.out, "  /  - select and apply an operation")
	fmt.Fprintln(r.out, "  t  - type a transform string")
	fmt.Fprintln(r.out, "  o  - open another image")
	fmt.Fprintln(r.out, "  s  - save current image")
	fmt.Fprintln(r.out, "  i  - show image info")
	fmt.Fprintln(r.out, "  u  - check for updates")
	fmt.Fprintln(r.out, "  h  - show this help message")
	fmt.Fprintln(r.out, "  q  - quit")
}

// Open replaces the current image with the one at path.
func (r *REPL) Open(path string) error {
	s, done, err := r.root.open(path)
	if err != nil {
		return err
	}
	r.Close()
	r.cur, r.close, r.path = s, done, path
	fmt.Fprintf(r.out, "Opened %s\n", path)
	r.show()
	return nil
}

// Close releases the open image.
func (r *REPL) Close() {
	if r.close != nil {
		r.close()
	}
	r.cur, r.close = nil, nil
}

// show previews the image when the terminal can, then prints its info.
func (r *REPL) show() {
	if r.cur == nil {
		return
	}
	if previewProtocol() != protoNone {
		_ = Preview(r.out, r.cur)
	}
	if info, err := Describe(r.cur); err == nil {
		_ = WriteInfo(r.out, info, "text")
	}
}

func (r *REPL) fail(what string, err error) {
	fmt.Fprintf(r.out, "%s: %v\n", what, err)
}

// Run reads commands until q, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "imgcow interactive editor")
	r.usage()
	for ctx.Err() == nil {
		key, err := r.p.Key("> ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read input")
		}

		switch key {
		case '/':
			if r.need() {
				r.pickOperation()
			}
		case 't':
			if !r.need() {
				continue
			}
			ops, _ := r.p.Line("Transform string: ")
			r.apply(ops)
		case 'o':
			path, err := r.p.Path("Path to image ('/' for fzf, empty to cancel): ")
			if err != nil || path == "" {
				fmt.Fprintln(r.out, "open cancelled")
				continue
			}
			if err := r.Open(path); err != nil {
				r.fail("open failed", err)
			}
		case 's':
			if !r.need() {
				continue
			}
			out, _ := r.p.Line(fmt.Sprintf("Output filename (empty overwrites %s): ", r.path))
			if err := r.cur.Save(out); err != nil {
				r.fail("save failed", err)
				continue
			}
			fmt.Fprintf(r.out, "Saved to %s\n", orPath(out, r.path))
		case 'i':
			if r.need() {
				r.show()
			}
		case 'u':
			if err := CheckForUpdates(ctx, r.p, r.out); err != nil {
				r.fail("update check failed", err)
			}
		case 'h':
			r.usage()
		case 'q':
			fmt.Fprintln(r.out, "Exiting...")
			return nil
		}
	}
	return nil
}

func (r *REPL) need() bool {
	if r.cur == nil {
		fmt.Fprintln(r.out, "No image loaded. Press 'o' to open one, or pass a path to repl.")
		return false
	}
	return true
}

func (r *REPL) apply(ops string) {
	ops = r.root.cfg.Ops(strings.TrimSpace(ops))
	if ops == "" {
		fmt.Fprintln(r.out, "nothing to apply")
		return
	}
	if err := r.cur.Transform(ops); err != nil {
		r.fail("transform failed", err)
		return
	}
	fmt.Fprintf(r.out, "Applied %s\n", ops)
	r.show()
}

// pickOperation selects an operation with fzf, or from a numbered list when
// fzf is missing, prompts for its parameters and applies it.
func (r *REPL) pickOperation() {
	name, err := SelectOperationWithFzf(transform.Specs)
	if err != nil {
		if name, err = r.pickFromList(); err != nil {
			r.fail("selection", err)
			return
		}
	}
	spec, ok := transform.Lookup(name)
	if !ok {
		fmt.Fprintf(r.out, "unknown operation: %s\n", name)
		return
	}
	fmt.Fprintln(r.out, "\n"+spec.Help())

	params := make([]string, 0, len(spec.Args))
	for _, a := range spec.Args {
		label := fmt.Sprintf("%s (%s): ", a.Name, a.Type)
		if !a.Required {
			label = fmt.Sprintf("%s (%s, default %s): ", a.Name, a.Type, a.Default)
		}
		v, err := r.p.Line(label)
		if err != nil {
			r.fail("input", err)
			return
		}
		params = append(params, v)
	}
	// drop trailing optional parameters the user left empty
	for len(params) > 0 && params[len(params)-1] == "" {
		params = params[:len(params)-1]
	}
	r.apply(strings.Join(append([]string{spec.Name}, params...), ","))
}

func (r *REPL) pickFromList() (string, error) {
	fmt.Fprintln(r.out, "Operation selection:")
	for i, s := range transform.Specs {
		fmt.Fprintf(r.out, "  %d) %s - %s\n", i+1, s.Name, s.Description)
	}
	sel, err := r.p.Line("Enter number or name (empty to cancel): ")
	if err != nil {
		return "", err
	}
	if sel == "" {
		return "", errors.New("cancelled")
	}
	if i, err := strconv.Atoi(sel); err == nil {
		if i < 1 || i > len(transform.Specs) {
			return "", errors.Errorf("no operation %d", i)
		}
		return transform.Specs[i-1].Name, nil
	}
	var matches []string
	for _, n := range transform.Names() {
		if strings.EqualFold(n, sel) {
			return n, nil
		}
		if strings.HasPrefix(n, strings.ToLower(sel)) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Errorf("unknown operation %q", sel)
	case 1:
		return matches[0], nil
	}
	return "", errors.Errorf("ambiguous selection %q: %s", sel, strings.Join(matches, ", "))
}

func orPath(p, def string) string {
	if p == "" {
		return def
	}
	return p
}
