// Package transform parses transform strings such as
//
//	resizecrop,300,200,Entropy|format,webp|quality,80
//
// into typed operations, and evaluates responsive rule sets that choose a
// transform string from client properties.
//
// Specs is the single source of truth for the accepted operations; the
// parser, the CLI help and the REPL picker all read it.
package transform

import (
	"fmt"
	"strings"
)

// ArgSpec describes one positional parameter. Fields are textual and meant
// for help output; validation happens in the operation builders.
type ArgSpec struct {
	Name        string
	Type        string // "length", "position", "bool", "format", "int"
	Required    bool
	Default     string
	Description string
}

// OperationSpec defines an operation of the transform grammar.
type OperationSpec struct {
	Name        string
	Args        []ArgSpec
	Usage       string
	Description string

	build func(params []string) (Operation, error)
}

// Specs lists every operation accepted in a transform string.
var Specs = []OperationSpec{
	{
		Name: "resize",
		Args: []ArgSpec{
			{"width", "length", true, "", "target width in px or %, 0 to derive it from the height"},
			{"height", "length", false, "0", "target height in px or %, 0 to derive it from the width"},
			{"cover", "bool", false, "false", "fill the box instead of fitting inside it"},
		},
		Usage:       "resize,<width>[,<height>[,<cover>]]",
		Description: "Proportional resize. Never upscales unless cover is set.",
		build:       buildResize,
	},
	{
		Name: "resizecrop",
		Args: []ArgSpec{
			{"width", "length", true, "", "final width"},
			{"height", "length", true, "", "final height"},
			{"x", "position", false, "center", "horizontal anchor or crop strategy (Entropy, Balanced, Face, Smart)"},
			{"y", "position", false, "middle", "vertical anchor"},
		},
		Usage:       "resizecrop,<width>,<height>[,<x>[,<y>]]",
		Description: "Resize to cover the box, then crop to exactly width x height.",
		build:       buildResizeCrop,
	},
	{
		Name: "crop",
		Args: []ArgSpec{
			{"width", "length", true, "", "crop width"},
			{"height", "length", true, "", "crop height"},
			{"x", "position", false, "center", "horizontal anchor or crop strategy (Entropy, Balanced, Face, Smart)"},
			{"y", "position", false, "middle", "vertical anchor"},
		},
		Usage:       "crop,<width>,<height>[,<x>[,<y>]]",
		Description: "Crop a box anchored by position keywords, offsets or a strategy.",
		build:       buildCrop,
	},
	{
		Name:        "format",
		Args:        []ArgSpec{{"format", "format", true, "", "png, jpg, jpeg, gif or webp"}},
		Usage:       "format,<format>",
		Description: "Change the output format. jpg flattens onto the background.",
		build:       buildFormat,
	},
	{
		Name:        "quality",
		Args:        []ArgSpec{{"quality", "int", true, "", "compression quality 0-100"}},
		Usage:       "quality,<0-100>",
		Description: "Set the compression quality.",
		build:       buildQuality,
	},
}

// Lookup finds the spec for name, case-insensitively.
func Lookup(name string) (OperationSpec, bool) {
	for _, s := range Specs {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return OperationSpec{}, false
}

// Names returns the operation names in declaration order.
func Names() []string {
	out := make([]string, len(Specs))
	for i, s := range Specs {
		out[i] = s.Name
	}
	return out
}

func (s OperationSpec) arity() (required, total int) {
	for _, a := range s.Args {
		if a.Required {
			required++
		}
	}
	return required, len(s.Args)
}

// Help renders a multi-line description of the operation.
func (s OperationSpec) Help() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  %s\n", s.Usage, s.Description)
	for _, a := range s.Args {
		opt := ""
		if !a.Required {
			opt = fmt.Sprintf(" (default %s)", a.Default)
		}
		fmt.Fprintf(&b, "  %-8s %-9s %s%s\n", a.Name, a.Type, a.Description, opt)
	}
	return b.String()
}
