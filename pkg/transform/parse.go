package transform

import (
	"strings"
	"unicode"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// stripSpace removes every whitespace rune.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Parse validates the whole transform string and returns its operations in
// order. Any malformed entry fails the entire string with a ParseError, so
// callers never apply part of a broken chain. An empty string yields no
// operations.
func Parse(ops string) ([]Operation, error) {
	ops = stripSpace(ops)
	if ops == "" {
		return nil, nil
	}
	entries := strings.Split(ops, "|")
	out := make([]Operation, 0, len(entries))
	for i, entry := range entries {
		if entry == "" {
			return nil, imgerr.Parsef("empty operation at position %d in %q", i+1, ops)
		}
		fields := strings.Split(entry, ",")
		spec, ok := Lookup(fields[0])
		if !ok {
			return nil, imgerr.Parsef("unknown operation %q (known: %s)", fields[0], strings.Join(Names(), ", "))
		}
		params := fields[1:]
		required, total := spec.arity()
		if len(params) < required || len(params) > total {
			return nil, imgerr.Parsef("%s takes %d to %d parameters, got %d: usage %s", spec.Name, required, total, len(params), spec.Usage)
		}
		for j := 0; j < required; j++ {
			if params[j] == "" {
				return nil, imgerr.Parsef("%s: missing %s", spec.Name, spec.Args[j].Name)
			}
		}
		op, err := spec.build(params)
		if err != nil {
			return nil, imgerr.WrapParse(err, "%s", entry)
		}
		out = append(out, op)
	}
	return out, nil
}

// String renders operations back into a transform string.
func String(ops []Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = strings.Join(append([]string{op.Name()}, op.Params()...), ",")
	}
	return strings.Join(parts, "|")
}
