package transform

import (
	"strconv"
	"strings"

	"github.com/Fepozopo/imgcow/pkg/imgerr"
)

// ClientProperties are the measured client dimensions responsive rules are
// evaluated against.
type ClientProperties struct {
	Width  int
	Height int
}

// ParseClientProperties reads the "width,height[,...]" form stored by the
// client-side detection script. Extra fields are ignored.
func ParseClientProperties(s string) (ClientProperties, error) {
	fields := strings.Split(stripSpace(s), ",")
	if len(fields) < 2 {
		return ClientProperties{}, imgerr.Parsef("client properties %q: want width,height", s)
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return ClientProperties{}, imgerr.Parsef("client properties %q: width and height must be integers", s)
	}
	return ClientProperties{Width: w, Height: h}, nil
}

var conditions = map[string]func(p ClientProperties, v int) bool{
	"max-width":  func(p ClientProperties, v int) bool { return p.Width <= v },
	"min-width":  func(p ClientProperties, v int) bool { return p.Width >= v },
	"width":      func(p ClientProperties, v int) bool { return p.Width == v },
	"max-height": func(p ClientProperties, v int) bool { return p.Height <= v },
	"min-height": func(p ClientProperties, v int) bool { return p.Height >= v },
	"height":     func(p ClientProperties, v int) bool { return p.Height == v },
}

// Responsive evaluates rules and returns the resulting transform string.
//
// Rules are ';'-separated blocks. A block "cond,cond:operations" contributes
// its operations when every key=value condition holds; a block without ':'
// always contributes. Contributions are joined with '|'.
func Responsive(rules string, props ClientProperties) (string, error) {
	var out []string
	for _, block := range strings.Split(stripSpace(rules), ";") {
		if block == "" {
			continue
		}
		conds, ops, conditional := strings.Cut(block, ":")
		if !conditional {
			out = append(out, block)
			continue
		}
		ok, err := matches(conds, props)
		if err != nil {
			return "", err
		}
		if ok && ops != "" {
			out = append(out, ops)
		}
	}
	return strings.Join(out, "|"), nil
}

// matches reports whether every condition holds. All conditions are
// checked for syntax even after one fails.
func matches(conds string, props ClientProperties) (bool, error) {
	all := true
	for _, c := range strings.Split(conds, ",") {
		key, val, ok := strings.Cut(c, "=")
		if !ok {
			return false, imgerr.Parsef("responsive condition %q: want key=value", c)
		}
		test, known := conditions[strings.ToLower(key)]
		if !known {
			return false, imgerr.Parsef("unknown responsive condition %q", key)
		}
		v, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(val), "px"))
		if err != nil {
			return false, imgerr.Parsef("responsive condition %q: value must be an integer", c)
		}
		if !test(props, v) {
			all = false
		}
	}
	return all, nil
}
