// Package imgerr defines the error taxonomy shared by every imgcow package.
//
// Errors are classified by Kind. Callers match a class with errors.Is against
// one of the sentinel values (ErrGeometry, ErrParse, ...), and can still reach
// the underlying cause (for example os.ErrNotExist) through Unwrap.
package imgerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the class of an error.
type Kind int

const (
	Geometry Kind = iota + 1
	Parse
	Configuration
	NotLoaded
	Backend
	CapabilityUnavailable
)

func (k Kind) String() string {
	switch k {
	case Geometry:
		return "geometry error"
	case Parse:
		return "parse error"
	case Configuration:
		return "configuration error"
	case NotLoaded:
		return "image not loaded"
	case Backend:
		return "backend error"
	case CapabilityUnavailable:
		return "capability unavailable"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrGeometry              = &Error{Kind: Geometry}
	ErrParse                 = &Error{Kind: Parse}
	ErrConfiguration         = &Error{Kind: Configuration}
	ErrNotLoaded             = &Error{Kind: NotLoaded}
	ErrBackend               = &Error{Kind: Backend}
	ErrCapabilityUnavailable = &Error{Kind: CapabilityUnavailable}
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Cause == nil:
		return e.Kind.String()
	case e.Cause == nil:
		return e.Kind.String() + ": " + e.Msg
	case e.Msg == "":
		return e.Kind.String() + ": " + e.Cause.Error()
	default:
		return e.Kind.String() + ": " + e.Msg + ": " + e.Cause.Error()
	}
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the Kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newf(kind Kind, cause error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause})
}

// Geometryf reports invalid, zero or negative dimensions.
func Geometryf(format string, args ...interface{}) error {
	return newf(Geometry, nil, format, args...)
}

// Parsef reports malformed transform syntax.
func Parsef(format string, args ...interface{}) error {
	return newf(Parse, nil, format, args...)
}

// Configurationf reports an invalid adapter, hint key, strategy name or setting.
func Configurationf(format string, args ...interface{}) error {
	return newf(Configuration, nil, format, args...)
}

// NotLoadedf reports an operation on a released or never-decoded image.
func NotLoadedf(format string, args ...interface{}) error {
	return newf(NotLoaded, nil, format, args...)
}

// Unavailablef reports a feature with no implementation in the current build.
func Unavailablef(format string, args ...interface{}) error {
	return newf(CapabilityUnavailable, nil, format, args...)
}

// WrapBackend classifies a decode, encode or I/O failure. A nil cause yields nil.
func WrapBackend(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	// already classified errors keep their kind
	if KindOf(cause) != 0 {
		return errors.Wrapf(cause, format, args...)
	}
	return newf(Backend, cause, format, args...)
}

// Backendf reports a backend failure without an underlying cause.
func Backendf(format string, args ...interface{}) error {
	return newf(Backend, nil, format, args...)
}

// WrapParse reports cause, typically a geometry or configuration error found
// while validating a transform string, as a parse error. The cause stays
// reachable with errors.Is.
func WrapParse(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return newf(Parse, cause, format, args...)
}
