package colorio

import (
	"errors"
	"fmt"

	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/packing"
)

// ErrorKind classifies the errors returned by colorio.
type ErrorKind uint8

// Error kinds.
const (
	// KindConfiguration covers unknown names, missing roles and illegal
	// references.
	KindConfiguration ErrorKind = iota + 1
	// KindValidation covers operator parameters out of range.
	KindValidation
	// KindFile covers missing LUT files and parser failures.
	KindFile
	// KindArgument covers malformed buffer descriptions and arguments.
	KindArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindFile:
		return "file"
	case KindArgument:
		return "argument"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by [errors.Is] against any *Error of the same
// kind.
var (
	ErrConfiguration = errors.New("colorio: configuration error")
	ErrValidation    = errors.New("colorio: validation error")
	ErrFile          = errors.New("colorio: file error")
	ErrArgument      = errors.New("colorio: argument error")
)

// Error is the error type returned by the public API. Entity names the
// offending color space, look, display, view, file or argument.
type Error struct {
	Kind   ErrorKind
	Entity string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := "colorio: " + e.Kind.String() + " error"
	if e.Entity != "" {
		s += " (" + e.Entity + ")"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrFile:
		return e.Kind == KindFile
	case ErrArgument:
		return e.Kind == KindArgument
	}
	return false
}

func configErrorf(entity, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

func fileError(entity string, err error) error {
	return &Error{Kind: KindFile, Entity: entity, Err: err}
}

func argErrorf(entity, format string, args ...any) error {
	return &Error{Kind: KindArgument, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

// classify wraps an internal error into the public taxonomy. Errors that
// already carry a kind pass through.
func classify(entity string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, opdata.ErrValidation):
		return &Error{Kind: KindValidation, Entity: entity, Err: err}
	case errors.Is(err, packing.ErrLayout):
		return &Error{Kind: KindArgument, Entity: entity, Err: err}
	default:
		return &Error{Kind: KindValidation, Entity: entity, Err: err}
	}
}
