// Package opdata holds the parameter records of the atomic color operators.
//
// Every operator is a value object implementing [Data]. The concrete type is
// the variant tag: optimizer rules and renderer selection switch on
// [Data.Type] and type-assert to the concrete record. Records are mutable
// while a transform is being built and optimized; after [Data.Finalize] they
// must be treated as read-only.
package opdata

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrValidation marks parameter errors (out-of-range values, malformed
// tables). Errors returned by Validate, Finalize and Inverse wrap it.
var ErrValidation = errors.New("opdata: invalid parameters")

// validationErrorf formats a validation error wrapping [ErrValidation].
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Tolerance is the absolute tolerance used when comparing parameter scalars.
const Tolerance = 1e-9

// Type identifies the operator variant.
type Type uint8

// Operator variants.
const (
	TypeMatrix Type = iota + 1
	TypeRange
	TypeLut1D
	TypeLut3D
	TypeLog
	TypeGamma
	TypeCDL
	TypeFixedFunction
	TypeExponent
	TypeExposureContrast
	TypeAllocation
)

var typeNames = map[Type]string{
	TypeMatrix:           "Matrix",
	TypeRange:            "Range",
	TypeLut1D:            "Lut1D",
	TypeLut3D:            "Lut3D",
	TypeLog:              "Log",
	TypeGamma:            "Gamma",
	TypeCDL:              "CDL",
	TypeFixedFunction:    "FixedFunction",
	TypeExponent:         "Exponent",
	TypeExposureContrast: "ExposureContrast",
	TypeAllocation:       "Allocation",
}

// String returns the variant name.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Data is implemented by every operator record.
type Data interface {
	// Type returns the variant tag.
	Type() Type

	InputBitDepth() BitDepth
	OutputBitDepth() BitDepth
	SetInputBitDepth(BitDepth)
	SetOutputBitDepth(BitDepth)

	// Validate checks the parameters and returns an error wrapping
	// ErrValidation when they are unusable.
	Validate() error

	// IsNoOp reports whether the op can be removed without changing any
	// pixel value, bit-depth conversion included.
	IsNoOp() bool

	// IsIdentity reports whether the op leaves values in the standard
	// domain unchanged, ignoring bit-depth scaling.
	IsIdentity() bool

	// HasChannelCrosstalk reports whether an output channel depends on
	// more than its own input channel.
	HasChannelCrosstalk() bool

	// IsInverse reports whether other exactly undoes the receiver.
	IsInverse(other Data) bool

	// Inverse returns a new record computing the inverse function.
	Inverse() (Data, error)

	// IdentityReplacement returns a simpler equivalent record when the
	// parameters collapse, or nil.
	IdentityReplacement() Data

	Clone() Data
	Equals(other Data) bool

	// Finalize validates, computes derived numerics and the cache-ID.
	Finalize() error

	// CacheID returns the fingerprint computed by Finalize.
	CacheID() string
}

// base carries the fields shared by every variant.
type base struct {
	inDepth  BitDepth
	outDepth BitDepth
	cacheID  string
}

func newBase() base { return base{inDepth: BitDepthF32, outDepth: BitDepthF32} }

func (b *base) InputBitDepth() BitDepth { return b.inDepth }

func (b *base) OutputBitDepth() BitDepth { return b.outDepth }

func (b *base) SetInputBitDepth(d BitDepth) { b.inDepth = d; b.cacheID = "" }

func (b *base) SetOutputBitDepth(d BitDepth) { b.outDepth = d; b.cacheID = "" }

func (b *base) CacheID() string { return b.cacheID }

func (b *base) sameDepths(o Data) bool {
	return b.inDepth == o.InputBitDepth() && b.outDepth == o.OutputBitDepth()
}

// mirroredDepths reports whether o maps back from the receiver's output
// depth to its input depth.
func (b *base) mirroredDepths(o Data) bool {
	return b.inDepth == o.OutputBitDepth() && b.outDepth == o.InputBitDepth()
}

// EqualScalar compares two parameters with the absolute [Tolerance].
// Two NaNs compare equal so that empty Range bounds match.
func EqualScalar(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= Tolerance
}

// EqualScaled compares two values with a tolerance scaled by their magnitude.
func EqualScaled(a, b float64) bool {
	m := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= Tolerance*m
}

func equalSlices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualScalar(a[i], b[i]) {
			return false
		}
	}
	return true
}

// idWriter builds cache-ID strings.
type idWriter struct {
	sb strings.Builder
}

func newIDWriter(t Type, in, out BitDepth) *idWriter {
	w := &idWriter{}
	w.sb.WriteByte('<')
	w.sb.WriteString(t.String())
	w.sb.WriteByte(' ')
	w.sb.WriteString(in.String())
	w.sb.WriteByte(' ')
	w.sb.WriteString(out.String())
	return w
}

func (w *idWriter) str(key, v string) *idWriter {
	w.sb.WriteByte(' ')
	w.sb.WriteString(key)
	w.sb.WriteByte('=')
	w.sb.WriteString(v)
	return w
}

func (w *idWriter) floats(key string, vs ...float64) *idWriter {
	w.sb.WriteByte(' ')
	w.sb.WriteString(key)
	w.sb.WriteByte('=')
	for i, v := range vs {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.sb.WriteString(formatFloat(v))
	}
	return w
}

func (w *idWriter) String() string {
	return w.sb.String() + ">"
}

// formatFloat renders v with 10 significant digits; empty values print as "empty".
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "empty"
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}
