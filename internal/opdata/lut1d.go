package opdata

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/ajroetker/go-highway/hwy"
	"golang.org/x/crypto/blake2b"
)

// Interpolation selects how LUT entries are blended.
type Interpolation uint8

// Interpolation methods.
const (
	InterpDefault Interpolation = iota
	InterpNearest
	InterpLinear
	InterpCubic
	InterpTrilinear
	InterpTetrahedral
	InterpBest
)

func (i Interpolation) String() string {
	switch i {
	case InterpNearest:
		return "nearest"
	case InterpLinear:
		return "linear"
	case InterpCubic:
		return "cubic"
	case InterpTrilinear:
		return "trilinear"
	case InterpTetrahedral:
		return "tetrahedral"
	case InterpBest:
		return "best"
	default:
		return "default"
	}
}

// ParseInterpolation parses the names produced by String.
func ParseInterpolation(s string) (Interpolation, bool) {
	for i := InterpDefault; i <= InterpBest; i++ {
		if i.String() == s {
			return i, true
		}
	}
	return InterpDefault, false
}

// HueAdjust selects the hue-preserving mode of a Lut1D.
type HueAdjust uint8

// Hue adjust modes.
const (
	HueAdjustNone HueAdjust = iota
	HueAdjustDW3
)

// HalfDomainSize is the entry count of a half-domain Lut1D.
const HalfDomainSize = 65536

// lutIdentityTolerance bounds the deviation of an identity LUT entry.
const lutIdentityTolerance = 1e-5

// Lut1D is a per-channel lookup table. Values holds Length() RGB triplets.
//
// A regular LUT spans the normalized domain [0, 1]. A half-domain LUT is
// indexed by the 16-bit pattern of the float16 input. When Inverted is
// set the op evaluates the inverse of the table by searching it.
type Lut1D struct {
	base
	Values     []float32
	HalfDomain bool
	RawHalfs   bool
	HueAdjust  HueAdjust
	Interp     Interpolation
	Inverted   bool
}

// NewLut1D returns a LUT with length entries initialized to the identity.
func NewLut1D(length int, halfDomain bool) *Lut1D {
	l := &Lut1D{base: newBase(), HalfDomain: halfDomain, Values: make([]float32, length*3)}
	for i := 0; i < length; i++ {
		v := l.DomainValue(i)
		l.Values[i*3], l.Values[i*3+1], l.Values[i*3+2] = v, v, v
	}
	return l
}

// NewLut1DFrom wraps values, which must hold RGB triplets.
func NewLut1DFrom(values []float32) *Lut1D {
	return &Lut1D{base: newBase(), Values: values}
}

func (l *Lut1D) Type() Type { return TypeLut1D }

// Length returns the entry count.
func (l *Lut1D) Length() int { return len(l.Values) / 3 }

// DomainValue returns the input value mapped to entry i by an identity LUT.
func (l *Lut1D) DomainValue(i int) float32 {
	if l.HalfDomain {
		return hwy.Float16ToFloat32(hwy.Float16(uint16(i)))
	}
	return float32(i) / float32(len(l.Values)/3-1)
}

func (l *Lut1D) Validate() error {
	if len(l.Values)%3 != 0 {
		return validationErrorf("lut1d: value count %d is not a multiple of 3", len(l.Values))
	}
	n := l.Length()
	if n < 2 {
		return validationErrorf("lut1d: length %d is below 2", n)
	}
	if l.HalfDomain && n != HalfDomainSize {
		return validationErrorf("lut1d: half-domain LUT must have %d entries, got %d", HalfDomainSize, n)
	}
	switch l.Interp {
	case InterpDefault, InterpNearest, InterpLinear, InterpCubic, InterpBest:
	default:
		return validationErrorf("lut1d: unsupported interpolation %s", l.Interp)
	}
	return nil
}

func (l *Lut1D) IsIdentity() bool {
	if l.Length() < 2 || l.HueAdjust != HueAdjustNone {
		return false
	}
	for i := 0; i < l.Length(); i++ {
		want := l.DomainValue(i)
		if math.IsNaN(float64(want)) || math.IsInf(float64(want), 0) {
			continue
		}
		tol := lutIdentityTolerance
		if l.HalfDomain {
			tol *= math.Max(1, math.Abs(float64(want)))
		}
		for c := 0; c < 3; c++ {
			if math.Abs(float64(l.Values[i*3+c]-want)) > tol {
				return false
			}
		}
	}
	return true
}

// IsNoOp is true only for an identity half-domain LUT; regular LUTs clamp
// their input to the domain.
func (l *Lut1D) IsNoOp() bool {
	return l.HalfDomain && l.inDepth == l.outDepth && l.IsIdentity()
}

func (l *Lut1D) HasChannelCrosstalk() bool { return l.HueAdjust != HueAdjustNone }

// IdentityReplacement returns the domain clamp an identity LUT performs.
func (l *Lut1D) IdentityReplacement() Data {
	if l.HalfDomain || !l.IsIdentity() {
		return nil
	}
	return domainClamp(l.inDepth, l.outDepth)
}

// domainClamp returns the Range clamping to the standard domain between
// the given depths.
func domainClamp(in, out BitDepth) *Range {
	r := NewRange(0, in.MaxValue(), 0, out.MaxValue())
	r.inDepth, r.outDepth = in, out
	return r
}

// IsMonotonic reports whether every channel is non-decreasing or
// non-increasing, which the inverse evaluation requires.
func (l *Lut1D) IsMonotonic() bool {
	n := l.Length()
	for c := 0; c < 3; c++ {
		up, down := true, true
		for i := 1; i < n; i++ {
			d := l.Values[i*3+c] - l.Values[(i-1)*3+c]
			if d < 0 {
				up = false
			}
			if d > 0 {
				down = false
			}
		}
		if !up && !down {
			return false
		}
	}
	return true
}

func (l *Lut1D) Inverse() (Data, error) {
	if !l.Inverted && !l.IsMonotonic() {
		return nil, validationErrorf("lut1d: non-monotonic LUT has no inverse")
	}
	inv := l.Clone().(*Lut1D)
	inv.Inverted = !l.Inverted
	inv.inDepth, inv.outDepth = l.outDepth, l.inDepth
	return inv, nil
}

// IsInverse holds only when other is the marked inverse of the same table.
func (l *Lut1D) IsInverse(other Data) bool {
	o, ok := other.(*Lut1D)
	if !ok || o.Inverted == l.Inverted || !l.mirroredDepths(o) {
		return false
	}
	return l.sameTable(o)
}

func (l *Lut1D) sameTable(o *Lut1D) bool {
	if l.HalfDomain != o.HalfDomain || l.HueAdjust != o.HueAdjust || len(l.Values) != len(o.Values) {
		return false
	}
	for i := range l.Values {
		if l.Values[i] != o.Values[i] {
			if !(math.IsNaN(float64(l.Values[i])) && math.IsNaN(float64(o.Values[i]))) {
				return false
			}
		}
	}
	return true
}

func (l *Lut1D) Clone() Data {
	c := *l
	c.Values = append([]float32(nil), l.Values...)
	c.cacheID = ""
	return &c
}

func (l *Lut1D) Equals(other Data) bool {
	o, ok := other.(*Lut1D)
	return ok && l.sameDepths(o) && l.Inverted == o.Inverted &&
		l.effectiveInterp() == o.effectiveInterp() && l.sameTable(o)
}

func (l *Lut1D) effectiveInterp() Interpolation {
	switch l.Interp {
	case InterpDefault, InterpBest:
		return InterpLinear
	}
	return l.Interp
}

// EffectiveInterp resolves Default and Best to the concrete method.
func (l *Lut1D) EffectiveInterp() Interpolation { return l.effectiveInterp() }

func (l *Lut1D) Finalize() error {
	if err := l.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeLut1D, l.inDepth, l.outDepth).
		str("interp", l.effectiveInterp().String()).
		str("digest", floatsDigest(l.Values))
	if l.HalfDomain {
		w.str("half", "1")
	}
	if l.HueAdjust == HueAdjustDW3 {
		w.str("hue", "dw3")
	}
	if l.Inverted {
		w.str("dir", Inverse.String())
	}
	l.cacheID = w.String()
	return nil
}

// floatsDigest fingerprints a table with blake2b-256.
func floatsDigest(values []float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:16])
}

// ComposeLut1D resamples next∘l into a single LUT with the length of the
// longer table. Only regular-domain LUTs without hue adjust compose.
func ComposeLut1D(l, next *Lut1D, eval func(lut *Lut1D, rgb *[3]float32)) (*Lut1D, bool) {
	if l.HalfDomain || next.HalfDomain || l.HueAdjust != HueAdjustNone || next.HueAdjust != HueAdjustNone {
		return nil, false
	}
	n := max(l.Length(), next.Length())
	c := NewLut1D(n, false)
	c.inDepth, c.outDepth = l.inDepth, next.outDepth
	for i := 0; i < n; i++ {
		v := c.DomainValue(i)
		rgb := [3]float32{v, v, v}
		eval(l, &rgb)
		eval(next, &rgb)
		copy(c.Values[i*3:i*3+3], rgb[:])
	}
	return c, true
}
