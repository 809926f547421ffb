package opdata

import "math"

// Range is a clamped affine map. MinIn/MaxIn are expressed at the input
// depth scale and MinOut/MaxOut at the output depth scale. A NaN bound is
// "empty".
//
// With no pair set the op is a pure bit-depth scale. With one pair set the
// scale is the bit-depth ratio, the offset maps that pair exactly and only
// that side clamps. With both pairs set the scale and offset map the pairs
// onto each other and both sides clamp.
type Range struct {
	base
	MinIn, MaxIn   float64
	MinOut, MaxOut float64
}

// Empty is the value of an unset Range bound.
func Empty() float64 { return math.NaN() }

// IsEmpty reports whether v is an unset bound.
func IsEmpty(v float64) bool { return math.IsNaN(v) }

// NewRange returns a float-depth Range with the given bounds.
func NewRange(minIn, maxIn, minOut, maxOut float64) *Range {
	return &Range{base: newBase(), MinIn: minIn, MaxIn: maxIn, MinOut: minOut, MaxOut: maxOut}
}

// NewBitDepthRange returns a Range that only rescales from in to out.
func NewBitDepthRange(in, out BitDepth) *Range {
	r := NewRange(Empty(), Empty(), Empty(), Empty())
	r.inDepth, r.outDepth = in, out
	return r
}

// NewClampRange returns a float Range clamping to [lo, hi] without scaling.
func NewClampRange(lo, hi float64) *Range {
	return NewRange(lo, hi, lo, hi)
}

func (r *Range) Type() Type { return TypeRange }

func (r *Range) MinIsEmpty() bool { return IsEmpty(r.MinIn) }
func (r *Range) MaxIsEmpty() bool { return IsEmpty(r.MaxIn) }

func (r *Range) Validate() error {
	if IsEmpty(r.MinIn) != IsEmpty(r.MinOut) {
		return validationErrorf("range: minIn and minOut must be both set or both empty")
	}
	if IsEmpty(r.MaxIn) != IsEmpty(r.MaxOut) {
		return validationErrorf("range: maxIn and maxOut must be both set or both empty")
	}
	for _, v := range [...]float64{r.MinIn, r.MaxIn, r.MinOut, r.MaxOut} {
		if math.IsInf(v, 0) {
			return validationErrorf("range: infinite bound")
		}
	}
	if !r.MinIsEmpty() && !r.MaxIsEmpty() {
		if r.MaxIn < r.MinIn {
			return validationErrorf("range: maxIn %g is below minIn %g", r.MaxIn, r.MinIn)
		}
		if r.MaxOut < r.MinOut {
			return validationErrorf("range: maxOut %g is below minOut %g", r.MaxOut, r.MinOut)
		}
		if math.Abs(r.MaxIn-r.MinIn) < 1e-6 {
			return validationErrorf("range: input span is too small")
		}
	}
	return nil
}

// RangeParams are the derived numerics of a Range at native depth scale.
// LowBound and HighBound are NaN when the side does not clamp.
type RangeParams struct {
	Scale, Offset       float64
	LowBound, HighBound float64
	AlphaScale          float64
}

// Params derives the kernel numerics.
func (r *Range) Params() RangeParams {
	inMax, outMax := r.inDepth.MaxValue(), r.outDepth.MaxValue()
	p := RangeParams{
		Scale:      outMax / inMax,
		AlphaScale: outMax / inMax,
		LowBound:   Empty(),
		HighBound:  Empty(),
	}
	switch {
	case !r.MinIsEmpty() && !r.MaxIsEmpty():
		p.Scale = (r.MaxOut - r.MinOut) / (r.MaxIn - r.MinIn)
		p.Offset = r.MinOut - p.Scale*r.MinIn
		p.LowBound, p.HighBound = r.MinOut, r.MaxOut
	case !r.MinIsEmpty():
		p.Offset = r.MinOut - p.Scale*r.MinIn
		p.LowBound = r.MinOut
	case !r.MaxIsEmpty():
		p.Offset = r.MaxOut - p.Scale*r.MaxIn
		p.HighBound = r.MaxOut
	}
	if !r.outDepth.IsFloat() {
		if IsEmpty(p.LowBound) || p.LowBound < 0 {
			p.LowBound = 0
		}
		if IsEmpty(p.HighBound) || p.HighBound > outMax {
			p.HighBound = outMax
		}
	}
	return p
}

// Scales reports whether the Range changes values other than by the
// bit-depth ratio.
func (r *Range) Scales() bool {
	p := r.Params()
	inMax, outMax := r.inDepth.MaxValue(), r.outDepth.MaxValue()
	return !EqualScalar(p.Scale*inMax/outMax, 1) || !EqualScalar(p.Offset/outMax, 0)
}

// MinClips reports whether the lower side clamps.
func (r *Range) MinClips() bool { return !IsEmpty(r.Params().LowBound) }

// MaxClips reports whether the upper side clamps.
func (r *Range) MaxClips() bool { return !IsEmpty(r.Params().HighBound) }

// IsIdentity reports whether the Range neither scales nor offsets and
// either has no bounds or clamps both sides outside [0, inMax]. A one-sided
// Range is never an identity: it clamps the open side's values only on the
// other side, which a pixel outside the standard domain still sees.
func (r *Range) IsIdentity() bool {
	if r.Scales() {
		return false
	}
	if r.MinIsEmpty() && r.MaxIsEmpty() {
		return true
	}
	if r.MinIsEmpty() || r.MaxIsEmpty() {
		return false
	}
	return r.MinIn <= 0 && r.MaxIn >= r.inDepth.MaxValue()
}

func (r *Range) IsNoOp() bool {
	return r.inDepth == r.outDepth && r.IsIdentity()
}

// IsClampNegs reports whether the Range only clamps negative values.
func (r *Range) IsClampNegs() bool {
	return !r.Scales() && !r.MinIsEmpty() && EqualScalar(r.MinIn, 0) && r.MaxIsEmpty()
}

// ClampsToLutDomain reports whether the Range only clamps, with bounds
// enclosing the [0, 1] LUT domain.
func (r *Range) ClampsToLutDomain() bool {
	if r.Scales() || r.inDepth != r.outDepth {
		return false
	}
	inMax := r.inDepth.MaxValue()
	return (r.MinIsEmpty() || r.MinIn <= 0) && (r.MaxIsEmpty() || r.MaxIn >= inMax)
}

func (r *Range) HasChannelCrosstalk() bool { return false }

// ConvertToMatrix returns the Matrix computing the Range without clamping.
func (r *Range) ConvertToMatrix() *Matrix {
	p := r.Params()
	inMax, outMax := r.inDepth.MaxValue(), r.outDepth.MaxValue()
	s := p.Scale * inMax / outMax
	m := NewMatrix()
	m.M[0], m.M[5], m.M[10] = s, s, s
	m.M[15] = p.AlphaScale * inMax / outMax
	o := p.Offset / outMax
	m.Offset[0], m.Offset[1], m.Offset[2] = o, o, o
	m.inDepth, m.outDepth = r.inDepth, r.outDepth
	return m
}

func (r *Range) Inverse() (Data, error) {
	if !r.MinIsEmpty() && !r.MaxIsEmpty() && math.Abs(r.MaxOut-r.MinOut) < 1e-6 {
		return nil, validationErrorf("range: output span is too small to invert")
	}
	inv := NewRange(r.MinOut, r.MaxOut, r.MinIn, r.MaxIn)
	inv.inDepth, inv.outDepth = r.outDepth, r.inDepth
	return inv, nil
}

func (r *Range) IsInverse(other Data) bool {
	o, ok := other.(*Range)
	if !ok || !r.mirroredDepths(o) {
		return false
	}
	if r.MinClips() || r.MaxClips() {
		return false
	}
	inv, err := r.Inverse()
	return err == nil && inv.Equals(o)
}

func (r *Range) IdentityReplacement() Data { return nil }

func (r *Range) Clone() Data {
	c := *r
	c.cacheID = ""
	return &c
}

func (r *Range) Equals(other Data) bool {
	o, ok := other.(*Range)
	return ok && r.sameDepths(o) &&
		EqualScalar(r.MinIn, o.MinIn) && EqualScalar(r.MaxIn, o.MaxIn) &&
		EqualScalar(r.MinOut, o.MinOut) && EqualScalar(r.MaxOut, o.MaxOut)
}

func (r *Range) Finalize() error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.cacheID = newIDWriter(TypeRange, r.inDepth, r.outDepth).
		floats("in", r.MinIn, r.MaxIn).
		floats("out", r.MinOut, r.MaxOut).
		String()
	return nil
}

// ComposeRanges returns the single Range computing next∘r, or false when
// the composition cannot be expressed as one Range.
func ComposeRanges(r, next *Range) (*Range, bool) {
	if r.outDepth != next.inDepth {
		return nil, false
	}
	a, b := r.Params(), next.Params()
	if a.Scale <= 0 || b.Scale <= 0 || !EqualScalar(a.AlphaScale*b.AlphaScale, next.outDepth.MaxValue()/r.inDepth.MaxValue()) {
		return nil, false
	}
	s := a.Scale * b.Scale
	o := b.Scale*a.Offset + b.Offset
	lo, hi := b.LowBound, b.HighBound
	if !IsEmpty(a.LowBound) {
		m := b.Scale*a.LowBound + b.Offset
		if IsEmpty(lo) || m > lo {
			lo = m
		}
	}
	if !IsEmpty(a.HighBound) {
		m := b.Scale*a.HighBound + b.Offset
		if IsEmpty(hi) || m < hi {
			hi = m
		}
	}

	in, out := r.inDepth, next.outDepth
	ratio := out.MaxValue() / in.MaxValue()
	c := NewRange(Empty(), Empty(), Empty(), Empty())
	c.inDepth, c.outDepth = in, out
	switch {
	case !IsEmpty(lo) && !IsEmpty(hi):
		if hi-lo < 1e-6 {
			return nil, false
		}
		c.MinIn, c.MinOut = (lo-o)/s, lo
		c.MaxIn, c.MaxOut = (hi-o)/s, hi
	case !IsEmpty(lo):
		if !EqualScalar(s, ratio) {
			return nil, false
		}
		c.MinIn, c.MinOut = (lo-o)/s, lo
	case !IsEmpty(hi):
		if !EqualScalar(s, ratio) {
			return nil, false
		}
		c.MaxIn, c.MaxOut = (hi-o)/s, hi
	default:
		if !EqualScalar(s, ratio) || !EqualScalar(o, 0) {
			return nil, false
		}
	}
	if c.Validate() != nil {
		return nil, false
	}
	return c, true
}
