package opdata

import "math"

// NegativeStyle selects how a power function treats negative input.
type NegativeStyle uint8

// Negative styles.
const (
	NegativeClamp NegativeStyle = iota
	NegativeMirror
	NegativePassThru
)

func (s NegativeStyle) String() string {
	switch s {
	case NegativeMirror:
		return "mirror"
	case NegativePassThru:
		return "passThru"
	default:
		return "clamp"
	}
}

// Exponent raises each channel to its own power. Index 3 is alpha.
type Exponent struct {
	base
	Gamma    [4]float64
	Negative NegativeStyle
}

// NewExponent returns an exponent op.
func NewExponent(gamma [4]float64, neg NegativeStyle) *Exponent {
	return &Exponent{base: newBase(), Gamma: gamma, Negative: neg}
}

func (e *Exponent) Type() Type { return TypeExponent }

func (e *Exponent) Validate() error {
	if e.Negative > NegativePassThru {
		return validationErrorf("exponent: unknown negative style %d", e.Negative)
	}
	for c, g := range e.Gamma {
		if !(g > 0) || math.IsInf(g, 0) {
			return validationErrorf("exponent: channel %d exponent %g must be positive", c, g)
		}
	}
	return nil
}

func (e *Exponent) IsIdentity() bool {
	for _, g := range e.Gamma {
		if !EqualScalar(g, 1) {
			return false
		}
	}
	return true
}

// IsNoOp never holds for the clamp style, which still clamps negative
// values at unit exponents.
func (e *Exponent) IsNoOp() bool {
	return e.Negative != NegativeClamp && e.inDepth == e.outDepth && e.IsIdentity()
}

func (e *Exponent) HasChannelCrosstalk() bool { return false }

// IdentityReplacement turns a unit clamp-style Exponent into the negative
// clamp it performs.
func (e *Exponent) IdentityReplacement() Data {
	if e.Negative != NegativeClamp || !e.IsIdentity() {
		return nil
	}
	r := NewRange(0, Empty(), 0, Empty())
	r.inDepth, r.outDepth = e.inDepth, e.outDepth
	return r
}

func (e *Exponent) Inverse() (Data, error) {
	inv := e.Clone().(*Exponent)
	for i, g := range e.Gamma {
		inv.Gamma[i] = 1 / g
	}
	inv.inDepth, inv.outDepth = e.outDepth, e.inDepth
	return inv, nil
}

func (e *Exponent) IsInverse(other Data) bool {
	o, ok := other.(*Exponent)
	if !ok || e.Negative == NegativeClamp || o.Negative != e.Negative || !e.mirroredDepths(o) {
		return false
	}
	for i := range e.Gamma {
		if !EqualScaled(e.Gamma[i]*o.Gamma[i], 1) {
			return false
		}
	}
	return true
}

func (e *Exponent) Clone() Data {
	c := *e
	c.cacheID = ""
	return &c
}

func (e *Exponent) Equals(other Data) bool {
	o, ok := other.(*Exponent)
	if !ok || o.Negative != e.Negative || !e.sameDepths(o) {
		return false
	}
	for i := range e.Gamma {
		if !EqualScalar(e.Gamma[i], o.Gamma[i]) {
			return false
		}
	}
	return true
}

func (e *Exponent) Finalize() error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.cacheID = newIDWriter(TypeExponent, e.inDepth, e.outDepth).
		str("neg", e.Negative.String()).
		floats("g", e.Gamma[:]...).
		String()
	return nil
}

// ComposeExponents multiplies the exponents of two ops sharing a negative
// style.
func ComposeExponents(e, next *Exponent) (*Exponent, bool) {
	if e.Negative != next.Negative || e.outDepth != next.inDepth {
		return nil, false
	}
	c := e.Clone().(*Exponent)
	for i := range c.Gamma {
		c.Gamma[i] = e.Gamma[i] * next.Gamma[i]
	}
	c.outDepth = next.outDepth
	return c, true
}
