package opdata

import "math"

// GammaStyle selects the Gamma curve shape and direction.
type GammaStyle uint8

// Gamma styles.
const (
	GammaBasicFwd GammaStyle = iota
	GammaBasicRev
	GammaBasicMirrorFwd
	GammaBasicMirrorRev
	GammaBasicPassThruFwd
	GammaBasicPassThruRev
	GammaMoncurveFwd
	GammaMoncurveRev
	GammaMoncurveMirrorFwd
	GammaMoncurveMirrorRev
)

var gammaStyleNames = [...]string{
	"basicFwd", "basicRev", "basicMirrorFwd", "basicMirrorRev",
	"basicPassThruFwd", "basicPassThruRev", "moncurveFwd", "moncurveRev",
	"moncurveMirrorFwd", "moncurveMirrorRev",
}

func (s GammaStyle) String() string {
	if int(s) < len(gammaStyleNames) {
		return gammaStyleNames[s]
	}
	return "unknown"
}

// IsMoncurve reports whether s has a linear segment near zero.
func (s GammaStyle) IsMoncurve() bool { return s >= GammaMoncurveFwd }

// IsReverse reports whether s is the inverse evaluation of its curve.
func (s GammaStyle) IsReverse() bool { return s%2 == 1 }

// Invert returns the style computing the inverse curve.
func (s GammaStyle) Invert() GammaStyle {
	if s.IsReverse() {
		return s - 1
	}
	return s + 1
}

// Gamma applies a per-channel power curve. Index 3 is alpha.
//
// Basic styles use Gamma only. Moncurve styles (the sRGB-like curves with a
// linear toe) use Gamma and Offset: the forward curve decodes
//
//	out = in > brk ? ((in + o) / (1 + o))^g : in·slope,  brk = o / (g - 1)
//
// and the reverse curve is its exact inverse.
type Gamma struct {
	base
	Style  GammaStyle
	Gamma  [4]float64
	Offset [4]float64
}

// NewGamma returns a Gamma op with the same exponent on R, G and B and an
// identity alpha channel.
func NewGamma(style GammaStyle, g float64) *Gamma {
	return &Gamma{base: newBase(), Style: style, Gamma: [4]float64{g, g, g, 1}}
}

// NewMoncurve returns a moncurve Gamma op for R, G and B.
func NewMoncurve(style GammaStyle, g, offset float64) *Gamma {
	return &Gamma{
		base:   newBase(),
		Style:  style,
		Gamma:  [4]float64{g, g, g, 1},
		Offset: [4]float64{offset, offset, offset, 0},
	}
}

func (g *Gamma) Type() Type { return TypeGamma }

// channelIsIdentity reports whether channel c leaves values unchanged.
func (g *Gamma) channelIsIdentity(c int) bool {
	if !EqualScalar(g.Gamma[c], 1) {
		return false
	}
	return !g.Style.IsMoncurve() || EqualScalar(g.Offset[c], 0)
}

func (g *Gamma) Validate() error {
	if int(g.Style) >= len(gammaStyleNames) {
		return validationErrorf("gamma: unknown style %d", g.Style)
	}
	for c := 0; c < 4; c++ {
		gv, o := g.Gamma[c], g.Offset[c]
		if g.Style.IsMoncurve() {
			if g.channelIsIdentity(c) {
				continue
			}
			if gv < 1 || gv > 10 {
				return validationErrorf("gamma: channel %d moncurve exponent %g outside [1, 10]", c, gv)
			}
			if !(o > 0) || o > 0.9 {
				return validationErrorf("gamma: channel %d moncurve offset %g outside (0, 0.9]", c, o)
			}
			if EqualScalar(gv, 1) {
				return validationErrorf("gamma: channel %d moncurve exponent must exceed 1", c)
			}
			continue
		}
		if !(gv > 0) || math.IsInf(gv, 0) {
			return validationErrorf("gamma: channel %d exponent %g must be positive", c, gv)
		}
	}
	return nil
}

// MoncurveParams are the derived numerics of one moncurve channel.
type MoncurveParams struct {
	Gamma, Offset float64
	// Break is the encoded-side transition, LinearBreak its decoded image.
	Break, LinearBreak float64
	Slope              float64
	Scale, Shift       float64
	Identity           bool
}

// Moncurve derives the numerics of channel c.
func (g *Gamma) Moncurve(c int) MoncurveParams {
	gv, o := g.Gamma[c], g.Offset[c]
	if g.channelIsIdentity(c) {
		return MoncurveParams{Gamma: 1, Slope: 1, Scale: 1, Identity: true}
	}
	linBreak := math.Pow(o*gv/((gv-1)*(1+o)), gv)
	brk := o / (gv - 1)
	return MoncurveParams{
		Gamma:       gv,
		Offset:      o,
		Break:       brk,
		LinearBreak: linBreak,
		Slope:       linBreak / brk,
		Scale:       1 / (1 + o),
		Shift:       o / (1 + o),
	}
}

func (g *Gamma) IsIdentity() bool {
	for c := 0; c < 4; c++ {
		if !g.channelIsIdentity(c) {
			return false
		}
	}
	return true
}

// IsNoOp holds for identity parameters except on the basic clamping
// styles, which still clamp negative values.
func (g *Gamma) IsNoOp() bool {
	if g.inDepth != g.outDepth || !g.IsIdentity() {
		return false
	}
	return !g.clampsNegatives()
}

func (g *Gamma) clampsNegatives() bool {
	return g.Style == GammaBasicFwd || g.Style == GammaBasicRev
}

func (g *Gamma) HasChannelCrosstalk() bool { return false }

// IdentityReplacement turns an identity basic clamping Gamma into the
// negative clamp it performs.
func (g *Gamma) IdentityReplacement() Data {
	if !g.IsIdentity() || !g.clampsNegatives() {
		return nil
	}
	r := NewRange(0, Empty(), 0, Empty())
	r.inDepth, r.outDepth = g.inDepth, g.outDepth
	return r
}

func (g *Gamma) Inverse() (Data, error) {
	inv := g.Clone().(*Gamma)
	inv.Style = g.Style.Invert()
	inv.inDepth, inv.outDepth = g.outDepth, g.inDepth
	return inv, nil
}

func (g *Gamma) sameParams(o *Gamma) bool {
	for c := 0; c < 4; c++ {
		if !EqualScalar(g.Gamma[c], o.Gamma[c]) {
			return false
		}
		if g.Style.IsMoncurve() && !EqualScalar(g.Offset[c], o.Offset[c]) {
			return false
		}
	}
	return true
}

// IsInverse never holds for the basic clamping styles: the pair still
// clamps negative values, so it composes into a Range instead.
func (g *Gamma) IsInverse(other Data) bool {
	o, ok := other.(*Gamma)
	return ok && !g.clampsNegatives() && o.Style == g.Style.Invert() && g.mirroredDepths(o) && g.sameParams(o)
}

func (g *Gamma) Clone() Data {
	c := *g
	c.cacheID = ""
	return &c
}

func (g *Gamma) Equals(other Data) bool {
	o, ok := other.(*Gamma)
	return ok && o.Style == g.Style && g.sameDepths(o) && g.sameParams(o)
}

func (g *Gamma) Finalize() error {
	if err := g.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeGamma, g.inDepth, g.outDepth).
		str("style", g.Style.String()).
		floats("g", g.Gamma[:]...)
	if g.Style.IsMoncurve() {
		w.floats("o", g.Offset[:]...)
	}
	g.cacheID = w.String()
	return nil
}

// ComposeGammas multiplies the exponents of two basic Gamma ops of the
// same style.
func ComposeGammas(g, next *Gamma) (*Gamma, bool) {
	if g.Style != next.Style || g.Style.IsMoncurve() || g.outDepth != next.inDepth {
		return nil, false
	}
	c := g.Clone().(*Gamma)
	for i := 0; i < 4; i++ {
		c.Gamma[i] = g.Gamma[i] * next.Gamma[i]
	}
	c.outDepth = next.outDepth
	return c, true
}
