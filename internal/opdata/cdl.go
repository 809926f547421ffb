package opdata

// CDLStyle selects the ASC CDL evaluation.
type CDLStyle uint8

// CDL styles. The v1.2 styles clamp to [0, 1]; the no-clamp styles only
// skip the power on non-positive values.
const (
	CDLV12Fwd CDLStyle = iota
	CDLV12Rev
	CDLNoClampFwd
	CDLNoClampRev
)

func (s CDLStyle) String() string {
	switch s {
	case CDLV12Fwd:
		return "v1.2Fwd"
	case CDLV12Rev:
		return "v1.2Rev"
	case CDLNoClampFwd:
		return "noClampFwd"
	case CDLNoClampRev:
		return "noClampRev"
	default:
		return "unknown"
	}
}

// IsReverse reports whether s evaluates the inverse CDL.
func (s CDLStyle) IsReverse() bool { return s == CDLV12Rev || s == CDLNoClampRev }

// Clamps reports whether s clamps to [0, 1].
func (s CDLStyle) Clamps() bool { return s == CDLV12Fwd || s == CDLV12Rev }

// Invert returns the opposite direction of the same family.
func (s CDLStyle) Invert() CDLStyle {
	switch s {
	case CDLV12Fwd:
		return CDLV12Rev
	case CDLV12Rev:
		return CDLV12Fwd
	case CDLNoClampFwd:
		return CDLNoClampRev
	default:
		return CDLNoClampFwd
	}
}

// Rec. 709 luma weights used by the saturation step.
const (
	CDLLumaR = 0.2126
	CDLLumaG = 0.7152
	CDLLumaB = 0.0722
)

// CDL is an ASC color decision: slope, offset, power per channel followed
// by a saturation around Rec. 709 luma.
type CDL struct {
	base
	Style      CDLStyle
	Slope      [3]float64
	Offset     [3]float64
	Power      [3]float64
	Saturation float64
}

// NewCDL returns an identity CDL of the given style.
func NewCDL(style CDLStyle) *CDL {
	return &CDL{
		base:       newBase(),
		Style:      style,
		Slope:      [3]float64{1, 1, 1},
		Power:      [3]float64{1, 1, 1},
		Saturation: 1,
	}
}

func (c *CDL) Type() Type { return TypeCDL }

func (c *CDL) Validate() error {
	if c.Style > CDLNoClampRev {
		return validationErrorf("cdl: unknown style %d", c.Style)
	}
	for i := 0; i < 3; i++ {
		if c.Slope[i] < 0 {
			return validationErrorf("cdl: slope %g is negative", c.Slope[i])
		}
		if !(c.Power[i] > 0) {
			return validationErrorf("cdl: power %g must be positive", c.Power[i])
		}
		if c.Style.IsReverse() && c.Slope[i] == 0 {
			return validationErrorf("cdl: reverse CDL requires a non-zero slope")
		}
	}
	if c.Saturation < 0 {
		return validationErrorf("cdl: saturation %g is negative", c.Saturation)
	}
	if c.Style.IsReverse() && c.Saturation == 0 {
		return validationErrorf("cdl: reverse CDL requires a non-zero saturation")
	}
	return nil
}

func (c *CDL) IsIdentity() bool {
	for i := 0; i < 3; i++ {
		if !EqualScalar(c.Slope[i], 1) || !EqualScalar(c.Offset[i], 0) || !EqualScalar(c.Power[i], 1) {
			return false
		}
	}
	return EqualScalar(c.Saturation, 1)
}

func (c *CDL) IsNoOp() bool {
	return !c.Style.Clamps() && c.inDepth == c.outDepth && c.IsIdentity()
}

func (c *CDL) HasChannelCrosstalk() bool { return !EqualScalar(c.Saturation, 1) }

// IdentityReplacement returns the [0, 1] clamp an identity v1.2 CDL
// performs.
func (c *CDL) IdentityReplacement() Data {
	if !c.Style.Clamps() || !c.IsIdentity() {
		return nil
	}
	return domainClamp(c.inDepth, c.outDepth)
}

func (c *CDL) Inverse() (Data, error) {
	inv := c.Clone().(*CDL)
	inv.Style = c.Style.Invert()
	inv.inDepth, inv.outDepth = c.outDepth, c.inDepth
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (c *CDL) sameParams(o *CDL) bool {
	for i := 0; i < 3; i++ {
		if !EqualScalar(c.Slope[i], o.Slope[i]) || !EqualScalar(c.Offset[i], o.Offset[i]) ||
			!EqualScalar(c.Power[i], o.Power[i]) {
			return false
		}
	}
	return EqualScalar(c.Saturation, o.Saturation)
}

func (c *CDL) IsInverse(other Data) bool {
	o, ok := other.(*CDL)
	return ok && o.Style == c.Style.Invert() && c.mirroredDepths(o) && c.sameParams(o)
}

func (c *CDL) Clone() Data {
	cp := *c
	cp.cacheID = ""
	return &cp
}

func (c *CDL) Equals(other Data) bool {
	o, ok := other.(*CDL)
	return ok && o.Style == c.Style && c.sameDepths(o) && c.sameParams(o)
}

func (c *CDL) Finalize() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.cacheID = newIDWriter(TypeCDL, c.inDepth, c.outDepth).
		str("style", c.Style.String()).
		floats("slope", c.Slope[:]...).
		floats("offset", c.Offset[:]...).
		floats("power", c.Power[:]...).
		floats("sat", c.Saturation).
		String()
	return nil
}
