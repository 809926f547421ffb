package opdata

import "math"

// MaxGridSize is the largest supported Lut3D edge length.
const MaxGridSize = 129

// Lut3D is a 3D lookup table over the [0, 1] cube. Values holds GridSize³
// RGB triplets with blue varying fastest: the entry for grid coordinate
// (r, g, b) starts at 3·((r·G + g)·G + b).
type Lut3D struct {
	base
	Values   []float32
	GridSize int
	Interp   Interpolation
	Inverted bool
}

// NewLut3D returns an identity Lut3D of edge length g.
func NewLut3D(g int) *Lut3D {
	l := &Lut3D{base: newBase(), GridSize: g, Values: make([]float32, g*g*g*3)}
	if g < 2 {
		return l
	}
	step := 1 / float32(g-1)
	for r := 0; r < g; r++ {
		for gi := 0; gi < g; gi++ {
			for b := 0; b < g; b++ {
				i := l.Index(r, gi, b)
				l.Values[i] = float32(r) * step
				l.Values[i+1] = float32(gi) * step
				l.Values[i+2] = float32(b) * step
			}
		}
	}
	return l
}

// NewLut3DFrom wraps values for a grid of edge length g.
func NewLut3DFrom(g int, values []float32) *Lut3D {
	return &Lut3D{base: newBase(), GridSize: g, Values: values}
}

func (l *Lut3D) Type() Type { return TypeLut3D }

// Index returns the offset of the entry at grid coordinate (r, g, b).
func (l *Lut3D) Index(r, g, b int) int {
	return 3 * ((r*l.GridSize+g)*l.GridSize + b)
}

func (l *Lut3D) Validate() error {
	g := l.GridSize
	if g < 2 || g > MaxGridSize {
		return validationErrorf("lut3d: grid size %d outside [2, %d]", g, MaxGridSize)
	}
	if len(l.Values) != g*g*g*3 {
		return validationErrorf("lut3d: expected %d values for grid %d, got %d", g*g*g*3, g, len(l.Values))
	}
	switch l.Interp {
	case InterpDefault, InterpNearest, InterpLinear, InterpTrilinear, InterpTetrahedral, InterpBest:
	default:
		return validationErrorf("lut3d: unsupported interpolation %s", l.Interp)
	}
	return nil
}

// EffectiveInterp resolves Default, Linear and Best to the concrete method.
func (l *Lut3D) EffectiveInterp() Interpolation {
	switch l.Interp {
	case InterpTetrahedral, InterpBest:
		return InterpTetrahedral
	case InterpNearest:
		return InterpNearest
	default:
		return InterpTrilinear
	}
}

func (l *Lut3D) IsIdentity() bool {
	g := l.GridSize
	if g < 2 || len(l.Values) != g*g*g*3 {
		return false
	}
	step := 1 / float64(g-1)
	for r := 0; r < g; r++ {
		for gi := 0; gi < g; gi++ {
			for b := 0; b < g; b++ {
				i := l.Index(r, gi, b)
				if math.Abs(float64(l.Values[i])-float64(r)*step) > lutIdentityTolerance ||
					math.Abs(float64(l.Values[i+1])-float64(gi)*step) > lutIdentityTolerance ||
					math.Abs(float64(l.Values[i+2])-float64(b)*step) > lutIdentityTolerance {
					return false
				}
			}
		}
	}
	return true
}

// IsNoOp is always false: the LUT clamps its input to the unit cube.
func (l *Lut3D) IsNoOp() bool { return false }

func (l *Lut3D) HasChannelCrosstalk() bool { return !l.IsIdentity() }

func (l *Lut3D) IdentityReplacement() Data {
	if !l.IsIdentity() {
		return nil
	}
	return domainClamp(l.inDepth, l.outDepth)
}

func (l *Lut3D) Inverse() (Data, error) {
	inv := l.Clone().(*Lut3D)
	inv.Inverted = !l.Inverted
	inv.inDepth, inv.outDepth = l.outDepth, l.inDepth
	return inv, nil
}

func (l *Lut3D) IsInverse(other Data) bool {
	o, ok := other.(*Lut3D)
	return ok && o.Inverted != l.Inverted && l.mirroredDepths(o) && l.sameTable(o)
}

func (l *Lut3D) sameTable(o *Lut3D) bool {
	if l.GridSize != o.GridSize || len(l.Values) != len(o.Values) {
		return false
	}
	for i := range l.Values {
		if l.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (l *Lut3D) Clone() Data {
	c := *l
	c.Values = append([]float32(nil), l.Values...)
	c.cacheID = ""
	return &c
}

func (l *Lut3D) Equals(other Data) bool {
	o, ok := other.(*Lut3D)
	return ok && l.sameDepths(o) && l.Inverted == o.Inverted &&
		l.EffectiveInterp() == o.EffectiveInterp() && l.sameTable(o)
}

func (l *Lut3D) Finalize() error {
	if err := l.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeLut3D, l.inDepth, l.outDepth).
		floats("grid", float64(l.GridSize)).
		str("interp", l.EffectiveInterp().String()).
		str("digest", floatsDigest(l.Values))
	if l.Inverted {
		w.str("dir", Inverse.String())
	}
	l.cacheID = w.String()
	return nil
}
