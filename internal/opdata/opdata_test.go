package opdata

import (
	"errors"
	"math"
	"sync"
	"testing"

	"golang.org/x/image/math/f64"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestCombineDirection(t *testing.T) {
	tests := []struct {
		outer, inner, want Direction
	}{
		{Forward, Forward, Forward},
		{Forward, Inverse, Inverse},
		{Inverse, Forward, Inverse},
		{Inverse, Inverse, Forward},
	}
	for _, tt := range tests {
		if got := Combine(tt.outer, tt.inner); got != tt.want {
			t.Errorf("Combine(%v, %v) = %v, want %v", tt.outer, tt.inner, got, tt.want)
		}
	}
}

func TestBitDepthMaxValue(t *testing.T) {
	tests := []struct {
		d    BitDepth
		want float64
	}{
		{BitDepthUInt8, 255},
		{BitDepthUInt10, 1023},
		{BitDepthUInt12, 4095},
		{BitDepthUInt16, 65535},
		{BitDepthF16, 1},
		{BitDepthF32, 1},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			if got := tt.d.MaxValue(); got != tt.want {
				t.Errorf("MaxValue() = %v, want %v", got, tt.want)
			}
			back, ok := ParseBitDepth(tt.d.String())
			if !ok || back != tt.d {
				t.Errorf("ParseBitDepth(%q) = %v, %v", tt.d.String(), back, ok)
			}
		})
	}
}

func TestMatrixInverse(t *testing.T) {
	m := NewMatrixFrom(f64.Mat4{
		0.6954522414, 0.1406786965, 0.1638690622, 0,
		0.0447945634, 0.8596711185, 0.0955343182, 0,
		-0.0055258826, 0.0040252103, 1.0015006723, 0,
		0, 0, 0, 1,
	}, f64.Vec4{0.01, -0.02, 0.03, 0})

	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if !m.IsInverse(inv) {
		t.Fatal("IsInverse(m.Inverse()) = false")
	}
	c := m.Compose(inv.(*Matrix))
	for i := range c.M {
		if !near(c.M[i], Identity4[i], 1e-6) {
			t.Fatalf("composed M[%d] = %v", i, c.M[i])
		}
	}
	for i := range c.Offset {
		if !near(c.Offset[i], 0, 1e-6) {
			t.Fatalf("composed offset[%d] = %v", i, c.Offset[i])
		}
	}
}

func TestMatrixSingular(t *testing.T) {
	m := NewDiagonalMatrix(f64.Vec4{1, 0, 1, 1})
	_, err := m.Inverse()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Inverse of singular matrix: err = %v, want ErrValidation", err)
	}
}

func TestMatrixPredicates(t *testing.T) {
	id := NewMatrix()
	if !id.IsIdentity() || !id.IsNoOp() {
		t.Error("identity matrix not detected")
	}
	id.SetOutputBitDepth(BitDepthUInt8)
	if id.IsNoOp() {
		t.Error("identity matrix with depth change reported as no-op")
	}
	if r, ok := id.IdentityReplacement().(*Range); !ok || r.OutputBitDepth() != BitDepthUInt8 {
		t.Errorf("IdentityReplacement() = %v, want bit-depth Range", id.IdentityReplacement())
	}

	d := NewDiagonalMatrix(f64.Vec4{2, 3, 4, 1})
	if !d.IsDiagonal() || d.HasChannelCrosstalk() {
		t.Error("diagonal matrix misclassified")
	}
	d.M[1] = 0.5
	if !d.HasChannelCrosstalk() {
		t.Error("off-diagonal coefficient not reported as crosstalk")
	}
}

func TestRangeParams(t *testing.T) {
	tests := []struct {
		name                  string
		r                     *Range
		scale, offset, lo, hi float64
	}{
		{"both pairs", NewRange(0, 1, 0.5, 1.5), 1, 0.5, 0.5, 1.5},
		{"stretch", NewRange(0.25, 0.75, 0, 1), 2, -0.5, 0, 1},
		{"min only", NewRange(0.1, Empty(), 0.2, Empty()), 1, 0.1, 0.2, Empty()},
		{"max only", NewRange(Empty(), 0.9, Empty(), 0.5), 1, -0.4, Empty(), 0.5},
		{"bit-depth only", NewRange(Empty(), Empty(), Empty(), Empty()), 1, 0, Empty(), Empty()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.r.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			p := tt.r.Params()
			if !near(p.Scale, tt.scale, 1e-12) || !near(p.Offset, tt.offset, 1e-12) {
				t.Errorf("scale/offset = %v/%v, want %v/%v", p.Scale, p.Offset, tt.scale, tt.offset)
			}
			if !EqualScalar(p.LowBound, tt.lo) || !EqualScalar(p.HighBound, tt.hi) {
				t.Errorf("bounds = [%v, %v], want [%v, %v]", p.LowBound, p.HighBound, tt.lo, tt.hi)
			}
		})
	}
}

func TestRangeBitDepthScale(t *testing.T) {
	r := NewBitDepthRange(BitDepthUInt8, BitDepthF32)
	p := r.Params()
	if !near(p.Scale, 1.0/255, 1e-12) || !IsEmpty(p.LowBound) {
		t.Errorf("uint8→f32 params = %+v", p)
	}
	if r.Scales() {
		t.Error("pure bit-depth range reported as scaling")
	}
	if r.IsNoOp() {
		t.Error("bit-depth range reported as no-op")
	}

	r = NewBitDepthRange(BitDepthF32, BitDepthUInt10)
	p = r.Params()
	if p.LowBound != 0 || p.HighBound != 1023 {
		t.Errorf("integer output bounds = [%v, %v], want [0, 1023]", p.LowBound, p.HighBound)
	}
}

func TestRangeValidate(t *testing.T) {
	tests := []struct {
		name string
		r    *Range
	}{
		{"half min pair", NewRange(0, 1, Empty(), 1)},
		{"half max pair", NewRange(0, 1, 0, Empty())},
		{"reversed", NewRange(1, 0, 0, 1)},
		{"degenerate", NewRange(0.5, 0.5, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.r.Validate(); !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRangeIdentity(t *testing.T) {
	tests := []struct {
		name string
		r    *Range
		want bool
	}{
		{"unit clamp", NewClampRange(0, 1), true},
		{"wide clamp", NewClampRange(-1, 2), true},
		{"no bounds", NewRange(Empty(), Empty(), Empty(), Empty()), true},
		{"clamp negatives", NewRange(0, Empty(), 0, Empty()), false},
		{"wide lower bound only", NewRange(-1, Empty(), -1, Empty()), false},
		{"upper bound only", NewRange(Empty(), 1, Empty(), 1), false},
		{"inner clamp", NewClampRange(0.1, 1), false},
		{"offset", NewRange(0, 1, 0.1, 1.1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsIdentity(); got != tt.want {
				t.Errorf("IsIdentity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRangeInverse(t *testing.T) {
	r := NewRange(Empty(), Empty(), Empty(), Empty())
	r.SetInputBitDepth(BitDepthUInt8)
	inv, err := r.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsInverse(inv) {
		t.Error("bit-depth range and its inverse not detected")
	}
	c, ok := ComposeRanges(r, inv.(*Range))
	if !ok {
		t.Fatal("ComposeRanges failed")
	}
	if !c.IsNoOp() {
		t.Errorf("range∘inverse = %+v, want no-op", c)
	}
}

func TestComposeRanges(t *testing.T) {
	a := NewRange(0, 1, 0, 2)     // x*2 clamped to [0, 2]
	b := NewRange(0, 2, 0.5, 1.5) // x*0.5 + 0.5 clamped to [0.5, 1.5]
	c, ok := ComposeRanges(a, b)
	if !ok {
		t.Fatal("ComposeRanges failed")
	}
	eval := func(r *Range, x float64) float64 {
		p := r.Params()
		v := x*p.Scale + p.Offset
		if !IsEmpty(p.LowBound) {
			v = math.Max(v, p.LowBound)
		}
		if !IsEmpty(p.HighBound) {
			v = math.Min(v, p.HighBound)
		}
		return v
	}
	for _, x := range []float64{-1, 0, 0.25, 0.5, 1, 2} {
		want := eval(b, eval(a, x))
		if got := eval(c, x); !near(got, want, 1e-12) {
			t.Errorf("composed(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestLut1DIdentity(t *testing.T) {
	l := NewLut1D(2, false)
	if !l.IsIdentity() {
		t.Fatal("2-entry ramp is not identity")
	}
	if l.IsNoOp() {
		t.Error("regular identity LUT must not be a no-op (it clamps)")
	}
	r, ok := l.IdentityReplacement().(*Range)
	if !ok {
		t.Fatalf("IdentityReplacement() = %T, want *Range", l.IdentityReplacement())
	}
	if !r.IsNoOp() {
		t.Errorf("replacement %+v is not a no-op", r)
	}

	l.Values[3] = 0.9
	if l.IsIdentity() {
		t.Error("modified LUT reported as identity")
	}
}

func TestLut1DHalfDomain(t *testing.T) {
	l := NewLut1D(HalfDomainSize, true)
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
	if !l.IsIdentity() || !l.IsNoOp() {
		t.Error("identity half-domain LUT should be a no-op")
	}
	bad := NewLut1D(1024, true)
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("half-domain with 1024 entries: err = %v", err)
	}
}

func TestLut1DMarkedInverse(t *testing.T) {
	l := NewLut1DFrom([]float32{0, 0, 0, 0.25, 0.25, 0.25, 1, 1, 1})
	inv, err := l.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	if !l.IsInverse(inv) || !inv.IsInverse(l) {
		t.Error("marked inverse not detected")
	}
	other := l.Clone().(*Lut1D)
	if l.IsInverse(other) {
		t.Error("unmarked copy reported as inverse")
	}

	nonMono := NewLut1DFrom([]float32{0, 0, 0, 1, 1, 1, 0.5, 0.5, 0.5})
	if _, err := nonMono.Inverse(); !errors.Is(err, ErrValidation) {
		t.Errorf("non-monotonic inverse: err = %v", err)
	}
}

func TestLut3D(t *testing.T) {
	l := NewLut3D(5)
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
	if !l.IsIdentity() {
		t.Error("identity grid not detected")
	}
	i := l.Index(4, 0, 0)
	if l.Values[i] != 1 || l.Values[i+1] != 0 || l.Values[i+2] != 0 {
		t.Errorf("entry (4,0,0) = %v", l.Values[i:i+3])
	}
	for _, g := range []int{1, 130} {
		bad := NewLut3D(g)
		if err := bad.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("grid %d: err = %v", g, err)
		}
	}
}

func TestMoncurveSRGB(t *testing.T) {
	g := NewMoncurve(GammaMoncurveFwd, 2.4, 0.055)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	p := g.Moncurve(0)
	if !near(p.LinearBreak, 0.0030399, 1e-6) {
		t.Errorf("linear break = %v, want 0.0030399", p.LinearBreak)
	}
	if !near(p.Break, 0.0392857, 1e-6) {
		t.Errorf("break = %v, want 0.0392857", p.Break)
	}
	if !near(1/p.Slope, 12.92, 0.01) {
		t.Errorf("toe slope = 1/%v, want 1/12.92", 1/p.Slope)
	}
	if !g.Moncurve(3).Identity {
		t.Error("alpha channel should be identity")
	}
	inv, _ := g.Inverse()
	if !g.IsInverse(inv) {
		t.Error("moncurve inverse not detected")
	}
}

func TestGammaValidate(t *testing.T) {
	tests := []struct {
		name string
		g    *Gamma
	}{
		{"zero basic", NewGamma(GammaBasicFwd, 0)},
		{"moncurve exponent", NewMoncurve(GammaMoncurveFwd, 0.5, 0.1)},
		{"moncurve offset", NewMoncurve(GammaMoncurveRev, 2.2, 0.95)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.g.Validate(); !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestComposeGammas(t *testing.T) {
	a := NewGamma(GammaBasicFwd, 2)
	b := NewGamma(GammaBasicFwd, 1.5)
	c, ok := ComposeGammas(a, b)
	if !ok || !near(c.Gamma[0], 3, 1e-12) {
		t.Errorf("ComposeGammas = %v, %v", c, ok)
	}
	if _, ok := ComposeGammas(a, NewGamma(GammaBasicMirrorFwd, 2)); ok {
		t.Error("different styles composed")
	}
}

func TestCDL(t *testing.T) {
	c := NewCDL(CDLV12Fwd)
	if !c.IsIdentity() || c.IsNoOp() {
		t.Error("identity clamping CDL must be identity but not a no-op")
	}
	if c.IdentityReplacement() == nil {
		t.Error("identity clamping CDL has no replacement")
	}
	nc := NewCDL(CDLNoClampFwd)
	if !nc.IsNoOp() {
		t.Error("identity no-clamp CDL should be a no-op")
	}
	c.Saturation = 0
	if _, err := c.Inverse(); !errors.Is(err, ErrValidation) {
		t.Errorf("inverse of zero-saturation CDL: err = %v", err)
	}
}

func TestLogCameraContinuity(t *testing.T) {
	params := [3]LogParams{}
	for i := range params {
		params[i] = LogParams{LogSlope: 0.25, LogOffset: 0.6, LinSlope: 5, LinOffset: 0.05}
	}
	l := NewLogCamera(2, params, [3]float64{0.01, 0.01, 0.01}, nil, Forward)
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
	cp := l.CameraParams()[0]
	p := params[0]
	curve := func(x float64) float64 {
		return p.LogSlope*math.Log2(p.LinSlope*x+p.LinOffset) + p.LogOffset
	}
	if !near(cp.LinearSlope*cp.LinSideBreak+cp.LinearOffset, curve(cp.LinSideBreak), 1e-12) {
		t.Error("camera log is not continuous at the break")
	}
	h := 1e-7
	deriv := (curve(cp.LinSideBreak+h) - curve(cp.LinSideBreak-h)) / (2 * h)
	if !near(deriv, cp.LinearSlope, 1e-4) {
		t.Errorf("derived slope %v, numeric derivative %v", cp.LinearSlope, deriv)
	}
}

func TestComposeLogs(t *testing.T) {
	p1 := [3]LogParams{{1, 0.5, 2, 0.1}, {1, 0.5, 2, 0.1}, {1, 0.5, 2, 0.1}}
	p2 := [3]LogParams{{1, 0.25, 1, 0}, {1, 0.25, 1, 0}, {1, 0.25, 1, 0}}
	fwd := NewLogAffine(10, p1, Forward)
	inv := NewLogAffine(10, p2, Inverse)
	m, ok := ComposeLogs(fwd, inv)
	if !ok {
		t.Fatal("ComposeLogs failed")
	}
	x := 0.3
	y := math.Log10(2*x+0.1) + 0.5
	want := math.Pow(10, y-0.25)
	if got := m.M[0]*x + m.Offset[0]; !near(got, want, 1e-9) {
		t.Errorf("composed = %v, want %v", got, want)
	}
}

func TestFixedFunctionStyles(t *testing.T) {
	for s := FFACESRedMod03Fwd; s <= FFLUVToXYZ; s++ {
		if s.Invert().Invert() != s {
			t.Errorf("%v: double inversion = %v", s, s.Invert().Invert())
		}
		back, ok := ParseFixedFunctionStyle(s.String())
		if !ok || back != s {
			t.Errorf("ParseFixedFunctionStyle(%q) = %v", s.String(), back)
		}
	}
	if err := NewFixedFunction(FFRec2100SurroundFwd).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("surround without gamma: err = %v", err)
	}
	if err := NewFixedFunction(FFRec2100SurroundFwd, 0.78).Validate(); err != nil {
		t.Errorf("surround: %v", err)
	}
}

func TestExponent(t *testing.T) {
	e := NewExponent([4]float64{1, 1, 1, 1}, NegativeClamp)
	if !e.IsIdentity() {
		t.Error("unit exponent not identity")
	}
	e = NewExponent([4]float64{2.2, 2.2, 2.2, 1}, NegativeMirror)
	inv, _ := e.Inverse()
	if !e.IsInverse(inv) {
		t.Error("exponent inverse not detected")
	}
}

func TestClampingPowerKeepsNegativeClamp(t *testing.T) {
	e := NewExponent([4]float64{1, 1, 1, 1}, NegativeClamp)
	if e.IsNoOp() {
		t.Error("unit clamping exponent reported as no-op")
	}
	r, ok := e.IdentityReplacement().(*Range)
	if !ok || !r.IsClampNegs() {
		t.Errorf("IdentityReplacement() = %v, want negative clamp", e.IdentityReplacement())
	}
	if NewExponent([4]float64{1, 1, 1, 1}, NegativeMirror).IdentityReplacement() != nil {
		t.Error("unit mirror exponent has a replacement")
	}

	e = NewExponent([4]float64{2, 2, 2, 1}, NegativeClamp)
	inv, _ := e.Inverse()
	if e.IsInverse(inv) {
		t.Error("clamping exponent pair reported as inverses")
	}

	g := NewGamma(GammaBasicFwd, 2)
	ginv, _ := g.Inverse()
	if g.IsInverse(ginv) {
		t.Error("clamping gamma pair reported as inverses")
	}
	g = NewGamma(GammaBasicMirrorFwd, 2)
	ginv, _ = g.Inverse()
	if !g.IsInverse(ginv) {
		t.Error("mirror gamma inverse not detected")
	}
}

func TestExposureContrastDynamic(t *testing.T) {
	e := NewExposureContrast(ECLinearFwd)
	if !e.IsIdentity() {
		t.Error("neutral op not identity")
	}
	e.Dynamic[DynamicExposure] = true
	if e.IsIdentity() {
		t.Error("dynamic op reported as identity")
	}
	c := e.Clone().(*ExposureContrast)
	if c.Exposure != e.Exposure {
		t.Error("clone must share dynamic exposure")
	}
	if c.Contrast == e.Contrast {
		t.Error("clone must copy static contrast")
	}
	if err := e.Finalize(); err != nil {
		t.Fatal(err)
	}
	id := e.CacheID()
	e.Exposure.SetValue(2)
	if err := e.Finalize(); err != nil {
		t.Fatal(err)
	}
	if e.CacheID() != id {
		t.Error("dynamic value leaked into the cache-ID")
	}
}

func TestDynamicPropertyConcurrent(t *testing.T) {
	p := NewDynamicProperty(DynamicExposure, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				p.SetValue(v)
				got := p.Value()
				if math.IsNaN(got) || got < 0 || got > 7 {
					t.Errorf("torn read %v", got)
					return
				}
			}
		}(float64(i))
	}
	wg.Wait()
}

func TestAllocation(t *testing.T) {
	a := NewAllocation(AllocationLg2, -8, 5, 0.001)
	if err := a.Validate(); err != nil {
		t.Fatal(err)
	}
	if !a.IsNoOp() {
		t.Error("allocation must be a no-op")
	}
	lo, hi, off := a.Range()
	if lo != -8 || hi != 5 || off != 0.001 {
		t.Errorf("Range() = %v %v %v", lo, hi, off)
	}
	if err := NewAllocation(AllocationUniform, 1, 2, 3).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("uniform with 3 vars: err = %v", err)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	ops := []Data{
		NewMatrixFrom(Identity4, f64.Vec4{0.1, 0.2, 0.3, 0}),
		NewClampRange(0.1, 0.9),
		NewLut1D(16, false),
		NewLut3D(3),
		NewLog(2, Forward),
		NewMoncurve(GammaMoncurveRev, 2.4, 0.055),
		NewCDL(CDLNoClampRev),
		NewFixedFunction(FFRGBToHSV),
		NewExponent([4]float64{2, 2, 2, 1}, NegativePassThru),
		NewExposureContrast(ECVideoFwd),
		NewAllocation(AllocationUniform),
	}
	for _, d := range ops {
		t.Run(d.Type().String(), func(t *testing.T) {
			if err := d.Finalize(); err != nil {
				t.Fatal(err)
			}
			first := d.CacheID()
			if first == "" {
				t.Fatal("empty cache-ID")
			}
			if err := d.Finalize(); err != nil {
				t.Fatal(err)
			}
			if d.CacheID() != first {
				t.Errorf("cache-ID changed: %q → %q", first, d.CacheID())
			}
			c := d.Clone()
			if !c.Equals(d) {
				t.Error("clone not equal to original")
			}
			if err := c.Finalize(); err != nil || c.CacheID() != first {
				t.Errorf("clone cache-ID = %q, want %q", c.CacheID(), first)
			}
		})
	}
}
