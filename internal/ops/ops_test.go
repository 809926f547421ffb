package ops

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/colorio/internal/opdata"
)

var testPixels = [][4]float32{
	{0, 0, 0, 1},
	{1, 1, 1, 1},
	{0.7, 0.4, 0.02, 1},
	{0.02, 0.6, 0.2, 1},
	{0.3, 0.02, 0.5, 1},
}

func mustFinalize(t *testing.T, v Vec, flags Flags) Vec {
	t.Helper()
	w, err := v.Finalize(opdata.BitDepthF32, opdata.BitDepthF32, flags)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func applyAll(v Vec, pixels [][4]float32) []float32 {
	buf := make([]float32, 0, 4*len(pixels))
	for _, p := range pixels {
		buf = append(buf, p[:]...)
	}
	v.Apply(buf, len(pixels))
	return buf
}

func checkClose(t *testing.T, got, want []float32, rel float64) {
	t.Helper()
	for i := range want {
		a, b := float64(got[i]), float64(want[i])
		if math.Abs(a-b) > rel*math.Max(1, math.Abs(b)) {
			t.Fatalf("value %d = %v, want %v (tol %g)\ngot  %v\nwant %v", i, a, b, rel, got, want)
		}
	}
}

func TestIdentityLutRemoved(t *testing.T) {
	lut := opdata.NewLut1DFrom([]float32{0, 0, 0, 1, 1, 1})
	v := mustFinalize(t, Of(lut), FlagDefault)
	if len(v) != 0 {
		t.Fatalf("optimized vector has %d ops, want 0: %v", len(v), v.Types())
	}
	if !v.IsNoOp() {
		t.Error("empty vector is not a no-op")
	}
}

func TestIdentityMatrixAndRangeCollapse(t *testing.T) {
	v := mustFinalize(t, Of(opdata.NewMatrix(), opdata.NewRange(0, 1, 0, 1)), FlagDefault)
	if len(v) != 0 {
		t.Fatalf("optimized vector has %d ops, want 0: %v", len(v), v.Types())
	}
}

func TestInversePairsRemoved(t *testing.T) {
	m := opdata.NewMatrixFrom(f64.Mat4{
		0.6, 0.3, 0.1, 0,
		0.2, 0.7, 0.1, 0,
		0.05, 0.15, 0.8, 0,
		0, 0, 0, 1,
	}, f64.Vec4{0.01, 0, -0.02, 0})
	mInv, err := m.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	lut := opdata.NewLut1DFrom([]float32{0, 0, 0, 0.2, 0.3, 0.25, 1, 1, 1})
	lutInv, err := lut.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	log := opdata.NewLog(10, opdata.Forward)
	logInv, err := log.Inverse()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		v    Vec
	}{
		{"matrix", Of(m, mInv)},
		{"lut1d", Of(lut, lutInv)},
		{"log", Of(log, logInv)},
		{"nested", Of(m.Clone(), log.Clone(), logInv.Clone(), mInv.Clone())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustFinalize(t, tt.v, FlagDefault)
			if len(v) != 0 {
				t.Errorf("optimized vector = %v, want empty", v.Types())
			}
		})
	}
}

func TestComposition(t *testing.T) {
	m1 := opdata.NewDiagonalMatrix(f64.Vec4{2, 2, 2, 1})
	m2 := opdata.NewMatrixFrom(f64.Mat4{
		0.5, 0.25, 0, 0,
		0, 0.5, 0.25, 0,
		0.25, 0, 0.5, 0,
		0, 0, 0, 1,
	}, f64.Vec4{0.1, 0, 0, 0})

	tests := []struct {
		name  string
		v     Vec
		flags Flags
		want  []opdata.Type
	}{
		{"matrices", Of(m1, m2), FlagDefault, []opdata.Type{opdata.TypeMatrix}},
		{"ranges", Of(opdata.NewRange(0, 1, 0.1, 0.9), opdata.NewRange(0.2, 0.8, 0, 1)), FlagDefault, []opdata.Type{opdata.TypeRange}},
		{"gammas", Of(opdata.NewGamma(opdata.GammaBasicFwd, 2), opdata.NewGamma(opdata.GammaBasicFwd, 1.5)), FlagDefault, []opdata.Type{opdata.TypeGamma}},
		{"exponents", Of(opdata.NewExponent([4]float64{2, 2, 2, 1}, opdata.NegativeClamp), opdata.NewExponent([4]float64{1.1, 1.2, 1.3, 1}, opdata.NegativeClamp)), FlagDefault, []opdata.Type{opdata.TypeExponent}},
		{"mirror exponents kept", Of(opdata.NewExponent([4]float64{2, 2, 2, 1}, opdata.NegativeMirror), opdata.NewExponent([4]float64{1.1, 1.2, 1.3, 1}, opdata.NegativeMirror)), FlagDefault, []opdata.Type{opdata.TypeExponent, opdata.TypeExponent}},
		{"cdl never", Of(cdl(1.1), cdl(0.9)), FlagAll, []opdata.Type{opdata.TypeCDL, opdata.TypeCDL}},
		{"no optimization", Of(m1, m2), FlagNone, []opdata.Type{opdata.TypeMatrix, opdata.TypeMatrix}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := mustFinalize(t, tt.v, FlagNone)
			got := mustFinalize(t, tt.v, tt.flags)
			if diff := cmp.Diff(tt.want, got.Types()); diff != "" {
				t.Errorf("op types mismatch (-want +got):\n%s", diff)
			}
			checkClose(t, applyAll(got, testPixels), applyAll(ref, testPixels), 1e-5)
		})
	}
}

func cdl(slope float64) *opdata.CDL {
	c := opdata.NewCDL(opdata.CDLV12Fwd)
	c.Slope = [3]float64{slope, slope, slope}
	return c
}

func TestLossyComposition(t *testing.T) {
	n := 256
	a := opdata.NewLut1D(n, false)
	b := opdata.NewLut1D(n, false)
	for i := 0; i < n; i++ {
		x := float32(i) / float32(n-1)
		for c := 0; c < 3; c++ {
			a.Values[3*i+c] = x * (0.5 + 0.5*x)
			b.Values[3*i+c] = 0.1 + 0.8*x
		}
	}
	logFwd := opdata.NewLogAffine(2, [3]opdata.LogParams{
		{LogSlope: 0.5, LogOffset: 0.1, LinSlope: 1, LinOffset: 0.01},
		{LogSlope: 0.5, LogOffset: 0.1, LinSlope: 1, LinOffset: 0.01},
		{LogSlope: 0.5, LogOffset: 0.1, LinSlope: 1, LinOffset: 0.01},
	}, opdata.Forward)
	logInv := opdata.NewLogAffine(2, [3]opdata.LogParams{
		{LogSlope: 0.5, LogOffset: 0.2, LinSlope: 2, LinOffset: 0.02},
		{LogSlope: 0.5, LogOffset: 0.2, LinSlope: 2, LinOffset: 0.02},
		{LogSlope: 0.5, LogOffset: 0.2, LinSlope: 2, LinOffset: 0.02},
	}, opdata.Inverse)

	tests := []struct {
		name      string
		v         Vec
		lossless  int
		lossy     int
		tolerance float64
	}{
		{"lut1d", Of(a, b), 2, 1, 1e-3},
		{"log", Of(logFwd, logInv), 2, 1, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := applyAll(mustFinalize(t, tt.v, FlagNone), testPixels)

			lossless := mustFinalize(t, tt.v, FlagDefault)
			if len(lossless) != tt.lossless {
				t.Errorf("lossless ops = %v", lossless.Types())
			}
			checkClose(t, applyAll(lossless, testPixels), ref, 1e-5)

			lossy := mustFinalize(t, tt.v, FlagAll)
			if len(lossy) != tt.lossy {
				t.Errorf("lossy ops = %v", lossy.Types())
			}
			checkClose(t, applyAll(lossy, testPixels), ref, tt.tolerance)
		})
	}
}

func TestLutDomainClamp(t *testing.T) {
	lut := opdata.NewLut3D(3)
	lut.Values[0] = 0.1

	inside := mustFinalize(t, Of(opdata.NewClampRange(0.1, 0.9), lut), FlagDefault)
	if diff := cmp.Diff([]opdata.Type{opdata.TypeRange, opdata.TypeLut3D}, inside.Types()); diff != "" {
		t.Errorf("inner clamp (-want +got):\n%s", diff)
	}

	wide := mustFinalize(t, Of(opdata.NewRange(-0.5, opdata.Empty(), -0.5, opdata.Empty()), lut), FlagDefault)
	if diff := cmp.Diff([]opdata.Type{opdata.TypeLut3D}, wide.Types()); diff != "" {
		t.Errorf("wide clamp (-want +got):\n%s", diff)
	}
}

func TestBitDepthEnds(t *testing.T) {
	m := opdata.NewDiagonalMatrix(f64.Vec4{0.5, 0.5, 0.5, 1})
	tests := []struct {
		name    string
		v       Vec
		in, out opdata.BitDepth
		px      [4]float32
		want    [4]float32
	}{
		{"empty 8i to float", nil, opdata.BitDepthUInt8, opdata.BitDepthF32, [4]float32{255, 0, 51, 255}, [4]float32{1, 0, 0.2, 1}},
		{"matrix 8i to 16i", Of(m), opdata.BitDepthUInt8, opdata.BitDepthUInt16, [4]float32{255, 0, 102, 255}, [4]float32{32767.5, 0, 13107, 65535}},
		{"float to 10i clamps", Of(m), opdata.BitDepthF32, opdata.BitDepthUInt10, [4]float32{4, -1, 1, 1}, [4]float32{1023, 0, 511.5, 1023}},
		{"gamma wrapped", Of(opdata.NewGamma(opdata.GammaBasicFwd, 2)), opdata.BitDepthUInt8, opdata.BitDepthF32, [4]float32{255, 0, 127.5, 255}, [4]float32{1, 0, 0.25, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.v.Finalize(tt.in, tt.out, FlagDefault)
			if err != nil {
				t.Fatal(err)
			}
			got := applyAll(v, [][4]float32{tt.px})
			checkClose(t, got, tt.want[:], 1e-5)
		})
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	v := Of(
		opdata.NewMatrixFrom(opdata.Identity4, f64.Vec4{0.1, 0, 0, 0}),
		opdata.NewLog(2, opdata.Forward),
		opdata.NewLut1D(32, false),
		opdata.NewMoncurve(opdata.GammaMoncurveRev, 2.4, 0.055),
	)
	v[2].Data().(*opdata.Lut1D).Values[0] = 0.01

	a := mustFinalize(t, v, FlagDefault)
	b := mustFinalize(t, v, FlagDefault)
	if a.CacheID(FlagDefault) != b.CacheID(FlagDefault) {
		t.Error("two finalizations of one vector differ")
	}
	c := mustFinalize(t, a, FlagDefault)
	if a.CacheID(FlagDefault) != c.CacheID(FlagDefault) {
		t.Error("finalize is not idempotent")
	}
	if a.CacheID(FlagDefault) == a.CacheID(FlagAll) {
		t.Error("cache-ID ignores the flag word")
	}
	if v[0].IsFinalized() {
		t.Error("Finalize modified its receiver")
	}
}

func TestDynamicPropertiesShared(t *testing.T) {
	mk := func() *opdata.ExposureContrast {
		ec := opdata.NewExposureContrast(opdata.ECLinearFwd)
		ec.Dynamic[opdata.DynamicExposure] = true
		return ec
	}
	v := mustFinalize(t, Of(mk(), opdata.NewMatrix(), mk()), FlagDefault)
	if len(v) != 2 {
		t.Fatalf("ops = %v, want two exposure/contrast ops", v.Types())
	}
	p := v.DynamicProperty(opdata.DynamicExposure)
	if p == nil {
		t.Fatal("no exposure property")
	}
	if v.DynamicProperty(opdata.DynamicGamma) != nil {
		t.Error("gamma is not dynamic")
	}
	for _, o := range v {
		if o.Data().(*opdata.ExposureContrast).Exposure != p {
			t.Error("exposure handle not shared")
		}
	}

	before := applyAll(v, testPixels[2:3])
	p.SetValue(1)
	after := applyAll(v, testPixels[2:3])
	// Two ops each add one stop.
	checkClose(t, after[:3], []float32{before[0] * 4, before[1] * 4, before[2] * 4}, 1e-5)
}

func TestOptimizerEquivalence(t *testing.T) {
	gen := func() Vec {
		return Of(
			opdata.NewMatrixFrom(f64.Mat4{
				0.8, 0.1, 0.1, 0,
				0.1, 0.8, 0.1, 0,
				0.05, 0.05, 0.9, 0,
				0, 0, 0, 1,
			}, f64.Vec4{0.01, 0.02, 0.03, 0}),
			opdata.NewDiagonalMatrix(f64.Vec4{1.2, 0.9, 1.1, 1}),
			opdata.NewRange(0, 2, 0, 2),
			opdata.NewGamma(opdata.GammaBasicFwd, 1.2),
			opdata.NewGamma(opdata.GammaBasicFwd, 1/1.1),
			opdata.NewLog(2, opdata.Forward),
			opdata.NewLog(2, opdata.Inverse),
			opdata.NewExponent([4]float64{1.1, 1, 0.9, 1}, opdata.NegativeClamp),
			opdata.NewExponent([4]float64{1.05, 1, 1.1, 1}, opdata.NegativeClamp),
			opdata.NewAllocation(opdata.AllocationLg2),
			opdata.NewMatrix(),
		)
	}
	ref := applyAll(mustFinalize(t, gen(), FlagNone), testPixels)
	for _, flags := range []Flags{FlagDefault, FlagAll, FlagIdentity, FlagComposition | FlagInversePairs} {
		t.Run(flags.String(), func(t *testing.T) {
			v := mustFinalize(t, gen(), flags)
			tol := 1e-5
			if flags&FlagLossy != 0 {
				tol = 1e-3
			}
			checkClose(t, applyAll(v, testPixels), ref, tol)
		})
	}
	if v := mustFinalize(t, gen(), FlagDefault); len(v) >= 11 {
		t.Errorf("optimizer left %d ops", len(v))
	}

	// Chains whose intermediate values go negative, mixing one-sided
	// clamps with clamping and mirrored powers.
	pixels := append([][4]float32{{-0.25, 0.25, 0.5, 1}, {-0.5, 0.5, 2, 1}, {0.4, -0.3, -0.05, 1}}, testPixels...)
	for seed := int64(1); seed <= 40; seed++ {
		ref := applyAll(mustFinalize(t, clampChain(seed), FlagNone), pixels)
		for _, flags := range []Flags{FlagDefault, FlagAll, FlagIdentity | FlagReplacement, FlagComposition | FlagInversePairs} {
			v := mustFinalize(t, clampChain(seed), flags)
			tol := 1e-5
			if flags&FlagLossy != 0 {
				tol = 1e-3
			}
			got := applyAll(v, pixels)
			for i := range ref {
				a, b := float64(got[i]), float64(ref[i])
				if math.Abs(a-b) > tol*math.Max(1, math.Abs(b)) {
					t.Fatalf("seed %d, flags %v: value %d = %v, want %v\nops %v", seed, flags, i, a, b, v.Types())
				}
			}
		}
	}
}

// clampChain returns a random vector of ops that move values below zero
// and clamp or mirror them again.
func clampChain(seed int64) Vec {
	rng := rand.New(rand.NewSource(seed))
	between := func(lo, hi float64) float64 { return lo + (hi-lo)*rng.Float64() }
	var v Vec
	for n := 3 + rng.Intn(5); n > 0; n-- {
		g := between(1.2, 2.5)
		switch rng.Intn(8) {
		case 0:
			v = append(v, New(opdata.NewMatrixFrom(f64.Mat4{
				between(0.5, 1.5), 0, 0, 0,
				0, between(0.5, 1.5), 0, 0,
				0, 0, between(0.5, 1.5), 0,
				0, 0, 0, 1,
			}, f64.Vec4{between(-0.2, 0.1), between(-0.2, 0.1), between(-0.2, 0.1), 0})))
		case 1:
			v = append(v, New(opdata.NewRange(0, opdata.Empty(), 0, opdata.Empty())))
		case 2:
			v = append(v, New(opdata.NewRange(opdata.Empty(), 0.8, opdata.Empty(), 0.8)))
		case 3:
			v = append(v, New(opdata.NewRange(0.05, 0.9, 0.05, 0.9)))
		case 4:
			v = append(v,
				New(opdata.NewExponent([4]float64{g, g, g, 1}, opdata.NegativeClamp)),
				New(opdata.NewExponent([4]float64{1 / g, 1 / g, 1 / g, 1}, opdata.NegativeClamp)))
		case 5:
			v = append(v,
				New(opdata.NewGamma(opdata.GammaBasicFwd, g)),
				New(opdata.NewGamma(opdata.GammaBasicFwd, 1/g)))
		case 6:
			v = append(v,
				New(opdata.NewGamma(opdata.GammaBasicFwd, g)),
				New(opdata.NewGamma(opdata.GammaBasicRev, g)))
		default:
			v = append(v,
				New(opdata.NewExponent([4]float64{g, g, g, 1}, opdata.NegativeMirror)),
				New(opdata.NewExponent([4]float64{1 / g, 1 / g, 1 / g, 1}, opdata.NegativeMirror)))
		}
	}
	return v
}

func TestNegativeClampKept(t *testing.T) {
	tests := []struct {
		name string
		gen  func() Vec
		want []opdata.Type
	}{
		{"lower bound only range", func() Vec {
			return Of(opdata.NewRange(0, opdata.Empty(), 0, opdata.Empty()))
		}, []opdata.Type{opdata.TypeRange}},
		{"clamping exponent pair", func() Vec {
			return Of(
				opdata.NewExponent([4]float64{2, 2, 2, 1}, opdata.NegativeClamp),
				opdata.NewExponent([4]float64{0.5, 0.5, 0.5, 1}, opdata.NegativeClamp))
		}, []opdata.Type{opdata.TypeRange}},
		{"clamping gamma pair", func() Vec {
			return Of(opdata.NewGamma(opdata.GammaBasicFwd, 2), opdata.NewGamma(opdata.GammaBasicFwd, 0.5))
		}, []opdata.Type{opdata.TypeRange}},
		{"clamping gamma and its inverse", func() Vec {
			return Of(opdata.NewGamma(opdata.GammaBasicFwd, 2), opdata.NewGamma(opdata.GammaBasicRev, 2))
		}, []opdata.Type{opdata.TypeGamma, opdata.TypeGamma}},
	}
	px := [][4]float32{{-0.25, 0.25, 0.5, 1}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustFinalize(t, tt.gen(), FlagDefault)
			if diff := cmp.Diff(tt.want, v.Types()); diff != "" {
				t.Errorf("op types mismatch (-want +got):\n%s", diff)
			}
			checkClose(t, applyAll(v, px), []float32{0, 0.25, 0.5, 1}, 1e-5)
		})
	}
}

func TestInverseVec(t *testing.T) {
	v := Of(
		opdata.NewMatrixFrom(f64.Mat4{
			0.6, 0.3, 0.1, 0,
			0.2, 0.7, 0.1, 0,
			0.05, 0.15, 0.8, 0,
			0, 0, 0, 1,
		}, f64.Vec4{}),
		opdata.NewMoncurve(opdata.GammaMoncurveRev, 2.4, 0.055),
		opdata.NewLog(2, opdata.Forward),
	)
	inv, err := v.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	want := []opdata.Type{opdata.TypeLog, opdata.TypeGamma, opdata.TypeMatrix}
	if diff := cmp.Diff(want, inv.Types()); diff != "" {
		t.Fatalf("inverse order (-want +got):\n%s", diff)
	}
	fwd := mustFinalize(t, v, FlagNone)
	back := mustFinalize(t, inv, FlagNone)
	pixels := testPixels[2:]
	got := applyAll(fwd, pixels)
	back.Apply(got, len(pixels))
	want2 := applyAll(nil, pixels)
	checkClose(t, got, want2, 1e-4)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		in   string
		want Flags
		ok   bool
	}{
		{"0", FlagNone, true},
		{"63", FlagLossless, true},
		{"0x7f", FlagAll, true},
		{" 4 ", FlagComposition, true},
		{"lossy", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseFlags(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFlags(%q) = %v, %v", tt.in, got, err)
		}
	}
	if got := (FlagIdentity | FlagLossy).String(); got != "identity|lossy" {
		t.Errorf("String() = %q", got)
	}
}

func BenchmarkFinalize(b *testing.B) {
	for b.Loop() {
		v := Of(
			opdata.NewMatrixFrom(opdata.Identity4, f64.Vec4{0.1, 0, 0, 0}),
			opdata.NewDiagonalMatrix(f64.Vec4{2, 2, 2, 1}),
			opdata.NewLog(2, opdata.Forward),
			opdata.NewLut3D(17),
		)
		if _, err := v.Finalize(opdata.BitDepthUInt8, opdata.BitDepthF32, FlagDefault); err != nil {
			b.Fatal(err)
		}
	}
}
