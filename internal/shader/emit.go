package shader

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/colorio/internal/cpu"
	"github.com/gogpu/colorio/internal/opdata"
)

// errNoHalfBits is returned for half-domain tables in languages without
// access to the half float bit pattern.
var errNoHalfBits = errors.New("half-domain lookup tables need half float bit access")

// bakedLut1DSize is the resolution of tables resampled on the CPU.
const bakedLut1DSize = 4096

// minFloat keeps log arguments positive.
const minFloat = 1.17549435e-38

func emit(b *Builder, d opdata.Data) error {
	switch v := d.(type) {
	case *opdata.Matrix:
		emitMatrix(b, v)
	case *opdata.Range:
		emitRange(b, v)
	case *opdata.Lut1D:
		return emitLut1D(b, v)
	case *opdata.Lut3D:
		return emitLut3D(b, v)
	case *opdata.Log:
		emitLog(b, v)
	case *opdata.Gamma:
		emitGamma(b, v)
	case *opdata.CDL:
		emitCDL(b, v)
	case *opdata.FixedFunction:
		return emitFixedFunction(b, v)
	case *opdata.Exponent:
		emitExponent(b, v)
	case *opdata.ExposureContrast:
		emitExposureContrast(b, v)
	case *opdata.Allocation:
	default:
		return fmt.Errorf("no shader for %s", d.Type())
	}
	return nil
}

func emitMatrix(b *Builder, d *opdata.Matrix) {
	scale := d.OutputBitDepth().MaxValue() / d.InputBitDepth().MaxValue()
	outMax := d.OutputBitDepth().MaxValue()
	px := b.pixel()
	if d.IsDiagonal() {
		diag := [4]float64{d.M[0] * scale, d.M[5] * scale, d.M[10] * scale, d.M[15] * scale}
		expr := px + " * " + b.vec4f(diag)
		if d.HasOffset() {
			off := d.Offset
			expr += " + " + b.vec4f([4]float64{off[0] * outMax, off[1] * outMax, off[2] * outMax, off[3] * outMax})
		}
		b.assign(px, expr)
		return
	}
	var rows [4]string
	for r := 0; r < 4; r++ {
		row := [4]float64{d.M[4*r] * scale, d.M[4*r+1] * scale, d.M[4*r+2] * scale, d.M[4*r+3] * scale}
		rows[r] = "dot(" + b.vec4f(row) + ", " + px + ")"
		if off := d.Offset[r]; off != 0 {
			rows[r] += " + " + b.lit(off*outMax)
		}
	}
	b.assign(px, b.vec4(rows[0], rows[1], rows[2], rows[3]))
}

func emitRange(b *Builder, d *opdata.Range) {
	p := d.Params()
	expr := b.rgb()
	if p.Scale != 1 {
		expr += " * " + b.lit(p.Scale)
	}
	if p.Offset != 0 {
		expr += " + " + b.lit(p.Offset)
	}
	lo, hi := !opdata.IsEmpty(p.LowBound), !opdata.IsEmpty(p.HighBound)
	switch {
	case lo && hi:
		expr = b.call("clamp", expr, b.splat3(p.LowBound), b.splat3(p.HighBound))
	case lo:
		expr = b.call("max", expr, b.splat3(p.LowBound))
	case hi:
		expr = b.call("min", expr, b.splat3(p.HighBound))
	}
	alpha := b.pixel() + ".a"
	if p.AlphaScale != 1 {
		alpha += " * " + b.lit(p.AlphaScale)
	}
	b.assign(b.pixel(), b.typ(tFloat4)+"("+expr+", "+alpha+")")
}

// bakeLut1D evaluates the CPU kernel of d on n evenly spaced inputs over
// [lo, hi] and returns the RGB results.
func bakeLut1D(d opdata.Data, n int, lo, hi float64) ([]float32, error) {
	r, err := cpu.NewRenderer(d)
	if err != nil {
		return nil, err
	}
	buf := make([]float32, 4*n)
	for i := 0; i < n; i++ {
		v := float32(lo + (hi-lo)*float64(i)/float64(n-1))
		buf[4*i], buf[4*i+1], buf[4*i+2], buf[4*i+3] = v, v, v, 1
	}
	r.Apply(buf, buf, n)
	out := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		copy(out[3*i:3*i+3], buf[4*i:4*i+3])
	}
	return out, nil
}

func emitLut1D(b *Builder, d *opdata.Lut1D) error {
	if d.HalfDomain && !d.Inverted {
		return emitHalfLut1D(b, d)
	}
	values, n := d.Values, d.Length()
	lo, hi := 0.0, 1.0
	interp := d.EffectiveInterp()
	switch {
	case d.Inverted:
		lo, hi = lutRange(d.Values)
		plain := d.Clone().(*opdata.Lut1D)
		plain.HueAdjust = opdata.HueAdjustNone
		n = max(n, bakedLut1DSize)
		var err error
		if values, err = bakeLut1D(plain, n, lo, hi); err != nil {
			return err
		}
		interp = opdata.InterpLinear
	case interp == opdata.InterpCubic:
		plain := d.Clone().(*opdata.Lut1D)
		plain.HueAdjust = opdata.HueAdjustNone
		n = max(n, bakedLut1DSize)
		var err error
		if values, err = bakeLut1D(plain, n, 0, 1); err != nil {
			return err
		}
		interp = opdata.InterpLinear
	}
	t := b.addLut1DTexture("lut1d", values, n)

	if d.HueAdjust == opdata.HueAdjustDW3 {
		b.decl(tFloat, "maxv", b.call("max", b.pixel()+".r", b.call("max", b.pixel()+".g", b.pixel()+".b")))
		b.decl(tFloat, "minv", b.call("min", b.pixel()+".r", b.call("min", b.pixel()+".g", b.pixel()+".b")))
		b.decl(tFloat, "chroma", b.call("max", "maxv - minv", "1e-8"))
		b.decl(tFloat3, "delta", b.rgb()+" - minv")
	}

	maxIdx := b.lit(float64(n - 1))
	domain := b.rgb()
	if lo != 0 || hi != 1 {
		domain = "(" + domain + " - " + b.lit(lo) + ") * " + b.lit(1/(hi-lo))
	}
	b.decl(tFloat3, "idx", b.call("clamp", domain, b.splat3(0), b.splat3(1))+" * "+maxIdx)
	var res [3]string
	for c, comp := range []string{"r", "g", "b"} {
		if interp == opdata.InterpNearest {
			b.decl(tFloat, "i"+comp, "floor(idx."+comp+" + 0.5)")
			res[c] = b.fetch1D(t, "i"+comp) + "." + comp
			continue
		}
		b.decl(tFloat, "i"+comp, b.call("min", "floor(idx."+comp+")", b.lit(float64(n-2))))
		b.decl(tFloat, "j"+comp, "i"+comp+" + 1.0")
		res[c] = b.call("mix", b.fetch1D(t, "i"+comp)+"."+comp, b.fetch1D(t, "j"+comp)+"."+comp, "idx."+comp+" - i"+comp)
	}
	b.decl(tFloat3, "res", b.vec3(res[0], res[1], res[2]))

	if d.HueAdjust == opdata.HueAdjustDW3 {
		b.decl(tFloat, "newMax", b.call("max", "res.r", b.call("max", "res.g", "res.b")))
		b.decl(tFloat, "newMin", b.call("min", "res.r", b.call("min", "res.g", "res.b")))
		b.assign("res", "newMin + delta * ((newMax - newMin) / chroma)")
	}
	b.setRGB("res")
	return nil
}

// lutRange returns the extent of the table values.
func lutRange(values []float32) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}
	if !(hi > lo) {
		hi = lo + 1
	}
	return lo, hi
}

func (b *Builder) halfBits(x string) string {
	switch b.lang() {
	case LanguageWGSL:
		return "f32(pack2x16float(vec2<f32>(" + x + ", 0.0)) & 0xffffu)"
	case LanguageHLSLDX11:
		return "float(f32tof16(" + x + "))"
	case LanguageMSL20:
		return "float(as_type<ushort>(half(" + x + ")))"
	default:
		return "float(packHalf2x16(vec2(" + x + ", 0.0)) & 65535u)"
	}
}

func emitHalfLut1D(b *Builder, d *opdata.Lut1D) error {
	if !b.hasHalfBits() {
		return fmt.Errorf("%w (%s)", errNoHalfBits, b.lang())
	}
	t := b.addLut1DTexture("lut1d", d.Values, d.Length())
	var res [3]string
	for c, comp := range []string{"r", "g", "b"} {
		b.decl(tFloat, "i"+comp, b.halfBits(b.pixel()+"."+comp))
		res[c] = b.fetch1D(t, "i"+comp) + "." + comp
	}
	b.setRGB(b.vec3(res[0], res[1], res[2]))
	return nil
}

func emitLut3D(b *Builder, d *opdata.Lut3D) error {
	values, interp := d.Values, d.EffectiveInterp()
	if d.Inverted {
		baked, err := bakeLut3D(d)
		if err != nil {
			return err
		}
		values, interp = baked, opdata.InterpTetrahedral
	}
	g := d.GridSize
	t := b.addLut3DTexture("lut3d", values, g, interp)
	gl := b.lit(float64(g))
	maxIdx := b.lit(float64(g - 1))
	clamped := b.call("clamp", b.rgb(), b.splat3(0), b.splat3(1))

	switch interp {
	case opdata.InterpTrilinear:
		b.setRGB(b.sample(t, "("+clamped+".bgr * "+maxIdx+" + 0.5) / "+gl) + ".rgb")
		return nil
	case opdata.InterpNearest:
		b.setRGB(b.sample(t, "(floor("+clamped+".bgr * "+maxIdx+" + 0.5) + 0.5) / "+gl) + ".rgb")
		return nil
	}

	corner := func(dr, dg, db float64) string {
		return b.sample(t, "(base.bgr + "+b.vec3f([3]float64{db, dg, dr})+" + 0.5) / "+gl) + ".rgb"
	}
	b.decl(tFloat3, "idx", clamped+" * "+maxIdx)
	b.decl(tFloat3, "base", b.call("min", "floor(idx)", b.splat3(float64(g-2))))
	b.decl(tFloat3, "f", "idx - base")
	b.decl(tFloat3, "c000", corner(0, 0, 0))
	b.decl(tFloat3, "c111", corner(1, 1, 1))
	b.decl(tFloat3, "res", "c000")
	// Six tetrahedra, selected by the order of the fractional parts.
	tetra := func(fa, fb, fc string, ca, cb [3]float64) {
		b.decl(tFloat3, "ca", corner(ca[0], ca[1], ca[2]))
		b.decl(tFloat3, "cb", corner(cb[0], cb[1], cb[2]))
		b.assign("res", "c000 + f."+fa+" * (ca - c000) + f."+fb+" * (cb - ca) + f."+fc+" * (c111 - cb)")
	}
	b.ifBegin("f.r > f.g")
	b.ifBegin("f.g > f.b")
	tetra("r", "g", "b", [3]float64{1, 0, 0}, [3]float64{1, 1, 0})
	b.elseIf("f.r > f.b")
	tetra("r", "b", "g", [3]float64{1, 0, 0}, [3]float64{1, 0, 1})
	b.elseBegin()
	tetra("b", "r", "g", [3]float64{0, 0, 1}, [3]float64{1, 0, 1})
	b.end()
	b.elseBegin()
	b.ifBegin("f.b > f.g")
	tetra("b", "g", "r", [3]float64{0, 0, 1}, [3]float64{0, 1, 1})
	b.elseIf("f.b > f.r")
	tetra("g", "b", "r", [3]float64{0, 1, 0}, [3]float64{0, 1, 1})
	b.elseBegin()
	tetra("g", "r", "b", [3]float64{0, 1, 0}, [3]float64{1, 1, 0})
	b.end()
	b.end()
	b.setRGB("res")
	return nil
}

// bakeLut3D samples the CPU inverse kernel at every grid node.
func bakeLut3D(d *opdata.Lut3D) ([]float32, error) {
	r, err := cpu.NewRenderer(d)
	if err != nil {
		return nil, err
	}
	g := d.GridSize
	n := g * g * g
	buf := make([]float32, 4*n)
	step := 1 / float32(g-1)
	for ri := 0; ri < g; ri++ {
		for gi := 0; gi < g; gi++ {
			for bi := 0; bi < g; bi++ {
				p := 4 * ((ri*g+gi)*g + bi)
				buf[p], buf[p+1], buf[p+2], buf[p+3] = float32(ri)*step, float32(gi)*step, float32(bi)*step, 1
			}
		}
	}
	r.Apply(buf, buf, n)
	out := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		copy(out[3*i:3*i+3], buf[4*i:4*i+3])
	}
	return out, nil
}

func emitLog(b *Builder, d *opdata.Log) {
	var linSlope, linOffset, logSlope, logOffset, k [3]float64
	log2Base := math.Log2(d.Base)
	for c, p := range d.Params {
		linSlope[c], linOffset[c] = p.LinSlope, p.LinOffset
		logSlope[c], logOffset[c] = p.LogSlope, p.LogOffset
	}
	if d.Direction == opdata.Forward {
		for c := range k {
			k[c] = logSlope[c] / log2Base
		}
		expr := b.vec3f(k) + " * log2(" + b.call("max", b.rgb()+" * "+b.vec3f(linSlope)+" + "+b.vec3f(linOffset), b.splat3(minFloat)) + ") + " + b.vec3f(logOffset)
		if !d.Camera {
			b.setRGB(expr)
			return
		}
		cam := d.CameraParams()
		var brk, slope, off [3]float64
		for c := range cam {
			brk[c], slope[c], off[c] = cam[c].LinSideBreak, cam[c].LinearSlope, cam[c].LinearOffset
		}
		b.decl(tFloat3, "logv", expr)
		b.decl(tFloat3, "linv", b.rgb()+" * "+b.vec3f(slope)+" + "+b.vec3f(off))
		b.setRGB(b.call("mix", "linv", "logv", "step("+b.vec3f(brk)+", "+b.rgb()+")"))
		return
	}
	for c := range k {
		k[c] = log2Base / logSlope[c]
	}
	var invLinSlope [3]float64
	for c := range invLinSlope {
		invLinSlope[c] = 1 / linSlope[c]
	}
	expr := "(exp2((" + b.rgb() + " - " + b.vec3f(logOffset) + ") * " + b.vec3f(k) + ") - " + b.vec3f(linOffset) + ") * " + b.vec3f(invLinSlope)
	if !d.Camera {
		b.setRGB(expr)
		return
	}
	cam := d.CameraParams()
	var brk, invSlope, off [3]float64
	for c := range cam {
		brk[c], invSlope[c], off[c] = cam[c].LogSideBreak, 1/cam[c].LinearSlope, cam[c].LinearOffset
	}
	b.decl(tFloat3, "linv", expr)
	b.decl(tFloat3, "toe", "("+b.rgb()+" - "+b.vec3f(off)+") * "+b.vec3f(invSlope))
	b.setRGB(b.call("mix", "toe", "linv", "step("+b.vec3f(brk)+", "+b.rgb()+")"))
}

// emitPower writes the basic power curves shared by Gamma and Exponent.
func emitPower(b *Builder, g [4]float64, neg opdata.NegativeStyle) {
	px := b.pixel()
	zero := b.vec4f([4]float64{})
	exp := b.vec4f(g)
	switch neg {
	case opdata.NegativeMirror:
		b.assign(px, "sign("+px+") * pow(abs("+px+"), "+exp+")")
	case opdata.NegativePassThru:
		b.assign(px, b.call("mix", px, "pow("+b.call("max", px, zero)+", "+exp+")", "step("+zero+", "+px+")"))
	default:
		b.assign(px, "pow("+b.call("max", px, zero)+", "+exp+")")
	}
}

func emitGamma(b *Builder, d *opdata.Gamma) {
	if !d.Style.IsMoncurve() {
		g := d.Gamma
		if d.Style.IsReverse() {
			for c := range g {
				g[c] = 1 / g[c]
			}
		}
		neg := opdata.NegativeClamp
		switch d.Style {
		case opdata.GammaBasicMirrorFwd, opdata.GammaBasicMirrorRev:
			neg = opdata.NegativeMirror
		case opdata.GammaBasicPassThruFwd, opdata.GammaBasicPassThruRev:
			neg = opdata.NegativePassThru
		}
		emitPower(b, g, neg)
		return
	}

	var gamma, invGamma, brk, linBrk, slope, invSlope, scale, shift, offset, onePlus [4]float64
	for c := 0; c < 4; c++ {
		p := d.Moncurve(c)
		if p.Identity {
			gamma[c], invGamma[c], slope[c], invSlope[c], scale[c], onePlus[c] = 1, 1, 1, 1, 1, 1
			continue
		}
		gamma[c], invGamma[c] = p.Gamma, 1/p.Gamma
		brk[c], linBrk[c] = p.Break, p.LinearBreak
		slope[c], invSlope[c] = p.Slope, 1/p.Slope
		scale[c], shift[c] = p.Scale, p.Shift
		offset[c], onePlus[c] = p.Offset, 1+p.Offset
	}
	px := b.pixel()
	zero := b.vec4f([4]float64{})
	mirror := d.Style == opdata.GammaMoncurveMirrorFwd || d.Style == opdata.GammaMoncurveMirrorRev
	v := px
	if mirror {
		b.decl(tFloat4, "s", "sign("+px+")")
		b.decl(tFloat4, "v", "abs("+px+")")
		v = "v"
	}
	var expr string
	if d.Style.IsReverse() {
		curve := "pow(" + b.call("max", v, zero) + ", " + b.vec4f(invGamma) + ") * " + b.vec4f(onePlus) + " - " + b.vec4f(offset)
		expr = b.call("mix", v+" * "+b.vec4f(invSlope), curve, "step("+b.vec4f(linBrk)+", "+v+")")
	} else {
		curve := "pow(" + b.call("max", v+" * "+b.vec4f(scale)+" + "+b.vec4f(shift), zero) + ", " + b.vec4f(gamma) + ")"
		expr = b.call("mix", v+" * "+b.vec4f(slope), curve, "step("+b.vec4f(brk)+", "+v+")")
	}
	if mirror {
		expr = "s * " + expr
	}
	b.assign(px, expr)
}

func emitExponent(b *Builder, d *opdata.Exponent) {
	emitPower(b, d.Gamma, d.Negative)
}

func emitCDL(b *Builder, d *opdata.CDL) {
	var invSlope, invPower [3]float64
	for c := 0; c < 3; c++ {
		if d.Slope[c] != 0 {
			invSlope[c] = 1 / d.Slope[c]
		}
		invPower[c] = 1 / d.Power[c]
	}
	invSat := 0.0
	if d.Saturation != 0 {
		invSat = 1 / d.Saturation
	}
	zero, one := b.splat3(0), b.splat3(1)
	luma := b.vec3f([3]float64{opdata.CDLLumaR, opdata.CDLLumaG, opdata.CDLLumaB})
	clamp := func(x string) string { return b.call("clamp", x, zero, one) }
	positivePow := func(x string, p [3]float64) string {
		return b.call("mix", x, "pow("+b.call("max", x, zero)+", "+b.vec3f(p)+")", "step("+zero+", "+x+")")
	}
	switch d.Style {
	case opdata.CDLV12Fwd:
		b.decl(tFloat3, "v", "pow("+clamp(b.rgb()+" * "+b.vec3f(d.Slope)+" + "+b.vec3f(d.Offset))+", "+b.vec3f(d.Power)+")")
		b.decl(tFloat, "y", "dot(v, "+luma+")")
		b.setRGB(clamp("y + " + b.lit(d.Saturation) + " * (v - y)"))
	case opdata.CDLV12Rev:
		b.decl(tFloat3, "v", clamp(b.rgb()))
		b.decl(tFloat, "y", "dot(v, "+luma+")")
		b.decl(tFloat3, "s", clamp("y + "+b.lit(invSat)+" * (v - y)"))
		b.setRGB(clamp("(pow(s, " + b.vec3f(invPower) + ") - " + b.vec3f(d.Offset) + ") * " + b.vec3f(invSlope)))
	case opdata.CDLNoClampFwd:
		b.decl(tFloat3, "x", b.rgb()+" * "+b.vec3f(d.Slope)+" + "+b.vec3f(d.Offset))
		b.decl(tFloat3, "v", positivePow("x", d.Power))
		b.decl(tFloat, "y", "dot(v, "+luma+")")
		b.setRGB("y + " + b.lit(d.Saturation) + " * (v - y)")
	default:
		b.decl(tFloat, "y", "dot("+b.rgb()+", "+luma+")")
		b.decl(tFloat3, "x", "y + "+b.lit(invSat)+" * ("+b.rgb()+" - y)")
		b.decl(tFloat3, "v", positivePow("x", invPower))
		b.setRGB("(v - " + b.vec3f(d.Offset) + ") * " + b.vec3f(invSlope))
	}
}

// ecValue returns the shader expression of an exposure/contrast property:
// a uniform when the property is dynamic, else a literal.
func ecValue(b *Builder, d *opdata.ExposureContrast, kind opdata.DynamicKind, name string) string {
	p := d.Property(kind)
	if d.Dynamic[kind] {
		return b.addUniform(name, UniformFloat, p.Value(), p)
	}
	return b.lit(p.Value())
}

func emitExposureContrast(b *Builder, d *opdata.ExposureContrast) {
	e := ecValue(b, d, opdata.DynamicExposure, "exposure")
	c := ecValue(b, d, opdata.DynamicContrast, "contrast")
	g := ecValue(b, d, opdata.DynamicGamma, "gamma")
	b.decl(tFloat, "contrast", b.call("max", b.lit(opdata.ECMinContrast), c+" * "+g))

	pivot := math.Max(opdata.ECMinPivot, d.Pivot)
	gain := "exp2(" + e + ")"
	switch d.Style {
	case opdata.ECVideoFwd, opdata.ECVideoRev:
		pivot = math.Pow(pivot, opdata.ECVideoOETFPower)
		gain = "exp2(" + e + " * " + b.lit(opdata.ECVideoOETFPower) + ")"
	case opdata.ECLogFwd, opdata.ECLogRev:
		pivot = math.Max(0, math.Log2(pivot/0.18)*d.LogExposureStep+d.LogMidGray)
	}
	zero := b.splat3(0)
	pv := b.lit(pivot)
	switch d.Style {
	case opdata.ECLinearFwd, opdata.ECVideoFwd:
		b.setRGB("pow(" + b.call("max", b.rgb()+" * ("+gain+" / "+pv+")", zero) + ", " + b.vec3("contrast", "contrast", "contrast") + ") * " + pv)
	case opdata.ECLinearRev, opdata.ECVideoRev:
		inv := "1.0 / contrast"
		b.setRGB("pow(" + b.call("max", b.rgb()+" / "+pv, zero) + ", " + b.vec3(inv, inv, inv) + ") * (" + pv + " / " + gain + ")")
	case opdata.ECLogFwd:
		step := b.lit(d.LogExposureStep)
		b.setRGB(b.rgb() + " * contrast + ((" + e + " * " + step + " - " + pv + ") * contrast + " + pv + ")")
	default:
		step := b.lit(d.LogExposureStep)
		b.setRGB("(" + b.rgb() + " - " + pv + ") / contrast + (" + pv + " - " + e + " * " + step + ")")
	}
}
