package shader

import (
	"fmt"

	"github.com/gogpu/colorio/internal/opdata"
)

func emitFixedFunction(b *Builder, d *opdata.FixedFunction) error {
	switch d.Style {
	case opdata.FFACESRedMod03Fwd:
		emitRedMod(b, 0.15, 1.9098593171027443, false, true)
	case opdata.FFACESRedMod03Inv:
		emitRedMod(b, 0.15, 1.9098593171027443, true, true)
	case opdata.FFACESRedMod10Fwd:
		emitRedMod(b, 0.18, 1.6976527263135504, false, false)
	case opdata.FFACESRedMod10Inv:
		emitRedMod(b, 0.18, 1.6976527263135504, true, false)
	case opdata.FFACESGlow03Fwd:
		emitGlow(b, 0.075, 0.1, false)
	case opdata.FFACESGlow03Inv:
		emitGlow(b, 0.075, 0.1, true)
	case opdata.FFACESGlow10Fwd:
		emitGlow(b, 0.05, 0.08, false)
	case opdata.FFACESGlow10Inv:
		emitGlow(b, 0.05, 0.08, true)
	case opdata.FFACESDarkToDim10Fwd:
		emitLumaPower(b, [3]float64{0.27222871678091454, 0.67408176581114831, 0.053689517407937051}, 1e-10, 0.9811)
	case opdata.FFACESDarkToDim10Inv:
		emitLumaPower(b, [3]float64{0.27222871678091454, 0.67408176581114831, 0.053689517407937051}, 1e-10, 1/0.9811)
	case opdata.FFRec2100SurroundFwd:
		emitLumaPower(b, [3]float64{0.2627, 0.6780, 0.0593}, 1e-4, d.Params[0])
	case opdata.FFRec2100SurroundInv:
		emitLumaPower(b, [3]float64{0.2627, 0.6780, 0.0593}, 1e-4, 1/d.Params[0])
	case opdata.FFRGBToHSV:
		emitRGBToHSV(b)
	case opdata.FFHSVToRGB:
		emitHSVToRGB(b)
	case opdata.FFXYZToXyY:
		emitXYZToXyY(b)
	case opdata.FFXyYToXYZ:
		emitXyYToXYZ(b)
	case opdata.FFXYZToUvY:
		emitXYZToUvY(b, false)
	case opdata.FFUvYToXYZ:
		emitUvYToXYZ(b)
	case opdata.FFXYZToLUV:
		emitXYZToUvY(b, true)
	case opdata.FFLUVToXYZ:
		emitLUVToXYZ(b)
	default:
		return fmt.Errorf("unsupported fixed function style %s", d.Style)
	}
	return nil
}

// splitRGB declares r, g, b locals holding the pixel color.
func splitRGB(b *Builder) {
	px := b.pixel()
	b.decl(tFloat, "r", px+".r")
	b.decl(tFloat, "g", px+".g")
	b.decl(tFloat, "b", px+".b")
}

// emitSatWeight declares sat = (max − min) / max with noise guards.
func emitSatWeight(b *Builder) {
	b.decl(tFloat, "maxc", "max(r, max(g, b))")
	b.decl(tFloat, "minc", "min(r, min(g, b))")
	b.decl(tFloat, "sat", "(max(1e-10, maxc) - max(1e-10, minc)) / max(0.01, maxc)")
}

// Red modifier hue window rows, highest power first.
var redModSpline = [4][4]float64{
	{0.25, 0, 0, 0},
	{-0.75, 0.75, 0.75, 0.25},
	{0.75, -1.5, 0, 1},
	{-0.25, 0.75, -0.75, 0.25},
}

func emitRedMod(b *Builder, oneMinus, invWidth float64, inverse, restoreHue bool) {
	const pivot = 0.03
	splitRGB(b)
	b.decl(tFloat, "ha", "2.0 * r - (g + b)")
	b.decl(tFloat, "hb", "1.7320508075688772 * (g - b)")
	b.decl(tFloat, "knot", b.call("atan2", "hb", "ha")+" * "+b.lit(invWidth)+" + 2.0")
	b.decl(tFloat, "j", "floor(knot)")
	b.decl(tFloat, "t", "knot - j")
	b.decl(tFloat, "fH", "0.0")
	for j, c := range redModSpline {
		cond := fmt.Sprintf("j == %d.0", j)
		poly := b.lit(c[3]) + " + t * (" + b.lit(c[2]) + " + t * (" + b.lit(c[1]) + " + t * " + b.lit(c[0]) + "))"
		if j == 0 {
			b.ifBegin(cond)
		} else {
			b.elseIf(cond)
		}
		b.assign("fH", poly)
	}
	b.end()

	b.ifBegin("fH > 0.0")
	if inverse {
		b.decl(tFloat, "minChan", "min(g, b)")
		b.decl(tFloat, "qa", "fH * "+b.lit(oneMinus)+" - 1.0")
		b.decl(tFloat, "qb", "r - fH * ("+b.lit(pivot)+" + minChan) * "+b.lit(oneMinus))
		b.decl(tFloat, "qc", "fH * "+b.lit(pivot)+" * minChan * "+b.lit(oneMinus))
		b.decl(tFloat, "newRed", "(-qb - sqrt(qb * qb - 4.0 * qa * qc)) / (2.0 * qa)")
	} else {
		emitSatWeight(b)
		b.decl(tFloat, "newRed", "r + fH * sat * ("+b.lit(pivot)+" - r) * "+b.lit(oneMinus))
	}
	if restoreHue {
		b.ifBegin("g >= b")
		b.assign("g", "(g - b) / max(1e-10, r - b) * (newRed - b) + b")
		b.elseBegin()
		b.assign("b", "(b - g) / max(1e-10, r - g) * (newRed - g) + g")
		b.end()
	}
	b.assign("r", "newRed")
	b.end()
	b.setRGB(b.vec3("r", "g", "b"))
}

func emitGlow(b *Builder, gain, mid float64, inverse bool) {
	splitRGB(b)
	b.decl(tFloat, "yc", "(b + g + r + 1.75 * sqrt(max(0.0, b * (b - g) + g * (g - r) + r * (r - b)))) / 3.0")
	emitSatWeight(b)
	b.decl(tFloat, "sx", "(sat - 0.4) * 5.0")
	b.decl(tFloat, "ss", "sign(sx)")
	b.decl(tFloat, "st", "max(0.0, 1.0 - 0.5 * ss * sx)")
	b.decl(tFloat, "gg", b.lit(gain)+" * (1.0 + ss * (1.0 - st * st)) * 0.5")
	high, low := b.lit(2*mid), b.lit(2*mid/3)
	if inverse {
		b.decl(tFloat, "glow", "gg * ("+b.lit(mid)+" / yc - 0.5) / (gg * 0.5 - 1.0)")
		b.ifBegin("yc >= " + high)
		b.assign("glow", "0.0")
		b.elseIf("yc <= (1.0 + gg) * " + low)
		b.assign("glow", "-gg / (1.0 + gg)")
		b.end()
	} else {
		b.decl(tFloat, "glow", "gg * ("+b.lit(mid)+" / yc - 0.5)")
		b.ifBegin("yc >= " + high)
		b.assign("glow", "0.0")
		b.elseIf("yc <= " + low)
		b.assign("glow", "gg")
		b.end()
	}
	b.setRGB(b.rgb() + " * (1.0 + glow)")
}

// emitLumaPower scales the color by max(floor, Y)^(gamma − 1).
func emitLumaPower(b *Builder, luma [3]float64, floor, gamma float64) {
	b.decl(tFloat, "y", "max("+b.lit(floor)+", dot("+b.rgb()+", "+b.vec3f(luma)+"))")
	b.setRGB(b.rgb() + " * pow(y, " + b.lit(gamma-1) + ")")
}

func emitRGBToHSV(b *Builder) {
	splitRGB(b)
	b.decl(tFloat, "minc", "min(min(r, g), b)")
	b.decl(tFloat, "maxc", "max(max(r, g), b)")
	b.decl(tFloat, "val", "maxc")
	b.decl(tFloat, "sat", "0.0")
	b.decl(tFloat, "hue", "0.0")
	b.ifBegin("minc != maxc")
	b.decl(tFloat, "delta", "maxc - minc")
	b.ifBegin("maxc != 0.0")
	b.assign("sat", "delta / maxc")
	b.end()
	b.ifBegin("r == maxc")
	b.assign("hue", "(g - b) / delta")
	b.elseIf("g == maxc")
	b.assign("hue", "2.0 + (b - r) / delta")
	b.elseBegin()
	b.assign("hue", "4.0 + (r - g) / delta")
	b.end()
	b.ifBegin("hue < 0.0")
	b.assign("hue", "hue + 6.0")
	b.end()
	b.assign("hue", "hue / 6.0")
	b.end()
	b.ifBegin("minc < 0.0")
	b.assign("val", "val + minc")
	b.end()
	b.ifBegin("-minc > maxc")
	b.assign("sat", "(maxc - minc) / -minc")
	b.end()
	b.setRGB(b.vec3("hue", "sat", "val"))
}

func emitHSVToRGB(b *Builder) {
	px := b.pixel()
	b.decl(tFloat, "hue", "("+px+".r - floor("+px+".r)) * 6.0")
	b.decl(tFloat, "sat", "clamp("+px+".g, 0.0, 1.999)")
	b.decl(tFloat, "val", px+".b")
	b.decl(tFloat3, "c", b.vec3(
		"clamp(abs(hue - 3.0) - 1.0, 0.0, 1.0)",
		"clamp(2.0 - abs(hue - 2.0), 0.0, 1.0)",
		"clamp(2.0 - abs(hue - 4.0), 0.0, 1.0)"))
	b.decl(tFloat, "hi", "val")
	b.decl(tFloat, "lo", "val * (1.0 - sat)")
	b.ifBegin("sat > 1.0")
	b.assign("lo", "val * (1.0 - sat) / (2.0 - sat)")
	b.assign("hi", "val - lo")
	b.end()
	b.ifBegin("val < 0.0")
	b.assign("lo", "val / (2.0 - sat)")
	b.assign("hi", "val - lo")
	b.end()
	b.setRGB("c * (hi - lo) + lo")
}

// emitSafeInverse declares name = 1/expr, or 0 when expr is 0.
func emitSafeInverse(b *Builder, name, expr string) {
	b.decl(tFloat, name, "0.0")
	b.decl(tFloat, name+"d", expr)
	b.ifBegin(name + "d != 0.0")
	b.assign(name, "1.0 / "+name+"d")
	b.end()
}

func emitXYZToXyY(b *Builder) {
	px := b.pixel()
	emitSafeInverse(b, "inv", px+".r + "+px+".g + "+px+".b")
	b.setRGB(b.vec3(px+".r * inv", px+".g * inv", px+".g"))
}

func emitXyYToXYZ(b *Builder) {
	px := b.pixel()
	emitSafeInverse(b, "inv", px+".g")
	b.setRGB(b.vec3(px+".b * "+px+".r * inv", px+".b", px+".b * (1.0 - "+px+".r - "+px+".g) * inv"))
}

// emitXYZToUvY writes u'v'Y, or L*u*v* when luv is set.
func emitXYZToUvY(b *Builder, luv bool) {
	px := b.pixel()
	emitSafeInverse(b, "inv", px+".r + 15.0 * "+px+".g + 3.0 * "+px+".b")
	b.decl(tFloat, "u", "4.0 * "+px+".r * inv")
	b.decl(tFloat, "v", "9.0 * "+px+".g * inv")
	if !luv {
		b.setRGB(b.vec3("u", "v", px+".g"))
		return
	}
	b.decl(tFloat, "y", px+".g")
	b.decl(tFloat, "l", "1.16 * pow(max(y, 0.0), 1.0 / 3.0) - 0.16")
	b.ifBegin("y <= 0.008856451679")
	b.assign("l", "9.0329629629629608 * y")
	b.end()
	b.setRGB(b.vec3("l", "13.0 * l * (u - 0.19783001)", "13.0 * l * (v - 0.46831999)"))
}

func emitUvYToXYZ(b *Builder) {
	px := b.pixel()
	emitSafeInverse(b, "inv", px+".g")
	b.decl(tFloat, "y", px+".b")
	b.setRGB(b.vec3(
		"2.25 * y * "+px+".r * inv",
		"y",
		"0.75 * y * (4.0 - "+px+".r - 6.666666666666667 * "+px+".g) * inv"))
}

func emitLUVToXYZ(b *Builder) {
	px := b.pixel()
	b.decl(tFloat, "l", px+".r")
	emitSafeInverse(b, "inv", "l")
	b.decl(tFloat, "u", px+".g * 0.076923076923076927 * inv + 0.19783001")
	b.decl(tFloat, "v", px+".b * 0.076923076923076927 * inv + 0.46831999")
	b.decl(tFloat, "t", "(l + 0.16) * 0.86206896551724144")
	b.decl(tFloat, "y", "t * t * t")
	b.ifBegin("l <= 0.08")
	b.assign("y", "0.11070564598794539 * l")
	b.end()
	emitSafeInverse(b, "dd", "4.0 * v")
	b.setRGB(b.vec3("9.0 * y * u * dd", "y", "y * (12.0 - 3.0 * u - 20.0 * v) * dd"))
}
