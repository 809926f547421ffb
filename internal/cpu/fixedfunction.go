package cpu

import (
	"fmt"
	"math"

	"github.com/gogpu/colorio/internal/opdata"
)

// fixedFunc transforms one RGB triplet in place.
type fixedFunc func(v *[3]float32)

type fixedFunctionRenderer struct{ fn fixedFunc }

func (r *fixedFunctionRenderer) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		v := [3]float32{in[i], in[i+1], in[i+2]}
		a := in[i+3]
		r.fn(&v)
		out[i], out[i+1], out[i+2], out[i+3] = v[0], v[1], v[2], a
	}
}

func newFixedFunctionRenderer(d *opdata.FixedFunction) (Renderer, error) {
	var fn fixedFunc
	switch d.Style {
	case opdata.FFACESRedMod03Fwd:
		fn = redMod03Fwd
	case opdata.FFACESRedMod03Inv:
		fn = redMod03Inv
	case opdata.FFACESRedMod10Fwd:
		fn = redMod10Fwd
	case opdata.FFACESRedMod10Inv:
		fn = redMod10Inv
	case opdata.FFACESGlow03Fwd:
		fn = glowFwd(0.075, 0.1)
	case opdata.FFACESGlow03Inv:
		fn = glowInv(0.075, 0.1)
	case opdata.FFACESGlow10Fwd:
		fn = glowFwd(0.05, 0.08)
	case opdata.FFACESGlow10Inv:
		fn = glowInv(0.05, 0.08)
	case opdata.FFACESDarkToDim10Fwd:
		fn = darkToDim(darkToDimGamma)
	case opdata.FFACESDarkToDim10Inv:
		fn = darkToDim(1 / darkToDimGamma)
	case opdata.FFRec2100SurroundFwd:
		fn = rec2100Surround(d.Params[0])
	case opdata.FFRec2100SurroundInv:
		fn = rec2100Surround(1 / d.Params[0])
	case opdata.FFRGBToHSV:
		fn = rgbToHSV
	case opdata.FFHSVToRGB:
		fn = hsvToRGB
	case opdata.FFXYZToXyY:
		fn = xyzToXyY
	case opdata.FFXyYToXYZ:
		fn = xyYToXYZ
	case opdata.FFXYZToUvY:
		fn = xyzToUvY
	case opdata.FFUvYToXYZ:
		fn = uvYToXYZ
	case opdata.FFXYZToLUV:
		fn = xyzToLUV
	case opdata.FFLUVToXYZ:
		fn = luvToXYZ
	default:
		return nil, fmt.Errorf("cpu: unsupported fixed function style %s", d.Style)
	}
	return &fixedFunctionRenderer{fn}, nil
}

// ACES red modifier and glow constants.
const (
	redModPivot      = 0.03
	redMod03OneMinus = 1 - 0.85
	redMod10OneMinus = 1 - 0.82
	redMod03InvWidth = 1.9098593171027443
	redMod10InvWidth = 1.6976527263135504
	satNoiseLimit    = 1e-2

	// ACES 1.0 dark to dim surround exponent.
	darkToDimGamma = 0.9811
)

var hueSpline = [4][4]float32{
	{0.25, 0, 0, 0},
	{-0.75, 0.75, 0.75, 0.25},
	{0.75, -1.5, 0, 1},
	{-0.25, 0.75, -0.75, 0.25},
}

// hueWeight is the quadratic B-spline window around the red hue.
func hueWeight(r, g, b, invWidth float32) float32 {
	a := 2*r - (g + b)
	bb := float32(math.Sqrt(3)) * (g - b)
	hue := float32(math.Atan2(float64(bb), float64(a)))
	knot := hue*invWidth + 2
	j := int(math.Floor(float64(knot)))
	if j < 0 || j >= 4 {
		return 0
	}
	t := knot - float32(j)
	c := hueSpline[j]
	return c[3] + t*(c[2]+t*(c[1]+t*c[0]))
}

func satWeight(r, g, b float32) float32 {
	lo := min32(r, min32(g, b))
	hi := max32(r, max32(g, b))
	return (max32(1e-10, hi) - max32(1e-10, lo)) / max32(satNoiseLimit, hi)
}

// restoreHue moves the middle channel so the hue of (r, g, b) survives the
// change of red to newRed.
func restoreHue(v *[3]float32, newRed float32) {
	r, g, b := v[0], v[1], v[2]
	if g >= b {
		f := (g - b) / max32(1e-10, r-b)
		v[1] = f*(newRed-b) + b
	} else {
		f := (b - g) / max32(1e-10, r-g)
		v[2] = f*(newRed-g) + g
	}
	v[0] = newRed
}

func redModFwd(v *[3]float32, oneMinus, invWidth float32) float32 {
	r, g, b := v[0], v[1], v[2]
	fH := hueWeight(r, g, b, invWidth)
	if fH <= 0 {
		return r
	}
	fS := satWeight(r, g, b)
	return r + fH*fS*(redModPivot-r)*oneMinus
}

func redModInv(v *[3]float32, oneMinus, invWidth float32) float32 {
	r, g, b := v[0], v[1], v[2]
	fH := hueWeight(r, g, b, invWidth)
	if fH <= 0 {
		return r
	}
	minChan := min32(g, b)
	qa := fH*oneMinus - 1
	qb := r - fH*(redModPivot+minChan)*oneMinus
	qc := fH * redModPivot * minChan * oneMinus
	return (-qb - float32(math.Sqrt(float64(qb*qb-4*qa*qc)))) / (2 * qa)
}

func redMod03Fwd(v *[3]float32) {
	if nr := redModFwd(v, redMod03OneMinus, redMod03InvWidth); nr != v[0] {
		restoreHue(v, nr)
	}
}

func redMod03Inv(v *[3]float32) {
	if nr := redModInv(v, redMod03OneMinus, redMod03InvWidth); nr != v[0] {
		restoreHue(v, nr)
	}
}

func redMod10Fwd(v *[3]float32) { v[0] = redModFwd(v, redMod10OneMinus, redMod10InvWidth) }

func redMod10Inv(v *[3]float32) { v[0] = redModInv(v, redMod10OneMinus, redMod10InvWidth) }

// rgbToYC returns luma plus a chroma term weighted by the radius factor.
func rgbToYC(r, g, b float32) float32 {
	chroma := float32(math.Sqrt(float64(max32(0, b*(b-g)+g*(g-r)+r*(r-b)))))
	return (b + g + r + 1.75*chroma) / 3
}

func sigmoidShaper(sat float32) float32 {
	x := (sat - 0.4) * 5
	s := sign32(x)
	t := max32(0, 1-0.5*s*x)
	return (1 + s*(1-t*t)) * 0.5
}

func glowFwd(gain, mid float32) fixedFunc {
	return func(v *[3]float32) {
		yc := rgbToYC(v[0], v[1], v[2])
		g := gain * sigmoidShaper(satWeight(v[0], v[1], v[2]))
		var out float32
		switch {
		case yc >= mid*2:
			out = 0
		case yc <= mid*2/3:
			out = g
		default:
			out = g * (mid/yc - 0.5)
		}
		f := 1 + out
		v[0], v[1], v[2] = v[0]*f, v[1]*f, v[2]*f
	}
}

func glowInv(gain, mid float32) fixedFunc {
	return func(v *[3]float32) {
		yc := rgbToYC(v[0], v[1], v[2])
		g := gain * sigmoidShaper(satWeight(v[0], v[1], v[2]))
		var out float32
		switch {
		case yc >= mid*2:
			out = 0
		case yc <= (1+g)*mid*2/3:
			out = -g / (1 + g)
		default:
			out = g * (mid/yc - 0.5) / (g*0.5 - 1)
		}
		f := 1 + out
		v[0], v[1], v[2] = v[0]*f, v[1]*f, v[2]*f
	}
}

// darkToDim scales RGB by Y^(gamma-1) with Y the AP1 luminance.
func darkToDim(gamma float64) fixedFunc {
	e := float32(gamma - 1)
	return func(v *[3]float32) {
		y := max32(1e-10, 0.27222871678091454*v[0]+0.67408176581114831*v[1]+0.053689517407937051*v[2])
		f := pow32(y, e)
		v[0], v[1], v[2] = v[0]*f, v[1]*f, v[2]*f
	}
}

// rec2100Surround scales RGB by Y^(gamma-1) with Y the Rec. 2100 luminance.
func rec2100Surround(gamma float64) fixedFunc {
	e := float32(gamma - 1)
	return func(v *[3]float32) {
		y := max32(1e-4, 0.2627*v[0]+0.6780*v[1]+0.0593*v[2])
		f := pow32(y, e)
		v[0], v[1], v[2] = v[0]*f, v[1]*f, v[2]*f
	}
}

// rgbToHSV handles extended range: mixed-sign input yields S in [1, 2].
func rgbToHSV(v *[3]float32) {
	r, g, b := v[0], v[1], v[2]
	lo := min32(min32(r, g), b)
	hi := max32(max32(r, g), b)
	val := hi
	var sat, hue float32
	if lo != hi {
		delta := hi - lo
		if hi != 0 {
			sat = delta / hi
		}
		switch {
		case r == hi:
			hue = (g - b) / delta
		case g == hi:
			hue = 2 + (b-r)/delta
		default:
			hue = 4 + (r-g)/delta
		}
		if hue < 0 {
			hue += 6
		}
		hue *= 1.0 / 6
	}
	if lo < 0 {
		val += lo
	}
	if -lo > hi {
		sat = (hi - lo) / -lo
	}
	v[0], v[1], v[2] = hue, sat, val
}

const hsvMaxSat = 1.999

func hsvToRGB(v *[3]float32) {
	hue := (v[0] - float32(math.Floor(float64(v[0])))) * 6
	sat := clamp32(v[1], 0, hsvMaxSat)
	val := v[2]
	r := clamp32(abs32(hue-3)-1, 0, 1)
	g := clamp32(2-abs32(hue-2), 0, 1)
	b := clamp32(2-abs32(hue-4), 0, 1)
	hi := val
	lo := val * (1 - sat)
	if sat > 1 {
		lo = val * (1 - sat) / (2 - sat)
		hi = val - lo
	}
	if val < 0 {
		lo = val / (2 - sat)
		hi = val - lo
	}
	delta := hi - lo
	v[0], v[1], v[2] = r*delta+lo, g*delta+lo, b*delta+lo
}

func xyzToXyY(v *[3]float32) {
	x, y, z := v[0], v[1], v[2]
	d := x + y + z
	if d != 0 {
		d = 1 / d
	}
	v[0], v[1], v[2] = x*d, y*d, y
}

func xyYToXYZ(v *[3]float32) {
	x, y, yy := v[0], v[1], v[2]
	var d float32
	if y != 0 {
		d = 1 / y
	}
	v[0], v[1], v[2] = yy*x*d, yy, yy*(1-x-y)*d
}

func xyzToUV(x, y, z float32) (float32, float32) {
	d := x + 15*y + 3*z
	if d != 0 {
		d = 1 / d
	}
	return 4 * x * d, 9 * y * d
}

func xyzToUvY(v *[3]float32) {
	u, vv := xyzToUV(v[0], v[1], v[2])
	v[0], v[1], v[2] = u, vv, v[1]
}

func uvYToXYZ(v *[3]float32) {
	u, vv, y := v[0], v[1], v[2]
	var d float32
	if vv != 0 {
		d = 1 / vv
	}
	v[0], v[1], v[2] = 9.0/4*y*u*d, y, 3.0/4*y*(4-u-6.666666666666667*vv)*d
}

// D65 white point in u'v'.
const (
	whiteU = 0.19783001
	whiteV = 0.46831999
)

func xyzToLUV(v *[3]float32) {
	y := v[1]
	u, vv := xyzToUV(v[0], v[1], v[2])
	var l float32
	if y <= 0.008856451679 {
		l = 9.0329629629629608 * y
	} else {
		l = 1.16*float32(math.Cbrt(float64(y))) - 0.16
	}
	v[0], v[1], v[2] = l, 13*l*(u-whiteU), 13*l*(vv-whiteV)
}

func luvToXYZ(v *[3]float32) {
	l, us, vs := v[0], v[1], v[2]
	var d float32
	if l != 0 {
		d = 0.076923076923076927 / l
	}
	u := us*d + whiteU
	vv := vs*d + whiteV
	var y float32
	if l <= 0.08 {
		y = 0.11070564598794539 * l
	} else {
		t := (l + 0.16) * 0.86206896551724144
		y = t * t * t
	}
	var dd float32
	if vv != 0 {
		dd = 0.25 / vv
	}
	v[0], v[1], v[2] = 9*y*u*dd, y, y*(12-3*u-20*vv)*dd
}
