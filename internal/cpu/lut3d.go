package cpu

import (
	"math"

	"github.com/gogpu/colorio/internal/opdata"
)

// lut3DGrid is a cube of RGB entries, blue varying fastest.
type lut3DGrid struct {
	lut   []float32
	g     int
	scale float32
}

func newLut3DGrid(values []float32, g int) lut3DGrid {
	return lut3DGrid{lut: append([]float32(nil), values...), g: g, scale: float32(g - 1)}
}

// cell locates v in the grid: the lower index and the fraction.
func (t *lut3DGrid) cell(v float32) (int, float32) {
	x := v * t.scale
	if !(x > 0) {
		return 0, 0
	}
	if x >= t.scale {
		return t.g - 2, 1
	}
	i := int(x)
	return i, x - float32(i)
}

func (t *lut3DGrid) tetrahedral(r, g, b float32) (float32, float32, float32) {
	ri, fr := t.cell(r)
	gi, fg := t.cell(g)
	bi, fb := t.cell(b)

	bs := 3
	gs := t.g * bs
	rs := t.g * gs
	base := ri*rs + gi*gs + bi*bs
	c000 := base
	c001 := base + bs
	c010 := base + gs
	c011 := base + gs + bs
	c100 := base + rs
	c101 := base + rs + bs
	c110 := base + rs + gs
	c111 := base + rs + gs + bs

	var w0, w1, w2, w3 float32
	var v1, v2 int
	switch {
	case fr > fg && fg > fb:
		w0, w1, w2, w3 = 1-fr, fr-fg, fg-fb, fb
		v1, v2 = c100, c110
	case fr > fg && fr > fb:
		w0, w1, w2, w3 = 1-fr, fr-fb, fb-fg, fg
		v1, v2 = c100, c101
	case fr > fg:
		w0, w1, w2, w3 = 1-fb, fb-fr, fr-fg, fg
		v1, v2 = c001, c101
	case fr > fb:
		w0, w1, w2, w3 = 1-fg, fg-fr, fr-fb, fb
		v1, v2 = c010, c110
	case fg > fb:
		w0, w1, w2, w3 = 1-fg, fg-fb, fb-fr, fr
		v1, v2 = c010, c011
	default:
		w0, w1, w2, w3 = 1-fb, fb-fg, fg-fr, fr
		v1, v2 = c001, c011
	}
	l := t.lut
	return w0*l[c000] + w1*l[v1] + w2*l[v2] + w3*l[c111],
		w0*l[c000+1] + w1*l[v1+1] + w2*l[v2+1] + w3*l[c111+1],
		w0*l[c000+2] + w1*l[v1+2] + w2*l[v2+2] + w3*l[c111+2]
}

func (t *lut3DGrid) trilinear(r, g, b float32) (float32, float32, float32) {
	ri, fr := t.cell(r)
	gi, fg := t.cell(g)
	bi, fb := t.cell(b)

	bs := 3
	gs := t.g * bs
	rs := t.g * gs
	base := ri*rs + gi*gs + bi*bs
	l := t.lut
	var out [3]float32
	for c := 0; c < 3; c++ {
		p := base + c
		c00 := l[p] + fb*(l[p+bs]-l[p])
		c01 := l[p+gs] + fb*(l[p+gs+bs]-l[p+gs])
		c10 := l[p+rs] + fb*(l[p+rs+bs]-l[p+rs])
		c11 := l[p+rs+gs] + fb*(l[p+rs+gs+bs]-l[p+rs+gs])
		c0 := c00 + fg*(c01-c00)
		c1 := c10 + fg*(c11-c10)
		out[c] = c0 + fr*(c1-c0)
	}
	return out[0], out[1], out[2]
}

func (t *lut3DGrid) nearest(r, g, b float32) (float32, float32, float32) {
	idx := func(v float32) int {
		x := v*t.scale + 0.5
		if !(x > 0) {
			return 0
		}
		return min(int(x), t.g-1)
	}
	p := 3 * ((idx(r)*t.g+idx(g))*t.g + idx(b))
	return t.lut[p], t.lut[p+1], t.lut[p+2]
}

func newLut3DRenderer(d *opdata.Lut3D) Renderer {
	grid := newLut3DGrid(d.Values, d.GridSize)
	if d.Inverted {
		return &lut3DTetrahedral{invertLut3D(&grid)}
	}
	switch d.EffectiveInterp() {
	case opdata.InterpTetrahedral:
		return &lut3DTetrahedral{grid}
	case opdata.InterpNearest:
		return &lut3DNearest{grid}
	default:
		return &lut3DTrilinear{grid}
	}
}

type lut3DTetrahedral struct{ lut3DGrid }

func (r *lut3DTetrahedral) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		a := in[i+3]
		out[i], out[i+1], out[i+2] = r.tetrahedral(in[i], in[i+1], in[i+2])
		out[i+3] = a
	}
}

type lut3DTrilinear struct{ lut3DGrid }

func (r *lut3DTrilinear) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		a := in[i+3]
		out[i], out[i+1], out[i+2] = r.trilinear(in[i], in[i+1], in[i+2])
		out[i+3] = a
	}
}

type lut3DNearest struct{ lut3DGrid }

func (r *lut3DNearest) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		a := in[i+3]
		out[i], out[i+1], out[i+2] = r.nearest(in[i], in[i+1], in[i+2])
		out[i+3] = a
	}
}

// Inverse Lut3D evaluation: every node of an inverse grid of the same size
// is solved by Newton iterations on the forward tetrahedral map, then the
// inverse grid is interpolated tetrahedrally.
const (
	lut3DInverseIterations = 30
	lut3DInverseTolerance  = 1e-6
)

func invertLut3D(fwd *lut3DGrid) lut3DGrid {
	g := fwd.g
	inv := lut3DGrid{lut: make([]float32, len(fwd.lut)), g: g, scale: fwd.scale}
	step := 1 / float64(g-1)
	for ri := 0; ri < g; ri++ {
		for gi := 0; gi < g; gi++ {
			for bi := 0; bi < g; bi++ {
				target := [3]float64{float64(ri) * step, float64(gi) * step, float64(bi) * step}
				x := solveLut3D(fwd, target)
				p := 3 * ((ri*g+gi)*g + bi)
				inv.lut[p], inv.lut[p+1], inv.lut[p+2] = float32(x[0]), float32(x[1]), float32(x[2])
			}
		}
	}
	return inv
}

// solveLut3D finds x in the unit cube with fwd(x) ≈ target.
func solveLut3D(fwd *lut3DGrid, target [3]float64) [3]float64 {
	eval := func(x [3]float64) [3]float64 {
		r, g, b := fwd.tetrahedral(float32(x[0]), float32(x[1]), float32(x[2]))
		return [3]float64{float64(r), float64(g), float64(b)}
	}
	x := target
	const h = 1e-4
	for it := 0; it < lut3DInverseIterations; it++ {
		y := eval(x)
		res := [3]float64{y[0] - target[0], y[1] - target[1], y[2] - target[2]}
		if math.Abs(res[0])+math.Abs(res[1])+math.Abs(res[2]) < lut3DInverseTolerance {
			break
		}
		// Forward differences, stepping inward at the upper face.
		var jac [3][3]float64
		for k := 0; k < 3; k++ {
			xp := x
			d := h
			if xp[k]+d > 1 {
				d = -h
			}
			xp[k] += d
			yp := eval(xp)
			for row := 0; row < 3; row++ {
				jac[row][k] = (yp[row] - y[row]) / d
			}
		}
		dx, ok := solve3(jac, res)
		if !ok {
			break
		}
		for k := 0; k < 3; k++ {
			x[k] = math.Min(1, math.Max(0, x[k]-dx[k]))
		}
	}
	return x
}

// solve3 solves a·x = b by Cramer's rule.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, bool) {
	det := func(m [3][3]float64) float64 {
		return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
			m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
			m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	}
	d := det(a)
	if math.Abs(d) < 1e-12 {
		return [3]float64{}, false
	}
	var x [3]float64
	for k := 0; k < 3; k++ {
		m := a
		for row := 0; row < 3; row++ {
			m[row][k] = b[row]
		}
		x[k] = det(m) / d
	}
	return x, true
}
