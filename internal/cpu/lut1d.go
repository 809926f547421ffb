package cpu

import (
	"github.com/ajroetker/go-highway/hwy"

	"github.com/gogpu/colorio/internal/opdata"
)

// lut1DLookup evaluates one channel of a 1D table.
type lut1DLookup interface {
	lookup(c int, v float32) float32
}

func newLut1DRenderer(d *opdata.Lut1D) (Renderer, error) {
	planar := splitChannels(d.Values)
	var l lut1DLookup
	switch {
	case d.Inverted:
		l = newLut1DInverse(d, planar)
	case d.HalfDomain:
		l = &lut1DHalf{lut: planar}
	default:
		t := lut1DTable{lut: planar, maxIdx: float32(d.Length() - 1)}
		switch d.EffectiveInterp() {
		case opdata.InterpNearest:
			l = &lut1DNearest{t}
		case opdata.InterpCubic:
			l = &lut1DCubic{t}
		default:
			l = &lut1DLinear{t}
		}
	}
	if d.HueAdjust == opdata.HueAdjustDW3 {
		return &lut1DHueRenderer{l}, nil
	}
	return &lut1DRenderer{l}, nil
}

// splitChannels copies interleaved RGB entries into one slice per channel.
func splitChannels(values []float32) [3][]float32 {
	n := len(values) / 3
	var out [3][]float32
	for c := 0; c < 3; c++ {
		out[c] = make([]float32, n)
		for i := 0; i < n; i++ {
			out[c][i] = values[i*3+c]
		}
	}
	return out
}

type lut1DRenderer struct{ l lut1DLookup }

func (r *lut1DRenderer) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		out[i] = r.l.lookup(0, in[i])
		out[i+1] = r.l.lookup(1, in[i+1])
		out[i+2] = r.l.lookup(2, in[i+2])
		out[i+3] = in[i+3]
	}
}

// lut1DHueRenderer applies the table to the largest and smallest channel
// and rebuilds the middle one from the input hue ratio.
type lut1DHueRenderer struct{ l lut1DLookup }

func (r *lut1DHueRenderer) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		rgb := [3]float32{in[i], in[i+1], in[i+2]}
		hi, mid, lo := orderChannels(rgb)
		chroma := rgb[hi] - rgb[lo]
		var ratio float32
		if chroma > 0 {
			ratio = (rgb[mid] - rgb[lo]) / chroma
		}
		var res [3]float32
		res[hi] = r.l.lookup(hi, rgb[hi])
		res[lo] = r.l.lookup(lo, rgb[lo])
		res[mid] = res[lo] + ratio*(res[hi]-res[lo])
		out[i], out[i+1], out[i+2] = res[0], res[1], res[2]
		out[i+3] = in[i+3]
	}
}

// orderChannels returns the indices of the max, middle and min components.
func orderChannels(v [3]float32) (hi, mid, lo int) {
	hi, mid, lo = 0, 1, 2
	if v[hi] < v[mid] {
		hi, mid = mid, hi
	}
	if v[mid] < v[lo] {
		mid, lo = lo, mid
	}
	if v[hi] < v[mid] {
		hi, mid = mid, hi
	}
	return hi, mid, lo
}

type lut1DTable struct {
	lut    [3][]float32
	maxIdx float32
}

type lut1DLinear struct{ lut1DTable }

func (t *lut1DLinear) lookup(c int, v float32) float32 {
	lut := t.lut[c]
	x := v * t.maxIdx
	if !(x > 0) {
		return lut[0]
	}
	if x >= t.maxIdx {
		return lut[len(lut)-1]
	}
	i := int(x)
	f := x - float32(i)
	return lut[i] + f*(lut[i+1]-lut[i])
}

type lut1DNearest struct{ lut1DTable }

func (t *lut1DNearest) lookup(c int, v float32) float32 {
	lut := t.lut[c]
	x := v*t.maxIdx + 0.5
	if !(x > 0) {
		return lut[0]
	}
	if x >= t.maxIdx {
		return lut[len(lut)-1]
	}
	return lut[int(x)]
}

// lut1DCubic interpolates with a Catmull-Rom spline.
type lut1DCubic struct{ lut1DTable }

func (t *lut1DCubic) lookup(c int, v float32) float32 {
	lut := t.lut[c]
	x := v * t.maxIdx
	if !(x > 0) {
		return lut[0]
	}
	last := len(lut) - 1
	if x >= t.maxIdx {
		return lut[last]
	}
	i := int(x)
	f := x - float32(i)
	p0 := lut[max(i-1, 0)]
	p1 := lut[i]
	p2 := lut[i+1]
	p3 := lut[min(i+2, last)]
	return p1 + 0.5*f*(p2-p0+f*(2*p0-5*p1+4*p2-p3+f*(3*(p1-p2)+p3-p0)))
}

// lut1DHalf indexes the table by the float16 bit pattern of the input.
// NaN reads entry 0.
type lut1DHalf struct {
	lut [3][]float32
}

func (t *lut1DHalf) lookup(c int, v float32) float32 {
	if v != v {
		return t.lut[c][0]
	}
	return t.lut[c][uint16(hwy.Float32ToFloat16(v))]
}

// lut1DInverse evaluates the inverse of a monotonic table by binary search
// and linear interpolation between the bracketing entries.
type lut1DInverse struct {
	// xs is the ascending domain, ys the table values (negated when the
	// channel decreases so that they ascend too).
	xs  [3][]float32
	ys  [3][]float32
	neg [3]bool
}

func newLut1DInverse(d *opdata.Lut1D, planar [3][]float32) *lut1DInverse {
	var order []int
	if d.HalfDomain {
		// Negative halves from -65504 up to the smallest negative, then
		// zero and the positive finite halves.
		for h := 0xFBFF; h > 0x8000; h-- {
			order = append(order, h)
		}
		for h := 0; h <= 0x7BFF; h++ {
			order = append(order, h)
		}
	} else {
		order = make([]int, d.Length())
		for i := range order {
			order[i] = i
		}
	}
	inv := &lut1DInverse{}
	for c := 0; c < 3; c++ {
		xs := make([]float32, len(order))
		ys := make([]float32, len(order))
		for k, idx := range order {
			xs[k] = d.DomainValue(idx)
			ys[k] = planar[c][idx]
		}
		if ys[len(ys)-1] < ys[0] {
			inv.neg[c] = true
			for k := range ys {
				ys[k] = -ys[k]
			}
		}
		inv.xs[c], inv.ys[c] = xs, ys
	}
	return inv
}

func (t *lut1DInverse) lookup(c int, v float32) float32 {
	xs, ys := t.xs[c], t.ys[c]
	if t.neg[c] {
		v = -v
	}
	last := len(ys) - 1
	if !(v > ys[0]) {
		return xs[0]
	}
	if v >= ys[last] {
		return xs[last]
	}
	// Find the last entry not above v.
	lo, hi := 0, last
	for hi-lo > 1 {
		m := int(uint(lo+hi) >> 1)
		if ys[m] <= v {
			lo = m
		} else {
			hi = m
		}
	}
	dy := ys[hi] - ys[lo]
	if dy <= 0 {
		return xs[lo]
	}
	return xs[lo] + (v-ys[lo])/dy*(xs[hi]-xs[lo])
}
