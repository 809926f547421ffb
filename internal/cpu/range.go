package cpu

import "github.com/gogpu/colorio/internal/opdata"

// rangeCoefs are the numerics shared by the Range kernels.
type rangeCoefs struct {
	scale, offset float32
	lo, hi        float32
	alphaScale    float32
}

func newRangeRenderer(d *opdata.Range) Renderer {
	p := d.Params()
	c := rangeCoefs{
		scale:      float32(p.Scale),
		offset:     float32(p.Offset),
		lo:         float32(p.LowBound),
		hi:         float32(p.HighBound),
		alphaScale: float32(p.AlphaScale),
	}
	scales := p.Scale != 1 || p.Offset != 0 || p.AlphaScale != 1
	minClip, maxClip := !opdata.IsEmpty(p.LowBound), !opdata.IsEmpty(p.HighBound)
	switch {
	case scales && minClip && maxClip:
		return &rangeScaleMinMax{c}
	case scales && minClip:
		return &rangeScaleMin{c}
	case scales && maxClip:
		return &rangeScaleMax{c}
	case scales:
		return &rangeScale{c}
	case minClip && maxClip:
		return &rangeMinMax{c}
	case minClip:
		return &rangeMin{c}
	case maxClip:
		return &rangeMax{c}
	default:
		return copyRenderer{}
	}
}

// NaN fails every comparison, so the "!(v >= lo)" form sends it to the
// lower bound, and "!(v <= hi)" sends it to the upper bound when only the
// upper side clamps.

type rangeScaleMinMax struct{ rangeCoefs }

func (r *rangeScaleMinMax) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			out[i+c] = clamp32(in[i+c]*r.scale+r.offset, r.lo, r.hi)
		}
		out[i+3] = in[i+3] * r.alphaScale
	}
}

type rangeScaleMin struct{ rangeCoefs }

func (r *rangeScaleMin) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			v := in[i+c]*r.scale + r.offset
			if !(v >= r.lo) {
				v = r.lo
			}
			out[i+c] = v
		}
		out[i+3] = in[i+3] * r.alphaScale
	}
}

type rangeScaleMax struct{ rangeCoefs }

func (r *rangeScaleMax) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			v := in[i+c]*r.scale + r.offset
			if !(v <= r.hi) {
				v = r.hi
			}
			out[i+c] = v
		}
		out[i+3] = in[i+3] * r.alphaScale
	}
}

type rangeScale struct{ rangeCoefs }

func (r *rangeScale) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		out[i] = in[i]*r.scale + r.offset
		out[i+1] = in[i+1]*r.scale + r.offset
		out[i+2] = in[i+2]*r.scale + r.offset
		out[i+3] = in[i+3] * r.alphaScale
	}
}

type rangeMinMax struct{ rangeCoefs }

func (r *rangeMinMax) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		out[i] = clamp32(in[i], r.lo, r.hi)
		out[i+1] = clamp32(in[i+1], r.lo, r.hi)
		out[i+2] = clamp32(in[i+2], r.lo, r.hi)
		out[i+3] = in[i+3]
	}
}

type rangeMin struct{ rangeCoefs }

func (r *rangeMin) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			v := in[i+c]
			if !(v >= r.lo) {
				v = r.lo
			}
			out[i+c] = v
		}
		out[i+3] = in[i+3]
	}
}

type rangeMax struct{ rangeCoefs }

func (r *rangeMax) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			v := in[i+c]
			if !(v <= r.hi) {
				v = r.hi
			}
			out[i+c] = v
		}
		out[i+3] = in[i+3]
	}
}
