package cpu

import "github.com/gogpu/colorio/internal/opdata"

// matrixCoefs holds the depth-scaled coefficients of a Matrix op.
type matrixCoefs struct {
	m   [16]float32
	off [4]float32
}

func newMatrixRenderer(d *opdata.Matrix) Renderer {
	inMax, outMax := d.InputBitDepth().MaxValue(), d.OutputBitDepth().MaxValue()
	var c matrixCoefs
	for i, v := range d.M {
		c.m[i] = float32(v * outMax / inMax)
	}
	for i, v := range d.Offset {
		c.off[i] = float32(v * outMax)
	}
	switch {
	case d.IsDiagonal() && d.HasOffset():
		return &diagonalOffsetRenderer{c}
	case d.IsDiagonal():
		return &diagonalRenderer{c}
	case d.HasOffset():
		return &matrixOffsetRenderer{c}
	default:
		return &matrixRenderer{c}
	}
}

type diagonalRenderer struct{ matrixCoefs }

func (r *diagonalRenderer) Apply(in, out []float32, n int) {
	m := &r.m
	for i := 0; i < 4*n; i += 4 {
		out[i] = in[i] * m[0]
		out[i+1] = in[i+1] * m[5]
		out[i+2] = in[i+2] * m[10]
		out[i+3] = in[i+3] * m[15]
	}
}

type diagonalOffsetRenderer struct{ matrixCoefs }

func (r *diagonalOffsetRenderer) Apply(in, out []float32, n int) {
	m, o := &r.m, &r.off
	for i := 0; i < 4*n; i += 4 {
		out[i] = in[i]*m[0] + o[0]
		out[i+1] = in[i+1]*m[5] + o[1]
		out[i+2] = in[i+2]*m[10] + o[2]
		out[i+3] = in[i+3]*m[15] + o[3]
	}
}

type matrixRenderer struct{ matrixCoefs }

func (r *matrixRenderer) Apply(in, out []float32, n int) {
	m := &r.m
	for i := 0; i < 4*n; i += 4 {
		cr, cg, cb, ca := in[i], in[i+1], in[i+2], in[i+3]
		out[i] = cr*m[0] + cg*m[1] + cb*m[2] + ca*m[3]
		out[i+1] = cr*m[4] + cg*m[5] + cb*m[6] + ca*m[7]
		out[i+2] = cr*m[8] + cg*m[9] + cb*m[10] + ca*m[11]
		out[i+3] = cr*m[12] + cg*m[13] + cb*m[14] + ca*m[15]
	}
}

type matrixOffsetRenderer struct{ matrixCoefs }

func (r *matrixOffsetRenderer) Apply(in, out []float32, n int) {
	m, o := &r.m, &r.off
	for i := 0; i < 4*n; i += 4 {
		cr, cg, cb, ca := in[i], in[i+1], in[i+2], in[i+3]
		out[i] = cr*m[0] + cg*m[1] + cb*m[2] + ca*m[3] + o[0]
		out[i+1] = cr*m[4] + cg*m[5] + cb*m[6] + ca*m[7] + o[1]
		out[i+2] = cr*m[8] + cg*m[9] + cb*m[10] + ca*m[11] + o[2]
		out[i+3] = cr*m[12] + cg*m[13] + cb*m[14] + ca*m[15] + o[3]
	}
}
