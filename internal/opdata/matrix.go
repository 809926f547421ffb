package opdata

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix is an affine 4×4 transform: out = M·in + Offset.
//
// Parameters are expressed in the normalized domain; the kernel divides the
// input by the input depth maximum and scales the result by the output
// depth maximum.
type Matrix struct {
	base
	M      f64.Mat4 // row-major
	Offset f64.Vec4
}

// Identity4 is the 4×4 identity matrix.
var Identity4 = f64.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// NewMatrix returns an identity matrix op with float depths.
func NewMatrix() *Matrix {
	return &Matrix{base: newBase(), M: Identity4}
}

// NewMatrixFrom returns a matrix op with the given coefficients.
func NewMatrixFrom(m f64.Mat4, offset f64.Vec4) *Matrix {
	return &Matrix{base: newBase(), M: m, Offset: offset}
}

// NewDiagonalMatrix returns a scale-only matrix op.
func NewDiagonalMatrix(scale f64.Vec4) *Matrix {
	m := NewMatrix()
	for i := 0; i < 4; i++ {
		m.M[i*4+i] = scale[i]
	}
	return m
}

func (m *Matrix) Type() Type { return TypeMatrix }

// At returns element (row, col).
func (m *Matrix) At(row, col int) float64 { return m.M[row*4+col] }

func (m *Matrix) Validate() error {
	for _, v := range m.M {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationErrorf("matrix: non-finite coefficient")
		}
	}
	for _, v := range m.Offset {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationErrorf("matrix: non-finite offset")
		}
	}
	return nil
}

// IsDiagonal reports whether every off-diagonal element is zero.
func (m *Matrix) IsDiagonal() bool {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if r != c && !EqualScaled(m.M[r*4+c], 0) {
				return false
			}
		}
	}
	return true
}

// HasOffset reports whether any offset component is non-zero.
func (m *Matrix) HasOffset() bool {
	for _, v := range m.Offset {
		if !EqualScaled(v, 0) {
			return true
		}
	}
	return false
}

// HasAlphaOnlyChange reports whether the alpha row differs from identity.
func (m *Matrix) HasAlphaOnlyChange() bool {
	return !EqualScaled(m.M[15], 1) || !EqualScaled(m.Offset[3], 0)
}

func (m *Matrix) IsIdentity() bool {
	for i, v := range m.M {
		if !EqualScaled(v, Identity4[i]) {
			return false
		}
	}
	return !m.HasOffset()
}

func (m *Matrix) IsNoOp() bool {
	return m.inDepth == m.outDepth && m.IsIdentity()
}

func (m *Matrix) HasChannelCrosstalk() bool {
	return !m.IsDiagonal()
}

// IsInverse reports whether other∘m is the identity within a Frobenius
// distance of 1e-6 and the depths mirror each other.
func (m *Matrix) IsInverse(other Data) bool {
	o, ok := other.(*Matrix)
	if !ok || !m.mirroredDepths(o) {
		return false
	}
	p := MulMat4(o.M, m.M)
	off := MulMat4Vec4(o.M, m.Offset)
	var frob float64
	for i := 0; i < 16; i++ {
		d := p[i] - Identity4[i]
		frob += d * d
	}
	for i := 0; i < 4; i++ {
		d := off[i] + o.Offset[i]
		frob += d * d
	}
	return math.Sqrt(frob) < 1e-6
}

func (m *Matrix) Inverse() (Data, error) {
	inv, ok := InvertMat4(m.M)
	if !ok {
		return nil, validationErrorf("matrix: singular matrix has no inverse")
	}
	off := MulMat4Vec4(inv, m.Offset)
	for i := range off {
		off[i] = -off[i]
	}
	r := NewMatrixFrom(inv, off)
	r.inDepth, r.outDepth = m.outDepth, m.inDepth
	return r, nil
}

// IdentityReplacement turns an identity matrix between two different
// depths into a pure bit-depth Range.
func (m *Matrix) IdentityReplacement() Data {
	if m.inDepth != m.outDepth && m.IsIdentity() {
		return NewBitDepthRange(m.inDepth, m.outDepth)
	}
	return nil
}

func (m *Matrix) Clone() Data {
	c := *m
	c.cacheID = ""
	return &c
}

func (m *Matrix) Equals(other Data) bool {
	o, ok := other.(*Matrix)
	if !ok || !m.sameDepths(o) {
		return false
	}
	for i := range m.M {
		if !EqualScaled(m.M[i], o.M[i]) {
			return false
		}
	}
	for i := range m.Offset {
		if !EqualScaled(m.Offset[i], o.Offset[i]) {
			return false
		}
	}
	return true
}

func (m *Matrix) Finalize() error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.cacheID = newIDWriter(TypeMatrix, m.inDepth, m.outDepth).
		floats("m", m.M[:]...).
		floats("o", m.Offset[:]...).
		String()
	return nil
}

// Compose returns the matrix computing next∘m. Depths must chain.
func (m *Matrix) Compose(next *Matrix) *Matrix {
	r := NewMatrixFrom(MulMat4(next.M, m.M), MulMat4Vec4(next.M, m.Offset))
	for i := range r.Offset {
		r.Offset[i] += next.Offset[i]
	}
	r.inDepth, r.outDepth = m.inDepth, next.outDepth
	return r
}

// MulMat4 returns a·b.
func MulMat4(a, b f64.Mat4) f64.Mat4 {
	var r f64.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[i*4+k] * b[k*4+j]
			}
			r[i*4+j] = s
		}
	}
	return r
}

// MulMat4Vec4 returns a·v.
func MulMat4Vec4(a f64.Mat4, v f64.Vec4) f64.Vec4 {
	var r f64.Vec4
	for i := 0; i < 4; i++ {
		r[i] = a[i*4]*v[0] + a[i*4+1]*v[1] + a[i*4+2]*v[2] + a[i*4+3]*v[3]
	}
	return r
}

// InvertMat4 inverts a by Gauss-Jordan elimination with partial pivoting.
// The second result is false when a is singular.
func InvertMat4(a f64.Mat4) (f64.Mat4, bool) {
	var w [4][8]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			w[r][c] = a[r*4+c]
		}
		w[r][4+r] = 1
	}
	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(w[r][col]) > math.Abs(w[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(w[pivot][col]) < 1e-12 {
			return f64.Mat4{}, false
		}
		w[col], w[pivot] = w[pivot], w[col]
		p := w[col][col]
		for c := 0; c < 8; c++ {
			w[col][c] /= p
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := w[r][col]
			if f == 0 {
				continue
			}
			for c := 0; c < 8; c++ {
				w[r][c] -= f * w[col][c]
			}
		}
	}
	var inv f64.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			inv[r*4+c] = w[r][4+c]
		}
	}
	return inv, true
}
