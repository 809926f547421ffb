// Package cpu holds the CPU kernels of the color operators.
//
// Every kernel processes interleaved RGBA float32 pixels (stride 4). The
// input and output slices may be the same buffer: a kernel reads the four
// components of a pixel before writing any of them. Kernels never allocate
// while applying; derived tables are built by NewRenderer.
package cpu

import (
	"fmt"
	"math"

	"github.com/gogpu/colorio/internal/opdata"
)

// Renderer applies one finalized op to n pixels.
type Renderer interface {
	Apply(in, out []float32, n int)
}

// NewRenderer selects the kernel specialized for the parameters of d.
func NewRenderer(d opdata.Data) (Renderer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	switch v := d.(type) {
	case *opdata.Matrix:
		return newMatrixRenderer(v), nil
	case *opdata.Range:
		return newRangeRenderer(v), nil
	case *opdata.Lut1D:
		return newLut1DRenderer(v)
	case *opdata.Lut3D:
		return newLut3DRenderer(v), nil
	case *opdata.Log:
		return newLogRenderer(v), nil
	case *opdata.Gamma:
		return newGammaRenderer(v), nil
	case *opdata.CDL:
		return newCDLRenderer(v), nil
	case *opdata.FixedFunction:
		return newFixedFunctionRenderer(v)
	case *opdata.Exponent:
		return newExponentRenderer(v), nil
	case *opdata.ExposureContrast:
		return newExposureContrastRenderer(v), nil
	case *opdata.Allocation:
		return copyRenderer{}, nil
	}
	return nil, fmt.Errorf("cpu: no renderer for %s", d.Type())
}

// ApplyPixel runs r on a single RGBA value.
func ApplyPixel(r Renderer, px *[4]float32) {
	r.Apply(px[:], px[:], 1)
}

// copyRenderer forwards pixels unchanged.
type copyRenderer struct{}

func (copyRenderer) Apply(in, out []float32, n int) {
	if n > 0 && &in[0] != &out[0] {
		copy(out[:4*n], in[:4*n])
	}
}

// minFloat is the smallest normal float32, used to keep log arguments
// positive.
const minFloat = 1.17549435e-38

func pow32(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

func clamp32(v, lo, hi float32) float32 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}

func sign32(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
