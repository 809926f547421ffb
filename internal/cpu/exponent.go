package cpu

import "github.com/gogpu/colorio/internal/opdata"

func newExponentRenderer(d *opdata.Exponent) Renderer {
	var g [4]float32
	for c, v := range d.Gamma {
		g[c] = float32(v)
	}
	switch d.Negative {
	case opdata.NegativeMirror:
		return &powerMirror{g}
	case opdata.NegativePassThru:
		return &powerPassThru{g}
	default:
		return &powerClamp{g}
	}
}
