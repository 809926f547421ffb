package cpu

import "github.com/gogpu/colorio/internal/opdata"

type cdlCoefs struct {
	slope, offset, power [3]float32
	invSlope, invPower   [3]float32
	sat, invSat          float32
}

func newCDLRenderer(d *opdata.CDL) Renderer {
	var c cdlCoefs
	for i := 0; i < 3; i++ {
		c.slope[i] = float32(d.Slope[i])
		c.offset[i] = float32(d.Offset[i])
		c.power[i] = float32(d.Power[i])
		if d.Slope[i] != 0 {
			c.invSlope[i] = float32(1 / d.Slope[i])
		}
		c.invPower[i] = float32(1 / d.Power[i])
	}
	c.sat = float32(d.Saturation)
	if d.Saturation != 0 {
		c.invSat = float32(1 / d.Saturation)
	}
	switch d.Style {
	case opdata.CDLV12Rev:
		return &cdlClampRev{c}
	case opdata.CDLNoClampFwd:
		return &cdlNoClampFwd{c}
	case opdata.CDLNoClampRev:
		return &cdlNoClampRev{c}
	default:
		return &cdlClampFwd{c}
	}
}

func luma(r, g, b float32) float32 {
	return r*opdata.CDLLumaR + g*opdata.CDLLumaG + b*opdata.CDLLumaB
}

type cdlClampFwd struct{ cdlCoefs }

func (r *cdlClampFwd) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		var v [3]float32
		for c := 0; c < 3; c++ {
			v[c] = pow32(clamp32(in[i+c]*r.slope[c]+r.offset[c], 0, 1), r.power[c])
		}
		y := luma(v[0], v[1], v[2])
		for c := 0; c < 3; c++ {
			out[i+c] = clamp32(y+r.sat*(v[c]-y), 0, 1)
		}
		out[i+3] = in[i+3]
	}
}

type cdlClampRev struct{ cdlCoefs }

func (r *cdlClampRev) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		var v [3]float32
		for c := 0; c < 3; c++ {
			v[c] = clamp32(in[i+c], 0, 1)
		}
		y := luma(v[0], v[1], v[2])
		for c := 0; c < 3; c++ {
			s := clamp32(y+r.invSat*(v[c]-y), 0, 1)
			out[i+c] = clamp32((pow32(s, r.invPower[c])-r.offset[c])*r.invSlope[c], 0, 1)
		}
		out[i+3] = in[i+3]
	}
}

type cdlNoClampFwd struct{ cdlCoefs }

func (r *cdlNoClampFwd) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		var v [3]float32
		for c := 0; c < 3; c++ {
			x := in[i+c]*r.slope[c] + r.offset[c]
			if x > 0 {
				x = pow32(x, r.power[c])
			}
			v[c] = x
		}
		y := luma(v[0], v[1], v[2])
		for c := 0; c < 3; c++ {
			out[i+c] = y + r.sat*(v[c]-y)
		}
		out[i+3] = in[i+3]
	}
}

type cdlNoClampRev struct{ cdlCoefs }

func (r *cdlNoClampRev) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		cr, cg, cb := in[i], in[i+1], in[i+2]
		y := luma(cr, cg, cb)
		v := [3]float32{cr, cg, cb}
		for c := 0; c < 3; c++ {
			x := y + r.invSat*(v[c]-y)
			if x > 0 {
				x = pow32(x, r.invPower[c])
			}
			out[i+c] = (x - r.offset[c]) * r.invSlope[c]
		}
		out[i+3] = in[i+3]
	}
}
