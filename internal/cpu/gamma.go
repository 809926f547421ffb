package cpu

import "github.com/gogpu/colorio/internal/opdata"

func newGammaRenderer(d *opdata.Gamma) Renderer {
	if d.Style.IsMoncurve() {
		var r moncurveCoefs
		for c := 0; c < 4; c++ {
			p := d.Moncurve(c)
			r.ch[c] = moncurveChannel{
				identity:  p.Identity,
				gamma:     float32(p.Gamma),
				invGamma:  float32(1 / p.Gamma),
				offset:    float32(p.Offset),
				brk:       float32(p.Break),
				linBreak:  float32(p.LinearBreak),
				slope:     float32(p.Slope),
				invSlope:  float32(1 / p.Slope),
				scale:     float32(p.Scale),
				shift:     float32(p.Shift),
				onePlusOf: float32(1 + p.Offset),
			}
		}
		switch d.Style {
		case opdata.GammaMoncurveFwd:
			return &moncurveFwd{r}
		case opdata.GammaMoncurveRev:
			return &moncurveRev{r}
		case opdata.GammaMoncurveMirrorFwd:
			return &moncurveMirrorFwd{r}
		default:
			return &moncurveMirrorRev{r}
		}
	}

	var g [4]float32
	for c := 0; c < 4; c++ {
		g[c] = float32(d.Gamma[c])
		if d.Style.IsReverse() {
			g[c] = float32(1 / d.Gamma[c])
		}
	}
	switch d.Style {
	case opdata.GammaBasicMirrorFwd, opdata.GammaBasicMirrorRev:
		return &powerMirror{g}
	case opdata.GammaBasicPassThruFwd, opdata.GammaBasicPassThruRev:
		return &powerPassThru{g}
	default:
		return &powerClamp{g}
	}
}

// powerClamp computes max(0, v)^g per channel. The Exponent op shares the
// power kernels.
type powerClamp struct{ g [4]float32 }

func (r *powerClamp) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			out[i+c] = pow32(max32(0, in[i+c]), r.g[c])
		}
	}
}

type powerMirror struct{ g [4]float32 }

func (r *powerMirror) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			v := in[i+c]
			out[i+c] = sign32(v) * pow32(abs32(v), r.g[c])
		}
	}
}

type powerPassThru struct{ g [4]float32 }

func (r *powerPassThru) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			v := in[i+c]
			if v > 0 {
				v = pow32(v, r.g[c])
			}
			out[i+c] = v
		}
	}
}

type moncurveChannel struct {
	identity        bool
	gamma, invGamma float32
	offset          float32
	brk, linBreak   float32
	slope, invSlope float32
	scale, shift    float32
	onePlusOf       float32
}

func (ch *moncurveChannel) fwd(v float32) float32 {
	if ch.identity {
		return v
	}
	if v > ch.brk {
		return pow32(v*ch.scale+ch.shift, ch.gamma)
	}
	return v * ch.slope
}

func (ch *moncurveChannel) rev(v float32) float32 {
	if ch.identity {
		return v
	}
	if v > ch.linBreak {
		return pow32(v, ch.invGamma)*ch.onePlusOf - ch.offset
	}
	return v * ch.invSlope
}

type moncurveCoefs struct{ ch [4]moncurveChannel }

type moncurveFwd struct{ moncurveCoefs }

func (r *moncurveFwd) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			out[i+c] = r.ch[c].fwd(in[i+c])
		}
	}
}

type moncurveRev struct{ moncurveCoefs }

func (r *moncurveRev) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			out[i+c] = r.ch[c].rev(in[i+c])
		}
	}
}

type moncurveMirrorFwd struct{ moncurveCoefs }

func (r *moncurveMirrorFwd) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			v := in[i+c]
			out[i+c] = sign32(v) * r.ch[c].fwd(abs32(v))
		}
	}
}

type moncurveMirrorRev struct{ moncurveCoefs }

func (r *moncurveMirrorRev) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 4; c++ {
			v := in[i+c]
			out[i+c] = sign32(v) * r.ch[c].rev(abs32(v))
		}
	}
}
