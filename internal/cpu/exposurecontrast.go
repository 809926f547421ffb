package cpu

import (
	"math"

	"github.com/gogpu/colorio/internal/opdata"
)

// The exposure/contrast kernels read their dynamic properties once per
// Apply call, so a concurrent update takes effect at the next call.

func newExposureContrastRenderer(d *opdata.ExposureContrast) Renderer {
	c := ecCoefs{
		exposure: d.Exposure,
		contrast: d.Contrast,
		gamma:    d.Gamma,
		pivot:    math.Max(opdata.ECMinPivot, d.Pivot),
		logStep:  d.LogExposureStep,
	}
	switch d.Style {
	case opdata.ECVideoFwd, opdata.ECVideoRev:
		c.pivot = math.Pow(c.pivot, opdata.ECVideoOETFPower)
		c.video = true
	case opdata.ECLogFwd, opdata.ECLogRev:
		c.pivot = math.Max(0, math.Log2(c.pivot/0.18)*d.LogExposureStep+d.LogMidGray)
	}
	switch d.Style {
	case opdata.ECLinearRev, opdata.ECVideoRev:
		return &ecPowerRev{c}
	case opdata.ECLogFwd:
		return &ecLogFwd{c}
	case opdata.ECLogRev:
		return &ecLogRev{c}
	default:
		return &ecPowerFwd{c}
	}
}

type ecCoefs struct {
	exposure, contrast, gamma *opdata.DynamicProperty

	pivot   float64
	logStep float64
	video   bool
}

func (c *ecCoefs) contrastValue() float64 {
	return math.Max(opdata.ECMinContrast, c.contrast.Value()*c.gamma.Value())
}

func (c *ecCoefs) exposureGain() float64 {
	gain := math.Exp2(c.exposure.Value())
	if c.video {
		gain = math.Pow(gain, opdata.ECVideoOETFPower)
	}
	return gain
}

// ecPowerFwd computes pow(max(0, in·gain/pivot), contrast)·pivot.
type ecPowerFwd struct{ ecCoefs }

func (r *ecPowerFwd) Apply(in, out []float32, n int) {
	contrast := float32(r.contrastValue())
	pivot := float32(r.pivot)
	gain := float32(r.exposureGain() / r.pivot)
	if contrast == 1 {
		m := gain * pivot
		for i := 0; i < 4*n; i += 4 {
			out[i] = in[i] * m
			out[i+1] = in[i+1] * m
			out[i+2] = in[i+2] * m
			out[i+3] = in[i+3]
		}
		return
	}
	for i := 0; i < 4*n; i += 4 {
		out[i] = pow32(max32(0, in[i]*gain), contrast) * pivot
		out[i+1] = pow32(max32(0, in[i+1]*gain), contrast) * pivot
		out[i+2] = pow32(max32(0, in[i+2]*gain), contrast) * pivot
		out[i+3] = in[i+3]
	}
}

// ecPowerRev computes pow(max(0, in/pivot), 1/contrast)·pivot/gain.
type ecPowerRev struct{ ecCoefs }

func (r *ecPowerRev) Apply(in, out []float32, n int) {
	invContrast := float32(1 / r.contrastValue())
	invPivot := float32(1 / r.pivot)
	post := float32(r.pivot / r.exposureGain())
	if invContrast == 1 {
		m := invPivot * post
		for i := 0; i < 4*n; i += 4 {
			out[i] = in[i] * m
			out[i+1] = in[i+1] * m
			out[i+2] = in[i+2] * m
			out[i+3] = in[i+3]
		}
		return
	}
	for i := 0; i < 4*n; i += 4 {
		out[i] = pow32(max32(0, in[i]*invPivot), invContrast) * post
		out[i+1] = pow32(max32(0, in[i+1]*invPivot), invContrast) * post
		out[i+2] = pow32(max32(0, in[i+2]*invPivot), invContrast) * post
		out[i+3] = in[i+3]
	}
}

// ecLogFwd computes (in + E·step − pivot)·contrast + pivot.
type ecLogFwd struct{ ecCoefs }

func (r *ecLogFwd) Apply(in, out []float32, n int) {
	contrast := r.contrastValue()
	offset := float32((r.exposure.Value()*r.logStep-r.pivot)*contrast + r.pivot)
	c := float32(contrast)
	for i := 0; i < 4*n; i += 4 {
		out[i] = in[i]*c + offset
		out[i+1] = in[i+1]*c + offset
		out[i+2] = in[i+2]*c + offset
		out[i+3] = in[i+3]
	}
}

// ecLogRev computes (in − pivot)/contrast + pivot − E·step.
type ecLogRev struct{ ecCoefs }

func (r *ecLogRev) Apply(in, out []float32, n int) {
	inv := 1 / r.contrastValue()
	offset := float32(r.pivot - r.pivot*inv - r.exposure.Value()*r.logStep)
	c := float32(inv)
	for i := 0; i < 4*n; i += 4 {
		out[i] = in[i]*c + offset
		out[i+1] = in[i+1]*c + offset
		out[i+2] = in[i+2]*c + offset
		out[i+3] = in[i+3]
	}
}
