package cpu

import (
	"math"

	"github.com/gogpu/colorio/internal/opdata"
)

type logChannel struct {
	logSlope, logOffset float32
	linSlope, linOffset float32

	// camera segment
	linBreak, logBreak        float32
	linearSlope, linearOffset float32
}

type logCoefs struct {
	ch        [3]logChannel
	base      float32
	invLnBase float32
}

func newLogRenderer(d *opdata.Log) Renderer {
	c := logCoefs{base: float32(d.Base), invLnBase: float32(1 / math.Log(d.Base))}
	var cam [3]opdata.CameraParams
	if d.Camera {
		cam = d.CameraParams()
	}
	for i, p := range d.Params {
		c.ch[i] = logChannel{
			logSlope:     float32(p.LogSlope),
			logOffset:    float32(p.LogOffset),
			linSlope:     float32(p.LinSlope),
			linOffset:    float32(p.LinOffset),
			linBreak:     float32(cam[i].LinSideBreak),
			logBreak:     float32(cam[i].LogSideBreak),
			linearSlope:  float32(cam[i].LinearSlope),
			linearOffset: float32(cam[i].LinearOffset),
		}
	}
	switch {
	case d.Camera && d.Direction == opdata.Forward:
		return &cameraLinToLog{c}
	case d.Camera:
		return &cameraLogToLin{c}
	case d.Direction == opdata.Forward:
		return &linToLog{c}
	default:
		return &logToLin{c}
	}
}

func (c *logCoefs) toLog(ch *logChannel, v float32) float32 {
	x := max32(minFloat, v*ch.linSlope+ch.linOffset)
	return ch.logSlope*float32(math.Log(float64(x)))*c.invLnBase + ch.logOffset
}

func (c *logCoefs) toLin(ch *logChannel, v float32) float32 {
	return (pow32(c.base, (v-ch.logOffset)/ch.logSlope) - ch.linOffset) / ch.linSlope
}

type linToLog struct{ logCoefs }

func (r *linToLog) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		out[i] = r.toLog(&r.ch[0], in[i])
		out[i+1] = r.toLog(&r.ch[1], in[i+1])
		out[i+2] = r.toLog(&r.ch[2], in[i+2])
		out[i+3] = in[i+3]
	}
}

type logToLin struct{ logCoefs }

func (r *logToLin) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		out[i] = r.toLin(&r.ch[0], in[i])
		out[i+1] = r.toLin(&r.ch[1], in[i+1])
		out[i+2] = r.toLin(&r.ch[2], in[i+2])
		out[i+3] = in[i+3]
	}
}

type cameraLinToLog struct{ logCoefs }

func (r *cameraLinToLog) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			ch := &r.ch[c]
			v := in[i+c]
			if v <= ch.linBreak {
				out[i+c] = v*ch.linearSlope + ch.linearOffset
			} else {
				out[i+c] = r.toLog(ch, v)
			}
		}
		out[i+3] = in[i+3]
	}
}

type cameraLogToLin struct{ logCoefs }

func (r *cameraLogToLin) Apply(in, out []float32, n int) {
	for i := 0; i < 4*n; i += 4 {
		for c := 0; c < 3; c++ {
			ch := &r.ch[c]
			v := in[i+c]
			if v <= ch.logBreak {
				out[i+c] = (v - ch.linearOffset) / ch.linearSlope
			} else {
				out[i+c] = r.toLin(ch, v)
			}
		}
		out[i+3] = in[i+3]
	}
}
