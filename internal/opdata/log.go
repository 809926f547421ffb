package opdata

import "math"

// LogParams are the per-channel coefficients of a Log op:
//
//	log side = LogSlope·log_base(LinSlope·lin + LinOffset) + LogOffset
type LogParams struct {
	LogSlope, LogOffset float64
	LinSlope, LinOffset float64
}

// DefaultLogParams is the pure log_base curve.
var DefaultLogParams = LogParams{LogSlope: 1, LinSlope: 1}

// Log converts linear values to a logarithmic encoding (Forward) or back
// (Inverse). With Camera set, a linear segment replaces the curve below
// LinSideBreak; its slope is LinearSlope when HasLinearSlope is set,
// otherwise it is derived so the curve is C¹ at the break.
type Log struct {
	base
	Base           float64
	Params         [3]LogParams
	Camera         bool
	LinSideBreak   [3]float64
	HasLinearSlope bool
	LinearSlope    [3]float64
	Direction      Direction
}

// NewLog returns a pure log_base op.
func NewLog(b float64, dir Direction) *Log {
	return NewLogAffine(b, [3]LogParams{DefaultLogParams, DefaultLogParams, DefaultLogParams}, dir)
}

// NewLogAffine returns a log op with per-channel affine coefficients.
func NewLogAffine(b float64, params [3]LogParams, dir Direction) *Log {
	return &Log{base: newBase(), Base: b, Params: params, Direction: dir}
}

// NewLogCamera returns a camera log op with a linear toe below brk. A nil
// linearSlope derives the slope from continuity.
func NewLogCamera(b float64, params [3]LogParams, brk [3]float64, linearSlope *[3]float64, dir Direction) *Log {
	l := NewLogAffine(b, params, dir)
	l.Camera = true
	l.LinSideBreak = brk
	if linearSlope != nil {
		l.HasLinearSlope = true
		l.LinearSlope = *linearSlope
	}
	return l
}

func (l *Log) Type() Type { return TypeLog }

func (l *Log) Validate() error {
	if !(l.Base > 0) || l.Base == 1 || math.IsInf(l.Base, 0) {
		return validationErrorf("log: base %g must be positive and not 1", l.Base)
	}
	for c, p := range l.Params {
		if p.LinSlope == 0 {
			return validationErrorf("log: channel %d linear slope is zero", c)
		}
		if p.LogSlope == 0 {
			return validationErrorf("log: channel %d log slope is zero", c)
		}
		if l.Camera {
			if p.LinSlope*l.LinSideBreak[c]+p.LinOffset <= 0 {
				return validationErrorf("log: channel %d break %g falls outside the log domain", c, l.LinSideBreak[c])
			}
			if l.HasLinearSlope && l.LinearSlope[c] == 0 {
				return validationErrorf("log: channel %d camera linear slope is zero", c)
			}
		}
	}
	return nil
}

// CameraParams are the derived numerics of one camera log channel.
type CameraParams struct {
	LinSideBreak float64
	LogSideBreak float64
	LinearSlope  float64
	LinearOffset float64
}

// CameraParams derives the linear segment for every channel.
func (l *Log) CameraParams() [3]CameraParams {
	var out [3]CameraParams
	lnBase := math.Log(l.Base)
	for c, p := range l.Params {
		brk := l.LinSideBreak[c]
		inner := p.LinSlope*brk + p.LinOffset
		slope := l.LinearSlope[c]
		if !l.HasLinearSlope {
			slope = p.LogSlope * p.LinSlope / (inner * lnBase)
		}
		logBrk := p.LogSlope*math.Log(inner)/lnBase + p.LogOffset
		out[c] = CameraParams{
			LinSideBreak: brk,
			LogSideBreak: logBrk,
			LinearSlope:  slope,
			LinearOffset: logBrk - slope*brk,
		}
	}
	return out
}

func (l *Log) IsIdentity() bool { return false }

func (l *Log) IsNoOp() bool { return false }

func (l *Log) HasChannelCrosstalk() bool { return false }

func (l *Log) IdentityReplacement() Data { return nil }

func (l *Log) Inverse() (Data, error) {
	inv := l.Clone().(*Log)
	inv.Direction = l.Direction.Invert()
	inv.inDepth, inv.outDepth = l.outDepth, l.inDepth
	return inv, nil
}

func (l *Log) sameParams(o *Log) bool {
	if !EqualScalar(l.Base, o.Base) || l.Camera != o.Camera {
		return false
	}
	for c := 0; c < 3; c++ {
		a, b := l.Params[c], o.Params[c]
		if !EqualScalar(a.LogSlope, b.LogSlope) || !EqualScalar(a.LogOffset, b.LogOffset) ||
			!EqualScalar(a.LinSlope, b.LinSlope) || !EqualScalar(a.LinOffset, b.LinOffset) {
			return false
		}
	}
	if l.Camera {
		ca, cb := l.CameraParams(), o.CameraParams()
		for c := 0; c < 3; c++ {
			if !EqualScalar(ca[c].LinSideBreak, cb[c].LinSideBreak) || !EqualScalar(ca[c].LinearSlope, cb[c].LinearSlope) {
				return false
			}
		}
	}
	return true
}

func (l *Log) IsInverse(other Data) bool {
	o, ok := other.(*Log)
	return ok && o.Direction != l.Direction && l.mirroredDepths(o) && l.sameParams(o)
}

func (l *Log) Clone() Data {
	c := *l
	c.cacheID = ""
	return &c
}

func (l *Log) Equals(other Data) bool {
	o, ok := other.(*Log)
	return ok && o.Direction == l.Direction && l.sameDepths(o) && l.sameParams(o)
}

func (l *Log) Finalize() error {
	if err := l.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeLog, l.inDepth, l.outDepth).
		str("dir", l.Direction.String()).
		floats("base", l.Base)
	for _, p := range l.Params {
		w.floats("p", p.LogSlope, p.LogOffset, p.LinSlope, p.LinOffset)
	}
	if l.Camera {
		for _, cp := range l.CameraParams() {
			w.floats("cam", cp.LinSideBreak, cp.LinearSlope)
		}
	}
	l.cacheID = w.String()
	return nil
}

// ComposeLogs folds a lin→log op followed by a log→lin op with the same
// base and log slopes into the affine map between their linear sides. The
// result ignores the domain clamp of the log, so callers only use it when
// lossy optimization is allowed.
func ComposeLogs(l, next *Log) (*Matrix, bool) {
	if l.Direction != Forward || next.Direction != Inverse || l.Camera || next.Camera ||
		!EqualScalar(l.Base, next.Base) || l.inDepth != next.outDepth {
		return nil, false
	}
	m := NewMatrix()
	for c := 0; c < 3; c++ {
		a, b := l.Params[c], next.Params[c]
		if !EqualScalar(a.LogSlope, b.LogSlope) {
			return nil, false
		}
		k := math.Pow(l.Base, (a.LogOffset-b.LogOffset)/b.LogSlope)
		m.M[c*4+c] = a.LinSlope * k / b.LinSlope
		m.Offset[c] = (a.LinOffset*k - b.LinOffset) / b.LinSlope
	}
	m.inDepth, m.outDepth = l.inDepth, next.outDepth
	return m, true
}
