package colorio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/ops"
)

// Transform describes a color transformation. Structural transforms
// (ColorSpaceTransform, DisplayViewTransform, LookTransform,
// GroupTransform, FileTransform) resolve names through a Config; the
// others map directly to one operator.
//
// Transforms are plain values; a Config reads them when a processor is
// built and never retains them past that point.
type Transform interface {
	// build returns the op-vector computing the transform in the given
	// outer direction.
	build(b *builder, dir Direction) (ops.Vec, error)
	writeKey(w *keyWriter)
}

// keyWriter accumulates the cache key of a transform tree.
type keyWriter struct {
	sb strings.Builder
}

func (w *keyWriter) add(name string, vs ...any) {
	w.sb.WriteString(name)
	for _, v := range vs {
		fmt.Fprintf(&w.sb, " %v", v)
	}
	w.sb.WriteByte(';')
}

func (w *keyWriter) floats(name string, vs []float32) {
	h, _ := blake2b.New256(nil)
	var buf [4]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	w.add(name, len(vs), hex.EncodeToString(h.Sum(nil)[:16]))
}

func transformKey(t Transform) string {
	var w keyWriter
	t.writeKey(&w)
	return w.sb.String()
}

// oneOp returns d as a vector, inverted when dir is Inverse.
func oneOp(d opdata.Data, dir Direction) (ops.Vec, error) {
	if dir == Inverse {
		inv, err := d.Inverse()
		if err != nil {
			return nil, err
		}
		d = inv
	}
	return ops.Of(d), nil
}

// MatrixTransform applies out = M·in + Offset to RGBA. M is row-major.
type MatrixTransform struct {
	Matrix    f64.Mat4
	Offset    f64.Vec4
	Direction Direction
}

// MatrixIdentity returns the identity matrix transform.
func MatrixIdentity() *MatrixTransform {
	return &MatrixTransform{Matrix: opdata.Identity4}
}

// MatrixScale returns a transform scaling each channel.
func MatrixScale(scale [4]float64) *MatrixTransform {
	return &MatrixTransform{Matrix: opdata.NewDiagonalMatrix(f64.Vec4(scale)).M}
}

// MatrixFit returns a transform mapping [oldMin, oldMax] onto
// [newMin, newMax] per channel.
func MatrixFit(oldMin, oldMax, newMin, newMax [4]float64) (*MatrixTransform, error) {
	t := MatrixIdentity()
	for c := 0; c < 4; c++ {
		d := oldMax[c] - oldMin[c]
		if math.Abs(d) < 1e-12 {
			return nil, argErrorf("MatrixFit", "channel %d has an empty input range", c)
		}
		s := (newMax[c] - newMin[c]) / d
		t.Matrix[c*4+c] = s
		t.Offset[c] = newMin[c] - s*oldMin[c]
	}
	return t, nil
}

// MatrixSat returns a saturation matrix around the given luma weights.
func MatrixSat(sat float64, luma [3]float64) *MatrixTransform {
	t := MatrixIdentity()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v := (1 - sat) * luma[c]
			if r == c {
				v += sat
			}
			t.Matrix[r*4+c] = v
		}
	}
	return t
}

func (t *MatrixTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	return oneOp(opdata.NewMatrixFrom(t.Matrix, t.Offset), opdata.Combine(dir, t.Direction))
}

func (t *MatrixTransform) writeKey(w *keyWriter) {
	w.add("matrix", t.Matrix, t.Offset, t.Direction)
}

// RangeEmpty marks an unset RangeTransform bound.
func RangeEmpty() float64 { return opdata.Empty() }

// RangeTransform maps [MinIn, MaxIn] onto [MinOut, MaxOut] and clamps to
// the output bounds. A bound pair set to RangeEmpty leaves that side
// unclamped. With NoClamp the mapping is applied without clamping.
type RangeTransform struct {
	MinIn, MaxIn   float64
	MinOut, MaxOut float64
	NoClamp        bool
	Direction      Direction
}

// NewRangeTransform returns a clamping range transform.
func NewRangeTransform(minIn, maxIn, minOut, maxOut float64) *RangeTransform {
	return &RangeTransform{MinIn: minIn, MaxIn: maxIn, MinOut: minOut, MaxOut: maxOut}
}

func (t *RangeTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	r := opdata.NewRange(t.MinIn, t.MaxIn, t.MinOut, t.MaxOut)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var d opdata.Data = r
	if t.NoClamp {
		d = r.ConvertToMatrix()
	}
	return oneOp(d, opdata.Combine(dir, t.Direction))
}

func (t *RangeTransform) writeKey(w *keyWriter) {
	w.add("range", t.MinIn, t.MaxIn, t.MinOut, t.MaxOut, t.NoClamp, t.Direction)
}

// LogTransform computes log_Base of each channel. A zero Base means 2.
type LogTransform struct {
	Base      float64
	Direction Direction
}

func (t *LogTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	b := t.Base
	if b == 0 {
		b = 2
	}
	return ops.Of(opdata.NewLog(b, opdata.Combine(dir, t.Direction))), nil
}

func (t *LogTransform) writeKey(w *keyWriter) { w.add("log", t.Base, t.Direction) }

// LogAffineTransform computes
//
//	LogSideSlope·log_Base(LinSideSlope·in + LinSideOffset) + LogSideOffset
//
// per channel.
type LogAffineTransform struct {
	Base          float64
	LogSideSlope  [3]float64
	LogSideOffset [3]float64
	LinSideSlope  [3]float64
	LinSideOffset [3]float64
	Direction     Direction
}

// NewLogAffineTransform returns a pure log2 affine transform.
func NewLogAffineTransform() *LogAffineTransform {
	return &LogAffineTransform{Base: 2, LogSideSlope: [3]float64{1, 1, 1}, LinSideSlope: [3]float64{1, 1, 1}}
}

func (t *LogAffineTransform) params() [3]opdata.LogParams {
	var p [3]opdata.LogParams
	for c := range p {
		p[c] = opdata.LogParams{
			LogSlope:  t.LogSideSlope[c],
			LogOffset: t.LogSideOffset[c],
			LinSlope:  t.LinSideSlope[c],
			LinOffset: t.LinSideOffset[c],
		}
	}
	return p
}

func (t *LogAffineTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	return ops.Of(opdata.NewLogAffine(t.Base, t.params(), opdata.Combine(dir, t.Direction))), nil
}

func (t *LogAffineTransform) writeKey(w *keyWriter) {
	w.add("logaffine", t.Base, t.LogSideSlope, t.LogSideOffset, t.LinSideSlope, t.LinSideOffset, t.Direction)
}

// LogCameraTransform is a LogAffineTransform with a linear segment below
// LinSideBreak. A nil LinearSlope makes the curve continuous in slope at
// the break.
type LogCameraTransform struct {
	LogAffineTransform
	LinSideBreak [3]float64
	LinearSlope  *[3]float64
}

// NewLogCameraTransform returns a log2 camera transform breaking at brk.
func NewLogCameraTransform(brk [3]float64) *LogCameraTransform {
	return &LogCameraTransform{LogAffineTransform: *NewLogAffineTransform(), LinSideBreak: brk}
}

func (t *LogCameraTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	return ops.Of(opdata.NewLogCamera(t.Base, t.params(), t.LinSideBreak, t.LinearSlope, opdata.Combine(dir, t.Direction))), nil
}

func (t *LogCameraTransform) writeKey(w *keyWriter) {
	t.LogAffineTransform.writeKey(w)
	if t.LinearSlope != nil {
		w.add("camera", t.LinSideBreak, *t.LinearSlope)
	} else {
		w.add("camera", t.LinSideBreak)
	}
}

// ExponentTransform raises each RGBA channel to its own power.
type ExponentTransform struct {
	Value     [4]float64
	Negative  NegativeStyle
	Direction Direction
}

func (t *ExponentTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	return oneOp(opdata.NewExponent(t.Value, t.Negative), opdata.Combine(dir, t.Direction))
}

func (t *ExponentTransform) writeKey(w *keyWriter) {
	w.add("exponent", t.Value, t.Negative, t.Direction)
}

// GammaTransform is the basic gamma curve of RGBA channels. Negative
// selects clamping, mirroring or passing negative values through.
type GammaTransform struct {
	Gamma     [4]float64
	Negative  NegativeStyle
	Direction Direction
}

func (t *GammaTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	style := opdata.GammaBasicFwd
	switch t.Negative {
	case NegativeMirror:
		style = opdata.GammaBasicMirrorFwd
	case NegativePassThru:
		style = opdata.GammaBasicPassThruFwd
	}
	g := opdata.NewGamma(style, 1)
	g.Gamma = t.Gamma
	return oneOp(g, opdata.Combine(dir, t.Direction))
}

func (t *GammaTransform) writeKey(w *keyWriter) {
	w.add("gamma", t.Gamma, t.Negative, t.Direction)
}

// ExponentWithLinearTransform is a power curve with a linear toe, as in
// the sRGB and Rec. 709 encodings. Forward decodes:
//
//	out = ((in + Offset) / (1 + Offset))^Gamma above the break
//
// NegativeMirror mirrors the curve for negative values; other styles clamp.
type ExponentWithLinearTransform struct {
	Gamma     [4]float64
	Offset    [4]float64
	Negative  NegativeStyle
	Direction Direction
}

// NewExponentWithLinearTransform returns the curve on RGB with alpha
// untouched.
func NewExponentWithLinearTransform(gamma, offset float64) *ExponentWithLinearTransform {
	return &ExponentWithLinearTransform{
		Gamma:  [4]float64{gamma, gamma, gamma, 1},
		Offset: [4]float64{offset, offset, offset, 0},
	}
}

func (t *ExponentWithLinearTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	style := opdata.GammaMoncurveFwd
	if t.Negative == NegativeMirror {
		style = opdata.GammaMoncurveMirrorFwd
	}
	g := opdata.NewMoncurve(style, 1, 0)
	g.Gamma, g.Offset = t.Gamma, t.Offset
	return oneOp(g, opdata.Combine(dir, t.Direction))
}

func (t *ExponentWithLinearTransform) writeKey(w *keyWriter) {
	w.add("moncurve", t.Gamma, t.Offset, t.Negative, t.Direction)
}

// CDLTransform is an ASC color decision list correction.
type CDLTransform struct {
	ID          string
	Description string
	Slope       [3]float64
	Offset      [3]float64
	Power       [3]float64
	Saturation  float64
	Style       CDLStyle
	Direction   Direction
}

// NewCDLTransform returns an identity correction.
func NewCDLTransform() *CDLTransform {
	return &CDLTransform{Slope: [3]float64{1, 1, 1}, Power: [3]float64{1, 1, 1}, Saturation: 1}
}

func (t *CDLTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	style := opdata.CDLV12Fwd
	if t.Style == CDLNoClamp {
		style = opdata.CDLNoClampFwd
	}
	if opdata.Combine(dir, t.Direction) == Inverse {
		style = style.Invert()
	}
	c := opdata.NewCDL(style)
	c.Slope, c.Offset, c.Power, c.Saturation = t.Slope, t.Offset, t.Power, t.Saturation
	return ops.Of(c), nil
}

func (t *CDLTransform) writeKey(w *keyWriter) {
	w.add("cdl", t.Slope, t.Offset, t.Power, t.Saturation, t.Style, t.Direction)
}

// FixedFunctionTransform applies a hard-coded formula.
type FixedFunctionTransform struct {
	Style     FixedFunctionStyle
	Params    []float64
	Direction Direction
}

func (t *FixedFunctionTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	style := t.Style
	if opdata.Combine(dir, t.Direction) == Inverse {
		style = style.Invert()
	}
	return ops.Of(opdata.NewFixedFunction(style, slices.Clone(t.Params)...)), nil
}

func (t *FixedFunctionTransform) writeKey(w *keyWriter) {
	w.add("fixed", t.Style, t.Params, t.Direction)
}

// ExposureContrastTransform adjusts exposure in stops and contrast and
// gamma around Pivot. Properties marked dynamic can be changed on a built
// processor through Processor.DynamicProperty.
type ExposureContrastTransform struct {
	Style           ExposureContrastStyle
	Exposure        float64
	Contrast        float64
	Gamma           float64
	Pivot           float64
	LogExposureStep float64
	LogMidGray      float64
	DynamicExposure bool
	DynamicContrast bool
	DynamicGamma    bool
	Direction       Direction
}

// NewExposureContrastTransform returns a neutral transform of the given
// style.
func NewExposureContrastTransform(style ExposureContrastStyle) *ExposureContrastTransform {
	return &ExposureContrastTransform{
		Style:           style,
		Contrast:        1,
		Gamma:           1,
		Pivot:           opdata.DefaultPivot,
		LogExposureStep: opdata.DefaultLogExposureStep,
		LogMidGray:      opdata.DefaultLogMidGray,
	}
}

func (t *ExposureContrastTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	if t.Style > ExposureContrastLogarithmic {
		return nil, argErrorf("ExposureContrastTransform", "unknown style %d", t.Style)
	}
	style := opdata.ECStyle(2 * t.Style)
	if opdata.Combine(dir, t.Direction) == Inverse {
		style = style.Invert()
	}
	ec := opdata.NewExposureContrast(style)
	ec.Exposure.SetValue(t.Exposure)
	ec.Contrast.SetValue(t.Contrast)
	ec.Gamma.SetValue(t.Gamma)
	ec.Pivot = t.Pivot
	ec.LogExposureStep = t.LogExposureStep
	ec.LogMidGray = t.LogMidGray
	ec.Dynamic[opdata.DynamicExposure] = t.DynamicExposure
	ec.Dynamic[opdata.DynamicContrast] = t.DynamicContrast
	ec.Dynamic[opdata.DynamicGamma] = t.DynamicGamma
	return ops.Of(ec), nil
}

func (t *ExposureContrastTransform) writeKey(w *keyWriter) {
	w.add("ec", t.Style, t.Exposure, t.Contrast, t.Gamma, t.Pivot, t.LogExposureStep, t.LogMidGray,
		t.DynamicExposure, t.DynamicContrast, t.DynamicGamma, t.Direction)
}

// AllocationTransform maps a value range into [0, 1]: linearly for
// uniform allocation, through log2 for lg2 allocation. Vars are
// (min, max) or, for lg2, (min, max, offset); omitted vars take the
// defaults (0, 1) and (-10, 6, 0).
type AllocationTransform struct {
	Kind      AllocationKind
	Vars      []float64
	Direction Direction
}

func (t *AllocationTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	a := opdata.NewAllocation(t.Kind, t.Vars...)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	lo, hi, offset := a.Range()
	if hi-lo == 0 {
		return nil, &Error{Kind: KindValidation, Entity: "AllocationTransform", Msg: "empty range"}
	}
	var v ops.Vec
	if t.Kind == AllocationLg2 {
		if offset != 0 {
			v = append(v, ops.New(opdata.NewMatrixFrom(opdata.Identity4, f64.Vec4{offset, offset, offset, 0})))
		}
		v = append(v, ops.New(opdata.NewLog(2, Forward)))
	}
	s := 1 / (hi - lo)
	v = append(v, ops.New(opdata.NewMatrixFrom(
		opdata.NewDiagonalMatrix(f64.Vec4{s, s, s, 1}).M,
		f64.Vec4{-lo * s, -lo * s, -lo * s, 0},
	)))
	if opdata.Combine(dir, t.Direction) == Inverse {
		return v.Inverse()
	}
	return v, nil
}

func (t *AllocationTransform) writeKey(w *keyWriter) {
	w.add("allocation", t.Kind, t.Vars, t.Direction)
}

// Lut1DTransform is a per-channel lookup table. Values holds RGB triplets;
// a half-domain table holds 65536 of them, indexed by the float16 bit
// pattern of the input.
type Lut1DTransform struct {
	Values        []float32
	HalfDomain    bool
	RawHalfs      bool
	HueAdjust     HueAdjust
	Interpolation Interpolation
	Direction     Direction
}

func (t *Lut1DTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	l := opdata.NewLut1DFrom(slices.Clone(t.Values))
	l.HalfDomain, l.RawHalfs, l.HueAdjust, l.Interp = t.HalfDomain, t.RawHalfs, t.HueAdjust, t.Interpolation
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return oneOp(l, opdata.Combine(dir, t.Direction))
}

func (t *Lut1DTransform) writeKey(w *keyWriter) {
	w.add("lut1d", t.HalfDomain, t.RawHalfs, t.HueAdjust, t.Interpolation, t.Direction)
	w.floats("values", t.Values)
}

// Lut3DTransform is a lattice of GridSize³ RGB triplets with blue varying
// fastest.
type Lut3DTransform struct {
	GridSize      int
	Values        []float32
	Interpolation Interpolation
	Direction     Direction
}

func (t *Lut3DTransform) build(_ *builder, dir Direction) (ops.Vec, error) {
	l := opdata.NewLut3DFrom(t.GridSize, slices.Clone(t.Values))
	l.Interp = t.Interpolation
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return oneOp(l, opdata.Combine(dir, t.Direction))
}

func (t *Lut3DTransform) writeKey(w *keyWriter) {
	w.add("lut3d", t.GridSize, t.Interpolation, t.Direction)
	w.floats("values", t.Values)
}

// GroupTransform applies its children in order. The inverse applies the
// inverted children in reverse order.
type GroupTransform struct {
	Children  []Transform
	Direction Direction
}

func (t *GroupTransform) build(b *builder, dir Direction) (ops.Vec, error) {
	d := opdata.Combine(dir, t.Direction)
	var v ops.Vec
	for i := range t.Children {
		c := t.Children[i]
		if d == Inverse {
			c = t.Children[len(t.Children)-1-i]
		}
		cv, err := b.build(c, d)
		if err != nil {
			return nil, err
		}
		v = append(v, cv...)
	}
	return v, nil
}

func (t *GroupTransform) writeKey(w *keyWriter) {
	w.add("group", len(t.Children), t.Direction)
	for _, c := range t.Children {
		c.writeKey(w)
	}
	w.add("end")
}
