package colorio

import (
	"strings"

	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/ops"
)

// maxBuildDepth bounds transform nesting, which also stops color spaces
// whose transforms refer back to themselves.
const maxBuildDepth = 64

// builder resolves transforms into op-vectors against one config and
// context. It holds no results; every step returns its own vector.
type builder struct {
	cfg   *Config
	ctx   *Context
	depth int
}

func (b *builder) build(t Transform, dir Direction) (ops.Vec, error) {
	if t == nil {
		return nil, argErrorf("transform", "nil transform")
	}
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > maxBuildDepth {
		return nil, configErrorf("transform", "nesting deeper than %d levels", maxBuildDepth)
	}
	return t.build(b, dir)
}

func (b *builder) space(name string) (*ColorSpace, error) {
	return b.cfg.lookupSpace(b.ctx.ResolveStringVar(name))
}

// toReference converts cs to its own reference space.
func (b *builder) toReference(cs *ColorSpace) (ops.Vec, error) {
	switch {
	case cs.ToReference != nil:
		return b.build(cs.ToReference, Forward)
	case cs.FromReference != nil:
		return b.build(cs.FromReference, Inverse)
	}
	return nil, nil
}

// fromReference converts the reference space of cs to cs.
func (b *builder) fromReference(cs *ColorSpace) (ops.Vec, error) {
	switch {
	case cs.FromReference != nil:
		return b.build(cs.FromReference, Forward)
	case cs.ToReference != nil:
		return b.build(cs.ToReference, Inverse)
	}
	return nil, nil
}

// viewTransform converts the reference space of vt to the display
// reference space.
func (b *builder) viewTransform(vt *ViewTransform, dir Direction) (ops.Vec, error) {
	switch {
	case vt.FromReference != nil:
		return b.build(vt.FromReference, dir)
	case vt.ToReference != nil:
		return b.build(vt.ToReference, dir.Invert())
	}
	return nil, nil
}

// bridge converts between the scene and display reference spaces through
// the default view transform.
func (b *builder) bridge(from, to ReferenceSpaceType) (ops.Vec, error) {
	if from == to {
		return nil, nil
	}
	vt := b.cfg.bridgeViewTransform()
	if vt == nil {
		return nil, configErrorf("view_transforms", "no scene-referred view transform to convert from the %s to the %s reference", from, to)
	}
	dir := Forward
	if from == ReferenceDisplay {
		dir = Inverse
	}
	return b.viewTransform(vt, dir)
}

// convert returns the ops taking src to dst through their reference
// spaces, framed by the allocation hints of both spaces.
func (b *builder) convert(src, dst *ColorSpace, dataBypass bool) (ops.Vec, error) {
	if src == dst {
		return nil, nil
	}
	if dataBypass && (src.IsData || dst.IsData) {
		return nil, nil
	}
	if src.EqualityGroup != "" && foldEqual(src.EqualityGroup, dst.EqualityGroup) {
		return nil, nil
	}
	v := ops.Vec{allocationHint(src)}
	steps := []func() (ops.Vec, error){
		func() (ops.Vec, error) { return b.toReference(src) },
		func() (ops.Vec, error) { return b.bridge(src.ReferenceSpace, dst.ReferenceSpace) },
		func() (ops.Vec, error) { return b.fromReference(dst) },
	}
	for _, step := range steps {
		sv, err := step()
		if err != nil {
			return nil, err
		}
		v = append(v, sv...)
	}
	return append(v, allocationHint(dst)), nil
}

func allocationHint(cs *ColorSpace) *ops.Op {
	return ops.New(opdata.NewAllocation(cs.Allocation.Kind, cs.Allocation.Vars...))
}

// lookStep is one entry of a look list.
type lookStep struct {
	name    string
	inverse bool
}

// parseLooks splits a comma- or colon-separated look list. A leading "-"
// requests the inverse look, a leading "+" the forward one.
func parseLooks(s string) []lookStep {
	var steps []lookStep
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ':' }) {
		tok = strings.TrimSpace(tok)
		st := lookStep{}
		switch {
		case strings.HasPrefix(tok, "-"):
			st.inverse = true
			tok = tok[1:]
		case strings.HasPrefix(tok, "+"):
			tok = tok[1:]
		}
		if st.name = strings.TrimSpace(tok); st.name != "" {
			steps = append(steps, st)
		}
	}
	return steps
}

// lookOps returns the transform of one look. An inverse look uses
// InverseTransform when set and inverts Transform otherwise.
func (b *builder) lookOps(l *Look, inverse bool) (ops.Vec, error) {
	fwd, inv := l.Transform, l.InverseTransform
	if inverse {
		fwd, inv = inv, fwd
	}
	switch {
	case fwd != nil:
		return b.build(fwd, Forward)
	case inv != nil:
		return b.build(inv, Inverse)
	}
	return nil, nil
}

// applyLooks runs the looks from src, converting into each look's process
// space first. It returns the ops and the space the result is in.
func (b *builder) applyLooks(src *ColorSpace, steps []lookStep, dataBypass bool) (ops.Vec, *ColorSpace, error) {
	var v ops.Vec
	current := src
	for _, st := range steps {
		l, err := b.cfg.lookupLook(st.name)
		if err != nil {
			return nil, nil, err
		}
		next := current
		if l.ProcessSpace != "" {
			if next, err = b.space(l.ProcessSpace); err != nil {
				return nil, nil, err
			}
		}
		cv, err := b.convert(current, next, dataBypass)
		if err != nil {
			return nil, nil, err
		}
		v = append(v, cv...)
		lv, err := b.lookOps(l, st.inverse)
		if err != nil {
			return nil, nil, err
		}
		v = append(v, lv...)
		current = next
	}
	return v, current, nil
}

// ColorSpaceTransform converts from Src to Dst. Conversions involving a
// data color space are skipped unless DisableDataBypass is set.
type ColorSpaceTransform struct {
	Src, Dst          string
	DisableDataBypass bool
	Direction         Direction
}

func (t *ColorSpaceTransform) build(b *builder, dir Direction) (ops.Vec, error) {
	src, dst := t.Src, t.Dst
	if opdata.Combine(dir, t.Direction) == Inverse {
		src, dst = dst, src
	}
	s, err := b.space(src)
	if err != nil {
		return nil, err
	}
	d, err := b.space(dst)
	if err != nil {
		return nil, err
	}
	return b.convert(s, d, !t.DisableDataBypass)
}

func (t *ColorSpaceTransform) writeKey(w *keyWriter) {
	w.add("colorspace", t.Src, t.Dst, t.DisableDataBypass, t.Direction)
}

// DisplayViewTransform converts Src for viewing through a view of a
// display. The inverse converts display values back to Src.
type DisplayViewTransform struct {
	Src               string
	Display           string
	View              string
	LooksBypass       bool
	DisableDataBypass bool
	Direction         Direction
}

func (t *DisplayViewTransform) build(b *builder, dir Direction) (ops.Vec, error) {
	v, err := t.forward(b)
	if err != nil {
		return nil, err
	}
	if opdata.Combine(dir, t.Direction) == Inverse {
		return v.Inverse()
	}
	return v, nil
}

func (t *DisplayViewTransform) forward(b *builder) (ops.Vec, error) {
	view, err := b.cfg.lookupDisplayView(b.ctx.ResolveStringVar(t.Display), b.ctx.ResolveStringVar(t.View))
	if err != nil {
		return nil, err
	}
	src, err := b.space(t.Src)
	if err != nil {
		return nil, err
	}
	dst, err := b.space(view.ColorSpace)
	if err != nil {
		return nil, err
	}
	dataBypass := !t.DisableDataBypass
	if dataBypass && (src.IsData || dst.IsData) {
		return nil, nil
	}
	var steps []lookStep
	if !t.LooksBypass {
		steps = parseLooks(view.Looks)
	}
	v, current, err := b.applyLooks(src, steps, dataBypass)
	if err != nil {
		return nil, err
	}
	if view.ViewTransform == "" {
		cv, err := b.convert(current, dst, dataBypass)
		if err != nil {
			return nil, err
		}
		return append(v, cv...), nil
	}

	vt, err := b.cfg.lookupViewTransform(view.ViewTransform)
	if err != nil {
		return nil, err
	}
	parts := []func() (ops.Vec, error){
		func() (ops.Vec, error) { return b.toReference(current) },
		func() (ops.Vec, error) { return b.bridge(current.ReferenceSpace, vt.ReferenceSpace) },
		func() (ops.Vec, error) { return b.viewTransform(vt, Forward) },
		func() (ops.Vec, error) { return b.bridge(ReferenceDisplay, dst.ReferenceSpace) },
		func() (ops.Vec, error) { return b.fromReference(dst) },
	}
	for _, part := range parts {
		pv, err := part()
		if err != nil {
			return nil, err
		}
		v = append(v, pv...)
	}
	return v, nil
}

func (t *DisplayViewTransform) writeKey(w *keyWriter) {
	w.add("displayview", t.Src, t.Display, t.View, t.LooksBypass, t.DisableDataBypass, t.Direction)
}

// LookTransform applies a list of looks while converting from Src to Dst.
// Looks is a comma- or colon-separated list; "-name" applies the inverse
// look. With SkipColorSpaceConversion only the look transforms are
// applied.
type LookTransform struct {
	Src, Dst                 string
	Looks                    string
	SkipColorSpaceConversion bool
	Direction                Direction
}

func (t *LookTransform) build(b *builder, dir Direction) (ops.Vec, error) {
	srcName, dstName := t.Src, t.Dst
	steps := parseLooks(t.Looks)
	if opdata.Combine(dir, t.Direction) == Inverse {
		srcName, dstName = dstName, srcName
		for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
			steps[i], steps[j] = steps[j], steps[i]
		}
		for i := range steps {
			steps[i].inverse = !steps[i].inverse
		}
	}
	if t.SkipColorSpaceConversion {
		var v ops.Vec
		for _, st := range steps {
			l, err := b.cfg.lookupLook(st.name)
			if err != nil {
				return nil, err
			}
			lv, err := b.lookOps(l, st.inverse)
			if err != nil {
				return nil, err
			}
			v = append(v, lv...)
		}
		return v, nil
	}
	src, err := b.space(srcName)
	if err != nil {
		return nil, err
	}
	dst, err := b.space(dstName)
	if err != nil {
		return nil, err
	}
	v, current, err := b.applyLooks(src, steps, true)
	if err != nil {
		return nil, err
	}
	cv, err := b.convert(current, dst, true)
	if err != nil {
		return nil, err
	}
	return append(v, cv...), nil
}

func (t *LookTransform) writeKey(w *keyWriter) {
	w.add("look", t.Src, t.Dst, t.Looks, t.SkipColorSpaceConversion, t.Direction)
}

// FileTransform applies the transform stored in a LUT file. Src is
// resolved through the context search paths. CCCID selects one correction
// of a multi-correction file by ID or index. A non-default Interpolation
// overrides the file's.
type FileTransform struct {
	Src           string
	CCCID         string
	Interpolation Interpolation
	Direction     Direction
}

func (t *FileTransform) build(b *builder, dir Direction) (ops.Vec, error) {
	path, err := b.ctx.ResolveFilePath(t.Src)
	if err != nil {
		return nil, err
	}
	ft, err := b.cfg.readFile(path)
	if err != nil {
		return nil, err
	}
	if t.CCCID != "" {
		if ft, err = selectCorrection(ft, b.ctx.ResolveStringVar(t.CCCID), path); err != nil {
			return nil, err
		}
	}
	v, err := b.build(ft, opdata.Combine(dir, t.Direction))
	if err != nil {
		return nil, err
	}
	if t.Interpolation != InterpDefault {
		for _, o := range v {
			overrideInterp(o.Data(), t.Interpolation)
		}
	}
	return v, nil
}

func (t *FileTransform) writeKey(w *keyWriter) {
	w.add("file", t.Src, t.CCCID, t.Interpolation, t.Direction)
}

// overrideInterp sets the interpolation of a LUT, mapping methods that do
// not apply to its dimension onto the closest one that does.
func overrideInterp(d opdata.Data, interp Interpolation) {
	switch l := d.(type) {
	case *opdata.Lut1D:
		switch interp {
		case InterpTrilinear, InterpTetrahedral:
			interp = InterpLinear
		}
		l.Interp = interp
	case *opdata.Lut3D:
		switch interp {
		case InterpLinear:
			interp = InterpTrilinear
		case InterpCubic:
			interp = InterpBest
		}
		l.Interp = interp
	}
}
