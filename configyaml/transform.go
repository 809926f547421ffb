package configyaml

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/colorio"
)

// decodeFunc builds a transform from the keys of a tagged mapping.
type decodeFunc func(p *parser, f *fields) (colorio.Transform, error)

var decoders map[string]decodeFunc

func init() {
	decoders = map[string]decodeFunc{
		"MatrixTransform":             decodeMatrix,
		"FileTransform":               decodeFile,
		"GroupTransform":              decodeGroup,
		"ColorSpaceTransform":         decodeColorSpace,
		"LookTransform":               decodeLook,
		"DisplayViewTransform":        decodeDisplayView,
		"ExponentTransform":           decodeExponent,
		"ExponentWithLinearTransform": decodeExponentWithLinear,
		"LogTransform":                decodeLog,
		"LogAffineTransform":          decodeLogAffine,
		"LogCameraTransform":          decodeLogCamera,
		"CDLTransform":                decodeCDL,
		"RangeTransform":              decodeRange,
		"FixedFunctionTransform":      decodeFixedFunction,
		"ExposureContrastTransform":   decodeExposureContrast,
		"AllocationTransform":         decodeAllocation,
	}
}

func (p *parser) optionalTransform(n *yaml.Node) (colorio.Transform, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	return p.transform(n)
}

// transform decodes a tagged transform node. An untagged sequence is an
// implicit group.
func (p *parser) transform(n *yaml.Node) (colorio.Transform, error) {
	if n.Kind == yaml.SequenceNode {
		g := &colorio.GroupTransform{}
		for _, c := range n.Content {
			t, err := p.transform(c)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, t)
		}
		return g, nil
	}
	tag := localTag(n.Tag)
	if n.Kind != yaml.MappingNode {
		return nil, p.errorAt(n, tag, "transform must be a mapping")
	}
	decode, ok := decoders[tag]
	if !ok {
		return nil, p.errorAt(n, tag, "unsupported transform %q", n.Tag)
	}
	f := newFields(p, n, tag)
	t, err := decode(p, f)
	if err == nil {
		err = f.err
	}
	if err != nil {
		return nil, err
	}
	f.warnUnused()
	return t, nil
}

// fields indexes the keys of a transform mapping. The first decoding
// error is kept in err; later reads return zero values.
type fields struct {
	p    *parser
	node *yaml.Node
	tag  string
	m    map[string]*yaml.Node
	used map[string]bool
	err  error
}

func newFields(p *parser, n *yaml.Node, tag string) *fields {
	f := &fields{p: p, node: n, tag: tag, m: make(map[string]*yaml.Node), used: make(map[string]bool)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		f.m[n.Content[i].Value] = n.Content[i+1]
	}
	return f
}

func (f *fields) get(key string) (*yaml.Node, bool) {
	f.used[key] = true
	n, ok := f.m[key]
	return n, ok
}

func (f *fields) fail(n *yaml.Node, format string, args ...any) {
	if f.err == nil {
		f.err = f.p.errorAt(n, f.tag, format, args...)
	}
}

func (f *fields) warnUnused() {
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		k := f.node.Content[i]
		if !f.used[k.Value] {
			colorio.Logger().Warn("configyaml: unknown key", "in", f.tag, "key", k.Value, "line", k.Line)
		}
	}
}

func (f *fields) str(key string) string {
	n, ok := f.get(key)
	if !ok {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		f.fail(n, "%s must be a string", key)
		return ""
	}
	return n.Value
}

func (f *fields) boolean(key string, def bool) bool {
	n, ok := f.get(key)
	if !ok {
		return def
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		f.fail(n, "%s: %v", key, err)
	}
	return v
}

func (f *fields) float(key string, def float64) float64 {
	n, ok := f.get(key)
	if !ok {
		return def
	}
	return f.scalar(key, n)
}

func (f *fields) scalar(key string, n *yaml.Node) float64 {
	var v float64
	if err := n.Decode(&v); err != nil {
		f.fail(n, "%s: %v", key, err)
	}
	return v
}

// floats reads a list of exactly len(dst) numbers into dst. A scalar is
// broadcast to the first spread elements when spread > 0.
func (f *fields) floats(key string, dst []float64, spread int) bool {
	n, ok := f.get(key)
	if !ok {
		return false
	}
	if n.Kind == yaml.ScalarNode && spread > 0 {
		v := f.scalar(key, n)
		for i := 0; i < spread; i++ {
			dst[i] = v
		}
		return true
	}
	var vs []float64
	if err := n.Decode(&vs); err != nil {
		f.fail(n, "%s: %v", key, err)
		return false
	}
	if len(vs) != len(dst) {
		f.fail(n, "%s: expected %d values, found %d", key, len(dst), len(vs))
		return false
	}
	copy(dst, vs)
	return true
}

func (f *fields) list(key string) []float64 {
	n, ok := f.get(key)
	if !ok {
		return nil
	}
	var vs []float64
	if err := n.Decode(&vs); err != nil {
		f.fail(n, "%s: %v", key, err)
	}
	return vs
}

func (f *fields) direction() colorio.Direction {
	n, ok := f.get("direction")
	if !ok {
		return colorio.Forward
	}
	switch strings.ToLower(n.Value) {
	case "forward":
		return colorio.Forward
	case "inverse":
		return colorio.Inverse
	}
	f.fail(n, "unknown direction %q", n.Value)
	return colorio.Forward
}

func (f *fields) negativeStyle(def colorio.NegativeStyle) colorio.NegativeStyle {
	n, ok := f.get("style")
	if !ok {
		return def
	}
	switch strings.ToLower(n.Value) {
	case "clamp", "linear":
		return colorio.NegativeClamp
	case "mirror":
		return colorio.NegativeMirror
	case "pass_thru":
		return colorio.NegativePassThru
	}
	f.fail(n, "unknown negative style %q", n.Value)
	return def
}

func decodeMatrix(_ *parser, f *fields) (colorio.Transform, error) {
	t := colorio.MatrixIdentity()
	f.floats("matrix", t.Matrix[:], 0)
	f.floats("offset", t.Offset[:], 0)
	t.Direction = f.direction()
	return t, nil
}

func decodeFile(_ *parser, f *fields) (colorio.Transform, error) {
	t := &colorio.FileTransform{Src: f.str("src"), CCCID: f.str("cccid"), Direction: f.direction()}
	if t.Src == "" {
		f.fail(f.node, "missing src")
	}
	if s := f.str("interpolation"); s != "" {
		interp, ok := colorio.ParseInterpolation(strings.ToLower(s))
		if !ok {
			f.fail(f.node, "unknown interpolation %q", s)
		}
		t.Interpolation = interp
	}
	return t, nil
}

func decodeGroup(p *parser, f *fields) (colorio.Transform, error) {
	g := &colorio.GroupTransform{Direction: f.direction()}
	n, ok := f.get("children")
	if !ok {
		return g, nil
	}
	if n.Kind != yaml.SequenceNode {
		f.fail(n, "children must be a list")
		return g, nil
	}
	for _, c := range n.Content {
		t, err := p.transform(c)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, t)
	}
	return g, nil
}

func decodeColorSpace(_ *parser, f *fields) (colorio.Transform, error) {
	return &colorio.ColorSpaceTransform{
		Src:               f.str("src"),
		Dst:               f.str("dst"),
		DisableDataBypass: !f.boolean("data_bypass", true),
		Direction:         f.direction(),
	}, nil
}

func decodeLook(_ *parser, f *fields) (colorio.Transform, error) {
	return &colorio.LookTransform{
		Src:                      f.str("src"),
		Dst:                      f.str("dst"),
		Looks:                    f.str("looks"),
		SkipColorSpaceConversion: f.boolean("skip_color_space_conversion", false),
		Direction:                f.direction(),
	}, nil
}

func decodeDisplayView(_ *parser, f *fields) (colorio.Transform, error) {
	return &colorio.DisplayViewTransform{
		Src:               f.str("src"),
		Display:           f.str("display"),
		View:              f.str("view"),
		LooksBypass:       f.boolean("looks_bypass", false),
		DisableDataBypass: !f.boolean("data_bypass", true),
		Direction:         f.direction(),
	}, nil
}

// decodeExponent reads version 1 exponents as plain clamping powers and
// later versions as basic gamma curves.
func decodeExponent(p *parser, f *fields) (colorio.Transform, error) {
	v := [4]float64{1, 1, 1, 1}
	f.floats("value", v[:], 3)
	style := f.negativeStyle(colorio.NegativeClamp)
	dir := f.direction()
	if p.major < 2 {
		return &colorio.ExponentTransform{Value: v, Negative: style, Direction: dir}, nil
	}
	return &colorio.GammaTransform{Gamma: v, Negative: style, Direction: dir}, nil
}

func decodeExponentWithLinear(_ *parser, f *fields) (colorio.Transform, error) {
	t := colorio.NewExponentWithLinearTransform(1, 0)
	if !f.floats("gamma", t.Gamma[:], 3) {
		f.fail(f.node, "missing gamma")
	}
	if !f.floats("offset", t.Offset[:], 3) {
		f.fail(f.node, "missing offset")
	}
	t.Negative = f.negativeStyle(colorio.NegativeClamp)
	t.Direction = f.direction()
	return t, nil
}

func decodeLog(_ *parser, f *fields) (colorio.Transform, error) {
	return &colorio.LogTransform{Base: f.float("base", 2), Direction: f.direction()}, nil
}

func readLogAffine(f *fields, t *colorio.LogAffineTransform) {
	t.Base = f.float("base", 2)
	f.floats("logSideSlope", t.LogSideSlope[:], 3)
	f.floats("logSideOffset", t.LogSideOffset[:], 3)
	f.floats("linSideSlope", t.LinSideSlope[:], 3)
	f.floats("linSideOffset", t.LinSideOffset[:], 3)
	t.Direction = f.direction()
}

func decodeLogAffine(_ *parser, f *fields) (colorio.Transform, error) {
	t := colorio.NewLogAffineTransform()
	readLogAffine(f, t)
	return t, nil
}

func decodeLogCamera(_ *parser, f *fields) (colorio.Transform, error) {
	t := colorio.NewLogCameraTransform([3]float64{})
	readLogAffine(f, &t.LogAffineTransform)
	if !f.floats("linSideBreak", t.LinSideBreak[:], 3) {
		f.fail(f.node, "missing linSideBreak")
	}
	var slope [3]float64
	if f.floats("linearSlope", slope[:], 3) {
		t.LinearSlope = &slope
	}
	return t, nil
}

func decodeCDL(_ *parser, f *fields) (colorio.Transform, error) {
	t := colorio.NewCDLTransform()
	t.ID = f.str("name")
	t.Description = f.str("description")
	f.floats("slope", t.Slope[:], 0)
	f.floats("offset", t.Offset[:], 0)
	f.floats("power", t.Power[:], 0)
	if _, ok := f.m["saturation"]; ok {
		t.Saturation = f.float("saturation", 1)
	} else {
		t.Saturation = f.float("sat", 1)
	}
	switch s := strings.ToLower(f.str("style")); s {
	case "", "asc", "v1.2":
	case "noclamp":
		t.Style = colorio.CDLNoClamp
	default:
		f.fail(f.node, "unknown CDL style %q", s)
	}
	t.Direction = f.direction()
	return t, nil
}

func decodeRange(_ *parser, f *fields) (colorio.Transform, error) {
	e := colorio.RangeEmpty()
	t := colorio.NewRangeTransform(
		f.float("minInValue", e), f.float("maxInValue", e),
		f.float("minOutValue", e), f.float("maxOutValue", e),
	)
	switch s := strings.ToLower(f.str("style")); s {
	case "", "clamp":
	case "noclamp":
		t.NoClamp = true
	default:
		f.fail(f.node, "unknown range style %q", s)
	}
	t.Direction = f.direction()
	return t, nil
}

func decodeFixedFunction(_ *parser, f *fields) (colorio.Transform, error) {
	name := f.str("style")
	style, ok := colorio.ParseFixedFunctionStyle(name)
	if !ok {
		f.fail(f.node, "unknown fixed function style %q", name)
	}
	return &colorio.FixedFunctionTransform{Style: style, Params: f.list("params"), Direction: f.direction()}, nil
}

var ecStyles = map[string]colorio.ExposureContrastStyle{
	"linear": colorio.ExposureContrastLinear,
	"video":  colorio.ExposureContrastVideo,
	"log":    colorio.ExposureContrastLogarithmic,
}

func decodeExposureContrast(_ *parser, f *fields) (colorio.Transform, error) {
	s := strings.ToLower(f.str("style"))
	if s == "" {
		s = "linear"
	}
	style, ok := ecStyles[s]
	if !ok {
		f.fail(f.node, "unknown exposure contrast style %q", s)
	}
	t := colorio.NewExposureContrastTransform(style)
	t.Exposure, t.DynamicExposure = f.dynamic("exposure", 0)
	t.Contrast, t.DynamicContrast = f.dynamic("contrast", 1)
	t.Gamma, t.DynamicGamma = f.dynamic("gamma", 1)
	t.Pivot = f.float("pivot", t.Pivot)
	t.LogExposureStep = f.float("log_exposure_step", t.LogExposureStep)
	t.LogMidGray = f.float("log_midway_gray", t.LogMidGray)
	t.Direction = f.direction()
	return t, nil
}

// dynamic reads a number or a {value, dynamic} mapping.
func (f *fields) dynamic(key string, def float64) (float64, bool) {
	n, ok := f.get(key)
	if !ok {
		return def, false
	}
	if n.Kind == yaml.ScalarNode {
		return f.scalar(key, n), false
	}
	var d struct {
		Value   *float64 `yaml:"value"`
		Dynamic bool     `yaml:"dynamic"`
	}
	if err := n.Decode(&d); err != nil {
		f.fail(n, "%s: %v", key, err)
		return def, false
	}
	if d.Value == nil {
		return def, d.Dynamic
	}
	return *d.Value, d.Dynamic
}

func decodeAllocation(_ *parser, f *fields) (colorio.Transform, error) {
	kind, ok := allocationKinds[strings.ToLower(f.str("allocation"))]
	if !ok {
		f.fail(f.node, "unknown allocation %q", f.m["allocation"].Value)
	}
	return &colorio.AllocationTransform{Kind: kind, Vars: f.list("vars"), Direction: f.direction()}, nil
}

