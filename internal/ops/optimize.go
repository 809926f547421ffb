package ops

import (
	"strconv"
	"strings"

	"github.com/gogpu/colorio/internal/cpu"
	"github.com/gogpu/colorio/internal/opdata"
)

// Flags selects optimizer rules.
type Flags uint32

// Optimizer rules.
const (
	FlagIdentity Flags = 1 << iota
	FlagInversePairs
	FlagComposition
	FlagReplacement
	FlagBitDepth
	FlagLutDomain
	// FlagLossy lets rules fire when the result is only approximately
	// equal.
	FlagLossy

	FlagNone     Flags = 0
	FlagLossless       = FlagIdentity | FlagInversePairs | FlagComposition | FlagReplacement | FlagBitDepth | FlagLutDomain
	FlagDefault        = FlagLossless
	FlagAll            = FlagLossless | FlagLossy
)

var flagNames = [...]string{"identity", "inverse-pairs", "composition", "replacement", "bit-depth", "lut-domain", "lossy"}

func (f Flags) String() string {
	if f == FlagNone {
		return "none"
	}
	var names []string
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return strings.Join(names, "|")
}

// ParseFlags parses a decimal or 0x-prefixed hexadecimal flag word.
func ParseFlags(s string) (Flags, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return Flags(v), nil
}

// MaxPasses bounds the optimizer fixed-point loop.
const MaxPasses = 8

// Optimize rewrites v under the rules enabled by flags until no rule
// fires. The records in v may be modified or dropped; callers pass a
// vector they own.
func Optimize(v Vec, flags Flags) (Vec, error) {
	if flags == FlagNone {
		return v, nil
	}
	start := len(v)
	for pass := 1; ; pass++ {
		var changed bool
		for _, rule := range rules {
			if flags&rule.flag == 0 {
				continue
			}
			var c bool
			v, c = rule.fn(v, flags)
			changed = changed || c
		}
		if !changed {
			logger().Debug("ops: optimized", "passes", pass, "in", start, "out", len(v), "flags", flags)
			return v, nil
		}
		if pass == MaxPasses {
			logger().Debug("ops: optimizer pass limit reached", "passes", pass, "in", start, "out", len(v), "flags", flags)
			return v, nil
		}
	}
}

type rule struct {
	flag Flags
	fn   func(v Vec, flags Flags) (Vec, bool)
}

var rules = [...]rule{
	{FlagIdentity, removeIdentities},
	{FlagInversePairs, removeInversePairs},
	{FlagComposition, composePairs},
	{FlagReplacement, replaceIdentities},
	{FlagBitDepth, normalizeInteriorDepths},
	{FlagLutDomain, removeLutDomainClamps},
}

func removeIdentities(v Vec, _ Flags) (Vec, bool) {
	out := v[:0]
	for _, o := range v {
		if !o.data.IsNoOp() {
			out = append(out, o)
		}
	}
	return out, len(out) != len(v)
}

func removeInversePairs(v Vec, _ Flags) (Vec, bool) {
	var changed bool
	out := make(Vec, 0, len(v))
	for _, o := range v {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Type() == o.Type() && prev.data.IsInverse(o.data) {
				out = out[:n-1]
				changed = true
				continue
			}
		}
		out = append(out, o)
	}
	return out, changed
}

// composePairs merges adjacent ops into one when a composition exists.
func composePairs(v Vec, flags Flags) (Vec, bool) {
	var changed bool
	out := make(Vec, 0, len(v))
	for _, o := range v {
		if n := len(out); n > 0 {
			if c := compose(out[n-1].data, o.data, flags); c != nil {
				out[n-1] = New(c)
				changed = true
				continue
			}
		}
		out = append(out, o)
	}
	return out, changed
}

// compose returns the single record computing b∘a, or nil.
func compose(a, b opdata.Data, flags Flags) opdata.Data {
	if a.OutputBitDepth() != b.InputBitDepth() {
		return nil
	}
	lossy := flags&FlagLossy != 0
	switch x := a.(type) {
	case *opdata.Matrix:
		switch y := b.(type) {
		case *opdata.Matrix:
			return x.Compose(y)
		case *opdata.Range:
			if unclipped(y) {
				return x.Compose(y.ConvertToMatrix())
			}
		}
	case *opdata.Range:
		switch y := b.(type) {
		case *opdata.Matrix:
			if unclipped(x) {
				return x.ConvertToMatrix().Compose(y)
			}
		case *opdata.Range:
			if c, ok := opdata.ComposeRanges(x, y); ok {
				return c
			}
		}
	case *opdata.Gamma:
		if y, ok := b.(*opdata.Gamma); ok {
			if c, ok := opdata.ComposeGammas(x, y); ok {
				return c
			}
		}
	case *opdata.Exponent:
		if y, ok := b.(*opdata.Exponent); ok && x.Negative == opdata.NegativeClamp {
			if c, ok := opdata.ComposeExponents(x, y); ok {
				return c
			}
		}
	case *opdata.Log:
		if y, ok := b.(*opdata.Log); ok && lossy {
			if c, ok := opdata.ComposeLogs(x, y); ok {
				return c
			}
		}
	case *opdata.Lut1D:
		if y, ok := b.(*opdata.Lut1D); ok && lossy && !x.Inverted && !y.Inverted {
			if c, ok := opdata.ComposeLut1D(x, y, evalLut1D()); ok {
				return c
			}
		}
	}
	return nil
}

func unclipped(r *opdata.Range) bool {
	return !r.MinClips() && !r.MaxClips()
}

// evalLut1D returns an evaluator reusing one kernel per table.
func evalLut1D() func(*opdata.Lut1D, *[3]float32) {
	kernels := map[*opdata.Lut1D]cpu.Renderer{}
	return func(l *opdata.Lut1D, rgb *[3]float32) {
		r, ok := kernels[l]
		if !ok {
			var err error
			if r, err = cpu.NewRenderer(l); err != nil {
				r = nil
			}
			kernels[l] = r
		}
		if r == nil {
			return
		}
		px := [4]float32{rgb[0], rgb[1], rgb[2], 1}
		cpu.ApplyPixel(r, &px)
		copy(rgb[:], px[:3])
	}
}

func replaceIdentities(v Vec, _ Flags) (Vec, bool) {
	var changed bool
	for i, o := range v {
		if r := o.data.IdentityReplacement(); r != nil {
			v[i] = New(r)
			changed = true
		}
	}
	return v, changed
}

// normalizeInteriorDepths moves every boundary between two depth-aware ops
// to float. Matrix parameters are normalized so only the depth tag
// changes; Range bounds are rescaled.
func normalizeInteriorDepths(v Vec, _ Flags) (Vec, bool) {
	var changed bool
	for i := 0; i+1 < len(v); i++ {
		a, b := v[i].data, v[i+1].data
		d := a.OutputBitDepth()
		if d == opdata.BitDepthF32 || d != b.InputBitDepth() || !depthAware(a) || !depthAware(b) {
			continue
		}
		if !d.IsFloat() && a.Type() == opdata.TypeRange {
			// The integer output clamp would be lost.
			continue
		}
		setOutputDepth(a, opdata.BitDepthF32)
		setInputDepth(b, opdata.BitDepthF32)
		changed = true
	}
	return v, changed
}

func depthAware(d opdata.Data) bool {
	t := d.Type()
	return t == opdata.TypeMatrix || t == opdata.TypeRange
}

func setInputDepth(d opdata.Data, depth opdata.BitDepth) {
	if r, ok := d.(*opdata.Range); ok {
		k := depth.MaxValue() / r.InputBitDepth().MaxValue()
		r.MinIn *= k
		r.MaxIn *= k
	}
	d.SetInputBitDepth(depth)
}

func setOutputDepth(d opdata.Data, depth opdata.BitDepth) {
	if r, ok := d.(*opdata.Range); ok {
		k := depth.MaxValue() / r.OutputBitDepth().MaxValue()
		r.MinOut *= k
		r.MaxOut *= k
	}
	d.SetOutputBitDepth(depth)
}

// removeLutDomainClamps drops a Range right before a LUT when the Range
// only clamps to bounds enclosing the domain the LUT clamps to anyway.
func removeLutDomainClamps(v Vec, _ Flags) (Vec, bool) {
	var changed bool
	out := make(Vec, 0, len(v))
	for i, o := range v {
		if r, ok := o.data.(*opdata.Range); ok && i+1 < len(v) && r.ClampsToLutDomain() && clampsToDomain(v[i+1].data) {
			changed = true
			continue
		}
		out = append(out, o)
	}
	return out, changed
}

// clampsToDomain reports whether d clamps its input to [0, 1] itself.
func clampsToDomain(d opdata.Data) bool {
	if d.InputBitDepth() != opdata.BitDepthF32 {
		return false
	}
	switch l := d.(type) {
	case *opdata.Lut1D:
		return !l.HalfDomain && !l.Inverted
	case *opdata.Lut3D:
		return !l.Inverted
	}
	return false
}

