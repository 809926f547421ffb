package ops

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/crypto/blake2b"

	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/shader"
)

// Vec is an ordered op-vector. Op i+1 consumes the output of op i.
type Vec []*Op

// Of wraps records into a vector.
func Of(ds ...opdata.Data) Vec {
	return lo.Map(ds, func(d opdata.Data, _ int) *Op { return New(d) })
}

// Clone returns an unfinalized deep copy of v.
func (v Vec) Clone() Vec {
	return lo.Map(v, func(o *Op, _ int) *Op { return o.Clone() })
}

// Inverse returns the vector computing the inverse of v: ops in reverse
// order, each inverted.
func (v Vec) Inverse() (Vec, error) {
	out := make(Vec, len(v))
	for i, o := range v {
		inv, err := o.Inverse()
		if err != nil {
			return nil, fmt.Errorf("ops: invert %s op %d: %w", o.Type(), i, err)
		}
		out[len(v)-1-i] = inv
	}
	return out, nil
}

// Types lists the variant of every op.
func (v Vec) Types() []opdata.Type {
	return lo.Map(v, func(o *Op, _ int) opdata.Type { return o.Type() })
}

// IsNoOp reports whether v leaves every pixel unchanged.
func (v Vec) IsNoOp() bool {
	return lo.EveryBy(v, func(o *Op) bool { return o.data.IsNoOp() })
}

// HasChannelCrosstalk reports whether any op mixes channels.
func (v Vec) HasChannelCrosstalk() bool {
	return lo.SomeBy(v, func(o *Op) bool { return o.data.HasChannelCrosstalk() })
}

// Validate checks the parameters of every op.
func (v Vec) Validate() error {
	for i, o := range v {
		if err := o.data.Validate(); err != nil {
			return fmt.Errorf("ops: %s op %d: %w", o.Type(), i, err)
		}
	}
	return nil
}

// Finalize returns an optimized, finalized copy of v that reads values of
// depth in and writes values of depth out. v itself is left untouched.
// Finalizing a finalized vector with the same arguments yields the same
// cache-ID.
func (v Vec) Finalize(in, out opdata.BitDepth, flags Flags) (Vec, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	w := make(Vec, 0, len(v)+2)
	if in != opdata.BitDepthF32 {
		w = append(w, New(opdata.NewBitDepthRange(in, opdata.BitDepthF32)))
	}
	for _, o := range v {
		w = append(w, normalizeDepths(o.Clone())...)
	}
	if out != opdata.BitDepthF32 {
		w = append(w, New(opdata.NewBitDepthRange(opdata.BitDepthF32, out)))
	}

	w, err := Optimize(w, flags)
	if err != nil {
		return nil, err
	}
	w.ShareDynamicProperties()
	for i, o := range w {
		if err := o.Finalize(); err != nil {
			return nil, fmt.Errorf("ops: finalize %s op %d: %w", o.Type(), i, err)
		}
	}
	return w, nil
}

// normalizeDepths wraps ops whose kernels assume float values between
// bit-depth conversions. Matrix and Range honor their depths directly.
func normalizeDepths(o *Op) Vec {
	switch o.Type() {
	case opdata.TypeMatrix, opdata.TypeRange:
		return Vec{o}
	}
	d := o.data
	in, out := d.InputBitDepth(), d.OutputBitDepth()
	var w Vec
	if in != opdata.BitDepthF32 {
		w = append(w, New(opdata.NewBitDepthRange(in, opdata.BitDepthF32)))
		d.SetInputBitDepth(opdata.BitDepthF32)
	}
	w = append(w, o)
	if out != opdata.BitDepthF32 {
		d.SetOutputBitDepth(opdata.BitDepthF32)
		w = append(w, New(opdata.NewBitDepthRange(opdata.BitDepthF32, out)))
	}
	return w
}

// ShareDynamicProperties makes every dynamic exposure/contrast op read the
// property handle of the first op declaring that kind dynamic.
func (v Vec) ShareDynamicProperties() {
	shared := map[opdata.DynamicKind]*opdata.DynamicProperty{}
	for _, o := range v {
		ec, ok := o.data.(*opdata.ExposureContrast)
		if !ok {
			continue
		}
		for _, kind := range [...]opdata.DynamicKind{opdata.DynamicExposure, opdata.DynamicContrast, opdata.DynamicGamma} {
			if !ec.Dynamic[kind] {
				continue
			}
			if p, ok := shared[kind]; ok {
				ec.ReplaceProperty(p)
			} else {
				shared[kind] = ec.Property(kind)
			}
		}
	}
}

// DynamicProperty returns the handle of the given kind, or nil when no op
// declares it dynamic.
func (v Vec) DynamicProperty(kind opdata.DynamicKind) *opdata.DynamicProperty {
	for _, o := range v {
		if ec, ok := o.data.(*opdata.ExposureContrast); ok && ec.Dynamic[kind] {
			return ec.Property(kind)
		}
	}
	return nil
}

// HasDynamicProperties reports whether any op reads a dynamic property.
func (v Vec) HasDynamicProperties() bool {
	return lo.SomeBy(v, func(o *Op) bool {
		ec, ok := o.data.(*opdata.ExposureContrast)
		return ok && ec.IsDynamic()
	})
}

// CacheID returns the blake2b-256 digest of the op cache-IDs in order and
// the flag word. The ops must be finalized.
func (v Vec) CacheID(flags Flags) string {
	h, _ := blake2b.New256(nil)
	for _, o := range v {
		h.Write([]byte(o.CacheID()))
		h.Write([]byte{0})
	}
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], uint32(flags))
	h.Write(word[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Apply runs every op on n RGBA pixels of buf in place.
func (v Vec) Apply(buf []float32, n int) {
	for _, o := range v {
		o.Apply(buf, n)
	}
}

// EmitShader appends the code of every op to b. On error the ops emitted
// so far stay in b; callers discard the builder.
func (v Vec) EmitShader(b *shader.Builder) error {
	for i, o := range v {
		if err := o.EmitShader(b, i); err != nil {
			return err
		}
	}
	return nil
}
