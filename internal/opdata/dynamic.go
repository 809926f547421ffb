package opdata

import (
	"math"
	"sync/atomic"
)

// DynamicKind identifies a property a host may change after finalization.
type DynamicKind uint8

// Dynamic property kinds.
const (
	DynamicExposure DynamicKind = iota + 1
	DynamicContrast
	DynamicGamma
)

func (k DynamicKind) String() string {
	switch k {
	case DynamicExposure:
		return "exposure"
	case DynamicContrast:
		return "contrast"
	case DynamicGamma:
		return "gamma"
	default:
		return "unknown"
	}
}

// DynamicProperty is a float64 value shared between an op, its CPU kernel
// and the GPU uniform table. Reads and writes are atomic: a reader racing a
// write observes either the old or the new value.
type DynamicProperty struct {
	kind DynamicKind
	bits atomic.Uint64
}

// NewDynamicProperty returns a property of the given kind holding v.
func NewDynamicProperty(kind DynamicKind, v float64) *DynamicProperty {
	p := &DynamicProperty{kind: kind}
	p.SetValue(v)
	return p
}

// Kind returns the property kind.
func (p *DynamicProperty) Kind() DynamicKind { return p.kind }

// Value returns the current value.
func (p *DynamicProperty) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}

// SetValue stores v.
func (p *DynamicProperty) SetValue(v float64) {
	p.bits.Store(math.Float64bits(v))
}
