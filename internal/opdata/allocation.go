package opdata

// AllocationKind selects how a value range is fitted into a GPU texture.
type AllocationKind uint8

// Allocation kinds.
const (
	AllocationUniform AllocationKind = iota
	AllocationLg2
)

func (k AllocationKind) String() string {
	if k == AllocationLg2 {
		return "lg2"
	}
	return "uniform"
}

// Allocation records how values are distributed. It never changes pixels;
// it survives only until optimization as a GPU range hint.
type Allocation struct {
	base
	Kind AllocationKind
	Vars []float64
}

// NewAllocation returns an allocation hint.
func NewAllocation(kind AllocationKind, vars ...float64) *Allocation {
	return &Allocation{base: newBase(), Kind: kind, Vars: vars}
}

func (a *Allocation) Type() Type { return TypeAllocation }

func (a *Allocation) Validate() error {
	switch a.Kind {
	case AllocationUniform:
		if n := len(a.Vars); n != 0 && n != 2 {
			return validationErrorf("allocation: uniform takes 0 or 2 vars, got %d", n)
		}
	case AllocationLg2:
		if n := len(a.Vars); n != 0 && n != 2 && n != 3 {
			return validationErrorf("allocation: lg2 takes 0, 2 or 3 vars, got %d", n)
		}
	default:
		return validationErrorf("allocation: unknown kind %d", a.Kind)
	}
	return nil
}

// Range returns the fitted interval and the lg2 offset, with defaults for
// omitted vars.
func (a *Allocation) Range() (lo, hi, offset float64) {
	lo, hi = 0, 1
	if a.Kind == AllocationLg2 {
		lo, hi = -10, 6
	}
	if len(a.Vars) >= 2 {
		lo, hi = a.Vars[0], a.Vars[1]
	}
	if len(a.Vars) == 3 {
		offset = a.Vars[2]
	}
	return lo, hi, offset
}

func (a *Allocation) IsIdentity() bool { return true }

func (a *Allocation) IsNoOp() bool { return true }

func (a *Allocation) HasChannelCrosstalk() bool { return false }

func (a *Allocation) IdentityReplacement() Data { return nil }

func (a *Allocation) Inverse() (Data, error) { return a.Clone(), nil }

func (a *Allocation) IsInverse(other Data) bool {
	_, ok := other.(*Allocation)
	return ok
}

func (a *Allocation) Clone() Data {
	c := *a
	c.Vars = append([]float64(nil), a.Vars...)
	c.cacheID = ""
	return &c
}

func (a *Allocation) Equals(other Data) bool {
	o, ok := other.(*Allocation)
	return ok && o.Kind == a.Kind && equalSlices(a.Vars, o.Vars)
}

func (a *Allocation) Finalize() error {
	if err := a.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeAllocation, a.inDepth, a.outDepth).str("kind", a.Kind.String())
	if len(a.Vars) > 0 {
		w.floats("vars", a.Vars...)
	}
	a.cacheID = w.String()
	return nil
}
