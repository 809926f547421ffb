package opdata

// ECStyle selects the exposure/contrast formula family and direction.
type ECStyle uint8

// Exposure/contrast styles.
const (
	ECLinearFwd ECStyle = iota
	ECLinearRev
	ECVideoFwd
	ECVideoRev
	ECLogFwd
	ECLogRev
)

var ecStyleNames = [...]string{"linear", "linearRev", "video", "videoRev", "log", "logRev"}

func (s ECStyle) String() string {
	if int(s) < len(ecStyleNames) {
		return ecStyleNames[s]
	}
	return "unknown"
}

// IsReverse reports whether s is an inverse style.
func (s ECStyle) IsReverse() bool { return s%2 == 1 }

// Invert returns the opposite direction of the same family.
func (s ECStyle) Invert() ECStyle {
	if s.IsReverse() {
		return s - 1
	}
	return s + 1
}

// Exposure/contrast constants.
const (
	ECMinPivot    = 0.001
	ECMinContrast = 0.001
	// ECVideoOETFPower approximates the video encoding exponent.
	ECVideoOETFPower = 0.54644808743

	DefaultLogExposureStep = 0.088
	DefaultLogMidGray      = 0.435
	DefaultPivot           = 0.18
)

// ExposureContrast adjusts exposure (stops) and contrast/gamma around a
// pivot. Exposure, contrast and gamma live in dynamic properties; only
// those listed in Dynamic may change after finalization.
type ExposureContrast struct {
	base
	Style           ECStyle
	Exposure        *DynamicProperty
	Contrast        *DynamicProperty
	Gamma           *DynamicProperty
	Pivot           float64
	LogExposureStep float64
	LogMidGray      float64
	Dynamic         map[DynamicKind]bool
}

// NewExposureContrast returns a neutral exposure/contrast op.
func NewExposureContrast(style ECStyle) *ExposureContrast {
	return &ExposureContrast{
		base:            newBase(),
		Style:           style,
		Exposure:        NewDynamicProperty(DynamicExposure, 0),
		Contrast:        NewDynamicProperty(DynamicContrast, 1),
		Gamma:           NewDynamicProperty(DynamicGamma, 1),
		Pivot:           DefaultPivot,
		LogExposureStep: DefaultLogExposureStep,
		LogMidGray:      DefaultLogMidGray,
		Dynamic:         map[DynamicKind]bool{},
	}
}

func (e *ExposureContrast) Type() Type { return TypeExposureContrast }

// IsDynamic reports whether any property may change after finalization.
func (e *ExposureContrast) IsDynamic() bool {
	for _, d := range e.Dynamic {
		if d {
			return true
		}
	}
	return false
}

// Property returns the property of the given kind.
func (e *ExposureContrast) Property(kind DynamicKind) *DynamicProperty {
	switch kind {
	case DynamicExposure:
		return e.Exposure
	case DynamicContrast:
		return e.Contrast
	case DynamicGamma:
		return e.Gamma
	}
	return nil
}

// ReplaceProperty shares p as the property of its kind.
func (e *ExposureContrast) ReplaceProperty(p *DynamicProperty) {
	switch p.Kind() {
	case DynamicExposure:
		e.Exposure = p
	case DynamicContrast:
		e.Contrast = p
	case DynamicGamma:
		e.Gamma = p
	}
}

func (e *ExposureContrast) Validate() error {
	if int(e.Style) >= len(ecStyleNames) {
		return validationErrorf("exposure contrast: unknown style %d", e.Style)
	}
	if e.Exposure == nil || e.Contrast == nil || e.Gamma == nil {
		return validationErrorf("exposure contrast: missing property")
	}
	if e.Pivot < 0 {
		return validationErrorf("exposure contrast: pivot %g is negative", e.Pivot)
	}
	if e.LogExposureStep <= 0 {
		return validationErrorf("exposure contrast: log exposure step %g must be positive", e.LogExposureStep)
	}
	return nil
}

func (e *ExposureContrast) IsIdentity() bool {
	return !e.IsDynamic() && EqualScalar(e.Exposure.Value(), 0) &&
		EqualScalar(e.Contrast.Value(), 1) && EqualScalar(e.Gamma.Value(), 1)
}

func (e *ExposureContrast) IsNoOp() bool { return e.inDepth == e.outDepth && e.IsIdentity() }

func (e *ExposureContrast) HasChannelCrosstalk() bool { return false }

func (e *ExposureContrast) IdentityReplacement() Data { return nil }

func (e *ExposureContrast) Inverse() (Data, error) {
	inv := e.Clone().(*ExposureContrast)
	inv.Style = e.Style.Invert()
	inv.inDepth, inv.outDepth = e.outDepth, e.inDepth
	return inv, nil
}

func (e *ExposureContrast) sameParams(o *ExposureContrast) bool {
	return EqualScalar(e.Exposure.Value(), o.Exposure.Value()) &&
		EqualScalar(e.Contrast.Value(), o.Contrast.Value()) &&
		EqualScalar(e.Gamma.Value(), o.Gamma.Value()) &&
		EqualScalar(e.Pivot, o.Pivot) &&
		EqualScalar(e.LogExposureStep, o.LogExposureStep) &&
		EqualScalar(e.LogMidGray, o.LogMidGray)
}

// IsInverse never holds for dynamic ops: their values may diverge.
func (e *ExposureContrast) IsInverse(other Data) bool {
	o, ok := other.(*ExposureContrast)
	return ok && !e.IsDynamic() && !o.IsDynamic() && o.Style == e.Style.Invert() &&
		e.mirroredDepths(o) && e.sameParams(o)
}

// Clone copies the values into fresh properties unless they are dynamic,
// in which case the clone shares them.
func (e *ExposureContrast) Clone() Data {
	c := *e
	c.cacheID = ""
	c.Dynamic = make(map[DynamicKind]bool, len(e.Dynamic))
	for k, v := range e.Dynamic {
		c.Dynamic[k] = v
	}
	for _, kind := range [...]DynamicKind{DynamicExposure, DynamicContrast, DynamicGamma} {
		if !e.Dynamic[kind] {
			c.ReplaceProperty(NewDynamicProperty(kind, e.Property(kind).Value()))
		}
	}
	return &c
}

func (e *ExposureContrast) Equals(other Data) bool {
	o, ok := other.(*ExposureContrast)
	if !ok || o.Style != e.Style || !e.sameDepths(o) || !e.sameParams(o) {
		return false
	}
	for _, kind := range [...]DynamicKind{DynamicExposure, DynamicContrast, DynamicGamma} {
		if e.Dynamic[kind] != o.Dynamic[kind] {
			return false
		}
	}
	return true
}

// Finalize excludes dynamic values from the cache-ID.
func (e *ExposureContrast) Finalize() error {
	if err := e.Validate(); err != nil {
		return err
	}
	w := newIDWriter(TypeExposureContrast, e.inDepth, e.outDepth).str("style", e.Style.String())
	for _, kind := range [...]DynamicKind{DynamicExposure, DynamicContrast, DynamicGamma} {
		if e.Dynamic[kind] {
			w.str(kind.String(), "dynamic")
		} else {
			w.floats(kind.String(), e.Property(kind).Value())
		}
	}
	w.floats("pivot", e.Pivot, e.LogExposureStep, e.LogMidGray)
	e.cacheID = w.String()
	return nil
}
