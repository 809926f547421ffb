package opdata

// BitDepth tags the numeric encoding of pixel values entering or leaving an
// op. Integer depths scale values to [0, MaxValue]; float depths keep the
// normalized [0, 1] scale.
type BitDepth uint8

// Bit depths.
const (
	BitDepthUnknown BitDepth = iota
	BitDepthUInt8
	BitDepthUInt10
	BitDepthUInt12
	BitDepthUInt16
	BitDepthF16
	BitDepthF32
)

// MaxValue returns the scale factor of d. Unknown depths behave as float.
func (d BitDepth) MaxValue() float64 {
	switch d {
	case BitDepthUInt8:
		return 255
	case BitDepthUInt10:
		return 1023
	case BitDepthUInt12:
		return 4095
	case BitDepthUInt16:
		return 65535
	default:
		return 1
	}
}

// IsFloat reports whether d is a floating-point depth.
func (d BitDepth) IsFloat() bool {
	return d == BitDepthF16 || d == BitDepthF32 || d == BitDepthUnknown
}

// String returns the short name used in cache-IDs and logs.
func (d BitDepth) String() string {
	switch d {
	case BitDepthUInt8:
		return "8i"
	case BitDepthUInt10:
		return "10i"
	case BitDepthUInt12:
		return "12i"
	case BitDepthUInt16:
		return "16i"
	case BitDepthF16:
		return "16f"
	case BitDepthF32:
		return "32f"
	default:
		return "unknown"
	}
}

// ParseBitDepth parses the names produced by String.
func ParseBitDepth(s string) (BitDepth, bool) {
	for d := BitDepthUInt8; d <= BitDepthF32; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return BitDepthUnknown, false
}

// Direction selects the forward or inverse evaluation of a transform.
type Direction uint8

// Directions.
const (
	Forward Direction = iota
	Inverse
)

// Invert returns the opposite direction.
func (d Direction) Invert() Direction {
	if d == Forward {
		return Inverse
	}
	return Forward
}

// Combine returns the effective direction of an inner transform evaluated
// inside an outer one: the result is Inverse when exactly one is Inverse.
func Combine(outer, inner Direction) Direction {
	if outer == inner {
		return Forward
	}
	return Inverse
}

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}
