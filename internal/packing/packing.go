// Package packing converts host pixel buffers to and from the interleaved
// RGBA float32 rows the CPU kernels work on.
//
// Values are copied raw: an 8-bit 255 unpacks to 255.0, not 1.0. Scaling
// between bit depths is done by the op chain, so packing only reorders
// channels, widens and narrows storage, and rounds and clamps integer output.
package packing

import (
	"errors"
	"fmt"
	"math"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/gogpu/colorio/internal/opdata"
)

// ErrLayout is returned for buffer descriptions that do not fit their data.
var ErrLayout = errors.New("packing: invalid layout")

// ChannelOrder is the storage order of the channels of a pixel.
type ChannelOrder uint8

// Channel orders.
const (
	OrderRGBA ChannelOrder = iota
	OrderBGRA
	OrderABGR
	OrderRGB
	OrderBGR

	orderCount
)

// orderInfo maps storage slots to RGBA components.
type orderInfo struct {
	name     string
	channels int
	// slot[i] is the RGBA component stored at channel i.
	slot [4]int
}

var orderTable = [orderCount]orderInfo{
	OrderRGBA: {name: "RGBA", channels: 4, slot: [4]int{0, 1, 2, 3}},
	OrderBGRA: {name: "BGRA", channels: 4, slot: [4]int{2, 1, 0, 3}},
	OrderABGR: {name: "ABGR", channels: 4, slot: [4]int{3, 2, 1, 0}},
	OrderRGB:  {name: "RGB", channels: 3, slot: [4]int{0, 1, 2, -1}},
	OrderBGR:  {name: "BGR", channels: 3, slot: [4]int{2, 1, 0, -1}},
}

// NumChannels returns 3 or 4.
func (o ChannelOrder) NumChannels() int {
	if o >= orderCount {
		return 0
	}
	return orderTable[o].channels
}

func (o ChannelOrder) String() string {
	if o >= orderCount {
		return fmt.Sprintf("ChannelOrder(%d)", o)
	}
	return orderTable[o].name
}

// ElemSize returns the storage size in bytes of one channel value.
func ElemSize(d opdata.BitDepth) int {
	switch d {
	case opdata.BitDepthUInt8:
		return 1
	case opdata.BitDepthUInt10, opdata.BitDepthUInt12, opdata.BitDepthUInt16, opdata.BitDepthF16:
		return 2
	case opdata.BitDepthF32:
		return 4
	}
	return 0
}

// Layout describes a packed image. Strides are in bytes; zero means the
// tightly packed default.
type Layout struct {
	Order         ChannelOrder
	Depth         opdata.BitDepth
	Width, Height int
	ChanStride    int
	XStride       int
	YStride       int
}

// Resolve validates the layout against data and fills in default strides.
// Data must be a []uint8, []uint16, []hwy.Float16 or []float32 matching
// the bit depth.
func (l *Layout) Resolve(data any) error {
	if l.Order >= orderCount {
		return fmt.Errorf("%w: unknown channel order %d", ErrLayout, l.Order)
	}
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrLayout, l.Width, l.Height)
	}
	elem := ElemSize(l.Depth)
	if elem == 0 {
		return fmt.Errorf("%w: unsupported bit depth %s", ErrLayout, l.Depth)
	}
	n, err := dataLen(data, l.Depth)
	if err != nil {
		return err
	}
	if l.ChanStride == 0 {
		l.ChanStride = elem
	}
	if l.XStride == 0 {
		l.XStride = l.ChanStride * l.Order.NumChannels()
	}
	if l.YStride == 0 {
		l.YStride = l.XStride * l.Width
	}
	for _, s := range [...]int{l.ChanStride, l.XStride, l.YStride} {
		if s <= 0 || s%elem != 0 {
			return fmt.Errorf("%w: stride %d is not a positive multiple of %d", ErrLayout, s, elem)
		}
	}
	last := (l.Height-1)*l.YStride + (l.Width-1)*l.XStride + (l.Order.NumChannels()-1)*l.ChanStride
	if last/elem >= n {
		return fmt.Errorf("%w: %d elements cannot hold a %dx%d %s image", ErrLayout, n, l.Width, l.Height, l.Order)
	}
	return nil
}

func dataLen(data any, d opdata.BitDepth) (int, error) {
	switch v := data.(type) {
	case []uint8:
		if d == opdata.BitDepthUInt8 {
			return len(v), nil
		}
	case []uint16:
		if d == opdata.BitDepthUInt10 || d == opdata.BitDepthUInt12 || d == opdata.BitDepthUInt16 {
			return len(v), nil
		}
	case []hwy.Float16:
		if d == opdata.BitDepthF16 {
			return len(v), nil
		}
	case []float32:
		if d == opdata.BitDepthF32 {
			return len(v), nil
		}
	default:
		return 0, fmt.Errorf("%w: unsupported buffer type %T", ErrLayout, data)
	}
	return 0, fmt.Errorf("%w: %T buffer cannot hold %s values", ErrLayout, data, d)
}

// UnpackRow reads row y of data into dst as RGBA float32. dst must hold
// 4·Width values. Missing alpha is set to the maximum value of the depth.
func UnpackRow(data any, l *Layout, y int, dst []float32) {
	info := &orderTable[l.Order]
	elem := ElemSize(l.Depth)
	alpha := float32(l.Depth.MaxValue())
	row := y * l.YStride
	for x := 0; x < l.Width; x++ {
		px := dst[4*x : 4*x+4]
		px[3] = alpha
		for ch := 0; ch < info.channels; ch++ {
			i := (row + x*l.XStride + ch*l.ChanStride) / elem
			px[info.slot[ch]] = load(data, i)
		}
	}
}

// PackRow writes the RGBA float32 values of src into row y of data. Integer
// depths are rounded and clamped to [0, MaxValue]; alpha is dropped for
// three-channel orders.
func PackRow(src []float32, data any, l *Layout, y int) {
	info := &orderTable[l.Order]
	elem := ElemSize(l.Depth)
	row := y * l.YStride
	for x := 0; x < l.Width; x++ {
		px := src[4*x : 4*x+4]
		for ch := 0; ch < info.channels; ch++ {
			i := (row + x*l.XStride + ch*l.ChanStride) / elem
			store(data, i, px[info.slot[ch]], l.Depth)
		}
	}
}

func load(data any, i int) float32 {
	switch v := data.(type) {
	case []uint8:
		return float32(v[i])
	case []uint16:
		return float32(v[i])
	case []hwy.Float16:
		return hwy.Float16ToFloat32(v[i])
	case []float32:
		return v[i]
	}
	return 0
}

func store(data any, i int, f float32, d opdata.BitDepth) {
	switch v := data.(type) {
	case []uint8:
		v[i] = uint8(quantize(f, 255))
	case []uint16:
		v[i] = uint16(quantize(f, float32(d.MaxValue())))
	case []hwy.Float16:
		v[i] = hwy.Float32ToFloat16(f)
	case []float32:
		v[i] = f
	}
}

// quantize rounds half up and clamps to [0, hi]; NaN maps to 0.
func quantize(f, hi float32) float32 {
	if !(f > 0) {
		return 0
	}
	if f >= hi {
		return hi
	}
	return float32(math.Floor(float64(f) + 0.5))
}
