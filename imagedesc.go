package colorio

import (
	"github.com/ajroetker/go-highway/hwy"

	"github.com/gogpu/colorio/internal/packing"
)

// ImageDesc describes a pixel buffer a CPUProcessor reads or writes. It is
// implemented by *PackedImageDesc and *PlanarImageDesc.
type ImageDesc interface {
	imageSize() (width, height int)
}

// PackedImageDesc is an interleaved buffer. Data is a []uint8, []uint16,
// []hwy.Float16 or []float32. Strides are in bytes; zero means tightly
// packed.
//
// NumChannels may be left zero. Setting it to 3 with a four-channel
// ChannelOrder selects the matching RGB or BGR order. When BitDepth is
// unknown it is taken from the element type of Data, with []uint16 read as
// 16-bit.
type PackedImageDesc struct {
	Data          any
	Width, Height int
	NumChannels   int
	ChannelOrder  ChannelOrder
	BitDepth      BitDepth
	ChanStride    int
	XStride       int
	YStride       int
}

func (d *PackedImageDesc) imageSize() (int, int) { return d.Width, d.Height }

// depth returns the declared bit depth or the one implied by Data.
func (d *PackedImageDesc) depth() BitDepth {
	if d.BitDepth != BitDepthUnknown {
		return d.BitDepth
	}
	switch d.Data.(type) {
	case []uint8:
		return BitDepthUInt8
	case []uint16:
		return BitDepthUInt16
	case []hwy.Float16:
		return BitDepthF16
	case []float32:
		return BitDepthF32
	}
	return BitDepthUnknown
}

// order reconciles NumChannels with ChannelOrder.
func (d *PackedImageDesc) order() (ChannelOrder, error) {
	o := d.ChannelOrder
	switch {
	case d.NumChannels == 0 || d.NumChannels == o.NumChannels():
		return o, nil
	case d.NumChannels == 3 && o == ChannelOrderRGBA:
		return ChannelOrderRGB, nil
	case d.NumChannels == 3 && o == ChannelOrderBGRA:
		return ChannelOrderBGR, nil
	}
	return o, argErrorf("image", "%d channels do not fit channel order %s", d.NumChannels, o)
}

// layout validates d and returns its resolved layout.
func (d *PackedImageDesc) layout() (*packing.Layout, error) {
	o, err := d.order()
	if err != nil {
		return nil, err
	}
	l := &packing.Layout{
		Order:      o,
		Depth:      d.depth(),
		Width:      d.Width,
		Height:     d.Height,
		ChanStride: d.ChanStride,
		XStride:    d.XStride,
		YStride:    d.YStride,
	}
	if err := l.Resolve(d.Data); err != nil {
		return nil, classify("image", err)
	}
	return l, nil
}

// PlanarImageDesc holds one float32 plane per channel, each Width·Height
// values long in row-major order. A is optional; when nil, alpha reads as
// 1 and is not written.
type PlanarImageDesc struct {
	R, G, B, A    []float32
	Width, Height int
}

func (d *PlanarImageDesc) imageSize() (int, int) { return d.Width, d.Height }

func (d *PlanarImageDesc) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return argErrorf("image", "size %dx%d", d.Width, d.Height)
	}
	n := d.Width * d.Height
	for _, p := range [...]struct {
		name  string
		plane []float32
	}{{"R", d.R}, {"G", d.G}, {"B", d.B}} {
		if len(p.plane) < n {
			return argErrorf("image", "plane %s holds %d values, want %d", p.name, len(p.plane), n)
		}
	}
	if d.A != nil && len(d.A) < n {
		return argErrorf("image", "plane A holds %d values, want %d", len(d.A), n)
	}
	return nil
}

func (d *PlanarImageDesc) unpackRow(y int, dst []float32) {
	off := y * d.Width
	for x := 0; x < d.Width; x++ {
		i := off + x
		px := dst[4*x : 4*x+4]
		px[0], px[1], px[2], px[3] = d.R[i], d.G[i], d.B[i], 1
		if d.A != nil {
			px[3] = d.A[i]
		}
	}
}

func (d *PlanarImageDesc) packRow(src []float32, y int) {
	off := y * d.Width
	for x := 0; x < d.Width; x++ {
		i := off + x
		px := src[4*x : 4*x+4]
		d.R[i], d.G[i], d.B[i] = px[0], px[1], px[2]
		if d.A != nil {
			d.A[i] = px[3]
		}
	}
}
