package colorio

import (
	"github.com/gogpu/colorio/internal/ops"
	"github.com/gogpu/colorio/internal/packing"
)

// rgbChunk is the number of pixels ApplyRGB widens to RGBA at a time.
const rgbChunk = 256

// CPUProcessor runs a finalized op chain on pixel buffers. It is safe for
// concurrent use; every call works on its own scratch memory.
type CPUProcessor struct {
	ops     ops.Vec
	in, out BitDepth
	flags   OptimizationFlags
	cacheID string
}

func newCPUProcessor(src ops.Vec, in, out BitDepth, flags OptimizationFlags) (*CPUProcessor, error) {
	v, err := src.Finalize(in, out, flags)
	if err != nil {
		return nil, classify("cpu processor", err)
	}
	return &CPUProcessor{ops: v, in: in, out: out, flags: flags, cacheID: v.CacheID(flags)}, nil
}

// InputBitDepth returns the depth of the values Apply reads.
func (p *CPUProcessor) InputBitDepth() BitDepth { return p.in }

// OutputBitDepth returns the depth of the values Apply writes.
func (p *CPUProcessor) OutputBitDepth() BitDepth { return p.out }

// CacheID identifies the finalized op chain.
func (p *CPUProcessor) CacheID() string { return p.cacheID }

// IsNoOp reports whether the processor leaves pixels unchanged.
func (p *CPUProcessor) IsNoOp() bool { return p.ops.IsNoOp() }

// HasChannelCrosstalk reports whether an output channel depends on more
// than one input channel.
func (p *CPUProcessor) HasChannelCrosstalk() bool { return p.ops.HasChannelCrosstalk() }

// OpTypes lists the ops left after optimization.
func (p *CPUProcessor) OpTypes() []OpType { return p.ops.Types() }

// ApplyPixel transforms one RGBA pixel.
func (p *CPUProcessor) ApplyPixel(px [4]float32) [4]float32 {
	buf := px[:]
	p.ops.Apply(buf, 1)
	return px
}

// ApplyRGBA transforms packed RGBA float values in place. len(buf) must be
// a multiple of 4.
func (p *CPUProcessor) ApplyRGBA(buf []float32) error {
	if len(buf)%4 != 0 {
		return argErrorf("buffer", "length %d is not a multiple of 4", len(buf))
	}
	p.ops.Apply(buf, len(buf)/4)
	return nil
}

// ApplyRGB transforms packed RGB float values in place. len(buf) must be a
// multiple of 3. Alpha is taken as 1.
func (p *CPUProcessor) ApplyRGB(buf []float32) error {
	if len(buf)%3 != 0 {
		return argErrorf("buffer", "length %d is not a multiple of 3", len(buf))
	}
	scratch := make([]float32, 4*rgbChunk)
	for start := 0; start < len(buf)/3; start += rgbChunk {
		n := min(rgbChunk, len(buf)/3-start)
		rgb := buf[3*start : 3*(start+n)]
		for i := range n {
			scratch[4*i], scratch[4*i+1], scratch[4*i+2], scratch[4*i+3] = rgb[3*i], rgb[3*i+1], rgb[3*i+2], 1
		}
		p.ops.Apply(scratch, n)
		for i := range n {
			rgb[3*i], rgb[3*i+1], rgb[3*i+2] = scratch[4*i], scratch[4*i+1], scratch[4*i+2]
		}
	}
	return nil
}

// Apply transforms img in place.
func (p *CPUProcessor) Apply(img ImageDesc) error {
	return p.ApplyTo(img, img)
}

// ApplyTo reads src, transforms it and writes dst. Both images must have
// the same size; a packed src must hold values of the input bit depth and
// a packed dst values of the output bit depth, and planar images need
// float32 ends. Nothing is written when validation fails.
func (p *CPUProcessor) ApplyTo(src, dst ImageDesc) error {
	if src == nil || dst == nil {
		return argErrorf("image", "nil image")
	}
	sw, sh := src.imageSize()
	dw, dh := dst.imageSize()
	if sw != dw || sh != dh {
		return argErrorf("image", "source is %dx%d, destination is %dx%d", sw, sh, dw, dh)
	}
	read, err := p.reader(src)
	if err != nil {
		return err
	}
	write, err := p.writer(dst)
	if err != nil {
		return err
	}
	row := make([]float32, 4*sw)
	for y := range sh {
		read(y, row)
		p.ops.Apply(row, sw)
		write(row, y)
	}
	return nil
}

func (p *CPUProcessor) reader(img ImageDesc) (func(y int, dst []float32), error) {
	switch d := img.(type) {
	case *PackedImageDesc:
		l, err := d.layout()
		if err != nil {
			return nil, err
		}
		if l.Depth != p.in {
			return nil, argErrorf("image", "source bit depth %s does not match processor input %s", l.Depth, p.in)
		}
		return func(y int, dst []float32) { packing.UnpackRow(d.Data, l, y, dst) }, nil
	case *PlanarImageDesc:
		if err := d.validate(); err != nil {
			return nil, err
		}
		if p.in != BitDepthF32 {
			return nil, argErrorf("image", "planar images need a 32f processor input, have %s", p.in)
		}
		return d.unpackRow, nil
	}
	return nil, argErrorf("image", "unsupported image description %T", img)
}

func (p *CPUProcessor) writer(img ImageDesc) (func(src []float32, y int), error) {
	switch d := img.(type) {
	case *PackedImageDesc:
		l, err := d.layout()
		if err != nil {
			return nil, err
		}
		if l.Depth != p.out {
			return nil, argErrorf("image", "destination bit depth %s does not match processor output %s", l.Depth, p.out)
		}
		return func(src []float32, y int) { packing.PackRow(src, d.Data, l, y) }, nil
	case *PlanarImageDesc:
		if err := d.validate(); err != nil {
			return nil, err
		}
		if p.out != BitDepthF32 {
			return nil, argErrorf("image", "planar images need a 32f processor output, have %s", p.out)
		}
		return d.packRow, nil
	}
	return nil, argErrorf("image", "unsupported image description %T", img)
}
