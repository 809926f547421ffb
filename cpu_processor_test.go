package colorio

import (
	"errors"
	"testing"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/google/go-cmp/cmp"
)

// halveProcessor returns a processor scaling RGB by 0.5.
func halveProcessor(t *testing.T, in, out BitDepth) *CPUProcessor {
	t.Helper()
	cfg := RawConfig(WithEnvProvider(MapEnv{}))
	p, err := cfg.Processor(nil, MatrixScale([4]float64{0.5, 0.5, 0.5, 1}), Forward)
	if err != nil {
		t.Fatal(err)
	}
	c, err := p.OptimizedCPUProcessor(in, out, OptimizationDefault)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestApplyPackedUint8(t *testing.T) {
	c := halveProcessor(t, BitDepthUInt8, BitDepthUInt8)
	data := []uint8{200, 100, 50, 255, 10, 20, 30, 128}
	img := &PackedImageDesc{Data: data, Width: 2, Height: 1}
	if err := c.Apply(img); err != nil {
		t.Fatal(err)
	}
	want := []uint8{100, 50, 25, 255, 5, 10, 15, 128}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPackedBGRFloat(t *testing.T) {
	c := halveProcessor(t, BitDepthF32, BitDepthF32)
	data := []float32{
		0.2, 0.4, 0.8, // row 0: B G R
		1, 1, 1,
		0, 0, 0, // padding
		2, 4, 6, // row 1
		0, 0, 0,
		0, 0, 0,
	}
	img := &PackedImageDesc{
		Data:         data,
		Width:        2,
		Height:       2,
		NumChannels:  3,
		ChannelOrder: ChannelOrderBGRA,
		YStride:      9 * 4,
	}
	if err := c.Apply(img); err != nil {
		t.Fatal(err)
	}
	want := []float32{0.1, 0.2, 0.4, 0.5, 0.5, 0.5, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyToConvertsDepth(t *testing.T) {
	c := halveProcessor(t, BitDepthF32, BitDepthF16)
	src := &PackedImageDesc{Data: []float32{1, 0.5, 0.25, 1}, Width: 1, Height: 1}
	out := make([]hwy.Float16, 4)
	dst := &PackedImageDesc{Data: out, Width: 1, Height: 1}
	if err := c.ApplyTo(src, dst); err != nil {
		t.Fatal(err)
	}
	got := []float32{hwy.Float16ToFloat32(out[0]), hwy.Float16ToFloat32(out[1]), hwy.Float16ToFloat32(out[2])}
	if diff := cmp.Diff([]float32{0.5, 0.25, 0.125}, got); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPlanar(t *testing.T) {
	c := halveProcessor(t, BitDepthF32, BitDepthF32)
	img := &PlanarImageDesc{
		R:     []float32{1, 2},
		G:     []float32{3, 4},
		B:     []float32{5, 6},
		Width: 2, Height: 1,
	}
	if err := c.Apply(img); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0.5, 1}, img.R); diff != "" {
		t.Errorf("R mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{2.5, 3}, img.B); diff != "" {
		t.Errorf("B mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRGB(t *testing.T) {
	c := halveProcessor(t, BitDepthF32, BitDepthF32)
	buf := make([]float32, 3*(rgbChunk+5))
	for i := range buf {
		buf[i] = 1
	}
	if err := c.ApplyRGB(buf); err != nil {
		t.Fatal(err)
	}
	for i, v := range buf {
		if v != 0.5 {
			t.Fatalf("buf[%d] = %v, want 0.5", i, v)
		}
	}
	if err := c.ApplyRGB(make([]float32, 4)); !errors.Is(err, ErrArgument) {
		t.Errorf("ApplyRGB(len 4) err = %v", err)
	}
	if err := c.ApplyRGBA(make([]float32, 3)); !errors.Is(err, ErrArgument) {
		t.Errorf("ApplyRGBA(len 3) err = %v", err)
	}
}

func TestApplyRejectsBadDescriptors(t *testing.T) {
	c := halveProcessor(t, BitDepthF32, BitDepthF32)
	tests := []struct {
		name string
		img  ImageDesc
	}{
		{"short buffer", &PackedImageDesc{Data: make([]float32, 7), Width: 2, Height: 1}},
		{"depth mismatch", &PackedImageDesc{Data: make([]uint8, 8), Width: 2, Height: 1}},
		{"wrong element type", &PackedImageDesc{Data: make([]int, 8), Width: 2, Height: 1}},
		{"channel count", &PackedImageDesc{Data: make([]float32, 8), Width: 2, Height: 1, NumChannels: 2}},
		{"zero size", &PackedImageDesc{Data: make([]float32, 8)}},
		{"unaligned stride", &PackedImageDesc{Data: make([]float32, 16), Width: 2, Height: 1, XStride: 10}},
		{"short plane", &PlanarImageDesc{R: make([]float32, 4), G: make([]float32, 4), B: make([]float32, 3), Width: 2, Height: 2}},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Apply(tt.img); !errors.Is(err, ErrArgument) {
				t.Errorf("Apply() err = %v, want an argument error", err)
			}
		})
	}

	// Nothing is written when the destination is invalid.
	src := []float32{1, 1, 1, 1}
	err := c.ApplyTo(&PackedImageDesc{Data: src, Width: 1, Height: 1}, &PackedImageDesc{Data: make([]uint8, 4), Width: 1, Height: 1})
	if !errors.Is(err, ErrArgument) {
		t.Errorf("ApplyTo() err = %v", err)
	}
	if src[0] != 1 {
		t.Error("source modified by a failed call")
	}
}

func BenchmarkApplyRGBA(b *testing.B) {
	cfg := RawConfig(WithEnvProvider(MapEnv{}))
	g := &GroupTransform{Children: []Transform{
		MatrixSat(0.9, [3]float64{0.2126, 0.7152, 0.0722}),
		srgbEncode(),
	}}
	p, err := cfg.Processor(nil, g, Forward)
	if err != nil {
		b.Fatal(err)
	}
	c, err := p.DefaultCPUProcessor()
	if err != nil {
		b.Fatal(err)
	}
	buf := make([]float32, 4*1024)
	for i := range buf {
		buf[i] = float32(i%256) / 255
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(buf) * 4))
	for b.Loop() {
		_ = c.ApplyRGBA(buf)
	}
}
