// Package ops wraps operator records into executable ops and optimizes
// op-vectors.
//
// An [Op] pairs an [opdata.Data] record with the CPU kernel selected for
// it. A [Vec] is the ordered op-vector a processor runs. Vectors are
// mutable while transforms are built; [Vec.Finalize] returns an optimized,
// finalized copy that is safe for concurrent use.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/colorio/internal/cpu"
	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/shader"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used for optimizer diagnostics. Nil restores
// silent logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

func logger() *slog.Logger { return loggerPtr.Load() }

// Op is one step of an op-vector.
type Op struct {
	data     opdata.Data
	renderer cpu.Renderer
}

// New wraps d. The op owns d from now on.
func New(d opdata.Data) *Op {
	return &Op{data: d}
}

// Data returns the parameter record.
func (o *Op) Data() opdata.Data { return o.data }

// Type returns the operator variant.
func (o *Op) Type() opdata.Type { return o.data.Type() }

// IsFinalized reports whether the op has a kernel.
func (o *Op) IsFinalized() bool { return o.renderer != nil }

// Finalize validates the record, computes its cache-ID and selects the
// kernel. Finalizing twice is a no-op.
func (o *Op) Finalize() error {
	if o.renderer != nil {
		return nil
	}
	if err := o.data.Finalize(); err != nil {
		return err
	}
	r, err := cpu.NewRenderer(o.data)
	if err != nil {
		return err
	}
	o.renderer = r
	return nil
}

// CacheID returns the fingerprint of the finalized record.
func (o *Op) CacheID() string { return o.data.CacheID() }

// Clone returns an unfinalized deep copy.
func (o *Op) Clone() *Op {
	return &Op{data: o.data.Clone()}
}

// Inverse returns an op computing the inverse function.
func (o *Op) Inverse() (*Op, error) {
	d, err := o.data.Inverse()
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// Apply transforms n RGBA pixels of buf in place. The op must be finalized.
func (o *Op) Apply(buf []float32, n int) {
	o.renderer.Apply(buf, buf, n)
}

// EmitShader appends the op's code to b as op number index.
func (o *Op) EmitShader(b *shader.Builder, index int) error {
	return b.Emit(index, o.data)
}

func (o *Op) String() string {
	return fmt.Sprintf("%s %s→%s", o.data.Type(), o.data.InputBitDepth(), o.data.OutputBitDepth())
}
