package colorio

import (
	"sync"

	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/ops"
)

// Processor is a transform resolved against a config: an unoptimized op
// chain from which CPU and GPU processors are derived. Every processor
// derived from it shares its dynamic properties. It is safe for concurrent
// use.
type Processor struct {
	cfg   *Config
	src   ops.Vec
	flags OptimizationFlags
	def   ops.Vec

	mu   sync.Mutex
	cpus map[cpuKey]*CPUProcessor
	gpus map[OptimizationFlags]*GPUProcessor
}

type cpuKey struct {
	in, out BitDepth
	flags   OptimizationFlags
}

// Processor builds the processor of t in direction dir. A nil ctx means
// the config's current context. Processors without dynamic properties are
// cached per context, transform and direction.
func (c *Config) Processor(ctx *Context, t Transform, dir Direction) (*Processor, error) {
	if t == nil {
		return nil, argErrorf("transform", "nil transform")
	}
	if dir != Forward && dir != Inverse {
		return nil, argErrorf("transform", "unknown direction %d", dir)
	}
	if ctx == nil {
		ctx = c.CurrentContext()
	}
	key := ctx.CacheID() + "|" + transformKey(t) + "|" + dir.String()
	if c.opts.processorCache {
		if p, ok := c.processors.Get(key); ok {
			Logger().Debug("colorio: processor cache hit", "key", key)
			return p, nil
		}
	}

	b := &builder{cfg: c, ctx: ctx}
	v, err := b.build(t, dir)
	if err != nil {
		return nil, classify("transform", err)
	}
	p, err := newProcessor(c, v)
	if err != nil {
		return nil, err
	}
	if c.opts.processorCache && !p.HasDynamicProperties() {
		c.processors.Set(key, p)
	}
	Logger().Debug("colorio: processor built", "ops", len(v), "optimized", len(p.def))
	return p, nil
}

// ProcessorForSpaces builds the conversion from src to dst.
func (c *Config) ProcessorForSpaces(src, dst string, opts ...ProcessorOption) (*Processor, error) {
	o := defaultProcessorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &ColorSpaceTransform{Src: src, Dst: dst, DisableDataBypass: !o.dataBypass}
	return c.Processor(o.ctx, t, o.dir)
}

// ProcessorForDisplayView builds the conversion from src to a view of a
// display.
func (c *Config) ProcessorForDisplayView(src, display, view string, opts ...ProcessorOption) (*Processor, error) {
	o := defaultProcessorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &DisplayViewTransform{
		Src:               src,
		Display:           display,
		View:              view,
		LooksBypass:       o.looksBypass,
		DisableDataBypass: !o.dataBypass,
	}
	return c.Processor(o.ctx, t, o.dir)
}

func newProcessor(cfg *Config, v ops.Vec) (*Processor, error) {
	v.ShareDynamicProperties()
	def, err := v.Finalize(BitDepthF32, BitDepthF32, cfg.flags)
	if err != nil {
		return nil, classify("processor", err)
	}
	return &Processor{
		cfg:   cfg,
		src:   v,
		flags: cfg.flags,
		def:   def,
		cpus:  map[cpuKey]*CPUProcessor{},
		gpus:  map[OptimizationFlags]*GPUProcessor{},
	}, nil
}

// CacheID identifies the op chain optimized with the config's flags.
func (p *Processor) CacheID() string { return p.def.CacheID(p.flags) }

// IsNoOp reports whether the optimized chain leaves pixels unchanged.
func (p *Processor) IsNoOp() bool { return p.def.IsNoOp() }

// HasChannelCrosstalk reports whether an output channel depends on more
// than one input channel.
func (p *Processor) HasChannelCrosstalk() bool { return p.def.HasChannelCrosstalk() }

// HasDynamicProperties reports whether any op reads a dynamic property.
func (p *Processor) HasDynamicProperties() bool { return p.src.HasDynamicProperties() }

// DynamicProperty returns the shared handle of the given kind. Setting its
// value affects every CPU and GPU processor derived from p.
func (p *Processor) DynamicProperty(kind DynamicKind) (*DynamicProperty, error) {
	if dp := p.src.DynamicProperty(kind); dp != nil {
		return dp, nil
	}
	return nil, argErrorf(kind.String(), "processor has no dynamic property of this kind")
}

// NumOps returns the number of ops before optimization.
func (p *Processor) NumOps() int { return len(p.src) }

// OpTypes lists the ops before optimization.
func (p *Processor) OpTypes() []OpType { return p.src.Types() }

// GPUAllocation returns the first allocation hint of the chain.
func (p *Processor) GPUAllocation() (Allocation, bool) {
	for _, o := range p.src {
		if a, ok := o.Data().(*opdata.Allocation); ok {
			return Allocation{Kind: a.Kind, Vars: append([]float64(nil), a.Vars...)}, true
		}
	}
	return Allocation{}, false
}

// OptimizedCPUProcessor returns a CPU processor reading values of depth in
// and writing values of depth out.
func (p *Processor) OptimizedCPUProcessor(in, out BitDepth, flags OptimizationFlags) (*CPUProcessor, error) {
	k := cpuKey{in: in, out: out, flags: flags}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cp, ok := p.cpus[k]; ok {
		return cp, nil
	}
	cp, err := newCPUProcessor(p.src, in, out, flags)
	if err != nil {
		return nil, err
	}
	p.cpus[k] = cp
	return cp, nil
}

// DefaultCPUProcessor returns the 32f CPU processor optimized with the
// config's flags.
func (p *Processor) DefaultCPUProcessor() (*CPUProcessor, error) {
	return p.OptimizedCPUProcessor(BitDepthF32, BitDepthF32, p.flags)
}

// OptimizedGPUProcessor returns a GPU processor optimized with flags.
func (p *Processor) OptimizedGPUProcessor(flags OptimizationFlags) (*GPUProcessor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gp, ok := p.gpus[flags]; ok {
		return gp, nil
	}
	gp, err := newGPUProcessor(p.src, flags)
	if err != nil {
		return nil, err
	}
	p.gpus[flags] = gp
	return gp, nil
}

// DefaultGPUProcessor returns the GPU processor optimized with the
// config's flags.
func (p *Processor) DefaultGPUProcessor() (*GPUProcessor, error) {
	return p.OptimizedGPUProcessor(p.flags)
}
