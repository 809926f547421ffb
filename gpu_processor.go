package colorio

import (
	"sync"

	"github.com/gogpu/colorio/internal/ops"
	"github.com/gogpu/colorio/internal/shader"
)

// GPUProcessor turns a finalized op chain into shader programs. Programs
// are cached per descriptor. It is safe for concurrent use.
type GPUProcessor struct {
	ops     ops.Vec
	flags   OptimizationFlags
	cacheID string

	mu       sync.Mutex
	programs map[string]*ShaderProgram
}

func newGPUProcessor(src ops.Vec, flags OptimizationFlags) (*GPUProcessor, error) {
	v, err := src.Finalize(BitDepthF32, BitDepthF32, flags)
	if err != nil {
		return nil, classify("gpu processor", err)
	}
	return &GPUProcessor{
		ops:      v,
		flags:    flags,
		cacheID:  v.CacheID(flags),
		programs: map[string]*ShaderProgram{},
	}, nil
}

// CacheID identifies the finalized op chain.
func (g *GPUProcessor) CacheID() string { return g.cacheID }

// IsNoOp reports whether the processor leaves pixels unchanged.
func (g *GPUProcessor) IsNoOp() bool { return g.ops.IsNoOp() }

// HasDynamicProperties reports whether the programs read uniforms backed
// by dynamic properties.
func (g *GPUProcessor) HasDynamicProperties() bool { return g.ops.HasDynamicProperties() }

// OpTypes lists the ops left after optimization.
func (g *GPUProcessor) OpTypes() []OpType { return g.ops.Types() }

// ExtractShader returns the program for desc. The program cache-ID covers
// the op chain and the descriptor.
func (g *GPUProcessor) ExtractShader(desc ShaderDesc) (*ShaderProgram, error) {
	if err := desc.Validate(); err != nil {
		return nil, argErrorf("shader", "%v", err)
	}
	key := desc.Key()

	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.programs[key]; ok {
		return p, nil
	}

	b, err := shader.NewBuilder(desc)
	if err != nil {
		return nil, argErrorf("shader", "%v", err)
	}
	if err := g.ops.EmitShader(b); err != nil {
		return nil, argErrorf("shader", "%v", err)
	}
	p := b.Program(g.cacheID + "/" + key)
	g.programs[key] = p
	Logger().Debug("colorio: shader extracted",
		"language", desc.Language.String(),
		"uniforms", len(p.Uniforms()),
		"textures", len(p.Textures()))
	return p, nil
}
