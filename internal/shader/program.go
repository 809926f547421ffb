package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// ErrNotWGSL is returned by operations that need a WGSL program.
var ErrNotWGSL = errors.New("shader: program language is not wgsl")

// ComputeWorkgroupSize is the workgroup size of the module built by
// [Program.ComputeModule].
const ComputeWorkgroupSize = 64

// Program is the shader text of a processor plus the resources it expects.
// A Program is immutable; uniform values backed by dynamic properties are
// read at bind time.
type Program struct {
	desc     Desc
	text     string
	uniforms []Uniform
	textures []Texture
	cacheID  string
	bindings int
}

// Desc returns the descriptor the program was built for.
func (p *Program) Desc() Desc { return p.desc }

// Text returns the shader source: resource declarations followed by the
// color function.
func (p *Program) Text() string { return p.text }

// Uniforms returns the uniform table in binding order.
func (p *Program) Uniforms() []Uniform { return p.uniforms }

// Textures returns the texture table in binding order.
func (p *Program) Textures() []Texture { return p.textures }

// CacheID identifies the op chain and descriptor the program was built from.
func (p *Program) CacheID() string { return p.cacheID }

// PixelBufferName is the storage buffer of the compute module.
func (p *Program) PixelBufferName() string { return p.desc.ResourcePrefix + "pixels" }

// PixelBufferBinding is the binding index of the compute module's pixel
// buffer. Uniforms come first, then each texture and its sampler.
func (p *Program) PixelBufferBinding() int { return p.bindings }

// ComputeModule wraps a WGSL program in a compute entry point "main" that
// applies the color function in place to an array of vec4<f32> pixels.
func (p *Program) ComputeModule() (string, error) {
	if p.desc.Language != LanguageWGSL {
		return "", ErrNotWGSL
	}
	var sb strings.Builder
	sb.WriteString(p.text)
	buf := p.PixelBufferName()
	fmt.Fprintf(&sb, "\n@group(0) @binding(%d) var<storage, read_write> %s: array<vec4<f32>>;\n\n", p.bindings, buf)
	fmt.Fprintf(&sb, "@compute @workgroup_size(%d)\n", ComputeWorkgroupSize)
	sb.WriteString("fn main(@builtin(global_invocation_id) id: vec3<u32>) {\n")
	fmt.Fprintf(&sb, "  if (id.x >= arrayLength(&%s)) {\n    return;\n  }\n", buf)
	fmt.Fprintf(&sb, "  %s[id.x] = %s(%s[id.x]);\n}\n", buf, p.desc.FunctionName, buf)
	return sb.String(), nil
}

// SPIRV compiles the compute module to SPIR-V words.
func (p *Program) SPIRV() ([]uint32, error) {
	src, err := p.ComputeModule()
	if err != nil {
		return nil, err
	}
	code, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	// SPIR-V words are little-endian.
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}
	return words, nil
}
