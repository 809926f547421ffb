package shader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/colorio/internal/opdata"
)

// vtype is a shader value type.
type vtype uint8

const (
	tFloat vtype = iota
	tFloat3
	tFloat4
)

// Builder accumulates the contribution of each op. It is not safe for
// concurrent use.
type Builder struct {
	desc     Desc
	index    int
	uniforms []Uniform
	textures []Texture
	body     []string
	indent   int
}

// NewBuilder returns an empty builder for desc.
func NewBuilder(desc Desc) (*Builder, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &Builder{desc: desc.withDefaults(), indent: 1}, nil
}

// Desc returns the descriptor with defaults applied.
func (b *Builder) Desc() Desc { return b.desc }

// Emit appends the code of the op at position index. On error nothing is
// appended.
func (b *Builder) Emit(index int, d opdata.Data) error {
	s := &Builder{desc: b.desc, index: index, indent: b.indent + 1}
	if err := emit(s, d); err != nil {
		return fmt.Errorf("shader: %s op %d: %w", d.Type(), index, err)
	}
	if len(s.body) == 0 {
		return nil
	}
	b.line("// %s op %d", d.Type(), index)
	b.line("{")
	b.body = append(b.body, s.body...)
	b.line("}")
	b.uniforms = append(b.uniforms, s.uniforms...)
	b.textures = append(b.textures, s.textures...)
	return nil
}

// Program assembles the shader text. cacheID identifies the op chain.
func (b *Builder) Program(cacheID string) *Program {
	p := &Program{
		desc:     b.desc,
		uniforms: append([]Uniform(nil), b.uniforms...),
		textures: append([]Texture(nil), b.textures...),
		cacheID:  cacheID,
		bindings: b.numBindings(),
	}
	var sb strings.Builder
	b.writeHeader(&sb)
	b.writeFunction(&sb)
	p.text = sb.String()
	return p
}

func (b *Builder) lang() Language { return b.desc.Language }

func (b *Builder) isWGSL() bool { return b.desc.Language == LanguageWGSL }

func (b *Builder) isHLSL() bool { return b.desc.Language == LanguageHLSLDX11 }

func (b *Builder) isMSL() bool { return b.desc.Language == LanguageMSL20 }

func (b *Builder) isGLSL() bool {
	switch b.desc.Language {
	case LanguageGLSL12, LanguageGLSL13, LanguageGLSL40, LanguageGLSLES10, LanguageGLSLES30, LanguageNeutral:
		return true
	}
	return false
}

// has1DTextures reports whether the language can sample 1D textures.
func (b *Builder) has1DTextures() bool {
	switch b.desc.Language {
	case LanguageGLSLES10, LanguageGLSLES30, LanguageWGSL:
		return false
	}
	return true
}

// hasHalfBits reports whether the language can take the bit pattern of a
// half float.
func (b *Builder) hasHalfBits() bool {
	switch b.desc.Language {
	case LanguageGLSLES30, LanguageHLSLDX11, LanguageMSL20, LanguageWGSL:
		return true
	}
	return false
}

// name returns the resource name for kind at the current op index.
func (b *Builder) name(kind string) string {
	return b.desc.ResourcePrefix + kind + "_" + strconv.Itoa(b.index)
}

func (b *Builder) pixel() string { return b.desc.PixelName }

func (b *Builder) typ(t vtype) string {
	switch {
	case b.isWGSL():
		return [...]string{"f32", "vec3<f32>", "vec4<f32>"}[t]
	case b.isGLSL():
		return [...]string{"float", "vec3", "vec4"}[t]
	default:
		return [...]string{"float", "float3", "float4"}[t]
	}
}

// fn maps a GLSL builtin name to the target language.
func (b *Builder) fn(name string) string {
	switch {
	case b.isHLSL():
		switch name {
		case "mix":
			return "lerp"
		case "fract":
			return "frac"
		}
	case b.isGLSL():
		if name == "atan2" {
			return "atan"
		}
	}
	return name
}

// call formats a builtin call.
func (b *Builder) call(name string, args ...string) string {
	return b.fn(name) + "(" + strings.Join(args, ", ") + ")"
}

// lit formats v as a float literal.
func (b *Builder) lit(v float64) string {
	switch {
	case math.IsNaN(v):
		v = 0
	case math.IsInf(v, 1) || v > math.MaxFloat32:
		v = math.MaxFloat32
	case math.IsInf(v, -1) || v < -math.MaxFloat32:
		v = -math.MaxFloat32
	}
	s := strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	if v < 0 {
		s = "(" + s + ")"
	}
	return s
}

func (b *Builder) vec3(x, y, z string) string {
	return b.typ(tFloat3) + "(" + x + ", " + y + ", " + z + ")"
}

func (b *Builder) vec4(x, y, z, w string) string {
	return b.typ(tFloat4) + "(" + x + ", " + y + ", " + z + ", " + w + ")"
}

// vec3f builds a literal vector.
func (b *Builder) vec3f(v [3]float64) string {
	return b.vec3(b.lit(v[0]), b.lit(v[1]), b.lit(v[2]))
}

func (b *Builder) vec4f(v [4]float64) string {
	return b.vec4(b.lit(v[0]), b.lit(v[1]), b.lit(v[2]), b.lit(v[3]))
}

// splat3 repeats a scalar literal over three components.
func (b *Builder) splat3(v float64) string {
	return b.vec3f([3]float64{v, v, v})
}

func (b *Builder) line(format string, args ...any) {
	b.body = append(b.body, strings.Repeat("  ", b.indent)+fmt.Sprintf(format, args...))
}

// decl declares and initializes a local variable.
func (b *Builder) decl(t vtype, name, expr string) {
	if b.isWGSL() {
		b.line("var %s: %s = %s;", name, b.typ(t), expr)
		return
	}
	b.line("%s %s = %s;", b.typ(t), name, expr)
}

func (b *Builder) assign(name, expr string) {
	b.line("%s = %s;", name, expr)
}

// setRGB replaces the color channels of the pixel, keeping alpha.
func (b *Builder) setRGB(expr string) {
	px := b.pixel()
	b.assign(px, b.typ(tFloat4)+"("+expr+", "+px+".a)")
}

func (b *Builder) rgb() string { return b.pixel() + ".rgb" }

func (b *Builder) ifBegin(cond string) {
	b.line("if (%s)", cond)
	b.line("{")
	b.indent++
}

func (b *Builder) elseIf(cond string) {
	b.indent--
	b.line("}")
	b.line("else if (%s)", cond)
	b.line("{")
	b.indent++
}

func (b *Builder) elseBegin() {
	b.indent--
	b.line("}")
	b.line("else")
	b.line("{")
	b.indent++
}

func (b *Builder) end() {
	b.indent--
	b.line("}")
}

// selectExpr returns t when cond holds, else f.
func (b *Builder) selectExpr(cond, t, f string) string {
	if b.isWGSL() {
		return "select(" + f + ", " + t + ", " + cond + ")"
	}
	return "((" + cond + ") ? " + t + " : " + f + ")"
}

// addUniform registers a uniform named after kind and returns its name.
func (b *Builder) addUniform(kind string, t UniformType, value float64, dyn *opdata.DynamicProperty) string {
	u := Uniform{Name: b.name(kind), Type: t, Dynamic: dyn}
	u.Value[0] = value
	b.uniforms = append(b.uniforms, u)
	return u.Name
}

// addLut1DTexture registers a 1D table of n RGB entries, packed into rows
// of at most MaxTextureWidth texels.
func (b *Builder) addLut1DTexture(kind string, values []float32, n int) *Texture {
	w := min(n, b.desc.MaxTextureWidth)
	h := (n + w - 1) / w
	dim := gputypes.TextureDimension2D
	if h == 1 && b.has1DTextures() {
		dim = gputypes.TextureDimension1D
	}
	padded := values
	if w*h != n {
		padded = make([]float32, 3*w*h)
		copy(padded, values)
		last := values[3*(n-1) : 3*n]
		for i := n; i < w*h; i++ {
			copy(padded[3*i:], last)
		}
	}
	name := b.name(kind)
	b.textures = append(b.textures, Texture{
		Name:          name,
		SamplerName:   name + "Sampler",
		Width:         w,
		Height:        h,
		Depth:         1,
		Dimension:     dim,
		Channels:      3,
		Interpolation: opdata.InterpNearest,
		Filter:        gputypes.FilterModeNearest,
		Address:       gputypes.AddressModeClampToEdge,
		Values:        padded,
	})
	return &b.textures[len(b.textures)-1]
}

// addLut3DTexture registers a g³ table. The texture x axis is blue.
func (b *Builder) addLut3DTexture(kind string, values []float32, g int, interp opdata.Interpolation) *Texture {
	filter := gputypes.FilterModeNearest
	if interp == opdata.InterpTrilinear {
		filter = gputypes.FilterModeLinear
	}
	name := b.name(kind)
	b.textures = append(b.textures, Texture{
		Name:          name,
		SamplerName:   name + "Sampler",
		Width:         g,
		Height:        g,
		Depth:         g,
		Dimension:     gputypes.TextureDimension3D,
		Channels:      3,
		Interpolation: interp,
		Filter:        filter,
		Address:       gputypes.AddressModeClampToEdge,
		Values:        append([]float32(nil), values...),
	})
	return &b.textures[len(b.textures)-1]
}

// sample returns a texture read at normalized coordinates coord.
func (b *Builder) sample(t *Texture, coord string) string {
	switch b.lang() {
	case LanguageHLSLDX11:
		return t.Name + ".Sample(" + t.SamplerName + ", " + coord + ")"
	case LanguageMSL20:
		return t.Name + ".sample(" + t.SamplerName + ", " + coord + ")"
	case LanguageWGSL:
		return "textureSampleLevel(" + t.Name + ", " + t.SamplerName + ", " + coord + ", 0.0)"
	case LanguageGLSL12, LanguageGLSLES10:
		fn := map[gputypes.TextureDimension]string{
			gputypes.TextureDimension1D: "texture1D",
			gputypes.TextureDimension2D: "texture2D",
			gputypes.TextureDimension3D: "texture3D",
		}[t.Dimension]
		return fn + "(" + t.SamplerName + ", " + coord + ")"
	default:
		return "texture(" + t.SamplerName + ", " + coord + ")"
	}
}

// fetch1D reads entry idx (a float holding an integer) of a 1D table.
func (b *Builder) fetch1D(t *Texture, idx string) string {
	w := b.lit(float64(t.Width))
	if t.Dimension == gputypes.TextureDimension1D {
		return b.sample(t, "("+idx+" + 0.5) / "+w)
	}
	row := "floor(" + idx + " / " + w + ")"
	h := b.lit(float64(t.Height))
	coord := "float2"
	switch {
	case b.isWGSL():
		coord = "vec2<f32>"
	case b.isGLSL():
		coord = "vec2"
	}
	return b.sample(t, coord+"(("+idx+" - "+row+" * "+w+" + 0.5) / "+w+", ("+row+" + 0.5) / "+h+")")
}

func (b *Builder) writeHeader(sb *strings.Builder) {
	fmt.Fprintf(sb, "// %s color transform\n\n", b.desc.Language)
	switch b.lang() {
	case LanguageNeutral:
		return
	case LanguageMSL20:
		sb.WriteString("#include <metal_stdlib>\nusing namespace metal;\n\n")
		return
	case LanguageGLSLES10, LanguageGLSLES30:
		sb.WriteString("precision highp float;\n\n")
	}
	binding := 0
	for i := range b.uniforms {
		u := &b.uniforms[i]
		if b.isWGSL() {
			fmt.Fprintf(sb, "@group(0) @binding(%d) var<uniform> %s: %s;\n", binding, u.Name, b.uniformType(u.Type))
			binding++
			continue
		}
		fmt.Fprintf(sb, "uniform %s %s;\n", b.uniformType(u.Type), u.Name)
	}
	for i := range b.textures {
		t := &b.textures[i]
		switch {
		case b.isWGSL():
			fmt.Fprintf(sb, "@group(0) @binding(%d) var %s: %s;\n", binding, t.Name, b.textureType(t))
			fmt.Fprintf(sb, "@group(0) @binding(%d) var %s: sampler;\n", binding+1, t.SamplerName)
			binding += 2
		case b.isHLSL():
			fmt.Fprintf(sb, "%s %s;\n", b.textureType(t), t.Name)
			fmt.Fprintf(sb, "SamplerState %s;\n", t.SamplerName)
		default:
			fmt.Fprintf(sb, "uniform %s %s;\n", b.textureType(t), t.SamplerName)
		}
	}
	if len(b.uniforms)+len(b.textures) > 0 {
		sb.WriteByte('\n')
	}
}

// numBindings returns the WGSL bindings used by resources.
func (b *Builder) numBindings() int {
	return len(b.uniforms) + 2*len(b.textures)
}

func (b *Builder) uniformType(t UniformType) string {
	switch t {
	case UniformFloat3:
		return b.typ(tFloat3)
	case UniformFloat4:
		return b.typ(tFloat4)
	case UniformBool:
		if b.isWGSL() {
			return "u32"
		}
		return "bool"
	default:
		return b.typ(tFloat)
	}
}

func (b *Builder) textureType(t *Texture) string {
	d := map[gputypes.TextureDimension]string{
		gputypes.TextureDimension1D: "1",
		gputypes.TextureDimension2D: "2",
		gputypes.TextureDimension3D: "3",
	}[t.Dimension]
	switch {
	case b.isWGSL():
		return "texture_" + d + "d<f32>"
	case b.isHLSL():
		return "Texture" + d + "D<float4>"
	case b.isMSL():
		return "texture" + d + "d<float>"
	default:
		return "sampler" + d + "D"
	}
}

func (b *Builder) writeFunction(sb *strings.Builder) {
	d := &b.desc
	vec4 := b.typ(tFloat4)
	switch {
	case b.isWGSL():
		fmt.Fprintf(sb, "fn %s(inPixel: %s) -> %s\n{\n", d.FunctionName, vec4, vec4)
		fmt.Fprintf(sb, "  var %s: %s = inPixel;\n", d.PixelName, vec4)
	case b.isMSL():
		params := []string{vec4 + " inPixel"}
		for i := range b.uniforms {
			u := &b.uniforms[i]
			params = append(params, "constant "+b.uniformType(u.Type)+" & "+u.Name)
		}
		for i := range b.textures {
			t := &b.textures[i]
			params = append(params, b.textureType(t)+" "+t.Name, "sampler "+t.SamplerName)
		}
		fmt.Fprintf(sb, "%s %s(%s)\n{\n", vec4, d.FunctionName, strings.Join(params, ", "))
		fmt.Fprintf(sb, "  %s %s = inPixel;\n", vec4, d.PixelName)
	default:
		fmt.Fprintf(sb, "%s %s(%s inPixel)\n{\n", vec4, d.FunctionName, vec4)
		fmt.Fprintf(sb, "  %s %s = inPixel;\n", vec4, d.PixelName)
	}
	for _, l := range b.body {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(sb, "  return %s;\n}\n", d.PixelName)
}
