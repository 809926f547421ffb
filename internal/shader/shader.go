// Package shader emits GPU shader text equivalent to a finalized op chain.
//
// A [Builder] collects the uniforms, textures and code contributed by each
// op and produces a [Program]. Symbol names are derived from the op index
// and the resource prefix, so identical op chains emit identical text.
package shader

import (
	"fmt"
	"strconv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/colorio/internal/opdata"
)

// Language is a target shading language.
type Language uint8

// Supported languages. LanguageNeutral emits the function body with GLSL
// 1.30 syntax and no resource declarations; the host declares resources
// from the uniform and texture tables.
const (
	LanguageGLSL12 Language = iota
	LanguageGLSL13
	LanguageGLSL40
	LanguageGLSLES10
	LanguageGLSLES30
	LanguageHLSLDX11
	LanguageMSL20
	LanguageWGSL
	LanguageNeutral

	languageCount
)

var languageNames = [languageCount]string{
	"glsl_1.2", "glsl_1.3", "glsl_4.0", "glsl_es_1.0", "glsl_es_3.0",
	"hlsl_dx11", "msl_2", "wgsl", "neutral",
}

func (l Language) String() string {
	if l < languageCount {
		return languageNames[l]
	}
	return "Language(" + strconv.Itoa(int(l)) + ")"
}

// ParseLanguage returns the language with the given name.
func ParseLanguage(s string) (Language, error) {
	for i, n := range languageNames {
		if n == s {
			return Language(i), nil
		}
	}
	return 0, fmt.Errorf("shader: unknown language %q", s)
}

// Languages lists every supported language.
func Languages() []Language {
	out := make([]Language, languageCount)
	for i := range out {
		out[i] = Language(i)
	}
	return out
}

// Default descriptor values.
const (
	DefaultFunctionName    = "OCIOMain"
	DefaultPixelName       = "outColor"
	DefaultResourcePrefix  = "ocio_"
	DefaultMaxTextureWidth = 4096
)

// Desc selects the target language and naming of the emitted shader.
// Zero fields take the defaults.
type Desc struct {
	Language        Language
	FunctionName    string
	PixelName       string
	ResourcePrefix  string
	MaxTextureWidth int
}

func (d Desc) withDefaults() Desc {
	if d.FunctionName == "" {
		d.FunctionName = DefaultFunctionName
	}
	if d.PixelName == "" {
		d.PixelName = DefaultPixelName
	}
	if d.ResourcePrefix == "" {
		d.ResourcePrefix = DefaultResourcePrefix
	}
	if d.MaxTextureWidth <= 0 {
		d.MaxTextureWidth = DefaultMaxTextureWidth
	}
	return d
}

// Validate checks the descriptor.
func (d Desc) Validate() error {
	if d.Language >= languageCount {
		return fmt.Errorf("shader: unknown language %d", d.Language)
	}
	d = d.withDefaults()
	for _, s := range [...]string{d.FunctionName, d.PixelName, d.ResourcePrefix} {
		if !isIdent(s) {
			return fmt.Errorf("shader: %q is not a valid identifier", s)
		}
	}
	if d.MaxTextureWidth < 2 {
		return fmt.Errorf("shader: max texture width %d too small", d.MaxTextureWidth)
	}
	return nil
}

// Key returns a string identifying the descriptor, for cache keys.
func (d Desc) Key() string {
	d = d.withDefaults()
	return fmt.Sprintf("%s/%s/%s/%s/%d", d.Language, d.FunctionName, d.PixelName, d.ResourcePrefix, d.MaxTextureWidth)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// UniformType is the type of a uniform value.
type UniformType uint8

// Uniform types.
const (
	UniformFloat UniformType = iota
	UniformFloat3
	UniformFloat4
	UniformBool
)

// Uniform is a value the host must bind before running the shader. A
// uniform backed by a dynamic property reads its current value.
type Uniform struct {
	Name    string
	Type    UniformType
	Value   [4]float64
	Dynamic *opdata.DynamicProperty
}

// Float returns the current scalar value.
func (u *Uniform) Float() float64 {
	if u.Dynamic != nil {
		return u.Dynamic.Value()
	}
	return u.Value[0]
}

// Texture is a lookup table the host must upload. Values are RGB triplets
// (Channels = 3) laid out row by row, with the first axis fastest.
type Texture struct {
	Name          string
	SamplerName   string
	Width         int
	Height        int
	Depth         int
	Dimension     gputypes.TextureDimension
	Channels      int
	Interpolation opdata.Interpolation
	Filter        gputypes.FilterMode
	Address       gputypes.AddressMode
	Values        []float32
}

// ViewDimension returns the texture view dimension matching Dimension.
func (t *Texture) ViewDimension() gputypes.TextureViewDimension {
	switch t.Dimension {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimension2D
	}
}
