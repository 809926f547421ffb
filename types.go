package colorio

import (
	"github.com/gogpu/colorio/internal/opdata"
	"github.com/gogpu/colorio/internal/ops"
	"github.com/gogpu/colorio/internal/packing"
	"github.com/gogpu/colorio/internal/shader"
)

// BitDepth is the numeric encoding of pixel values.
type BitDepth = opdata.BitDepth

// Bit depths.
const (
	BitDepthUnknown = opdata.BitDepthUnknown
	BitDepthUInt8   = opdata.BitDepthUInt8
	BitDepthUInt10  = opdata.BitDepthUInt10
	BitDepthUInt12  = opdata.BitDepthUInt12
	BitDepthUInt16  = opdata.BitDepthUInt16
	BitDepthF16     = opdata.BitDepthF16
	BitDepthF32     = opdata.BitDepthF32
)

// ParseBitDepth parses "8i", "10i", "12i", "16i", "16f" or "32f".
func ParseBitDepth(s string) (BitDepth, bool) { return opdata.ParseBitDepth(s) }

// Direction selects forward or inverse evaluation.
type Direction = opdata.Direction

// Directions.
const (
	Forward = opdata.Forward
	Inverse = opdata.Inverse
)

// Interpolation selects how LUT entries are blended.
type Interpolation = opdata.Interpolation

// Interpolation methods.
const (
	InterpDefault     = opdata.InterpDefault
	InterpNearest     = opdata.InterpNearest
	InterpLinear      = opdata.InterpLinear
	InterpCubic       = opdata.InterpCubic
	InterpTrilinear   = opdata.InterpTrilinear
	InterpTetrahedral = opdata.InterpTetrahedral
	InterpBest        = opdata.InterpBest
)

// ParseInterpolation parses "default", "nearest", "linear", "cubic",
// "trilinear", "tetrahedral" or "best".
func ParseInterpolation(s string) (Interpolation, bool) { return opdata.ParseInterpolation(s) }

// NegativeStyle selects how exponent transforms treat negative values.
type NegativeStyle = opdata.NegativeStyle

// Negative styles.
const (
	NegativeClamp    = opdata.NegativeClamp
	NegativeMirror   = opdata.NegativeMirror
	NegativePassThru = opdata.NegativePassThru
)

// CDLStyle selects the clamping behavior of a CDL transform. The direction
// comes from the transform.
type CDLStyle uint8

// CDL styles.
const (
	CDLV12 CDLStyle = iota
	CDLNoClamp
)

// ExposureContrastStyle selects the formula family of an exposure/contrast
// transform.
type ExposureContrastStyle uint8

// Exposure/contrast styles.
const (
	ExposureContrastLinear ExposureContrastStyle = iota
	ExposureContrastVideo
	ExposureContrastLogarithmic
)

// FixedFunctionStyle names a hard-coded color formula.
type FixedFunctionStyle = opdata.FixedFunctionStyle

// ParseFixedFunctionStyle parses names such as "ACES_RedMod03" or
// "RGB_TO_HSV".
func ParseFixedFunctionStyle(s string) (FixedFunctionStyle, bool) {
	return opdata.ParseFixedFunctionStyle(s)
}

// Fixed function styles. Inverse styles are selected through the
// transform direction.
const (
	FixedFunctionACESRedMod03    = opdata.FFACESRedMod03Fwd
	FixedFunctionACESRedMod10    = opdata.FFACESRedMod10Fwd
	FixedFunctionACESGlow03      = opdata.FFACESGlow03Fwd
	FixedFunctionACESGlow10      = opdata.FFACESGlow10Fwd
	FixedFunctionACESDarkToDim10 = opdata.FFACESDarkToDim10Fwd
	FixedFunctionRec2100Surround = opdata.FFRec2100SurroundFwd
	FixedFunctionRGBToHSV        = opdata.FFRGBToHSV
	FixedFunctionXYZToXyY        = opdata.FFXYZToXyY
	FixedFunctionXYZToUvY        = opdata.FFXYZToUvY
	FixedFunctionXYZToLUV        = opdata.FFXYZToLUV
)

// AllocationKind selects how a value range is fitted into GPU textures.
type AllocationKind = opdata.AllocationKind

// Allocation kinds.
const (
	AllocationUniform = opdata.AllocationUniform
	AllocationLg2     = opdata.AllocationLg2
)

// DynamicKind identifies a property that may change after a processor is
// built.
type DynamicKind = opdata.DynamicKind

// Dynamic property kinds.
const (
	DynamicExposure = opdata.DynamicExposure
	DynamicContrast = opdata.DynamicContrast
	DynamicGamma    = opdata.DynamicGamma
)

// DynamicProperty is a value shared by a processor's CPU kernels and GPU
// uniforms. SetValue is safe while the processor is applied.
type DynamicProperty = opdata.DynamicProperty

// OpType identifies the operator variant of a processor op.
type OpType = opdata.Type

// OptimizationFlags select the optimizer rules.
type OptimizationFlags = ops.Flags

// Optimization flags.
const (
	OptimizationNone         = ops.FlagNone
	OptimizationIdentity     = ops.FlagIdentity
	OptimizationInversePairs = ops.FlagInversePairs
	OptimizationComposition  = ops.FlagComposition
	OptimizationReplacement  = ops.FlagReplacement
	OptimizationBitDepth     = ops.FlagBitDepth
	OptimizationLutDomain    = ops.FlagLutDomain
	OptimizationLossy        = ops.FlagLossy
	OptimizationLossless     = ops.FlagLossless
	OptimizationDefault      = ops.FlagDefault
	OptimizationAll          = ops.FlagAll
)

// ChannelOrder is the storage order of the channels of a packed pixel.
type ChannelOrder = packing.ChannelOrder

// Channel orders.
const (
	ChannelOrderRGBA = packing.OrderRGBA
	ChannelOrderBGRA = packing.OrderBGRA
	ChannelOrderABGR = packing.OrderABGR
	ChannelOrderRGB  = packing.OrderRGB
	ChannelOrderBGR  = packing.OrderBGR
)

// ShaderLanguage is a target shading language.
type ShaderLanguage = shader.Language

// Shader languages.
const (
	ShaderGLSL12   = shader.LanguageGLSL12
	ShaderGLSL13   = shader.LanguageGLSL13
	ShaderGLSL40   = shader.LanguageGLSL40
	ShaderGLSLES10 = shader.LanguageGLSLES10
	ShaderGLSLES30 = shader.LanguageGLSLES30
	ShaderHLSLDX11 = shader.LanguageHLSLDX11
	ShaderMSL20    = shader.LanguageMSL20
	ShaderWGSL     = shader.LanguageWGSL
	ShaderNeutral  = shader.LanguageNeutral
)

// ParseShaderLanguage parses names such as "glsl_4.0" or "wgsl".
func ParseShaderLanguage(s string) (ShaderLanguage, error) { return shader.ParseLanguage(s) }

// ShaderDesc selects the language and naming of an extracted shader.
type ShaderDesc = shader.Desc

// ShaderProgram is an extracted shader with its uniform and texture tables.
type ShaderProgram = shader.Program

// ShaderUniform is a uniform the host binds before running a shader.
type ShaderUniform = shader.Uniform

// ShaderTexture is a lookup table the host uploads before running a shader.
type ShaderTexture = shader.Texture

// HueAdjust selects the hue-preserving mode of a Lut1D transform.
type HueAdjust = opdata.HueAdjust

// Hue adjust modes.
const (
	HueAdjustNone = opdata.HueAdjustNone
	HueAdjustDW3  = opdata.HueAdjustDW3
)
