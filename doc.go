// Package colorio converts pixels between color spaces described by a
// color management config.
//
// # Overview
//
// A Config names color spaces, roles, looks, view transforms and
// display/view pairs. Asking it for a conversion resolves the named
// pieces into a chain of primitive operations, which is then optimized
// and evaluated on the CPU or emitted as a GPU shader.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/colorio"
//	    "github.com/gogpu/colorio/configyaml"
//	)
//
//	cfg, err := configyaml.LoadFile("config.ocio")
//	if err != nil {
//	    return err
//	}
//	p, err := cfg.ProcessorForSpaces("scene_linear", "sRGB")
//	if err != nil {
//	    return err
//	}
//	cpu, err := p.DefaultCPUProcessor()
//	if err != nil {
//	    return err
//	}
//	out := cpu.ApplyPixel([4]float32{0.18, 0.18, 0.18, 1})
//
// # Processors
//
// Config.Processor and its convenience wrappers return a Processor, which
// is cached by the config unless it carries dynamic properties. A
// Processor derives:
//   - CPUProcessor: applies the optimized chain to float32 RGBA or RGB
//     buffers and to packed images of any supported bit depth
//   - GPUProcessor: emits a shader function for GLSL, HLSL, MSL or WGSL,
//     plus the uniforms and LUT textures it reads
//
// Optimization is controlled by OptimizationFlags. The default flags only
// perform lossless rewrites; OCIO_OPTIMIZATION_FLAGS overrides them.
//
// # Building Configs
//
// Configs are immutable. ConfigBuilder assembles one in code, and
// Config.Edit returns a builder seeded with an existing config. The
// configyaml package reads configs from their YAML form.
//
// # Files
//
// FileTransform reads LUT files through formats registered with
// RegisterFileFormat. Importing github.com/gogpu/colorio/fileformats/cube
// registers the .cube reader.
//
// # Logging
//
// The package is silent by default. SetLogger installs an slog.Logger
// that receives cache, optimizer and parser diagnostics.
package colorio

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
