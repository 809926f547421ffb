package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/colorio"
)

func (a *app) shaderCmd() *cobra.Command {
	var (
		conv     conversion
		language string
		function string
		prefix   string
		compute  bool
		spirv    string
	)
	cmd := &cobra.Command{
		Use:   "shader",
		Short: "Print the GPU shader of a conversion",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			lang, err := colorio.ParseShaderLanguage(language)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			p, err := conv.processor(cfg)
			if err != nil {
				return err
			}
			gpu, err := p.DefaultGPUProcessor()
			if err != nil {
				return err
			}
			prog, err := gpu.ExtractShader(colorio.ShaderDesc{Language: lang, FunctionName: function, ResourcePrefix: prefix})
			if err != nil {
				return err
			}
			if spirv != "" {
				return writeSPIRV(prog, spirv)
			}
			if compute {
				src, err := prog.ComputeModule()
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(a.stdout, src)
				return err
			}
			if _, err := fmt.Fprint(a.stdout, prog.Text()); err != nil {
				return err
			}
			for _, u := range prog.Uniforms() {
				fmt.Fprintf(a.stderr, "uniform %s = %g\n", u.Name, u.Float())
			}
			for _, t := range prog.Textures() {
				fmt.Fprintf(a.stderr, "texture %s %dx%dx%d\n", t.Name, t.Width, max(t.Height, 1), max(t.Depth, 1))
			}
			return nil
		},
	}
	fs := cmd.Flags()
	conv.addFlags(fs)
	fs.StringVarP(&language, "language", "l", colorio.ShaderGLSL40.String(), "shading language: "+languageList())
	fs.StringVar(&function, "function", "", "name of the color function")
	fs.StringVar(&prefix, "prefix", "", "prefix of uniform and texture names")
	fs.BoolVar(&compute, "compute", false, "wrap the function in a WGSL compute module")
	fs.StringVar(&spirv, "spirv", "", "write the compute module as SPIR-V to `file`")
	return cmd
}

func languageList() string {
	names := make([]string, 0, 9)
	for _, l := range []colorio.ShaderLanguage{
		colorio.ShaderGLSL12, colorio.ShaderGLSL13, colorio.ShaderGLSL40,
		colorio.ShaderGLSLES10, colorio.ShaderGLSLES30, colorio.ShaderHLSLDX11,
		colorio.ShaderMSL20, colorio.ShaderWGSL, colorio.ShaderNeutral,
	} {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}

func writeSPIRV(prog *colorio.ShaderProgram, path string) error {
	words, err := prog.SPIRV()
	if err != nil {
		return err
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return os.WriteFile(path, buf, 0o644)
}
