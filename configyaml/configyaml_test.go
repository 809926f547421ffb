package configyaml

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/colorio"
)

const profile = `ocio_profile_version: 2
description: test profile
environment:
  SHOT: sh010
search_path:
  - luts
  - shared
strictparsing: true
roles:
  scene_linear: lin
  compositing_log: log
  default: lin
view_transforms:
  - !<ViewTransform>
    name: halve
    from_scene_reference: !<MatrixTransform> {matrix: [0.5, 0, 0, 0, 0, 0.5, 0, 0, 0, 0, 0.5, 0, 0, 0, 0, 1]}
displays:
  sRGB:
    - !<View> {name: Raw, colorspace: lin}
    - !<View> {name: Film, view_transform: halve, display_colorspace: display}
looks:
  - !<Look>
    name: warm
    process_space: lin
    transform: !<CDLTransform> {slope: [1.1, 1, 0.9], style: noclamp}
colorspaces:
  - !<ColorSpace>
    name: lin
    aliases: [linear]
    family: scene
    bitdepth: 32f
    allocation: lg2
    allocationvars: [-8, 5]
  - !<ColorSpace>
    name: log
    from_scene_reference: !<LogTransform> {base: 10}
  - !<ColorSpace>
    name: srgb
    from_scene_reference:
      - !<ExponentWithLinearTransform> {gamma: 2.4, offset: 0.055, direction: inverse}
  - !<ColorSpace>
    name: graded
    from_scene_reference: !<ExposureContrastTransform>
      style: linear
      exposure: {value: 1, dynamic: true}
      pivot: 0.18
  - !<ColorSpace>
    name: plate
    from_scene_reference: !<FileTransform> {src: plate.cube, interpolation: tetrahedral}
display_colorspaces:
  - !<ColorSpace>
    name: display
    from_display_reference: !<RangeTransform> {minInValue: 0, maxInValue: 1, minOutValue: 0, maxOutValue: 1}
`

func load(t *testing.T, src string) *colorio.Config {
	t.Helper()
	cfg, err := Load(strings.NewReader(src), colorio.WithEnvProvider(colorio.MapEnv{}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func convert(t *testing.T, p *colorio.Processor, v float32) float32 {
	t.Helper()
	c, err := p.DefaultCPUProcessor()
	if err != nil {
		t.Fatal(err)
	}
	px := []float32{v, v, v}
	if err := c.ApplyRGB(px); err != nil {
		t.Fatal(err)
	}
	return px[0]
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-5*math.Max(1, math.Abs(float64(b)))
}

func TestLoad(t *testing.T) {
	cfg := load(t, profile)

	if got := cfg.Description(); got != "test profile" {
		t.Errorf("Description() = %q", got)
	}
	if major, minor := cfg.Version(); major != 2 || minor != 0 {
		t.Errorf("Version() = %d.%d", major, minor)
	}
	if got := cfg.Environment()["SHOT"]; got != "sh010" {
		t.Errorf("environment SHOT = %q", got)
	}
	if diff := cmp.Diff([]string{"luts", "shared"}, cfg.SearchPaths()); diff != "" {
		t.Errorf("SearchPaths() mismatch (-want +got):\n%s", diff)
	}
	if r, _ := cfg.Role(colorio.RoleCompositingLog); r != "log" {
		t.Errorf("compositing_log = %q", r)
	}
	cs, err := cfg.ColorSpace("linear")
	if err != nil {
		t.Fatal(err)
	}
	want := colorio.Allocation{Kind: colorio.AllocationLg2, Vars: []float64{-8, 5}}
	if diff := cmp.Diff(want, cs.Allocation); diff != "" {
		t.Errorf("Allocation mismatch (-want +got):\n%s", diff)
	}
	if cs.BitDepth != colorio.BitDepthF32 || cs.Family != "scene" {
		t.Errorf("lin = %+v", cs)
	}
	display, err := cfg.ColorSpace("display")
	if err != nil {
		t.Fatal(err)
	}
	if display.ReferenceSpace != colorio.ReferenceDisplay {
		t.Errorf("display reference = %v", display.ReferenceSpace)
	}
	if diff := cmp.Diff([]string{"Raw", "Film"}, cfg.Views("sRGB")); diff != "" {
		t.Errorf("Views() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadedTransforms(t *testing.T) {
	cfg := load(t, profile)

	p, err := cfg.ProcessorForSpaces("lin", "log")
	if err != nil {
		t.Fatal(err)
	}
	if got := convert(t, p, 100); !near(got, 2) {
		t.Errorf("lin->log(100) = %v, want 2", got)
	}

	p, err = cfg.ProcessorForDisplayView("lin", "sRGB", "Film")
	if err != nil {
		t.Fatal(err)
	}
	if got := convert(t, p, 0.4); !near(got, 0.2) {
		t.Errorf("Film(0.4) = %v, want 0.2", got)
	}

	p, err = cfg.Processor(nil, &colorio.LookTransform{Src: "lin", Dst: "lin", Looks: "warm"}, colorio.Forward)
	if err != nil {
		t.Fatal(err)
	}
	if got := convert(t, p, 1); !near(got, 1.1) {
		t.Errorf("warm(1) = %v, want 1.1", got)
	}

	srgb, err := cfg.ColorSpace("srgb")
	if err != nil {
		t.Fatal(err)
	}
	g, ok := srgb.FromReference.(*colorio.GroupTransform)
	if !ok || len(g.Children) != 1 {
		t.Fatalf("srgb from_reference = %#v, want an implicit group", srgb.FromReference)
	}
	if e, ok := g.Children[0].(*colorio.ExponentWithLinearTransform); !ok || e.Direction != colorio.Inverse || e.Gamma[0] != 2.4 {
		t.Errorf("srgb child = %#v", g.Children[0])
	}

	plate, err := cfg.ColorSpace("plate")
	if err != nil {
		t.Fatal(err)
	}
	if ft, ok := plate.FromReference.(*colorio.FileTransform); !ok || ft.Interpolation != colorio.InterpTetrahedral {
		t.Errorf("plate from_reference = %#v", plate.FromReference)
	}
}

func TestDynamicExposure(t *testing.T) {
	cfg := load(t, profile)
	p, err := cfg.ProcessorForSpaces("lin", "graded")
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasDynamicProperties() {
		t.Fatal("exposure not dynamic")
	}
	prop, err := p.DynamicProperty(colorio.DynamicExposure)
	if err != nil {
		t.Fatal(err)
	}
	if prop.Value() != 1 {
		t.Errorf("exposure = %v, want 1", prop.Value())
	}
	if got := convert(t, p, 0.18); !near(got, 0.36) {
		t.Errorf("graded(0.18) = %v, want 0.36", got)
	}
}

func TestExponentByVersion(t *testing.T) {
	src := `ocio_profile_version: %s
colorspaces:
  - !<ColorSpace>
    name: lin
  - !<ColorSpace>
    name: g
    from_reference: !<ExponentTransform> {value: %s}
`
	tests := []struct {
		version, value string
		want           colorio.Transform
	}{
		{"1", "[2.2, 2.2, 2.2, 1]", &colorio.ExponentTransform{Value: [4]float64{2.2, 2.2, 2.2, 1}}},
		{"2", "[2.2, 2.2, 2.2, 1]", &colorio.GammaTransform{Gamma: [4]float64{2.2, 2.2, 2.2, 1}}},
		{"2.1", "2.2", &colorio.GammaTransform{Gamma: [4]float64{2.2, 2.2, 2.2, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			cfg := load(t, fmt.Sprintf(src, tt.version, tt.value))
			cs, err := cfg.ColorSpace("g")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, cs.FromReference); diff != "" {
				t.Errorf("from_reference mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	const head = "ocio_profile_version: 2\ncolorspaces:\n  - !<ColorSpace>\n    name: lin\n"
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"syntax", "ocio_profile_version: ["},
		{"not a mapping", "- a\n- b\n"},
		{"missing version", "roles: {}\n"},
		{"unsupported version", "ocio_profile_version: 3\n"},
		{"wrong entity tag", "ocio_profile_version: 2\ncolorspaces:\n  - !<Look> {name: x}\n"},
		{"unknown transform", head + "  - !<ColorSpace>\n    name: x\n    from_reference: !<BogusTransform> {}\n"},
		{"matrix size", head + "  - !<ColorSpace>\n    name: x\n    from_reference: !<MatrixTransform> {matrix: [1, 2]}\n"},
		{"fixed function style", head + "  - !<ColorSpace>\n    name: x\n    from_reference: !<FixedFunctionTransform> {style: nope}\n"},
		{"view without color space", head + "displays:\n  sRGB:\n    - !<View> {name: v}\n"},
		{"nameless color space", "ocio_profile_version: 2\ncolorspaces:\n  - !<ColorSpace> {family: x}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src), colorio.WithEnvProvider(colorio.MapEnv{}))
			if !errors.Is(err, colorio.ErrConfiguration) {
				t.Errorf("Load() err = %v, want a configuration error", err)
			}
		})
	}
}

func TestErrorLine(t *testing.T) {
	src := `ocio_profile_version: 2
colorspaces:
  - !<ColorSpace>
    name: log
    from_reference: !<LogTransform> {direction: sideways}
`
	_, err := Load(strings.NewReader(src))
	if err == nil || !strings.Contains(err.Error(), "config:5:") {
		t.Errorf("err = %v, want a config:5 location", err)
	}
}

func TestUnknownKeysWarn(t *testing.T) {
	var buf bytes.Buffer
	colorio.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer colorio.SetLogger(nil)

	load(t, `ocio_profile_version: 2
colorspaces:
  - !<ColorSpace>
    name: lin
    colour: red
  - !<ColorSpace>
    name: log
    from_reference: !<LogTransform> {base: 10, bogus: 1}
`)
	for _, key := range []string{"key=colour", "key=bogus"} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("log output missing %s:\n%s", key, buf.String())
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ocio")
	if err := os.WriteFile(path, []byte(profile), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, colorio.WithEnvProvider(colorio.MapEnv{}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkingDir() != dir {
		t.Errorf("WorkingDir() = %q, want %q", cfg.WorkingDir(), dir)
	}

	cfg, err = LoadFromEnv(colorio.MapEnv{colorio.EnvConfigPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkingDir() != dir {
		t.Errorf("LoadFromEnv WorkingDir() = %q", cfg.WorkingDir())
	}

	if _, err := LoadFromEnv(colorio.MapEnv{}); !errors.Is(err, colorio.ErrConfiguration) {
		t.Errorf("unset $OCIO err = %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.ocio")); !errors.Is(err, colorio.ErrFile) {
		t.Errorf("missing file err = %v", err)
	}
}
