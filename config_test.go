package colorio

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfigLookups(t *testing.T) {
	cfg := newTestConfig(t)

	if got := cfg.ReferenceSpace(); got != "lnf" {
		t.Errorf("ReferenceSpace() = %q, want lnf", got)
	}
	cs, err := cfg.ColorSpace("SRGB - TEXTURE")
	if err != nil {
		t.Fatalf("alias lookup: %v", err)
	}
	if cs.Name != "srgb" {
		t.Errorf("alias resolved to %q", cs.Name)
	}
	cs.Name = "changed"
	if again, _ := cfg.ColorSpace("srgb"); again.Name != "srgb" {
		t.Error("ColorSpace() returned a shared value")
	}
	if cs, err := cfg.ColorSpace(RoleCompositingLog); err != nil || cs.Name != "lgf" {
		t.Errorf("role lookup = %v, %v", cs, err)
	}
	if r, ok := cfg.Role("SCENE_LINEAR"); !ok || r != "lnf" {
		t.Errorf("Role(SCENE_LINEAR) = %q, %v", r, ok)
	}

	want := []string{RoleCompositingLog, RoleData, RoleDefault, RoleSceneLinear}
	if diff := cmp.Diff(want, cfg.RoleNames()); diff != "" {
		t.Errorf("RoleNames() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Raw", "Film"}, cfg.Views("srgb")); diff != "" {
		t.Errorf("Views() mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.DefaultDisplay(); got != "sRGB" {
		t.Errorf("DefaultDisplay() = %q", got)
	}
	if got := cfg.DefaultView("sRGB"); got != "Raw" {
		t.Errorf("DefaultView() = %q", got)
	}
	if got := cfg.DefaultViewTransform(); got != "film" {
		t.Errorf("DefaultViewTransform() = %q", got)
	}
	if _, err := cfg.Look("WARM"); err != nil {
		t.Errorf("Look(WARM) = %v", err)
	}
	if _, err := cfg.View("sRGB", "missing"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("View(missing) err = %v", err)
	}
}

func TestConfigBuildErrors(t *testing.T) {
	base := func() *ConfigBuilder {
		b := NewConfigBuilder(WithEnvProvider(MapEnv{}))
		b.AddColorSpace(&ColorSpace{Name: "lin"})
		b.AddColorSpace(&ColorSpace{Name: "log", FromReference: &LogTransform{}})
		return b
	}
	tests := []struct {
		name   string
		edit   func(b *ConfigBuilder)
		entity string
	}{
		{"version", func(b *ConfigBuilder) { b.SetVersion(3, 0) }, "ocio_profile_version"},
		{"duplicate alias", func(b *ConfigBuilder) {
			b.AddColorSpace(&ColorSpace{Name: "other", Aliases: []string{"LIN"}})
		}, "LIN"},
		{"role clashes with color space", func(b *ConfigBuilder) { b.SetRole("Log", "lin") }, "Log"},
		{"role target", func(b *ConfigBuilder) { b.SetRole(RoleReference, "missing") }, RoleReference},
		{"look process space", func(b *ConfigBuilder) {
			b.AddLook(&Look{Name: "grade", ProcessSpace: "missing"})
		}, "grade"},
		{"look cycle", func(b *ConfigBuilder) {
			b.AddLook(&Look{Name: "a", Transform: &LookTransform{Looks: "b", SkipColorSpaceConversion: true}})
			b.AddLook(&Look{Name: "b", Transform: &GroupTransform{Children: []Transform{
				&LookTransform{Looks: "-a", SkipColorSpaceConversion: true},
			}}})
		}, "a"},
		{"view color space", func(b *ConfigBuilder) {
			b.AddDisplayView("sRGB", View{Name: "v", ColorSpace: "missing"})
		}, "sRGB/v"},
		{"view transform", func(b *ConfigBuilder) {
			b.AddDisplayView("sRGB", View{Name: "v", ColorSpace: "lin", ViewTransform: "missing"})
		}, "sRGB/v"},
		{"view look", func(b *ConfigBuilder) {
			b.AddDisplayView("sRGB", View{Name: "v", ColorSpace: "lin", Looks: "+missing"})
		}, "sRGB/v"},
		{"strict active display", func(b *ConfigBuilder) {
			b.AddDisplayView("sRGB", View{Name: "v", ColorSpace: "lin"})
			b.SetActiveDisplays("P3")
		}, "active_displays"},
		{"default view transform", func(b *ConfigBuilder) { b.SetDefaultViewTransform("missing") }, "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.edit(b)
			_, err := b.Build()
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Build() err = %v, want a configuration error", err)
			}
			var e *Error
			if !errors.As(err, &e) || e.Entity != tt.entity {
				t.Errorf("entity = %q, want %q (err %v)", e.Entity, tt.entity, err)
			}
		})
	}
}

func TestActiveLists(t *testing.T) {
	b := newTestConfig(t).Edit()
	b.AddDisplayView("P3", View{Name: "Raw", ColorSpace: "lnf"})
	b.SetActiveDisplays("P3, sRGB")
	b.SetActiveViews("Film")
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"P3", "sRGB"}, cfg.Displays()); diff != "" {
		t.Errorf("Displays() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Film"}, cfg.Views("sRGB")); diff != "" {
		t.Errorf("Views() mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Views("P3"); len(got) != 0 {
		t.Errorf("Views(P3) = %v, want none active", got)
	}
}

func TestEditLeavesConfigUntouched(t *testing.T) {
	cfg := newTestConfig(t)
	b := cfg.Edit()
	b.AddColorSpace(&ColorSpace{Name: "extra"})
	b.SetRole(RoleSceneLinear, "extra")
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.ColorSpace("extra"); err == nil {
		t.Error("edit leaked into the original config")
	}
	if r, _ := cfg.Role(RoleSceneLinear); r != "lnf" {
		t.Errorf("scene_linear = %q after edit", r)
	}
}

func TestRawConfig(t *testing.T) {
	cfg := RawConfig(WithEnvProvider(MapEnv{}))
	if diff := cmp.Diff([]string{"raw"}, cfg.ColorSpaceNames()); diff != "" {
		t.Errorf("ColorSpaceNames() mismatch (-want +got):\n%s", diff)
	}
	p, err := cfg.ProcessorForDisplayView("raw", "sRGB", "Raw")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsNoOp() {
		t.Errorf("raw display view is not a no-op: %v", p.OpTypes())
	}
}

func TestOptimizationFlagsFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  MapEnv
		opts []ConfigOption
		want OptimizationFlags
	}{
		{"default", MapEnv{}, nil, OptimizationDefault},
		{"option", MapEnv{}, []ConfigOption{WithOptimizationFlags(OptimizationLossless)}, OptimizationLossless},
		{"env wins", MapEnv{EnvOptimizationFlags: "0"}, []ConfigOption{WithOptimizationFlags(OptimizationLossless)}, OptimizationNone},
		{"hex", MapEnv{EnvOptimizationFlags: "0x1"}, nil, OptimizationFlags(1)},
		{"invalid ignored", MapEnv{EnvOptimizationFlags: "fast"}, nil, OptimizationDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]ConfigOption{WithEnvProvider(tt.env)}, tt.opts...)
			cfg := RawConfig(opts...)
			if got := cfg.OptimizationFlags(); got != tt.want {
				t.Errorf("OptimizationFlags() = %v, want %v", got, tt.want)
			}
		})
	}

	_, _, err := OptimizationFlagsFromEnv(MapEnv{EnvOptimizationFlags: "fast"})
	if !errors.Is(err, ErrArgument) {
		t.Errorf("invalid flags err = %v, want an argument error", err)
	}
}

func TestCurrentContext(t *testing.T) {
	env := MapEnv{"SHOT": "sh010"}
	b := NewConfigBuilder(WithEnvProvider(env))
	b.AddColorSpace(&ColorSpace{Name: "lin"})
	b.SetEnvironmentVar("SHOT", "default_shot")
	b.SetEnvironmentVar("SEQ", "sq01")
	b.SetSearchPath("luts:shared")
	b.SetWorkingDir("/show")
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	ctx := cfg.CurrentContext()
	if got := ctx.ResolveStringVar("$SEQ/${SHOT}.cube"); got != "sq01/sh010.cube" {
		t.Errorf("ResolveStringVar = %q", got)
	}
	if diff := cmp.Diff([]string{"luts", "shared"}, ctx.SearchPaths()); diff != "" {
		t.Errorf("SearchPaths() mismatch (-want +got):\n%s", diff)
	}
	if ctx.WorkingDir() != "/show" {
		t.Errorf("WorkingDir() = %q", ctx.WorkingDir())
	}
	if cfg.CurrentContext().CacheID() != ctx.CacheID() {
		t.Error("CurrentContext() is not deterministic")
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	if _, ok := ConfigPathFromEnv(MapEnv{}); ok {
		t.Error("unset $OCIO reported as set")
	}
	if p, ok := ConfigPathFromEnv(MapEnv{EnvConfigPath: "/show/config.ocio"}); !ok || p != "/show/config.ocio" {
		t.Errorf("ConfigPathFromEnv = %q, %v", p, ok)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	err := configErrorf("lnf", "unknown color space")
	if !errors.Is(err, ErrConfiguration) || errors.Is(err, ErrFile) {
		t.Errorf("errors.Is mismatch for %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "configuration error (lnf): unknown color space") {
		t.Errorf("Error() = %q", got)
	}

	inner := errors.New("boom")
	ferr := fileError("a.cube", inner)
	if !errors.Is(ferr, ErrFile) || !errors.Is(ferr, inner) {
		t.Errorf("file error does not match both sentinel and cause: %v", ferr)
	}
	if classify("x", ferr) != ferr {
		t.Error("classify rewrapped a typed error")
	}
	if !errors.Is(classify("x", inner), ErrValidation) {
		t.Error("unknown internal errors should classify as validation errors")
	}
}
