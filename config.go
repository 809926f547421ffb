package colorio

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/gogpu/colorio/internal/cache"
)

// Well-known role names.
const (
	RoleReference      = "reference"
	RoleDefault        = "default"
	RoleSceneLinear    = "scene_linear"
	RoleData           = "data"
	RoleColorPicking   = "color_picking"
	RoleColorTiming    = "color_timing"
	RoleCompositingLog = "compositing_log"
	RoleMattePaint     = "matte_paint"
	RoleTexturePaint   = "texture_paint"
)

// foldKey returns the case-folded form used for name lookups. A Caser is
// stateful, so each call gets its own.
func foldKey(s string) string { return cases.Fold().String(s) }

func foldEqual(a, b string) bool { return foldKey(a) == foldKey(b) }

// Config is an immutable set of color spaces, looks, view transforms,
// displays and roles. It is safe for concurrent use. Create one with a
// ConfigBuilder or the configyaml package.
//
// Name lookups are case-insensitive.
type Config struct {
	opts  configOptions
	flags OptimizationFlags

	majorVersion, minorVersion int

	description          string
	environment          map[string]string
	searchPaths          []string
	workingDir           string
	strict               bool
	roles                map[string]string
	colorSpaces          []*ColorSpace
	looks                []*Look
	viewTransforms       []*ViewTransform
	displays             []*Display
	activeDisplays       []string
	activeViews          []string
	defaultViewTransform string

	spaceIndex     map[string]*ColorSpace
	roleIndex      map[string]string
	lookIndex      map[string]*Look
	vtIndex        map[string]*ViewTransform
	displayIndex   map[string]*Display
	referenceSpace string

	processors *cache.LRU[*Processor]

	mu    sync.Mutex
	files map[string]fileEntry
}

type fileEntry struct {
	t   Transform
	err error
}

// Version returns the profile version.
func (c *Config) Version() (major, minor int) { return c.majorVersion, c.minorVersion }

// Description returns the config description.
func (c *Config) Description() string { return c.description }

// StrictParsing reports whether unknown active displays and views are
// errors.
func (c *Config) StrictParsing() bool { return c.strict }

// SearchPaths returns the LUT search paths.
func (c *Config) SearchPaths() []string { return slices.Clone(c.searchPaths) }

// WorkingDir returns the directory relative search paths start from.
func (c *Config) WorkingDir() string { return c.workingDir }

// Environment returns the declared context variables and their defaults.
func (c *Config) Environment() map[string]string { return maps.Clone(c.environment) }

// OptimizationFlags returns the flags of the default processors.
func (c *Config) OptimizationFlags() OptimizationFlags { return c.flags }

// ColorSpaceNames lists the color spaces in declaration order.
func (c *Config) ColorSpaceNames() []string {
	return lo.Map(c.colorSpaces, func(cs *ColorSpace, _ int) string { return cs.Name })
}

// ColorSpace returns a copy of the color space with the given name, alias
// or role.
func (c *Config) ColorSpace(name string) (*ColorSpace, error) {
	cs, err := c.lookupSpace(name)
	if err != nil {
		return nil, err
	}
	return cs.Clone(), nil
}

func (c *Config) lookupSpace(name string) (*ColorSpace, error) {
	k := foldKey(name)
	if cs, ok := c.spaceIndex[k]; ok {
		return cs, nil
	}
	if target, ok := c.roleIndex[k]; ok {
		if cs, ok := c.spaceIndex[foldKey(target)]; ok {
			return cs, nil
		}
	}
	return nil, configErrorf(name, "unknown color space or role")
}

// RoleNames lists the defined roles, sorted.
func (c *Config) RoleNames() []string {
	return slices.Sorted(maps.Keys(c.roles))
}

// Role returns the color space name a role points to.
func (c *Config) Role(role string) (string, bool) {
	cs, ok := c.roleIndex[foldKey(role)]
	return cs, ok
}

// ReferenceSpace returns the name of the scene reference color space: the
// reference role when set, otherwise the only non-data color space with no
// transforms. It is empty when neither exists.
func (c *Config) ReferenceSpace() string { return c.referenceSpace }

// LookNames lists the looks in declaration order.
func (c *Config) LookNames() []string {
	return lo.Map(c.looks, func(l *Look, _ int) string { return l.Name })
}

// Look returns a copy of the named look.
func (c *Config) Look(name string) (*Look, error) {
	l, ok := c.lookIndex[foldKey(name)]
	if !ok {
		return nil, configErrorf(name, "unknown look")
	}
	cp := *l
	return &cp, nil
}

// ViewTransformNames lists the view transforms in declaration order.
func (c *Config) ViewTransformNames() []string {
	return lo.Map(c.viewTransforms, func(vt *ViewTransform, _ int) string { return vt.Name })
}

// ViewTransform returns a copy of the named view transform.
func (c *Config) ViewTransform(name string) (*ViewTransform, error) {
	vt, ok := c.vtIndex[foldKey(name)]
	if !ok {
		return nil, configErrorf(name, "unknown view transform")
	}
	cp := *vt
	return &cp, nil
}

// DefaultViewTransform returns the view transform bridging the scene and
// display reference spaces: the declared default, else the first
// scene-referred view transform. It is empty when there is none.
func (c *Config) DefaultViewTransform() string {
	if vt := c.bridgeViewTransform(); vt != nil {
		return vt.Name
	}
	return ""
}

func (c *Config) bridgeViewTransform() *ViewTransform {
	if c.defaultViewTransform != "" {
		if vt, ok := c.vtIndex[foldKey(c.defaultViewTransform)]; ok && vt.ReferenceSpace == ReferenceScene {
			return vt
		}
	}
	for _, vt := range c.viewTransforms {
		if vt.ReferenceSpace == ReferenceScene {
			return vt
		}
	}
	return nil
}

// Displays lists the active displays, or every display when no active
// list is set.
func (c *Config) Displays() []string {
	all := lo.Map(c.displays, func(d *Display, _ int) string { return d.Name })
	return filterActive(all, c.activeDisplays)
}

// DefaultDisplay returns the first active display.
func (c *Config) DefaultDisplay() string {
	if d := c.Displays(); len(d) > 0 {
		return d[0]
	}
	return ""
}

// Views lists the active views of a display.
func (c *Config) Views(display string) []string {
	d, ok := c.displayIndex[foldKey(display)]
	if !ok {
		return nil
	}
	all := lo.Map(d.Views, func(v View, _ int) string { return v.Name })
	return filterActive(all, c.activeViews)
}

// DefaultView returns the first active view of a display.
func (c *Config) DefaultView(display string) string {
	if v := c.Views(display); len(v) > 0 {
		return v[0]
	}
	return ""
}

// View returns a copy of a view of a display.
func (c *Config) View(display, view string) (*View, error) {
	v, err := c.lookupDisplayView(display, view)
	if err != nil {
		return nil, err
	}
	cp := *v
	return &cp, nil
}

// filterActive orders names like active and drops the others. An empty
// active list keeps all names.
func filterActive(names, active []string) []string {
	if len(active) == 0 {
		return names
	}
	var out []string
	for _, a := range active {
		if i := slices.IndexFunc(names, func(n string) bool { return foldEqual(n, a) }); i >= 0 {
			out = append(out, names[i])
		}
	}
	return out
}

// CurrentContext returns a new context holding the config's search paths,
// working directory and environment variables. Variables present in the
// environment override the declared defaults.
func (c *Config) CurrentContext() *Context {
	ctx := NewContext(c.opts.env)
	for k, def := range c.environment {
		if v, ok := c.opts.env.LookupEnv(k); ok {
			ctx.SetStringVar(k, v)
		} else {
			ctx.SetStringVar(k, def)
		}
	}
	for _, p := range c.searchPaths {
		ctx.AddSearchPath(p)
	}
	ctx.SetWorkingDir(c.workingDir)
	return ctx
}

// Edit returns a builder seeded with a copy of the config.
func (c *Config) Edit() *ConfigBuilder {
	return &ConfigBuilder{
		opts:                 c.opts,
		majorVersion:         c.majorVersion,
		minorVersion:         c.minorVersion,
		description:          c.description,
		environment:          maps.Clone(c.environment),
		searchPaths:          slices.Clone(c.searchPaths),
		workingDir:           c.workingDir,
		strict:               c.strict,
		roles:                maps.Clone(c.roles),
		colorSpaces:          cloneSpaces(c.colorSpaces),
		looks:                clonePtrs(c.looks),
		viewTransforms:       clonePtrs(c.viewTransforms),
		displays:             cloneDisplays(c.displays),
		activeDisplays:       slices.Clone(c.activeDisplays),
		activeViews:          slices.Clone(c.activeViews),
		defaultViewTransform: c.defaultViewTransform,
	}
}

// RawConfig returns the minimal config: a single data color space "raw"
// shown through the "Raw" view of the "sRGB" display. Every processor it
// builds from structural transforms is a no-op; direct transforms work as
// usual.
func RawConfig(opts ...ConfigOption) *Config {
	b := NewConfigBuilder(opts...)
	b.SetDescription("A raw config with no color transforms.")
	b.AddColorSpace(&ColorSpace{Name: "raw", Family: "raw", BitDepth: BitDepthF32, IsData: true})
	b.SetRole(RoleDefault, "raw")
	b.AddDisplayView("sRGB", View{Name: "Raw", ColorSpace: "raw"})
	cfg, err := b.Build()
	if err != nil {
		panic("colorio: raw config: " + err.Error())
	}
	return cfg
}

// lookupDisplayView resolves a (display, view) pair.
func (c *Config) lookupDisplayView(display, view string) (*View, error) {
	d, ok := c.displayIndex[foldKey(display)]
	if !ok {
		return nil, configErrorf(display, "unknown display")
	}
	v, ok := d.View(view)
	if !ok {
		return nil, configErrorf(display+"/"+view, "unknown view")
	}
	return v, nil
}

func (c *Config) lookupLook(name string) (*Look, error) {
	l, ok := c.lookIndex[foldKey(name)]
	if !ok {
		return nil, configErrorf(name, "unknown look")
	}
	return l, nil
}

func (c *Config) lookupViewTransform(name string) (*ViewTransform, error) {
	vt, ok := c.vtIndex[foldKey(name)]
	if !ok {
		return nil, configErrorf(name, "unknown view transform")
	}
	return vt, nil
}

// splitNames splits a comma-separated list, trimming blanks.
func splitNames(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}
