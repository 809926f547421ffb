package colorio

import (
	"maps"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/gogpu/colorio/internal/cache"
)

// Profile versions understood by the builder.
const (
	MinProfileVersion = 1
	MaxProfileVersion = 2
)

// ConfigBuilder assembles a Config. Entries added with the same name
// replace earlier ones. Build validates the references between entries
// and freezes the result; the builder can keep being used afterwards.
type ConfigBuilder struct {
	opts configOptions

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
}

// NewConfigBuilder returns an empty profile version 2 builder with strict
// parsing on.
func NewConfigBuilder(opts ...ConfigOption) *ConfigBuilder {
	o := defaultConfigOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ConfigBuilder{
		opts:         o,
		majorVersion: MaxProfileVersion,
		environment:  map[string]string{},
		roles:        map[string]string{},
		strict:       true,
	}
}

// SetVersion sets the profile version.
func (b *ConfigBuilder) SetVersion(major, minor int) *ConfigBuilder {
	b.majorVersion, b.minorVersion = major, minor
	return b
}

// SetDescription sets the description.
func (b *ConfigBuilder) SetDescription(s string) *ConfigBuilder {
	b.description = s
	return b
}

// SetEnvironmentVar declares a context variable with a default value.
func (b *ConfigBuilder) SetEnvironmentVar(name, def string) *ConfigBuilder {
	b.environment[name] = def
	return b
}

// SetSearchPath replaces the search paths with a ":"-separated list.
func (b *ConfigBuilder) SetSearchPath(path string) *ConfigBuilder {
	b.searchPaths = nil
	for _, p := range strings.Split(path, ":") {
		b.AddSearchPath(p)
	}
	return b
}

// AddSearchPath appends a search path.
func (b *ConfigBuilder) AddSearchPath(path string) *ConfigBuilder {
	if path = strings.TrimSpace(path); path != "" {
		b.searchPaths = append(b.searchPaths, path)
	}
	return b
}

// SetWorkingDir sets the directory relative search paths start from.
func (b *ConfigBuilder) SetWorkingDir(dir string) *ConfigBuilder {
	b.workingDir = dir
	return b
}

// SetStrictParsing controls whether unknown active displays and views fail
// Build or are dropped with a warning.
func (b *ConfigBuilder) SetStrictParsing(strict bool) *ConfigBuilder {
	b.strict = strict
	return b
}

// SetRole points role at a color space. An empty colorSpace removes the
// role.
func (b *ConfigBuilder) SetRole(role, colorSpace string) *ConfigBuilder {
	for k := range b.roles {
		if foldEqual(k, role) {
			delete(b.roles, k)
		}
	}
	if colorSpace != "" {
		b.roles[role] = colorSpace
	}
	return b
}

// AddColorSpace adds or replaces a color space. The builder keeps a copy.
func (b *ConfigBuilder) AddColorSpace(cs *ColorSpace) *ConfigBuilder {
	cs = cs.Clone()
	if i := slices.IndexFunc(b.colorSpaces, func(o *ColorSpace) bool { return foldEqual(o.Name, cs.Name) }); i >= 0 {
		b.colorSpaces[i] = cs
	} else {
		b.colorSpaces = append(b.colorSpaces, cs)
	}
	return b
}

// AddLook adds or replaces a look.
func (b *ConfigBuilder) AddLook(l *Look) *ConfigBuilder {
	cp := *l
	if i := slices.IndexFunc(b.looks, func(o *Look) bool { return foldEqual(o.Name, l.Name) }); i >= 0 {
		b.looks[i] = &cp
	} else {
		b.looks = append(b.looks, &cp)
	}
	return b
}

// AddViewTransform adds or replaces a view transform.
func (b *ConfigBuilder) AddViewTransform(vt *ViewTransform) *ConfigBuilder {
	cp := *vt
	if i := slices.IndexFunc(b.viewTransforms, func(o *ViewTransform) bool { return foldEqual(o.Name, vt.Name) }); i >= 0 {
		b.viewTransforms[i] = &cp
	} else {
		b.viewTransforms = append(b.viewTransforms, &cp)
	}
	return b
}

// SetDefaultViewTransform names the view transform used to bridge the
// scene and display reference spaces.
func (b *ConfigBuilder) SetDefaultViewTransform(name string) *ConfigBuilder {
	b.defaultViewTransform = name
	return b
}

// AddDisplayView adds or replaces a view of a display, creating the
// display when needed. Displays and views keep their insertion order.
func (b *ConfigBuilder) AddDisplayView(display string, v View) *ConfigBuilder {
	i := slices.IndexFunc(b.displays, func(d *Display) bool { return foldEqual(d.Name, display) })
	if i < 0 {
		b.displays = append(b.displays, &Display{Name: display})
		i = len(b.displays) - 1
	}
	d := b.displays[i]
	if j := slices.IndexFunc(d.Views, func(o View) bool { return foldEqual(o.Name, v.Name) }); j >= 0 {
		d.Views[j] = v
	} else {
		d.Views = append(d.Views, v)
	}
	return b
}

// SetActiveDisplays restricts and orders the displays reported by the
// config. It takes a comma-separated list; empty means all.
func (b *ConfigBuilder) SetActiveDisplays(list string) *ConfigBuilder {
	b.activeDisplays = splitNames(list)
	return b
}

// SetActiveViews restricts and orders the views reported by the config.
func (b *ConfigBuilder) SetActiveViews(list string) *ConfigBuilder {
	b.activeViews = splitNames(list)
	return b
}

// Build validates the builder contents and returns the frozen Config.
// Every error is a configuration error naming the offending entity.
func (b *ConfigBuilder) Build() (*Config, error) {
	if b.majorVersion < MinProfileVersion || b.majorVersion > MaxProfileVersion {
		return nil, configErrorf("ocio_profile_version", "unsupported version %d", b.majorVersion)
	}
	c := b.snapshot()
	if err := c.index(); err != nil {
		return nil, err
	}
	if err := c.validateRoles(); err != nil {
		return nil, err
	}
	if err := c.validateLooks(); err != nil {
		return nil, err
	}
	if err := c.validateDisplays(); err != nil {
		return nil, err
	}
	var err error
	if c.activeDisplays, err = c.checkActive("active_displays", c.activeDisplays, c.displayNameExists); err != nil {
		return nil, err
	}
	if c.activeViews, err = c.checkActive("active_views", c.activeViews, c.viewNameExists); err != nil {
		return nil, err
	}
	if c.defaultViewTransform != "" {
		if _, err := c.lookupViewTransform(c.defaultViewTransform); err != nil {
			return nil, err
		}
	}
	c.referenceSpace = c.findReferenceSpace()
	c.flags = c.opts.flags
	if f, ok, err := OptimizationFlagsFromEnv(c.opts.env); err != nil {
		Logger().Warn("colorio: ignoring invalid optimization flags", "err", err)
	} else if ok {
		c.flags = f
	}
	return c, nil
}

// snapshot copies the builder so later edits do not leak into the Config.
func (b *ConfigBuilder) snapshot() *Config {
	return &Config{
		opts:                 b.opts,
		majorVersion:         b.majorVersion,
		minorVersion:         b.minorVersion,
		description:          b.description,
		environment:          maps.Clone(b.environment),
		searchPaths:          slices.Clone(b.searchPaths),
		workingDir:           b.workingDir,
		strict:               b.strict,
		roles:                maps.Clone(b.roles),
		colorSpaces:          cloneSpaces(b.colorSpaces),
		looks:                clonePtrs(b.looks),
		viewTransforms:       clonePtrs(b.viewTransforms),
		displays:             cloneDisplays(b.displays),
		activeDisplays:       slices.Clone(b.activeDisplays),
		activeViews:          slices.Clone(b.activeViews),
		defaultViewTransform: b.defaultViewTransform,
		processors:           cache.New[*Processor](b.opts.processorCacheSize),
		files:                map[string]fileEntry{},
	}
}

func cloneSpaces(s []*ColorSpace) []*ColorSpace {
	return lo.Map(s, func(cs *ColorSpace, _ int) *ColorSpace { return cs.Clone() })
}

// clonePtrs copies each pointed-to struct.
func clonePtrs[T any](s []*T) []*T {
	return lo.Map(s, func(p *T, _ int) *T {
		cp := *p
		return &cp
	})
}

func cloneDisplays(s []*Display) []*Display {
	return lo.Map(s, func(d *Display, _ int) *Display {
		return &Display{Name: d.Name, Views: slices.Clone(d.Views)}
	})
}

// index builds the case-folded lookup tables and rejects duplicate names.
func (c *Config) index() error {
	c.spaceIndex = map[string]*ColorSpace{}
	c.roleIndex = map[string]string{}
	c.lookIndex = map[string]*Look{}
	c.vtIndex = map[string]*ViewTransform{}
	c.displayIndex = map[string]*Display{}

	for _, cs := range c.colorSpaces {
		if cs.Name == "" {
			return configErrorf("colorspaces", "color space without a name")
		}
		for _, n := range append([]string{cs.Name}, cs.Aliases...) {
			k := foldKey(n)
			if other, dup := c.spaceIndex[k]; dup {
				return configErrorf(n, "name already used by color space %q", other.Name)
			}
			c.spaceIndex[k] = cs
		}
	}
	for role, target := range c.roles {
		k := foldKey(role)
		if cs, dup := c.spaceIndex[k]; dup {
			return configErrorf(role, "role name already used by color space %q", cs.Name)
		}
		c.roleIndex[k] = target
	}
	for _, l := range c.looks {
		if l.Name == "" {
			return configErrorf("looks", "look without a name")
		}
		c.lookIndex[foldKey(l.Name)] = l
	}
	for _, vt := range c.viewTransforms {
		if vt.Name == "" {
			return configErrorf("view_transforms", "view transform without a name")
		}
		c.vtIndex[foldKey(vt.Name)] = vt
	}
	for _, d := range c.displays {
		c.displayIndex[foldKey(d.Name)] = d
	}
	return nil
}

func (c *Config) validateRoles() error {
	for _, role := range c.RoleNames() {
		target := c.roles[role]
		if _, ok := c.spaceIndex[foldKey(target)]; !ok {
			return configErrorf(role, "role refers to unknown color space %q", target)
		}
	}
	return nil
}

func (c *Config) validateLooks() error {
	for _, l := range c.looks {
		if l.ProcessSpace != "" {
			if _, err := c.lookupSpace(l.ProcessSpace); err != nil {
				return configErrorf(l.Name, "look process space %q is not a color space", l.ProcessSpace)
			}
		}
	}
	// Looks may reference other looks through LookTransforms; the
	// reference graph must be acyclic.
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var visit func(l *Look) error
	visit = func(l *Look) error {
		k := foldKey(l.Name)
		switch state[k] {
		case visiting:
			return configErrorf(l.Name, "look references itself")
		case done:
			return nil
		}
		state[k] = visiting
		for _, t := range []Transform{l.Transform, l.InverseTransform} {
			for _, name := range referencedLooks(t) {
				next, err := c.lookupLook(name)
				if err != nil {
					return configErrorf(l.Name, "look references unknown look %q", name)
				}
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		state[k] = done
		return nil
	}
	for _, l := range c.looks {
		if err := visit(l); err != nil {
			return err
		}
	}
	return nil
}

// referencedLooks lists the look names used by LookTransforms in t.
func referencedLooks(t Transform) []string {
	switch v := t.(type) {
	case *LookTransform:
		return lo.Map(parseLooks(v.Looks), func(s lookStep, _ int) string { return s.name })
	case *GroupTransform:
		return lo.FlatMap(v.Children, func(c Transform, _ int) []string { return referencedLooks(c) })
	}
	return nil
}

func (c *Config) validateDisplays() error {
	for _, d := range c.displays {
		if len(d.Views) == 0 {
			return configErrorf(d.Name, "display has no views")
		}
		for _, v := range d.Views {
			entity := d.Name + "/" + v.Name
			if v.ColorSpace == "" {
				return configErrorf(entity, "view has no color space")
			}
			if _, err := c.lookupSpace(v.ColorSpace); err != nil {
				return configErrorf(entity, "view refers to unknown color space %q", v.ColorSpace)
			}
			if v.ViewTransform != "" {
				if _, err := c.lookupViewTransform(v.ViewTransform); err != nil {
					return configErrorf(entity, "view refers to unknown view transform %q", v.ViewTransform)
				}
			}
			for _, s := range parseLooks(v.Looks) {
				if _, err := c.lookupLook(s.name); err != nil {
					return configErrorf(entity, "view refers to unknown look %q", s.name)
				}
			}
		}
	}
	return nil
}

func (c *Config) displayNameExists(name string) bool {
	_, ok := c.displayIndex[foldKey(name)]
	return ok
}

func (c *Config) viewNameExists(name string) bool {
	return lo.SomeBy(c.displays, func(d *Display) bool {
		_, ok := d.View(name)
		return ok
	})
}

// checkActive rejects unknown entries of an active list under strict
// parsing and drops them with a warning otherwise.
func (c *Config) checkActive(entity string, names []string, exists func(string) bool) ([]string, error) {
	var kept []string
	for _, n := range names {
		if exists(n) {
			kept = append(kept, n)
			continue
		}
		if c.strict {
			return nil, configErrorf(entity, "unknown entry %q", n)
		}
		Logger().Warn("colorio: skipping unknown active entry", "list", entity, "name", n)
	}
	return kept, nil
}

func (c *Config) findReferenceSpace() string {
	if target, ok := c.roleIndex[foldKey(RoleReference)]; ok {
		return c.spaceIndex[foldKey(target)].Name
	}
	candidates := lo.Filter(c.colorSpaces, func(cs *ColorSpace, _ int) bool {
		return !cs.IsData && cs.ReferenceSpace == ReferenceScene && cs.ToReference == nil && cs.FromReference == nil
	})
	if len(candidates) == 1 {
		return candidates[0].Name
	}
	return ""
}
