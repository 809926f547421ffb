// Package configyaml loads colorio configs from YAML profiles.
//
// A profile is a mapping with the keys ocio_profile_version, description,
// environment, search_path, strictparsing, roles, looks, view_transforms,
// default_view_transform, displays, active_displays, active_views,
// colorspaces and display_colorspaces. Entities and transforms are tagged
// nodes:
//
//	colorspaces:
//	  - !<ColorSpace>
//	    name: lg10
//	    from_reference: !<GroupTransform>
//	      children:
//	        - !<MatrixTransform> {offset: [0.01, 0.01, 0.01, 0]}
//	        - !<LogTransform> {base: 10}
//
// Unknown keys are logged through colorio.Logger and otherwise ignored.
package configyaml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/colorio"
)

// Load reads a profile from r. Relative search paths resolve against the
// current directory; use LoadFile to resolve them against the profile.
func Load(r io.Reader, opts ...colorio.ConfigOption) (*colorio.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &colorio.Error{Kind: colorio.KindFile, Entity: "config", Err: err}
	}
	b, err := parse(data, "config", opts)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// LoadFile reads the profile at path. The profile's directory becomes the
// working directory of relative search paths.
func LoadFile(path string, opts ...colorio.ConfigOption) (*colorio.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &colorio.Error{Kind: colorio.KindFile, Entity: path, Err: err}
	}
	b, err := parse(data, path, opts)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &colorio.Error{Kind: colorio.KindFile, Entity: path, Err: err}
	}
	b.SetWorkingDir(filepath.Dir(abs))
	return b.Build()
}

// LoadFromEnv loads the profile named by $OCIO in env.
func LoadFromEnv(env colorio.EnvProvider, opts ...colorio.ConfigOption) (*colorio.Config, error) {
	path, ok := colorio.ConfigPathFromEnv(env)
	if !ok {
		return nil, &colorio.Error{Kind: colorio.KindConfiguration, Entity: colorio.EnvConfigPath, Msg: "variable is not set"}
	}
	return LoadFile(path, append([]colorio.ConfigOption{colorio.WithEnvProvider(env)}, opts...)...)
}

// document is the top level of a profile. Keys whose value can take more
// than one shape stay as nodes.
type document struct {
	Version              string            `yaml:"ocio_profile_version"`
	Description          string            `yaml:"description"`
	Environment          map[string]string `yaml:"environment"`
	SearchPath           yaml.Node         `yaml:"search_path"`
	ResourcePath         yaml.Node         `yaml:"resource_path"`
	StrictParsing        *bool             `yaml:"strictparsing"`
	Roles                yaml.Node         `yaml:"roles"`
	Looks                []yaml.Node       `yaml:"looks"`
	ViewTransforms       []yaml.Node       `yaml:"view_transforms"`
	DefaultViewTransform string            `yaml:"default_view_transform"`
	Displays             yaml.Node         `yaml:"displays"`
	ActiveDisplays       yaml.Node         `yaml:"active_displays"`
	ActiveViews          yaml.Node         `yaml:"active_views"`
	ColorSpaces          []yaml.Node       `yaml:"colorspaces"`
	DisplayColorSpaces   []yaml.Node       `yaml:"display_colorspaces"`
}

var documentKeys = []string{
	"ocio_profile_version", "description", "environment", "search_path", "resource_path",
	"strictparsing", "roles", "looks", "view_transforms", "default_view_transform",
	"displays", "active_displays", "active_views", "colorspaces", "display_colorspaces",
	"luma", "family_separator", "file_rules", "shared_views", "inactive_colorspaces", "name",
}

// parser carries the state shared by the decoding steps.
type parser struct {
	name  string
	major int
}

func parse(data []byte, name string, opts []colorio.ConfigOption) (*colorio.ConfigBuilder, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, configError(name, "empty profile")
		}
		return nil, &colorio.Error{Kind: colorio.KindConfiguration, Entity: name, Err: err}
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, configError(name, "profile is not a mapping")
	}
	top := root.Content[0]
	warnUnknown(top, "profile", documentKeys)

	var doc document
	if err := top.Decode(&doc); err != nil {
		return nil, &colorio.Error{Kind: colorio.KindConfiguration, Entity: name, Err: err}
	}
	major, minor, err := parseVersion(doc.Version)
	if err != nil {
		return nil, configError(name, "%v", err)
	}
	p := &parser{name: name, major: major}

	b := colorio.NewConfigBuilder(opts...)
	b.SetVersion(major, minor)
	b.SetDescription(strings.TrimSpace(doc.Description))
	for k, v := range doc.Environment {
		b.SetEnvironmentVar(k, v)
	}
	if doc.StrictParsing != nil {
		b.SetStrictParsing(*doc.StrictParsing)
	}
	for _, n := range []*yaml.Node{&doc.SearchPath, &doc.ResourcePath} {
		paths, err := stringList(n, string(filepath.ListSeparator))
		if err != nil {
			return nil, configError(name, "search_path: %v", err)
		}
		for _, sp := range paths {
			b.AddSearchPath(sp)
		}
	}
	if err := p.roles(b, &doc.Roles); err != nil {
		return nil, err
	}
	for i := range doc.ColorSpaces {
		cs, err := p.colorSpace(&doc.ColorSpaces[i], colorio.ReferenceScene)
		if err != nil {
			return nil, err
		}
		b.AddColorSpace(cs)
	}
	for i := range doc.DisplayColorSpaces {
		cs, err := p.colorSpace(&doc.DisplayColorSpaces[i], colorio.ReferenceDisplay)
		if err != nil {
			return nil, err
		}
		b.AddColorSpace(cs)
	}
	for i := range doc.Looks {
		l, err := p.look(&doc.Looks[i])
		if err != nil {
			return nil, err
		}
		b.AddLook(l)
	}
	for i := range doc.ViewTransforms {
		vt, err := p.viewTransform(&doc.ViewTransforms[i])
		if err != nil {
			return nil, err
		}
		b.AddViewTransform(vt)
	}
	b.SetDefaultViewTransform(doc.DefaultViewTransform)
	if err := p.displays(b, &doc.Displays); err != nil {
		return nil, err
	}
	for _, al := range []struct {
		key  string
		node *yaml.Node
		set  func(string) *colorio.ConfigBuilder
	}{
		{"active_displays", &doc.ActiveDisplays, b.SetActiveDisplays},
		{"active_views", &doc.ActiveViews, b.SetActiveViews},
	} {
		names, err := stringList(al.node, ",")
		if err != nil {
			return nil, configError(name, "%s: %v", al.key, err)
		}
		al.set(strings.Join(names, ","))
	}
	return b, nil
}

// parseVersion parses "major" or "major.minor".
func parseVersion(s string) (major, minor int, err error) {
	if s == "" {
		return 0, 0, fmt.Errorf("missing ocio_profile_version")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("invalid ocio_profile_version %q", s)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid ocio_profile_version %q", s)
	}
	if len(parts) == 2 {
		if minor, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid ocio_profile_version %q", s)
		}
	}
	return major, minor, nil
}

func (p *parser) roles(b *colorio.ConfigBuilder, n *yaml.Node) error {
	if n.Kind == 0 {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return p.errorAt(n, "roles", "value must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		b.SetRole(n.Content[i].Value, n.Content[i+1].Value)
	}
	return nil
}

type colorSpaceDoc struct {
	Name           string    `yaml:"name"`
	Aliases        []string  `yaml:"aliases"`
	Family         string    `yaml:"family"`
	EqualityGroup  string    `yaml:"equalitygroup"`
	Description    string    `yaml:"description"`
	BitDepth       string    `yaml:"bitdepth"`
	IsData         bool      `yaml:"isdata"`
	Allocation     string    `yaml:"allocation"`
	AllocationVars []float64 `yaml:"allocationvars"`
	ToReference    yaml.Node `yaml:"to_reference"`
	FromReference  yaml.Node `yaml:"from_reference"`
	ToScene        yaml.Node `yaml:"to_scene_reference"`
	FromScene      yaml.Node `yaml:"from_scene_reference"`
	ToDisplay      yaml.Node `yaml:"to_display_reference"`
	FromDisplay    yaml.Node `yaml:"from_display_reference"`
}

var colorSpaceKeys = []string{
	"name", "aliases", "family", "equalitygroup", "description", "bitdepth", "isdata",
	"allocation", "allocationvars", "to_reference", "from_reference", "to_scene_reference",
	"from_scene_reference", "to_display_reference", "from_display_reference", "categories", "encoding",
}

func (p *parser) colorSpace(n *yaml.Node, ref colorio.ReferenceSpaceType) (*colorio.ColorSpace, error) {
	if err := p.expectTag(n, "ColorSpace"); err != nil {
		return nil, err
	}
	warnUnknown(n, "ColorSpace", colorSpaceKeys)
	var d colorSpaceDoc
	if err := n.Decode(&d); err != nil {
		return nil, p.errorAt(n, "ColorSpace", "%v", err)
	}
	if d.Name == "" {
		return nil, p.errorAt(n, "ColorSpace", "missing name")
	}
	cs := &colorio.ColorSpace{
		Name:           d.Name,
		Aliases:        d.Aliases,
		Family:         d.Family,
		EqualityGroup:  d.EqualityGroup,
		Description:    strings.TrimSpace(d.Description),
		BitDepth:       colorio.BitDepthUnknown,
		IsData:         d.IsData,
		ReferenceSpace: ref,
	}
	if d.BitDepth != "" {
		depth, ok := colorio.ParseBitDepth(d.BitDepth)
		if !ok {
			return nil, p.errorAt(n, d.Name, "unknown bitdepth %q", d.BitDepth)
		}
		cs.BitDepth = depth
	}
	if d.Allocation != "" || len(d.AllocationVars) > 0 {
		kind, ok := allocationKinds[strings.ToLower(d.Allocation)]
		if !ok && d.Allocation != "" {
			return nil, p.errorAt(n, d.Name, "unknown allocation %q", d.Allocation)
		}
		cs.Allocation = colorio.Allocation{Kind: kind, Vars: d.AllocationVars}
	}

	to, from := &d.ToReference, &d.FromReference
	switch {
	case ref == colorio.ReferenceDisplay && (d.ToDisplay.Kind != 0 || d.FromDisplay.Kind != 0):
		to, from = &d.ToDisplay, &d.FromDisplay
	case d.ToScene.Kind != 0 || d.FromScene.Kind != 0:
		to, from = &d.ToScene, &d.FromScene
	}
	var err error
	if cs.ToReference, err = p.optionalTransform(to); err != nil {
		return nil, err
	}
	if cs.FromReference, err = p.optionalTransform(from); err != nil {
		return nil, err
	}
	return cs, nil
}

type lookDoc struct {
	Name             string    `yaml:"name"`
	ProcessSpace     string    `yaml:"process_space"`
	Description      string    `yaml:"description"`
	Transform        yaml.Node `yaml:"transform"`
	InverseTransform yaml.Node `yaml:"inverse_transform"`
}

func (p *parser) look(n *yaml.Node) (*colorio.Look, error) {
	if err := p.expectTag(n, "Look"); err != nil {
		return nil, err
	}
	warnUnknown(n, "Look", []string{"name", "process_space", "description", "transform", "inverse_transform"})
	var d lookDoc
	if err := n.Decode(&d); err != nil {
		return nil, p.errorAt(n, "Look", "%v", err)
	}
	if d.Name == "" {
		return nil, p.errorAt(n, "Look", "missing name")
	}
	l := &colorio.Look{Name: d.Name, ProcessSpace: d.ProcessSpace, Description: strings.TrimSpace(d.Description)}
	var err error
	if l.Transform, err = p.optionalTransform(&d.Transform); err != nil {
		return nil, err
	}
	if l.InverseTransform, err = p.optionalTransform(&d.InverseTransform); err != nil {
		return nil, err
	}
	return l, nil
}

type viewTransformDoc struct {
	Name        string    `yaml:"name"`
	Family      string    `yaml:"family"`
	Description string    `yaml:"description"`
	FromScene   yaml.Node `yaml:"from_scene_reference"`
	ToScene     yaml.Node `yaml:"to_scene_reference"`
	FromDisplay yaml.Node `yaml:"from_display_reference"`
	ToDisplay   yaml.Node `yaml:"to_display_reference"`
}

func (p *parser) viewTransform(n *yaml.Node) (*colorio.ViewTransform, error) {
	if err := p.expectTag(n, "ViewTransform"); err != nil {
		return nil, err
	}
	warnUnknown(n, "ViewTransform", []string{"name", "family", "description", "categories",
		"from_scene_reference", "to_scene_reference", "from_display_reference", "to_display_reference"})
	var d viewTransformDoc
	if err := n.Decode(&d); err != nil {
		return nil, p.errorAt(n, "ViewTransform", "%v", err)
	}
	if d.Name == "" {
		return nil, p.errorAt(n, "ViewTransform", "missing name")
	}
	vt := &colorio.ViewTransform{Name: d.Name, Family: d.Family, Description: strings.TrimSpace(d.Description)}
	from, to := &d.FromScene, &d.ToScene
	if d.FromScene.Kind == 0 && d.ToScene.Kind == 0 {
		vt.ReferenceSpace = colorio.ReferenceDisplay
		from, to = &d.FromDisplay, &d.ToDisplay
	}
	var err error
	if vt.FromReference, err = p.optionalTransform(from); err != nil {
		return nil, err
	}
	if vt.ToReference, err = p.optionalTransform(to); err != nil {
		return nil, err
	}
	if vt.FromReference == nil && vt.ToReference == nil {
		return nil, p.errorAt(n, d.Name, "view transform has no transform")
	}
	return vt, nil
}

type viewDoc struct {
	Name              string `yaml:"name"`
	ColorSpace        string `yaml:"colorspace"`
	ViewTransform     string `yaml:"view_transform"`
	DisplayColorSpace string `yaml:"display_colorspace"`
	Looks             string `yaml:"looks"`
	Look              string `yaml:"look"`
	Description       string `yaml:"description"`
}

func (p *parser) displays(b *colorio.ConfigBuilder, n *yaml.Node) error {
	if n.Kind == 0 {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return p.errorAt(n, "displays", "value must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		display, views := n.Content[i].Value, n.Content[i+1]
		if views.Kind != yaml.SequenceNode {
			return p.errorAt(views, display, "views must be a list of !<View>")
		}
		for _, vn := range views.Content {
			if err := p.expectTag(vn, "View"); err != nil {
				return err
			}
			warnUnknown(vn, "View", []string{"name", "colorspace", "view_transform", "display_colorspace", "looks", "look", "description", "rule"})
			var d viewDoc
			if err := vn.Decode(&d); err != nil {
				return p.errorAt(vn, display, "%v", err)
			}
			v := colorio.View{Name: d.Name, ColorSpace: d.ColorSpace, ViewTransform: d.ViewTransform,
				Looks: d.Looks, Description: d.Description}
			if v.Looks == "" {
				v.Looks = d.Look
			}
			if d.ViewTransform != "" && d.DisplayColorSpace != "" {
				v.ColorSpace = d.DisplayColorSpace
			}
			if v.Name == "" {
				return p.errorAt(vn, display, "view does not specify a name")
			}
			if v.ColorSpace == "" {
				return p.errorAt(vn, display+"/"+v.Name, "view does not specify a color space")
			}
			b.AddDisplayView(display, v)
		}
	}
	return nil
}

// expectTag checks the local tag of an entity node.
func (p *parser) expectTag(n *yaml.Node, want string) error {
	if n.Kind != yaml.MappingNode {
		return p.errorAt(n, want, "expected a !<%s> mapping", want)
	}
	if tag := localTag(n.Tag); tag != want {
		return p.errorAt(n, want, "unexpected tag %q", n.Tag)
	}
	return nil
}

func (p *parser) errorAt(n *yaml.Node, entity, format string, args ...any) error {
	return &colorio.Error{
		Kind:   colorio.KindConfiguration,
		Entity: entity,
		Msg:    fmt.Sprintf("%s:%d: %s", p.name, n.Line, fmt.Sprintf(format, args...)),
	}
}

func configError(entity, format string, args ...any) error {
	return &colorio.Error{Kind: colorio.KindConfiguration, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

// localTag strips the verbatim and local markers: "!<ColorSpace>" and
// "!ColorSpace" both yield "ColorSpace".
func localTag(tag string) string {
	tag = strings.TrimPrefix(tag, "!<")
	tag = strings.TrimSuffix(tag, ">")
	return strings.TrimPrefix(tag, "!")
}

// warnUnknown logs the keys of a mapping that are not in known.
func warnUnknown(n *yaml.Node, what string, known []string) {
	if n.Kind != yaml.MappingNode {
		return
	}
outer:
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		for _, name := range known {
			if k.Value == name {
				continue outer
			}
		}
		colorio.Logger().Warn("configyaml: unknown key", "in", what, "key", k.Value, "line", k.Line)
	}
}

// stringList accepts a sequence of strings or a single string split on
// sep.
func stringList(n *yaml.Node, sep string) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var out []string
		for _, s := range strings.Split(n.Value, sep) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: expected a string or a list", n.Line)
}

var allocationKinds = map[string]colorio.AllocationKind{
	"":        colorio.AllocationUniform,
	"uniform": colorio.AllocationUniform,
	"lg2":     colorio.AllocationLg2,
}
