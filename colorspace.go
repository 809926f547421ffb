package colorio

import "slices"

// ReferenceSpaceType distinguishes the two reference spaces of a config.
type ReferenceSpaceType uint8

// Reference space types.
const (
	ReferenceScene ReferenceSpaceType = iota
	ReferenceDisplay
)

func (r ReferenceSpaceType) String() string {
	if r == ReferenceDisplay {
		return "display"
	}
	return "scene"
}

// Allocation describes how a color space's values fit into GPU textures.
type Allocation struct {
	Kind AllocationKind
	Vars []float64
}

// ColorSpace is a named color encoding defined by its transforms to and
// from its reference space. A color space with neither transform set is
// the reference itself.
type ColorSpace struct {
	Name          string
	Aliases       []string
	Family        string
	EqualityGroup string
	Description   string
	BitDepth      BitDepth
	// IsData marks non-color data; conversions to or from it are skipped
	// when data bypass is on.
	IsData         bool
	ReferenceSpace ReferenceSpaceType
	Allocation     Allocation
	ToReference    Transform
	FromReference  Transform
}

// Clone returns a copy sharing the immutable transforms.
func (cs *ColorSpace) Clone() *ColorSpace {
	c := *cs
	c.Aliases = slices.Clone(cs.Aliases)
	c.Allocation.Vars = slices.Clone(cs.Allocation.Vars)
	return &c
}

// Look is a named creative adjustment applied in its process space.
type Look struct {
	Name         string
	ProcessSpace string
	Description  string
	Transform    Transform
	// InverseTransform, when set, is used instead of inverting Transform.
	InverseTransform Transform
}

// ViewTransform converts between the scene and display reference spaces.
type ViewTransform struct {
	Name           string
	Family         string
	Description    string
	ReferenceSpace ReferenceSpaceType
	FromReference  Transform
	ToReference    Transform
}

// View is an entry of a display. It names either a color space, or a view
// transform together with the display color space.
type View struct {
	Name          string
	ColorSpace    string
	ViewTransform string
	Looks         string
	Description   string
}

// Display is an ordered list of views.
type Display struct {
	Name  string
	Views []View
}

// View returns the view with the given name.
func (d *Display) View(name string) (*View, bool) {
	for i := range d.Views {
		if foldEqual(d.Views[i].Name, name) {
			return &d.Views[i], true
		}
	}
	return nil, false
}
