// Package scene is the static visual tree the choreography animates.
//
// A scene is composed once per mount. Elements are addressed only through
// markers (tag, #id, .class and descendant combinations of them); the
// choreography never depends on visual structure beyond those names.
package scene

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolatable property names.
const (
	PropX                = "x"
	PropY                = "y"
	PropOpacity          = "opacity"
	PropScale            = "scale"
	PropRotation         = "rotation"
	PropStrokeDashoffset = "strokeDashoffset"
	PropStrokeDasharray  = "strokeDasharray"
)

// Props holds numeric property values keyed by property name.
type Props map[string]float64

// Clone returns an independent copy.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultValue is the value a property has when nothing set it.
func DefaultValue(prop string) float64 {
	switch prop {
	case PropOpacity, PropScale:
		return 1
	default:
		return 0
	}
}

// Viewport is the area the scene is laid out in, in CSS pixels.
type Viewport struct {
	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

// DefaultViewport is a 1280×720 stage.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

// Element is one addressable node.
type Element struct {
	Tag      string
	ID       string
	Classes  []string
	Attrs    map[string]string
	Text     string
	Children []*Element

	// Width and Height are the element's box, used when aligning it to a path.
	Width, Height float64
	// Initial holds property values the element mounts with.
	Initial Props

	parent *Element
	key    int
	handle string
}

// Option configures an element built with El.
type Option func(*Element)

// El builds an element. Children are given as *Element values among options.
func El(tag string, opts ...Option) *Element {
	e := &Element{Tag: tag, Attrs: map[string]string{}, Initial: Props{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID sets the element id.
func ID(id string) Option { return func(e *Element) { e.ID = id } }

// Class adds space-separated classes.
func Class(classes string) Option {
	return func(e *Element) { e.Classes = append(e.Classes, strings.Fields(classes)...) }
}

// Attr sets a rendered attribute.
func Attr(name, value string) Option { return func(e *Element) { e.Attrs[name] = value } }

// Text sets the text content.
func Text(text string) Option { return func(e *Element) { e.Text = text } }

// Size sets the box used for path alignment.
func Size(w, h float64) Option { return func(e *Element) { e.Width, e.Height = w, h } }

// Initial sets a mount-time property value.
func Initial(prop string, v float64) Option { return func(e *Element) { e.Initial[prop] = v } }

// Children appends child elements.
func Children(children ...*Element) Option {
	return func(e *Element) { e.Children = append(e.Children, children...) }
}

// HasClass reports whether the element carries a class.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Parent returns the enclosing element, nil for the root.
func (e *Element) Parent() *Element { return e.parent }

// Key is the element's document-order index within its scene.
func (e *Element) Key() int { return e.key }

// Handle is a stable, human-readable reference: "#id" when the element has an
// id, otherwise ".firstclass@n" or "tag@n" with n counting prior elements
// sharing that prefix in document order.
func (e *Element) Handle() string { return e.handle }

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

func (e *Element) String() string {
	if e.handle != "" {
		return e.handle
	}
	return e.Tag
}

// Scene is a mounted element tree plus its mount-time state.
type Scene struct {
	Root     *Element
	Viewport Viewport

	elements []*Element
	byHandle map[string]*Element
	initial  map[*Element]Props
}

// New mounts a tree: it indexes elements in document order, assigns handles
// and captures each element's initial properties.
func New(root *Element, viewport Viewport) *Scene {
	s := &Scene{
		Root:     root,
		Viewport: viewport,
		byHandle: make(map[string]*Element),
		initial:  make(map[*Element]Props),
	}
	counts := map[string]int{}
	var walk func(parent, e *Element)
	walk = func(parent, e *Element) {
		e.parent = parent
		e.key = len(s.elements)
		prefix := e.Tag
		if len(e.Classes) > 0 {
			prefix = "." + e.Classes[0]
		}
		if e.ID != "" {
			e.handle = "#" + e.ID
		} else {
			e.handle = fmt.Sprintf("%s@%d", prefix, counts[prefix])
			counts[prefix]++
		}
		s.elements = append(s.elements, e)
		s.byHandle[e.handle] = e
		s.initial[e] = e.Initial.Clone()
		for _, c := range e.Children {
			walk(e, c)
		}
	}
	if root != nil {
		walk(nil, root)
	}
	return s
}

// Elements returns every element in document order.
func (s *Scene) Elements() []*Element { return s.elements }

// ByHandle looks an element up by its handle.
func (s *Scene) ByHandle(handle string) (*Element, bool) {
	e, ok := s.byHandle[handle]
	return e, ok
}

// Set applies mount-time property resets to every element the selector
// matches and returns how many elements were touched.
func (s *Scene) Set(selector string, props Props) (int, error) {
	matched, err := s.Match(selector)
	if err != nil {
		return 0, err
	}
	for _, e := range matched {
		for k, v := range props {
			s.initial[e][k] = v
		}
	}
	return len(matched), nil
}

// InitialValue returns the value a property has before any animation.
func (s *Scene) InitialValue(e *Element, prop string) float64 {
	if props, ok := s.initial[e]; ok {
		if v, ok := props[prop]; ok {
			return v
		}
	}
	return DefaultValue(prop)
}

// InitialProps returns a copy of an element's mount-time properties.
func (s *Scene) InitialProps(e *Element) Props {
	return s.initial[e].Clone()
}

// Reset restores mount-time properties as they were before any Set call.
func (s *Scene) Reset() {
	for _, e := range s.elements {
		s.initial[e] = e.Initial.Clone()
	}
}

// Validate returns the required selectors that match nothing.
func (s *Scene) Validate(required ...string) []string {
	var missing []string
	for _, sel := range required {
		matched, err := s.Match(sel)
		if err != nil || len(matched) == 0 {
			missing = append(missing, sel)
		}
	}
	return missing
}
