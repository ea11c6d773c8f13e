package scene

import (
	"io"
	"sort"
	"strings"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// StyleFunc returns inline style for an element, or "" for none.
type StyleFunc func(*Element) string

// Node converts the element subtree into a gomponents node.
func (e *Element) Node(style StyleFunc) g.Node {
	nodes := make([]g.Node, 0, len(e.Attrs)+len(e.Children)+3)
	if e.ID != "" {
		nodes = append(nodes, h.ID(e.ID))
	}
	if len(e.Classes) > 0 {
		nodes = append(nodes, h.Class(strings.Join(e.Classes, " ")))
	}
	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		nodes = append(nodes, g.Attr(name, e.Attrs[name]))
	}
	if style != nil {
		if css := style(e); css != "" {
			nodes = append(nodes, h.Style(css))
		}
	}
	if e.Text != "" {
		nodes = append(nodes, g.Text(e.Text))
	}
	for _, c := range e.Children {
		nodes = append(nodes, c.Node(style))
	}
	return g.El(e.Tag, nodes...)
}

// Render writes the scene tree as HTML.
func (s *Scene) Render(w io.Writer, style StyleFunc) error {
	if s.Root == nil {
		return nil
	}
	return s.Root.Node(style).Render(w)
}
