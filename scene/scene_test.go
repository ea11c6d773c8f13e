package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *Scene {
	root := El("div", Class("landing"), Children(
		El("div", Class("intro-overlay")),
		El("div", Class("landing-content"), Children(
			El("h1", Class("main-title"), Text("Title")),
			El("h2", Class("sub-title"), Text("Sub")),
			El("div", Class("details-info"), Children(
				El("p", Class("detail-text"), Text("a")),
				El("p", Class("detail-text"), Text("b")),
			)),
			El("a", Class("start-button custom-btn-style"), Attr("href", "/journey")),
		)),
		El("div", Class("map-layer"), Children(
			El("svg", Class("routes-svg"), Children(
				El("path", ID("path-aceh"), Class("flight-path"), Attr("d", "M0 0 L1 1")),
				El("circle", Class("map-pin origin")),
				El("circle", Class("map-pin dest")),
				El("g", ID("plane-aceh"), Class("mini-plane"), Size(24, 24), Initial(PropOpacity, 0.5)),
			)),
		)),
		El("h1", Class("outside")),
	))
	return New(root, DefaultViewport)
}

func handles(els []*Element) []string {
	out := make([]string, len(els))
	for i, e := range els {
		out[i] = e.Handle()
	}
	return out
}

func TestScene_Handles(t *testing.T) {
	s := fixture()
	assert.Equal(t, ".landing@0", s.Root.Handle())
	e, ok := s.ByHandle("#plane-aceh")
	require.True(t, ok)
	assert.Equal(t, "g", e.Tag)
	assert.Equal(t, 24.0, e.Width)
	_, ok = s.ByHandle(".map-pin@1")
	assert.True(t, ok)
	assert.Equal(t, 0, s.Root.Key())
	assert.Nil(t, s.Root.Parent())
}

func TestMatch_Compounds(t *testing.T) {
	s := fixture()

	got, err := s.Match(".landing-content h1, .landing-content h2, .landing-content .details-info")
	require.NoError(t, err)
	assert.Equal(t, []string{".main-title@0", ".sub-title@0", ".details-info@0"}, handles(got),
		"document order, the stray h1 outside the content block excluded")

	got, err = s.Match(".map-pin")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Match("circle.map-pin.dest")
	require.NoError(t, err)
	assert.Equal(t, []string{".map-pin@1"}, handles(got))

	got, err = s.Match("#path-aceh, .flight-path")
	require.NoError(t, err)
	assert.Len(t, got, 1, "duplicates collapse")

	got, err = s.Match(".landing .map-layer svg g")
	require.NoError(t, err)
	assert.Equal(t, []string{"#plane-aceh"}, handles(got))

	got, err = s.Match(".nothing-here")
	require.NoError(t, err)
	assert.Empty(t, got, "zero matches is not an error")
}

func TestMatch_BadSelectors(t *testing.T) {
	s := fixture()
	for _, sel := range []string{"", "a,,b", ".", "#", "div[attr]", "a > b"} {
		_, err := s.Match(sel)
		assert.ErrorIs(t, err, ErrBadSelector, sel)
	}
}

func TestScene_SetAndReset(t *testing.T) {
	s := fixture()
	plane, _ := s.ByHandle("#plane-aceh")
	path, _ := s.ByHandle("#path-aceh")

	assert.Equal(t, 0.5, s.InitialValue(plane, PropOpacity))
	assert.Equal(t, 1.0, s.InitialValue(path, PropOpacity), "opacity defaults to 1")
	assert.Equal(t, 1.0, s.InitialValue(path, PropScale))
	assert.Equal(t, 0.0, s.InitialValue(path, PropX))

	n, err := s.Set(".mini-plane", Props{PropOpacity: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Set(".flight-path", Props{PropStrokeDasharray: 1000, PropStrokeDashoffset: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 0.0, s.InitialValue(plane, PropOpacity))
	assert.Equal(t, 1000.0, s.InitialProps(path)[PropStrokeDashoffset])

	s.Reset()
	assert.Equal(t, 0.5, s.InitialValue(plane, PropOpacity))
	assert.Equal(t, 0.0, s.InitialValue(path, PropStrokeDashoffset))
}

func TestScene_Validate(t *testing.T) {
	s := fixture()
	missing := s.Validate(".intro-overlay", "#plane-sumut", ".map-pin", "bad[")
	assert.Equal(t, []string{"#plane-sumut", "bad["}, missing)
}

func TestScene_Render(t *testing.T) {
	s := fixture()
	var b strings.Builder
	err := s.Render(&b, func(e *Element) string {
		if e.HasClass("mini-plane") {
			return "opacity:0"
		}
		return ""
	})
	require.NoError(t, err)
	html := b.String()
	assert.Contains(t, html, `<a class="start-button custom-btn-style" href="/journey"></a>`)
	assert.Contains(t, html, `<path id="path-aceh" class="flight-path" d="M0 0 L1 1"></path>`)
	assert.Contains(t, html, `<g id="plane-aceh" class="mini-plane" style="opacity:0"></g>`)
	assert.Contains(t, html, `<h1 class="main-title">Title</h1>`)
}

func TestProps_Helpers(t *testing.T) {
	p := Props{"y": 1, "x": 2}
	c := p.Clone()
	c["x"] = 5
	assert.Equal(t, 2.0, p["x"])
	assert.Equal(t, []string{"x", "y"}, p.Keys())
}
