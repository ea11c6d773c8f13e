package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/teranos/flyover/landing"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/timeline"
)

const baseCSS = `
body { margin: 0; background: #141821; color: #f3ead2; font-family: sans-serif; overflow: hidden; }
.landing { position: relative; width: 100vw; height: 100vh; }
.intro-overlay { position: absolute; inset: 0; background: #000; z-index: 30; }
.plane-layer { position: absolute; inset: 0; display: flex; align-items: center; z-index: 40; pointer-events: none; }
.bg-layer, .bg-img { position: absolute; inset: 0; width: 100%; height: 100%; object-fit: cover; }
.landing-content { position: absolute; left: 6vw; top: 28vh; z-index: 10; }
.map-layer { position: absolute; right: 0; top: 0; width: 50vw; height: 100vh; }
.routes-svg { position: absolute; inset: 0; width: 100%; height: 100%; }
.flight-path { fill: none; stroke: #e8aa42; stroke-width: 2.5; }
.map-pin.origin { fill: #e8aa42; }
.map-pin.dest { fill: #f3ead2; }
.start-button { display: inline-block; padding: .6em 1.4em; border: 1px solid #e8aa42; color: #e8aa42; text-decoration: none; }
`

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// styleAt turns a sampled frame into inline CSS. Elements the frame does not
// touch get no style attribute.
func styleAt(f timeline.Frame) scene.StyleFunc {
	return func(el *scene.Element) string {
		props, ok := f.Props[el.Handle()]
		if !ok || len(props) == 0 {
			return ""
		}
		var decls, transform []string
		for _, p := range props.Keys() {
			v := props[p]
			switch p {
			case scene.PropOpacity:
				decls = append(decls, "opacity: "+num(v))
			case scene.PropStrokeDashoffset:
				decls = append(decls, "stroke-dashoffset: "+num(v))
			case scene.PropStrokeDasharray:
				decls = append(decls, "stroke-dasharray: "+num(v))
			}
		}
		x, y := props[scene.PropX], props[scene.PropY]
		if x != 0 || y != 0 {
			transform = append(transform, fmt.Sprintf("translate(%spx, %spx)", num(x), num(y)))
		}
		if s, ok := props[scene.PropScale]; ok && s != 1 {
			transform = append(transform, "scale("+num(s)+")")
		}
		if r := props[scene.PropRotation]; r != 0 {
			transform = append(transform, "rotate("+num(r)+"deg)")
		}
		if len(transform) > 0 {
			decls = append(decls, "transform: "+strings.Join(transform, " "))
		}
		if len(decls) == 0 {
			return ""
		}
		return strings.Join(decls, "; ")
	}
}

func document(title string, body ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("id"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(title)),
				h.StyleEl(g.Raw(baseCSS)),
			),
			h.Body(body...),
		),
	)
}

// landingPage renders the scene as it stands at frame f, with the resolved
// choreography embedded for a client runtime to replay.
func landingPage(c *landing.Choreography, f timeline.Frame) (g.Node, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode choreography: %w", err)
	}
	return document(landing.Title,
		c.Scene.Root.Node(styleAt(f)),
		h.Script(h.Type("application/json"), h.ID("choreography"), g.Raw(string(payload))),
	), nil
}

func journeyPage() g.Node {
	return document(landing.Title+" · Journey",
		h.Main(h.Class("journey"),
			h.H1(g.Text(landing.Title)),
			h.P(g.Text(landing.Regions)),
			h.P(g.Text(landing.Dates)),
			h.A(h.Href("/"), g.Text("Kembali")),
		),
	)
}
