// Package landing is the "Praktik Kerja Lapangan" landing scene: its markup
// and the choreography that plays over it.
package landing

import (
	"fmt"
	"strconv"

	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/stage"
)

// Copy shown on the landing page.
const (
	Title        = "Praktik Kerja Lapangan"
	Subtitle     = "Cerita di balik “Pendataan Rencana Rehabilitasi Rekonstruksi Pascabencana”"
	Regions      = "Sumatra Barat | Sumatra Utara | Aceh"
	Dates        = "14 Januari - 02 Februari 2026"
	CallToAction = "Let's Start the Journey ➝"
)

// MapViewBox is the coordinate space of the route overlay.
const MapViewBox = "0 0 500 800"

// planeIcon is the 24×24 mini plane glyph, drawn rotated to face along +x.
const planeIcon = "M21 16v-2l-8-5V3.5c0-.83-.67-1.5-1.5-1.5S10 2.67 10 3.5V9l-8 5v2l8-2.5V19l-2 1.5V22l3.5-1 3.5 1v-1.5L13 19v-5.5l8 2.5z"

// PlaneSize is the mini plane's box.
const PlaneSize = 24

// Origin is where every route leaves from (Jakarta).
var Origin = Pin{X: -82, Y: 590, R: 8}

// Pin is a map location marker.
type Pin struct {
	X, Y, R float64
}

// Route is one flight from the origin.
type Route struct {
	Name string
	// Data is the route's SVG path data.
	Data string
	Dest Pin
	// Offset places the route's start label relative to the timeline end.
	Offset string
	// LoopDuration is how long one post-flight lap takes.
	LoopDuration float64
}

// Label is the timeline label the route's draw and flight share.
func (r Route) Label() string { return r.Name + "Start" }

// PathID is the route line's element id.
func (r Route) PathID() string { return "path-" + r.Name }

// PlaneID is the route plane's element id.
func (r Route) PlaneID() string { return "plane-" + r.Name }

// DrawID and FlightID name the route's two segments.
func (r Route) DrawID() string   { return "draw:" + r.Name }
func (r Route) FlightID() string { return "flight:" + r.Name }

// Routes are drawn in this order, farthest first.
var Routes = []Route{
	{Name: "aceh", Data: "M -82 590 Q -250 300 -470 130", Dest: Pin{-470, 130, 6}, Offset: "-=0.2", LoopDuration: 5},
	{Name: "sumut", Data: "M -82 590 Q -210 400 -370 250", Dest: Pin{-370, 250, 6}, Offset: "-=2.0", LoopDuration: 4},
	{Name: "sumbar", Data: "M -82 590 Q -180 460 -310 360", Dest: Pin{-310, 360, 6}, Offset: "-=2.0", LoopDuration: 3.5},
}

// RouteByName looks a route up.
func RouteByName(name string) (Route, error) {
	for _, r := range Routes {
		if r.Name == name {
			return r, nil
		}
	}
	return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
}

// RequiredMarkers are the selectors the choreography animates.
var RequiredMarkers = []string{
	".intro-overlay", ".plane-img", ".landing-content",
	".landing-content h1", ".landing-content h2", ".landing-content .details-info",
	".start-button", ".map-layer", ".map-pin", ".flight-path", ".mini-plane",
	"#path-aceh", "#path-sumut", "#path-sumbar",
	"#plane-aceh", "#plane-sumut", "#plane-sumbar",
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func pin(p Pin, kind string) *scene.Element {
	return scene.El("circle", scene.Class("map-pin "+kind),
		scene.Attr("cx", num(p.X)), scene.Attr("cy", num(p.Y)), scene.Attr("r", num(p.R)))
}

// Compose builds the landing scene for a viewport.
func Compose(vp scene.Viewport) *scene.Scene {
	svg := []*scene.Element{}
	for _, r := range Routes {
		svg = append(svg, scene.El("path", scene.ID(r.PathID()), scene.Class("flight-path"), scene.Attr("d", r.Data)))
	}
	svg = append(svg, pin(Origin, "origin"))
	for _, r := range Routes {
		svg = append(svg, pin(r.Dest, "dest"))
	}
	for _, r := range Routes {
		svg = append(svg, scene.El("g", scene.ID(r.PlaneID()), scene.Class("mini-plane"), scene.Size(PlaneSize, PlaneSize),
			scene.Children(scene.El("path",
				scene.Attr("fill", "#F3EAD2"), scene.Attr("transform", "rotate(90 12 12)"), scene.Attr("d", planeIcon)))))
	}

	root := scene.El("div", scene.Class("landing"), scene.Children(
		scene.El("div", scene.Class("intro-overlay")),
		scene.El("div", scene.Class("plane-layer"), scene.Children(
			scene.El("img", scene.Class("plane-img"), scene.Size(320, 320),
				scene.Attr("src", "/assets/airplane-top-view.png"), scene.Attr("alt", "Pesawat Intro")),
		)),
		scene.El("div", scene.Class("bg-layer"), scene.Children(
			scene.El("div", scene.Class("bg-dark-tint")),
			scene.El("img", scene.Class("bg-img"), scene.Attr("src", "/assets/view-bg1.jpg"), scene.Attr("alt", "Background")),
		)),
		scene.El("div", scene.Class("landing-content"), scene.Children(
			scene.El("h1", scene.Class("main-title"), scene.Text(Title)),
			scene.El("h2", scene.Class("sub-title"), scene.Text(Subtitle)),
			scene.El("div", scene.Class("details-info"), scene.Children(
				scene.El("p", scene.Class("detail-text"), scene.Text(Regions)),
				scene.El("p", scene.Class("detail-text"), scene.Text(Dates)),
			)),
			scene.El("a", scene.Class("start-button custom-btn-style"), scene.Attr("href", stage.JourneyPath), scene.Text(CallToAction)),
		)),
		scene.El("div", scene.Class("map-layer"), scene.Children(
			scene.El("img", scene.Class("base-map"), scene.Attr("src", "/assets/peta-indonesia.png"), scene.Attr("alt", "Peta Sebaran")),
			scene.El("svg", scene.Class("routes-svg"),
				scene.Attr("viewBox", MapViewBox), scene.Attr("preserveAspectRatio", "xMidYMid slice"),
				scene.Children(svg...)),
		)),
	))
	return scene.New(root, vp)
}
