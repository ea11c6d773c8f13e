package flyover

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/timeline"
)

// Config defines the visual parameters of a film frame
type Config struct {
	Width      int        // Frame width in pixels
	Height     int        // Frame height in pixels
	Background color.RGBA // Background color
	Foreground color.RGBA // Text, pins and planes
	Accent     color.RGBA // Route strokes and the origin pin
	Overlay    color.RGBA // Intro overlay
	OutputDir  string     // Directory to save film frames
}

// DefaultConfig is a 16:9 frame in the landing page palette.
func DefaultConfig() Config {
	return Config{
		Width:      640,
		Height:     360,
		Background: color.RGBA{R: 20, G: 24, B: 33, A: 255},
		Foreground: color.RGBA{R: 243, G: 234, B: 210, A: 255},
		Accent:     color.RGBA{R: 232, G: 170, B: 66, A: 255},
		Overlay:    color.RGBA{A: 255},
		OutputDir:  "film",
	}
}

// RenderingStage rasterizes sampled frames of the landing scene.
//
// The layout is schematic: the copy sits on the left, the route map is fitted
// into the right half, the overlay covers everything and the intro plane
// crosses on top. Every position and opacity comes from the frame.
type RenderingStage struct {
	config     Config
	img        *image.RGBA
	raster     *vector.Rasterizer
	font       font.Face
	lineHeight int
	paths      *motionpath.Plugin
}

// NewRenderingStage creates a stage that draws frames of config's size
func NewRenderingStage(config Config) *RenderingStage {
	def := DefaultConfig()
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = def.Width, def.Height
	}
	return &RenderingStage{
		config:     config,
		img:        image.NewRGBA(image.Rect(0, 0, config.Width, config.Height)),
		raster:     vector.NewRasterizer(config.Width, config.Height),
		font:       basicfont.Face7x13,
		lineHeight: 20,
		paths:      motionpath.NewPlugin(),
	}
}

// Config returns the stage's frame parameters.
func (rs *RenderingStage) Config() Config { return rs.config }

// Image is the last rendered frame.
func (rs *RenderingStage) Image() *image.RGBA { return rs.img }

type pt struct{ x, y float64 }

// composite folds an element's offsets and opacity through its ancestors.
func composite(f timeline.Frame, el *scene.Element) (dx, dy, alpha float64) {
	alpha = 1
	for e := el; e != nil; e = e.Parent() {
		h := e.Handle()
		dx += f.Value(h, scene.PropX)
		dy += f.Value(h, scene.PropY)
		alpha *= f.Value(h, scene.PropOpacity)
	}
	return dx, dy, alpha
}

func tint(c color.RGBA, alpha float64) color.NRGBA {
	alpha = math.Max(0, math.Min(1, alpha))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * float64(c.A)))}
}

func attrFloat(el *scene.Element, name string) float64 {
	s, _ := el.Attr(name)
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// fill rasterizes polygons in one pass so overlapping pieces do not double
// their coverage.
func (rs *RenderingStage) fill(c color.RGBA, alpha float64, polys ...[]pt) {
	a := tint(c, alpha)
	if a.A == 0 {
		return
	}
	w, h := float64(rs.config.Width), float64(rs.config.Height)
	clampTo := func(p pt) (float32, float32) {
		return float32(math.Max(0, math.Min(w, p.x))), float32(math.Max(0, math.Min(h, p.y)))
	}
	rs.raster.Reset(rs.config.Width, rs.config.Height)
	drawn := false
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		rs.raster.MoveTo(clampTo(poly[0]))
		for _, p := range poly[1:] {
			rs.raster.LineTo(clampTo(p))
		}
		rs.raster.ClosePath()
		drawn = true
	}
	if drawn {
		rs.raster.Draw(rs.img, rs.img.Bounds(), image.NewUniform(a), image.Point{})
	}
}

func circle(c pt, r float64) []pt {
	const n = 24
	out := make([]pt, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / n
		out[i] = pt{c.x + r*math.Cos(a), c.y + r*math.Sin(a)}
	}
	return out
}

// arrow is a plane glyph of length size pointing at angle degrees.
func arrow(c pt, size, degrees float64) []pt {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	rot := func(x, y float64) pt { return pt{c.x + x*cos - y*sin, c.y + x*sin + y*cos} }
	s := size / 2
	return []pt{rot(s, 0), rot(-s, s*0.8), rot(-s*0.5, 0), rot(-s, -s*0.8)}
}

func segment(a, b pt, width float64) []pt {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return []pt{{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny}, {b.x - nx, b.y - ny}, {a.x - nx, a.y - ny}}
}

// mapProjection fits the route geometry and the pins into the right half of
// the frame, keeping the aspect ratio.
type mapProjection struct {
	minX, minY, k, ox, oy float64
}

func (m mapProjection) at(x, y float64) pt {
	return pt{m.ox + (x-m.minX)*m.k, m.oy + (y-m.minY)*m.k}
}

func (rs *RenderingStage) project(paths []*motionpath.Path, pins []*scene.Element) mapProjection {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	for _, p := range paths {
		for _, q := range p.Points() {
			grow(q.X, q.Y)
		}
	}
	for _, pin := range pins {
		x, y, r := attrFloat(pin, "cx"), attrFloat(pin, "cy"), attrFloat(pin, "r")
		grow(x-r, y-r)
		grow(x+r, y+r)
	}
	w, h := float64(rs.config.Width), float64(rs.config.Height)
	margin := h * 0.1
	left, top := w/2, margin
	rw, rh := w/2-margin, h-2*margin
	if math.IsInf(minX, 1) || maxX == minX || maxY == minY {
		return mapProjection{k: 1, ox: left, oy: top}
	}
	bw, bh := maxX-minX, maxY-minY
	k := math.Min(rw/bw, rh/bh)
	return mapProjection{
		minX: minX, minY: minY, k: k,
		ox: left + (rw-bw*k)/2,
		oy: top + (rh-bh*k)/2,
	}
}

// Render draws sc as sampled by f and returns the frame.
func (rs *RenderingStage) Render(sc *scene.Scene, f timeline.Frame) (*image.RGBA, error) {
	draw.Draw(rs.img, rs.img.Bounds(), image.NewUniform(rs.config.Background), image.Point{}, draw.Src)
	sx := float64(rs.config.Width) / sc.Viewport.Width
	sy := float64(rs.config.Height) / sc.Viewport.Height

	if err := rs.renderMap(sc, f, sx); err != nil {
		return nil, err
	}
	if err := rs.renderCopy(sc, f, sx, sy); err != nil {
		return nil, err
	}

	overlays, err := sc.Match(".intro-overlay")
	if err != nil {
		return nil, err
	}
	for _, el := range overlays {
		_, _, alpha := composite(f, el)
		rs.fill(rs.config.Overlay, alpha*0.9, []pt{{0, 0}, {float64(rs.config.Width), 0},
			{float64(rs.config.Width), float64(rs.config.Height)}, {0, float64(rs.config.Height)}})
	}

	planes, err := sc.Match(".plane-img")
	if err != nil {
		return nil, err
	}
	for _, el := range planes {
		dx, dy, alpha := composite(f, el)
		size := el.Width * sx
		// the intro plane waits just off the left edge
		c := pt{-size/2 + dx*sx, float64(rs.config.Height)/2 + dy*sy}
		rs.fill(rs.config.Foreground, alpha, arrow(c, size*0.6, f.Value(el.Handle(), scene.PropRotation)))
	}
	return rs.img, nil
}

func (rs *RenderingStage) renderMap(sc *scene.Scene, f timeline.Frame, sx float64) error {
	layers, err := sc.Match(".map-layer")
	if err != nil || len(layers) == 0 {
		return err
	}
	dx, _, mapAlpha := composite(f, layers[0])
	if mapAlpha <= 0 {
		return nil
	}

	routeEls, err := sc.Match(".map-layer .flight-path")
	if err != nil {
		return err
	}
	paths := make([]*motionpath.Path, len(routeEls))
	for i, el := range routeEls {
		d, _ := el.Attr("d")
		if paths[i], err = rs.paths.Geometry(d); err != nil {
			return fmt.Errorf("route %s: %w", el, err)
		}
	}
	pins, err := sc.Match(".map-layer .map-pin")
	if err != nil {
		return err
	}
	proj := rs.project(paths, pins)
	proj.ox += dx * sx

	for i, el := range routeEls {
		p, h := paths[i], el.Handle()
		length := p.Length()
		visible := length
		if dash := f.Value(h, scene.PropStrokeDasharray); dash > 0 {
			visible = math.Max(0, math.Min(length, dash-f.Value(h, scene.PropStrokeDashoffset)))
		}
		if visible <= 0 || length == 0 {
			continue
		}
		const steps = 48
		var pieces [][]pt
		prev := p.PointAt(0)
		for s := 1; s <= steps; s++ {
			q := p.PointAt(visible / length * float64(s) / steps)
			pieces = append(pieces, segment(proj.at(prev.X, prev.Y), proj.at(q.X, q.Y), 2.5))
			prev = q
		}
		rs.fill(rs.config.Accent, mapAlpha*f.Value(h, scene.PropOpacity), pieces...)
	}

	for _, el := range pins {
		h := el.Handle()
		r := math.Max(1.5, attrFloat(el, "r")*proj.k) * f.Value(h, scene.PropScale)
		c := rs.config.Foreground
		if el.HasClass("origin") {
			c = rs.config.Accent
		}
		rs.fill(c, mapAlpha*f.Value(h, scene.PropOpacity), circle(proj.at(attrFloat(el, "cx"), attrFloat(el, "cy")), r))
	}

	minis, err := sc.Match(".map-layer .mini-plane")
	if err != nil {
		return err
	}
	for _, el := range minis {
		h := el.Handle()
		c := proj.at(f.Value(h, scene.PropX)+el.Width/2, f.Value(h, scene.PropY)+el.Height/2)
		size := math.Max(6, el.Width*proj.k)
		rs.fill(rs.config.Foreground, mapAlpha*f.Value(h, scene.PropOpacity), arrow(c, size, f.Value(h, scene.PropRotation)))
	}
	return nil
}

// renderCopy lays every text-bearing element of the content block out as a
// line of its own.
func (rs *RenderingStage) renderCopy(sc *scene.Scene, f timeline.Frame, sx, sy float64) error {
	lines, err := sc.Match(".landing-content h1, .landing-content h2, .landing-content p, .landing-content a")
	if err != nil {
		return err
	}
	margin := float64(rs.config.Width) * 0.05
	top := float64(rs.config.Height) * 0.3
	for i, el := range lines {
		if el.Text == "" {
			continue
		}
		dx, dy, alpha := composite(f, el)
		a := tint(rs.config.Foreground, alpha)
		if a.A == 0 {
			continue
		}
		d := &font.Drawer{
			Dst:  rs.img,
			Src:  image.NewUniform(a),
			Face: rs.font,
			Dot: fixed.P(int(math.Round(margin+dx*sx)),
				int(math.Round(top+float64(i*rs.lineHeight)+dy*sy))),
		}
		d.DrawString(el.Text)
	}
	return nil
}

// Encode writes the last rendered frame as PNG.
func (rs *RenderingStage) Encode(w io.Writer) error {
	return png.Encode(w, rs.img)
}

// CaptureFrame saves the last rendered frame under the output directory and
// returns its path.
func (rs *RenderingStage) CaptureFrame(filename string) (string, error) {
	if rs.config.OutputDir != "" {
		if err := os.MkdirAll(rs.config.OutputDir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	path := filepath.Join(rs.config.OutputDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := rs.Encode(file); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return path, nil
}
