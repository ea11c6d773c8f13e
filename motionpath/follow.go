package motionpath

import (
	"fmt"
	"sync"
)

// PluginName is the name the plugin registers under.
const PluginName = "motionPath"

// Follow describes a path-following animation: the element rides the path
// referenced by Path from Start to End (fractions of its length) while the
// segment progresses from 0 to 1.
type Follow struct {
	Path        string     `json:"path"`
	Align       string     `json:"align,omitempty"`
	AlignOrigin [2]float64 `json:"alignOrigin"`
	AutoRotate  bool       `json:"autoRotate"`
	Start       float64    `json:"start"`
	End         float64    `json:"end"`
}

// Along returns a Follow over the whole path, aligned to it at the element's
// centre and rotating with the tangent.
func Along(pathSelector string) Follow {
	return Follow{
		Path:        pathSelector,
		Align:       pathSelector,
		AlignOrigin: [2]float64{0.5, 0.5},
		AutoRotate:  true,
		Start:       0,
		End:         1,
	}
}

// Pose is where an element sits for a given progress.
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// Pose places an element of size w×h so that its AlignOrigin point lies on the
// path at the given segment progress.
func (f Follow) Pose(p *Path, progress float64, w, h float64) Pose {
	frac := f.Start + (f.End-f.Start)*progress
	pt := p.PointAt(frac)
	pose := Pose{
		X: pt.X - f.AlignOrigin[0]*w,
		Y: pt.Y - f.AlignOrigin[1]*h,
	}
	if f.AutoRotate {
		pose.Rotation = p.AngleAt(frac)
	}
	return pose
}

// Plugin provides path geometry to the animation engine. Parsed paths are
// cached by their data string.
type Plugin struct {
	mu    sync.Mutex
	cache map[string]*Path
}

// NewPlugin returns an empty plugin ready for registration.
func NewPlugin() *Plugin {
	return &Plugin{cache: make(map[string]*Path)}
}

// Name implements the engine plugin contract.
func (p *Plugin) Name() string { return PluginName }

// Geometry parses (or returns the cached parse of) path data.
func (p *Plugin) Geometry(d string) (*Path, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path, ok := p.cache[d]; ok {
		return path, nil
	}
	path, err := Parse(d)
	if err != nil {
		return nil, fmt.Errorf("motion path geometry: %w", err)
	}
	p.cache[d] = path
	return path, nil
}
