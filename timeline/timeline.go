// Package timeline builds and resolves choreography scripts.
//
// A Timeline is a list of tween segments and labels placed with GSAP-style
// position strings. Resolve simulates the placement against a mounted scene
// and produces a Script: absolute start and end times for every segment and
// every staggered target, plus per-property tracks that can be sampled at any
// playhead time.
//
// Misconfiguration (selectors that match nothing, unknown labels, negative
// start times, missing plugins) never fails resolution. It is recorded as
// trips on the handler Resolve returns.
package timeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/teranos/flyover/motionpath"
)

// DefaultEase is applied to segments that do not name one.
const DefaultEase = "power1.out"

// ErrDuplicatePlugin is returned when a different plugin claims a taken name.
var ErrDuplicatePlugin = errors.New("timeline: plugin name already registered")

// Plugin extends the engine. Plugins are registered explicitly.
type Plugin interface {
	Name() string
}

// PathPlugin supplies geometry for path-following segments.
type PathPlugin interface {
	Plugin
	Geometry(d string) (*motionpath.Path, error)
}

// Engine owns plugin registration and creates timelines.
type Engine struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	logger  zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for resolution summaries.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine with no plugins registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{plugins: make(map[string]Plugin), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds plugins. Registering the same instance twice is a no-op.
func (e *Engine) Register(plugins ...Plugin) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range plugins {
		if existing, ok := e.plugins[p.Name()]; ok {
			if existing == p {
				continue
			}
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name())
		}
		e.plugins[p.Name()] = p
		e.logger.Debug().Str("plugin", p.Name()).Msg("plugin registered")
	}
	return nil
}

// Plugin looks up a registered plugin.
func (e *Engine) Plugin(name string) (Plugin, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.plugins[name]
	return p, ok
}

func (e *Engine) pathPlugin() (PathPlugin, bool) {
	p, ok := e.Plugin(motionpath.PluginName)
	if !ok {
		return nil, false
	}
	pp, ok := p.(PathPlugin)
	return pp, ok
}

// Mode selects which end of a segment is given explicitly.
type Mode int

const (
	// To animates from the current value to the given one.
	To Mode = iota
	// From animates from the given value to the current one, showing the
	// given value from the moment the segment is added.
	From
	// FromTo gives both ends.
	FromTo
)

func (m Mode) String() string {
	switch m {
	case From:
		return "from"
	case FromTo:
		return "fromTo"
	default:
		return "to"
	}
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "to":
		*m = To
	case "from":
		*m = From
	case "fromTo":
		*m = FromTo
	default:
		return fmt.Errorf("timeline: unknown mode %q", b)
	}
	return nil
}

// Config holds the per-segment settings besides targets and values.
type Config struct {
	Duration float64
	Ease     string
	// Stagger offsets target i by i*Stagger seconds.
	Stagger float64
	// Follow makes targets ride a path; requires the motion path plugin.
	Follow *motionpath.Follow
	// TransformOrigin is carried to the renderer, e.g. "center center".
	TransformOrigin string
	// ID names the segment for completion subscriptions.
	ID string
	// OnComplete runs once when the playhead first passes the segment end.
	OnComplete func()
}

type segment struct {
	targets  string
	mode     Mode
	from, to Vars
	cfg      Config
	position string
}

type labelOp struct {
	name     string
	position string
}

// op is either a segment or a label, kept in insertion order.
type op struct {
	seg   *segment
	label *labelOp
}

// Timeline is an ordered list of segments and labels. Calls chain.
type Timeline struct {
	engine *Engine
	ops    []op
}

// Timeline starts an empty timeline bound to the engine's plugins.
func (e *Engine) Timeline() *Timeline {
	return &Timeline{engine: e}
}

func firstOr(positions []string) string {
	if len(positions) == 0 {
		return ""
	}
	return positions[0]
}

// To appends a segment animating targets to the given values.
func (tl *Timeline) To(targets string, to Vars, cfg Config, position ...string) *Timeline {
	return tl.add(&segment{targets: targets, mode: To, to: to, cfg: cfg, position: firstOr(position)})
}

// From appends a segment animating targets from the given values.
func (tl *Timeline) From(targets string, from Vars, cfg Config, position ...string) *Timeline {
	return tl.add(&segment{targets: targets, mode: From, from: from, cfg: cfg, position: firstOr(position)})
}

// FromTo appends a segment with both ends explicit.
func (tl *Timeline) FromTo(targets string, from, to Vars, cfg Config, position ...string) *Timeline {
	return tl.add(&segment{targets: targets, mode: FromTo, from: from, to: to, cfg: cfg, position: firstOr(position)})
}

// AddLabel names a point in time that later segments can anchor to.
func (tl *Timeline) AddLabel(name string, position ...string) *Timeline {
	tl.ops = append(tl.ops, op{label: &labelOp{name: name, position: firstOr(position)}})
	return tl
}

func (tl *Timeline) add(s *segment) *Timeline {
	tl.ops = append(tl.ops, op{seg: s})
	return tl
}

// Len is the number of segments, labels excluded.
func (tl *Timeline) Len() int {
	n := 0
	for _, o := range tl.ops {
		if o.seg != nil {
			n++
		}
	}
	return n
}
