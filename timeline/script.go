package timeline

import (
	"sort"

	"github.com/tanema/gween"
	gease "github.com/tanema/gween/ease"

	"github.com/teranos/flyover/ease"
	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/scene"
)

// Label is a resolved named point in time.
type Label struct {
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

// Motion drives a track from a path instead of from/to values. The x, y and
// rotation tracks of one path-following target share a Motion.
type Motion struct {
	Follow    motionpath.Follow `json:"follow"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Component string            `json:"component"`

	path *motionpath.Path
}

// Path returns the geometry the motion follows.
func (m *Motion) Path() *motionpath.Path { return m.path }

// Track is one property of one target over one time window.
type Track struct {
	Target string     `json:"target"`
	Prop   string     `json:"prop"`
	Start  float64    `json:"start"`
	End    float64    `json:"end"`
	From   float64    `json:"from"`
	To     float64    `json:"to"`
	Ease   ease.Named `json:"ease"`
	Mode   Mode       `json:"mode"`
	Motion *Motion    `json:"motion,omitempty"`
}

// Progress returns eased progress at playhead t, clamped to [start, end].
func (tr *Track) Progress(t float64) float64 {
	if t <= tr.Start {
		return 0
	}
	if t >= tr.End {
		return 1
	}
	tw := gween.New(0, 1, float32(tr.End-tr.Start), tweenFunc(tr.Ease))
	p, _ := tw.Set(float32(t - tr.Start))
	return float64(p)
}

// Value returns the track's value at playhead t.
func (tr *Track) Value(t float64) float64 {
	p := tr.Progress(t)
	if tr.Motion != nil {
		pose := tr.Motion.Follow.Pose(tr.Motion.path, p, tr.Motion.Width, tr.Motion.Height)
		switch tr.Motion.Component {
		case scene.PropX:
			return pose.X
		case scene.PropY:
			return pose.Y
		default:
			return pose.Rotation
		}
	}
	if p == 1 {
		return tr.To
	}
	return tr.From + (tr.To-tr.From)*p
}

func tweenFunc(n ease.Named) gease.TweenFunc {
	return func(t, b, c, d float32) float32 {
		return b + c*float32(n.Apply(float64(t/d)))
	}
}

// Entry is a resolved segment.
type Entry struct {
	Index           int                `json:"index"`
	ID              string             `json:"id,omitempty"`
	Targets         string             `json:"targets"`
	Mode            Mode               `json:"mode"`
	Position        string             `json:"position,omitempty"`
	Matched         []string           `json:"matched"`
	Start           float64            `json:"start"`
	End             float64            `json:"end"`
	Duration        float64            `json:"duration"`
	Stagger         float64            `json:"stagger,omitempty"`
	Ease            string             `json:"ease"`
	TransformOrigin string             `json:"transformOrigin,omitempty"`
	Follow          *motionpath.Follow `json:"follow,omitempty"`
	Tracks          []*Track           `json:"tracks"`

	onComplete func()
}

// TargetStart is when the i-th matched target begins.
func (e *Entry) TargetStart(i int) float64 {
	return e.Start + float64(i)*e.Stagger
}

// Complete runs the segment's completion callback, if any.
func (e *Entry) Complete() {
	if e.onComplete != nil {
		e.onComplete()
	}
}

// HasCallback reports whether the segment carries a completion callback.
func (e *Entry) HasCallback() bool { return e.onComplete != nil }

type laneKey struct {
	target, prop string
}

// Script is a resolved timeline.
type Script struct {
	Viewport scene.Viewport         `json:"viewport"`
	Entries  []*Entry               `json:"entries"`
	Labels   []Label                `json:"labels"`
	Duration float64                `json:"duration"`
	Initial  map[string]scene.Props `json:"initial"`

	lanes     map[laneKey][]*Track
	laneOrder []laneKey
}

func newScript(vp scene.Viewport) *Script {
	return &Script{
		Viewport: vp,
		Initial:  make(map[string]scene.Props),
		lanes:    make(map[laneKey][]*Track),
	}
}

// Label returns a label's time.
func (s *Script) Label(name string) (float64, bool) {
	for _, l := range s.Labels {
		if l.Name == name {
			return l.Time, true
		}
	}
	return 0, false
}

// Entry returns the segment with the given ID.
func (s *Script) Entry(id string) (*Entry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (s *Script) initialValue(target, prop string) float64 {
	if v, ok := s.Initial[target][prop]; ok {
		return v
	}
	return scene.DefaultValue(prop)
}

func (s *Script) addTrack(tr *Track) {
	k := laneKey{tr.Target, tr.Prop}
	if _, ok := s.lanes[k]; !ok {
		s.laneOrder = append(s.laneOrder, k)
	}
	s.lanes[k] = append(s.lanes[k], tr)
}

// ValueAt folds every track of one property up to playhead t. Tracks apply in
// insertion order: a started track sets the value, a from-track that has not
// started yet holds its from-state, a to-track that has not started yet leaves
// the value alone.
func (s *Script) ValueAt(target, prop string, t float64) float64 {
	v := s.initialValue(target, prop)
	for _, tr := range s.lanes[laneKey{target, prop}] {
		if t < tr.Start {
			if tr.Mode != To && tr.Motion == nil {
				v = tr.From
			}
			continue
		}
		v = tr.Value(t)
	}
	return v
}

// Animated lists every (target, property) pair that has a track, in the order
// they were first animated.
func (s *Script) Animated() [][2]string {
	out := make([][2]string, len(s.laneOrder))
	for i, k := range s.laneOrder {
		out[i] = [2]string{k.target, k.prop}
	}
	return out
}

// Frame is the sampled state of every animated or initially set property.
type Frame struct {
	T     float64                `json:"t"`
	Props map[string]scene.Props `json:"props"`
}

// Value returns a sampled value, falling back to the property default.
func (f Frame) Value(target, prop string) float64 {
	if v, ok := f.Props[target][prop]; ok {
		return v
	}
	return scene.DefaultValue(prop)
}

// Targets returns the sampled element handles in sorted order.
func (f Frame) Targets() []string {
	out := make([]string, 0, len(f.Props))
	for k := range f.Props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sample evaluates the script at playhead t. Past Duration every track holds
// its end value.
func (s *Script) Sample(t float64) Frame {
	f := Frame{T: t, Props: make(map[string]scene.Props, len(s.Initial))}
	for target, props := range s.Initial {
		f.Props[target] = props.Clone()
	}
	for _, k := range s.laneOrder {
		if f.Props[k.target] == nil {
			f.Props[k.target] = scene.Props{}
		}
		f.Props[k.target][k.prop] = s.ValueAt(k.target, k.prop, t)
	}
	return f
}
