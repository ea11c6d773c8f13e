// Package stage plays a resolved script.
//
// The stage never reads wall time. Drivers move the playhead with Advance:
// tests call it directly, Run feeds it from a ticker. Completion callbacks
// fire exactly once when the playhead first reaches a segment's end, route
// machines move idle → drawing → looping, and loops spawned along the way are
// sampled on top of the timeline. Revert tears everything down as a unit.
package stage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/timeline"
	"github.com/teranos/flyover/trip"
)

// JourneyPath is where the call to action leads.
const JourneyPath = "/journey"

// ErrNoScript is returned when a plan has nothing to play.
var ErrNoScript = errors.New("stage: plan has no script or scene")

// Navigator performs a client-side route change.
type Navigator interface {
	Navigate(path string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) error { return f(path) }

// RouteSpec binds a route machine to the script: drawing begins at Label,
// and completion of the segment with ID CompleteOn spawns Loop.
type RouteSpec struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	CompleteOn string   `json:"completeOn"`
	Loop       LoopSpec `json:"loop"`
}

// Plan is everything a stage needs to play one mount of a choreography.
type Plan struct {
	Scene  *scene.Scene
	Engine *timeline.Engine
	Script *timeline.Script
	Routes []RouteSpec
	// Loops start at mount; their Delay counts from time zero.
	Loops []LoopSpec
}

// Option configures a Stage.
type Option func(*Stage)

// WithNavigator sets the collaborator the call to action navigates with.
func WithNavigator(n Navigator) Option { return func(s *Stage) { s.nav = n } }

// WithLogger sets the stage logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Stage) { s.logger = l } }

type route struct {
	spec     RouteSpec
	machine  *RouteMachine
	beginAt  float64
	canBegin bool
	begun    bool
}

type event struct {
	at    float64
	order int // begins sort before completions at the same instant
	route *route
	entry *timeline.Entry
}

// Stage is one playing mount. It is safe for concurrent use.
type Stage struct {
	mu       sync.Mutex
	plan     Plan
	nav      Navigator
	logger   zerolog.Logger
	trips    *trip.Handler
	playhead float64
	mounts   int
	reverted bool
	fired    map[int]bool
	routes   []*route
	loops    []*Loop
	subs     map[string][]func(at float64)
}

// New mounts a plan. Mount loops are spawned immediately.
func New(plan Plan, opts ...Option) (*Stage, error) {
	if plan.Script == nil || plan.Scene == nil {
		return nil, ErrNoScript
	}
	if plan.Engine == nil {
		plan.Engine = timeline.NewEngine()
	}
	s := &Stage{
		plan:   plan,
		logger: zerolog.Nop(),
		trips:  trip.NewHandler("stage", nil),
		subs:   make(map[string][]func(at float64)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, spec := range plan.Routes {
		s.routes = append(s.routes, s.bindRoute(spec))
	}
	s.mount()
	return s, nil
}

func (s *Stage) bindRoute(spec RouteSpec) *route {
	r := &route{spec: spec}
	r.machine = NewRouteMachine(spec.Name, func(at float64) {
		s.spawn(spec.Loop, at)
	})
	if t, ok := s.plan.Script.Label(spec.Label); ok {
		r.beginAt, r.canBegin = t, true
	} else if e, ok := s.plan.Script.Entry(spec.CompleteOn); ok {
		r.beginAt, r.canBegin = e.Start, true
		s.trips.Record(trip.NewStumble(trip.TypeLabel, "route label missing, drawing begins with its segment",
			trip.Context{"route": spec.Name, "label": spec.Label}))
	}
	if _, ok := s.plan.Script.Entry(spec.CompleteOn); !ok {
		s.trips.Record(trip.NewTrip(trip.TypeCallback, "no segment completes route "+spec.Name,
			trip.Context{"route": spec.Name, "segment": spec.CompleteOn}))
	}
	return r
}

// mount resets play state and spawns mount loops. Callers hold s.mu.
func (s *Stage) mount() {
	s.mounts++
	s.playhead = 0
	s.fired = make(map[int]bool)
	s.loops = nil
	for _, r := range s.routes {
		r.begun = false
		r.machine.Reset()
	}
	for _, spec := range s.plan.Loops {
		s.spawn(spec, 0)
	}
}

// spawn resolves a loop spec against the scene. Plain property tracks pick
// up the value their targets have when the loop first runs.
func (s *Stage) spawn(spec LoopSpec, at float64) {
	tl := s.plan.Engine.Timeline().To(spec.Targets, spec.To, timeline.Config{
		Duration: spec.Duration,
		Ease:     spec.Ease,
		Follow:   spec.Follow,
		ID:       spec.ID,
	}, timeline.At(0))
	script, trips := tl.Resolve(s.plan.Scene)
	for _, t := range trips.All() {
		s.trips.Record(t.WithAttempt(s.mounts))
	}
	entry := script.Entries[0]

	first := at + spec.Delay
	for _, tr := range entry.Tracks {
		if tr.Motion == nil {
			tr.From = s.valueAt(tr.Target, tr.Prop, first)
		}
	}
	s.loops = append(s.loops, &Loop{Spec: spec, StartAt: at, span: entry.End, tracks: entry.Tracks})
	s.logger.Debug().Str("loop", spec.ID).Float64("at", at).Msg("loop spawned")
}

// valueAt is the timeline value with running loops applied on top.
func (s *Stage) valueAt(target, prop string, t float64) float64 {
	v := s.plan.Script.ValueAt(target, prop, t)
	for _, l := range s.loops {
		l.apply(t, func(tg, p string, lv float64) {
			if tg == target && p == prop {
				v = lv
			}
		})
	}
	return v
}

// OnComplete subscribes to the completion of the segment with the given ID.
func (s *Stage) OnComplete(id string, fn func(at float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = append(s.subs[id], fn)
}

// Advance moves the playhead forward by dt seconds and fires everything the
// playhead reached, in time order. Negative and non-finite steps are
// ignored. After Revert it does nothing.
func (s *Stage) Advance(dt float64) {
	if !(dt >= 0) || math.IsInf(dt, 1) {
		return
	}
	s.mu.Lock()
	if s.reverted {
		s.mu.Unlock()
		return
	}
	s.playhead += dt
	now := s.playhead

	var events []event
	for _, r := range s.routes {
		if r.canBegin && !r.begun && now >= r.beginAt {
			events = append(events, event{at: r.beginAt, order: 0, route: r})
		}
	}
	for _, e := range s.plan.Script.Entries {
		if !s.fired[e.Index] && now >= e.End {
			events = append(events, event{at: e.End, order: 1, entry: e})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].order < events[j].order
	})

	var callbacks []func()
	for _, ev := range events {
		if ev.route != nil {
			ev.route.begun = true
			ev.route.machine.Begin(ev.at)
			s.logger.Debug().Str("route", ev.route.spec.Name).Float64("at", ev.at).Msg("route drawing")
			continue
		}
		e := ev.entry
		s.fired[e.Index] = true
		for _, r := range s.routes {
			if r.spec.CompleteOn == e.ID && e.ID != "" {
				if r.machine.DrawComplete(ev.at) {
					s.logger.Debug().Str("route", r.spec.Name).Float64("at", ev.at).Msg("route looping")
				}
			}
		}
		if e.HasCallback() {
			callbacks = append(callbacks, s.guard(e.ID, e.Complete))
		}
		for _, fn := range s.subs[e.ID] {
			fn, at := fn, ev.at
			callbacks = append(callbacks, s.guard(e.ID, func() { fn(at) }))
		}
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// guard turns a panicking callback into a recorded trip.
func (s *Stage) guard(id string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.trips.Record(trip.NewTrip(trip.TypeCallback, fmt.Sprintf("completion callback panicked: %v", r),
					trip.Context{"segment": id}))
			}
		}()
		fn()
	}
}

// SeekTo moves the playhead to t. Seeking backwards replays from the start,
// so callbacks and route transitions fire again in order.
func (s *Stage) SeekTo(t float64) {
	s.mu.Lock()
	if s.reverted {
		s.mu.Unlock()
		return
	}
	if t < s.playhead {
		s.mount()
	}
	dt := t - s.playhead
	s.mu.Unlock()
	s.Advance(dt)
}

// Restart rewinds to time zero as if freshly mounted.
func (s *Stage) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reverted {
		return
	}
	s.mount()
}

// Playhead returns the current time.
func (s *Stage) Playhead() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playhead
}

// Duration is the main timeline's length.
func (s *Stage) Duration() float64 { return s.plan.Script.Duration }

// Script returns the script being played.
func (s *Stage) Script() *timeline.Script { return s.plan.Script }

// Scene returns the mounted scene.
func (s *Stage) Scene() *scene.Scene { return s.plan.Scene }

// Frame samples the timeline and running loops at the playhead. After
// Revert it is the scene's initial state.
func (s *Stage) Frame() timeline.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reverted {
		f := timeline.Frame{T: s.playhead, Props: make(map[string]scene.Props)}
		for _, el := range s.plan.Scene.Elements() {
			if props := s.plan.Scene.InitialProps(el); len(props) > 0 {
				f.Props[el.Handle()] = props
			}
		}
		return f
	}
	f := s.plan.Script.Sample(s.playhead)
	for _, l := range s.loops {
		l.apply(s.playhead, func(target, prop string, v float64) {
			if f.Props[target] == nil {
				f.Props[target] = scene.Props{}
			}
			f.Props[target][prop] = v
		})
	}
	return f
}

// RouteState returns a route's current state.
func (s *Stage) RouteState(name string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.spec.Name == name {
			return r.machine.State(), true
		}
	}
	return Idle, false
}

// RouteHistory returns a route's transitions.
func (s *Stage) RouteHistory(name string) []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.spec.Name == name {
			return r.machine.History()
		}
	}
	return nil
}

// RouteStates returns every route's state keyed by name.
func (s *Stage) RouteStates() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]State, len(s.routes))
	for _, r := range s.routes {
		out[r.spec.Name] = r.machine.State()
	}
	return out
}

// Loops returns the loops spawned so far.
func (s *Stage) Loops() []*Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Loop(nil), s.loops...)
}

// Trips returns the stage's diagnostics.
func (s *Stage) Trips() *trip.Handler { return s.trips }

// Reverted reports whether the stage has been torn down.
func (s *Stage) Reverted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reverted
}

// Revert cancels loops and pending callbacks, returns routes to idle and
// restores the scene's mount-time state. Further Advance calls do nothing.
func (s *Stage) Revert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reverted {
		return
	}
	s.reverted = true
	s.loops = nil
	s.subs = make(map[string][]func(at float64))
	for _, r := range s.routes {
		r.machine.Reset()
	}
	s.plan.Scene.Reset()
	s.logger.Debug().Float64("playhead", s.playhead).Msg("stage reverted")
}

// Activate is the call to action: it navigates to the journey view once per
// call, whatever the playhead.
func (s *Stage) Activate() error {
	if s.nav == nil {
		err := errors.New("stage: no navigator")
		s.trips.Record(trip.NewTrip(trip.TypeNavigation, err.Error(), trip.Context{"path": JourneyPath}))
		return err
	}
	if err := s.nav.Navigate(JourneyPath); err != nil {
		s.trips.Record(trip.NewTrip(trip.TypeNavigation, err.Error(), trip.Context{"path": JourneyPath}))
		return fmt.Errorf("navigate to %s: %w", JourneyPath, err)
	}
	s.logger.Info().Str("path", JourneyPath).Msg("call to action activated")
	return nil
}

// Run advances the stage by the wall time between ticks until ctx is done,
// the ticks channel closes or the stage is reverted.
func (s *Stage) Run(ctx context.Context, ticks <-chan time.Time) error {
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			if !last.IsZero() {
				s.Advance(now.Sub(last).Seconds())
			}
			last = now
			if s.Reverted() {
				return nil
			}
		}
	}
}
