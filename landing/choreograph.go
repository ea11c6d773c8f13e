package landing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/stage"
	"github.com/teranos/flyover/timeline"
	"github.com/teranos/flyover/trip"
)

// ErrUnknownRoute is returned for route names outside Routes.
var ErrUnknownRoute = errors.New("landing: unknown route")

// Timing of the route segments.
const (
	DrawDuration    = 2.5
	DrawEase        = "power1.inOut"
	LoopRepeatDelay = 1
)

// NewEngine returns an engine with the motion path plugin registered.
func NewEngine(logger zerolog.Logger) (*timeline.Engine, error) {
	engine := timeline.NewEngine(timeline.WithLogger(logger))
	if err := engine.Register(motionpath.NewPlugin()); err != nil {
		return nil, fmt.Errorf("register motion path plugin: %w", err)
	}
	return engine, nil
}

// Choreography is the resolved landing animation for one mount.
type Choreography struct {
	Scene  *scene.Scene
	Engine *timeline.Engine
	Script *timeline.Script
	Trips  *trip.Handler
	Routes []stage.RouteSpec
	Loops  []stage.LoopSpec
}

// Plan hands the choreography to a stage.
func (c *Choreography) Plan() stage.Plan {
	return stage.Plan{Scene: c.Scene, Engine: c.Engine, Script: c.Script, Routes: c.Routes, Loops: c.Loops}
}

// MarshalJSON encodes what a client runtime needs to replay the animation.
func (c *Choreography) MarshalJSON() ([]byte, error) {
	trips := make([]string, 0)
	for _, t := range c.Trips.All() {
		trips = append(trips, t.Error())
	}
	return json.Marshal(struct {
		Script *timeline.Script  `json:"script"`
		Routes []stage.RouteSpec `json:"routes"`
		Loops  []stage.LoopSpec  `json:"loops"`
		Trips  []string          `json:"trips"`
	}{c.Script, c.Routes, c.Loops, trips})
}

// Bob is the ambient content loop. It starts at mount, independent of the
// timeline and of the routes.
var Bob = stage.LoopSpec{
	ID:       "bob",
	Targets:  ".landing-content",
	To:       timeline.Vars{scene.PropY: timeline.Num(15)},
	Duration: 2.5,
	Ease:     "sine.inOut",
	Repeat:   -1,
	Yoyo:     true,
	Delay:    3,
}

// PlaneLoop is the lap a route's plane flies once its first flight lands.
func PlaneLoop(r Route) stage.LoopSpec {
	follow := motionpath.Along("#" + r.PathID())
	return stage.LoopSpec{
		ID:          "loop:" + r.Name,
		Targets:     "#" + r.PlaneID(),
		Follow:      &follow,
		Duration:    r.LoopDuration,
		Ease:        DrawEase,
		Repeat:      -1,
		RepeatDelay: LoopRepeatDelay,
	}
}

// SetInitial hides the mini planes and dashes the flight paths fully out.
func SetInitial(sc *scene.Scene, trips *trip.Handler) {
	sets := []struct {
		selector string
		props    scene.Props
	}{
		{".mini-plane", scene.Props{scene.PropOpacity: 0}},
		{".flight-path", scene.Props{
			scene.PropStrokeDasharray:  1000,
			scene.PropStrokeDashoffset: 1000,
			scene.PropOpacity:          1,
		}},
	}
	for _, s := range sets {
		n, err := sc.Set(s.selector, s.props)
		if err != nil || n == 0 {
			trips.Record(trip.NewStumble(trip.TypeSelector, "initial state matched nothing",
				trip.Context{"selector": s.selector}))
		}
	}
}

// Timeline builds the landing timeline. Every constant here is part of the
// look: offsets overlap segments on purpose.
func Timeline(engine *timeline.Engine) *timeline.Timeline {
	tl := engine.Timeline().
		To(".plane-img", timeline.Vars{scene.PropX: timeline.VW(150)},
			timeline.Config{Duration: 4, Ease: "power1.inOut", ID: "intro:plane"}).
		To(".intro-overlay", timeline.Vars{scene.PropOpacity: timeline.Num(0)},
			timeline.Config{Duration: 1.5, Ease: "power2.inOut", ID: "intro:overlay"}, "-=2.8").
		From(".landing-content h1, .landing-content h2, .landing-content .details-info",
			timeline.Vars{scene.PropX: timeline.Num(-50), scene.PropOpacity: timeline.Num(0)},
			timeline.Config{Duration: 1.2, Stagger: 0.1, Ease: "power2.out", ID: "content:text"}, "-=2.2").
		From(".start-button",
			timeline.Vars{scene.PropX: timeline.Num(-200), scene.PropOpacity: timeline.Num(0)},
			timeline.Config{Duration: 2, Ease: "power4.out", ID: "content:cta"}, "+=0.1").
		From(".map-layer",
			timeline.Vars{scene.PropX: timeline.Num(-100), scene.PropOpacity: timeline.Num(0)},
			timeline.Config{Duration: 1.8, Ease: "power2.out", ID: "map:layer"}, "-=4.0").
		From(".map-pin",
			timeline.Vars{scene.PropScale: timeline.Num(0), scene.PropOpacity: timeline.Num(0)},
			timeline.Config{Duration: 0.5, Stagger: 0.1, Ease: "back.out(1.7)", TransformOrigin: "center center", ID: "map:pins"}, "-=0.5")

	for _, r := range Routes {
		follow := motionpath.Along("#" + r.PathID())
		tl.AddLabel(r.Label(), r.Offset).
			To("#"+r.PathID(), timeline.Vars{scene.PropStrokeDashoffset: timeline.Num(0)},
				timeline.Config{Duration: DrawDuration, Ease: DrawEase, ID: r.DrawID()}, r.Label()).
			To("#"+r.PlaneID(), timeline.Vars{scene.PropOpacity: timeline.Num(1)},
				timeline.Config{Duration: DrawDuration, Ease: DrawEase, Follow: &follow, ID: r.FlightID()}, r.Label())
	}
	return tl
}

// Choreograph applies the initial state to sc and resolves the landing
// timeline against it.
func Choreograph(engine *timeline.Engine, sc *scene.Scene) *Choreography {
	pre := trip.NewHandler("landing", nil)
	for _, missing := range sc.Validate(RequiredMarkers...) {
		pre.Record(trip.NewStumble(trip.TypeSelector, "scene is missing marker "+missing,
			trip.Context{"selector": missing}))
	}
	SetInitial(sc, pre)

	script, trips := Timeline(engine).Resolve(sc)
	for _, t := range pre.All() {
		trips.Record(t)
	}

	c := &Choreography{
		Scene:  sc,
		Engine: engine,
		Script: script,
		Trips:  trips,
		Loops:  []stage.LoopSpec{Bob},
	}
	for _, r := range Routes {
		c.Routes = append(c.Routes, stage.RouteSpec{
			Name:       r.Name,
			Label:      r.Label(),
			CompleteOn: r.FlightID(),
			Loop:       PlaneLoop(r),
		})
	}
	return c
}

// Mount composes, choreographs and stages the landing page in one step.
func Mount(engine *timeline.Engine, vp scene.Viewport, opts ...stage.Option) (*Choreography, *stage.Stage, error) {
	c := Choreograph(engine, Compose(vp))
	st, err := stage.New(c.Plan(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("mount landing: %w", err)
	}
	return c, st, nil
}
