package timeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/trip"
)

func testScene() *scene.Scene {
	root := scene.El("div", scene.Class("stage"), scene.Children(
		scene.El("div", scene.Class("a")),
		scene.El("div", scene.Class("b")),
		scene.El("p", scene.Class("line")),
		scene.El("p", scene.Class("line")),
		scene.El("p", scene.Class("line")),
		scene.El("svg", scene.Children(
			scene.El("path", scene.ID("route"), scene.Attr("d", "M0 0 L100 0")),
			scene.El("path", scene.ID("blank")),
			scene.El("g", scene.ID("plane"), scene.Size(10, 10), scene.Initial(scene.PropOpacity, 0)),
		)),
	))
	return scene.New(root, scene.Viewport{Width: 1000, Height: 500})
}

func TestParsePosition(t *testing.T) {
	cases := []struct {
		in     string
		kind   anchorKind
		label  string
		offset float64
	}{
		{"", anchorEnd, "", 0},
		{"+=0.1", anchorEnd, "", 0.1},
		{"-=2.8", anchorEnd, "", -2.8},
		{"2.5", anchorAbsolute, "", 2.5},
		{"<", anchorPrevStart, "", 0},
		{"<0.5", anchorPrevStart, "", 0.5},
		{">-=1", anchorPrevEnd, "", -1},
		{"acehStart", anchorLabel, "acehStart", 0},
		{"acehStart+=1", anchorLabel, "acehStart", 1},
		{"route_2-=0.5", anchorLabel, "route_2", -0.5},
	}
	for _, c := range cases {
		p, err := parsePosition(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.kind, p.kind, c.in)
		assert.Equal(t, c.label, p.label, c.in)
		assert.InDelta(t, c.offset, p.offset, 1e-12, c.in)
	}

	for _, bad := range []string{"+=x", "<<", "1st", "label+=?"} {
		_, err := parsePosition(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "2.5", At(2.5))
}

func TestResolve_EndRelativePositions(t *testing.T) {
	tl := NewEngine().Timeline().
		To(".a", Vars{"x": Num(10)}, Config{Duration: 4}).
		To(".b", Vars{"opacity": Num(0)}, Config{Duration: 1.5}, "-=2.8").
		To(".a", Vars{"y": Num(1)}, Config{Duration: 1}, "+=0.1").
		To(".b", Vars{"y": Num(1)}, Config{Duration: 1}, "<").
		To(".b", Vars{"x": Num(1)}, Config{Duration: 1}, ">+=0.5").
		To(".a", Vars{"scale": Num(2)}, Config{Duration: 1}, At(0.25))

	s, trips := tl.Resolve(testScene())
	require.Len(t, s.Entries, 6)
	assert.False(t, trips.HasTrips())

	want := [][2]float64{{0, 4}, {1.2, 2.7}, {4.1, 5.1}, {4.1, 5.1}, {5.6, 6.6}, {0.25, 1.25}}
	for i, w := range want {
		assert.InDelta(t, w[0], s.Entries[i].Start, 1e-9, "entry %d start", i)
		assert.InDelta(t, w[1], s.Entries[i].End, 1e-9, "entry %d end", i)
	}
	assert.InDelta(t, 6.6, s.Duration, 1e-9)
}

func TestResolve_Stagger(t *testing.T) {
	s, _ := NewEngine().Timeline().
		From(".line", Vars{"x": Num(-50), "opacity": Num(0)}, Config{Duration: 1.2, Stagger: 0.1}, At(1.8)).
		Resolve(testScene())

	e := s.Entries[0]
	assert.Equal(t, []string{".line@0", ".line@1", ".line@2"}, e.Matched)
	assert.InDelta(t, 3.2, e.End, 1e-9, "span is duration plus (n-1) staggers")
	assert.InDelta(t, 2.0, e.TargetStart(2), 1e-9)
	require.Len(t, e.Tracks, 6)
	last := e.Tracks[len(e.Tracks)-1]
	assert.Equal(t, ".line@2", last.Target)
	assert.InDelta(t, 2.0, last.Start, 1e-9)
	assert.InDelta(t, 3.2, last.End, 1e-9)
}

func TestResolve_ZeroMatchKeepsSlot(t *testing.T) {
	s, trips := NewEngine().Timeline().
		To(".a", Vars{"x": Num(1)}, Config{Duration: 1}).
		To(".missing", Vars{"x": Num(1)}, Config{Duration: 2, Stagger: 0.5}).
		To(".b", Vars{"x": Num(1)}, Config{Duration: 1}).
		Resolve(testScene())

	assert.Empty(t, s.Entries[1].Tracks)
	assert.InDelta(t, 3, s.Entries[1].End, 1e-9)
	assert.InDelta(t, 3, s.Entries[2].Start, 1e-9, "later offsets are unchanged")

	stumbles := trips.OfType(trip.TypeSelector)
	require.Len(t, stumbles, 1)
	assert.Equal(t, trip.Stumble, stumbles[0].Severity)
	assert.True(t, trips.ShouldContinue())
}

func TestResolve_NegativeStartClamped(t *testing.T) {
	s, trips := NewEngine().Timeline().
		To(".a", Vars{"x": Num(1)}, Config{Duration: 1}, "-=3").
		Resolve(testScene())

	assert.Zero(t, s.Entries[0].Start)
	timing := trips.OfType(trip.TypeTiming)
	require.Len(t, timing, 1)
	got, _ := timing[0].GetContext("resolved")
	assert.Equal(t, -3.0, got)
}

func TestResolve_Labels(t *testing.T) {
	s, trips := NewEngine().Timeline().
		To(".a", Vars{"x": Num(1)}, Config{Duration: 2}).
		AddLabel("go", "-=0.5").
		To(".a", Vars{"y": Num(1)}, Config{Duration: 1}, "go").
		To(".b", Vars{"y": Num(1)}, Config{Duration: 1}, "go+=0.25").
		To(".b", Vars{"x": Num(1)}, Config{Duration: 1}, "ghost").
		Resolve(testScene())

	at, ok := s.Label("go")
	require.True(t, ok)
	assert.InDelta(t, 1.5, at, 1e-9)
	assert.InDelta(t, 1.5, s.Entries[1].Start, 1e-9)
	assert.InDelta(t, 1.75, s.Entries[2].Start, 1e-9)

	ghost, ok := s.Label("ghost")
	require.True(t, ok, "unknown labels are added at the end")
	assert.InDelta(t, 2.75, ghost, 1e-9)
	assert.InDelta(t, 2.75, s.Entries[3].Start, 1e-9)
	assert.Len(t, trips.OfType(trip.TypeLabel), 1)
}

func TestResolve_BadEaseFallsBack(t *testing.T) {
	s, trips := NewEngine().Timeline().
		To(".a", Vars{"x": Num(1)}, Config{Duration: 1, Ease: "wobble.out"}).
		Resolve(testScene())
	assert.Equal(t, DefaultEase, s.Entries[0].Ease)
	assert.Len(t, trips.OfType(trip.TypeEase), 1)
}

func TestSample_FromAndToSemantics(t *testing.T) {
	s, _ := NewEngine().Timeline().
		To(".a", Vars{"x": Num(100)}, Config{Duration: 1, Ease: "none"}).
		To(".a", Vars{"x": Num(50)}, Config{Duration: 1, Ease: "none"}).
		From(".b", Vars{"opacity": Num(0)}, Config{Duration: 1, Ease: "none"}, At(5)).
		Resolve(testScene())

	assert.InDelta(t, 0, s.ValueAt(".a@0", "x", 0), 1e-4)
	assert.InDelta(t, 50, s.ValueAt(".a@0", "x", 0.5), 1e-3)
	assert.InDelta(t, 100, s.ValueAt(".a@0", "x", 1), 1e-4)
	assert.InDelta(t, 75, s.ValueAt(".a@0", "x", 1.5), 1e-3, "second tween picks up 100")
	assert.InDelta(t, 50, s.ValueAt(".a@0", "x", 9), 1e-4)

	assert.Equal(t, 0.0, s.ValueAt(".b@0", "opacity", 0), "from-state renders immediately")
	assert.InDelta(t, 0.5, s.ValueAt(".b@0", "opacity", 5.5), 1e-3)
	assert.Equal(t, 1.0, s.ValueAt(".b@0", "opacity", 6))

	f := s.Sample(5.5)
	assert.InDelta(t, 0.5, f.Value(".b@0", "opacity"), 1e-3)
	assert.Equal(t, 0.0, f.Value("#plane", "opacity"), "initial props are part of the frame")
	assert.Equal(t, 1.0, f.Value("#nothing", "scale"))
	assert.Contains(t, f.Targets(), ".a@0")
}

func TestResolve_ViewportUnits(t *testing.T) {
	s, _ := NewEngine().Timeline().
		To(".a", Vars{"x": VW(150), "y": VH(10)}, Config{Duration: 1}).
		Resolve(testScene())
	assert.Equal(t, 1500.0, s.ValueAt(".a@0", "x", 2))
	assert.InDelta(t, 50.0, s.ValueAt(".a@0", "y", 2), 1e-9)
}

func TestResolve_MotionFollow(t *testing.T) {
	follow := motionpath.Along("#route")
	build := func(e *Engine) *Timeline {
		return e.Timeline().
			To("#plane", Vars{"opacity": Num(1)}, Config{Duration: 2, Ease: "none", Follow: &follow})
	}

	s, trips := build(NewEngine()).Resolve(testScene())
	assert.Len(t, trips.OfType(trip.TypePlugin), 1, "no plugin, no motion")
	assert.Len(t, s.Entries[0].Tracks, 1)

	engine := NewEngine()
	require.NoError(t, engine.Register(motionpath.NewPlugin()))
	s, trips = build(engine).Resolve(testScene())
	assert.False(t, trips.HasTrips())
	require.Len(t, s.Entries[0].Tracks, 4)

	assert.InDelta(t, -5, s.ValueAt("#plane", "x", 0), 1e-6)
	assert.InDelta(t, 45, s.ValueAt("#plane", "x", 1), 1e-3)
	assert.InDelta(t, 95, s.ValueAt("#plane", "x", 2), 1e-6)
	assert.InDelta(t, -5, s.ValueAt("#plane", "y", 2), 1e-6)
	assert.InDelta(t, 0, s.ValueAt("#plane", "rotation", 2), 1e-6)
	assert.InDelta(t, 1, s.ValueAt("#plane", "opacity", 2), 1e-9)

	blank := motionpath.Along("#blank")
	_, trips = engine.Timeline().
		To("#plane", Vars{}, Config{Duration: 1, Follow: &blank}).
		Resolve(testScene())
	assert.Len(t, trips.OfType(trip.TypeVisual), 1)
}

func TestResolve_Idempotent(t *testing.T) {
	engine := NewEngine()
	require.NoError(t, engine.Register(motionpath.NewPlugin()))
	follow := motionpath.Along("#route")
	tl := engine.Timeline().
		From(".line", Vars{"x": Num(-50)}, Config{Duration: 1.2, Stagger: 0.1}).
		AddLabel("go", "-=0.2").
		To("#plane", Vars{"opacity": Num(1)}, Config{Duration: 2.5, Follow: &follow}, "go")

	a, _ := tl.Resolve(testScene())
	b, _ := tl.Resolve(testScene())
	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
	assert.Contains(t, string(ja), `"ease":"power1.out"`)
}

func TestEngine_Register(t *testing.T) {
	e := NewEngine()
	p := motionpath.NewPlugin()
	require.NoError(t, e.Register(p))
	require.NoError(t, e.Register(p), "same instance twice is fine")
	assert.ErrorIs(t, e.Register(motionpath.NewPlugin()), ErrDuplicatePlugin)
	got, ok := e.Plugin(motionpath.PluginName)
	assert.True(t, ok)
	assert.Same(t, p, got)
}

func TestEntry_Callbacks(t *testing.T) {
	calls := 0
	s, _ := NewEngine().Timeline().
		To(".a", Vars{"x": Num(1)}, Config{Duration: 1, ID: "move", OnComplete: func() { calls++ }}).
		Resolve(testScene())
	e, ok := s.Entry("move")
	require.True(t, ok)
	assert.True(t, e.HasCallback())
	e.Complete()
	assert.Equal(t, 1, calls)
}

func TestValue_JSON(t *testing.T) {
	var vars Vars
	require.NoError(t, json.Unmarshal([]byte(`{"x":"150vw","y":12,"z":"3"}`), &vars))
	assert.Equal(t, VW(150), vars["x"])
	assert.Equal(t, Num(12), vars["y"])
	assert.Equal(t, Num(3), vars["z"])

	out, err := json.Marshal(Vars{"x": VH(40), "y": Num(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"40vh","y":1.5}`, string(out))

	_, err = ParseValue("abc")
	assert.Error(t, err)
}
