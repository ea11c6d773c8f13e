package timeline

import (
	"math"
	"sort"

	"github.com/teranos/flyover/ease"
	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/trip"
)

type resolver struct {
	engine *Engine
	scene  *scene.Scene
	script *Script
	trips  *trip.Handler

	end       float64 // furthest segment end so far
	prevStart float64
	prevEnd   float64
	labels    map[string]int // index into script.Labels
}

// Resolve places every segment against the scene. The same timeline resolved
// against the same scene always yields the same script.
func (tl *Timeline) Resolve(sc *scene.Scene) (*Script, *trip.Handler) {
	r := &resolver{
		engine: tl.engine,
		scene:  sc,
		script: newScript(sc.Viewport),
		trips:  trip.NewHandler("timeline", nil),
		labels: make(map[string]int),
	}
	for _, el := range sc.Elements() {
		if props := sc.InitialProps(el); len(props) > 0 {
			r.script.Initial[el.Handle()] = props
		}
	}

	for i, o := range tl.ops {
		if o.label != nil {
			r.label(i, o.label)
			continue
		}
		r.segment(i, o.seg)
	}
	r.script.Duration = r.end

	tl.engine.logger.Debug().
		Int("segments", len(r.script.Entries)).
		Int("labels", len(r.script.Labels)).
		Float64("duration", r.script.Duration).
		Str("trips", r.trips.Summary()).
		Msg("timeline resolved")
	return r.script, r.trips
}

func (r *resolver) setLabel(name string, t float64) {
	if i, ok := r.labels[name]; ok {
		r.script.Labels[i].Time = t
		return
	}
	r.labels[name] = len(r.script.Labels)
	r.script.Labels = append(r.script.Labels, Label{Name: name, Time: t})
}

func (r *resolver) label(op int, l *labelOp) {
	r.setLabel(l.name, r.time(op, l.position))
}

// time resolves a position string to seconds, never earlier than zero.
func (r *resolver) time(op int, raw string) float64 {
	p, err := parsePosition(raw)
	if err != nil {
		r.trips.Record(trip.NewTrip(trip.TypeTiming, err.Error(),
			trip.Context{"position": raw, "op": op}))
		return r.end
	}

	var t float64
	switch p.kind {
	case anchorEnd:
		t = r.end + p.offset
	case anchorAbsolute:
		t = p.offset
	case anchorPrevStart:
		t = r.prevStart + p.offset
	case anchorPrevEnd:
		t = r.prevEnd + p.offset
	case anchorLabel:
		i, ok := r.labels[p.label]
		if !ok {
			r.trips.Record(trip.NewStumble(trip.TypeLabel,
				"unknown label "+p.label+", placed at the timeline end",
				trip.Context{"label": p.label, "position": raw, "op": op}))
			r.setLabel(p.label, r.end)
			i = r.labels[p.label]
		}
		t = r.script.Labels[i].Time + p.offset
	}

	if t < 0 {
		r.trips.Record(trip.NewTrip(trip.TypeTiming, "position resolves before time zero, clamped",
			trip.Context{"position": raw, "op": op, "resolved": t}))
		t = 0
	}
	return t
}

func (r *resolver) segment(op int, seg *segment) {
	matched, err := r.scene.Match(seg.targets)
	switch {
	case err != nil:
		r.trips.Record(trip.NewTrip(trip.TypeSelector, err.Error(),
			trip.Context{"selector": seg.targets, "op": op}))
	case len(matched) == 0:
		r.trips.Record(trip.NewStumble(trip.TypeSelector, "no element matches "+seg.targets,
			trip.Context{"selector": seg.targets, "op": op}))
	}

	easeName := seg.cfg.Ease
	if easeName == "" {
		easeName = DefaultEase
	}
	curve, err := ease.Parse(easeName)
	if err != nil {
		r.trips.Record(trip.NewTrip(trip.TypeEase, err.Error(),
			trip.Context{"ease": easeName, "op": op}))
		curve = ease.MustParse(DefaultEase)
	}

	start := r.time(op, seg.position)
	span := seg.cfg.Duration
	if n := len(matched); n > 1 {
		span += float64(n-1) * seg.cfg.Stagger
	}

	entry := &Entry{
		Index:           len(r.script.Entries),
		ID:              seg.cfg.ID,
		Targets:         seg.targets,
		Mode:            seg.mode,
		Position:        seg.position,
		Matched:         make([]string, 0, len(matched)),
		Start:           start,
		End:             start + span,
		Duration:        seg.cfg.Duration,
		Stagger:         seg.cfg.Stagger,
		Ease:            curve.String(),
		TransformOrigin: seg.cfg.TransformOrigin,
		Follow:          seg.cfg.Follow,
		onComplete:      seg.cfg.OnComplete,
	}

	var geom *motionpath.Path
	if seg.cfg.Follow != nil {
		geom = r.geometry(op, seg.cfg.Follow)
	}

	vp := r.scene.Viewport
	from, to := seg.from.resolve(vp), seg.to.resolve(vp)
	props := propNames(from, to)
	for i, el := range matched {
		handle := el.Handle()
		entry.Matched = append(entry.Matched, handle)
		ts := entry.TargetStart(i)
		te := ts + seg.cfg.Duration

		for _, prop := range props {
			tr := &Track{Target: handle, Prop: prop, Start: ts, End: te, Ease: curve, Mode: seg.mode}
			current := r.script.ValueAt(handle, prop, ts)
			tr.From, tr.To = current, current
			if v, ok := from[prop]; ok {
				tr.From = v
			}
			if v, ok := to[prop]; ok {
				tr.To = v
			}
			entry.Tracks = append(entry.Tracks, tr)
			r.script.addTrack(tr)
		}

		if geom != nil {
			components := []string{scene.PropX, scene.PropY}
			if seg.cfg.Follow.AutoRotate {
				components = append(components, scene.PropRotation)
			}
			for _, c := range components {
				tr := &Track{
					Target: handle, Prop: c, Start: ts, End: te, Ease: curve, Mode: To,
					Motion: &Motion{
						Follow:    *seg.cfg.Follow,
						Width:     el.Width,
						Height:    el.Height,
						Component: c,
						path:      geom,
					},
				}
				entry.Tracks = append(entry.Tracks, tr)
				r.script.addTrack(tr)
			}
		}
	}

	r.script.Entries = append(r.script.Entries, entry)
	r.prevStart, r.prevEnd = entry.Start, entry.End
	r.end = math.Max(r.end, entry.End)
}

// geometry looks up the path a follow segment rides on.
func (r *resolver) geometry(op int, f *motionpath.Follow) *motionpath.Path {
	plugin, ok := r.engine.pathPlugin()
	if !ok {
		r.trips.Record(trip.NewTrip(trip.TypePlugin, "motion path plugin is not registered",
			trip.Context{"plugin": motionpath.PluginName, "path": f.Path, "op": op}))
		return nil
	}
	els, err := r.scene.Match(f.Path)
	if err != nil || len(els) == 0 {
		r.trips.Record(trip.NewStumble(trip.TypeSelector, "no path element matches "+f.Path,
			trip.Context{"selector": f.Path, "op": op}))
		return nil
	}
	d, ok := els[0].Attr("d")
	if !ok {
		r.trips.Record(trip.NewTrip(trip.TypeVisual, "path element has no path data",
			trip.Context{"selector": f.Path, "op": op}))
		return nil
	}
	geom, err := plugin.Geometry(d)
	if err != nil {
		r.trips.Record(trip.NewTrip(trip.TypeVisual, err.Error(),
			trip.Context{"selector": f.Path, "op": op}))
		return nil
	}
	return geom
}

func propNames(sets ...scene.Props) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range sets {
		for k := range s {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
