package stage

import (
	"math"

	"github.com/teranos/flyover/motionpath"
	"github.com/teranos/flyover/timeline"
)

// LoopSpec describes a repeating tween that lives outside the main timeline.
type LoopSpec struct {
	ID       string             `json:"id"`
	Targets  string             `json:"targets"`
	To       timeline.Vars      `json:"to,omitempty"`
	Follow   *motionpath.Follow `json:"follow,omitempty"`
	Duration float64            `json:"duration"`
	Ease     string             `json:"ease"`
	// Repeat counts extra iterations; negative repeats forever.
	Repeat      int     `json:"repeat"`
	RepeatDelay float64 `json:"repeatDelay"`
	Yoyo        bool    `json:"yoyo"`
	Delay       float64 `json:"delay"`
}

// Loop is a spawned LoopSpec.
type Loop struct {
	Spec    LoopSpec
	StartAt float64 // when it was spawned; Delay counts from here

	span   float64
	tracks []*timeline.Track
}

// Tracks are the loop's property tracks on local time [0, span].
func (l *Loop) Tracks() []*timeline.Track { return l.tracks }

// Local maps playhead t onto the loop's local time and reports the iteration.
// ok is false before the loop's delay has elapsed.
func (l *Loop) Local(t float64) (local float64, iteration int, ok bool) {
	lt := t - l.StartAt - l.Spec.Delay
	if lt < 0 {
		return 0, 0, false
	}
	cycle := l.span + l.Spec.RepeatDelay
	if cycle <= 0 {
		return l.span, 0, true
	}
	iteration = int(math.Floor(lt / cycle))
	within := lt - float64(iteration)*cycle
	if l.Spec.Repeat >= 0 && iteration > l.Spec.Repeat {
		iteration, within = l.Spec.Repeat, l.span
	}
	within = math.Min(within, l.span)
	if l.Spec.Yoyo && iteration%2 == 1 {
		within = l.span - within
	}
	return within, iteration, true
}

// apply writes the loop's values at playhead t into set.
func (l *Loop) apply(t float64, set func(target, prop string, v float64)) {
	local, _, ok := l.Local(t)
	if !ok {
		return
	}
	for _, tr := range l.tracks {
		set(tr.Target, tr.Prop, tr.Value(local))
	}
}
