package flyover

import (
	"fmt"
	"time"
)

// Advance moves the clock forward by seconds, in frames of at most
// FrameStep so completions land on the frame that crosses them.
func (d *Director) Advance(seconds float64) *Director {
	if !d.ready("advance") {
		return d
	}
	return d.advanceTo(d.stage.Playhead() + seconds)
}

// AdvanceTo moves the clock forward to playhead t. Targets behind the
// playhead are left alone; use SeekTo to go back.
func (d *Director) AdvanceTo(t float64) *Director {
	if !d.ready("advance") {
		return d
	}
	return d.advanceTo(t)
}

func (d *Director) advanceTo(target float64) *Director {
	from := d.stage.Playhead()
	// the last frame is cut to land exactly on target
	for p := from; p < target; {
		d.stage.Advance(min(target-p, d.config.FrameStep))
		next := d.stage.Playhead()
		if next <= p {
			break // reverted
		}
		p = next
	}
	d.recordInteraction("advance", map[string]interface{}{"from": from, "to": target}, nil)
	d.captureSnapshot(fmt.Sprintf("advance to %.3fs", target))
	return d
}

// AdvanceToLabel moves the clock to a script label.
func (d *Director) AdvanceToLabel(name string) *Director {
	if !d.ready("advance to label") {
		return d
	}
	at, ok := d.stage.Script().Label(name)
	if !ok {
		d.recordError(newTestError("label", fmt.Sprintf("no label %q", name), map[string]interface{}{"label": name}))
		return d
	}
	if at < d.stage.Playhead() {
		return d.SeekTo(at)
	}
	return d.advanceTo(at)
}

// SeekTo jumps the playhead in one step, firing whatever it crosses.
func (d *Director) SeekTo(t float64) *Director {
	if !d.ready("seek") {
		return d
	}
	from := d.stage.Playhead()
	d.stage.SeekTo(t)
	d.recordInteraction("seek", map[string]interface{}{"from": from, "to": t}, nil)
	d.captureSnapshot(fmt.Sprintf("seek %.3fs", t))
	return d
}

// Activate presses the call to action.
func (d *Director) Activate() *Director {
	if !d.ready("activate") {
		return d
	}
	err := d.stage.Activate()
	if err != nil {
		d.recordError(newTestError("navigation", err.Error(), map[string]interface{}{"original_error": err}))
	}
	d.recordInteraction("activate", nil, err == nil)
	d.captureSnapshot("activate")
	return d
}

// Revert unmounts the animation.
func (d *Director) Revert() *Director {
	if !d.ready("revert") {
		return d
	}
	d.stage.Revert()
	d.recordInteraction("revert", nil, nil)
	d.captureSnapshot("revert")
	return d
}

// Wait sleeps in wall time, for takes watched by a person.
func (d *Director) Wait(duration time.Duration) *Director {
	time.Sleep(duration)
	d.recordInteraction("wait", duration.String(), nil)
	return d
}
