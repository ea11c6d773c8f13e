// Package flyover films the landing choreography.
//
// A Director drives a mounted stage headlessly on a manual clock, so tests
// and tools can step through the animation, assert on route states and
// sampled properties, and collect a result instead of failing on the first
// problem. An Operator adds tracking shots: rendered frames plus a gantt of
// the script at the moment of capture, which an HTMLReportGenerator turns
// into a contact sheet.
//
// Basic usage:
//
//	engine, _ := landing.NewEngine(logger)
//	_, st, _ := landing.Mount(engine, scene.DefaultViewport)
//
//	result := flyover.NewDirector(t, st).
//		Start().
//		AdvanceToLabel("acehStart").
//		AssertRouteState("aceh", stage.Drawing).
//		Advance(3).
//		AssertRouteState("aceh", stage.Looping).
//		Stop()
//
//	assert.True(t, result.Success)
//
// For visual takes:
//
//	flyover.NewOperator(t, st, "film/").
//		Start().
//		CaptureTrackingShot("mount").
//		AdvanceWithTrackingShot(4, "plane-gone").
//		Stop()
package flyover

import (
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teranos/flyover/stage"
	"github.com/teranos/flyover/trip"
)

// Director drives a stage on a manual clock and records what happened.
//
// Errors are collected and returned in the final StageResult rather than
// stopping the take. With AutoReportErrors they are also reported to the
// testing framework as they happen.
type Director struct {
	t     testing.TB
	stage *stage.Stage

	interactions []InteractionStep
	snapshots    []StageSnapshot

	lastError error
	failed    bool

	config  DirectorConfig
	logger  zerolog.Logger
	started bool
	began   time.Time
}

// InteractionStep records a single action or assertion
type InteractionStep struct {
	Timestamp time.Time   `json:"timestamp"`
	Playhead  float64     `json:"playhead"`
	Type      string      `json:"type"` // "advance", "seek", "activate", "revert", "assertion", "shot"
	Details   interface{} `json:"details"`
	Result    interface{} `json:"result,omitempty"`
}

// StageSnapshot captures the stage at a specific moment.
type StageSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Playhead  float64                `json:"playhead"`
	Reason    string                 `json:"reason"`
	Routes    map[string]stage.State `json:"routes"`
	Loops     []string               `json:"loops"`
	Reverted  bool                   `json:"reverted"`
}

// StageResult contains the complete results of a take.
type StageResult struct {
	Interactions []InteractionStep `json:"interactions"`
	Snapshots    []StageSnapshot   `json:"snapshots"`
	Shots        []TrackingShot    `json:"shots,omitempty"`
	Trips        []*trip.Trip      `json:"-"`
	Playhead     float64           `json:"playhead"`
	Success      bool              `json:"success"`
	Duration     time.Duration     `json:"duration"` // Wall time of the take
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Error        error             `json:"-"`
}

// TestError is a structured take failure with context.
//
// Error types:
//   - "assertion": a route state or property did not match
//   - "label": a label the take relied on does not exist
//   - "navigation": activating the call to action failed
//   - "initialization": the take was used before Start
//   - "capture": a tracking shot could not be written
type TestError struct {
	Type    string
	Message string
	Context map[string]interface{}
}

func (e *TestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newTestError(errorType, message string, context map[string]interface{}) *TestError {
	return &TestError{Type: errorType, Message: message, Context: context}
}

// DirectorConfig configures a Director.
type DirectorConfig struct {
	// FrameStep is the longest single clock step; longer advances are split
	// into frames of this length, the way a display would tick.
	FrameStep float64
	// Tolerance for AssertProperty
	Tolerance float64
	// CaptureSnapshots enables a snapshot after every action
	CaptureSnapshots bool
	// AutoReportErrors reports errors to t.Error as they happen. Turn off
	// when testing failure paths.
	AutoReportErrors bool
}

// DefaultDirectorConfig steps at 60 frames per second.
func DefaultDirectorConfig() DirectorConfig {
	return DirectorConfig{
		FrameStep:        1.0 / 60,
		Tolerance:        1e-6,
		CaptureSnapshots: true,
		AutoReportErrors: true,
	}
}

// NewDirector creates a director over st with the default configuration. t
// may be nil outside tests.
func NewDirector(t testing.TB, st *stage.Stage) *Director {
	return NewDirectorWithConfig(t, st, DefaultDirectorConfig())
}

// NewDirectorWithConfig creates a director with a custom configuration.
func NewDirectorWithConfig(t testing.TB, st *stage.Stage, config DirectorConfig) *Director {
	if config.FrameStep <= 0 {
		config.FrameStep = DefaultDirectorConfig().FrameStep
	}
	return &Director{
		t:      t,
		stage:  st,
		config: config,
		logger: zerolog.Nop(),
	}
}

// WithLogger routes the director's trace output to logger.
func (d *Director) WithLogger(logger zerolog.Logger) *Director {
	d.logger = logger.With().Str("component", "director").Logger()
	return d
}

// WithSnapshots enables or disables automatic snapshots.
func (d *Director) WithSnapshots(enabled bool) *Director {
	d.config.CaptureSnapshots = enabled
	return d
}

// WithTolerance sets the AssertProperty delta.
func (d *Director) WithTolerance(tolerance float64) *Director {
	d.config.Tolerance = tolerance
	return d
}

// Stage is the stage under direction.
func (d *Director) Stage() *stage.Stage { return d.stage }

// recordError records an error and marks the take as failed
func (d *Director) recordError(err error) {
	d.lastError = err
	d.failed = true
	d.logger.Warn().Err(err).Float64("playhead", d.stage.Playhead()).Msg("Take error")
	if d.t != nil && d.config.AutoReportErrors {
		d.t.Helper()
		d.t.Error(err)
	}
}

// HasFailed reports whether any error was recorded
func (d *Director) HasFailed() bool { return d.failed }

// GetError returns the last error recorded
func (d *Director) GetError() error { return d.lastError }

// Start begins the take and captures the mount snapshot.
func (d *Director) Start() *Director {
	if d.started {
		return d
	}
	d.started = true
	d.began = time.Now()
	d.logger.Debug().Float64("duration", d.stage.Duration()).Msg("Take started")
	d.captureSnapshot("initial")
	return d
}

// ready records an initialization error for actions before Start.
func (d *Director) ready(action string) bool {
	if d.started {
		return true
	}
	d.recordError(newTestError("initialization", action+" before Start", nil))
	return false
}

// Stop ends the take and returns its results.
func (d *Director) Stop() *StageResult {
	if !d.started {
		return &StageResult{
			Success:      false,
			ErrorMessage: "Director was never started",
		}
	}
	trips := d.stage.Trips()
	result := &StageResult{
		Interactions: d.interactions,
		Snapshots:    d.snapshots,
		Trips:        trips.All(),
		Playhead:     d.stage.Playhead(),
		Success:      !d.failed && trips.ShouldContinue(),
		Duration:     time.Since(d.began),
		Error:        d.lastError,
	}
	switch {
	case d.lastError != nil:
		result.ErrorMessage = d.lastError.Error()
	case !result.Success:
		result.ErrorMessage = "stage cannot continue: " + trips.Summary()
	}
	d.logger.Debug().Bool("success", result.Success).Int("interactions", len(d.interactions)).Msg("Take stopped")
	return result
}

func (d *Director) recordInteraction(interactionType string, details, result interface{}) {
	d.interactions = append(d.interactions, InteractionStep{
		Timestamp: time.Now(),
		Playhead:  d.stage.Playhead(),
		Type:      interactionType,
		Details:   details,
		Result:    result,
	})
}

func (d *Director) captureSnapshot(reason string) {
	if !d.config.CaptureSnapshots {
		return
	}
	d.snapshots = append(d.snapshots, d.Snapshot(reason))
}

// Snapshot describes the stage now.
func (d *Director) Snapshot(reason string) StageSnapshot {
	snap := StageSnapshot{
		Timestamp: time.Now(),
		Playhead:  d.stage.Playhead(),
		Reason:    reason,
		Routes:    d.stage.RouteStates(),
		Reverted:  d.stage.Reverted(),
	}
	for _, l := range d.stage.Loops() {
		snap.Loops = append(snap.Loops, l.Spec.ID)
	}
	sort.Strings(snap.Loops)
	return snap
}

// GetLatestSnapshot returns the most recent snapshot
func (d *Director) GetLatestSnapshot() StageSnapshot {
	if len(d.snapshots) == 0 {
		return StageSnapshot{}
	}
	return d.snapshots[len(d.snapshots)-1]
}

// GetInteractionCount returns the number of recorded interactions
func (d *Director) GetInteractionCount() int { return len(d.interactions) }

// AssertRouteState checks a route's state machine
func (d *Director) AssertRouteState(route string, want stage.State) *Director {
	got, ok := d.stage.RouteState(route)
	switch {
	case !ok:
		d.recordError(newTestError("assertion", fmt.Sprintf("no route %q", route),
			map[string]interface{}{"route": route}))
	case got != want:
		d.recordError(newTestError("assertion",
			fmt.Sprintf("route %s is %s at %.3fs, want %s", route, got, d.stage.Playhead(), want),
			map[string]interface{}{"route": route, "got": got.String(), "want": want.String()}))
	}
	d.recordInteraction("assertion", map[string]interface{}{"route": route, "want": want.String()}, ok && got == want)
	return d
}

// AssertProperty checks a sampled property of an element handle
func (d *Director) AssertProperty(target, prop string, want float64) *Director {
	got := d.stage.Frame().Value(target, prop)
	pass := math.Abs(got-want) <= d.config.Tolerance
	if !pass {
		d.recordError(newTestError("assertion",
			fmt.Sprintf("%s %s is %g at %.3fs, want %g", target, prop, got, d.stage.Playhead(), want),
			map[string]interface{}{"target": target, "prop": prop, "got": got, "want": want}))
	}
	d.recordInteraction("assertion", map[string]interface{}{"target": target, "prop": prop, "want": want}, pass)
	return d
}

// AssertLoopRunning checks that the loop with id has been spawned
func (d *Director) AssertLoopRunning(id string) *Director {
	found := false
	for _, l := range d.stage.Loops() {
		if l.Spec.ID == id {
			found = true
			break
		}
	}
	if !found {
		d.recordError(newTestError("assertion", fmt.Sprintf("loop %s is not running at %.3fs", id, d.stage.Playhead()),
			map[string]interface{}{"loop": id}))
	}
	d.recordInteraction("assertion", map[string]interface{}{"loop": id}, found)
	return d
}

// AssertNoTripsOfType checks that the stage recorded no trips of a type
func (d *Director) AssertNoTripsOfType(errorType string) *Director {
	trips := d.stage.Trips().OfType(errorType)
	if len(trips) > 0 {
		d.recordError(newTestError("assertion", fmt.Sprintf("%d %s trips: %v", len(trips), errorType, trips[0]),
			map[string]interface{}{"type": errorType, "count": len(trips)}))
	}
	d.recordInteraction("assertion", map[string]interface{}{"noTrips": errorType}, len(trips) == 0)
	return d
}
