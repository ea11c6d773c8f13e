package flyover

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/flyover/landing"
	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/stage"
	"github.com/teranos/flyover/trip"
)

func choreography(t testing.TB) *landing.Choreography {
	t.Helper()
	engine, err := landing.NewEngine(zerolog.Nop())
	require.NoError(t, err)
	return landing.Choreograph(engine, landing.Compose(scene.DefaultViewport))
}

func mount(t testing.TB, opts ...stage.Option) *stage.Stage {
	t.Helper()
	engine, err := landing.NewEngine(zerolog.Nop())
	require.NoError(t, err)
	_, st, err := landing.Mount(engine, scene.DefaultViewport, opts...)
	require.NoError(t, err)
	return st
}

func quietConfig() DirectorConfig {
	config := DefaultDirectorConfig()
	config.AutoReportErrors = false
	return config
}

// TestDirector_LandingTake walks the whole landing choreography
func TestDirector_LandingTake(t *testing.T) {
	var navigated []string
	st := mount(t, stage.WithNavigator(stage.NavigatorFunc(func(p string) error {
		navigated = append(navigated, p)
		return nil
	})))

	result := NewDirector(t, st).
		Start().
		AssertProperty(".intro-overlay@0", scene.PropOpacity, 1).
		AdvanceToLabel("acehStart").
		AssertRouteState("aceh", stage.Drawing).
		AssertRouteState("sumut", stage.Idle).
		AdvanceToLabel("sumutStart").
		AssertRouteState("sumut", stage.Drawing).
		AdvanceTo(8.8).
		AssertRouteState("aceh", stage.Looping).
		AssertRouteState("sumbar", stage.Drawing).
		AssertLoopRunning("loop:aceh").
		AssertLoopRunning("bob").
		AssertProperty(".start-button@0", scene.PropOpacity, 1).
		AssertProperty(".intro-overlay@0", scene.PropOpacity, 0).
		AssertNoTripsOfType(trip.TypeCallback).
		Activate().
		Stop()

	assert.True(t, result.Success, result.ErrorMessage)
	assert.InDelta(t, 8.8, result.Playhead, 1e-9)
	assert.Equal(t, []string{"/journey"}, navigated)
	assert.Empty(t, result.Trips)

	last := result.Snapshots[len(result.Snapshots)-1]
	assert.Equal(t, "activate", last.Reason)
	assert.Equal(t, []string{"bob", "loop:aceh"}, last.Loops)
	assert.Equal(t, stage.Looping, last.Routes["aceh"])
}

// TestDirector_AdvanceLandsExactly checks that frame stepping does not drift
func TestDirector_AdvanceLandsExactly(t *testing.T) {
	st := mount(t)
	d := NewDirector(t, st).Start().Advance(10)
	assert.Equal(t, 10.0, st.Playhead())

	label, ok := st.Script().Label("sumbarStart")
	require.True(t, ok)
	d.SeekTo(0).AdvanceToLabel("sumbarStart")
	assert.Equal(t, label, st.Playhead())
	assert.False(t, d.HasFailed())
}

// TestDirector_FailuresAreCollected checks that failures accumulate in the result
func TestDirector_FailuresAreCollected(t *testing.T) {
	st := mount(t)
	result := NewDirectorWithConfig(t, st, quietConfig()).
		Start().
		AssertRouteState("aceh", stage.Looping).
		AssertRouteState("bali", stage.Idle).
		AssertProperty(".map-layer@0", scene.PropOpacity, 1).
		AdvanceToLabel("nowhere").
		Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "nowhere")

	var te *TestError
	require.True(t, errors.As(result.Error, &te))
	assert.Equal(t, "label", te.Type)

	var failed int
	for _, step := range result.Interactions {
		if step.Type == "assertion" && step.Result == false {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

// TestDirector_StageFallFailsTake checks that a stage which cannot continue
// fails the take even when every assertion passed
func TestDirector_StageFallFailsTake(t *testing.T) {
	st := mount(t)
	d := NewDirectorWithConfig(t, st, quietConfig()).Start().AdvanceToLabel("acehStart")
	assert.False(t, d.HasFailed())

	st.Trips().Record(trip.NewFall(trip.TypeVisual, "scene torn down mid take", nil))
	result := d.Stop()
	assert.False(t, result.Success)
	assert.Nil(t, result.Error)
	assert.Contains(t, result.ErrorMessage, "stage cannot continue")
}

// TestDirector_NotStarted checks the lifecycle guard
func TestDirector_NotStarted(t *testing.T) {
	st := mount(t)

	result := NewDirector(t, st).Stop()
	assert.False(t, result.Success)
	assert.Equal(t, "Director was never started", result.ErrorMessage)

	d := NewDirectorWithConfig(t, st, quietConfig()).Advance(1)
	require.True(t, d.HasFailed())
	assert.Contains(t, d.GetError().Error(), "initialization")
	assert.Equal(t, 0.0, st.Playhead())
}

// TestDirector_SeekBackReplays checks that seeking back resets the routes
func TestDirector_SeekBackReplays(t *testing.T) {
	st := mount(t)
	d := NewDirector(t, st).
		Start().
		Advance(12).
		AssertLoopRunning("loop:sumbar").
		SeekTo(1).
		AssertRouteState("aceh", stage.Idle)

	assert.Equal(t, []string{"bob"}, d.GetLatestSnapshot().Loops)
	assert.False(t, d.HasFailed())
	assert.Len(t, st.RouteHistory("aceh"), 0)
}

// TestDirector_RevertAndNavigationFailure covers the unmount path
func TestDirector_RevertAndNavigationFailure(t *testing.T) {
	st := mount(t)
	d := NewDirectorWithConfig(t, st, quietConfig()).
		Start().
		Advance(7).
		Revert().
		Advance(5)

	snap := d.GetLatestSnapshot()
	assert.True(t, snap.Reverted)
	assert.Empty(t, snap.Loops)
	assert.Equal(t, 7.0, st.Playhead(), "a reverted stage does not advance")

	d.Activate()
	var te *TestError
	require.True(t, errors.As(d.GetError(), &te), "no navigator is a navigation failure")
	assert.Equal(t, "navigation", te.Type)
}

// TestDirector_WithoutSnapshots checks that snapshots can be turned off
func TestDirector_WithoutSnapshots(t *testing.T) {
	st := mount(t)
	result := NewDirector(t, st).WithSnapshots(false).Start().Advance(3).Stop()
	assert.Empty(t, result.Snapshots)
	assert.Equal(t, 1, len(result.Interactions))
}
