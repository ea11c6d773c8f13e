package operators

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/flyover/trip"
)

// modelUpdate is a model state produced by one Update, numbered in the
// order the program produced it.
type modelUpdate struct {
	model    tea.Model
	sequence int64
}

// HarnessConfig controls a headless run.
type HarnessConfig struct {
	Timeout      time.Duration
	BufferSize   int
	CaptureViews bool
}

// DefaultHarnessConfig returns the settings tests use.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{Timeout: 5 * time.Second, BufferSize: 256, CaptureViews: true}
}

// HarnessSnapshot is the rendered view at a moment of the run.
type HarnessSnapshot struct {
	Timestamp time.Time
	Reason    string
	View      string
}

// HarnessResult is what a headless run leaves behind.
type HarnessResult struct {
	Snapshots    []HarnessSnapshot
	Trips        []*trip.Trip
	Stats        map[string]int64
	Success      bool
	Duration     time.Duration
	ErrorMessage string
	TripReport   string
}

// Harness runs a bubbletea model without a terminal. Every model the
// program produces is forwarded to the harness in sequence, so tests can
// wait on the view while the program keeps ticking.
type Harness struct {
	t       testing.TB
	model   tea.Model
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	trips    *trip.Handler
	lastTrip *trip.Trip
	failed   bool
	tripMu   sync.Mutex

	snapshots []HarnessSnapshot

	updates    chan modelUpdate
	latest     tea.Model
	latestMu   sync.RWMutex
	updateSeq  int64
	lastSeq    int64
	sent       int64
	processed  int64
	overflows  int64
	gaps       int64
	duplicates int64

	config    HarnessConfig
	started   bool
	startedAt time.Time
}

// harnessModel forwards every Update result to the harness.
type harnessModel struct {
	tea.Model
	h *Harness
}

// NewHarness prepares a run of model.
func NewHarness(t testing.TB, model tea.Model) *Harness {
	return NewHarnessWithConfig(t, model, DefaultHarnessConfig())
}

// NewHarnessWithConfig prepares a run of model with config.
func NewHarnessWithConfig(t testing.TB, model tea.Model, config HarnessConfig) *Harness {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultHarnessConfig().BufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Harness{
		t:       t,
		model:   model,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		trips:   trip.NewHandler("harness", nil),
		updates: make(chan modelUpdate, config.BufferSize),
		latest:  model,
		config:  config,
	}
}

// Update intercepts the wrapped model's updates. A panic becomes a trip and
// stops the run.
func (w harnessModel) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			w.h.handleModelPanic(r, msg)
			next, cmd = w, tea.Quit
		}
	}()

	m, cmd := w.Model.Update(msg)
	if m == nil {
		w.h.recordTrip(trip.NewFall(trip.TypeModel, "Update returned nil model", trip.Context{
			"tea_msg": fmt.Sprintf("%T", msg),
		}))
		return w, tea.Quit
	}

	seq := atomic.AddInt64(&w.h.updateSeq, 1)
	select {
	case w.h.updates <- modelUpdate{model: m, sequence: seq}:
		atomic.AddInt64(&w.h.sent, 1)
	default:
		atomic.AddInt64(&w.h.overflows, 1)
	}
	return harnessModel{Model: m, h: w.h}, cmd
}

// syncModelUpdates keeps the latest model current, in sequence order.
func (h *Harness) syncModelUpdates() {
	for {
		select {
		case u := <-h.updates:
			current := atomic.LoadInt64(&h.lastSeq)
			if u.sequence <= current {
				atomic.AddInt64(&h.duplicates, 1)
				continue
			}
			if u.sequence > current+1 {
				atomic.AddInt64(&h.gaps, 1)
			}
			h.latestMu.Lock()
			h.latest = u.model
			atomic.StoreInt64(&h.lastSeq, u.sequence)
			atomic.AddInt64(&h.processed, 1)
			h.latestMu.Unlock()
		case <-h.ctx.Done():
			return
		}
	}
}

// Start runs the program in the background and waits for its first view.
func (h *Harness) Start() *Harness {
	if h.started {
		return h
	}
	h.started = true
	h.startedAt = time.Now()

	h.program = tea.NewProgram(harnessModel{Model: h.model, h: h},
		tea.WithContext(h.ctx),
		tea.WithoutRenderer(),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	go h.syncModelUpdates()
	go func() {
		defer close(h.done)
		if _, err := h.program.Run(); err != nil && h.ctx.Err() == nil {
			h.recordTrip(trip.NewTrip(trip.TypeModel, err.Error(), nil))
		}
	}()

	h.waitFor("program ready", func(view string) bool { return view != "" })
	h.captureSnapshot("initial")
	return h
}

// Send delivers msg to the program.
func (h *Harness) Send(msg tea.Msg) *Harness {
	if !h.ready() {
		return h
	}
	h.program.Send(msg)
	return h
}

// Press sends a key press. Named keys are "enter", "left", "right",
// "space" and "ctrl+c"; anything else is sent as runes.
func (h *Harness) Press(k string) *Harness {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	h.Send(msg)
	h.captureSnapshot("press " + k)
	return h
}

// WaitForText waits until the view contains text.
func (h *Harness) WaitForText(text string) *Harness {
	if !h.ready() {
		return h
	}
	h.waitFor(fmt.Sprintf("text %q", text), func(view string) bool { return strings.Contains(view, text) })
	return h
}

// WaitFor waits until cond holds for the latest model.
func (h *Harness) WaitFor(what string, cond func(tea.Model) bool) *Harness {
	if !h.ready() {
		return h
	}
	timer := time.NewTimer(h.config.Timeout)
	defer timer.Stop()
	for {
		if cond(h.Model()) {
			return h
		}
		select {
		case <-timer.C:
			h.recordTrip(trip.NewTrip(trip.TypeModel, "timeout waiting for "+what, nil))
			return h
		case <-h.ctx.Done():
			return h
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (h *Harness) waitFor(what string, cond func(view string) bool) {
	timer := time.NewTimer(h.config.Timeout)
	defer timer.Stop()
	for {
		if cond(h.View()) {
			return
		}
		select {
		case <-timer.C:
			h.recordTrip(trip.NewTrip(trip.TypeModel, "timeout waiting for "+what, trip.Context{
				"current_view": truncate(h.View(), 200),
			}))
			return
		case <-h.ctx.Done():
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// AssertViewContains checks the current view.
func (h *Harness) AssertViewContains(text string) *Harness {
	if !strings.Contains(h.View(), text) {
		h.recordTrip(trip.NewTrip(trip.TypeModel, fmt.Sprintf("view does not contain %q", text), trip.Context{
			"current_view": truncate(h.View(), 200),
		}))
	}
	return h
}

// Model returns the most recent model the program produced.
func (h *Harness) Model() tea.Model {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	return h.latest
}

// View renders the most recent model.
func (h *Harness) View() string {
	if m := h.Model(); m != nil {
		return m.View()
	}
	return ""
}

// HasFailed reports whether a trip stopped the run.
func (h *Harness) HasFailed() bool {
	h.tripMu.Lock()
	defer h.tripMu.Unlock()
	return h.failed
}

// Stats returns the update synchronisation counters.
func (h *Harness) Stats() map[string]int64 {
	return map[string]int64{
		"updates_generated": atomic.LoadInt64(&h.updateSeq),
		"updates_sent":      atomic.LoadInt64(&h.sent),
		"updates_processed": atomic.LoadInt64(&h.processed),
		"buffer_overflows":  atomic.LoadInt64(&h.overflows),
		"sequence_gaps":     atomic.LoadInt64(&h.gaps),
		"duplicate_updates": atomic.LoadInt64(&h.duplicates),
		"buffer_capacity":   int64(cap(h.updates)),
	}
}

// Stop quits the program and reports the run.
func (h *Harness) Stop() *HarnessResult {
	if h.started {
		h.captureSnapshot("final")
		h.program.Quit()
		select {
		case <-h.done:
		case <-time.After(h.config.Timeout):
		}
	}
	h.cancel()

	h.tripMu.Lock()
	defer h.tripMu.Unlock()
	result := &HarnessResult{
		Snapshots:  h.snapshots,
		Trips:      h.trips.All(),
		Stats:      h.Stats(),
		Success:    h.started && !h.failed && h.lastTrip == nil,
		Duration:   time.Since(h.startedAt),
		TripReport: h.trips.DetailedReport(),
	}
	switch {
	case !h.started:
		result.ErrorMessage = "Harness was never started"
	case h.lastTrip != nil:
		result.ErrorMessage = fmt.Sprintf("[%s] %s", h.lastTrip.Type, h.lastTrip.Message)
	}
	return result
}

func (h *Harness) ready() bool {
	if !h.started {
		h.recordTrip(trip.NewFall(trip.TypeModel, "harness used before Start", nil))
		return false
	}
	return !h.HasFailed()
}

func (h *Harness) captureSnapshot(reason string) {
	if !h.config.CaptureViews {
		return
	}
	h.snapshots = append(h.snapshots, HarnessSnapshot{Timestamp: time.Now(), Reason: reason, View: h.View()})
}

// handleModelPanic records a model panic and ends the run.
func (h *Harness) handleModelPanic(value interface{}, msg tea.Msg) {
	h.recordTrip(trip.NewFall(trip.TypeModel, fmt.Sprintf("model panic during Update: %v", value), trip.Context{
		"panic_value": value,
		"tea_msg":     fmt.Sprintf("%T", msg),
		"model_type":  fmt.Sprintf("%T", h.model),
	}))
}

func (h *Harness) recordTrip(t *trip.Trip) {
	h.tripMu.Lock()
	h.trips.Record(t)
	h.lastTrip = t
	if !t.CanRecover() {
		h.failed = true
	}
	h.tripMu.Unlock()

	if h.t != nil {
		h.t.Log(t.DetailedString())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
