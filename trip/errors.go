// Package trip collects choreography diagnostics.
//
// Nothing in a choreography fails loudly: a marker missing from the scene, an
// overlap reaching before the start of the timeline or a path segment handed
// to an engine without the motion path plugin all leave the animation running
// in a visually wrong but harmless state. Those conditions are recorded as
// trips so that tests and development tooling can assert on them.
package trip

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Diagnostic categories used across the module.
const (
	TypeSelector   = "selector"   // a target marker matched nothing
	TypeTiming     = "timing"     // an offset resolved before time zero
	TypeLabel      = "label"      // a position referenced an unknown label
	TypePlugin     = "plugin"     // a segment needs an unregistered plugin
	TypeEase       = "ease"       // an ease name could not be parsed
	TypeVisual     = "visual"     // frame capture or rendering problems
	TypeNavigation = "navigation" // the navigator rejected a route change
	TypeCallback   = "callback"   // a completion callback misbehaved
	TypeModel      = "model"      // a terminal model failed during Update
)

// Trip is a single recorded diagnostic with structured context.
//
// Example:
//
//	t := trip.NewStumble(trip.TypeSelector, "no element matches .map-pin",
//	    trip.Context{"selector": ".map-pin", "segment": 5})
type Trip struct {
	Type      string    // Diagnostic category
	Message   string    // Human-readable description
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the diagnostic was recorded
	Attempt   int       // Build or mount generation that produced it
	Severity  Severity  // How serious it is
}

// Context provides structured debugging information for trips.
type Context map[string]interface{}

// Severity indicates how serious a trip is.
type Severity int

const (
	// Stumble is a declarative mismatch that degrades to a no-op.
	// Examples: selector matched zero elements, unknown label appended.
	Stumble Severity = iota

	// Error is a misconfiguration that produces visibly incorrect motion.
	// Examples: overlap offsets reaching before time zero.
	Error

	// Fall is a condition that makes the choreography meaningless.
	// Examples: rendering a frame of a reverted stage.
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// NewTrip creates a new trip with Error severity.
func NewTrip(errorType, message string, context Context) *Trip {
	return &Trip{
		Type:      errorType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Error,
	}
}

// NewStumble creates a new trip with Stumble severity.
func NewStumble(errorType, message string, context Context) *Trip {
	t := NewTrip(errorType, message, context)
	t.Severity = Stumble
	return t
}

// NewFall creates a new trip with Fall severity.
func NewFall(errorType, message string, context Context) *Trip {
	t := NewTrip(errorType, message, context)
	t.Severity = Fall
	return t
}

// WithAttempt sets the generation number for this trip.
func (t *Trip) WithAttempt(attemptNumber int) *Trip {
	t.Attempt = attemptNumber
	return t
}

// WithSeverity sets the severity level for this trip.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

// Error implements the error interface.
func (t *Trip) Error() string {
	return fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message)
}

// CanRecover reports whether the choreography stays meaningful despite this trip.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall reports whether this trip invalidates the choreography.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns a specific context value if it exists.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, exists := t.Context[key]
	return val, exists
}

// DetailedString returns the trip with its context, keys sorted.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(t.Error())
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))

	if t.Attempt > 0 {
		details.WriteString(fmt.Sprintf("\n  Attempt: %d", t.Attempt))
	}

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

// Handler collects trips for one component (timeline, stage, renderer).
// It is safe for concurrent use; the stage records from its driver goroutine
// while tests read from theirs.
type Handler struct {
	mu        sync.Mutex
	component string
	trips     []*Trip
	stumbles  []*Trip
	policy    *Policy
}

// Policy defines how collected trips are judged.
type Policy struct {
	// StopOnFall makes ShouldContinue report false once a fall is recorded.
	StopOnFall bool

	// MaxStumbles sets a limit on accumulated stumbles; <= 0 disables it.
	MaxStumbles int

	// RecoverableTypes lists categories that never invalidate a choreography.
	RecoverableTypes []string
}

// DefaultPolicy returns the policy used by the timeline and the stage.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnFall:       true,
		MaxStumbles:      0,
		RecoverableTypes: []string{TypeSelector, TypeLabel, TypeVisual},
	}
}

// NewHandler creates a new trip handler for a specific component.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		trips:     make([]*Trip, 0),
		stumbles:  make([]*Trip, 0),
		policy:    policy,
	}
}

// Record adds a trip to the handler's collection.
func (h *Handler) Record(trip *Trip) {
	if trip == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if trip.Severity == Stumble {
		h.stumbles = append(h.stumbles, trip)
	} else {
		h.trips = append(h.trips, trip)
	}
}

// ShouldContinue reports whether the collected trips still allow playback.
func (h *Handler) ShouldContinue() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.policy.StopOnFall {
		for _, trip := range h.trips {
			if trip.IsFall() {
				return false
			}
		}
	}

	if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
		return false
	}

	return true
}

// HasTrips returns true if any non-stumble trips have been recorded.
func (h *Handler) HasTrips() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trips) > 0
}

// HasStumbles returns true if any stumbles have been recorded.
func (h *Handler) HasStumbles() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stumbles) > 0
}

// GetTrips returns a copy of all recorded non-stumble trips.
func (h *Handler) GetTrips() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.trips...)
}

// GetStumbles returns a copy of all recorded stumbles.
func (h *Handler) GetStumbles() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.stumbles...)
}

// All returns every trip, errors first, each group in recording order.
func (h *Handler) All() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Trip, 0, len(h.trips)+len(h.stumbles))
	out = append(out, h.trips...)
	return append(out, h.stumbles...)
}

// OfType returns every trip of the given category.
func (h *Handler) OfType(errorType string) []*Trip {
	var out []*Trip
	for _, t := range h.All() {
		if t.Type == errorType {
			out = append(out, t)
		}
	}
	return out
}

// CanRecover returns true if the given category is considered recoverable.
func (h *Handler) CanRecover(errorType string) bool {
	for _, recoverableType := range h.policy.RecoverableTypes {
		if recoverableType == errorType {
			return true
		}
	}
	return false
}

// Reset drops every collected trip.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trips = h.trips[:0]
	h.stumbles = h.stumbles[:0]
}

// Summary provides a concise overview of all trips and stumbles.
func (h *Handler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] No issues", h.component)
	}

	return fmt.Sprintf("[%s] %d trips, %d stumbles",
		h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport provides a comprehensive report of all issues.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	trips := h.GetTrips()
	if len(trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, trip := range trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, trip.DetailedString()))
		}
	}

	stumbles := h.GetStumbles()
	if len(stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, stumble := range stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, stumble.DetailedString()))
		}
	}

	return report.String()
}
