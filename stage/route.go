package stage

import "fmt"

// State is a route's lifecycle position.
type State int

const (
	Idle State = iota
	Drawing
	Looping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Looping:
		return "looping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Transition is one recorded state change.
type Transition struct {
	From State   `json:"from"`
	To   State   `json:"to"`
	At   float64 `json:"at"`
}

// RouteMachine tracks one route: idle until its label is reached, drawing
// while its line and plane run, looping once the flight completes. The
// looping transition calls onLoop exactly once.
type RouteMachine struct {
	name    string
	state   State
	history []Transition
	onLoop  func(at float64)
}

// NewRouteMachine returns an idle machine. onLoop may be nil.
func NewRouteMachine(name string, onLoop func(at float64)) *RouteMachine {
	return &RouteMachine{name: name, onLoop: onLoop}
}

// Name is the route name.
func (m *RouteMachine) Name() string { return m.name }

// State returns the current state.
func (m *RouteMachine) State() State { return m.state }

// History returns every transition taken since the last reset.
func (m *RouteMachine) History() []Transition {
	return append([]Transition(nil), m.history...)
}

// Begin moves idle to drawing. It reports whether the transition happened.
func (m *RouteMachine) Begin(at float64) bool {
	if m.state != Idle {
		return false
	}
	m.move(Drawing, at)
	return true
}

// DrawComplete moves drawing to looping and starts the loop. Any other state
// ignores the event.
func (m *RouteMachine) DrawComplete(at float64) bool {
	if m.state != Drawing {
		return false
	}
	m.move(Looping, at)
	if m.onLoop != nil {
		m.onLoop(at)
	}
	return true
}

// Reset returns the machine to idle and forgets its history.
func (m *RouteMachine) Reset() {
	m.state = Idle
	m.history = nil
}

func (m *RouteMachine) move(to State, at float64) {
	m.history = append(m.history, Transition{From: m.state, To: to, At: at})
	m.state = to
}
