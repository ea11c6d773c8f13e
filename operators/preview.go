// Package operators plays the landing choreography in a terminal.
//
// PreviewOperator is a bubbletea model: it advances a stage on every tick,
// draws the resolved script as a gantt with the playhead on it, and shows
// each route's state machine as a badge. Harness runs any model headlessly
// for tests and for scripted takes.
package operators

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/teranos/flyover"
	"github.com/teranos/flyover/stage"
)

// DefaultFPS is how often the preview advances the stage.
const DefaultFPS = 30

// ScrubStep is how far one arrow key press moves the playhead.
const ScrubStep = 0.5

// Journey is the navigator a preview stage is mounted with. It records the
// last path the call to action led to.
type Journey struct {
	mu     sync.Mutex
	path   string
	visits int
}

// NewJourney returns a navigator that has not been anywhere yet.
func NewJourney() *Journey { return &Journey{} }

// Navigate records path.
func (j *Journey) Navigate(path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.path = path
	j.visits++
	return nil
}

// Last returns the last path navigated to and how many times the call to
// action was taken.
func (j *Journey) Last() (string, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path, j.visits
}

var _ stage.Navigator = (*Journey)(nil)

type keyMap struct {
	Pause    key.Binding
	Restart  key.Binding
	Back     key.Binding
	Forward  key.Binding
	Activate key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Restart, k.Back, k.Forward, k.Activate, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func defaultKeyMap() keyMap {
	return keyMap{
		Pause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Restart:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Back:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "back")),
		Forward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "forward")),
		Activate: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start journey")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type tickMsg time.Time

// PreviewOption configures a PreviewOperator.
type PreviewOption func(*PreviewOperator)

// WithRenderer sets the lipgloss renderer the view is styled with.
func WithRenderer(r *lipgloss.Renderer) PreviewOption {
	return func(p *PreviewOperator) { p.renderer = r }
}

// WithFPS sets the tick rate.
func WithFPS(fps int) PreviewOption {
	return func(p *PreviewOperator) {
		if fps > 0 {
			p.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithJourney shows where the call to action led, when the stage was
// mounted with j.
func WithJourney(j *Journey) PreviewOption { return func(p *PreviewOperator) { p.journey = j } }

// WithPreviewLogger sets the logger key presses are reported to.
func WithPreviewLogger(l zerolog.Logger) PreviewOption {
	return func(p *PreviewOperator) { p.logger = l }
}

// PreviewOperator is the terminal player.
type PreviewOperator struct {
	stage    *stage.Stage
	journey  *Journey
	renderer *lipgloss.Renderer
	logger   zerolog.Logger
	keys     keyMap
	help     help.Model
	bar      progress.Model
	interval time.Duration
	width    int
	paused   bool
	last     time.Time
	status   string
	quitting bool
}

// NewPreviewOperator returns a player for st.
func NewPreviewOperator(st *stage.Stage, opts ...PreviewOption) PreviewOperator {
	p := PreviewOperator{
		stage:    st,
		renderer: lipgloss.DefaultRenderer(),
		logger:   zerolog.Nop(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		interval: time.Second / DefaultFPS,
		width:    72,
	}
	for _, opt := range opts {
		opt(&p)
	}
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(p.width+16))
	return p
}

// Stage returns the stage being played.
func (p PreviewOperator) Stage() *stage.Stage { return p.stage }

// Paused reports whether ticks are ignored.
func (p PreviewOperator) Paused() bool { return p.paused }

// Status is the last message shown under the gantt.
func (p PreviewOperator) Status() string { return p.status }

func (p PreviewOperator) tick() tea.Cmd {
	return tea.Tick(p.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the clock.
func (p PreviewOperator) Init() tea.Cmd { return p.tick() }

// Update handles ticks, key presses and resizes.
func (p PreviewOperator) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		if !p.paused && !p.last.IsZero() && now.After(p.last) {
			p.stage.Advance(now.Sub(p.last).Seconds())
		}
		p.last = now
		if p.quitting {
			return p, nil
		}
		return p, p.tick()

	case tea.WindowSizeMsg:
		p.width = max(msg.Width-18, 10)
		p.bar.Width = p.width + 16
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p PreviewOperator) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		p.quitting = true
		p.stage.Revert()
		return p, tea.Quit
	case key.Matches(msg, p.keys.Pause):
		p.paused = !p.paused
		if p.paused {
			p.status = "paused"
		} else {
			p.status = "playing"
		}
	case key.Matches(msg, p.keys.Restart):
		p.stage.Restart()
		p.status = "restarted"
	case key.Matches(msg, p.keys.Back):
		p.stage.SeekTo(max(p.stage.Playhead()-ScrubStep, 0))
		p.status = fmt.Sprintf("seek %.1fs", p.stage.Playhead())
	case key.Matches(msg, p.keys.Forward):
		p.stage.SeekTo(p.stage.Playhead() + ScrubStep)
		p.status = fmt.Sprintf("seek %.1fs", p.stage.Playhead())
	case key.Matches(msg, p.keys.Activate):
		if err := p.stage.Activate(); err != nil {
			p.status = "journey failed: " + err.Error()
		} else {
			p.status = "→ " + stage.JourneyPath
		}
	default:
		return p, nil
	}
	p.logger.Debug().Str("key", msg.String()).Float64("playhead", p.stage.Playhead()).Msg("preview key")
	return p, nil
}

func (p PreviewOperator) badges() string {
	styles := map[stage.State]lipgloss.Style{
		stage.Idle:    p.renderer.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1),
		stage.Drawing: p.renderer.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1),
		stage.Looping: p.renderer.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("78")).Padding(0, 1),
	}
	states := p.stage.RouteStates()
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, styles[states[name]].Render(name+" "+states[name].String()))
	}
	return strings.Join(parts, " ")
}

// View draws the player.
func (p PreviewOperator) View() string {
	if p.quitting {
		return ""
	}
	script := p.stage.Script()
	playhead := p.stage.Playhead()
	title := p.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	head := fmt.Sprintf("%s  %.2fs / %.1fs  loops %d", title.Render("flyover"), playhead, script.Duration, len(p.stage.Loops()))
	if p.paused {
		head += "  ⏸"
	}

	var b strings.Builder
	b.WriteString(head + "\n\n")
	b.WriteString(flyover.Gantt(p.renderer, script, playhead, p.width))
	b.WriteString("\n" + p.badges() + "\n\n")
	b.WriteString(p.bar.ViewAs(min(playhead/max(script.Duration, 1e-9), 1)) + "\n")
	if p.journey != nil {
		if path, n := p.journey.Last(); n > 0 {
			b.WriteString(fmt.Sprintf("journey %s (%d)\n", path, n))
		}
	}
	if p.status != "" {
		b.WriteString(p.status + "\n")
	}
	b.WriteString(p.help.View(p.keys))
	return b.String()
}
