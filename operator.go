package flyover

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teranos/flyover/stage"
)

// TrackingShot is one captured moment of a take.
type TrackingShot struct {
	Step      int                    `json:"step"`
	Label     string                 `json:"label"`
	Playhead  float64                `json:"playhead"`
	Timestamp time.Time              `json:"timestamp"`
	FramePath string                 `json:"framePath"`
	GanttPath string                 `json:"ganttPath"`
	Routes    map[string]stage.State `json:"routes"`
}

// Operator is a Director that also films: each tracking shot renders the
// current frame to PNG and writes the script gantt next to it.
type Operator struct {
	*Director
	rendering  *RenderingStage
	outputDir  string
	ganttWidth int
	shots      []TrackingShot
}

// NewOperator creates an operator writing its shots to outputDir
func NewOperator(t testing.TB, st *stage.Stage, outputDir string) *Operator {
	config := DefaultConfig()
	config.OutputDir = outputDir
	return &Operator{
		Director:   NewDirector(t, st),
		rendering:  NewRenderingStage(config),
		outputDir:  outputDir,
		ganttWidth: 72,
	}
}

// WithConfig replaces the frame configuration. The output directory stays.
func (op *Operator) WithConfig(config Config) *Operator {
	config.OutputDir = op.outputDir
	op.rendering = NewRenderingStage(config)
	return op
}

// WithGanttWidth sets the gantt width in cells.
func (op *Operator) WithGanttWidth(width int) *Operator {
	op.ganttWidth = width
	return op
}

// Start begins the take.
func (op *Operator) Start() *Operator {
	op.Director.Start()
	return op
}

// Advance moves the clock forward.
func (op *Operator) Advance(seconds float64) *Operator {
	op.Director.Advance(seconds)
	return op
}

// AdvanceToLabel moves the clock to a script label.
func (op *Operator) AdvanceToLabel(name string) *Operator {
	op.Director.AdvanceToLabel(name)
	return op
}

// SeekTo jumps the playhead.
func (op *Operator) SeekTo(t float64) *Operator {
	op.Director.SeekTo(t)
	return op
}

// Activate presses the call to action.
func (op *Operator) Activate() *Operator {
	op.Director.Activate()
	return op
}

// Shots returns the tracking shots taken so far.
func (op *Operator) Shots() []TrackingShot { return op.shots }

func shotName(step int, label string) string {
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
	return fmt.Sprintf("%02d_%s", step, label)
}

// CaptureTrackingShot renders the current frame and writes it with its gantt
func (op *Operator) CaptureTrackingShot(label string) *Operator {
	if !op.ready("capture") {
		return op
	}
	st := op.stage
	step := len(op.shots) + 1
	name := shotName(step, label)

	if _, err := op.rendering.Render(st.Scene(), st.Frame()); err != nil {
		op.recordError(newTestError("capture", fmt.Sprintf("render %s: %v", label, err), map[string]interface{}{"label": label}))
		return op
	}
	framePath, err := op.rendering.CaptureFrame(name + ".png")
	if err != nil {
		op.recordError(newTestError("capture", fmt.Sprintf("write %s: %v", label, err), map[string]interface{}{"label": label}))
		return op
	}

	ganttPath := filepath.Join(op.outputDir, name+".ansi")
	var gantt strings.Builder
	fmt.Fprintf(&gantt, "# t=%.3f\n# label=%s\n", st.Playhead(), label)
	gantt.WriteString(Gantt(ANSIRenderer(io.Discard), st.Script(), st.Playhead(), op.ganttWidth))
	if err := os.WriteFile(ganttPath, []byte(gantt.String()), 0644); err != nil {
		op.recordError(newTestError("capture", fmt.Sprintf("write gantt %s: %v", label, err), map[string]interface{}{"label": label}))
		return op
	}

	shot := TrackingShot{
		Step:      step,
		Label:     label,
		Playhead:  st.Playhead(),
		Timestamp: time.Now(),
		FramePath: framePath,
		GanttPath: ganttPath,
		Routes:    st.RouteStates(),
	}
	op.shots = append(op.shots, shot)
	op.recordInteraction("shot", label, framePath)
	op.logger.Debug().Str("label", label).Str("frame", framePath).Msg("Tracking shot captured")
	return op
}

// AdvanceWithTrackingShot advances and then captures
func (op *Operator) AdvanceWithTrackingShot(seconds float64, label string) *Operator {
	return op.Advance(seconds).CaptureTrackingShot(label)
}

// AdvanceToLabelWithTrackingShot advances to a label and then captures
func (op *Operator) AdvanceToLabelWithTrackingShot(name, label string) *Operator {
	return op.AdvanceToLabel(name).CaptureTrackingShot(label)
}

// Stop ends the take; the result carries the tracking shots.
func (op *Operator) Stop() *StageResult {
	result := op.Director.Stop()
	result.Shots = op.shots
	return result
}
