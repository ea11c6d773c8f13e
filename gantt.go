package flyover

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/teranos/flyover/timeline"
)

// ANSIRenderer is a lipgloss renderer that always emits 256-colour
// sequences, for gantts written to files rather than terminals.
func ANSIRenderer(w io.Writer) *lipgloss.Renderer {
	return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
}

type cellKind int

const (
	cellEmpty cellKind = iota
	cellPending
	cellPlayed
	cellHead
)

// Gantt draws one bar per script entry across width cells, with the played
// part highlighted and the playhead marked. Labels sit on a row of their own.
func Gantt(r *lipgloss.Renderer, script *timeline.Script, playhead float64, width int) string {
	if width < 10 {
		width = 10
	}
	styles := map[cellKind]lipgloss.Style{
		cellEmpty:   r.NewStyle().Foreground(lipgloss.Color("236")),
		cellPending: r.NewStyle().Foreground(lipgloss.Color("240")),
		cellPlayed:  r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		cellHead:    r.NewStyle().Foreground(lipgloss.Color("255")).Bold(true),
	}
	glyphs := map[cellKind]string{cellEmpty: "·", cellPending: "░", cellPlayed: "█", cellHead: "│"}
	name := r.NewStyle().Foreground(lipgloss.Color("246"))

	dur := script.Duration
	if dur <= 0 {
		dur = 1
	}
	cell := dur / float64(width)
	head := int(playhead / cell)
	if head >= width {
		head = width - 1
	}
	if head < 0 {
		head = 0
	}

	row := func(kinds []cellKind) string {
		var b strings.Builder
		for i := 0; i < len(kinds); {
			j := i
			for j < len(kinds) && kinds[j] == kinds[i] {
				j++
			}
			b.WriteString(styles[kinds[i]].Render(strings.Repeat(glyphs[kinds[i]], j-i)))
			i = j
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", name.Render(fmt.Sprintf("%-16s", "t")),
		fmt.Sprintf("0s%*s", width-2, fmt.Sprintf("%.1fs", script.Duration)))

	for _, e := range script.Entries {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("#%d", e.Index)
		}
		kinds := make([]cellKind, width)
		for i := range kinds {
			t := (float64(i) + 0.5) * cell
			switch {
			case i == head:
				kinds[i] = cellHead
			case t < e.Start || t >= e.End:
				kinds[i] = cellEmpty
			case t <= playhead:
				kinds[i] = cellPlayed
			default:
				kinds[i] = cellPending
			}
		}
		fmt.Fprintf(&b, "%s%s\n", name.Render(fmt.Sprintf("%-16.16s", id)), row(kinds))
	}

	if len(script.Labels) > 0 {
		marks := []rune(strings.Repeat(" ", width))
		for _, l := range script.Labels {
			i := int(l.Time / cell)
			if i >= 0 && i < width {
				marks[i] = '◆'
			}
		}
		fmt.Fprintf(&b, "%s%s\n", name.Render(fmt.Sprintf("%-16s", "labels")), styles[cellPlayed].Render(string(marks)))
	}
	return b.String()
}
