package flyover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/flyover/stage"
)

func filmTake(t *testing.T, dir string) (*Operator, *StageResult) {
	t.Helper()
	st := mount(t, stage.WithNavigator(stage.NavigatorFunc(func(string) error { return nil })))
	op := NewOperator(t, st, dir).WithGanttWidth(40)
	result := op.Start().
		CaptureTrackingShot("mount").
		AdvanceWithTrackingShot(4, "copy in").
		AdvanceToLabelWithTrackingShot("sumbarStart", "routes").
		Activate().
		Stop()
	require.True(t, result.Success, result.ErrorMessage)
	return op, result
}

// TestOperator_TrackingShots checks the files a take leaves behind
func TestOperator_TrackingShots(t *testing.T) {
	dir := t.TempDir()
	_, result := filmTake(t, dir)

	require.Len(t, result.Shots, 3)
	shot := result.Shots[1]
	assert.Equal(t, 2, shot.Step)
	assert.Equal(t, "copy in", shot.Label)
	assert.Equal(t, filepath.Join(dir, "02_copy_in.png"), shot.FramePath)
	assert.FileExists(t, shot.FramePath)
	assert.Equal(t, 4.0, shot.Playhead)

	gantt, err := os.ReadFile(shot.GanttPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(gantt), "# t=4.000\n# label=copy in\n"))
	assert.Contains(t, string(gantt), "content:cta")

	routes := result.Shots[2]
	assert.Equal(t, stage.Drawing, routes.Routes["sumbar"])
	assert.Equal(t, stage.Drawing, routes.Routes["aceh"])
}

// TestHTMLReportGenerator_GenerateReport renders a contact sheet from a real take
func TestHTMLReportGenerator_GenerateReport(t *testing.T) {
	dir := t.TempDir()
	op, result := filmTake(t, filepath.Join(dir, "shots"))

	report := NewFilmReport("Landing flyover", op.Stage().Script(), result)
	assert.Len(t, report.Script.Entries, 12)
	assert.Equal(t, "flight:aceh", report.Script.Entries[7].ID)

	path, err := NewHTMLReportGenerator(dir).GenerateReport(report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index.html"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "Landing flyover")
	assert.Contains(t, html, `<script type="application/json" id="film-metadata">`)
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "flight:sumbar")
	assert.Contains(t, html, "<span style=")
	assert.Contains(t, html, "data-ansi=")

	meta, err := extractFromJSON(html)
	require.NoError(t, err)
	assert.Equal(t, "Landing flyover", meta.Title)
	assert.Equal(t, 3, meta.FrameCount)
	assert.True(t, meta.Success)
	assert.InDelta(t, 9.7, meta.ScriptTime, 1e-9)
	assert.Equal(t, "film", meta.ReportType)
}

// TestHTMLReportGenerator_MissingFrame surfaces unreadable shots
func TestHTMLReportGenerator_MissingFrame(t *testing.T) {
	c := choreography(t)
	report := NewFilmReport("broken", c.Script, &StageResult{
		Shots: []TrackingShot{{Step: 1, Label: "gone", FramePath: filepath.Join(t.TempDir(), "gone.png")}},
	})
	_, err := NewHTMLReportGenerator(t.TempDir()).GenerateReport(report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read image file")
}

// TestGenerateDashboard indexes reports in timestamped directories
func TestGenerateDashboard(t *testing.T) {
	base := t.TempDir()
	takeDir := filepath.Join(base, "landing", time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC).Format(ReportDirLayout))
	op, result := filmTake(t, filepath.Join(takeDir, "shots"))
	_, err := NewHTMLReportGenerator(takeDir).GenerateReport(NewFilmReport("Landing flyover", op.Stage().Script(), result))
	require.NoError(t, err)

	// not a take directory
	require.NoError(t, os.MkdirAll(filepath.Join(base, "scratch"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "scratch", "index.html"), []byte("<html></html>"), 0644))

	entries, err := scanReports(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "landing", entries[0].Take)
	assert.Equal(t, "Landing flyover", entries[0].Title)
	assert.Equal(t, 3, entries[0].FrameCount)
	assert.Equal(t, filepath.Join("landing", "20260114_093000", "index.html"), entries[0].RelativePath)

	path, err := GenerateDashboard(base)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "landing/20260114_093000/index.html")
	assert.Contains(t, string(content), "1 reports")
}

func TestExtractFromJSON_Errors(t *testing.T) {
	_, err := extractFromJSON("<html></html>")
	assert.Error(t, err)
	_, err = extractFromJSON(`<script type="application/json" id="film-metadata">{not json</script>`)
	assert.Error(t, err)
}
