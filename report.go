package flyover

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/flyover/timeline"
)

//go:embed html_templates/report.html
var filmReportTemplate string

// FilmReport is everything a contact sheet shows about one take.
type FilmReport struct {
	Title        string            `json:"title"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	Duration     time.Duration     `json:"duration"`
	Success      bool              `json:"success"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Script       ScriptSummary     `json:"script"`
	Shots        []ShotEntry       `json:"shots"`
	Trips        []string          `json:"trips"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ScriptSummary is the resolved timeline as a table.
type ScriptSummary struct {
	Duration float64          `json:"duration"`
	Entries  []EntryRow       `json:"entries"`
	Labels   []timeline.Label `json:"labels"`
}

// EntryRow is one resolved segment.
type EntryRow struct {
	ID      string  `json:"id"`
	Targets string  `json:"targets"`
	Mode    string  `json:"mode"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Ease    string  `json:"ease"`
	Matched int     `json:"matched"`
}

// ShotEntry is a tracking shot prepared for embedding.
type ShotEntry struct {
	TrackingShot
	DataURL   template.URL      `json:"-"`
	GanttHTML template.HTML     `json:"-"`
	RawANSI   template.HTMLAttr `json:"-"`
}

// reportMetadata is embedded as JSON so the dashboard can index reports
// without parsing markup.
type reportMetadata struct {
	Title      string  `json:"title"`
	Duration   string  `json:"duration"`
	FrameCount int     `json:"frameCount"`
	Timestamp  string  `json:"timestamp"`
	Success    bool    `json:"success"`
	ScriptTime float64 `json:"scriptTime"`
	ReportType string  `json:"reportType"`
}

// HTMLReportGenerator creates contact sheets
type HTMLReportGenerator struct {
	outputDir     string
	templateCache map[string]*template.Template
}

// NewHTMLReportGenerator creates a new report generator
func NewHTMLReportGenerator(outputDir string) *HTMLReportGenerator {
	return &HTMLReportGenerator{
		outputDir:     outputDir,
		templateCache: make(map[string]*template.Template),
	}
}

// SummarizeScript tabulates a resolved script.
func SummarizeScript(s *timeline.Script) ScriptSummary {
	sum := ScriptSummary{Duration: s.Duration, Labels: s.Labels}
	for _, e := range s.Entries {
		sum.Entries = append(sum.Entries, EntryRow{
			ID:      e.ID,
			Targets: e.Targets,
			Mode:    e.Mode.String(),
			Start:   e.Start,
			End:     e.End,
			Ease:    e.Ease,
			Matched: len(e.Matched),
		})
	}
	return sum
}

// NewFilmReport assembles a report from a finished take.
func NewFilmReport(title string, script *timeline.Script, result *StageResult) FilmReport {
	report := FilmReport{
		Title:        title,
		GeneratedAt:  time.Now(),
		Duration:     result.Duration,
		Success:      result.Success,
		ErrorMessage: result.ErrorMessage,
		Script:       SummarizeScript(script),
		Trips:        make([]string, 0, len(result.Trips)),
	}
	for _, t := range result.Trips {
		report.Trips = append(report.Trips, t.Error())
	}
	for _, s := range result.Shots {
		report.Shots = append(report.Shots, ShotEntry{TrackingShot: s})
	}
	return report
}

// GenerateReport writes index.html for report into the output directory and
// returns its path. Frames and gantts are inlined.
func (g *HTMLReportGenerator) GenerateReport(report FilmReport) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	for i := range report.Shots {
		shot := &report.Shots[i]
		if shot.FramePath != "" {
			url, err := convertImageToDataURL(shot.FramePath)
			if err != nil {
				return "", fmt.Errorf("shot %s: %w", shot.Label, err)
			}
			shot.DataURL = url
		}
		if shot.GanttPath != "" {
			gantt, err := ConvertANSIToTerminalHTML(shot.GanttPath)
			if err != nil {
				return "", fmt.Errorf("shot %s: %w", shot.Label, err)
			}
			shot.GanttHTML = gantt
			raw, err := os.ReadFile(shot.GanttPath)
			if err != nil {
				return "", fmt.Errorf("shot %s: %w", shot.Label, err)
			}
			shot.RawANSI = template.HTMLAttr(`data-ansi="` + escapeForHTML(extractANSIContent(string(raw))) + `"`)
		}
	}

	meta, err := json.Marshal(reportMetadata{
		Title:      report.Title,
		Duration:   report.Duration.String(),
		FrameCount: len(report.Shots),
		Timestamp:  report.GeneratedAt.Format(time.RFC3339),
		Success:    report.Success,
		ScriptTime: report.Script.Duration,
		ReportType: "film",
	})
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	reportPath := filepath.Join(g.outputDir, "index.html")
	file, err := os.Create(reportPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data := struct {
		FilmReport
		MetadataJSON template.JS
	}{report, template.JS(meta)}
	if err := g.getMainTemplate().Execute(file, data); err != nil {
		return "", fmt.Errorf("failed to execute report template: %w", err)
	}
	return reportPath, nil
}

// getMainTemplate returns the HTML template for film reports
func (g *HTMLReportGenerator) getMainTemplate() *template.Template {
	if tmpl, exists := g.templateCache["main"]; exists {
		return tmpl
	}
	tmpl := template.Must(template.New("main").Funcs(template.FuncMap{
		"secs": func(v float64) string { return fmt.Sprintf("%.2fs", v) },
		"pct": func(v, total float64) string {
			if total <= 0 {
				return "0%"
			}
			return fmt.Sprintf("%.2f%%", v/total*100)
		},
		"sub": func(a, b float64) float64 { return a - b },
	}).Parse(filmReportTemplate))
	g.templateCache["main"] = tmpl
	return tmpl
}

// convertImageToDataURL reads an image file and converts it to a base64 data URL
func convertImageToDataURL(imagePath string) (template.URL, error) {
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	var mimeType string
	switch strings.ToLower(filepath.Ext(imagePath)) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".gif":
		mimeType = "image/gif"
	default:
		mimeType = "image/png"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))
	return template.URL(dataURL), nil
}
