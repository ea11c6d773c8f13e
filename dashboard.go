package flyover

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed html_templates/dashboard.html
var dashboardTemplate string

// ReportDirLayout is the timestamp format of per-take report directories.
const ReportDirLayout = "20060102_150405"

// DashboardEntry represents a single film report for the dashboard
type DashboardEntry struct {
	Title        string    `json:"title"`
	Take         string    `json:"take"`
	Timestamp    string    `json:"timestamp"`
	Success      bool      `json:"success"`
	FrameCount   int       `json:"frameCount"`
	Duration     string    `json:"duration"`
	ScriptTime   float64   `json:"scriptTime"`
	ReportPath   string    `json:"reportPath"`
	RelativePath string    `json:"relativePath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GenerateDashboard writes an index of every report under baseDir. Reports
// live at <baseDir>/<take>/<timestamp>/index.html.
func GenerateDashboard(baseDir string) (string, error) {
	entries, err := scanReports(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to scan film reports: %w", err)
	}

	dashboardPath := filepath.Join(baseDir, "index.html")
	file, err := os.Create(dashboardPath)
	if err != nil {
		return "", fmt.Errorf("failed to create dashboard file: %w", err)
	}
	defer file.Close()

	data := struct {
		Reports     []DashboardEntry
		GeneratedAt time.Time
	}{entries, time.Now()}
	if err := getDashboardTemplate().Execute(file, data); err != nil {
		return "", fmt.Errorf("failed to execute dashboard template: %w", err)
	}

	log.Info().Str("path", dashboardPath).Int("reports", len(entries)).Msg("Dashboard generated")
	return dashboardPath, nil
}

// scanReports finds all reports in timestamped directories under baseDir
func scanReports(baseDir string) ([]DashboardEntry, error) {
	var entries []DashboardEntry

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() != "index.html" || path == filepath.Join(baseDir, "index.html") {
			return nil
		}
		dir := filepath.Dir(path)
		timestamp := filepath.Base(dir)
		if _, err := time.Parse(ReportDirLayout, timestamp); err != nil {
			return nil
		}

		entry := DashboardEntry{
			Take:         filepath.Base(filepath.Dir(dir)),
			Timestamp:    timestamp,
			ReportPath:   path,
			RelativePath: getRelativePath(baseDir, path),
			CreatedAt:    info.ModTime(),
		}
		if meta, err := extractReportInfo(path); err == nil {
			entry.Title = meta.Title
			entry.Success = meta.Success
			entry.FrameCount = meta.FrameCount
			entry.Duration = meta.Duration
			entry.ScriptTime = meta.ScriptTime
		} else {
			log.Debug().Err(err).Str("path", path).Msg("Report without metadata")
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// newest first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// extractReportInfo reads the JSON metadata block of a report
func extractReportInfo(htmlPath string) (*reportMetadata, error) {
	content, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, err
	}
	return extractFromJSON(string(content))
}

// extractFromJSON extracts report metadata from the embedded JSON block
func extractFromJSON(htmlContent string) (*reportMetadata, error) {
	const open = `<script type="application/json" id="film-metadata">`
	start := strings.Index(htmlContent, open)
	if start == -1 {
		return nil, fmt.Errorf("no JSON metadata found")
	}
	start += len(open)

	end := strings.Index(htmlContent[start:], "</script>")
	if end == -1 {
		return nil, fmt.Errorf("no script closing tag found")
	}

	var meta reportMetadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(htmlContent[start:start+end])), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse JSON metadata: %w", err)
	}
	return &meta, nil
}

// getRelativePath returns a relative path from base to target
func getRelativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// getDashboardTemplate returns the HTML template for the dashboard
func getDashboardTemplate() *template.Template {
	return template.Must(template.New("dashboard").Parse(dashboardTemplate))
}
