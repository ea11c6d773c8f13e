package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/flyover"
	"github.com/teranos/flyover/internal/config"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestScriptCmd_Gantt(t *testing.T) {
	out := run(t, "script", "--at", "7", "--width", "40")
	assert.Contains(t, out, "flight:sumbar")
	assert.Contains(t, out, "labels")
	assert.NotContains(t, out, "[selector")
}

func TestScriptCmd_JSON(t *testing.T) {
	var payload struct {
		Routes []struct {
			Name  string `json:"name"`
			Label string `json:"label"`
		} `json:"routes"`
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, "script", "--json")), &payload))
	require.Len(t, payload.Routes, 3)
	assert.Equal(t, "sumutStart", payload.Routes[1].Label)
}

func TestScriptCmd_BadConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"script", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, cmd.Execute(), "config load failed")
}

func TestFilm(t *testing.T) {
	cfg := config.Default()
	cfg.Film.Width, cfg.Film.Height = 320, 180
	out := t.TempDir()
	at := time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC)

	res, err := film(cfg, out, "landing", at, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, res.Result.Success, res.Result.ErrorMessage)
	assert.Equal(t, filepath.Join(out, "landing", at.Format(flyover.ReportDirLayout), "index.html"), res.Report)
	assert.FileExists(t, res.Dashboard)

	labels := []string{"mount", "acehStart", "sumutStart", "sumbarStart", "timeline end", "looping"}
	require.Len(t, res.Result.Shots, len(labels))
	for i, l := range labels {
		assert.Equal(t, l, res.Result.Shots[i].Label)
	}
	last := res.Result.Shots[len(labels)-1]
	assert.InDelta(t, 12.7, last.Playhead, 1e-9)
	for _, r := range []string{"aceh", "sumut", "sumbar"} {
		assert.Equal(t, "looping", last.Routes[r].String())
	}

	dashboard, err := os.ReadFile(res.Dashboard)
	require.NoError(t, err)
	assert.Contains(t, string(dashboard), "landing/20260114_093000/index.html")
}
