package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/teranos/flyover"
	"github.com/teranos/flyover/internal/config"
	"github.com/teranos/flyover/landing"
	"github.com/teranos/flyover/operators"
	"github.com/teranos/flyover/stage"
	"github.com/teranos/flyover/timeline"
)

// settle is how long the take keeps rolling after the timeline ends, long
// enough for every plane to start its loop.
const settle = 3.0

type filmOutput struct {
	Report    string
	Dashboard string
	Result    *flyover.StageResult
}

func newFilmCmd(opts *rootOptions) *cobra.Command {
	var out, take string
	cmd := &cobra.Command{
		Use:   "film",
		Short: "Film a take of the landing as tracking shots and an HTML report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Film.ReportDir
			}
			res, err := film(cfg, out, take, time.Now(), logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report    %s\ndashboard %s\n", res.Report, res.Dashboard)
			if !res.Result.Success {
				return fmt.Errorf("take failed: %s", res.Result.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "report directory (default film.report_dir)")
	cmd.Flags().StringVar(&take, "take", "landing", "take name")
	return cmd
}

// film plays the landing from mount to its loops, with a shot at mount, at
// every label, at the end of the timeline and once the loops run.
func film(cfg config.Config, out, take string, now time.Time, logger zerolog.Logger) (*filmOutput, error) {
	engine, err := landing.NewEngine(logger)
	if err != nil {
		return nil, err
	}
	journey := operators.NewJourney()
	_, st, err := landing.Mount(engine, cfg.Viewport, stage.WithNavigator(journey), stage.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	takeDir := filepath.Join(out, take, now.Format(flyover.ReportDirLayout))
	render := flyover.DefaultConfig()
	render.Width, render.Height = cfg.Film.Width, cfg.Film.Height

	labels := append([]timeline.Label(nil), st.Script().Labels...)
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Time < labels[j].Time })

	op := flyover.NewOperator(nil, st, filepath.Join(takeDir, "shots")).WithConfig(render)
	op.WithLogger(logger)
	op.Start().CaptureTrackingShot("mount")
	for _, l := range labels {
		op.AdvanceToLabelWithTrackingShot(l.Name, l.Name)
	}
	op.AdvanceWithTrackingShot(max(st.Duration()-st.Playhead(), 0), "timeline end")
	op.AdvanceWithTrackingShot(settle, "looping")
	result := op.Activate().Stop()

	report := flyover.NewFilmReport("Landing flyover", st.Script(), result)
	path, err := flyover.NewHTMLReportGenerator(takeDir).GenerateReport(report)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	dashboard, err := flyover.GenerateDashboard(out)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	logger.Info().Str("report", path).Int("shots", len(result.Shots)).Msg("take filmed")
	return &filmOutput{Report: path, Dashboard: dashboard, Result: result}, nil
}
