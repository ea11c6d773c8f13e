package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teranos/flyover/landing"
	"github.com/teranos/flyover/operators"
	"github.com/teranos/flyover/stage"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Play the choreography in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			engine, err := landing.NewEngine(logger)
			if err != nil {
				return err
			}
			journey := operators.NewJourney()
			_, st, err := landing.Mount(engine, cfg.Viewport, stage.WithNavigator(journey))
			if err != nil {
				return err
			}
			p := operators.NewPreviewOperator(st,
				operators.WithFPS(cfg.Film.FPS),
				operators.WithJourney(journey),
				operators.WithPreviewLogger(logger),
			)
			if _, err := tea.NewProgram(p, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			if path, n := journey.Last(); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "journey %s taken %d times\n", path, n)
			}
			return nil
		},
	}
}
