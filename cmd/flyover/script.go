package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/teranos/flyover"
	"github.com/teranos/flyover/landing"
)

func newScriptCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		at     float64
		width  int
	)
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the resolved choreography",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			engine, err := landing.NewEngine(logger)
			if err != nil {
				return err
			}
			c := landing.Choreograph(engine, landing.Compose(cfg.Viewport))
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}
			fmt.Fprint(w, flyover.Gantt(lipgloss.NewRenderer(io.Discard), c.Script, at, width))
			for _, t := range c.Trips.All() {
				fmt.Fprintln(w, t.Error())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the script as JSON")
	cmd.Flags().Float64Var(&at, "at", 0, "playhead to mark on the gantt")
	cmd.Flags().IntVar(&width, "width", 72, "gantt width in cells")
	return cmd
}
