package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/teranos/flyover/internal/config"
	"github.com/teranos/flyover/internal/logging"
)

type rootOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "flyover",
		Short:         "Landing page flyover: serve it, preview it, film it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $FLYOVER_CONFIG or ./flyover.yaml)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCmd(opts),
		newPreviewCmd(opts),
		newFilmCmd(opts),
		newScriptCmd(opts),
	)
	return root
}

// load reads .env files, then the config, then sets up logging.
func (o *rootOptions) load() (config.Config, zerolog.Logger, error) {
	loaded, err := config.LoadEnv(o.envFiles...)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logging.ConfigureRuntime()
	for _, f := range loaded {
		log.Debug().Str("file", f).Msg("loaded env file")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, log.Logger, nil
}
