package main

import (
	"strings"

	"github.com/danmuck/stmmctl/internal/config"
	"github.com/danmuck/stmmctl/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	transport  string
	device     string
	logLevel   string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stmmctl",
		Short:         "Talk to the StandaloneMM variable service through a TEE",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&opts.transport, "transport", "", "override transport (optee|loopback)")
	flags.StringVar(&opts.device, "device", "", "override TEE device node")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level")

	cmd.AddCommand(
		newProbeCmd(opts),
		newCallCmd(opts),
		newFunctionsCmd(),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(o.transport))
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = strings.TrimSpace(o.device)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	logging.ConfigureRuntime(func(lc *logging.Config) {
		if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
			lc.Level = lvl
		}
		if cfg.Log.File != "" {
			lc.File = cfg.Log.File
		}
		if cfg.Log.NoColor {
			lc.NoColor = true
		}
	})
	log.Debug().
		Str("component", "cli").
		Str("transport", cfg.Transport).
		Str("config", o.configPath).
		Msg("configuration loaded")
	return nil
}
