package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/config"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "psm",
		Short:        "Propensity score matching of experiment and control tables",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(newMatchCmd(g), newServeCmd(g))
	return cmd
}

// load reads the config file and applies flag overrides on top of it.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig, w io.Writer) (*psmgo.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return psmgo.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return psmgo.NewLogger(slog.NewTextHandler(w, opts)), nil
}
