package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/config"
	"github.com/hupe1980/psmgo/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /api/psm over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if level, _ := cfg.Log.SlogLevel(); level > slog.LevelDebug {
				gin.SetMode(gin.ReleaseMode)
			}

			srv, err := newServer(cfg, logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), server.ServeConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newServer(cfg config.Config, logger *psmgo.Logger) (*server.Server, error) {
	est, err := cfg.Estimator.Propensity()
	if err != nil {
		return nil, err
	}
	return server.New(func(o *server.Options) {
		o.MaxRows = cfg.Server.MaxRows
		o.MaxUploadBytes = cfg.Limits.MaxUploadBytes
		o.AllowedOrigins = cfg.CORS.AllowedOrigins
		o.AllowCredentials = cfg.CORS.AllowCredentials
		o.Estimator = est
		o.Limits = cfg.Limits.Resource()
		o.Logger = logger
	})
}
