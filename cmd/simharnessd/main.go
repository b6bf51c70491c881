package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simharness/simharness/internal/config"
	"github.com/simharness/simharness/internal/daemon"
	"github.com/simharness/simharness/internal/logging"
	"github.com/simharness/simharness/internal/version"
	"github.com/simharness/simharness/pkg/simulator"
)

func main() {
	var (
		cfgPath string
		addr    string
	)

	root := &cobra.Command{
		Use:     "simharnessd",
		Short:   "Simharness daemon service",
		Version: version.Full(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			// Each run resolves the engine path itself; this is an early
			// warning only.
			if _, err := simulator.Locate(cfg.Engine.Path); err != nil {
				logger.Warn("engine binary not available", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server, err := daemon.NewServer(cfg, logger)
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "Path to config file (default: configs/config.yaml)")
	root.Flags().StringVar(&addr, "addr", "", "Listen address (overrides the config file)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
