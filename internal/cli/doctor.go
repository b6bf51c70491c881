package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simharness/simharness/internal/history"
	"github.com/simharness/simharness/pkg/simulator"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Server: %s (%s), metrics: %v\n", cfg.Server.Addr, cfg.Server.Transport, cfg.Server.MetricsEnabled)

			if path, err := simulator.Locate(cfg.Engine.Path); err != nil {
				fmt.Fprintf(out, "Engine: %v\n", err)
			} else {
				fmt.Fprintf(out, "Engine OK: %s\n", path)
			}

			if cfg.History.Enabled {
				if store, err := history.Open(cfg.History.Path); err != nil {
					fmt.Fprintf(out, "History: %v\n", err)
				} else {
					_ = store.Close()
					fmt.Fprintf(out, "History OK: %s\n", cfg.History.Path)
				}
			} else {
				fmt.Fprintln(out, "History disabled.")
			}
			return nil
		},
	}
}
