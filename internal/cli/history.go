package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simharness/simharness/internal/history"
)

// NewHistoryCmd lists recorded runs, or the steps of a single run.
func NewHistoryCmd(opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs from the history store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled; enable it in the config to record runs")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				steps, err := store.RunSteps(args[0])
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					fmt.Fprintf(out, "No steps recorded for run %s.\n", args[0])
					return nil
				}
				for _, st := range steps {
					line := fmt.Sprintf("[%d] %s/%s", st.Index, st.Endpoint, st.Method)
					if st.EngineError != "" {
						line += " engine error: " + st.EngineError
					} else if st.TxID != "" {
						line += " tx " + st.TxID
					}
					fmt.Fprintln(out, line)
				}
				return nil
			}

			runs, err := store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			for _, run := range runs {
				status := "ok"
				if run.Error != "" {
					status = run.Error
				}
				fmt.Fprintf(out, "%s  %s  %d/%d steps  %s  %s\n",
					run.StartedAt.Format("2006-01-02 15:04:05"), run.ID, run.Completed, run.Steps, run.Transport, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}
