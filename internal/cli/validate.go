package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simharness/simharness/internal/planfile"
)

// NewValidateCmd checks a plan document without running it.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan-file>",
		Short: "Validate a plan document against the engine's step rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := planfile.Load(args[0])
			if err != nil {
				return err
			}

			issues := doc.Validate()
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintf(out, "Plan OK. %d steps.\n", len(doc.Steps))
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(out, issue.String())
			}
			return fmt.Errorf("plan has %d issue(s)", len(issues))
		},
	}
}
