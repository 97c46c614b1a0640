package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/reconcile"
)

func newPlanCommand() *cobra.Command {
	var (
		playbookFile string
		goalState    string
		outFile      string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the action plan without mutating anything",
		Long: `Validate the playbook, read the controller's current state and
print the ordered action plan. Nothing is mutated.`,
		Example: `  # Show what apply would do
  fabricward plan -f playbook.yml --state merged

  # Write the plan to a file
  fabricward plan -f playbook.yml --state deleted -o plan.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := engine.State(goalState)
			if goal != engine.StateMerged && goal != engine.StateDeleted {
				return fmt.Errorf("invalid state %q: want merged or deleted", goalState)
			}

			rt, err := buildRuntime(appVersion)
			if err != nil {
				return err
			}
			defer rt.shutdown(cmd.Context())

			pb, err := playbook.Load(playbookFile)
			if err != nil {
				return err
			}

			pipe := rt.pipeline(nil, nil, reconcile.Options{
				ControllerVersion: controllerVersion,
				Executor:          executorOptions(),
			})
			out, err := pipe.Plan(cmd.Context(), pb, goal)
			if err != nil {
				return err
			}

			writer := os.Stdout
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return err
				}
				defer f.Close()
				writer = f
			}
			enc := json.NewEncoder(writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out.Plan); err != nil {
				return err
			}

			if !out.Plan.HasDiff() {
				rt.logger.Info().Msg("no changes required")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&playbookFile, "file", "f", "", "playbook file")
	cmd.Flags().StringVar(&goalState, "state", "merged", "goal state (merged, deleted)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the plan to this file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
