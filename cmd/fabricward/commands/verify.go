package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/reconcile"
)

func newVerifyCommand() *cobra.Command {
	var (
		playbookFile string
		goalState    string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the controller has converged to the playbook",
		Long: `Re-read controller state and fail if any declared entity has not
converged to the goal state. Nothing is mutated.`,
		Example: `  # Check convergence after an apply
  fabricward verify -f playbook.yml --state merged`,
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
			if err := pipe.VerifyOnly(cmd.Context(), pb, goal); err != nil {
				return err
			}
			fmt.Println("verified: controller state matches the playbook")
			return nil
		},
	}

	cmd.Flags().StringVarP(&playbookFile, "file", "f", "", "playbook file")
	cmd.Flags().StringVar(&goalState, "state", "merged", "goal state (merged, deleted)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
