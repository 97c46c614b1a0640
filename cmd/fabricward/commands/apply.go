package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/policy"
	"github.com/fabricward/fabricward/pkg/reconcile"
	"github.com/fabricward/fabricward/pkg/stores"
)

func newApplyCommand() *cobra.Command {
	var (
		playbookFile string
		goalState    string
		verifyAfter  bool
		noPolicy     bool
		policyPaths  []string
		historyPath  string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the controller toward the playbook",
		Long: `Run the full pipeline: validate the playbook, read current state,
compute the action plan, gate it on policy, execute it and report
per-entity outcomes.

The exit status is zero iff no action failed.`,
		Example: `  # Converge declared entities toward presence
  fabricward apply -f playbook.yml --state merged

  # Remove declared entities, re-checking convergence afterwards
  fabricward apply -f playbook.yml --state deleted --verify

  # Keep run history in SQLite
  fabricward apply -f playbook.yml --history runs.db`,
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

			var policies *policy.Engine
			if !noPolicy {
				policies, err = policy.NewEngine(rt.logger)
				if err != nil {
					return err
				}
				if len(policyPaths) > 0 {
					if err := policies.LoadPolicies(cmd.Context(), policyPaths); err != nil {
						return err
					}
				}
			}

			var store stores.Store
			if historyPath != "" {
				store, err = openStore(cmd.Context(), historyPath)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			pipe := rt.pipeline(policies, store, reconcile.Options{
				ControllerVersion: controllerVersion,
				SkipPolicy:        noPolicy,
				Verify:            verifyAfter,
				Executor:          executorOptions(),
			})
			result, runErr := pipe.Apply(cmd.Context(), pb, goal)
			return emitResult(result, runErr)
		},
	}

	cmd.Flags().StringVarP(&playbookFile, "file", "f", "", "playbook file")
	cmd.Flags().StringVar(&goalState, "state", "merged", "goal state (merged, deleted)")
	cmd.Flags().BoolVar(&verifyAfter, "verify", false, "re-read state after apply and fail on residual diffs")
	cmd.Flags().BoolVar(&noPolicy, "no-policy", false, "skip the policy gate")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "additional policy files or directories")
	cmd.Flags().StringVar(&historyPath, "history", "", "record run history in this SQLite database")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
