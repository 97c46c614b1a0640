package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/schema"
	"github.com/fabricward/fabricward/pkg/telemetry"
)

func newValidateCommand() *cobra.Command {
	var (
		playbookFile string
		watch        bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a playbook against the module schemas",
		Long: `Validate a playbook without contacting the controller.

Every config document is checked against its module schema: required
fields, field aliasing, enumerated values, cross-field constraints and
domain validations. All failures are reported together.`,
		Example: `  # Validate a playbook
  fabricward validate -f playbook.yml

  # Re-validate on every change
  fabricward validate -f playbook.yml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := telemetry.NewLogger(telemetryConfig(appVersion).Logging)
			if err != nil {
				return err
			}

			registry, err := schema.NewRegistry()
			if err != nil {
				return err
			}
			validateOnce := func(pb *playbook.Playbook) error {
				if err := registry.CheckConfig(pb.Docs); err != nil {
					return err
				}
				result := schema.ValidateConfig(pb.Docs)
				if err := result.Err(); err != nil {
					return err
				}
				fmt.Printf("playbook valid: %d config documents\n", len(result.Docs))
				return nil
			}

			pb, err := playbook.Load(playbookFile)
			if err != nil {
				return err
			}
			if err := validateOnce(pb); err != nil {
				if !watch {
					return err
				}
				logger.Error().Err(err).Msg("validation failed")
			}
			if !watch {
				return nil
			}

			watcher := playbook.NewWatcher(logger)
			return watcher.Watch(cmd.Context(), playbookFile, func(pb *playbook.Playbook, err error) {
				if err != nil {
					logger.Error().Err(err).Msg("playbook reload failed")
					return
				}
				if err := validateOnce(pb); err != nil {
					logger.Error().Err(err).Msg("validation failed")
				}
			})
		},
	}

	cmd.Flags().StringVarP(&playbookFile, "file", "f", "", "playbook file")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-validate on file changes")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
