package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/playbook"
)

func newGenerateCommand() *cobra.Command {
	var (
		sitePaths []string
		outFile   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a playbook from existing fabric virtual networks",
		Long: `Read fabric VLANs, layer 3 virtual networks and anycast gateways
of existing fabric sites and write them as a playbook, for bringing
brownfield fabrics under declarative management.

Without -o the playbook is written to a timestamped file in the
working directory.`,
		Example: `  # Capture one fabric site
  fabricward generate --site Global/USA/SJ

  # Capture several sites into a named file
  fabricward generate --site Global/USA/SJ --site Global/USA/NY -o fabric.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(appVersion)
			if err != nil {
				return err
			}
			defer rt.shutdown(cmd.Context())

			generator := playbook.NewGenerator(rt.gateway, rt.resolver, rt.logger)
			path, err := generator.Generate(cmd.Context(), sitePaths, outFile)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sitePaths, "site", nil, "fabric site hierarchy path (repeatable)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output playbook file")
	_ = cmd.MarkFlagRequired("site")

	return cmd
}
