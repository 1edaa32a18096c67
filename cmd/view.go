package cmd

import (
	"github.com/spf13/cobra"

	"deadwood.dev/pkg/deadwood/internal/domain"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <report>",
		Short: "View a previously saved report",
		Long:  "View a report saved with --output, in the format chosen by --format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow, err := workflowFactory(cmd)
			if err != nil {
				return err
			}

			return workflow.View(cmd.Context(), domain.ViewArgs{Report: m.Path(args[0])})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
