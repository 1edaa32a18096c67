package cmd

import (
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze whenever a source file or manifest changes",
		Long: `Analyze the workspace, then keep watching it and print a fresh report
after every change to a source file, manifest or tool configuration.
Stop with q or Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow, err := workflowFactory(cmd)
			if err != nil {
				return err
			}

			return workflow.Watch(cmd.Context(), analyzeArgs(args))
		},
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
