package cmd

import (
	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command.
var analyzeCmd = newAnalyzeCmd()

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Report unused files once",
		Long: `Analyze the workspace rooted at dir (default: current directory) and print
the files no entry point reaches. Same as running deadwood without a
subcommand.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
