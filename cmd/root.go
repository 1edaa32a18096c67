// Package cmd provides the root command and CLI setup for deadwood.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	"deadwood.dev/pkg/deadwood/internal/controller"
	"deadwood.dev/pkg/deadwood/internal/domain"
	"deadwood.dev/pkg/deadwood/internal/domain/conventions"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// workflowFactory builds the workflow for a command invocation. Tests replace
// it with a mock.
var workflowFactory = newWorkflow

// Root-level flag values shared by the analysis commands.
var (
	packagesFlag []string
	parallelFlag int
	formatFlag   string
	outputFlag   string
	excludeFlag  []string
	verboseFlag  bool
	logFileFlag  string
)

const rootLongDescription = `Deadwood finds source files in a JavaScript or TypeScript workspace that
nothing uses. It starts from the entry points every package declares
(manifest fields, scripts, tool configuration and framework conventions),
follows import and require statements across packages and reports the
files that were never reached.

Run it in a workspace root, or pass the directory to analyze:
  deadwood                 analyze the current directory
  deadwood ./web -p app    analyze ./web, report only the "app" package`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deadwood [dir]",
		Short:        "Find unused files in JavaScript and TypeScript workspaces",
		Long:         rootLongDescription,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
			return nil
		},
		RunE: runAnalyze,
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringArrayVarP(&packagesFlag, packagesFlagName, "p", viper.GetStringSlice(packagesConfigKey), "only report these packages (can be repeated)")
	bindFlagToConfig(flags.Lookup(packagesFlagName), packagesConfigKey)

	flags.IntVar(&parallelFlag, parallelFlagName, viper.GetInt(parallelConfigKey), "number of files analyzed concurrently (0 uses all CPUs)")
	bindFlagToConfig(flags.Lookup(parallelFlagName), parallelConfigKey)

	flags.StringVar(&formatFlag, formatFlagName, viper.GetString(formatConfigKey), "report format: table, json or yaml")
	bindFlagToConfig(flags.Lookup(formatFlagName), formatConfigKey)

	flags.StringVarP(&outputFlag, outputFlagName, "o", viper.GetString(outputConfigKey), "save the report to this file (.json or .yaml)")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputConfigKey)

	flags.StringArrayVarP(&excludeFlag, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching a glob (can be repeated)")
	bindFlagToConfig(flags.Lookup(excludeFlagName), excludeConfigKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// newWorkflow wires the adapters, engine and UI from the current
// configuration.
func newWorkflow(cmd *cobra.Command) (domain.Workflow, error) {
	format, err := controller.ParseFormat(viper.GetString(formatConfigKey))
	if err != nil {
		return nil, err
	}

	mode, err := adapter.ParseEvaluateMode(viper.GetString(evaluateModeKey))
	if err != nil {
		return nil, err
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter(viper.GetInt(cacheSizeKey))
	evaluator := adapter.NewModuleEvaluator(adapter.EvaluatorConfig{
		Mode:        mode,
		NodeCommand: strings.Fields(viper.GetString(nodeCommandKey)),
		Timeout:     time.Duration(viper.GetInt64(evaluateTimeoutKey)) * time.Second,
	})

	builder := domain.NewWorkspaceBuilder(fsAdapter, adapter.NewLocalManifestAdapter(), domain.WorkspaceOptions{
		Extensions: viper.GetStringSlice(extensionsConfigKey),
		Exclude:    viper.GetStringSlice(excludeConfigKey),
	})
	engine := domain.NewEngine(
		fsAdapter,
		domain.NewExtractor(adapter.NewLocalSyntaxAdapter(), 0),
		evaluator,
		conventions.Default(),
		viper.GetInt(parallelConfigKey),
	)
	watcher := adapter.NewLocalWatchAdapter(time.Duration(viper.GetInt64(watchDebounceKey)) * time.Millisecond)
	ui := controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()), format)

	return domain.NewWorkflow(builder, engine, adapter.NewReportStore(), watcher, ui, fsAdapter, evaluator), nil
}

// analyzeArgs collects the analysis arguments shared by analyze and watch.
func analyzeArgs(args []string) domain.AnalyzeArgs {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	return domain.AnalyzeArgs{
		Root:     m.Path(root),
		Packages: viper.GetStringSlice(packagesConfigKey),
		Output:   m.Path(viper.GetString(outputConfigKey)),
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	workflow, err := workflowFactory(cmd)
	if err != nil {
		return err
	}

	_, err = workflow.Analyze(cmd.Context(), analyzeArgs(args))

	return err
}
