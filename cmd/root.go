// Package cmd provides the root command and CLI setup for bytemut.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/controller"
	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

var fs afero.Fs
var moduleStore adapter.ModuleStore
var reportStore adapter.ReportStore
var ui controller.UI

// newWorkflow assembles the workflow from the current configuration.
var newWorkflow = buildWorkflow

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// operatorsFlag selects mutation operators for run, list and diff.
var operatorsFlag []string

// paramsFlag configures operators, e.g. --param crp_delta=2.
var paramsFlag map[string]string

var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fs = afero.NewOsFs()
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	moduleStore = adapter.NewLocalModuleStore(fs)
	reportStore = adapter.NewReportStore(fs)
}

const modulePathsHelp = `Modules are .bmod files. A symbol file next to a module (calc.bsym for
calc.bmod) adds source locations to mutants.`

const rootLongDescription = `Bytemut is a mutation testing tool for compiled bytecode modules. It
introduces small changes (mutations) into module copies and runs the test
suite against each copy to see whether the tests catch them.

` + modulePathsHelp

const runLongDescription = `Run mutation testing for the given modules against a test suite.

` + modulePathsHelp

const listLongDescription = `List the mutation targets found in the given modules.

` + modulePathsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "bytemut",
		Short:        "Bytecode mutation testing tool",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for mutation testing reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringSliceVarP(&operatorsFlag, operatorsFlagName, "O", viper.GetStringSlice(operatorsConfigKey), "mutation operators to apply, comma separated (default: all)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(operatorsFlagName), operatorsConfigKey)

	cmd.PersistentFlags().StringToStringVar(&paramsFlag, paramFlagName, viper.GetStringMapString(paramsKey), "operator parameter KEY=VALUE (can be repeated), e.g. crp_delta=2")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(paramFlagName), paramsKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, logFlagName, "", "log file (default: log.filename)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func buildWorkflow() (domain.Workflow, error) {
	runner, err := newTestRunner()
	if err != nil {
		return nil, err
	}

	orchestrator := domain.NewOrchestrator(moduleStore, runner, domain.OrchestratorConfig{
		WorkDir:       m.Path(viper.GetString(workDirKey)),
		MutantTimeout: mutantTimeout(),
		Params:        viper.GetStringMapString(paramsKey),
	})

	differ, err := domain.NewCodeDifferenceCreator(moduleStore, domain.DefaultDiffCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create code difference cache: %w", err)
	}

	return domain.NewWorkflow(fs, moduleStore, reportStore, ui, orchestrator, differ), nil
}

func newTestRunner() (adapter.TestRunnerAdapter, error) {
	switch runner := viper.GetString(runnerKey); runner {
	case runnerVM, "":
		return adapter.NewVMTestRunnerAdapter(moduleStore, viper.GetInt(maxStepsKey)), nil
	case runnerCommand:
		command := viper.GetStringSlice(commandKey)
		if len(command) == 0 {
			return nil, fmt.Errorf("runner %q needs %s", runnerCommand, commandKey)
		}

		return adapter.NewCommandTestRunnerAdapter(command), nil
	default:
		return nil, fmt.Errorf("unknown test runner %q (want %s or %s)", runner, runnerVM, runnerCommand)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the running session.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

func moduleArgs(args []string) domain.ModuleArgs {
	return domain.ModuleArgs{
		Modules:   parsePaths(args),
		Operators: viper.GetStringSlice(operatorsConfigKey),
		Params:    viper.GetStringMapString(paramsKey),
	}
}
