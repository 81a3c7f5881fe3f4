package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

var runParallelFlag int
var runShardFlag string
var runTestsFlag string
var runMutantTimeoutFlag int64
var runWorkDirFlag string
var runRunnerFlag string
var runCommandFlag []string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [modules...]",
		Short: "Run mutation testing",
		Long:  runLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite := viper.GetString(testsConfigKey)
			if suite == "" {
				return errors.New("no test suite given, use --tests")
			}

			language, err := parseLanguage(viper.GetString(diffLanguageKey))
			if err != nil {
				return err
			}

			shardIndex, totalShards, err := parseShardFlag(runShardFlag)
			if err != nil {
				return err
			}

			wf, err := newWorkflow()
			if err != nil {
				return err
			}

			_, err = wf.Run(cmd.Context(), domain.RunArgs{
				ModuleArgs:      moduleArgs(args),
				Suite:           m.Path(suite),
				Reports:         m.Path(viper.GetString(outputFlagName)),
				Threads:         viper.GetInt(runParallelConfigKey),
				ShardIndex:      shardIndex,
				TotalShardCount: totalShards,
				Language:        language,
			})

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of parallel workers for mutation testing")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().StringVarP(&runTestsFlag, testsFlagName, "t", viper.GetString(testsConfigKey), "test suite file (YAML)")
	bindFlagToConfig(cmd.Flags().Lookup(testsFlagName), testsConfigKey)

	cmd.Flags().Int64Var(&runMutantTimeoutFlag, mutantTimeoutFlagName, viper.GetInt64(mutantTimeoutKey), "seconds a mutant's test run may take, 0 for no limit")
	bindFlagToConfig(cmd.Flags().Lookup(mutantTimeoutFlagName), mutantTimeoutKey)

	cmd.Flags().StringVar(&runWorkDirFlag, workDirFlagName, viper.GetString(workDirKey), "directory receiving mutant binaries")
	bindFlagToConfig(cmd.Flags().Lookup(workDirFlagName), workDirKey)

	cmd.Flags().StringVar(&runRunnerFlag, runnerFlagName, viper.GetString(runnerKey), "test runner: vm or command")
	bindFlagToConfig(cmd.Flags().Lookup(runnerFlagName), runnerKey)

	cmd.Flags().StringArrayVar(&runCommandFlag, commandFlagName, viper.GetStringSlice(commandKey), "command runner argv, one flag per argument; {binary} is replaced by the mutant path")
	bindFlagToConfig(cmd.Flags().Lookup(commandFlagName), commandKey)

	cmd.Flags().StringVarP(&runShardFlag, "shard", "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
}

// parseShardFlag reads "INDEX/TOTAL"; an empty value selects every mutant.
func parseShardFlag(shard string) (int, int, error) {
	if shard == "" {
		return 0, 1, nil
	}

	indexText, totalText, ok := strings.Cut(shard, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --shard %q: want INDEX/TOTAL", shard)
	}

	index, err := strconv.Atoi(indexText)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --shard %q: %w", shard, err)
	}

	total, err := strconv.Atoi(totalText)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --shard %q: %w", shard, err)
	}

	if total <= 0 || index < 0 || index >= total {
		return 0, 0, fmt.Errorf("invalid --shard %q: index must be in [0,%d)", shard, max(total, 0))
	}

	return index, total, nil
}
