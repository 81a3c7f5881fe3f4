package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initForceFlag bool

// initCmd represents the init command.
var initCmd = newInitCmd()

const initLongDescription = `Create a bytemut.yaml in the current working directory with the current
settings so it can be edited manually. Besides the log.* keys it holds:

  output             reports directory
  run.parallel       mutant workers
  run.tests          test suite file
  run.operators      operator ids, empty for all
  run.params         operator parameters, e.g. crp_delta: 2
  run.mutant_timeout seconds per mutant test run, 0 for no limit
  run.work_dir       directory receiving mutant binaries
  run.runner         vm or command
  run.command        argv of the command runner, {binary} is the mutant
  run.max_steps      instruction budget of the vm runner, 0 for the default
  diff.language      il or expr

Every key can also be set from the environment, e.g. BYTEMUT_RUN_PARALLEL=4.`

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default bytemut.yaml configuration file",
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			write := viper.SafeWriteConfigAs
			if initForceFlag {
				write = viper.WriteConfigAs
			}

			if err := write(targetPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Printf("wrote %s\n", targetPath)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite an existing configuration file")

	return cmd
}

func init() {
	rootCmd.AddCommand(initCmd)
}
