package cmd

import (
	"github.com/spf13/cobra"
)

// operatorsCmd represents the operators command.
var operatorsCmd = newOperatorsCmd()

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List the available mutation operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := newWorkflow()
			if err != nil {
				return err
			}

			return wf.Operators(cmd.Context())
		},
	}
}

func init() {
	rootCmd.AddCommand(operatorsCmd)
}
