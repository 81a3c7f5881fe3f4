package cmd

import (
	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [modules...]",
		Short: "List mutation targets",
		Long:  listLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := newWorkflow()
			if err != nil {
				return err
			}

			return wf.List(cmd.Context(), moduleArgs(args))
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
