package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/bytemut/internal/domain"
	m "gooze.dev/pkg/bytemut/internal/model"
)

var diffMutantFlag string
var diffLanguageFlag string

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [modules...]",
		Short: "Show the code difference of a mutant",
		Long: `Show how a mutant from the last run differs from the original method,
either as an instruction listing (il) or as decompiled expressions (expr).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			language, err := parseLanguage(viper.GetString(diffLanguageKey))
			if err != nil {
				return err
			}

			wf, err := newWorkflow()
			if err != nil {
				return err
			}

			return wf.Diff(cmd.Context(), domain.DiffArgs{
				ModuleArgs: moduleArgs(args),
				Reports:    m.Path(viper.GetString(outputFlagName)),
				MutantID:   diffMutantFlag,
				Language:   language,
			})
		},
	}

	cmd.Flags().StringVarP(&diffMutantFlag, mutantFlagName, "m", "", "mutant id, e.g. AOR_1")
	cobra.CheckErr(cmd.MarkFlagRequired(mutantFlagName))

	cmd.Flags().StringVarP(&diffLanguageFlag, languageFlagName, "l", viper.GetString(diffLanguageKey), "code language: il or expr")
	bindFlagToConfig(cmd.Flags().Lookup(languageFlagName), diffLanguageKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
