package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"gooze.dev/pkg/bytemut/internal/adapter"
	"gooze.dev/pkg/bytemut/internal/bytecode"
	m "gooze.dev/pkg/bytemut/internal/model"
)

var assembleOutputFlag string

// assembleCmd represents the assemble command.
var assembleCmd = newAssembleCmd()

func newAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble <file.basm>",
		Short: "Assemble a text module into a .bmod binary",
		Long: `Assemble a .basm source into a module binary and write its symbol file
next to it. The output defaults to the source path with a .bmod extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := assembleFile(fs, args[0], assembleOutputFlag)
			if err != nil {
				return err
			}

			cmd.Printf("wrote %s\n", dest)

			return nil
		},
	}

	// -o is taken by the reports directory.
	cmd.Flags().StringVar(&assembleOutputFlag, "out", "", "output module path")

	return cmd
}

func init() {
	rootCmd.AddCommand(assembleCmd)
}

func assembleFile(fsys afero.Fs, source, dest string) (m.Path, error) {
	src, err := afero.ReadFile(fsys, source)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", source, err)
	}

	mod, syms, err := bytecode.Assemble(filepath.Base(source), src)
	if err != nil {
		slog.Error("Failed to assemble", "source", source, "error", err)
		return "", fmt.Errorf("assemble %s: %w", source, err)
	}

	if dest == "" {
		dest = strings.TrimSuffix(source, filepath.Ext(source)) + adapter.ModuleExt
	}

	if err := adapter.WriteModuleFile(fsys, mod, syms, m.Path(dest)); err != nil {
		return "", err
	}

	slog.Info("Assembled module", "module", mod.Name, "dest", dest)

	return m.Path(dest), nil
}
